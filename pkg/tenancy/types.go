package tenancy

import (
	"errors"
	"fmt"
	"time"

	"github.com/pulseboard/pulseboard/pkg/auth"
)

// Plan represents subscription plan tiers
type Plan string

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// Resource identifies a billable resource type
type Resource string

const (
	ResourceTasks  Resource = "tasks"
	ResourcePosts  Resource = "posts"
	ResourceEmails Resource = "emails"
	ResourceLeads  Resource = "leads"
)

// Resources lists every billable resource in stable order.
var Resources = []Resource{ResourceTasks, ResourcePosts, ResourceEmails, ResourceLeads}

// Valid reports whether r is a known billable resource.
func (r Resource) Valid() bool {
	for _, known := range Resources {
		if r == known {
			return true
		}
	}
	return false
}

// PeriodMonthly is the only billing period currently supported. It is
// stored on every ledger row so other windows can be added without a
// schema change.
const PeriodMonthly = "monthly"

// Organization represents a tenant
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Plan      Plan      `json:"plan"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Membership links a user to an organization with a role
type Membership struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	UserID         string    `json:"user_id"`
	Role           auth.Role `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}

// UsageRecord is one ledger row: usage by one user of one resource on
// one UTC day, within one billing period.
type UsageRecord struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	UserID         string    `json:"user_id"`
	Resource       Resource  `json:"resource"`
	Period         string    `json:"period"`
	Date           time.Time `json:"date"`
	Count          int64     `json:"count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ResourceUsage is the per-resource slice of a usage report.
type ResourceUsage struct {
	Used      int64 `json:"used"`
	Limit     int64 `json:"limit"`
	Remaining int64 `json:"remaining"`
}

// UsageReport summarizes an organization's consumption for the current
// billing window.
type UsageReport struct {
	OrganizationID string                     `json:"organization_id"`
	Plan           Plan                       `json:"plan"`
	PeriodStart    time.Time                  `json:"period_start"`
	Resources      map[Resource]ResourceUsage `json:"resources"`
}

// ErrOrgNotFound indicates the organization does not exist.
var ErrOrgNotFound = errors.New("organization not found")

// ErrNoMembership indicates the user has no membership in the organization.
var ErrNoMembership = errors.New("not a member of this organization")

// LimitExceededError indicates an operation would push the organization
// past its plan allowance for a resource.
type LimitExceededError struct {
	Resource Resource
	Plan     Plan
	Limit    int64
	Current  int64
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("usage limit exceeded for %s: %d/%d on plan %s",
		e.Resource, e.Current, e.Limit, e.Plan)
}

// IsLimitExceeded checks if an error is a limit exceeded error
func IsLimitExceeded(err error) bool {
	var le *LimitExceededError
	return errors.As(err, &le)
}

// Service defines the interface for membership and usage operations
type Service interface {
	// Organizations
	GetOrganization(id string) (*Organization, error)

	// Membership
	GetMember(orgID, userID string) (*Membership, error)

	// Usage accounting
	SumUsage(orgID string, resource Resource) (int64, error)
	RecordUsage(orgID, userID string, resource Resource, count int64) error
	CheckAndRecord(orgID, userID string, resource Resource, count int64) error
	Report(orgID string) (*UsageReport, error)
}
