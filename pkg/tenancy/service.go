package tenancy

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SQLService implements the Service interface on database/sql. The
// queries use $N placeholders and an ON CONFLICT upsert, which both the
// postgres and sqlite3 drivers accept.
type SQLService struct {
	db     *sql.DB
	limits Limits
	now    func() time.Time
}

// NewSQLService creates a new SQLService with the default plan table.
func NewSQLService(db *sql.DB) *SQLService {
	return &SQLService{
		db:     db,
		limits: DefaultLimits(),
		now:    time.Now,
	}
}

// WithLimits overrides the plan table. Intended for tests.
func (s *SQLService) WithLimits(limits Limits) *SQLService {
	s.limits = limits
	return s
}

// WithClock overrides the time source. Intended for tests.
func (s *SQLService) WithClock(now func() time.Time) *SQLService {
	s.now = now
	return s
}

// GetOrganization retrieves an organization by ID
func (s *SQLService) GetOrganization(id string) (*Organization, error) {
	query := `
		SELECT id, name, plan, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`
	org := &Organization{}
	err := s.db.QueryRow(query, id).Scan(
		&org.ID, &org.Name, &org.Plan, &org.CreatedAt, &org.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrOrgNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// GetMember retrieves a user's membership in an organization
func (s *SQLService) GetMember(orgID, userID string) (*Membership, error) {
	query := `
		SELECT id, organization_id, user_id, role, created_at
		FROM organization_members
		WHERE organization_id = $1 AND user_id = $2
	`
	m := &Membership{}
	err := s.db.QueryRow(query, orgID, userID).Scan(
		&m.ID, &m.OrganizationID, &m.UserID, &m.Role, &m.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNoMembership
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

// SumUsage totals an organization's consumption of a resource across
// all users and days in the current UTC calendar month.
func (s *SQLService) SumUsage(orgID string, resource Resource) (int64, error) {
	query := `
		SELECT COALESCE(SUM(count), 0)
		FROM usage_records
		WHERE organization_id = $1 AND resource = $2 AND period = $3 AND date >= $4
	`
	var total int64
	err := s.db.QueryRow(query, orgID, string(resource), PeriodMonthly, MonthStart(s.now())).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum usage: %w", err)
	}
	return total, nil
}

// RecordUsage adds count units to the caller's ledger row for today,
// creating the row if it does not exist. The insert-or-increment is a
// single statement so concurrent writers never lose updates.
func (s *SQLService) RecordUsage(orgID, userID string, resource Resource, count int64) error {
	if count <= 0 {
		return fmt.Errorf("count must be positive, got %d", count)
	}
	now := s.now().UTC()
	query := `
		INSERT INTO usage_records (id, organization_id, user_id, resource, period, date, count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (organization_id, user_id, resource, period, date)
		DO UPDATE SET count = usage_records.count + excluded.count, updated_at = excluded.updated_at
	`
	_, err := s.db.Exec(query, uuid.NewString(), orgID, userID, string(resource),
		PeriodMonthly, DayStart(now), count, now)
	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

// CheckAndRecord enforces the plan allowance and records the usage if it
// fits. The charge lands even if the downstream operation later fails;
// rejections leave the ledger untouched.
func (s *SQLService) CheckAndRecord(orgID, userID string, resource Resource, count int64) error {
	// A missing organization or blank plan degrades to the free tier
	// instead of erroring; only storage failures abort enforcement.
	plan := PlanFree
	org, err := s.GetOrganization(orgID)
	if err != nil && !errors.Is(err, ErrOrgNotFound) {
		return err
	}
	if org != nil {
		plan = org.Plan
	}

	limit := s.limits.LimitFor(plan, resource)
	current, err := s.SumUsage(orgID, resource)
	if err != nil {
		return err
	}

	if current+count > limit {
		return &LimitExceededError{
			Resource: resource,
			Plan:     plan,
			Limit:    limit,
			Current:  current,
		}
	}

	return s.RecordUsage(orgID, userID, resource, count)
}

// Report builds the current-window usage summary for every resource.
func (s *SQLService) Report(orgID string) (*UsageReport, error) {
	org, err := s.GetOrganization(orgID)
	if err != nil {
		return nil, err
	}

	report := &UsageReport{
		OrganizationID: org.ID,
		Plan:           org.Plan,
		PeriodStart:    MonthStart(s.now()),
		Resources:      make(map[Resource]ResourceUsage, len(Resources)),
	}

	for _, resource := range Resources {
		used, err := s.SumUsage(orgID, resource)
		if err != nil {
			return nil, err
		}
		limit := s.limits.LimitFor(org.Plan, resource)
		remaining := limit - used
		if remaining < 0 {
			remaining = 0
		}
		report.Resources[resource] = ResourceUsage{
			Used:      used,
			Limit:     limit,
			Remaining: remaining,
		}
	}

	return report, nil
}
