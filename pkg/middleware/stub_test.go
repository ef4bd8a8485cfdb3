package middleware

import (
	"fmt"
	"sync"

	"github.com/pulseboard/pulseboard/pkg/auth"
	"github.com/pulseboard/pulseboard/pkg/tenancy"
)

// stubService is an in-memory tenancy.Service for middleware tests.
type stubService struct {
	mu      sync.Mutex
	orgs    map[string]*tenancy.Organization
	members map[string]auth.Role // "orgID/userID" -> role
	usage   map[string]int64     // "orgID/resource" -> total
	limits  tenancy.Limits

	memberErr error
	usageErr  error
}

func newStubService() *stubService {
	return &stubService{
		orgs:    make(map[string]*tenancy.Organization),
		members: make(map[string]auth.Role),
		usage:   make(map[string]int64),
		limits:  tenancy.DefaultLimits(),
	}
}

func (s *stubService) addOrg(id string, plan tenancy.Plan) {
	s.orgs[id] = &tenancy.Organization{ID: id, Name: id, Plan: plan}
}

func (s *stubService) addMember(orgID, userID string, role auth.Role) {
	s.members[orgID+"/"+userID] = role
}

func (s *stubService) GetOrganization(id string) (*tenancy.Organization, error) {
	org, ok := s.orgs[id]
	if !ok {
		return nil, tenancy.ErrOrgNotFound
	}
	return org, nil
}

func (s *stubService) GetMember(orgID, userID string) (*tenancy.Membership, error) {
	if s.memberErr != nil {
		return nil, s.memberErr
	}
	role, ok := s.members[orgID+"/"+userID]
	if !ok {
		return nil, tenancy.ErrNoMembership
	}
	return &tenancy.Membership{
		OrganizationID: orgID,
		UserID:         userID,
		Role:           role,
	}, nil
}

func (s *stubService) SumUsage(orgID string, resource tenancy.Resource) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage[orgID+"/"+string(resource)], nil
}

func (s *stubService) RecordUsage(orgID, userID string, resource tenancy.Resource, count int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage[orgID+"/"+string(resource)] += count
	return nil
}

func (s *stubService) CheckAndRecord(orgID, userID string, resource tenancy.Resource, count int64) error {
	if s.usageErr != nil {
		return s.usageErr
	}
	org, err := s.GetOrganization(orgID)
	if err != nil {
		return err
	}
	current, _ := s.SumUsage(orgID, resource)
	limit := s.limits.LimitFor(org.Plan, resource)
	if current+count > limit {
		return &tenancy.LimitExceededError{
			Resource: resource,
			Plan:     org.Plan,
			Limit:    limit,
			Current:  current,
		}
	}
	return s.RecordUsage(orgID, userID, resource, count)
}

func (s *stubService) Report(orgID string) (*tenancy.UsageReport, error) {
	return nil, fmt.Errorf("not implemented")
}
