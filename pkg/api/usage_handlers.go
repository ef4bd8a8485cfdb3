package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pulseboard/pulseboard/pkg/contextkeys"
	"github.com/pulseboard/pulseboard/pkg/httputil"
	"github.com/pulseboard/pulseboard/pkg/middleware"
	"github.com/pulseboard/pulseboard/pkg/observability"
	"github.com/pulseboard/pulseboard/pkg/tenancy"
)

// handleCreate accepts a metered creation request. Enforcement has
// already charged the usage by the time this runs; the handler just
// acknowledges the accepted operation.
func (s *Server) handleCreate(resource tenancy.Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteAccepted(w, map[string]interface{}{
			"id":              uuid.NewString(),
			"resource":        resource,
			"organization_id": contextkeys.GetOrgID(r.Context()),
			"accepted_at":     time.Now().UTC(),
		})
	}
}

// handleUsageReport returns the organization's consumption for the
// current billing window.
func (s *Server) handleUsageReport(w http.ResponseWriter, r *http.Request) {
	orgID := contextkeys.GetOrgID(r.Context())

	report, err := s.tenancy.Report(orgID)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to build usage report")
		httputil.WriteInternalError(w, "failed to build usage report")
		return
	}

	httputil.WriteSuccess(w, report)
}

// handleAccessInfo echoes the caller's resolved access for debugging
// RBAC configuration. Admin and above only.
func (s *Server) handleAccessInfo(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	orgID := contextkeys.GetOrgID(r.Context())

	member, err := s.tenancy.GetMember(orgID, identity.UserID)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to load membership")
		httputil.WriteInternalError(w, "failed to load membership")
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"organization_id": orgID,
		"user_id":         identity.UserID,
		"email":           identity.Email,
		"role":            member.Role,
	})
}
