package middleware

import (
	"errors"
	"net/http"

	"github.com/pulseboard/pulseboard/pkg/auth"
	"github.com/pulseboard/pulseboard/pkg/contextkeys"
	"github.com/pulseboard/pulseboard/pkg/httputil"
	"github.com/pulseboard/pulseboard/pkg/observability"
	"github.com/pulseboard/pulseboard/pkg/tenancy"
)

// OrgGuard checks organization membership and role for incoming requests
type OrgGuard struct {
	service tenancy.Service
	metrics *observability.Metrics
}

// NewOrgGuard creates a new OrgGuard
func NewOrgGuard(service tenancy.Service, metrics *observability.Metrics) *OrgGuard {
	return &OrgGuard{
		service: service,
		metrics: metrics,
	}
}

// RequireAccess creates middleware that resolves the target organization
// and confirms the caller's membership. minRole of "" accepts any member;
// otherwise the caller's role rank must meet or exceed it.
//
// REQUIRES: AuthMiddleware must run before this middleware.
// Sets: organization ID and caller role in the request context.
func (g *OrgGuard) RequireAccess(minRole auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := GetIdentity(r)
			if identity == nil {
				httputil.WriteUnauthorized(w, "missing authorization header")
				return
			}

			orgID := httputil.OrgIDFromRequest(r)
			if orgID == "" {
				g.deny("no_org")
				httputil.WriteBadRequest(w, "organization id is required")
				return
			}

			member, err := g.service.GetMember(orgID, identity.UserID)
			if err != nil {
				if errors.Is(err, tenancy.ErrNoMembership) {
					g.deny("no_membership")
					httputil.WriteForbidden(w, "not a member of this organization")
					return
				}
				g.fail(w, r, err)
				return
			}

			if minRole != "" && !member.Role.AtLeast(minRole) {
				g.deny("insufficient_role")
				httputil.WriteForbidden(w, "insufficient role")
				return
			}

			ctx := contextkeys.WithOrgID(r.Context(), orgID)
			ctx = contextkeys.WithRole(ctx, member.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (g *OrgGuard) deny(reason string) {
	if g.metrics != nil {
		g.metrics.AccessDeniedTotal.WithLabelValues(reason).Inc()
	}
}

func (g *OrgGuard) fail(w http.ResponseWriter, r *http.Request, err error) {
	if g.metrics != nil {
		g.metrics.EnforcementErrorsTotal.WithLabelValues("org_access").Inc()
	}
	observability.FromContext(r.Context()).WithError(err).Error("organization access check failed")
	httputil.WriteInternalError(w, "access check failed")
}
