// Package api wires the enforcement pipeline onto the HTTP surface.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/pulseboard/pulseboard/pkg/auth"
	"github.com/pulseboard/pulseboard/pkg/httputil"
	"github.com/pulseboard/pulseboard/pkg/middleware"
	"github.com/pulseboard/pulseboard/pkg/observability"
	"github.com/pulseboard/pulseboard/pkg/tenancy"
)

// Server holds the HTTP handlers and their dependencies
type Server struct {
	tenancy     tenancy.Service
	authMW      *middleware.AuthMiddleware
	orgGuard    *middleware.OrgGuard
	enforcer    *middleware.UsageEnforcer
	rateLimiter *middleware.RateLimiter
	metrics     *observability.Metrics
	logger      *observability.Logger
}

// NewServer creates a new API server. rateLimiter may be nil when the
// Redis limiter is disabled.
func NewServer(
	svc tenancy.Service,
	verifier *auth.Verifier,
	rateLimiter *middleware.RateLimiter,
	metrics *observability.Metrics,
	logger *observability.Logger,
) *Server {
	return &Server{
		tenancy:     svc,
		authMW:      middleware.NewAuthMiddleware(verifier, metrics),
		orgGuard:    middleware.NewOrgGuard(svc, metrics),
		enforcer:    middleware.NewUsageEnforcer(svc, metrics),
		rateLimiter: rateLimiter,
		metrics:     metrics,
		logger:      logger,
	}
}

// meteredRoutes maps URL suffixes to the resource they consume.
var meteredRoutes = []struct {
	suffix   string
	resource tenancy.Resource
}{
	{"tasks", tenancy.ResourceTasks},
	{"posts", tenancy.ResourcePosts},
	{"emails", tenancy.ResourceEmails},
	{"leads", tenancy.ResourceLeads},
}

// Router builds the API router with the full enforcement pipeline.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.Use(httputil.RecoveryMiddleware)
	router.Use(httputil.RequestIDMiddleware)
	if s.metrics != nil {
		router.Use(s.metrics.HTTPMiddleware)
	}
	router.Use(httputil.LoggingMiddleware)
	router.Use(httputil.MaxBytesMiddleware(1 << 20))

	protected := router.PathPrefix("/api").Subrouter()
	protected.Use(s.authMW.Handler)

	requireMember := s.orgGuard.RequireAccess("")
	requireAdmin := s.orgGuard.RequireAccess(auth.RoleAdmin)

	// Metered creation endpoints. Each charges one unit of its resource
	// before the handler runs.
	for _, route := range meteredRoutes {
		resource := route.resource
		chain := httputil.Chain(requireMember, s.withRateLimit, s.enforcer.Enforce(resource, 1))
		protected.Handle("/orgs/{org_id}/"+route.suffix,
			chain(s.handleCreate(resource))).Methods("POST")
	}

	// Usage report, readable by any member.
	protected.Handle("/orgs/{org_id}/usage",
		requireMember(http.HandlerFunc(s.handleUsageReport))).Methods("GET")

	// Admin-only view of membership for the resolved organization.
	protected.Handle("/orgs/{org_id}/access",
		requireAdmin(http.HandlerFunc(s.handleAccessInfo))).Methods("GET")

	return router
}

// withRateLimit applies the Redis limiter when configured.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	if s.rateLimiter == nil {
		return next
	}
	return s.rateLimiter.Handler(next)
}

// HealthRouter builds the router for the health/metrics port.
func (s *Server) HealthRouter(checks ...func() error) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			if err := check(); err != nil {
				s.logger.WithError(err).Error("health check failed")
				httputil.WriteErrorMessage(w, http.StatusServiceUnavailable, "unhealthy")
				return
			}
		}
		httputil.WriteSuccess(w, map[string]string{"status": "ok"})
	}).Methods("GET")

	if s.metrics != nil {
		router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}

	return router
}
