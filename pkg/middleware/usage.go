package middleware

import (
	"errors"
	"net/http"

	"github.com/pulseboard/pulseboard/pkg/contextkeys"
	"github.com/pulseboard/pulseboard/pkg/httputil"
	"github.com/pulseboard/pulseboard/pkg/observability"
	"github.com/pulseboard/pulseboard/pkg/tenancy"
)

// UsageEnforcer applies plan limits to metered operations
type UsageEnforcer struct {
	service tenancy.Service
	metrics *observability.Metrics
}

// NewUsageEnforcer creates a new UsageEnforcer
func NewUsageEnforcer(service tenancy.Service, metrics *observability.Metrics) *UsageEnforcer {
	return &UsageEnforcer{
		service: service,
		metrics: metrics,
	}
}

// limitExceededResponse is the body returned with 402 when an operation
// would exceed the plan allowance.
type limitExceededResponse struct {
	Error   string       `json:"error"`
	Plan    tenancy.Plan `json:"plan"`
	Limit   int64        `json:"limit"`
	Current int64        `json:"current"`
}

// Enforce creates middleware that charges count units of resource
// against the organization's monthly allowance before the handler runs.
// The charge is kept even if the handler later fails.
//
// REQUIRES: RequireAccess must run before this middleware. A missing
// organization or identity in context is treated as a pipeline fault,
// not a pass-through.
func (e *UsageEnforcer) Enforce(resource tenancy.Resource, count int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			orgID := contextkeys.GetOrgID(r.Context())
			identity := GetIdentity(r)
			if orgID == "" || identity == nil {
				e.fail(w, r, "usage enforcer ran without org context", nil)
				return
			}

			err := e.service.CheckAndRecord(orgID, identity.UserID, resource, count)
			if err != nil {
				var le *tenancy.LimitExceededError
				if errors.As(err, &le) {
					e.decision(resource, "rejected")
					httputil.WritePaymentRequired(w, limitExceededResponse{
						Error:   "usage limit exceeded",
						Plan:    le.Plan,
						Limit:   le.Limit,
						Current: le.Current,
					})
					return
				}
				e.fail(w, r, "usage enforcement failed", err)
				return
			}

			e.decision(resource, "allowed")
			if e.metrics != nil {
				e.metrics.UsageRecordedTotal.WithLabelValues(string(resource)).Add(float64(count))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (e *UsageEnforcer) decision(resource tenancy.Resource, outcome string) {
	if e.metrics != nil {
		e.metrics.UsageDecisionsTotal.WithLabelValues(string(resource), outcome).Inc()
	}
}

func (e *UsageEnforcer) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if e.metrics != nil {
		e.metrics.EnforcementErrorsTotal.WithLabelValues("usage").Inc()
	}
	logger := observability.FromContext(r.Context())
	if err != nil {
		logger = logger.WithError(err)
	}
	logger.Error(msg)
	httputil.WriteInternalError(w, "usage enforcement failed")
}
