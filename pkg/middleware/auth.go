package middleware

import (
	"net/http"
	"strings"

	"github.com/pulseboard/pulseboard/pkg/auth"
	"github.com/pulseboard/pulseboard/pkg/contextkeys"
	"github.com/pulseboard/pulseboard/pkg/httputil"
	"github.com/pulseboard/pulseboard/pkg/observability"
)

// AuthMiddleware provides authentication middleware
type AuthMiddleware struct {
	verifier *auth.Verifier
	metrics  *observability.Metrics
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(verifier *auth.Verifier, metrics *observability.Metrics) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		metrics:  metrics,
	}
}

// Handler wraps an HTTP handler with bearer token authentication.
// On success the verified identity is stored in the request context.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Format: "Bearer <token>"
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.reject(w, "missing")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			m.reject(w, "missing")
			return
		}

		identity, err := m.verifier.Verify(parts[1])
		if err != nil {
			m.rejectInvalid(w)
			return
		}

		ctx := contextkeys.WithIdentity(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) reject(w http.ResponseWriter, reason string) {
	if m.metrics != nil {
		m.metrics.AuthFailuresTotal.WithLabelValues(reason).Inc()
	}
	httputil.WriteUnauthorized(w, "missing authorization header")
}

func (m *AuthMiddleware) rejectInvalid(w http.ResponseWriter) {
	if m.metrics != nil {
		m.metrics.AuthFailuresTotal.WithLabelValues("invalid").Inc()
	}
	httputil.WriteUnauthorized(w, "invalid or expired token")
}

// GetIdentity extracts the authenticated identity from the request.
// Returns nil if AuthMiddleware has not run.
func GetIdentity(r *http.Request) *auth.Identity {
	identity, ok := r.Context().Value(contextkeys.IdentityKey).(*auth.Identity)
	if !ok {
		return nil
	}
	return identity
}
