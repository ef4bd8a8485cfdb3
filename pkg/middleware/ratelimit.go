package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/pulseboard/pulseboard/pkg/contextkeys"
	"github.com/pulseboard/pulseboard/pkg/httputil"
	"github.com/pulseboard/pulseboard/pkg/observability"
	"github.com/pulseboard/pulseboard/pkg/tenancy"
)

// RateLimiter throttles per-organization API traffic using Redis so the
// hourly ceiling is shared across instances. Unlike usage enforcement
// this is best-effort: Redis errors fail open.
type RateLimiter struct {
	redis   *redis.Client
	service tenancy.Service
	metrics *observability.Metrics
	prefix  string
	window  time.Duration
	now     func() time.Time
}

// NewRateLimiter creates a new Redis-backed per-organization rate limiter
func NewRateLimiter(redisClient *redis.Client, service tenancy.Service, metrics *observability.Metrics) *RateLimiter {
	return &RateLimiter{
		redis:   redisClient,
		service: service,
		metrics: metrics,
		prefix:  "ratelimit:org",
		window:  time.Hour,
		now:     time.Now,
	}
}

// windowKey returns the counter key for the organization's current
// window plus the time left until that window rolls over. The window
// start is part of the key so a busy organization gets a fresh
// allowance every hour instead of sliding its own expiry forward.
func (rl *RateLimiter) windowKey(orgID string) (string, time.Duration) {
	now := rl.now()
	start := now.Truncate(rl.window)
	return fmt.Sprintf("%s:%s:%d", rl.prefix, orgID, start.Unix()), start.Add(rl.window).Sub(now)
}

// Allow increments the organization's window counter and reports whether
// the request fits under limit. The increment and expiry run in one
// pipeline so a crashed instance cannot leave an immortal key.
func (rl *RateLimiter) Allow(ctx context.Context, orgID string, limit int64) (bool, error) {
	key, _ := rl.windowKey(orgID)

	pipe := rl.redis.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("redis error: %w", err)
	}

	return incr.Val() <= limit, nil
}

// Reset clears the current window's counter for an organization. For
// tests and admin use.
func (rl *RateLimiter) Reset(ctx context.Context, orgID string) error {
	key, _ := rl.windowKey(orgID)
	return rl.redis.Del(ctx, key).Err()
}

// Handler wraps an HTTP handler with the hourly plan ceiling.
//
// REQUIRES: RequireAccess must run before this middleware; requests
// without an organization in context pass through unthrottled.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orgID := contextkeys.GetOrgID(ctx)
		if orgID == "" {
			next.ServeHTTP(w, r)
			return
		}

		plan := tenancy.PlanFree
		if org, err := rl.service.GetOrganization(orgID); err == nil {
			plan = org.Plan
		}
		limit := tenancy.APIRateLimitPerHour(plan)

		allowed, err := rl.Allow(ctx, orgID, limit)
		if err != nil {
			// Fail open on Redis errors so an outage degrades to
			// unthrottled traffic instead of an outage of our own.
			observability.FromContext(ctx).WithError(err).Warn("rate limiter unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		if !allowed {
			if rl.metrics != nil {
				rl.metrics.RateLimitedTotal.WithLabelValues(string(plan)).Inc()
			}
			_, remaining := rl.windowKey(orgID)
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", remaining.Seconds()))
			httputil.WriteTooManyRequests(w, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}
