// Package auth defines the authenticated identity model and the bearer
// credential verifier.
//
// Tokens are HS256 JWTs signed with a process-wide secret (PULSE_JWT_SECRET).
// Verification is local and CPU-bound; no network calls are made. The decoded
// Identity is attached to the request context by middleware.AuthMiddleware and
// consumed by every downstream pipeline stage.
//
// Roles form a total order (owner > admin > member) used by the organization
// access guard for "at least this privileged" checks.
package auth
