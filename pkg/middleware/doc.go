// Package middleware provides the HTTP enforcement pipeline: bearer
// token authentication, organization access control, and metered usage
// limits.
//
// # Middleware Ordering Requirements
//
// The stages have strict ordering dependencies. Incorrect order causes
// downstream stages to reject every request.
//
// REQUIRED ORDERING (outer to inner):
//  1. AuthMiddleware.Handler - verifies the bearer token, sets the identity
//  2. OrgGuard.RequireAccess - resolves the organization, checks membership and role
//  3. UsageEnforcer.Enforce - checks and records plan usage for the resource
//
// Example (correct):
//
//	guard := middleware.NewOrgGuard(svc, metrics)
//	enforcer := middleware.NewUsageEnforcer(svc, metrics)
//
//	protected.Use(authMW.Handler)
//	protected.Handle("/api/orgs/{org_id}/tasks",
//	    guard.RequireAccess("")(
//	        enforcer.Enforce(tenancy.ResourceTasks, 1)(handler))).
//	    Methods("POST")
//
// AuthMiddleware must run first: RequireAccess reads the identity it
// sets and returns 401 without it. Enforce reads the organization ID
// set by RequireAccess and returns 500 without it; it never silently
// skips enforcement.
package middleware
