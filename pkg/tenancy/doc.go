// Package tenancy implements organization membership and metered usage
// accounting for the enforcement pipeline.
//
// Organizations carry a subscription plan (free, pro, enterprise) that
// determines monthly allowances per billable resource. Usage is recorded
// in per-user per-day ledger rows and summed across the organization for
// the current UTC calendar month when a limit decision is made.
package tenancy
