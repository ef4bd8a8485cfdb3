package tenancy

// Limits maps each plan to its monthly allowance per resource.
type Limits map[Plan]map[Resource]int64

// DefaultLimits returns the built-in plan table. Unknown plans fall back
// to free; unknown resources get a zero allowance.
func DefaultLimits() Limits {
	return Limits{
		PlanFree: {
			ResourceTasks:  10,
			ResourcePosts:  5,
			ResourceEmails: 3,
			ResourceLeads:  20,
		},
		PlanPro: {
			ResourceTasks:  100,
			ResourcePosts:  50,
			ResourceEmails: 25,
			ResourceLeads:  200,
		},
		PlanEnterprise: {
			ResourceTasks:  1000,
			ResourcePosts:  500,
			ResourceEmails: 250,
			ResourceLeads:  2000,
		},
	}
}

// LimitFor returns the monthly allowance for a plan and resource.
func (l Limits) LimitFor(plan Plan, resource Resource) int64 {
	table, ok := l[plan]
	if !ok {
		table = l[PlanFree]
	}
	return table[resource]
}

// APIRateLimitPerHour returns the plan's hourly API request ceiling,
// enforced best-effort by the Redis rate limiter.
func APIRateLimitPerHour(plan Plan) int64 {
	switch plan {
	case PlanEnterprise:
		return 100000
	case PlanPro:
		return 10000
	default:
		return 1000
	}
}
