package auth

// Identity is the authenticated principal decoded from a bearer credential.
// It lives for a single request and is never persisted.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Role represents organization-level roles, totally ordered by privilege.
type Role string

const (
	RoleMember Role = "member" // Baseline membership
	RoleAdmin  Role = "admin"  // Can manage members and settings
	RoleOwner  Role = "owner"  // Full control, including billing
)

// roleRanks fixes the privilege order: owner > admin > member.
// Unknown roles rank zero and satisfy no requirement.
var roleRanks = map[Role]int{
	RoleMember: 1,
	RoleAdmin:  2,
	RoleOwner:  3,
}

// Rank returns the numeric privilege rank of the role, 0 if unrecognized.
func (r Role) Rank() int {
	return roleRanks[r]
}

// AtLeast reports whether r carries at least the privilege of required.
func (r Role) AtLeast(required Role) bool {
	return r.Rank() > 0 && r.Rank() >= required.Rank()
}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	return r.Rank() > 0
}
