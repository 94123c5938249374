package models

import "time"

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAgent  Role = "agent"
	RoleAdmin  Role = "admin"
)

// ParseRole maps a stored user_type onto the closed role set. Unknown or
// empty values fall back to buyer, the least privileged role.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleSeller, RoleAgent, RoleAdmin:
		return Role(s)
	default:
		return RoleBuyer
	}
}

func (r Role) Privileged() bool {
	return r == RoleAdmin
}

type RoleSet map[Role]struct{}

func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, role := range roles {
		set[role] = struct{}{}
	}
	return set
}

// IsAllowed is the single authorization predicate for role-gated actions.
func IsAllowed(identity Identity, allowed RoleSet) bool {
	_, ok := allowed[identity.Role]
	return ok
}

// Identity is the caller a request has been attributed to.
type Identity struct {
	ID             string
	Email          string
	Role           Role
	StepUpVerified bool
	UsedBackupCode bool
}

type Profile struct {
	ID         string
	Email      string
	FullName   string
	Role       Role
	IsVerified bool
	IsLocked   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Origin describes where a request came from.
type Origin struct {
	IPAddress string
	UserAgent string
	Path      string
	Method    string
}
