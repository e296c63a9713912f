package alerts

import (
	"fmt"
	"strings"
)

// Role is a caller capability level.
type Role string

// Capability levels, lowest to highest.
const (
	RoleReader   Role = "reader"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

var roleRank = map[Role]int{
	RoleReader:   0,
	RoleOperator: 1,
	RoleAdmin:    2,
}

// ParseRole normalises a caller-supplied role. Empty input maps to
// reader; unknown values are rejected.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if role == "" {
		return RoleReader, nil
	}
	if _, ok := roleRank[role]; !ok {
		return "", fmt.Errorf("%w: unknown role %q", ErrForbidden, raw)
	}
	return role, nil
}

// AtLeast reports whether the role meets a minimum capability level.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min]
}
