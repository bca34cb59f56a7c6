package enums

import "fmt"

// MemberRole identifies what an authenticated member may do. A member holds
// exactly one role; admin bypasses most ownership checks.
type MemberRole string

const (
	MemberRoleBuyer  MemberRole = "buyer"
	MemberRoleSeller MemberRole = "seller"
	MemberRoleDriver MemberRole = "driver"
	MemberRoleAdmin  MemberRole = "admin"
)

var memberRoleSet = map[MemberRole]struct{}{
	MemberRoleBuyer:  {},
	MemberRoleSeller: {},
	MemberRoleDriver: {},
	MemberRoleAdmin:  {},
}

func (m MemberRole) String() string {
	return string(m)
}

func (m MemberRole) IsValid() bool {
	_, ok := memberRoleSet[m]
	return ok
}

// ParseMemberRole converts raw input into a MemberRole.
func ParseMemberRole(value string) (MemberRole, error) {
	role := MemberRole(value)
	if !role.IsValid() {
		return "", fmt.Errorf("invalid member role %q", value)
	}
	return role, nil
}
