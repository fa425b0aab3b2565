package enums

import "fmt"

// MemberRole identifies the actor type behind a verified request.
type MemberRole string

const (
	MemberRolePartner MemberRole = "partner"
	MemberRoleAgent   MemberRole = "agent"
	MemberRoleAdmin   MemberRole = "admin"
	// MemberRoleSystem marks internal callers such as the assessment pipeline.
	MemberRoleSystem MemberRole = "system"
)

var validMemberRoles = []MemberRole{
	MemberRolePartner,
	MemberRoleAgent,
	MemberRoleAdmin,
	MemberRoleSystem,
}

// String implements fmt.Stringer.
func (r MemberRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known MemberRole.
func (r MemberRole) IsValid() bool {
	for _, candidate := range validMemberRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseMemberRole converts raw input into a MemberRole.
func ParseMemberRole(value string) (MemberRole, error) {
	for _, candidate := range validMemberRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid member role %q", value)
}
