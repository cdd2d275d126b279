package model

import "strings"

// Role is the account's position in the moderation hierarchy.
type Role string

const (
	RoleUser           Role = "user"
	RoleModerator      Role = "moderator"
	RoleContentManager Role = "content_manager"
	RoleAdmin          Role = "admin"
)

// ParseRole normalizes s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Valid reports whether r is one of the four account roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleContentManager, RoleAdmin:
		return true
	}
	return false
}

// Grantable reports whether r may be handed out through an invitation code.
func (r Role) Grantable() bool {
	return r == RoleModerator || r == RoleContentManager || r == RoleAdmin
}

// Operation names an action whose access depends on the caller's role.
type Operation string

const (
	OpCreateInvitation Operation = "invitation.create"
	OpListRedemptions  Operation = "invitation.redemptions"
	OpListPending      Operation = "idea.pending"
	OpSetIdeaStatus    Operation = "idea.set_status"
	OpDeleteAnyIdea    Operation = "idea.delete_any"
	OpDeleteAnyComment Operation = "comment.delete_any"
	OpSeeAllIdeas      Operation = "idea.see_all"
	OpAutoApprove      Operation = "idea.auto_approve"
)

// permissions is the only place role requirements are declared. Middleware
// and services both consult it through Role.Can.
var permissions = map[Operation][]Role{
	OpCreateInvitation: {RoleAdmin},
	OpListRedemptions:  {RoleAdmin},
	OpListPending:      {RoleModerator, RoleContentManager, RoleAdmin},
	OpSetIdeaStatus:    {RoleContentManager, RoleAdmin},
	OpDeleteAnyIdea:    {RoleModerator, RoleAdmin},
	OpDeleteAnyComment: {RoleModerator, RoleAdmin},
	OpSeeAllIdeas:      {RoleModerator, RoleContentManager, RoleAdmin},
	OpAutoApprove:      {RoleContentManager},
}

// Can reports whether r is in the required set for op. Unknown operations
// are denied.
func (r Role) Can(op Operation) bool {
	for _, allowed := range permissions[op] {
		if r == allowed {
			return true
		}
	}
	return false
}

// RolesFor returns a copy of the roles permitted to perform op.
func RolesFor(op Operation) []Role {
	out := make([]Role, len(permissions[op]))
	copy(out, permissions[op])
	return out
}
