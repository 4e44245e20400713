package access

// Role represents a member's role within a team. Roles are fixed at invite
// time and never escalated.
type Role string

const (
	RoleOwner        Role = "owner"
	RoleMember       Role = "member"
	RoleCollaborator Role = "collaborator"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleMember, RoleCollaborator:
		return true
	}
	return false
}

// Operation identifies a guarded team-scoped operation.
type Operation string

const (
	OpViewTeam           Operation = "view_team"
	OpViewBilling        Operation = "view_billing"
	OpSwitchTier         Operation = "switch_tier"
	OpCancelSubscription Operation = "cancel_subscription"
	OpPurchaseAddOn      Operation = "purchase_addon"
	OpCreateProject      Operation = "create_project"
	OpInviteUser         Operation = "invite_user"
	OpInviteCollaborator Operation = "invite_collaborator"
)

// capabilities is the closed capability table. An operation missing from a
// role's set is denied. Access is evaluated before quota, so a denied
// caller never learns quota state.
var capabilities = map[Role]map[Operation]bool{
	RoleOwner: {
		OpViewTeam:           true,
		OpViewBilling:        true,
		OpSwitchTier:         true,
		OpCancelSubscription: true,
		OpPurchaseAddOn:      true,
		OpCreateProject:      true,
		OpInviteUser:         true,
		OpInviteCollaborator: true,
	},
	RoleMember: {
		OpViewTeam:      true,
		OpViewBilling:   true,
		OpCreateProject: true,
	},
	RoleCollaborator: {},
}

// Allowed reports whether the given role may invoke the operation.
func Allowed(role Role, op Operation) bool {
	return capabilities[role][op]
}
