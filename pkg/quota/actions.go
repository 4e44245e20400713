package quota

// Action is a team operation subject to admission control. The set of
// actions is closed; each variant carries the parameters the enforcer
// needs to judge it.
type Action interface {
	// Name returns a stable identifier used in logs and metrics
	Name() string
}

// InviteUser requests one more owner or member seat
type InviteUser struct{}

// InviteCollaborator requests one more collaborator seat
type InviteCollaborator struct{}

// CreateProject requests one more project slot
type CreateProject struct{}

// SwitchTier requests moving the team to another tier
type SwitchTier struct {
	TargetTierID int64
}

// PurchaseAddOn requests additional user seats on top of the tier allowance
type PurchaseAddOn struct {
	ExtraUsers int
}

func (InviteUser) Name() string         { return "invite_user" }
func (InviteCollaborator) Name() string { return "invite_collaborator" }
func (CreateProject) Name() string      { return "create_project" }
func (SwitchTier) Name() string         { return "switch_tier" }
func (PurchaseAddOn) Name() string      { return "purchase_addon" }

// Reason explains a rejected admission
type Reason string

const (
	ReasonLimitReached    Reason = "limit_reached"
	ReasonTooManyUsers    Reason = "too_many_users"
	ReasonNoPaymentMethod Reason = "no_payment_method"
)

// Decision is the outcome of an admission check. Resource names the limit
// that was hit when the decision is a rejection.
type Decision struct {
	Approved bool
	Reason   Reason
	Resource string
}

func approve() Decision {
	return Decision{Approved: true}
}

func reject(reason Reason, resource string) Decision {
	return Decision{Reason: reason, Resource: resource}
}
