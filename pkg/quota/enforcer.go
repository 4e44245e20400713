package quota

import (
	"fmt"

	"github.com/vaultgate/vaultgate/pkg/entitlement"
	"github.com/vaultgate/vaultgate/pkg/tiers"
	"github.com/vaultgate/vaultgate/pkg/usage"
)

// Enforcer judges actions against the tier catalog
type Enforcer struct {
	catalog *tiers.Catalog
}

// NewEnforcer creates an enforcer over the given catalog
func NewEnforcer(catalog *tiers.Catalog) *Enforcer {
	return &Enforcer{catalog: catalog}
}

// Admit decides whether the action fits the team's entitlement given the
// usage snapshot. hasPaymentMethod is only consulted for actions that
// require a chargeable customer. A nil tier limit means unlimited.
func (e *Enforcer) Admit(ent *entitlement.Entitlement, counts usage.Counts, action Action, hasPaymentMethod bool) (Decision, error) {
	tier, err := e.catalog.Get(ent.TierID)
	if err != nil {
		return Decision{}, fmt.Errorf("entitlement references unknown tier %d: %w", ent.TierID, err)
	}

	switch a := action.(type) {
	case InviteUser:
		allowance, limited := tier.UsersAllowance(ent.ExtraUsers)
		if limited && counts.CommittedAndPendingUsers()+1 > allowance {
			return reject(ReasonLimitReached, "users"), nil
		}
		return approve(), nil

	case InviteCollaborator:
		if tier.CollaboratorsLimit != nil && counts.CommittedAndPendingCollaborators()+1 > *tier.CollaboratorsLimit {
			return reject(ReasonLimitReached, "collaborators"), nil
		}
		return approve(), nil

	case CreateProject:
		if tier.ProjectsLimit != nil && counts.Projects+1 > *tier.ProjectsLimit {
			return reject(ReasonLimitReached, "projects"), nil
		}
		return approve(), nil

	case SwitchTier:
		target, err := e.catalog.Get(a.TargetTierID)
		if err != nil {
			return Decision{}, fmt.Errorf("unknown target tier %d: %w", a.TargetTierID, err)
		}
		if !target.Free() && !hasPaymentMethod {
			return reject(ReasonNoPaymentMethod, "payment_method"), nil
		}
		// Add-on seats do not carry across tiers: the switch is judged
		// against the target's base allowance. Current usage must fit every
		// target limit; a downgrade rejects rather than truncates.
		allowance, limited := target.UsersAllowance(0)
		if limited && counts.CommittedAndPendingUsers() > allowance {
			return reject(ReasonTooManyUsers, "users"), nil
		}
		if target.ProjectsLimit != nil && counts.Projects > *target.ProjectsLimit {
			return reject(ReasonTooManyUsers, "projects"), nil
		}
		if target.CollaboratorsLimit != nil && counts.CommittedAndPendingCollaborators() > *target.CollaboratorsLimit {
			return reject(ReasonTooManyUsers, "collaborators"), nil
		}
		return approve(), nil

	case PurchaseAddOn:
		if !hasPaymentMethod {
			return reject(ReasonNoPaymentMethod, "payment_method"), nil
		}
		return approve(), nil

	default:
		return Decision{}, fmt.Errorf("unknown action %T", action)
	}
}
