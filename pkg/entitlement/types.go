package entitlement

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a team has no entitlement record
var ErrNotFound = errors.New("entitlement not found")

// Status is the lifecycle state of a team's subscription
type Status string

const (
	// StatusTrialing means the team is inside its free trial window
	StatusTrialing Status = "trialing"
	// StatusActive means the team holds a paid subscription
	StatusActive Status = "active"
	// StatusCanceled means a paid subscription was explicitly canceled
	StatusCanceled Status = "canceled"
)

// Entitlement records the tier a team is entitled to and the state of the
// subscription backing it. ExtraUsers is the add-on seat count purchased on
// top of the tier's base allowance.
type Entitlement struct {
	TeamID             int64
	TierID             int64
	Status             Status
	CustomerID         string
	TrialEnd           *time.Time
	CurrentPeriodStart time.Time
	RenewalDate        *time.Time
	CancelDate         *time.Time
	ExtraUsers         int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Trialing reports whether the subscription is in its trial window
func (e *Entitlement) Trialing() bool {
	return e.Status == StatusTrialing
}

// Active reports whether the team holds a paid subscription
func (e *Entitlement) Active() bool {
	return e.Status == StatusActive
}

// TrialExpired reports whether a trial has run past its end date
func (e *Entitlement) TrialExpired(now time.Time) bool {
	return e.Status == StatusTrialing && e.TrialEnd != nil && now.After(*e.TrialEnd)
}
