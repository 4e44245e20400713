package entitlement

import (
	"context"
	"time"
)

// Store is the persistence interface for entitlements
type Store interface {
	Create(ctx context.Context, ent *Entitlement) error
	Get(ctx context.Context, teamID int64) (*Entitlement, error)
	Update(ctx context.Context, ent *Entitlement) error

	// ListExpiredTrials returns trialing entitlements whose trial ended
	// before the given time. Used by the downgrade sweep.
	ListExpiredTrials(ctx context.Context, before time.Time) ([]*Entitlement, error)
}
