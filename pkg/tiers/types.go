package tiers

// Tier represents a pricing tier catalog entry. Limit fields are nil for
// unlimited.
type Tier struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	UsersLimit         *int   `json:"users_limit"`
	ProjectsLimit      *int   `json:"projects_limit"`
	CollaboratorsLimit *int   `json:"collaborators_limit"`
	// StorageIncludedMB is the storage included in the flat price, in MB.
	// Storage over this amount is billed, never blocked.
	StorageIncludedMB int64 `json:"storage_included_limit"`
	// PriceCents is the flat monthly price. Zero means the tier is free and
	// requires no payment method.
	PriceCents int64 `json:"price_cents"`
	// AddOnUserPriceCents is the monthly price per additional user seat.
	// Nil means seat add-ons are not available on this tier.
	AddOnUserPriceCents *int64 `json:"addon_user_price_cents,omitempty"`
}

// Free reports whether the tier requires no payment method.
func (t *Tier) Free() bool {
	return t.PriceCents == 0
}

// UsersAllowance returns the user limit including purchased extra seats.
// The second return is false when the tier is unlimited.
func (t *Tier) UsersAllowance(extraUsers int) (int, bool) {
	if t.UsersLimit == nil {
		return 0, false
	}
	return *t.UsersLimit + extraUsers, true
}
