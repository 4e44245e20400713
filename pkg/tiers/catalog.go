package tiers

import (
	"errors"
	"sort"
)

// ErrTierNotFound is returned when a tier id is not in the catalog.
var ErrTierNotFound = errors.New("tier not found")

const (
	// CommunityTierID is the free tier every team can always fall back to.
	// No tier below it exists.
	CommunityTierID int64 = 1
	// TrialTierID is the tier new teams trial on signup.
	TrialTierID int64 = 2
)

// Catalog is a read-only tier lookup. Entries are immutable once the
// catalog is built.
type Catalog struct {
	byID    map[int64]*Tier
	ordered []*Tier
}

// NewCatalog builds a catalog from the given tiers, ordered by id
// (ascending capability).
func NewCatalog(entries []*Tier) *Catalog {
	c := &Catalog{byID: make(map[int64]*Tier, len(entries))}
	for _, t := range entries {
		c.byID[t.ID] = t
	}
	c.ordered = make([]*Tier, 0, len(entries))
	for _, t := range c.byID {
		c.ordered = append(c.ordered, t)
	}
	sort.Slice(c.ordered, func(i, j int) bool { return c.ordered[i].ID < c.ordered[j].ID })
	return c
}

// Get returns the tier with the given id.
func (c *Catalog) Get(id int64) (*Tier, error) {
	t, ok := c.byID[id]
	if !ok {
		return nil, ErrTierNotFound
	}
	return t, nil
}

// All returns all tiers ordered by ascending capability.
func (c *Catalog) All() []*Tier {
	out := make([]*Tier, len(c.ordered))
	copy(out, c.ordered)
	return out
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

// DefaultCatalog returns the production tier table.
func DefaultCatalog() *Catalog {
	return NewCatalog([]*Tier{
		{
			ID:                 CommunityTierID,
			Name:               "COMMUNITY",
			UsersLimit:         intPtr(1),
			ProjectsLimit:      intPtr(1),
			CollaboratorsLimit: intPtr(2),
			StorageIncludedMB:  1000,
			PriceCents:         0,
		},
		{
			ID:                  TrialTierID,
			Name:                "TEAM",
			UsersLimit:          intPtr(10),
			ProjectsLimit:       intPtr(20),
			CollaboratorsLimit:  intPtr(30),
			StorageIncludedMB:   10000,
			PriceCents:          4900,
			AddOnUserPriceCents: int64Ptr(900),
		},
		{
			ID:                  3,
			Name:                "LAB",
			UsersLimit:          nil,
			ProjectsLimit:       nil,
			CollaboratorsLimit:  nil,
			StorageIncludedMB:   100000,
			PriceCents:          49900,
			AddOnUserPriceCents: int64Ptr(700),
		},
	})
}
