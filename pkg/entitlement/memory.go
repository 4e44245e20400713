package entitlement

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used in tests
type MemoryStore struct {
	mu   sync.Mutex
	ents map[int64]*Entitlement
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ents: make(map[int64]*Entitlement)}
}

func (s *MemoryStore) Create(ctx context.Context, ent *Entitlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	ent.CreatedAt = now
	ent.UpdatedAt = now
	copied := *ent
	s.ents[ent.TeamID] = &copied
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, teamID int64) (*Entitlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ent, ok := s.ents[teamID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *ent
	return &copied, nil
}

func (s *MemoryStore) Update(ctx context.Context, ent *Entitlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ents[ent.TeamID]; !ok {
		return ErrNotFound
	}
	ent.UpdatedAt = time.Now()
	copied := *ent
	s.ents[ent.TeamID] = &copied
	return nil
}

func (s *MemoryStore) ListExpiredTrials(ctx context.Context, before time.Time) ([]*Entitlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []*Entitlement
	for _, ent := range s.ents {
		if ent.Status == StatusTrialing && ent.TrialEnd != nil && ent.TrialEnd.Before(before) {
			copied := *ent
			expired = append(expired, &copied)
		}
	}
	return expired, nil
}
