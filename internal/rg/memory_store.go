package rg

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory RG store for demo/development.
type MemoryStore struct {
	mu         sync.Mutex
	limits     map[string]*Limits
	exclusions map[string]*Exclusion
}

// NewMemoryStore creates a new in-memory RG store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		limits:     make(map[string]*Limits),
		exclusions: make(map[string]*Exclusion),
	}
}

func (s *MemoryStore) GetLimits(_ context.Context, playerID string) (*Limits, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limits[playerID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *MemoryStore) PutLimits(_ context.Context, l *Limits) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *l
	s.limits[l.PlayerID] = &cp
	return nil
}

func (s *MemoryStore) GetExclusion(_ context.Context, playerID string) (*Exclusion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.exclusions[playerID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *MemoryStore) PutExclusion(_ context.Context, e *Exclusion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.exclusions[e.PlayerID] = &cp
	return nil
}

var _ Store = (*MemoryStore)(nil)
