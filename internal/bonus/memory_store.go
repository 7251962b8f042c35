package bonus

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory campaign store for demo/development.
type MemoryStore struct {
	mu        sync.Mutex
	campaigns map[string]*Campaign
	order     []string
}

// NewMemoryStore creates a new in-memory campaign store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{campaigns: make(map[string]*Campaign)}
}

func (s *MemoryStore) Create(_ context.Context, cp *Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *cp
	s.campaigns[cp.ID] = &c
	s.order = append(s.order, cp.ID)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, ok := s.campaigns[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *cp
	return &c, nil
}

func (s *MemoryStore) Update(_ context.Context, cp *Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.campaigns[cp.ID]; !ok {
		return ErrNotFound
	}
	c := *cp
	s.campaigns[cp.ID] = &c
	return nil
}

func (s *MemoryStore) List(_ context.Context, tenantID string) ([]*Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Campaign
	for i := len(s.order) - 1; i >= 0; i-- {
		cp := s.campaigns[s.order[i]]
		if tenantID != "" && cp.TenantID != tenantID {
			continue
		}
		c := *cp
		out = append(out, &c)
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
