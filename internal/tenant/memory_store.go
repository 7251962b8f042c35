package tenant

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory tenant store for demo/development.
type MemoryStore struct {
	mu      sync.Mutex
	tenants map[string]*Tenant
	bySlug  map[string]string
	order   []string
}

// NewMemoryStore creates a new in-memory tenant store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants: make(map[string]*Tenant),
		bySlug:  make(map[string]string),
	}
}

func (s *MemoryStore) Create(_ context.Context, t *Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bySlug[t.Slug]; ok {
		return ErrSlugTaken
	}
	cp := clone(t)
	s.tenants[t.ID] = cp
	s.bySlug[t.Slug] = t.ID
	s.order = append(s.order, t.ID)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(t), nil
}

func (s *MemoryStore) GetBySlug(_ context.Context, slug string) (*Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.bySlug[slug]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s.tenants[id]), nil
}

func (s *MemoryStore) Update(_ context.Context, t *Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[t.ID]; !ok {
		return ErrNotFound
	}
	s.tenants[t.ID] = clone(t)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]*Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Tenant, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, clone(s.tenants[id]))
	}
	return out, nil
}

func clone(t *Tenant) *Tenant {
	cp := *t
	cp.Features = make(map[string]bool, len(t.Features))
	for k, v := range t.Features {
		cp.Features[k] = v
	}
	cp.MenuFlags = make(map[string]bool, len(t.MenuFlags))
	for k, v := range t.MenuFlags {
		cp.MenuFlags[k] = v
	}
	return &cp
}

var _ Store = (*MemoryStore)(nil)
