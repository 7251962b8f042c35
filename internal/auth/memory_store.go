package auth

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory admin store for demo/development.
type MemoryStore struct {
	mu     sync.RWMutex
	admins map[string]*AdminUser // by ID
	emails map[string]string    // email → ID
}

// NewMemoryStore creates a new in-memory admin store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		admins: make(map[string]*AdminUser),
		emails: make(map[string]string),
	}
}

func (s *MemoryStore) Create(_ context.Context, a *AdminUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(a.Email)
	if _, exists := s.emails[email]; exists {
		return ErrEmailTaken
	}
	cp := *a
	s.admins[a.ID] = &cp
	s.emails[email] = a.ID
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*AdminUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.admins[id]
	if !ok {
		return nil, ErrAdminNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) GetByEmail(_ context.Context, email string) (*AdminUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[strings.ToLower(email)]
	if !ok {
		return nil, ErrAdminNotFound
	}
	cp := *s.admins[id]
	return &cp, nil
}

func (s *MemoryStore) Update(_ context.Context, a *AdminUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.admins[a.ID]; !ok {
		return ErrAdminNotFound
	}
	cp := *a
	s.admins[a.ID] = &cp
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]*AdminUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*AdminUser, 0, len(s.admins))
	for _, a := range s.admins {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
