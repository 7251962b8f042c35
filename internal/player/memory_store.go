package player

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-memory player store for demo/development.
type MemoryStore struct {
	mu      sync.Mutex
	players map[string]*Player
	byEmail map[string]string
	order   []string // creation order
	notes   map[string][]*Note
}

// NewMemoryStore creates a new in-memory player store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		players: make(map[string]*Player),
		byEmail: make(map[string]string),
		notes:   make(map[string][]*Note),
	}
}

func (s *MemoryStore) Create(_ context.Context, p *Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[p.Email]; ok {
		return ErrEmailTaken
	}
	cp := *p
	s.players[p.ID] = &cp
	s.byEmail[p.Email] = p.ID
	s.order = append(s.order, p.ID)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) GetByEmail(_ context.Context, email string) (*Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.players[id]
	return &cp, nil
}

func (s *MemoryStore) Update(_ context.Context, p *Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[p.ID]; !ok {
		return ErrNotFound
	}
	cp := *p
	s.players[p.ID] = &cp
	return nil
}

func (s *MemoryStore) List(_ context.Context, f Filter) ([]*Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	q := strings.ToLower(f.Query)
	var out []*Player
	for i := len(s.order) - 1; i >= 0; i-- {
		p := s.players[s.order[i]]
		if f.TenantID != "" && p.TenantID != f.TenantID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.Country != "" && p.Country != f.Country {
			continue
		}
		if f.VIPMin > 0 && p.VIPLevel < f.VIPMin {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Email), q) && !strings.Contains(strings.ToLower(p.Username), q) {
			continue
		}
		if f.Before != nil && !p.CreatedAt.Before(*f.Before) {
			continue
		}
		cp := *p
		out = append(out, &cp)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) AddNote(_ context.Context, n *Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *n
	s.notes[n.PlayerID] = append([]*Note{&cp}, s.notes[n.PlayerID]...)
	return nil
}

func (s *MemoryStore) ListNotes(_ context.Context, playerID string) ([]*Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.notes[playerID]
	out := make([]*Note, 0, len(src))
	for _, n := range src {
		cp := *n
		out = append(out, &cp)
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
