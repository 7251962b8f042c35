package game

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory catalogue store for demo/development.
type MemoryStore struct {
	mu    sync.Mutex
	games map[string]*Game
}

// NewMemoryStore creates a new in-memory catalogue store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{games: make(map[string]*Game)}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (s *MemoryStore) Put(_ context.Context, g *Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *g
	s.games[g.ID] = &cp
	return nil
}

func (s *MemoryStore) List(_ context.Context, f Filter) ([]*Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Game, 0, len(s.games))
	for _, g := range s.games {
		if f.Status != "" && g.Status != f.Status {
			continue
		}
		if f.Provider != "" && g.Provider != f.Provider {
			continue
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(g.Name), strings.ToLower(f.Query)) {
			continue
		}
		cp := *g
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
