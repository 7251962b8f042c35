package kyc

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory KYC store for demo/development.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]*Document
	// creation order, oldest first, so the review queue is FIFO
	order []string
}

// NewMemoryStore creates a new in-memory KYC store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*Document)}
}

func (s *MemoryStore) Create(_ context.Context, d *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.docs[d.ID] = &cp
	s.order = append(s.order, d.ID)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *MemoryStore) Update(_ context.Context, d *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[d.ID]; !ok {
		return ErrNotFound
	}
	cp := *d
	s.docs[d.ID] = &cp
	return nil
}

func (s *MemoryStore) List(_ context.Context, f Filter) ([]*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	var out []*Document
	for _, id := range s.order {
		d := s.docs[id]
		if f.PlayerID != "" && d.PlayerID != f.PlayerID {
			continue
		}
		if f.Status != "" && d.Status != f.Status {
			continue
		}
		if f.Before != nil && !d.CreatedAt.Before(*f.Before) {
			continue
		}
		cp := *d
		out = append(out, &cp)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) ListByPlayer(_ context.Context, playerID string) ([]*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Document
	for _, id := range s.order {
		if d := s.docs[id]; d.PlayerID == playerID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) CountByStatus(_ context.Context) (map[string]int, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int)
	var total time.Duration
	var reviewed int
	for _, d := range s.docs {
		counts[d.Status]++
		if d.ReviewedAt != nil {
			total += d.ReviewedAt.Sub(d.CreatedAt)
			reviewed++
		}
	}
	var avg time.Duration
	if reviewed > 0 {
		avg = total / time.Duration(reviewed)
	}
	return counts, avg, nil
}

var _ Store = (*MemoryStore)(nil)
