package finance

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory finance store for demo/development.
type MemoryStore struct {
	mu          sync.Mutex
	withdrawals map[string]*Withdrawal
	order       []string // creation order
	idem        map[string]*IdempotencyRecord
	seenEvents  map[string]bool
}

// NewMemoryStore creates a new in-memory finance store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		withdrawals: make(map[string]*Withdrawal),
		idem:        make(map[string]*IdempotencyRecord),
		seenEvents:  make(map[string]bool),
	}
}

func (s *MemoryStore) Create(_ context.Context, w *Withdrawal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *w
	s.withdrawals[w.ID] = &cp
	s.order = append(s.order, w.ID)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.withdrawals[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (s *MemoryStore) Update(_ context.Context, w *Withdrawal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.withdrawals[w.ID]; !ok {
		return ErrNotFound
	}
	cp := *w
	s.withdrawals[w.ID] = &cp
	return nil
}

func (s *MemoryStore) List(_ context.Context, f Filter) ([]*Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	var out []*Withdrawal
	for i := len(s.order) - 1; i >= 0; i-- {
		w := s.withdrawals[s.order[i]]
		if f.State != "" && w.State != f.State {
			continue
		}
		if f.PlayerID != "" && w.PlayerID != f.PlayerID {
			continue
		}
		if f.TenantID != "" && w.TenantID != f.TenantID {
			continue
		}
		if f.Before != nil && !w.CreatedAt.Before(*f.Before) {
			continue
		}
		cp := *w
		out = append(out, &cp)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) GetIdempotency(_ context.Context, key string) (*IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.idem[key]
	if !ok {
		return nil, ErrIdempotencyNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) PutIdempotency(_ context.Context, rec *IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.idem[rec.Key] = &cp
	return nil
}

func (s *MemoryStore) MarkProviderEvent(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seenEvents[eventID] {
		return false, nil
	}
	s.seenEvents[eventID] = true
	return true, nil
}

func (s *MemoryStore) UnmarkProviderEvent(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seenEvents, eventID)
	return nil
}

var _ Store = (*MemoryStore)(nil)
