package affiliate

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory affiliate store for demo/development.
type MemoryStore struct {
	mu         sync.Mutex
	affiliates map[string]*Affiliate
	affOrder   []string
	links      map[string]*Link // keyed by code
	linkOrder  []string
	payouts    map[string]*Payout
	payOrder   []string
}

// NewMemoryStore creates a new in-memory affiliate store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		affiliates: make(map[string]*Affiliate),
		links:      make(map[string]*Link),
		payouts:    make(map[string]*Payout),
	}
}

func (s *MemoryStore) Create(_ context.Context, a *Affiliate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.affiliates[a.ID] = &cp
	s.affOrder = append(s.affOrder, a.ID)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Affiliate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.affiliates[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) Update(_ context.Context, a *Affiliate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.affiliates[a.ID]; !ok {
		return ErrNotFound
	}
	cp := *a
	s.affiliates[a.ID] = &cp
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]*Affiliate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Affiliate, 0, len(s.affOrder))
	for _, id := range s.affOrder {
		cp := *s.affiliates[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) CreateLink(_ context.Context, l *Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[l.Code]; ok {
		return ErrCodeTaken
	}
	cp := *l
	s.links[l.Code] = &cp
	s.linkOrder = append(s.linkOrder, l.Code)
	return nil
}

func (s *MemoryStore) GetLinkByCode(_ context.Context, code string) (*Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[code]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *MemoryStore) ListLinks(_ context.Context, affiliateID string) ([]*Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Link
	for _, code := range s.linkOrder {
		if l := s.links[code]; affiliateID == "" || l.AffiliateID == affiliateID {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) IncrementClick(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[code]
	if !ok {
		return ErrNotFound
	}
	l.Clicks++
	return nil
}

func (s *MemoryStore) IncrementSignup(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[code]
	if !ok {
		return ErrNotFound
	}
	l.Signups++
	return nil
}

func (s *MemoryStore) CreatePayout(_ context.Context, p *Payout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.payouts[p.ID] = &cp
	s.payOrder = append(s.payOrder, p.ID)
	return nil
}

func (s *MemoryStore) GetPayout(_ context.Context, id string) (*Payout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payouts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) UpdatePayout(_ context.Context, p *Payout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payouts[p.ID]; !ok {
		return ErrNotFound
	}
	cp := *p
	s.payouts[p.ID] = &cp
	return nil
}

func (s *MemoryStore) ListPayouts(_ context.Context, affiliateID string) ([]*Payout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Payout
	for i := len(s.payOrder) - 1; i >= 0; i-- {
		if p := s.payouts[s.payOrder[i]]; affiliateID == "" || p.AffiliateID == affiliateID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
