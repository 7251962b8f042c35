package crm

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory CRM store for demo/development.
type MemoryStore struct {
	mu            sync.Mutex
	campaigns     map[string]*Campaign
	campaignOrder []string
	segments      map[string]*Segment
	segmentOrder  []string
	templates     map[string]*Template
	templateOrder []string
}

// NewMemoryStore creates a new in-memory CRM store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		campaigns: make(map[string]*Campaign),
		segments:  make(map[string]*Segment),
		templates: make(map[string]*Template),
	}
}

func (s *MemoryStore) CreateCampaign(_ context.Context, cp *Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *cp
	s.campaigns[cp.ID] = &c
	s.campaignOrder = append(s.campaignOrder, cp.ID)
	return nil
}

func (s *MemoryStore) GetCampaign(_ context.Context, id string) (*Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, ok := s.campaigns[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *cp
	return &c, nil
}

func (s *MemoryStore) UpdateCampaign(_ context.Context, cp *Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.campaigns[cp.ID]; !ok {
		return ErrNotFound
	}
	c := *cp
	s.campaigns[cp.ID] = &c
	return nil
}

func (s *MemoryStore) ListCampaigns(_ context.Context) ([]*Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Campaign, 0, len(s.campaignOrder))
	for i := len(s.campaignOrder) - 1; i >= 0; i-- {
		c := *s.campaigns[s.campaignOrder[i]]
		out = append(out, &c)
	}
	return out, nil
}

func (s *MemoryStore) CreateSegment(_ context.Context, sg *Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *sg
	s.segments[sg.ID] = &c
	s.segmentOrder = append(s.segmentOrder, sg.ID)
	return nil
}

func (s *MemoryStore) GetSegment(_ context.Context, id string) (*Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sg, ok := s.segments[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *sg
	return &c, nil
}

func (s *MemoryStore) ListSegments(_ context.Context) ([]*Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Segment, 0, len(s.segmentOrder))
	for _, id := range s.segmentOrder {
		c := *s.segments[id]
		out = append(out, &c)
	}
	return out, nil
}

func (s *MemoryStore) CreateTemplate(_ context.Context, t *Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *t
	s.templates[t.ID] = &c
	s.templateOrder = append(s.templateOrder, t.ID)
	return nil
}

func (s *MemoryStore) GetTemplate(_ context.Context, id string) (*Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *t
	return &c, nil
}

func (s *MemoryStore) ListTemplates(_ context.Context) ([]*Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Template, 0, len(s.templateOrder))
	for _, id := range s.templateOrder {
		c := *s.templates[id]
		out = append(out, &c)
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
