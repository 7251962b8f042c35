package flags

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory flags store for demo/development.
type MemoryStore struct {
	mu          sync.Mutex
	flags       map[string]*Flag
	experiments map[string]*Experiment
	kill        map[string]bool
}

// NewMemoryStore creates a new in-memory flags store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		flags:       make(map[string]*Flag),
		experiments: make(map[string]*Experiment),
		kill:        make(map[string]bool),
	}
}

func (s *MemoryStore) UpsertFlag(_ context.Context, f *Flag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *f
	cp.Overrides = make(map[string]bool, len(f.Overrides))
	for k, v := range f.Overrides {
		cp.Overrides[k] = v
	}
	s.flags[f.Key] = &cp
	return nil
}

func (s *MemoryStore) GetFlag(_ context.Context, key string) (*Flag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flags[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (s *MemoryStore) ListFlags(_ context.Context) ([]*Flag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Flag, 0, len(s.flags))
	for _, f := range s.flags {
		cp := *f
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *MemoryStore) UpsertExperiment(_ context.Context, e *Experiment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.experiments[e.Key] = &cp
	return nil
}

func (s *MemoryStore) ListExperiments(_ context.Context) ([]*Experiment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Experiment, 0, len(s.experiments))
	for _, e := range s.experiments {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *MemoryStore) SetKillSwitch(_ context.Context, module string, disabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kill[module] = disabled
	return nil
}

func (s *MemoryStore) ListKillSwitches(_ context.Context) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(s.kill))
	for m, v := range s.kill {
		out[m] = v
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
