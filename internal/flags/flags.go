// Package flags provides feature flags, experiments, and the module
// kill switch.
package flags

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned for unknown flag or experiment keys.
var ErrNotFound = errors.New("flags: not found")

// Flag is one feature flag with optional per-tenant overrides.
type Flag struct {
	Key         string          `json:"key"`
	Enabled     bool            `json:"enabled"`
	Description string          `json:"description,omitempty"`
	Overrides   map[string]bool `json:"overrides,omitempty"` // tenant ID → enabled
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Experiment is an A/B experiment definition.
type Experiment struct {
	Key       string         `json:"key"`
	Variants  []string       `json:"variants"`
	Split     map[string]int `json:"split"`  // variant → percent
	Status    string         `json:"status"` // draft | running | stopped
	UpdatedAt time.Time      `json:"updated_at"`
}

// Store persists flags, experiments, and kill-switch state.
type Store interface {
	UpsertFlag(ctx context.Context, f *Flag) error
	GetFlag(ctx context.Context, key string) (*Flag, error)
	ListFlags(ctx context.Context) ([]*Flag, error)

	UpsertExperiment(ctx context.Context, e *Experiment) error
	ListExperiments(ctx context.Context) ([]*Experiment, error)

	SetKillSwitch(ctx context.Context, module string, disabled bool) error
	ListKillSwitches(ctx context.Context) (map[string]bool, error)
}

// Service implements flag evaluation and management. Kill-switch state
// is cached in memory so per-request middleware checks never touch the
// store on the hot path.
type Service struct {
	store Store
	kill  *killCache
}

// NewService creates a flags service. The kill-switch cache is warmed
// from the store.
func NewService(ctx context.Context, store Store) (*Service, error) {
	s := &Service{store: store, kill: newKillCache()}
	switches, err := store.ListKillSwitches(ctx)
	if err != nil {
		return nil, err
	}
	s.kill.replace(switches)
	return s, nil
}

// SetFlag creates or updates a flag.
func (s *Service) SetFlag(ctx context.Context, key string, enabled bool, description string, overrides map[string]bool) (*Flag, error) {
	f := &Flag{
		Key:         key,
		Enabled:     enabled,
		Description: description,
		Overrides:   overrides,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := s.store.UpsertFlag(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// ListFlags returns all flags.
func (s *Service) ListFlags(ctx context.Context) ([]*Flag, error) {
	return s.store.ListFlags(ctx)
}

// IsEnabled evaluates a flag for a tenant. Tenant overrides win over
// the global setting; unknown flags are disabled.
func (s *Service) IsEnabled(ctx context.Context, key, tenantID string) bool {
	f, err := s.store.GetFlag(ctx, key)
	if err != nil {
		return false
	}
	if tenantID != "" {
		if v, ok := f.Overrides[tenantID]; ok {
			return v
		}
	}
	return f.Enabled
}

// SetExperiment creates or updates an experiment.
func (s *Service) SetExperiment(ctx context.Context, e *Experiment) error {
	e.UpdatedAt = time.Now().UTC()
	if e.Status == "" {
		e.Status = "draft"
	}
	return s.store.UpsertExperiment(ctx, e)
}

// ListExperiments returns all experiments.
func (s *Service) ListExperiments(ctx context.Context) ([]*Experiment, error) {
	return s.store.ListExperiments(ctx)
}

// SetKillSwitch flips the kill switch for a module and updates the
// cache used by the middleware.
func (s *Service) SetKillSwitch(ctx context.Context, module string, disabled bool) error {
	if err := s.store.SetKillSwitch(ctx, module, disabled); err != nil {
		return err
	}
	s.kill.set(module, disabled)
	return nil
}

// ListKillSwitches returns the kill-switch state per module.
func (s *Service) ListKillSwitches(ctx context.Context) (map[string]bool, error) {
	return s.store.ListKillSwitches(ctx)
}

// ModuleDisabled reports whether a module is killed, from cache.
func (s *Service) ModuleDisabled(module string) bool {
	return s.kill.get(module)
}
