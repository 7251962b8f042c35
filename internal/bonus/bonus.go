// Package bonus manages promotional campaigns and bonus grants.
package bonus

import (
	"context"
	"errors"
	"time"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/idgen"
)

// Errors
var (
	ErrNotFound      = errors.New("bonus: campaign not found")
	ErrStateMismatch = errors.New("bonus: invalid campaign state change")
	ErrInvalidType   = errors.New("bonus: unknown campaign type")
)

// Campaign types.
const (
	TypeDepositMatch = "deposit_match"
	TypeFreeSpins    = "free_spins"
	TypeCashback     = "cashback"
)

// Campaign statuses.
const (
	StatusDraft  = "draft"
	StatusActive = "active"
	StatusPaused = "paused"
	StatusEnded  = "ended"
)

// statusTransitions is the allowed campaign lifecycle.
var statusTransitions = map[string]map[string]bool{
	StatusDraft:  {StatusActive: true, StatusEnded: true},
	StatusActive: {StatusPaused: true, StatusEnded: true},
	StatusPaused: {StatusActive: true, StatusEnded: true},
	StatusEnded:  {},
}

func validType(t string) bool {
	switch t {
	case TypeDepositMatch, TypeFreeSpins, TypeCashback:
		return true
	}
	return false
}

// Campaign is one promotional campaign.
type Campaign struct {
	ID                 string     `json:"id"`
	TenantID           string     `json:"tenant_id,omitempty"`
	Name               string     `json:"name"`
	Type               string     `json:"type"`
	PercentBps         int        `json:"percent_bps,omitempty"` // deposit match / cashback rate
	AmountCents        int64      `json:"amount_cents,omitempty"`
	WageringMultiplier int        `json:"wagering_multiplier"`
	Status             string     `json:"status"`
	StartsAt           *time.Time `json:"starts_at,omitempty"`
	EndsAt             *time.Time `json:"ends_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Store persists campaigns.
type Store interface {
	Create(ctx context.Context, cp *Campaign) error
	Get(ctx context.Context, id string) (*Campaign, error)
	Update(ctx context.Context, cp *Campaign) error
	List(ctx context.Context, tenantID string) ([]*Campaign, error)
}

// Service implements campaign management.
type Service struct {
	store Store
}

// NewService creates a bonus service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// CreateParams carries new-campaign fields.
type CreateParams struct {
	TenantID           string
	Name               string
	Type               string
	PercentBps         int
	AmountCents        int64
	WageringMultiplier int
	StartsAt           *time.Time
	EndsAt             *time.Time
}

// Create registers a new campaign in draft.
func (s *Service) Create(ctx context.Context, p CreateParams) (*Campaign, error) {
	if !validType(p.Type) {
		return nil, ErrInvalidType
	}
	if p.WageringMultiplier <= 0 {
		p.WageringMultiplier = 1
	}

	now := time.Now().UTC()
	cp := &Campaign{
		ID:                 idgen.WithPrefix(idgen.PrefixBonus),
		TenantID:           p.TenantID,
		Name:               p.Name,
		Type:               p.Type,
		PercentBps:         p.PercentBps,
		AmountCents:        p.AmountCents,
		WageringMultiplier: p.WageringMultiplier,
		Status:             StatusDraft,
		StartsAt:           p.StartsAt,
		EndsAt:             p.EndsAt,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.Create(ctx, cp); err != nil {
		return nil, err
	}
	return cp, nil
}

// Get returns one campaign.
func (s *Service) Get(ctx context.Context, id string) (*Campaign, error) {
	return s.store.Get(ctx, id)
}

// List returns campaigns, optionally scoped to a tenant.
func (s *Service) List(ctx context.Context, tenantID string) ([]*Campaign, error) {
	return s.store.List(ctx, tenantID)
}

// SetStatus moves a campaign through its lifecycle.
func (s *Service) SetStatus(ctx context.Context, id, status string) (*Campaign, error) {
	cp, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !statusTransitions[cp.Status][status] {
		return nil, ErrStateMismatch
	}
	cp.Status = status
	cp.UpdatedAt = time.Now().UTC()
	if err := s.store.Update(ctx, cp); err != nil {
		return nil, err
	}
	return cp, nil
}
