// Package tenant manages platform tenants (owner casino and rented
// skins), their feature configuration, and the payments policy the
// wallet enforces.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/apierr"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/idgen"
)

// Errors
var (
	ErrNotFound  = errors.New("tenant: not found")
	ErrSlugTaken = errors.New("tenant: slug already in use")
)

// Tenant types.
const (
	TypeOwner  = "owner"
	TypeRenter = "renter"
)

// PaymentsPolicy bounds deposits and withdrawals for a tenant. Zero
// max means unbounded.
type PaymentsPolicy struct {
	MinDepositCents         int64  `json:"min_deposit_cents"`
	MaxDepositCents         int64  `json:"max_deposit_cents"`
	MinWithdrawalCents      int64  `json:"min_withdrawal_cents"`
	MaxWithdrawalCents      int64  `json:"max_withdrawal_cents"`
	DailyWithdrawalCapCents int64  `json:"daily_withdrawal_cap_cents"`
	Currency                string `json:"currency"`
}

// DefaultPolicy is applied when a tenant has no explicit policy and
// for players not bound to a tenant.
var DefaultPolicy = PaymentsPolicy{
	MinDepositCents:    100,     // 1.00
	MaxDepositCents:    5000000, // 50,000.00
	MinWithdrawalCents: 100,
	MaxWithdrawalCents: 5000000,
	Currency:           "USD",
}

// Tenant is one casino brand on the platform.
type Tenant struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Type      string          `json:"type"` // owner | renter
	Status    string          `json:"status"`
	Features  map[string]bool `json:"features"`
	MenuFlags map[string]bool `json:"menu_flags"`
	Payments  PaymentsPolicy  `json:"payments"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store persists tenants.
type Store interface {
	Create(ctx context.Context, t *Tenant) error
	Get(ctx context.Context, id string) (*Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
	Update(ctx context.Context, t *Tenant) error
	List(ctx context.Context) ([]*Tenant, error)
}

// Service implements tenant management and payments-policy checks.
type Service struct {
	store Store

	mu       sync.RWMutex
	defaults PaymentsPolicy
}

// NewService creates a tenant service seeded with the platform default
// policy.
func NewService(store Store) *Service {
	return &Service{store: store, defaults: DefaultPolicy}
}

// Defaults returns the platform-wide payments policy applied to
// players outside any tenant and seeded into new tenants.
func (s *Service) Defaults() PaymentsPolicy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaults
}

// SetDefaults replaces the platform-wide payments policy.
func (s *Service) SetDefaults(p PaymentsPolicy) {
	s.mu.Lock()
	s.defaults = p
	s.mu.Unlock()
}

// Create registers a new tenant.
func (s *Service) Create(ctx context.Context, name, slug, typ string) (*Tenant, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if name == "" || slug == "" {
		return nil, fmt.Errorf("tenant: name and slug are required")
	}
	if typ != TypeOwner && typ != TypeRenter {
		typ = TypeRenter
	}
	if _, err := s.store.GetBySlug(ctx, slug); err == nil {
		return nil, ErrSlugTaken
	}

	now := time.Now().UTC()
	t := &Tenant{
		ID:     idgen.WithPrefix(idgen.PrefixTenant),
		Name:   name,
		Slug:   slug,
		Type:   typ,
		Status: "active",
		Features: map[string]bool{
			"bonus": true, "crm": true, "affiliates": true, "kyc": true,
		},
		MenuFlags: map[string]bool{},
		Payments:  s.Defaults(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Get returns one tenant.
func (s *Service) Get(ctx context.Context, id string) (*Tenant, error) {
	return s.store.Get(ctx, id)
}

// List returns all tenants.
func (s *Service) List(ctx context.Context) ([]*Tenant, error) {
	return s.store.List(ctx)
}

// Update applies mutable tenant fields.
func (s *Service) Update(ctx context.Context, id string, apply func(*Tenant)) (*Tenant, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	apply(t)
	t.UpdatedAt = time.Now().UTC()
	if err := s.store.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Policy returns the payments policy for a tenant, falling back to the
// platform default for unknown or empty tenant IDs.
func (s *Service) Policy(ctx context.Context, tenantID string) PaymentsPolicy {
	if tenantID == "" {
		return s.Defaults()
	}
	t, err := s.store.Get(ctx, tenantID)
	if err != nil {
		return s.Defaults()
	}
	return t.Payments
}

// CheckDeposit validates a deposit amount against the tenant policy.
// Implements the wallet handler's PolicyChecker.
func (s *Service) CheckDeposit(ctx context.Context, tenantID string, amountCents int64) error {
	p := s.Policy(ctx, tenantID)
	return checkBounds(amountCents, p.MinDepositCents, p.MaxDepositCents, "deposit")
}

// CheckWithdrawal validates a withdrawal amount against the tenant
// policy. withdrawnTodayCents is the player's total held for
// withdrawals since midnight; the daily cap counts it plus the
// requested amount.
func (s *Service) CheckWithdrawal(ctx context.Context, tenantID string, amountCents, withdrawnTodayCents int64) error {
	p := s.Policy(ctx, tenantID)
	if err := checkBounds(amountCents, p.MinWithdrawalCents, p.MaxWithdrawalCents, "withdrawal"); err != nil {
		return err
	}
	if p.DailyWithdrawalCapCents > 0 && withdrawnTodayCents+amountCents > p.DailyWithdrawalCapCents {
		return apierr.New(apierr.CodeLimitViolation,
			fmt.Sprintf("daily withdrawal cap of %d cents exceeded", p.DailyWithdrawalCapCents))
	}
	return nil
}

func checkBounds(amount, min, max int64, kind string) error {
	if min > 0 && amount < min {
		return apierr.New(apierr.CodeLimitViolation,
			fmt.Sprintf("%s amount is below the minimum of %d cents", kind, min))
	}
	if max > 0 && amount > max {
		return apierr.New(apierr.CodeLimitViolation,
			fmt.Sprintf("%s amount exceeds the maximum of %d cents", kind, max))
	}
	return nil
}
