// Package affiliate manages affiliate partners, their tracking links,
// and commission payouts.
package affiliate

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/idgen"
)

// Errors
var (
	ErrNotFound      = errors.New("affiliate: not found")
	ErrCodeTaken     = errors.New("affiliate: link code already in use")
	ErrStateMismatch = errors.New("affiliate: payout already paid")
)

// Affiliate is one partner.
type Affiliate struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Status        string    `json:"status"` // active | suspended
	CommissionBps int       `json:"commission_bps"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Link is a tracking link with its counters.
type Link struct {
	ID          string    `json:"id"`
	AffiliateID string    `json:"affiliate_id"`
	Code        string    `json:"code"`
	Clicks      int64     `json:"clicks"`
	Signups     int64     `json:"signups"`
	CreatedAt   time.Time `json:"created_at"`
}

// Payout is one commission payout for a period.
type Payout struct {
	ID          string     `json:"id"`
	AffiliateID string     `json:"affiliate_id"`
	AmountCents int64      `json:"amount_cents"`
	Period      string     `json:"period"` // e.g. "2026-08"
	Status      string     `json:"status"` // pending | paid
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Store persists affiliates, links, and payouts. IncrementClick and
// IncrementSignup must be atomic per code.
type Store interface {
	Create(ctx context.Context, a *Affiliate) error
	Get(ctx context.Context, id string) (*Affiliate, error)
	Update(ctx context.Context, a *Affiliate) error
	List(ctx context.Context) ([]*Affiliate, error)

	CreateLink(ctx context.Context, l *Link) error
	GetLinkByCode(ctx context.Context, code string) (*Link, error)
	ListLinks(ctx context.Context, affiliateID string) ([]*Link, error)
	IncrementClick(ctx context.Context, code string) error
	IncrementSignup(ctx context.Context, code string) error

	CreatePayout(ctx context.Context, p *Payout) error
	GetPayout(ctx context.Context, id string) (*Payout, error)
	UpdatePayout(ctx context.Context, p *Payout) error
	ListPayouts(ctx context.Context, affiliateID string) ([]*Payout, error)
}

// Service implements affiliate management.
type Service struct {
	store Store
}

// NewService creates an affiliate service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create registers an affiliate.
func (s *Service) Create(ctx context.Context, name, email string, commissionBps int) (*Affiliate, error) {
	now := time.Now().UTC()
	a := &Affiliate{
		ID:            idgen.WithPrefix(idgen.PrefixAffiliate),
		Name:          name,
		Email:         strings.ToLower(strings.TrimSpace(email)),
		Status:        "active",
		CommissionBps: commissionBps,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Get returns one affiliate.
func (s *Service) Get(ctx context.Context, id string) (*Affiliate, error) {
	return s.store.Get(ctx, id)
}

// List returns all affiliates.
func (s *Service) List(ctx context.Context) ([]*Affiliate, error) {
	return s.store.List(ctx)
}

// CreateLink registers a tracking link for an affiliate.
func (s *Service) CreateLink(ctx context.Context, affiliateID, code string) (*Link, error) {
	if _, err := s.store.Get(ctx, affiliateID); err != nil {
		return nil, err
	}
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		code = idgen.Hex(4)
	}
	if _, err := s.store.GetLinkByCode(ctx, code); err == nil {
		return nil, ErrCodeTaken
	}

	l := &Link{
		ID:          idgen.New(),
		AffiliateID: affiliateID,
		Code:        code,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateLink(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// ListLinks returns an affiliate's links.
func (s *Service) ListLinks(ctx context.Context, affiliateID string) ([]*Link, error) {
	return s.store.ListLinks(ctx, affiliateID)
}

// RecordClick bumps the click counter for a code.
func (s *Service) RecordClick(ctx context.Context, code string) error {
	return s.store.IncrementClick(ctx, strings.ToLower(code))
}

// RecordSignup bumps the signup counter for a code.
func (s *Service) RecordSignup(ctx context.Context, code string) error {
	return s.store.IncrementSignup(ctx, strings.ToLower(code))
}

// CreatePayout records a pending commission payout.
func (s *Service) CreatePayout(ctx context.Context, affiliateID string, amountCents int64, period string) (*Payout, error) {
	if _, err := s.store.Get(ctx, affiliateID); err != nil {
		return nil, err
	}
	p := &Payout{
		ID:          idgen.New(),
		AffiliateID: affiliateID,
		AmountCents: amountCents,
		Period:      period,
		Status:      "pending",
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreatePayout(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// MarkPayoutPaid settles a pending payout. Settling a paid payout is a
// state mismatch.
func (s *Service) MarkPayoutPaid(ctx context.Context, id string) (*Payout, error) {
	p, err := s.store.GetPayout(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status == "paid" {
		return nil, ErrStateMismatch
	}
	now := time.Now().UTC()
	p.Status = "paid"
	p.PaidAt = &now
	if err := s.store.UpdatePayout(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListPayouts returns payouts, optionally scoped to an affiliate.
func (s *Service) ListPayouts(ctx context.Context, affiliateID string) ([]*Payout, error) {
	return s.store.ListPayouts(ctx, affiliateID)
}
