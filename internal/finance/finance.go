// Package finance owns the withdrawal lifecycle.
//
// State machine:
//
//	requested → approved → paid
//	requested → rejected                (terminal)
//	approved  → payout_failed → paid    (retry)
//	paid                                (terminal)
//
// Transitions are validated against an explicit table before any side
// effect; an invalid transition returns ErrStateMismatch and surfaces
// as HTTP 409. Balance effects:
//
//	open     available → held
//	reject   held → available
//	payout   held shrinks, available untouched
//	failure  no balance change
//
// Payout and mark-paid are idempotent per Idempotency-Key: a replayed
// key returns the recorded outcome with zero side effects. Provider
// webhooks deduplicate on provider_event_id.
package finance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/idgen"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/logging"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/metrics"
)

// Errors
var (
	ErrNotFound      = errors.New("finance: withdrawal not found")
	ErrStateMismatch = errors.New("finance: invalid state transition")
	ErrInvalidAmount = errors.New("finance: amount must be positive")
)

// State is a withdrawal lifecycle state.
type State string

const (
	StateRequested    State = "requested"
	StateApproved     State = "approved"
	StateRejected     State = "rejected"
	StatePaid         State = "paid"
	StatePayoutFailed State = "payout_failed"
)

// transitions is the allowed-transition table.
var transitions = map[State]map[State]bool{
	StateRequested:    {StateApproved: true, StateRejected: true},
	StateApproved:     {StatePaid: true, StatePayoutFailed: true},
	StatePayoutFailed: {StatePaid: true, StatePayoutFailed: true},
	StateRejected:     {},
	StatePaid:         {},
}

// CanTransition reports whether from → to is allowed.
func CanTransition(from, to State) bool {
	return transitions[from][to]
}

// IsTerminal reports whether the state admits no further transitions.
func (s State) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Withdrawal is one payout request.
type Withdrawal struct {
	ID             string     `json:"id"`
	PlayerID       string     `json:"player_id"`
	TenantID       string     `json:"tenant_id,omitempty"`
	AmountCents    int64      `json:"amount_cents"`
	State          State      `json:"state"`
	Method         string     `json:"method,omitempty"`
	ReviewedBy     string     `json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
	Reason         string     `json:"reason,omitempty"`
	PayoutAttempts int        `json:"payout_attempts"`
	ProviderRef    string     `json:"provider_ref,omitempty"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Filter narrows withdrawal list queries.
type Filter struct {
	State    State
	PlayerID string
	TenantID string
	Limit    int
	Before   *time.Time
}

// IdempotencyRecord is the stored outcome of a keyed mutation.
type IdempotencyRecord struct {
	Key          string    `json:"key"`
	WithdrawalID string    `json:"withdrawal_id"`
	State        State     `json:"state"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store persists withdrawals, idempotency records, and seen provider
// events. MarkProviderEvent must be atomic: exactly one caller per
// event ID observes first == true.
type Store interface {
	Create(ctx context.Context, w *Withdrawal) error
	Get(ctx context.Context, id string) (*Withdrawal, error)
	Update(ctx context.Context, w *Withdrawal) error
	List(ctx context.Context, f Filter) ([]*Withdrawal, error)

	GetIdempotency(ctx context.Context, key string) (*IdempotencyRecord, error)
	PutIdempotency(ctx context.Context, rec *IdempotencyRecord) error

	MarkProviderEvent(ctx context.Context, eventID string) (first bool, err error)
	// UnmarkProviderEvent forgets a claimed event so a redelivery can
	// apply after a failed attempt.
	UnmarkProviderEvent(ctx context.Context, eventID string) error
}

// ErrIdempotencyNotFound is returned for unseen idempotency keys.
var ErrIdempotencyNotFound = errors.New("finance: idempotency key not seen")

// WalletService abstracts the hold operations so finance doesn't import
// wallet directly.
type WalletService interface {
	Hold(ctx context.Context, playerID string, amountCents int64, reference string) error
	ReleaseHold(ctx context.Context, playerID string, amountCents int64, reference string) error
	SettleHold(ctx context.Context, playerID string, amountCents int64, reference string) error
}

// PayoutProvider initiates payouts with the payment provider.
type PayoutProvider interface {
	InitiatePayout(ctx context.Context, withdrawalID, playerID string, amountCents int64) (providerRef string, err error)
}

// ErrProviderDeclined is returned by providers for a declined payout
// (a business failure, not a transport error).
var ErrProviderDeclined = errors.New("finance: provider declined payout")

// EventEmitter pushes withdrawal state changes to live dashboards.
type EventEmitter interface {
	WithdrawalChanged(w *Withdrawal)
}

// Service implements withdrawal business logic.
type Service struct {
	store    Store
	wallet   WalletService
	provider PayoutProvider
	emitter  EventEmitter
	locks    sync.Map // withdrawal ID → *sync.Mutex
}

// NewService creates a finance service.
func NewService(store Store, wallet WalletService, provider PayoutProvider) *Service {
	return &Service{store: store, wallet: wallet, provider: provider}
}

// WithEmitter wires a live-event emitter.
func (s *Service) WithEmitter(e EventEmitter) *Service {
	s.emitter = e
	return s
}

// withdrawalLock returns the mutex serializing transitions for one
// withdrawal (review vs webhook vs payout racing).
func (s *Service) withdrawalLock(id string) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (s *Service) emit(w *Withdrawal) {
	if s.emitter != nil {
		s.emitter.WithdrawalChanged(w)
	}
	metrics.WithdrawalTransitionsTotal.WithLabelValues(string(w.State)).Inc()
}

// OpenWithdrawal places a hold and creates a withdrawal in `requested`.
// Implements wallet.WithdrawalOpener.
func (s *Service) OpenWithdrawal(ctx context.Context, playerID, tenantID string, amountCents int64, method string) (string, string, error) {
	if amountCents <= 0 {
		return "", "", ErrInvalidAmount
	}

	now := time.Now().UTC()
	w := &Withdrawal{
		ID:          idgen.WithPrefix(idgen.PrefixWithdrawal),
		PlayerID:    playerID,
		TenantID:    tenantID,
		AmountCents: amountCents,
		State:       StateRequested,
		Method:      method,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.wallet.Hold(ctx, playerID, amountCents, w.ID); err != nil {
		return "", "", err
	}
	if err := s.store.Create(ctx, w); err != nil {
		// Hold placed but record failed: release so no funds are stranded.
		_ = s.wallet.ReleaseHold(ctx, playerID, amountCents, w.ID)
		return "", "", fmt.Errorf("create withdrawal: %w", err)
	}

	s.emit(w)
	return w.ID, string(w.State), nil
}

// Get returns one withdrawal.
func (s *Service) Get(ctx context.Context, id string) (*Withdrawal, error) {
	return s.store.Get(ctx, id)
}

// List returns withdrawals matching the filter, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]*Withdrawal, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	return s.store.List(ctx, f)
}

// Review applies an approve or reject decision.
func (s *Service) Review(ctx context.Context, id, action, reason, reviewer string) (*Withdrawal, error) {
	mu := s.withdrawalLock(id)
	mu.Lock()
	defer mu.Unlock()

	w, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var target State
	switch action {
	case "approve":
		target = StateApproved
	case "reject":
		target = StateRejected
	default:
		return nil, fmt.Errorf("finance: unknown review action %q", action)
	}

	if !CanTransition(w.State, target) {
		return nil, fmt.Errorf("%w: %s → %s", ErrStateMismatch, w.State, target)
	}

	if target == StateRejected {
		// Give the money back before flipping state; a release failure
		// must not leave a rejected withdrawal with stranded held funds.
		if err := s.wallet.ReleaseHold(ctx, w.PlayerID, w.AmountCents, w.ID); err != nil {
			return nil, fmt.Errorf("release hold: %w", err)
		}
	}

	now := time.Now().UTC()
	w.State = target
	w.ReviewedBy = reviewer
	w.ReviewedAt = &now
	w.Reason = reason
	w.UpdatedAt = now
	if err := s.store.Update(ctx, w); err != nil {
		return nil, err
	}

	logging.L(ctx).Info("withdrawal reviewed", "withdrawal_id", w.ID, "action", action, "state", w.State)
	s.emit(w)
	return w, nil
}

// PayoutResult is the outcome of a payout or mark-paid call.
type PayoutResult struct {
	Withdrawal *Withdrawal `json:"withdrawal"`
	Replayed   bool        `json:"replayed"`
}

// Payout attempts the provider payout. Idempotent per key: a replayed
// key returns the recorded outcome without touching provider or
// balances.
func (s *Service) Payout(ctx context.Context, id, key string) (*PayoutResult, error) {
	mu := s.withdrawalLock(id)
	mu.Lock()
	defer mu.Unlock()

	if key != "" {
		if rec, err := s.store.GetIdempotency(ctx, key); err == nil {
			w, err := s.store.Get(ctx, rec.WithdrawalID)
			if err != nil {
				return nil, err
			}
			metrics.IdempotentReplaysTotal.Inc()
			return &PayoutResult{Withdrawal: w, Replayed: true}, nil
		}
	}

	w, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(w.State, StatePaid) {
		return nil, fmt.Errorf("%w: %s → %s", ErrStateMismatch, w.State, StatePaid)
	}

	w.PayoutAttempts++

	providerRef, provErr := s.provider.InitiatePayout(ctx, w.ID, w.PlayerID, w.AmountCents)
	if provErr != nil {
		if !errors.Is(provErr, ErrProviderDeclined) {
			// Transport error: no state change, caller may retry.
			return nil, fmt.Errorf("provider payout: %w", provErr)
		}
		w.State = StatePayoutFailed
		w.UpdatedAt = time.Now().UTC()
		if err := s.store.Update(ctx, w); err != nil {
			return nil, err
		}
		s.recordIdempotency(ctx, key, w)
		logging.L(ctx).Warn("payout declined", "withdrawal_id", w.ID, "attempt", w.PayoutAttempts)
		s.emit(w)
		return &PayoutResult{Withdrawal: w}, nil
	}

	if err := s.wallet.SettleHold(ctx, w.PlayerID, w.AmountCents, w.ID); err != nil {
		return nil, fmt.Errorf("settle hold: %w", err)
	}

	now := time.Now().UTC()
	w.State = StatePaid
	w.ProviderRef = providerRef
	w.PaidAt = &now
	w.UpdatedAt = now
	if err := s.store.Update(ctx, w); err != nil {
		return nil, err
	}

	s.recordIdempotency(ctx, key, w)
	logging.L(ctx).Info("payout settled", "withdrawal_id", w.ID, "provider_ref", providerRef)
	s.emit(w)
	return &PayoutResult{Withdrawal: w}, nil
}

// MarkPaid settles a withdrawal manually (offline payout confirmed by
// an operator). Idempotent per key like Payout.
func (s *Service) MarkPaid(ctx context.Context, id, key string) (*PayoutResult, error) {
	mu := s.withdrawalLock(id)
	mu.Lock()
	defer mu.Unlock()

	if key != "" {
		if rec, err := s.store.GetIdempotency(ctx, key); err == nil {
			w, err := s.store.Get(ctx, rec.WithdrawalID)
			if err != nil {
				return nil, err
			}
			metrics.IdempotentReplaysTotal.Inc()
			return &PayoutResult{Withdrawal: w, Replayed: true}, nil
		}
	}

	w, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(w.State, StatePaid) {
		return nil, fmt.Errorf("%w: %s → %s", ErrStateMismatch, w.State, StatePaid)
	}

	if err := s.wallet.SettleHold(ctx, w.PlayerID, w.AmountCents, w.ID); err != nil {
		return nil, fmt.Errorf("settle hold: %w", err)
	}

	now := time.Now().UTC()
	w.State = StatePaid
	w.PaidAt = &now
	w.UpdatedAt = now
	if err := s.store.Update(ctx, w); err != nil {
		return nil, err
	}

	s.recordIdempotency(ctx, key, w)
	s.emit(w)
	return &PayoutResult{Withdrawal: w}, nil
}

func (s *Service) recordIdempotency(ctx context.Context, key string, w *Withdrawal) {
	if key == "" {
		return
	}
	_ = s.store.PutIdempotency(ctx, &IdempotencyRecord{
		Key:          key,
		WithdrawalID: w.ID,
		State:        w.State,
		CreatedAt:    time.Now().UTC(),
	})
}

// WebhookDelivery is a payout provider callback.
type WebhookDelivery struct {
	ProviderEventID string `json:"provider_event_id" binding:"required"`
	TxID            string `json:"tx_id" binding:"required"`
	Status          string `json:"status" binding:"required"` // paid | failed
}

// WebhookResult is the processing outcome of one delivery.
type WebhookResult struct {
	Withdrawal *Withdrawal `json:"withdrawal,omitempty"`
	Applied    bool        `json:"applied"`
	Replay     bool        `json:"replay"`
}

// HandleWebhook applies a provider callback. Redelivery of a seen
// provider_event_id is flagged replay and does nothing. A stale
// delivery (withdrawal already terminal) is consumed without effect.
func (s *Service) HandleWebhook(ctx context.Context, d WebhookDelivery) (*WebhookResult, error) {
	first, err := s.store.MarkProviderEvent(ctx, d.ProviderEventID)
	if err != nil {
		return nil, err
	}
	if !first {
		metrics.PayoutWebhooksTotal.WithLabelValues("replay").Inc()
		w, _ := s.store.Get(ctx, d.TxID)
		return &WebhookResult{Withdrawal: w, Replay: true}, nil
	}

	mu := s.withdrawalLock(d.TxID)
	mu.Lock()
	defer mu.Unlock()

	w, err := s.store.Get(ctx, d.TxID)
	if err != nil {
		// Don't consume the event: the provider may redeliver with a
		// corrected tx_id.
		_ = s.store.UnmarkProviderEvent(ctx, d.ProviderEventID)
		metrics.PayoutWebhooksTotal.WithLabelValues("unknown").Inc()
		return nil, err
	}

	var target State
	switch d.Status {
	case "paid", "success":
		target = StatePaid
	case "failed":
		target = StatePayoutFailed
	default:
		_ = s.store.UnmarkProviderEvent(ctx, d.ProviderEventID)
		return nil, fmt.Errorf("finance: unknown webhook status %q", d.Status)
	}

	if !CanTransition(w.State, target) {
		// Stale delivery for a terminal withdrawal: consume, don't error.
		metrics.PayoutWebhooksTotal.WithLabelValues("stale").Inc()
		return &WebhookResult{Withdrawal: w}, nil
	}

	now := time.Now().UTC()
	if target == StatePaid {
		if err := s.wallet.SettleHold(ctx, w.PlayerID, w.AmountCents, w.ID); err != nil {
			_ = s.store.UnmarkProviderEvent(ctx, d.ProviderEventID)
			return nil, fmt.Errorf("settle hold: %w", err)
		}
		w.PaidAt = &now
	}
	w.State = target
	w.UpdatedAt = now
	if err := s.store.Update(ctx, w); err != nil {
		_ = s.store.UnmarkProviderEvent(ctx, d.ProviderEventID)
		return nil, err
	}

	metrics.PayoutWebhooksTotal.WithLabelValues("applied").Inc()
	logging.L(ctx).Info("payout webhook applied", "withdrawal_id", w.ID, "state", w.State, "provider_event_id", d.ProviderEventID)
	s.emit(w)
	return &WebhookResult{Withdrawal: w, Applied: true}, nil
}
