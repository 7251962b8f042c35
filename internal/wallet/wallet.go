// Package wallet tracks player balances and money movements.
//
// Balance model:
//   - available: spendable real money
//   - held: real money locked by a pending withdrawal
//   - bonus: promotional balance, never paid out
//
// Movements:
//  1. Deposit → available += amount (idempotent per Idempotency-Key)
//  2. Withdrawal request → available → held (the hold)
//  3. Withdrawal rejected → held → available (release)
//  4. Payout success → held -= amount (settle; available untouched)
//  5. Payout failure → no balance change
//
// All amounts are integer cents. There are no floats in money paths.
package wallet

import (
	"context"
	"errors"
	"time"
)

// Errors
var (
	ErrInsufficientFunds = errors.New("wallet: insufficient funds")
	ErrInsufficientHold  = errors.New("wallet: held balance smaller than requested amount")
	ErrInvalidAmount     = errors.New("wallet: amount must be positive")
	ErrTxNotFound        = errors.New("wallet: transaction not found")
)

// Transaction types.
const (
	TxDeposit         = "deposit"
	TxDepositFailed   = "deposit_failed"
	TxWithdrawHold    = "withdraw_hold"
	TxWithdrawRelease = "withdraw_release"
	TxPayout          = "payout"
	TxAdminCredit     = "credit"
	TxAdminDebit      = "debit"
	TxBonus           = "bonus"
)

// Balance is a player's wallet snapshot.
type Balance struct {
	PlayerID       string    `json:"player_id"`
	AvailableCents int64     `json:"available_real"`
	HeldCents      int64     `json:"held_real"`
	BonusCents     int64     `json:"balance_bonus"`
	Currency       string    `json:"currency"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Transaction is one wallet movement.
type Transaction struct {
	ID             string    `json:"id"`
	PlayerID       string    `json:"player_id"`
	Type           string    `json:"type"`
	AmountCents    int64     `json:"amount_cents"`
	AvailableAfter int64     `json:"available_after"`
	HeldAfter      int64     `json:"held_after"`
	Reference      string    `json:"reference,omitempty"`
	IdempotencyKey string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// Mutation describes a single atomic balance change for the store.
type Mutation struct {
	PlayerID       string
	Type           string
	AmountCents    int64
	AvailableDelta int64
	HeldDelta      int64
	BonusDelta     int64
	Reference      string
	IdempotencyKey string
}

// Store persists balances and transactions. Apply must be atomic: the
// balance update and the transaction row commit together, and a
// negative resulting available/held/bonus must fail without effect.
type Store interface {
	GetBalance(ctx context.Context, playerID string) (*Balance, error)
	Apply(ctx context.Context, m Mutation) (*Transaction, error)
	ListTransactions(ctx context.Context, playerID string, limit int, before *time.Time) ([]*Transaction, error)
	GetByIdempotencyKey(ctx context.Context, playerID, key string) (*Transaction, error)
	// SumSince returns the total amount of transactions of a type for a
	// player since a point in time (RG daily limits, reporting).
	SumSince(ctx context.Context, playerID, txType string, since time.Time) (int64, error)
	// AggregateSince returns platform-wide totals by transaction type
	// since a point in time (reporting dashboard).
	AggregateSince(ctx context.Context, since time.Time) (*Aggregates, error)
}

// Aggregates are platform-wide transaction totals for a period.
type Aggregates struct {
	DepositCents  int64 `json:"deposit_cents"`
	PayoutCents   int64 `json:"payout_cents"`
	CreditCents   int64 `json:"credit_cents"`
	DebitCents    int64 `json:"debit_cents"`
	BonusCents    int64 `json:"bonus_cents"`
	HeldNowCents  int64 `json:"held_now_cents"`
	ActivePlayers int   `json:"active_players"`
}

// Service implements wallet business logic on top of a Store.
type Service struct {
	store Store
}

// NewService creates a wallet service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// GetBalance returns a player's balance, zero-valued for new players.
func (s *Service) GetBalance(ctx context.Context, playerID string) (*Balance, error) {
	return s.store.GetBalance(ctx, playerID)
}

// Deposit credits available funds. When key is non-empty and was seen
// before for this player, the recorded transaction is returned with
// replayed=true and no balance change happens.
func (s *Service) Deposit(ctx context.Context, playerID string, amountCents int64, key, reference string) (tx *Transaction, replayed bool, err error) {
	if amountCents <= 0 {
		return nil, false, ErrInvalidAmount
	}
	if key != "" {
		if prev, err := s.store.GetByIdempotencyKey(ctx, playerID, key); err == nil {
			return prev, true, nil
		}
	}
	tx, err = s.store.Apply(ctx, Mutation{
		PlayerID:       playerID,
		Type:           TxDeposit,
		AmountCents:    amountCents,
		AvailableDelta: amountCents,
		Reference:      reference,
		IdempotencyKey: key,
	})
	return tx, false, err
}

// RecordFailedDeposit records a net-zero entry for a failed deposit so
// the attempt is visible in the player's history.
func (s *Service) RecordFailedDeposit(ctx context.Context, playerID string, amountCents int64, key, reference string) (*Transaction, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.store.Apply(ctx, Mutation{
		PlayerID:       playerID,
		Type:           TxDepositFailed,
		AmountCents:    amountCents,
		Reference:      reference,
		IdempotencyKey: key,
	})
}

// Hold moves amount from available to held for a pending withdrawal.
func (s *Service) Hold(ctx context.Context, playerID string, amountCents int64, reference string) (*Transaction, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	tx, err := s.store.Apply(ctx, Mutation{
		PlayerID:       playerID,
		Type:           TxWithdrawHold,
		AmountCents:    amountCents,
		AvailableDelta: -amountCents,
		HeldDelta:      amountCents,
		Reference:      reference,
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// ReleaseHold returns held funds to available (withdrawal rejected).
func (s *Service) ReleaseHold(ctx context.Context, playerID string, amountCents int64, reference string) (*Transaction, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.store.Apply(ctx, Mutation{
		PlayerID:       playerID,
		Type:           TxWithdrawRelease,
		AmountCents:    amountCents,
		AvailableDelta: amountCents,
		HeldDelta:      -amountCents,
		Reference:      reference,
	})
}

// SettleHold removes held funds after a successful payout. Available is
// untouched; the money has left the platform.
func (s *Service) SettleHold(ctx context.Context, playerID string, amountCents int64, reference string) (*Transaction, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.store.Apply(ctx, Mutation{
		PlayerID:    playerID,
		Type:        TxPayout,
		AmountCents: amountCents,
		HeldDelta:   -amountCents,
		Reference:   reference,
	})
}

// AdminCredit adds available funds (audited upstream).
func (s *Service) AdminCredit(ctx context.Context, playerID string, amountCents int64, reference string) (*Transaction, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.store.Apply(ctx, Mutation{
		PlayerID:       playerID,
		Type:           TxAdminCredit,
		AmountCents:    amountCents,
		AvailableDelta: amountCents,
		Reference:      reference,
	})
}

// AdminDebit removes available funds (audited upstream).
func (s *Service) AdminDebit(ctx context.Context, playerID string, amountCents int64, reference string) (*Transaction, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.store.Apply(ctx, Mutation{
		PlayerID:       playerID,
		Type:           TxAdminDebit,
		AmountCents:    amountCents,
		AvailableDelta: -amountCents,
		Reference:      reference,
	})
}

// GrantBonus credits the bonus balance (audited upstream).
func (s *Service) GrantBonus(ctx context.Context, playerID string, amountCents int64, reference string) (*Transaction, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.store.Apply(ctx, Mutation{
		PlayerID:    playerID,
		Type:        TxBonus,
		AmountCents: amountCents,
		BonusDelta:  amountCents,
		Reference:   reference,
	})
}

// ListTransactions returns a player's movements, newest first.
func (s *Service) ListTransactions(ctx context.Context, playerID string, limit int, before *time.Time) ([]*Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListTransactions(ctx, playerID, limit, before)
}

// DepositedSince returns the total deposited since a point in time
// (responsible-gaming daily limit checks).
func (s *Service) DepositedSince(ctx context.Context, playerID string, since time.Time) (int64, error) {
	return s.store.SumSince(ctx, playerID, TxDeposit, since)
}

// WithdrawnSince returns the total held for withdrawals since a point
// in time (tenant daily withdrawal cap).
func (s *Service) WithdrawnSince(ctx context.Context, playerID string, since time.Time) (int64, error) {
	return s.store.SumSince(ctx, playerID, TxWithdrawHold, since)
}

// AggregateSince returns platform-wide totals for the reporting
// dashboard.
func (s *Service) AggregateSince(ctx context.Context, since time.Time) (*Aggregates, error) {
	return s.store.AggregateSince(ctx, since)
}
