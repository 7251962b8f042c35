// Package rg implements responsible-gaming limits and exclusions.
package rg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/apierr"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/logging"
)

// ErrNotFound is returned when a player has no stored limits.
var ErrNotFound = errors.New("rg: no limits for player")

// Exclusion kinds.
const (
	KindCoolOff = "cooloff"
	KindSelf    = "self"
)

// Limits are a player's self-imposed (or operator-imposed) limits.
// Zero means no limit.
type Limits struct {
	PlayerID          string    `json:"player_id"`
	DepositDailyCents int64     `json:"deposit_daily_cents"`
	LossDailyCents    int64     `json:"loss_daily_cents"`
	SessionMinutes    int       `json:"session_minutes"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Exclusion blocks a player from playing until a point in time. A
// self-exclusion with zero Until is permanent.
type Exclusion struct {
	PlayerID  string     `json:"player_id"`
	Kind      string     `json:"kind"`
	Until     *time.Time `json:"until,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Store persists limits and exclusions.
type Store interface {
	GetLimits(ctx context.Context, playerID string) (*Limits, error)
	PutLimits(ctx context.Context, l *Limits) error
	GetExclusion(ctx context.Context, playerID string) (*Exclusion, error)
	PutExclusion(ctx context.Context, e *Exclusion) error
}

// Service implements responsible-gaming checks.
type Service struct {
	store Store
}

// NewService creates an RG service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// GetLimits returns a player's limits, zero-valued if none are set.
func (s *Service) GetLimits(ctx context.Context, playerID string) (*Limits, error) {
	l, err := s.store.GetLimits(ctx, playerID)
	if errors.Is(err, ErrNotFound) {
		return &Limits{PlayerID: playerID}, nil
	}
	return l, err
}

// SetLimits stores a player's limits.
func (s *Service) SetLimits(ctx context.Context, l *Limits) error {
	if l.DepositDailyCents < 0 || l.LossDailyCents < 0 || l.SessionMinutes < 0 {
		return apierr.New(apierr.CodeValidation, "limits must be non-negative")
	}
	l.UpdatedAt = time.Now().UTC()
	return s.store.PutLimits(ctx, l)
}

// Exclude blocks a player. A cool-off requires an end time.
func (s *Service) Exclude(ctx context.Context, playerID, kind string, until *time.Time) (*Exclusion, error) {
	if kind != KindCoolOff && kind != KindSelf {
		return nil, apierr.New(apierr.CodeValidation, "kind must be cooloff or self")
	}
	if kind == KindCoolOff && until == nil {
		return nil, apierr.New(apierr.CodeValidation, "cooloff requires an until time")
	}
	e := &Exclusion{
		PlayerID:  playerID,
		Kind:      kind,
		Until:     until,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.PutExclusion(ctx, e); err != nil {
		return nil, err
	}
	logging.L(ctx).Info("player excluded", "player_id", playerID, "kind", kind)
	return e, nil
}

// GetExclusion returns the active exclusion for a player, nil if none.
func (s *Service) GetExclusion(ctx context.Context, playerID string) (*Exclusion, error) {
	e, err := s.store.GetExclusion(ctx, playerID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if e.Until != nil && time.Now().After(*e.Until) {
		return nil, nil // expired
	}
	return e, nil
}

// IsExcluded reports whether a player is currently excluded.
func (s *Service) IsExcluded(ctx context.Context, playerID string) (bool, error) {
	e, err := s.GetExclusion(ctx, playerID)
	if err != nil {
		return false, err
	}
	return e != nil, nil
}

// CheckDeposit enforces exclusions and the daily deposit limit.
// Implements the wallet handler's DepositGuard.
func (s *Service) CheckDeposit(ctx context.Context, playerID string, amountCents, depositedTodayCents int64) error {
	excluded, err := s.IsExcluded(ctx, playerID)
	if err != nil {
		return err
	}
	if excluded {
		return apierr.New(apierr.CodeRGExcluded, "Account is excluded from playing.")
	}

	l, err := s.GetLimits(ctx, playerID)
	if err != nil {
		return err
	}
	if l.DepositDailyCents > 0 && depositedTodayCents+amountCents > l.DepositDailyCents {
		return apierr.New(apierr.CodeLimitViolation,
			fmt.Sprintf("deposit would exceed the daily limit of %d cents", l.DepositDailyCents))
	}
	return nil
}
