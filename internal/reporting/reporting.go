// Package reporting computes the ops dashboard aggregates.
package reporting

import (
	"context"
	"time"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/wallet"
)

// Aggregator supplies platform-wide transaction totals. The wallet
// service implements it.
type Aggregator interface {
	AggregateSince(ctx context.Context, since time.Time) (*wallet.Aggregates, error)
}

// Dashboard is the reporting snapshot served to the console.
//
// GGR (gross gaming revenue) is money in minus money out over the
// period; NGR nets out granted bonuses. With no bet-level feed the
// deposit/payout delta is the closest wallet-derived approximation.
type Dashboard struct {
	Period           string             `json:"period"`
	Since            time.Time          `json:"since"`
	GGRCents         int64              `json:"ggr_cents"`
	NGRCents         int64              `json:"ngr_cents"`
	DepositCents     int64              `json:"deposit_cents"`
	WithdrawalCents  int64              `json:"withdrawal_cents"`
	BonusCents       int64              `json:"bonus_cents"`
	ManualAdjustment int64              `json:"manual_adjustment_cents"`
	HeldNowCents     int64              `json:"held_now_cents"`
	ActivePlayers    int                `json:"active_players"`
	Aggregates       *wallet.Aggregates `json:"aggregates"`
}

// Service computes dashboards.
type Service struct {
	agg Aggregator
}

// NewService creates a reporting service.
func NewService(agg Aggregator) *Service {
	return &Service{agg: agg}
}

// periods maps the period query value to a lookback window.
var periods = map[string]time.Duration{
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

// Dashboard computes the snapshot for a period ("24h", "7d", "30d");
// unknown values fall back to 24h.
func (s *Service) Dashboard(ctx context.Context, period string) (*Dashboard, error) {
	window, ok := periods[period]
	if !ok {
		period, window = "24h", 24*time.Hour
	}
	since := time.Now().UTC().Add(-window)

	agg, err := s.agg.AggregateSince(ctx, since)
	if err != nil {
		return nil, err
	}

	ggr := agg.DepositCents - agg.PayoutCents
	return &Dashboard{
		Period:           period,
		Since:            since,
		GGRCents:         ggr,
		NGRCents:         ggr - agg.BonusCents,
		DepositCents:     agg.DepositCents,
		WithdrawalCents:  agg.PayoutCents,
		BonusCents:       agg.BonusCents,
		ManualAdjustment: agg.CreditCents - agg.DebitCents,
		HeldNowCents:     agg.HeldNowCents,
		ActivePlayers:    agg.ActivePlayers,
		Aggregates:       agg,
	}, nil
}
