package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/finance"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/retry"
)

// StripeProvider pays out withdrawals via Stripe Payouts.
type StripeProvider struct {
	api      *client.API
	currency string
}

// NewStripeProvider creates a Stripe-backed payout provider.
func NewStripeProvider(secretKey, currency string) *StripeProvider {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeProvider{api: api, currency: currency}
}

// InitiatePayout implements finance.PayoutProvider. The withdrawal ID
// doubles as the Stripe idempotency key so a retried call cannot
// create a second payout.
func (p *StripeProvider) InitiatePayout(ctx context.Context, withdrawalID, playerID string, amountCents int64) (string, error) {
	params := &stripe.PayoutParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(p.currency),
	}
	params.SetIdempotencyKey(withdrawalID)
	params.AddMetadata("withdrawal_id", withdrawalID)
	params.AddMetadata("player_id", playerID)

	// Transient API errors are retried; the idempotency key keeps a
	// retry from creating a second payout. Declines are permanent.
	var po *stripe.Payout
	err := retry.Do(ctx, 3, 500*time.Millisecond, func() error {
		var err error
		po, err = p.api.Payouts.New(params)
		if err == nil {
			return nil
		}
		var sErr *stripe.Error
		if errors.As(err, &sErr) {
			switch sErr.Type {
			case stripe.ErrorTypeCard, stripe.ErrorTypeInvalidRequest:
				return retry.Permanent(fmt.Errorf("%w: %s", finance.ErrProviderDeclined, sErr.Code))
			}
		}
		return fmt.Errorf("stripe payout: %w", err)
	})
	if err != nil {
		return "", err
	}
	return po.ID, nil
}

var _ finance.PayoutProvider = (*StripeProvider)(nil)
