package wallet

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	return NewService(NewMemoryStore("USD"))
}

func TestDeposit_CreditsAvailable(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	tx, replayed, err := svc.Deposit(ctx, "pl_1", 5000, "", "card")
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, TxDeposit, tx.Type)
	assert.Equal(t, int64(5000), tx.AvailableAfter)

	bal, err := svc.GetBalance(ctx, "pl_1")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), bal.AvailableCents)
	assert.Equal(t, int64(0), bal.HeldCents)
}

func TestDeposit_RejectsNonPositiveAmount(t *testing.T) {
	svc := newTestService()

	for _, amount := range []int64{0, -100} {
		_, _, err := svc.Deposit(context.Background(), "pl_1", amount, "", "")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}
}

func TestDeposit_IdempotencyKeyReplays(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	first, replayed, err := svc.Deposit(ctx, "pl_1", 5000, "key-1", "card")
	require.NoError(t, err)
	require.False(t, replayed)

	second, replayed, err := svc.Deposit(ctx, "pl_1", 5000, "key-1", "card")
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, second.ID)

	// Balance credited exactly once.
	bal, _ := svc.GetBalance(ctx, "pl_1")
	assert.Equal(t, int64(5000), bal.AvailableCents)
}

func TestDeposit_IdempotencyKeyIsPerPlayer(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, _, err := svc.Deposit(ctx, "pl_1", 5000, "shared-key", "")
	require.NoError(t, err)

	_, replayed, err := svc.Deposit(ctx, "pl_2", 3000, "shared-key", "")
	require.NoError(t, err)
	assert.False(t, replayed)

	bal, _ := svc.GetBalance(ctx, "pl_2")
	assert.Equal(t, int64(3000), bal.AvailableCents)
}

func TestRecordFailedDeposit_NetZero(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	tx, err := svc.RecordFailedDeposit(ctx, "pl_1", 2500, "", "card")
	require.NoError(t, err)
	assert.Equal(t, TxDepositFailed, tx.Type)
	assert.Equal(t, int64(2500), tx.AmountCents)
	assert.Equal(t, int64(0), tx.AvailableAfter)

	bal, _ := svc.GetBalance(ctx, "pl_1")
	assert.Equal(t, int64(0), bal.AvailableCents)

	// The attempt is still visible in history.
	txs, err := svc.ListTransactions(ctx, "pl_1", 10, nil)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, TxDepositFailed, txs[0].Type)
}

func TestHold_MovesAvailableToHeld(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, _, err := svc.Deposit(ctx, "pl_1", 5000, "", "")
	require.NoError(t, err)

	tx, err := svc.Hold(ctx, "pl_1", 2000, "wd_1")
	require.NoError(t, err)
	assert.Equal(t, int64(3000), tx.AvailableAfter)
	assert.Equal(t, int64(2000), tx.HeldAfter)

	bal, _ := svc.GetBalance(ctx, "pl_1")
	assert.Equal(t, int64(3000), bal.AvailableCents)
	assert.Equal(t, int64(2000), bal.HeldCents)
}

func TestHold_InsufficientFunds(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, _, err := svc.Deposit(ctx, "pl_1", 1000, "", "")
	require.NoError(t, err)

	_, err = svc.Hold(ctx, "pl_1", 2000, "wd_1")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// Nothing moved.
	bal, _ := svc.GetBalance(ctx, "pl_1")
	assert.Equal(t, int64(1000), bal.AvailableCents)
	assert.Equal(t, int64(0), bal.HeldCents)
}

func TestReleaseHold_RestoresAvailable(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, _, _ = svc.Deposit(ctx, "pl_1", 5000, "", "")
	_, err := svc.Hold(ctx, "pl_1", 2000, "wd_1")
	require.NoError(t, err)

	_, err = svc.ReleaseHold(ctx, "pl_1", 2000, "wd_1")
	require.NoError(t, err)

	bal, _ := svc.GetBalance(ctx, "pl_1")
	assert.Equal(t, int64(5000), bal.AvailableCents)
	assert.Equal(t, int64(0), bal.HeldCents)
}

func TestSettleHold_RemovesHeldOnly(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, _, _ = svc.Deposit(ctx, "pl_1", 5000, "", "")
	_, err := svc.Hold(ctx, "pl_1", 2000, "wd_1")
	require.NoError(t, err)

	tx, err := svc.SettleHold(ctx, "pl_1", 2000, "wd_1")
	require.NoError(t, err)
	assert.Equal(t, TxPayout, tx.Type)

	// Available untouched, held gone: the money left the platform.
	bal, _ := svc.GetBalance(ctx, "pl_1")
	assert.Equal(t, int64(3000), bal.AvailableCents)
	assert.Equal(t, int64(0), bal.HeldCents)
}

func TestSettleHold_MoreThanHeldFails(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, _, _ = svc.Deposit(ctx, "pl_1", 5000, "", "")
	_, _ = svc.Hold(ctx, "pl_1", 1000, "wd_1")

	_, err := svc.SettleHold(ctx, "pl_1", 2000, "wd_1")
	assert.ErrorIs(t, err, ErrInsufficientHold)
}

func TestAdminDebit_CannotGoNegative(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, _, _ = svc.Deposit(ctx, "pl_1", 1000, "", "")

	_, err := svc.AdminDebit(ctx, "pl_1", 1500, "correction")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestGrantBonus_SeparateBalance(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.GrantBonus(ctx, "pl_1", 500, "bon_1")
	require.NoError(t, err)

	bal, _ := svc.GetBalance(ctx, "pl_1")
	assert.Equal(t, int64(500), bal.BonusCents)
	assert.Equal(t, int64(0), bal.AvailableCents)

	// Bonus money is never payable: a hold against it must fail.
	_, err = svc.Hold(ctx, "pl_1", 500, "wd_1")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestListTransactions_NewestFirst(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, _, _ = svc.Deposit(ctx, "pl_1", 100, "", "first")
	_, _, _ = svc.Deposit(ctx, "pl_1", 200, "", "second")
	_, _, _ = svc.Deposit(ctx, "pl_1", 300, "", "third")

	txs, err := svc.ListTransactions(ctx, "pl_1", 2, nil)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "third", txs[0].Reference)
	assert.Equal(t, "second", txs[1].Reference)
}

func TestDepositedSince_SumsOnlyDeposits(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	since := time.Now().UTC().Add(-time.Hour)

	_, _, _ = svc.Deposit(ctx, "pl_1", 1000, "", "")
	_, _, _ = svc.Deposit(ctx, "pl_1", 2000, "", "")
	_, _ = svc.RecordFailedDeposit(ctx, "pl_1", 9999, "", "")
	_, _ = svc.AdminCredit(ctx, "pl_1", 500, "goodwill")

	total, err := svc.DepositedSince(ctx, "pl_1", since)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), total)
}

func TestAggregateSince(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	since := time.Now().UTC().Add(-time.Hour)

	_, _, _ = svc.Deposit(ctx, "pl_1", 10000, "", "")
	_, _, _ = svc.Deposit(ctx, "pl_2", 4000, "", "")
	_, _ = svc.Hold(ctx, "pl_1", 3000, "wd_1")
	_, _ = svc.SettleHold(ctx, "pl_1", 3000, "wd_1")
	_, _ = svc.Hold(ctx, "pl_2", 1000, "wd_2")
	_, _ = svc.AdminCredit(ctx, "pl_1", 200, "")
	_, _ = svc.AdminDebit(ctx, "pl_1", 50, "")
	_, _ = svc.GrantBonus(ctx, "pl_2", 700, "")

	agg, err := svc.AggregateSince(ctx, since)
	require.NoError(t, err)
	assert.Equal(t, int64(14000), agg.DepositCents)
	assert.Equal(t, int64(3000), agg.PayoutCents)
	assert.Equal(t, int64(200), agg.CreditCents)
	assert.Equal(t, int64(50), agg.DebitCents)
	assert.Equal(t, int64(700), agg.BonusCents)
	assert.Equal(t, int64(1000), agg.HeldNowCents)
	assert.Equal(t, 2, agg.ActivePlayers)
}
