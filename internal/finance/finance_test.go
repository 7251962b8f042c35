package finance

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWallet records hold operations and tracks available/held per player.
type fakeWallet struct {
	available map[string]int64
	held      map[string]int64
	calls     []string
}

func newFakeWallet() *fakeWallet {
	return &fakeWallet{available: make(map[string]int64), held: make(map[string]int64)}
}

func (f *fakeWallet) Hold(_ context.Context, playerID string, amount int64, ref string) error {
	f.calls = append(f.calls, "hold")
	if f.available[playerID] < amount {
		return errors.New("insufficient funds")
	}
	f.available[playerID] -= amount
	f.held[playerID] += amount
	return nil
}

func (f *fakeWallet) ReleaseHold(_ context.Context, playerID string, amount int64, ref string) error {
	f.calls = append(f.calls, "release")
	f.held[playerID] -= amount
	f.available[playerID] += amount
	return nil
}

func (f *fakeWallet) SettleHold(_ context.Context, playerID string, amount int64, ref string) error {
	f.calls = append(f.calls, "settle")
	if f.held[playerID] < amount {
		return errors.New("held too small")
	}
	f.held[playerID] -= amount
	return nil
}

// scriptedProvider declines the next N payouts, then succeeds.
type scriptedProvider struct {
	declines int
	attempts int
}

func (p *scriptedProvider) InitiatePayout(_ context.Context, withdrawalID, _ string, _ int64) (string, error) {
	p.attempts++
	if p.declines > 0 {
		p.declines--
		return "", fmt.Errorf("%w: scripted decline", ErrProviderDeclined)
	}
	return "prov_" + withdrawalID, nil
}

func newTestFinance(declines int) (*Service, *fakeWallet, *scriptedProvider) {
	w := newFakeWallet()
	p := &scriptedProvider{declines: declines}
	return NewService(NewMemoryStore(), w, p), w, p
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to State }{
		{StateRequested, StateApproved},
		{StateRequested, StateRejected},
		{StateApproved, StatePaid},
		{StateApproved, StatePayoutFailed},
		{StatePayoutFailed, StatePaid},
		{StatePayoutFailed, StatePayoutFailed},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s → %s should be allowed", tc.from, tc.to)
	}

	denied := []struct{ from, to State }{
		{StateRequested, StatePaid},
		{StateRejected, StateApproved},
		{StateRejected, StatePaid},
		{StatePaid, StateApproved},
		{StatePaid, StatePayoutFailed},
		{StatePaid, StateRequested},
		{StateApproved, StateRejected},
		{StatePayoutFailed, StateRejected},
	}
	for _, tc := range denied {
		assert.False(t, CanTransition(tc.from, tc.to), "%s → %s should be denied", tc.from, tc.to)
	}

	assert.True(t, StatePaid.IsTerminal())
	assert.True(t, StateRejected.IsTerminal())
	assert.False(t, StateApproved.IsTerminal())
}

func TestOpenWithdrawal_PlacesHold(t *testing.T) {
	svc, w, _ := newTestFinance(0)
	w.available["pl_1"] = 5000

	id, state, err := svc.OpenWithdrawal(context.Background(), "pl_1", "ten_1", 2000, "bank")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, string(StateRequested), state)
	assert.Equal(t, int64(3000), w.available["pl_1"])
	assert.Equal(t, int64(2000), w.held["pl_1"])
}

func TestOpenWithdrawal_InsufficientFundsNoRecord(t *testing.T) {
	svc, w, _ := newTestFinance(0)
	w.available["pl_1"] = 1000

	_, _, err := svc.OpenWithdrawal(context.Background(), "pl_1", "", 2000, "bank")
	require.Error(t, err)

	list, _ := svc.List(context.Background(), Filter{PlayerID: "pl_1"})
	assert.Empty(t, list)
}

func TestReview_ApproveThenPayout(t *testing.T) {
	svc, w, _ := newTestFinance(0)
	w.available["pl_1"] = 5000
	ctx := context.Background()

	id, _, err := svc.OpenWithdrawal(ctx, "pl_1", "", 2000, "bank")
	require.NoError(t, err)

	got, err := svc.Review(ctx, id, "approve", "docs verified", "adm_1")
	require.NoError(t, err)
	assert.Equal(t, StateApproved, got.State)
	assert.Equal(t, "adm_1", got.ReviewedBy)
	require.NotNil(t, got.ReviewedAt)

	res, err := svc.Payout(ctx, id, "")
	require.NoError(t, err)
	assert.Equal(t, StatePaid, res.Withdrawal.State)
	assert.NotEmpty(t, res.Withdrawal.ProviderRef)
	require.NotNil(t, res.Withdrawal.PaidAt)

	// Hold settled: held gone, available untouched.
	assert.Equal(t, int64(3000), w.available["pl_1"])
	assert.Equal(t, int64(0), w.held["pl_1"])
}

func TestReview_RejectReleasesHold(t *testing.T) {
	svc, w, _ := newTestFinance(0)
	w.available["pl_1"] = 5000
	ctx := context.Background()

	id, _, _ := svc.OpenWithdrawal(ctx, "pl_1", "", 2000, "bank")

	got, err := svc.Review(ctx, id, "reject", "suspicious pattern", "adm_1")
	require.NoError(t, err)
	assert.Equal(t, StateRejected, got.State)
	assert.Equal(t, "suspicious pattern", got.Reason)
	assert.Equal(t, int64(5000), w.available["pl_1"])
	assert.Equal(t, int64(0), w.held["pl_1"])
}

func TestReview_AfterPaidIsStateMismatch(t *testing.T) {
	svc, w, _ := newTestFinance(0)
	w.available["pl_1"] = 5000
	ctx := context.Background()

	id, _, _ := svc.OpenWithdrawal(ctx, "pl_1", "", 2000, "bank")
	_, err := svc.Review(ctx, id, "approve", "ok", "adm_1")
	require.NoError(t, err)
	_, err = svc.Payout(ctx, id, "")
	require.NoError(t, err)

	_, err = svc.Review(ctx, id, "approve", "again", "adm_1")
	assert.ErrorIs(t, err, ErrStateMismatch)

	_, err = svc.Review(ctx, id, "reject", "too late", "adm_1")
	assert.ErrorIs(t, err, ErrStateMismatch)
}

func TestReview_RejectedIsTerminal(t *testing.T) {
	svc, w, _ := newTestFinance(0)
	w.available["pl_1"] = 5000
	ctx := context.Background()

	id, _, _ := svc.OpenWithdrawal(ctx, "pl_1", "", 2000, "bank")
	_, err := svc.Review(ctx, id, "reject", "kyc failed", "adm_1")
	require.NoError(t, err)

	_, err = svc.Review(ctx, id, "approve", "changed my mind", "adm_1")
	assert.ErrorIs(t, err, ErrStateMismatch)

	_, err = svc.Payout(ctx, id, "")
	assert.ErrorIs(t, err, ErrStateMismatch)
}

func TestPayout_DeclinedThenRetry(t *testing.T) {
	svc, w, p := newTestFinance(1)
	w.available["pl_1"] = 5000
	ctx := context.Background()

	id, _, _ := svc.OpenWithdrawal(ctx, "pl_1", "", 3000, "bank")
	_, err := svc.Review(ctx, id, "approve", "ok", "adm_1")
	require.NoError(t, err)

	// First attempt declined: payout_failed, balances unchanged.
	res, err := svc.Payout(ctx, id, "")
	require.NoError(t, err)
	assert.Equal(t, StatePayoutFailed, res.Withdrawal.State)
	assert.Equal(t, 1, res.Withdrawal.PayoutAttempts)
	assert.Equal(t, int64(2000), w.available["pl_1"])
	assert.Equal(t, int64(3000), w.held["pl_1"])

	// Retry succeeds and settles the hold.
	res, err = svc.Payout(ctx, id, "")
	require.NoError(t, err)
	assert.Equal(t, StatePaid, res.Withdrawal.State)
	assert.Equal(t, 2, res.Withdrawal.PayoutAttempts)
	assert.Equal(t, int64(2000), w.available["pl_1"])
	assert.Equal(t, int64(0), w.held["pl_1"])
	assert.Equal(t, 2, p.attempts)
}

func TestPayout_RequestedIsStateMismatch(t *testing.T) {
	svc, w, _ := newTestFinance(0)
	w.available["pl_1"] = 5000
	ctx := context.Background()

	id, _, _ := svc.OpenWithdrawal(ctx, "pl_1", "", 2000, "bank")

	// Paying out an unreviewed withdrawal must fail.
	_, err := svc.Payout(ctx, id, "")
	assert.ErrorIs(t, err, ErrStateMismatch)
}

func TestPayout_IdempotencyKeyReplays(t *testing.T) {
	svc, w, p := newTestFinance(0)
	w.available["pl_1"] = 5000
	ctx := context.Background()

	id, _, _ := svc.OpenWithdrawal(ctx, "pl_1", "", 2000, "bank")
	_, err := svc.Review(ctx, id, "approve", "ok", "adm_1")
	require.NoError(t, err)

	first, err := svc.Payout(ctx, id, "pay-key-1")
	require.NoError(t, err)
	require.False(t, first.Replayed)

	second, err := svc.Payout(ctx, id, "pay-key-1")
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Withdrawal.ID, second.Withdrawal.ID)

	// Provider called once, hold settled once.
	assert.Equal(t, 1, p.attempts)
	assert.Equal(t, int64(0), w.held["pl_1"])
}

func TestPayout_FailureOutcomeIsRecordedForKey(t *testing.T) {
	svc, w, p := newTestFinance(1)
	w.available["pl_1"] = 5000
	ctx := context.Background()

	id, _, _ := svc.OpenWithdrawal(ctx, "pl_1", "", 2000, "bank")
	_, _ = svc.Review(ctx, id, "approve", "ok", "adm_1")

	res, err := svc.Payout(ctx, id, "pay-key-1")
	require.NoError(t, err)
	assert.Equal(t, StatePayoutFailed, res.Withdrawal.State)

	// Replaying the same key returns the failed outcome without a retry.
	res, err = svc.Payout(ctx, id, "pay-key-1")
	require.NoError(t, err)
	assert.True(t, res.Replayed)
	assert.Equal(t, StatePayoutFailed, res.Withdrawal.State)
	assert.Equal(t, 1, p.attempts)

	// A fresh key retries.
	res, err = svc.Payout(ctx, id, "pay-key-2")
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Equal(t, StatePaid, res.Withdrawal.State)
}

func TestMarkPaid_SettlesWithoutProvider(t *testing.T) {
	svc, w, p := newTestFinance(0)
	w.available["pl_1"] = 5000
	ctx := context.Background()

	id, _, _ := svc.OpenWithdrawal(ctx, "pl_1", "", 2000, "bank")
	_, _ = svc.Review(ctx, id, "approve", "ok", "adm_1")

	res, err := svc.MarkPaid(ctx, id, "mp-key")
	require.NoError(t, err)
	assert.Equal(t, StatePaid, res.Withdrawal.State)
	assert.Empty(t, res.Withdrawal.ProviderRef)
	assert.Equal(t, 0, p.attempts)
	assert.Equal(t, int64(0), w.held["pl_1"])

	// Replay.
	res, err = svc.MarkPaid(ctx, id, "mp-key")
	require.NoError(t, err)
	assert.True(t, res.Replayed)

	// A second settle would have drained held below zero.
	assert.Equal(t, int64(0), w.held["pl_1"])
}

func TestHandleWebhook_PaidSettles(t *testing.T) {
	svc, w, _ := newTestFinance(0)
	w.available["pl_1"] = 5000
	ctx := context.Background()

	id, _, _ := svc.OpenWithdrawal(ctx, "pl_1", "", 2000, "bank")
	_, _ = svc.Review(ctx, id, "approve", "ok", "adm_1")

	res, err := svc.HandleWebhook(ctx, WebhookDelivery{
		ProviderEventID: "evt_1", TxID: id, Status: "paid",
	})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.False(t, res.Replay)
	assert.Equal(t, StatePaid, res.Withdrawal.State)
	assert.Equal(t, int64(0), w.held["pl_1"])
}

func TestHandleWebhook_RedeliveryIsReplay(t *testing.T) {
	svc, w, _ := newTestFinance(0)
	w.available["pl_1"] = 5000
	ctx := context.Background()

	id, _, _ := svc.OpenWithdrawal(ctx, "pl_1", "", 2000, "bank")
	_, _ = svc.Review(ctx, id, "approve", "ok", "adm_1")

	d := WebhookDelivery{ProviderEventID: "evt_1", TxID: id, Status: "paid"}
	_, err := svc.HandleWebhook(ctx, d)
	require.NoError(t, err)

	res, err := svc.HandleWebhook(ctx, d)
	require.NoError(t, err)
	assert.True(t, res.Replay)
	assert.False(t, res.Applied)

	// Settled exactly once.
	settles := 0
	for _, call := range w.calls {
		if call == "settle" {
			settles++
		}
	}
	assert.Equal(t, 1, settles)
}

func TestHandleWebhook_FailedMarksPayoutFailed(t *testing.T) {
	svc, w, _ := newTestFinance(0)
	w.available["pl_1"] = 5000
	ctx := context.Background()

	id, _, _ := svc.OpenWithdrawal(ctx, "pl_1", "", 2000, "bank")
	_, _ = svc.Review(ctx, id, "approve", "ok", "adm_1")

	res, err := svc.HandleWebhook(ctx, WebhookDelivery{
		ProviderEventID: "evt_1", TxID: id, Status: "failed",
	})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, StatePayoutFailed, res.Withdrawal.State)

	// Balances untouched by the failure.
	assert.Equal(t, int64(3000), w.available["pl_1"])
	assert.Equal(t, int64(2000), w.held["pl_1"])
}

func TestHandleWebhook_StaleDeliveryConsumed(t *testing.T) {
	svc, w, _ := newTestFinance(0)
	w.available["pl_1"] = 5000
	ctx := context.Background()

	id, _, _ := svc.OpenWithdrawal(ctx, "pl_1", "", 2000, "bank")
	_, _ = svc.Review(ctx, id, "approve", "ok", "adm_1")
	_, err := svc.Payout(ctx, id, "")
	require.NoError(t, err)

	// A late "failed" delivery for an already-paid withdrawal is
	// consumed with no state change.
	res, err := svc.HandleWebhook(ctx, WebhookDelivery{
		ProviderEventID: "evt_late", TxID: id, Status: "failed",
	})
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, StatePaid, res.Withdrawal.State)
}

func TestHandleWebhook_UnknownWithdrawal(t *testing.T) {
	svc, _, _ := newTestFinance(0)

	_, err := svc.HandleWebhook(context.Background(), WebhookDelivery{
		ProviderEventID: "evt_1", TxID: "wd_missing", Status: "paid",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHandleWebhook_FailedAttemptDoesNotConsumeEvent(t *testing.T) {
	svc, w, _ := newTestFinance(0)
	w.available["pl_1"] = 5000
	ctx := context.Background()

	id, _, _ := svc.OpenWithdrawal(ctx, "pl_1", "", 2000, "bank")
	_, _ = svc.Review(ctx, id, "approve", "ok", "adm_1")

	// A delivery naming an unknown withdrawal errors without burning
	// the event ID.
	_, err := svc.HandleWebhook(ctx, WebhookDelivery{
		ProviderEventID: "evt_1", TxID: "wd_missing", Status: "paid",
	})
	require.ErrorIs(t, err, ErrNotFound)

	// Same for an unrecognized status.
	_, err = svc.HandleWebhook(ctx, WebhookDelivery{
		ProviderEventID: "evt_1", TxID: id, Status: "mystery",
	})
	require.Error(t, err)

	// The corrected redelivery applies instead of being answered as a
	// replay.
	res, err := svc.HandleWebhook(ctx, WebhookDelivery{
		ProviderEventID: "evt_1", TxID: id, Status: "paid",
	})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.False(t, res.Replay)
	assert.Equal(t, StatePaid, res.Withdrawal.State)
	assert.Equal(t, int64(0), w.held["pl_1"])
}

func TestList_Filters(t *testing.T) {
	svc, w, _ := newTestFinance(0)
	w.available["pl_1"] = 10000
	w.available["pl_2"] = 10000
	ctx := context.Background()

	id1, _, _ := svc.OpenWithdrawal(ctx, "pl_1", "ten_1", 1000, "bank")
	_, _, _ = svc.OpenWithdrawal(ctx, "pl_2", "ten_2", 2000, "bank")
	_, _ = svc.Review(ctx, id1, "approve", "ok", "adm_1")

	byState, err := svc.List(ctx, Filter{State: StateApproved})
	require.NoError(t, err)
	require.Len(t, byState, 1)
	assert.Equal(t, id1, byState[0].ID)

	byPlayer, err := svc.List(ctx, Filter{PlayerID: "pl_2"})
	require.NoError(t, err)
	require.Len(t, byPlayer, 1)

	byTenant, err := svc.List(ctx, Filter{TenantID: "ten_1"})
	require.NoError(t, err)
	require.Len(t, byTenant, 1)
	assert.Equal(t, id1, byTenant[0].ID)
}
