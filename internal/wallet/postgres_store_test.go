//go:build integration

package wallet

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres spins up a throwaway PostgreSQL container and returns
// a migrated store. Run with: go test -tags integration ./internal/wallet
func startPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("wallet_test"),
		tcpostgres.WithUsername("wallet"),
		tcpostgres.WithPassword("wallet"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Ping())

	store := NewPostgresStore(db, "USD")
	require.NoError(t, store.Migrate(ctx))
	return store
}

func TestPostgresStore_ApplyAndGetBalance(t *testing.T) {
	store := startPostgres(t)
	ctx := context.Background()

	// Unknown player reads as a zero balance, no row created.
	bal, err := store.GetBalance(ctx, "pl_ghost")
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal.AvailableCents)
	assert.Equal(t, "USD", bal.Currency)

	tx, err := store.Apply(ctx, Mutation{
		PlayerID: "pl_1", Type: TxDeposit, AmountCents: 5000,
		AvailableDelta: 5000, Reference: "dep-1", IdempotencyKey: "key-1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5000), tx.AvailableAfter)

	// Hold moves available into held.
	tx, err = store.Apply(ctx, Mutation{
		PlayerID: "pl_1", Type: TxWithdrawHold, AmountCents: 2000,
		AvailableDelta: -2000, HeldDelta: 2000, Reference: "wd-1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3000), tx.AvailableAfter)
	assert.Equal(t, int64(2000), tx.HeldAfter)

	bal, err = store.GetBalance(ctx, "pl_1")
	require.NoError(t, err)
	assert.Equal(t, int64(3000), bal.AvailableCents)
	assert.Equal(t, int64(2000), bal.HeldCents)
}

func TestPostgresStore_InsufficientFundsRollsBack(t *testing.T) {
	store := startPostgres(t)
	ctx := context.Background()

	_, err := store.Apply(ctx, Mutation{
		PlayerID: "pl_1", Type: TxDeposit, AmountCents: 1000, AvailableDelta: 1000,
	})
	require.NoError(t, err)

	_, err = store.Apply(ctx, Mutation{
		PlayerID: "pl_1", Type: TxAdminDebit, AmountCents: 2000, AvailableDelta: -2000,
	})
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// The failed mutation left no transaction and no balance change.
	bal, err := store.GetBalance(ctx, "pl_1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), bal.AvailableCents)

	txs, err := store.ListTransactions(ctx, "pl_1", 10, nil)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestPostgresStore_IdempotencyKeyUniquePerPlayer(t *testing.T) {
	store := startPostgres(t)
	ctx := context.Background()

	_, err := store.Apply(ctx, Mutation{
		PlayerID: "pl_1", Type: TxDeposit, AmountCents: 1000,
		AvailableDelta: 1000, IdempotencyKey: "dup",
	})
	require.NoError(t, err)

	// The partial unique index rejects a second insert with the key.
	_, err = store.Apply(ctx, Mutation{
		PlayerID: "pl_1", Type: TxDeposit, AmountCents: 1000,
		AvailableDelta: 1000, IdempotencyKey: "dup",
	})
	require.Error(t, err)

	// The same key under another player is fine.
	_, err = store.Apply(ctx, Mutation{
		PlayerID: "pl_2", Type: TxDeposit, AmountCents: 1000,
		AvailableDelta: 1000, IdempotencyKey: "dup",
	})
	require.NoError(t, err)

	found, err := store.GetByIdempotencyKey(ctx, "pl_1", "dup")
	require.NoError(t, err)
	assert.Equal(t, "pl_1", found.PlayerID)

	_, err = store.GetByIdempotencyKey(ctx, "pl_1", "missing")
	assert.ErrorIs(t, err, ErrTxNotFound)
}

func TestPostgresStore_SumAndAggregate(t *testing.T) {
	store := startPostgres(t)
	ctx := context.Background()
	since := time.Now().UTC().Add(-time.Hour)

	seed := []Mutation{
		{PlayerID: "pl_1", Type: TxDeposit, AmountCents: 5000, AvailableDelta: 5000},
		{PlayerID: "pl_1", Type: TxDeposit, AmountCents: 3000, AvailableDelta: 3000},
		{PlayerID: "pl_2", Type: TxDeposit, AmountCents: 2000, AvailableDelta: 2000},
		{PlayerID: "pl_1", Type: TxWithdrawHold, AmountCents: 1000, AvailableDelta: -1000, HeldDelta: 1000},
		{PlayerID: "pl_2", Type: TxAdminCredit, AmountCents: 500, AvailableDelta: 500},
	}
	for _, m := range seed {
		_, err := store.Apply(ctx, m)
		require.NoError(t, err)
	}

	total, err := store.SumSince(ctx, "pl_1", TxDeposit, since)
	require.NoError(t, err)
	assert.Equal(t, int64(8000), total)

	agg, err := store.AggregateSince(ctx, since)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), agg.DepositCents)
	assert.Equal(t, int64(500), agg.CreditCents)
	assert.Equal(t, int64(1000), agg.HeldNowCents)
	assert.Equal(t, 2, agg.ActivePlayers)
}

func TestPostgresStore_ListTransactionsNewestFirst(t *testing.T) {
	store := startPostgres(t)
	ctx := context.Background()

	for _, amount := range []int64{100, 200, 300} {
		_, err := store.Apply(ctx, Mutation{
			PlayerID: "pl_1", Type: TxDeposit, AmountCents: amount, AvailableDelta: amount,
		})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond) // distinct created_at for a stable sort
	}

	txs, err := store.ListTransactions(ctx, "pl_1", 2, nil)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, int64(300), txs[0].AmountCents)
	assert.Equal(t, int64(200), txs[1].AmountCents)
}
