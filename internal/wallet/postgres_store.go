package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/idgen"
)

// PostgresStore persists wallets in PostgreSQL. Apply runs in a single
// transaction with a row lock on the balance so concurrent movements
// for one player serialize.
type PostgresStore struct {
	db       *sql.DB
	currency string
}

// NewPostgresStore creates a new PostgreSQL-backed wallet store.
func NewPostgresStore(db *sql.DB, currency string) *PostgresStore {
	if currency == "" {
		currency = "USD"
	}
	return &PostgresStore{db: db, currency: currency}
}

func (p *PostgresStore) GetBalance(ctx context.Context, playerID string) (*Balance, error) {
	b := &Balance{PlayerID: playerID, Currency: p.currency}
	err := p.db.QueryRowContext(ctx, `
		SELECT available_cents, held_cents, bonus_cents, currency, updated_at
		FROM wallet_balances WHERE player_id = $1
	`, playerID).Scan(&b.AvailableCents, &b.HeldCents, &b.BonusCents, &b.Currency, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		b.UpdatedAt = time.Now().UTC()
		return b, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (p *PostgresStore) Apply(ctx context.Context, m Mutation) (*Transaction, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// Ensure the balance row exists, then lock it.
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_balances (player_id, available_cents, held_cents, bonus_cents, currency, updated_at)
		VALUES ($1, 0, 0, 0, $2, NOW())
		ON CONFLICT (player_id) DO NOTHING
	`, m.PlayerID, p.currency); err != nil {
		return nil, err
	}

	var available, held, bonus int64
	if err := tx.QueryRowContext(ctx, `
		SELECT available_cents, held_cents, bonus_cents
		FROM wallet_balances WHERE player_id = $1 FOR UPDATE
	`, m.PlayerID).Scan(&available, &held, &bonus); err != nil {
		return nil, err
	}

	available += m.AvailableDelta
	held += m.HeldDelta
	bonus += m.BonusDelta
	if available < 0 {
		return nil, ErrInsufficientFunds
	}
	if held < 0 {
		return nil, ErrInsufficientHold
	}
	if bonus < 0 {
		return nil, ErrInsufficientFunds
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		UPDATE wallet_balances
		SET available_cents = $1, held_cents = $2, bonus_cents = $3, updated_at = $4
		WHERE player_id = $5
	`, available, held, bonus, now, m.PlayerID); err != nil {
		return nil, err
	}

	record := &Transaction{
		ID:             idgen.WithPrefix(idgen.PrefixTx),
		PlayerID:       m.PlayerID,
		Type:           m.Type,
		AmountCents:    m.AmountCents,
		AvailableAfter: available,
		HeldAfter:      held,
		Reference:      m.Reference,
		IdempotencyKey: m.IdempotencyKey,
		CreatedAt:      now,
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_transactions (id, player_id, type, amount_cents, available_after, held_after, reference, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, record.ID, record.PlayerID, record.Type, record.AmountCents, record.AvailableAfter,
		record.HeldAfter, record.Reference, nullString(record.IdempotencyKey), record.CreatedAt); err != nil {
		return nil, fmt.Errorf("record transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return record, nil
}

func (p *PostgresStore) ListTransactions(ctx context.Context, playerID string, limit int, before *time.Time) ([]*Transaction, error) {
	query := `
		SELECT id, player_id, type, amount_cents, available_after, held_after, reference, idempotency_key, created_at
		FROM wallet_transactions WHERE player_id = $1`
	args := []any{playerID}
	if before != nil {
		args = append(args, *before)
		query += fmt.Sprintf(" AND created_at < $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var txs []*Transaction
	for rows.Next() {
		t, err := scanTx(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (p *PostgresStore) GetByIdempotencyKey(ctx context.Context, playerID, key string) (*Transaction, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, player_id, type, amount_cents, available_after, held_after, reference, idempotency_key, created_at
		FROM wallet_transactions WHERE player_id = $1 AND idempotency_key = $2
	`, playerID, key)
	t, err := scanTx(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTxNotFound
	}
	return t, err
}

func (p *PostgresStore) SumSince(ctx context.Context, playerID, txType string, since time.Time) (int64, error) {
	var total sql.NullInt64
	err := p.db.QueryRowContext(ctx, `
		SELECT SUM(amount_cents) FROM wallet_transactions
		WHERE player_id = $1 AND type = $2 AND created_at >= $3
	`, playerID, txType, since).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}

func (p *PostgresStore) AggregateSince(ctx context.Context, since time.Time) (*Aggregates, error) {
	agg := &Aggregates{}
	err := p.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(amount_cents) FILTER (WHERE type = $2), 0),
			COALESCE(SUM(amount_cents) FILTER (WHERE type = $3), 0),
			COALESCE(SUM(amount_cents) FILTER (WHERE type = $4), 0),
			COALESCE(SUM(amount_cents) FILTER (WHERE type = $5), 0),
			COALESCE(SUM(amount_cents) FILTER (WHERE type = $6), 0),
			COUNT(DISTINCT player_id)
		FROM wallet_transactions WHERE created_at >= $1
	`, since, TxDeposit, TxPayout, TxAdminCredit, TxAdminDebit, TxBonus).Scan(
		&agg.DepositCents, &agg.PayoutCents, &agg.CreditCents,
		&agg.DebitCents, &agg.BonusCents, &agg.ActivePlayers)
	if err != nil {
		return nil, err
	}
	if err := p.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(held_cents), 0) FROM wallet_balances
	`).Scan(&agg.HeldNowCents); err != nil {
		return nil, err
	}
	return agg, nil
}

// Migrate creates the wallet tables if they don't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS wallet_balances (
			player_id        VARCHAR(36) PRIMARY KEY,
			available_cents  BIGINT NOT NULL DEFAULT 0,
			held_cents       BIGINT NOT NULL DEFAULT 0,
			bonus_cents      BIGINT NOT NULL DEFAULT 0,
			currency         VARCHAR(8) NOT NULL DEFAULT 'USD',
			updated_at       TIMESTAMPTZ DEFAULT NOW(),
			CHECK (available_cents >= 0),
			CHECK (held_cents >= 0),
			CHECK (bonus_cents >= 0)
		);
		CREATE TABLE IF NOT EXISTS wallet_transactions (
			id               VARCHAR(36) PRIMARY KEY,
			player_id        VARCHAR(36) NOT NULL,
			type             VARCHAR(24) NOT NULL,
			amount_cents     BIGINT NOT NULL,
			available_after  BIGINT NOT NULL,
			held_after       BIGINT NOT NULL,
			reference        VARCHAR(128),
			idempotency_key  VARCHAR(128),
			created_at       TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_wallet_tx_player ON wallet_transactions(player_id, created_at DESC);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_wallet_tx_idem ON wallet_transactions(player_id, idempotency_key)
			WHERE idempotency_key IS NOT NULL;
	`)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTx(row rowScanner) (*Transaction, error) {
	t := &Transaction{}
	var reference, idemKey sql.NullString
	if err := row.Scan(&t.ID, &t.PlayerID, &t.Type, &t.AmountCents, &t.AvailableAfter,
		&t.HeldAfter, &reference, &idemKey, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Reference = reference.String
	t.IdempotencyKey = idemKey.String
	return t, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Store = (*PostgresStore)(nil)
