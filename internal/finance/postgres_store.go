package finance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresStore persists withdrawals in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed finance store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const withdrawalCols = `id, player_id, tenant_id, amount_cents, state, method, reviewed_by, reviewed_at, reason, payout_attempts, provider_ref, paid_at, created_at, updated_at`

func (p *PostgresStore) Create(ctx context.Context, w *Withdrawal) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO withdrawals (`+withdrawalCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, w.ID, w.PlayerID, nullString(w.TenantID), w.AmountCents, w.State, nullString(w.Method),
		nullString(w.ReviewedBy), w.ReviewedAt, nullString(w.Reason), w.PayoutAttempts,
		nullString(w.ProviderRef), w.PaidAt, w.CreatedAt, w.UpdatedAt)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Withdrawal, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+withdrawalCols+` FROM withdrawals WHERE id = $1`, id)
	w, err := scanWithdrawal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return w, err
}

func (p *PostgresStore) Update(ctx context.Context, w *Withdrawal) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE withdrawals
		SET state = $1, reviewed_by = $2, reviewed_at = $3, reason = $4,
		    payout_attempts = $5, provider_ref = $6, paid_at = $7, updated_at = $8
		WHERE id = $9
	`, w.State, nullString(w.ReviewedBy), w.ReviewedAt, nullString(w.Reason),
		w.PayoutAttempts, nullString(w.ProviderRef), w.PaidAt, w.UpdatedAt, w.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) List(ctx context.Context, f Filter) ([]*Withdrawal, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + withdrawalCols + ` FROM withdrawals WHERE 1=1`
	var args []any
	if f.State != "" {
		args = append(args, f.State)
		query += fmt.Sprintf(" AND state = $%d", len(args))
	}
	if f.PlayerID != "" {
		args = append(args, f.PlayerID)
		query += fmt.Sprintf(" AND player_id = $%d", len(args))
	}
	if f.TenantID != "" {
		args = append(args, f.TenantID)
		query += fmt.Sprintf(" AND tenant_id = $%d", len(args))
	}
	if f.Before != nil {
		args = append(args, *f.Before)
		query += fmt.Sprintf(" AND created_at < $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (p *PostgresStore) GetIdempotency(ctx context.Context, key string) (*IdempotencyRecord, error) {
	rec := &IdempotencyRecord{}
	err := p.db.QueryRowContext(ctx, `
		SELECT key, withdrawal_id, state, created_at FROM payout_idempotency WHERE key = $1
	`, key).Scan(&rec.Key, &rec.WithdrawalID, &rec.State, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrIdempotencyNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (p *PostgresStore) PutIdempotency(ctx context.Context, rec *IdempotencyRecord) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO payout_idempotency (key, withdrawal_id, state, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO NOTHING
	`, rec.Key, rec.WithdrawalID, rec.State, rec.CreatedAt)
	return err
}

func (p *PostgresStore) MarkProviderEvent(ctx context.Context, eventID string) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO provider_events (event_id, seen_at)
		VALUES ($1, NOW())
		ON CONFLICT (event_id) DO NOTHING
	`, eventID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (p *PostgresStore) UnmarkProviderEvent(ctx context.Context, eventID string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM provider_events WHERE event_id = $1`, eventID)
	return err
}

// Migrate creates the finance tables if they don't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS withdrawals (
			id               VARCHAR(36) PRIMARY KEY,
			player_id        VARCHAR(36) NOT NULL,
			tenant_id        VARCHAR(36),
			amount_cents     BIGINT NOT NULL,
			state            VARCHAR(16) NOT NULL,
			method           VARCHAR(32),
			reviewed_by      VARCHAR(36),
			reviewed_at      TIMESTAMPTZ,
			reason           TEXT,
			payout_attempts  INT NOT NULL DEFAULT 0,
			provider_ref     VARCHAR(128),
			paid_at          TIMESTAMPTZ,
			created_at       TIMESTAMPTZ DEFAULT NOW(),
			updated_at       TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_withdrawals_state ON withdrawals(state, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_withdrawals_player ON withdrawals(player_id);
		CREATE TABLE IF NOT EXISTS payout_idempotency (
			key            VARCHAR(128) PRIMARY KEY,
			withdrawal_id  VARCHAR(36) NOT NULL,
			state          VARCHAR(16) NOT NULL,
			created_at     TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS provider_events (
			event_id  VARCHAR(128) PRIMARY KEY,
			seen_at   TIMESTAMPTZ DEFAULT NOW()
		);
	`)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWithdrawal(row rowScanner) (*Withdrawal, error) {
	w := &Withdrawal{}
	var tenantID, method, reviewedBy, reason, providerRef sql.NullString
	var reviewedAt, paidAt sql.NullTime
	if err := row.Scan(&w.ID, &w.PlayerID, &tenantID, &w.AmountCents, &w.State, &method,
		&reviewedBy, &reviewedAt, &reason, &w.PayoutAttempts, &providerRef, &paidAt,
		&w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	w.TenantID = tenantID.String
	w.Method = method.String
	w.ReviewedBy = reviewedBy.String
	w.Reason = reason.String
	w.ProviderRef = providerRef.String
	if reviewedAt.Valid {
		w.ReviewedAt = &reviewedAt.Time
	}
	if paidAt.Valid {
		w.PaidAt = &paidAt.Time
	}
	return w, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Store = (*PostgresStore)(nil)
