package affiliate

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// PostgresStore persists affiliate data in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed affiliate store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Create(ctx context.Context, a *Affiliate) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO affiliates (id, name, email, status, commission_bps, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.Name, a.Email, a.Status, a.CommissionBps, a.CreatedAt, a.UpdatedAt)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Affiliate, error) {
	a := &Affiliate{}
	err := p.db.QueryRowContext(ctx, `
		SELECT id, name, email, status, commission_bps, created_at, updated_at
		FROM affiliates WHERE id = $1
	`, id).Scan(&a.ID, &a.Name, &a.Email, &a.Status, &a.CommissionBps, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (p *PostgresStore) Update(ctx context.Context, a *Affiliate) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE affiliates SET name = $1, email = $2, status = $3, commission_bps = $4, updated_at = $5
		WHERE id = $6
	`, a.Name, a.Email, a.Status, a.CommissionBps, a.UpdatedAt, a.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) List(ctx context.Context) ([]*Affiliate, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, email, status, commission_bps, created_at, updated_at
		FROM affiliates ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Affiliate
	for rows.Next() {
		a := &Affiliate{}
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.Status, &a.CommissionBps, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (p *PostgresStore) CreateLink(ctx context.Context, l *Link) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO affiliate_links (id, affiliate_id, code, clicks, signups, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, l.ID, l.AffiliateID, l.Code, l.Clicks, l.Signups, l.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrCodeTaken
	}
	return err
}

func (p *PostgresStore) GetLinkByCode(ctx context.Context, code string) (*Link, error) {
	l := &Link{}
	err := p.db.QueryRowContext(ctx, `
		SELECT id, affiliate_id, code, clicks, signups, created_at
		FROM affiliate_links WHERE code = $1
	`, code).Scan(&l.ID, &l.AffiliateID, &l.Code, &l.Clicks, &l.Signups, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (p *PostgresStore) ListLinks(ctx context.Context, affiliateID string) ([]*Link, error) {
	query := `SELECT id, affiliate_id, code, clicks, signups, created_at FROM affiliate_links`
	var args []any
	if affiliateID != "" {
		query += ` WHERE affiliate_id = $1`
		args = append(args, affiliateID)
	}
	query += ` ORDER BY created_at`

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Link
	for rows.Next() {
		l := &Link{}
		if err := rows.Scan(&l.ID, &l.AffiliateID, &l.Code, &l.Clicks, &l.Signups, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (p *PostgresStore) IncrementClick(ctx context.Context, code string) error {
	return p.increment(ctx, code, "clicks")
}

func (p *PostgresStore) IncrementSignup(ctx context.Context, code string) error {
	return p.increment(ctx, code, "signups")
}

func (p *PostgresStore) increment(ctx context.Context, code, column string) error {
	// column is one of two fixed identifiers, never user input
	res, err := p.db.ExecContext(ctx, `UPDATE affiliate_links SET `+column+` = `+column+` + 1 WHERE code = $1`, code)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) CreatePayout(ctx context.Context, pay *Payout) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO affiliate_payouts (id, affiliate_id, amount_cents, period, status, paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, pay.ID, pay.AffiliateID, pay.AmountCents, pay.Period, pay.Status, pay.PaidAt, pay.CreatedAt)
	return err
}

func (p *PostgresStore) GetPayout(ctx context.Context, id string) (*Payout, error) {
	pay := &Payout{}
	var paidAt sql.NullTime
	err := p.db.QueryRowContext(ctx, `
		SELECT id, affiliate_id, amount_cents, period, status, paid_at, created_at
		FROM affiliate_payouts WHERE id = $1
	`, id).Scan(&pay.ID, &pay.AffiliateID, &pay.AmountCents, &pay.Period, &pay.Status, &paidAt, &pay.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if paidAt.Valid {
		pay.PaidAt = &paidAt.Time
	}
	return pay, nil
}

func (p *PostgresStore) UpdatePayout(ctx context.Context, pay *Payout) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE affiliate_payouts SET status = $1, paid_at = $2 WHERE id = $3
	`, pay.Status, pay.PaidAt, pay.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) ListPayouts(ctx context.Context, affiliateID string) ([]*Payout, error) {
	query := `SELECT id, affiliate_id, amount_cents, period, status, paid_at, created_at FROM affiliate_payouts`
	var args []any
	if affiliateID != "" {
		query += ` WHERE affiliate_id = $1`
		args = append(args, affiliateID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Payout
	for rows.Next() {
		pay := &Payout{}
		var paidAt sql.NullTime
		if err := rows.Scan(&pay.ID, &pay.AffiliateID, &pay.AmountCents, &pay.Period, &pay.Status, &paidAt, &pay.CreatedAt); err != nil {
			return nil, err
		}
		if paidAt.Valid {
			pay.PaidAt = &paidAt.Time
		}
		out = append(out, pay)
	}
	return out, rows.Err()
}

// Migrate creates the affiliate tables if they don't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS affiliates (
			id              VARCHAR(36) PRIMARY KEY,
			name            VARCHAR(255) NOT NULL,
			email           VARCHAR(255) NOT NULL,
			status          VARCHAR(16) NOT NULL DEFAULT 'active',
			commission_bps  INT NOT NULL DEFAULT 0,
			created_at      TIMESTAMPTZ DEFAULT NOW(),
			updated_at      TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS affiliate_links (
			id            VARCHAR(36) PRIMARY KEY,
			affiliate_id  VARCHAR(36) NOT NULL REFERENCES affiliates(id),
			code          VARCHAR(64) UNIQUE NOT NULL,
			clicks        BIGINT NOT NULL DEFAULT 0,
			signups       BIGINT NOT NULL DEFAULT 0,
			created_at    TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS affiliate_payouts (
			id            VARCHAR(36) PRIMARY KEY,
			affiliate_id  VARCHAR(36) NOT NULL REFERENCES affiliates(id),
			amount_cents  BIGINT NOT NULL,
			period        VARCHAR(16) NOT NULL,
			status        VARCHAR(16) NOT NULL DEFAULT 'pending',
			paid_at       TIMESTAMPTZ,
			created_at    TIMESTAMPTZ DEFAULT NOW()
		)
	`)
	return err
}

var _ Store = (*PostgresStore)(nil)
