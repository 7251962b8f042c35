package bonus

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresStore persists campaigns in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed campaign store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const campaignCols = `id, tenant_id, name, type, percent_bps, amount_cents, wagering_multiplier, status, starts_at, ends_at, created_at, updated_at`

func (p *PostgresStore) Create(ctx context.Context, cp *Campaign) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO bonus_campaigns (`+campaignCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, cp.ID, nullIfEmpty(cp.TenantID), cp.Name, cp.Type, cp.PercentBps, cp.AmountCents,
		cp.WageringMultiplier, cp.Status, cp.StartsAt, cp.EndsAt, cp.CreatedAt, cp.UpdatedAt)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Campaign, error) {
	return scanCampaign(p.db.QueryRowContext(ctx, `SELECT `+campaignCols+` FROM bonus_campaigns WHERE id = $1`, id))
}

func (p *PostgresStore) Update(ctx context.Context, cp *Campaign) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE bonus_campaigns
		SET name = $1, percent_bps = $2, amount_cents = $3, wagering_multiplier = $4,
		    status = $5, starts_at = $6, ends_at = $7, updated_at = $8
		WHERE id = $9
	`, cp.Name, cp.PercentBps, cp.AmountCents, cp.WageringMultiplier, cp.Status,
		cp.StartsAt, cp.EndsAt, cp.UpdatedAt, cp.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) List(ctx context.Context, tenantID string) ([]*Campaign, error) {
	query := `SELECT ` + campaignCols + ` FROM bonus_campaigns`
	var args []any
	if tenantID != "" {
		query += ` WHERE tenant_id = $1`
		args = append(args, tenantID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Campaign
	for rows.Next() {
		cp, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}

// Migrate creates the campaign table if it doesn't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS bonus_campaigns (
			id                   VARCHAR(36) PRIMARY KEY,
			tenant_id            VARCHAR(36),
			name                 VARCHAR(255) NOT NULL,
			type                 VARCHAR(32) NOT NULL,
			percent_bps          INT NOT NULL DEFAULT 0,
			amount_cents         BIGINT NOT NULL DEFAULT 0,
			wagering_multiplier  INT NOT NULL DEFAULT 1,
			status               VARCHAR(16) NOT NULL DEFAULT 'draft',
			starts_at            TIMESTAMPTZ,
			ends_at              TIMESTAMPTZ,
			created_at           TIMESTAMPTZ DEFAULT NOW(),
			updated_at           TIMESTAMPTZ DEFAULT NOW()
		)
	`)
	return err
}

func scanCampaign(row interface{ Scan(...any) error }) (*Campaign, error) {
	cp := &Campaign{}
	var tenantID sql.NullString
	var startsAt, endsAt sql.NullTime
	err := row.Scan(&cp.ID, &tenantID, &cp.Name, &cp.Type, &cp.PercentBps, &cp.AmountCents,
		&cp.WageringMultiplier, &cp.Status, &startsAt, &endsAt, &cp.CreatedAt, &cp.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	cp.TenantID = tenantID.String
	if startsAt.Valid {
		cp.StartsAt = &startsAt.Time
	}
	if endsAt.Valid {
		cp.EndsAt = &endsAt.Time
	}
	return cp, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Store = (*PostgresStore)(nil)
