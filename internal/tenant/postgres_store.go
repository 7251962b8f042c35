package tenant

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/lib/pq"
)

// PostgresStore persists tenants in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed tenant store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const tenantCols = `id, name, slug, type, status, features, menu_flags, payments, created_at, updated_at`

func (p *PostgresStore) Create(ctx context.Context, t *Tenant) error {
	features, menuFlags, payments, err := marshalTenant(t)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO tenants (`+tenantCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, t.ID, t.Name, t.Slug, t.Type, t.Status, features, menuFlags, payments, t.CreatedAt, t.UpdatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrSlugTaken
	}
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Tenant, error) {
	return scanTenant(p.db.QueryRowContext(ctx, `SELECT `+tenantCols+` FROM tenants WHERE id = $1`, id))
}

func (p *PostgresStore) GetBySlug(ctx context.Context, slug string) (*Tenant, error) {
	return scanTenant(p.db.QueryRowContext(ctx, `SELECT `+tenantCols+` FROM tenants WHERE slug = $1`, slug))
}

func (p *PostgresStore) Update(ctx context.Context, t *Tenant) error {
	features, menuFlags, payments, err := marshalTenant(t)
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx, `
		UPDATE tenants
		SET name = $1, type = $2, status = $3, features = $4, menu_flags = $5,
		    payments = $6, updated_at = $7
		WHERE id = $8
	`, t.Name, t.Type, t.Status, features, menuFlags, payments, t.UpdatedAt, t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) List(ctx context.Context) ([]*Tenant, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+tenantCols+` FROM tenants ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Migrate creates the tenant table if it doesn't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tenants (
			id          VARCHAR(36) PRIMARY KEY,
			name        VARCHAR(255) NOT NULL,
			slug        VARCHAR(64) UNIQUE NOT NULL,
			type        VARCHAR(16) NOT NULL,
			status      VARCHAR(16) NOT NULL DEFAULT 'active',
			features    JSONB NOT NULL DEFAULT '{}',
			menu_flags  JSONB NOT NULL DEFAULT '{}',
			payments    JSONB NOT NULL DEFAULT '{}',
			created_at  TIMESTAMPTZ DEFAULT NOW(),
			updated_at  TIMESTAMPTZ DEFAULT NOW()
		)
	`)
	return err
}

func marshalTenant(t *Tenant) (features, menuFlags, payments []byte, err error) {
	if features, err = json.Marshal(t.Features); err != nil {
		return
	}
	if menuFlags, err = json.Marshal(t.MenuFlags); err != nil {
		return
	}
	payments, err = json.Marshal(t.Payments)
	return
}

func scanTenant(row interface{ Scan(...any) error }) (*Tenant, error) {
	t := &Tenant{}
	var features, menuFlags, payments []byte
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Type, &t.Status, &features, &menuFlags, &payments,
		&t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(features, &t.Features); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(menuFlags, &t.MenuFlags); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payments, &t.Payments); err != nil {
		return nil, err
	}
	return t, nil
}

var _ Store = (*PostgresStore)(nil)
