package auth

import (
	"context"
	"database/sql"
	"strings"
)

// PostgresStore persists admin users in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed admin store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Create(ctx context.Context, a *AdminUser) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO admin_users (id, email, password_hash, role, tenant_id, status, token_version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, a.ID, strings.ToLower(a.Email), a.PasswordHash, a.Role, nullable(a.TenantID), a.Status, a.TokenVersion, a.CreatedAt, a.UpdatedAt)
	if err != nil && strings.Contains(err.Error(), "duplicate key") {
		return ErrEmailTaken
	}
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*AdminUser, error) {
	return p.scanOne(p.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, role, tenant_id, status, token_version, created_at, updated_at
		FROM admin_users WHERE id = $1
	`, id))
}

func (p *PostgresStore) GetByEmail(ctx context.Context, email string) (*AdminUser, error) {
	return p.scanOne(p.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, role, tenant_id, status, token_version, created_at, updated_at
		FROM admin_users WHERE email = $1
	`, strings.ToLower(email)))
}

func (p *PostgresStore) Update(ctx context.Context, a *AdminUser) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE admin_users
		SET role = $1, tenant_id = $2, status = $3, token_version = $4, password_hash = $5, updated_at = $6
		WHERE id = $7
	`, a.Role, nullable(a.TenantID), a.Status, a.TokenVersion, a.PasswordHash, a.UpdatedAt, a.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAdminNotFound
	}
	return nil
}

func (p *PostgresStore) List(ctx context.Context) ([]*AdminUser, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, email, password_hash, role, tenant_id, status, token_version, created_at, updated_at
		FROM admin_users ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var admins []*AdminUser
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		admins = append(admins, a)
	}
	return admins, rows.Err()
}

// Migrate creates the admin_users table if it doesn't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS admin_users (
			id             VARCHAR(36) PRIMARY KEY,
			email          VARCHAR(255) NOT NULL UNIQUE,
			password_hash  VARCHAR(100) NOT NULL,
			role           VARCHAR(32) NOT NULL,
			tenant_id      VARCHAR(36),
			status         VARCHAR(16) NOT NULL DEFAULT 'active',
			token_version  INT NOT NULL DEFAULT 0,
			created_at     TIMESTAMPTZ DEFAULT NOW(),
			updated_at     TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_admin_users_email ON admin_users(email);
	`)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (p *PostgresStore) scanOne(row rowScanner) (*AdminUser, error) {
	a, err := scanAdmin(row)
	if err == sql.ErrNoRows {
		return nil, ErrAdminNotFound
	}
	return a, err
}

func scanAdmin(row rowScanner) (*AdminUser, error) {
	a := &AdminUser{}
	var tenantID sql.NullString
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Role, &tenantID, &a.Status, &a.TokenVersion, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if tenantID.Valid {
		a.TenantID = tenantID.String
	}
	return a, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Store = (*PostgresStore)(nil)
