package crm

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// PostgresStore persists CRM entities in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed CRM store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const campaignCols = `id, name, channel, segment_id, template_id, status, schedule_at, sent_at, resolved_count, created_at, updated_at`

func (p *PostgresStore) CreateCampaign(ctx context.Context, cp *Campaign) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO crm_campaigns (`+campaignCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, cp.ID, cp.Name, cp.Channel, cp.SegmentID, cp.TemplateID, cp.Status,
		cp.ScheduleAt, cp.SentAt, cp.ResolvedCount, cp.CreatedAt, cp.UpdatedAt)
	return err
}

func (p *PostgresStore) GetCampaign(ctx context.Context, id string) (*Campaign, error) {
	return scanCRMCampaign(p.db.QueryRowContext(ctx, `SELECT `+campaignCols+` FROM crm_campaigns WHERE id = $1`, id))
}

func (p *PostgresStore) UpdateCampaign(ctx context.Context, cp *Campaign) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE crm_campaigns
		SET name = $1, status = $2, schedule_at = $3, sent_at = $4, resolved_count = $5, updated_at = $6
		WHERE id = $7
	`, cp.Name, cp.Status, cp.ScheduleAt, cp.SentAt, cp.ResolvedCount, cp.UpdatedAt, cp.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) ListCampaigns(ctx context.Context) ([]*Campaign, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+campaignCols+` FROM crm_campaigns ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Campaign
	for rows.Next() {
		cp, err := scanCRMCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}

func (p *PostgresStore) CreateSegment(ctx context.Context, sg *Segment) error {
	filter, err := json.Marshal(sg.Filter)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO crm_segments (id, name, filter, created_at)
		VALUES ($1, $2, $3, $4)
	`, sg.ID, sg.Name, filter, sg.CreatedAt)
	return err
}

func (p *PostgresStore) GetSegment(ctx context.Context, id string) (*Segment, error) {
	sg := &Segment{}
	var filter []byte
	err := p.db.QueryRowContext(ctx, `
		SELECT id, name, filter, created_at FROM crm_segments WHERE id = $1
	`, id).Scan(&sg.ID, &sg.Name, &filter, &sg.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(filter, &sg.Filter); err != nil {
		return nil, err
	}
	return sg, nil
}

func (p *PostgresStore) ListSegments(ctx context.Context) ([]*Segment, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, name, filter, created_at FROM crm_segments ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Segment
	for rows.Next() {
		sg := &Segment{}
		var filter []byte
		if err := rows.Scan(&sg.ID, &sg.Name, &filter, &sg.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(filter, &sg.Filter); err != nil {
			return nil, err
		}
		out = append(out, sg)
	}
	return out, rows.Err()
}

func (p *PostgresStore) CreateTemplate(ctx context.Context, t *Template) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO crm_templates (id, name, channel, subject, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, t.ID, t.Name, t.Channel, t.Subject, t.Body, t.CreatedAt)
	return err
}

func (p *PostgresStore) GetTemplate(ctx context.Context, id string) (*Template, error) {
	t := &Template{}
	err := p.db.QueryRowContext(ctx, `
		SELECT id, name, channel, subject, body, created_at FROM crm_templates WHERE id = $1
	`, id).Scan(&t.ID, &t.Name, &t.Channel, &t.Subject, &t.Body, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (p *PostgresStore) ListTemplates(ctx context.Context) ([]*Template, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, name, channel, subject, body, created_at FROM crm_templates ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Template
	for rows.Next() {
		t := &Template{}
		if err := rows.Scan(&t.ID, &t.Name, &t.Channel, &t.Subject, &t.Body, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Migrate creates the CRM tables if they don't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS crm_campaigns (
			id              VARCHAR(36) PRIMARY KEY,
			name            VARCHAR(255) NOT NULL,
			channel         VARCHAR(16) NOT NULL,
			segment_id      VARCHAR(36) NOT NULL,
			template_id     VARCHAR(36) NOT NULL,
			status          VARCHAR(16) NOT NULL DEFAULT 'draft',
			schedule_at     TIMESTAMPTZ,
			sent_at         TIMESTAMPTZ,
			resolved_count  INT NOT NULL DEFAULT 0,
			created_at      TIMESTAMPTZ DEFAULT NOW(),
			updated_at      TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS crm_segments (
			id          VARCHAR(36) PRIMARY KEY,
			name        VARCHAR(255) NOT NULL,
			filter      JSONB NOT NULL DEFAULT '{}',
			created_at  TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS crm_templates (
			id          VARCHAR(36) PRIMARY KEY,
			name        VARCHAR(255) NOT NULL,
			channel     VARCHAR(16) NOT NULL,
			subject     VARCHAR(255),
			body        TEXT NOT NULL,
			created_at  TIMESTAMPTZ DEFAULT NOW()
		)
	`)
	return err
}

func scanCRMCampaign(row interface{ Scan(...any) error }) (*Campaign, error) {
	cp := &Campaign{}
	var scheduleAt, sentAt sql.NullTime
	err := row.Scan(&cp.ID, &cp.Name, &cp.Channel, &cp.SegmentID, &cp.TemplateID, &cp.Status,
		&scheduleAt, &sentAt, &cp.ResolvedCount, &cp.CreatedAt, &cp.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if scheduleAt.Valid {
		cp.ScheduleAt = &scheduleAt.Time
	}
	if sentAt.Valid {
		cp.SentAt = &sentAt.Time
	}
	return cp, nil
}

var _ Store = (*PostgresStore)(nil)
