// Package player manages player accounts: registration, sessions,
// lifecycle (suspend/unsuspend), force-logout, and operator notes.
package player

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/idgen"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/logging"
)

// Errors
var (
	ErrNotFound           = errors.New("player: not found")
	ErrEmailTaken         = errors.New("player: email already registered")
	ErrInvalidCredentials = errors.New("player: invalid credentials")
	ErrSuspended          = errors.New("player: account suspended")
	ErrStateMismatch      = errors.New("player: account already in requested state")
)

// Lifecycle statuses.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

// Player is one player account.
type Player struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenant_id,omitempty"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Status       string     `json:"status"`
	KYCStatus    string     `json:"kyc_status"`
	Country      string     `json:"country,omitempty"`
	VIPLevel     int        `json:"vip_level"`
	RiskScore    int        `json:"risk_score"`
	TokenVersion int        `json:"-"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Note is an operator note attached to a player.
type Note struct {
	ID          string    `json:"id"`
	PlayerID    string    `json:"player_id"`
	AuthorID    string    `json:"author_id"`
	AuthorEmail string    `json:"author_email"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
}

// Filter narrows player list queries.
type Filter struct {
	TenantID string
	Status   string
	Country  string
	VIPMin   int
	// Query matches email or username substrings.
	Query  string
	Limit  int
	Before *time.Time
}

// Store persists players and notes.
type Store interface {
	Create(ctx context.Context, p *Player) error
	Get(ctx context.Context, id string) (*Player, error)
	GetByEmail(ctx context.Context, email string) (*Player, error)
	Update(ctx context.Context, p *Player) error
	List(ctx context.Context, f Filter) ([]*Player, error)

	AddNote(ctx context.Context, n *Note) error
	ListNotes(ctx context.Context, playerID string) ([]*Note, error)
}

// Service implements player account logic.
type Service struct {
	store Store
}

// NewService creates a player service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Register creates a new player account.
func (s *Service) Register(ctx context.Context, tenantID, email, username, password string) (*Player, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	if _, err := s.store.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &Player{
		ID:           idgen.WithPrefix(idgen.PrefixPlayer),
		TenantID:     tenantID,
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		Status:       StatusActive,
		KYCStatus:    "none",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	logging.L(ctx).Info("player registered", "player_id", p.ID, "tenant_id", tenantID)
	return p, nil
}

// Authenticate verifies email+password for a player login.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Player, error) {
	p, err := s.store.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$0000000000000000000000"), []byte(password))
		return nil, ErrInvalidCredentials
	}
	if p.Status != StatusActive {
		return nil, ErrSuspended
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	p.LastLoginAt = &now
	p.UpdatedAt = now
	_ = s.store.Update(ctx, p)
	return p, nil
}

// Get returns one player.
func (s *Service) Get(ctx context.Context, id string) (*Player, error) {
	return s.store.Get(ctx, id)
}

// List returns players matching the filter, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]*Player, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	return s.store.List(ctx, f)
}

// Suspend blocks a player from logging in and playing. Suspending an
// already-suspended player is a state mismatch, not a no-op, so the
// console surfaces stale views instead of hiding them.
func (s *Service) Suspend(ctx context.Context, id string) (*Player, error) {
	return s.setStatus(ctx, id, StatusSuspended)
}

// Unsuspend reactivates a suspended player.
func (s *Service) Unsuspend(ctx context.Context, id string) (*Player, error) {
	return s.setStatus(ctx, id, StatusActive)
}

func (s *Service) setStatus(ctx context.Context, id, status string) (*Player, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status == status {
		return nil, ErrStateMismatch
	}
	p.Status = status
	p.TokenVersion++ // kill live sessions on any lifecycle flip
	p.UpdatedAt = time.Now().UTC()
	if err := s.store.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ForceLogout invalidates all outstanding sessions for a player.
func (s *Service) ForceLogout(ctx context.Context, id string) (*Player, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.TokenVersion++
	p.UpdatedAt = time.Now().UTC()
	if err := s.store.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// TokenVersion implements auth.PlayerVersionChecker. Suspended players
// resolve to not-found so their sessions die immediately.
func (s *Service) TokenVersion(playerID string) (int, bool) {
	p, err := s.store.Get(context.Background(), playerID)
	if err != nil || p.Status != StatusActive {
		return 0, false
	}
	return p.TokenVersion, true
}

// SetKYCStatus records the player's verification status (driven by the
// KYC review pipeline).
func (s *Service) SetKYCStatus(ctx context.Context, playerID, status string) error {
	p, err := s.store.Get(ctx, playerID)
	if err != nil {
		return err
	}
	p.KYCStatus = status
	p.UpdatedAt = time.Now().UTC()
	return s.store.Update(ctx, p)
}

// AddNote attaches an operator note to a player.
func (s *Service) AddNote(ctx context.Context, playerID, authorID, authorEmail, body string) (*Note, error) {
	if _, err := s.store.Get(ctx, playerID); err != nil {
		return nil, err
	}
	n := &Note{
		ID:          idgen.New(),
		PlayerID:    playerID,
		AuthorID:    authorID,
		AuthorEmail: authorEmail,
		Body:        body,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.AddNote(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// SetProfile updates the operator-managed profile fields: country,
// VIP tier, and risk score.
func (s *Service) SetProfile(ctx context.Context, playerID, country string, vipLevel, riskScore int) (*Player, error) {
	p, err := s.store.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}
	p.Country = strings.ToUpper(strings.TrimSpace(country))
	p.VIPLevel = vipLevel
	p.RiskScore = riskScore
	p.UpdatedAt = time.Now().UTC()
	if err := s.store.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListNotes returns a player's notes, newest first.
func (s *Service) ListNotes(ctx context.Context, playerID string) ([]*Note, error) {
	return s.store.ListNotes(ctx, playerID)
}
