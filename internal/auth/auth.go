// Package auth provides admin and player authentication for the platform.
//
// Authentication model:
//   - Admins log in with email+password and receive a JWT (aud "admin").
//   - Players log in through the player app and receive a JWT (aud "player").
//   - Tokens carry a token_version; bumping the stored version invalidates
//     all outstanding tokens (force-logout).
//
// Authorization is role-based. Roles map to capability sets checked
// server-side on every mutating route; the console's button-hiding is
// cosmetic on top of this.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/idgen"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrInvalidToken       = errors.New("auth: invalid or expired token")
	ErrAdminNotFound      = errors.New("auth: admin not found")
	ErrEmailTaken         = errors.New("auth: email already registered")
	ErrAdminSuspended     = errors.New("auth: admin account suspended")
)

// Token audiences.
const (
	AudienceAdmin  = "admin"
	AudiencePlayer = "player"
)

// AdminUser is a console operator account.
type AdminUser struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	TenantID     string    `json:"tenant_id,omitempty"`
	Status       string    `json:"status"` // active | suspended
	TokenVersion int       `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store persists admin users.
type Store interface {
	Create(ctx context.Context, a *AdminUser) error
	Get(ctx context.Context, id string) (*AdminUser, error)
	GetByEmail(ctx context.Context, email string) (*AdminUser, error)
	Update(ctx context.Context, a *AdminUser) error
	List(ctx context.Context) ([]*AdminUser, error)
}

// Claims are the JWT claims issued by the platform.
type Claims struct {
	Role         Role   `json:"role,omitempty"`
	TenantID     string `json:"tenant_id,omitempty"`
	TokenVersion int    `json:"tv"`
	jwt.RegisteredClaims
}

// Manager issues and validates tokens and manages admin accounts.
type Manager struct {
	store  Store
	secret []byte
	ttl    time.Duration
}

// NewManager creates an auth manager.
func NewManager(store Store, secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{store: store, secret: []byte(secret), ttl: ttl}
}

// Store exposes the underlying admin store (server wiring, tests).
func (m *Manager) Store() Store { return m.store }

// CreateAdmin registers a new admin account with a bcrypt-hashed password.
func (m *Manager) CreateAdmin(ctx context.Context, email, password string, role Role, tenantID string) (*AdminUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	if !ValidRole(role) {
		return nil, errors.New("auth: unknown role")
	}

	if _, err := m.store.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	admin := &AdminUser{
		ID:           idgen.WithPrefix(idgen.PrefixAdmin),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		TenantID:     tenantID,
		Status:       "active",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := m.store.Create(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}

// Authenticate verifies email+password and returns a signed admin token.
func (m *Manager) Authenticate(ctx context.Context, email, password string) (string, *AdminUser, error) {
	admin, err := m.store.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		// Burn a comparison anyway to keep timing uniform.
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$0000000000000000000000"), []byte(password))
		return "", nil, ErrInvalidCredentials
	}
	if admin.Status != "active" {
		return "", nil, ErrAdminSuspended
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := m.IssueAdminToken(admin)
	if err != nil {
		return "", nil, err
	}
	return token, admin, nil
}

// IssueAdminToken signs a token for an admin account.
func (m *Manager) IssueAdminToken(admin *AdminUser) (string, error) {
	return m.sign(Claims{
		Role:         admin.Role,
		TenantID:     admin.TenantID,
		TokenVersion: admin.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   admin.ID,
			Audience:  jwt.ClaimStrings{AudienceAdmin},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
}

// IssuePlayerToken signs a token for a player session.
func (m *Manager) IssuePlayerToken(playerID, tenantID string, tokenVersion int) (string, error) {
	return m.sign(Claims{
		TenantID:     tenantID,
		TokenVersion: tokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   playerID,
			Audience:  jwt.ClaimStrings{AudiencePlayer},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
}

func (m *Manager) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseToken validates a raw bearer token and returns its claims.
func (m *Manager) ParseToken(raw string) (*Claims, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	if raw == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateAdminToken parses an admin token and resolves the account,
// rejecting stale token versions (force-logout) and suspended accounts.
func (m *Manager) ValidateAdminToken(ctx context.Context, raw string) (*AdminUser, *Claims, error) {
	claims, err := m.ParseToken(raw)
	if err != nil {
		return nil, nil, err
	}
	if !hasAudience(claims, AudienceAdmin) {
		return nil, nil, ErrInvalidToken
	}
	admin, err := m.store.Get(ctx, claims.Subject)
	if err != nil {
		return nil, nil, ErrInvalidToken
	}
	if admin.Status != "active" {
		return nil, nil, ErrAdminSuspended
	}
	if admin.TokenVersion != claims.TokenVersion {
		return nil, nil, ErrInvalidToken
	}
	return admin, claims, nil
}

// BumpTokenVersion invalidates all outstanding tokens for an admin.
func (m *Manager) BumpTokenVersion(ctx context.Context, adminID string) error {
	admin, err := m.store.Get(ctx, adminID)
	if err != nil {
		return err
	}
	admin.TokenVersion++
	admin.UpdatedAt = time.Now().UTC()
	return m.store.Update(ctx, admin)
}

func hasAudience(c *Claims, want string) bool {
	for _, a := range c.Audience {
		if a == want {
			return true
		}
	}
	return false
}
