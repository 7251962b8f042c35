package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *Manager {
	return NewManager(NewMemoryStore(), "test-secret", time.Hour)
}

func TestCreateAdmin_And_Authenticate(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	admin, err := m.CreateAdmin(ctx, "Ops@Example.com", "hunter22", RoleOps, "")
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", admin.Email)
	assert.Equal(t, RoleOps, admin.Role)
	assert.Equal(t, "active", admin.Status)
	assert.NotEqual(t, "hunter22", admin.PasswordHash)

	token, got, err := m.Authenticate(ctx, "ops@example.com", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, admin.ID, got.ID)

	_, _, err = m.Authenticate(ctx, "ops@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = m.Authenticate(ctx, "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateAdmin_DuplicateEmail(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	_, err := m.CreateAdmin(ctx, "a@b.c", "password1", RoleAdmin, "")
	require.NoError(t, err)

	_, err = m.CreateAdmin(ctx, "a@b.c", "password2", RoleOps, "")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestCreateAdmin_UnknownRole(t *testing.T) {
	m := newTestManager()

	_, err := m.CreateAdmin(context.Background(), "a@b.c", "password1", Role("viewer"), "")
	assert.Error(t, err)
}

func TestValidateAdminToken(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	admin, err := m.CreateAdmin(ctx, "a@b.c", "password1", RoleAdmin, "ten_1")
	require.NoError(t, err)

	token, err := m.IssueAdminToken(admin)
	require.NoError(t, err)

	got, claims, err := m.ValidateAdminToken(ctx, "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, got.ID)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.Equal(t, "ten_1", claims.TenantID)
}

func TestValidateAdminToken_RejectsPlayerAudience(t *testing.T) {
	m := newTestManager()

	token, err := m.IssuePlayerToken("pl_1", "", 0)
	require.NoError(t, err)

	_, _, err = m.ValidateAdminToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateAdminToken_RejectsWrongSecret(t *testing.T) {
	m := newTestManager()
	other := NewManager(NewMemoryStore(), "other-secret", time.Hour)

	admin, _ := m.CreateAdmin(context.Background(), "a@b.c", "password1", RoleAdmin, "")
	token, _ := other.IssueAdminToken(admin)

	_, _, err := m.ValidateAdminToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBumpTokenVersion_InvalidatesOutstandingTokens(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	admin, _ := m.CreateAdmin(ctx, "a@b.c", "password1", RoleAdmin, "")
	token, _ := m.IssueAdminToken(admin)

	_, _, err := m.ValidateAdminToken(ctx, token)
	require.NoError(t, err)

	require.NoError(t, m.BumpTokenVersion(ctx, admin.ID))

	_, _, err = m.ValidateAdminToken(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticate_SuspendedAdmin(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	admin, _ := m.CreateAdmin(ctx, "a@b.c", "password1", RoleAdmin, "")
	token, _ := m.IssueAdminToken(admin)

	admin.Status = "suspended"
	require.NoError(t, m.Store().Update(ctx, admin))

	_, _, err := m.Authenticate(ctx, "a@b.c", "password1")
	assert.ErrorIs(t, err, ErrAdminSuspended)

	// Existing sessions die too.
	_, _, err = m.ValidateAdminToken(ctx, token)
	assert.ErrorIs(t, err, ErrAdminSuspended)
}
