package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/apierr"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/logging"
)

// Gin context keys.
const (
	ContextKeyAdmin    = "authAdmin"
	ContextKeyClaims   = "authClaims"
	ContextKeyPlayerID = "authPlayerID"
	ContextKeyTenantID = "authTenantID"
)

// AdminMiddleware validates the bearer token as an admin session and
// stores the account on the context. Requests without a valid token are
// rejected; capability checks are layered per route group.
func AdminMiddleware(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("Authorization")
		admin, claims, err := m.ValidateAdminToken(c.Request.Context(), raw)
		if err != nil {
			apierr.Abort(c, apierr.New(apierr.CodeAuthInvalid, "Valid admin token required."))
			return
		}
		c.Set(ContextKeyAdmin, admin)
		c.Set(ContextKeyClaims, claims)
		c.Set(ContextKeyTenantID, admin.TenantID)
		c.Request = c.Request.WithContext(logging.WithActor(c.Request.Context(), admin.Email))
		c.Next()
	}
}

// RequireCapability rejects admins whose role lacks the capability.
// Enforcement lives here, not in the console's button hiding.
func RequireCapability(cap string) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := AdminFromContext(c)
		if !ok {
			apierr.Abort(c, apierr.New(apierr.CodeAuthInvalid, "Valid admin token required."))
			return
		}
		if !HasCapability(admin.Role, cap) {
			apierr.Abort(c, apierr.New(apierr.CodeForbidden, "Your role does not permit this action."))
			return
		}
		c.Next()
	}
}

// RequireOwner rejects non-owner roles (tenant management, feature flags).
func RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := AdminFromContext(c)
		if !ok {
			apierr.Abort(c, apierr.New(apierr.CodeAuthInvalid, "Valid admin token required."))
			return
		}
		if !IsOwner(admin.Role) {
			apierr.Abort(c, apierr.New(apierr.CodeForbidden, "Owner access required."))
			return
		}
		c.Next()
	}
}

// PlayerVersionChecker resolves a player's current token version so
// force-logout invalidates player sessions too.
type PlayerVersionChecker interface {
	TokenVersion(playerID string) (int, bool)
}

// PlayerMiddleware validates the bearer token as a player session.
func PlayerMiddleware(m *Manager, versions PlayerVersionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := m.ParseToken(c.GetHeader("Authorization"))
		if err != nil || !hasAudience(claims, AudiencePlayer) {
			apierr.Abort(c, apierr.New(apierr.CodeAuthInvalid, "Valid player token required."))
			return
		}
		if versions != nil {
			if tv, ok := versions.TokenVersion(claims.Subject); !ok || tv != claims.TokenVersion {
				apierr.Abort(c, apierr.New(apierr.CodeAuthInvalid, "Session expired, log in again."))
				return
			}
		}
		c.Set(ContextKeyPlayerID, claims.Subject)
		c.Set(ContextKeyTenantID, claims.TenantID)
		c.Request = c.Request.WithContext(logging.WithActor(c.Request.Context(), claims.Subject))
		c.Next()
	}
}

// AdminFromContext returns the authenticated admin, if any.
func AdminFromContext(c *gin.Context) (*AdminUser, bool) {
	v, exists := c.Get(ContextKeyAdmin)
	if !exists {
		return nil, false
	}
	admin, ok := v.(*AdminUser)
	return admin, ok
}

// TenantIDFromContext returns the session's tenant scope, if any.
func TenantIDFromContext(c *gin.Context) (string, bool) {
	v, exists := c.Get(ContextKeyTenantID)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// PlayerIDFromContext returns the authenticated player ID, if any.
func PlayerIDFromContext(c *gin.Context) (string, bool) {
	v, exists := c.Get(ContextKeyPlayerID)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}
