package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/apierr"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/audit"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/logging"
)

// Handler provides HTTP endpoints for admin authentication and accounts.
type Handler struct {
	mgr      *Manager
	recorder *audit.Recorder
}

// NewHandler creates a new auth handler.
func NewHandler(mgr *Manager, recorder *audit.Recorder) *Handler {
	return &Handler{mgr: mgr, recorder: recorder}
}

// RegisterPublicRoutes sets up unauthenticated routes.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("/auth/login", h.Login)
}

// RegisterRoutes sets up authenticated admin routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/auth/me", h.Me)

	admins := r.Group("/admins", RequireCapability(CapAdminsManage))
	admins.GET("", h.ListAdmins)
	admins.POST("", h.CreateAdmin)
	admins.POST("/:id/suspend", h.SuspendAdmin)
	admins.POST("/:id/force-logout", h.ForceLogout)
}

// LoginRequest is the admin login payload.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "email and password are required"))
		return
	}

	token, admin, err := h.mgr.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		logging.L(c.Request.Context()).Warn("admin login failed", "email", req.Email)
		apierr.Abort(c, apierr.New(apierr.CodeAuthInvalid, "Invalid email or password."))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":        token,
		"admin":        admin,
		"capabilities": Capabilities(admin.Role),
		"is_owner":     IsOwner(admin.Role),
	})
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	admin, ok := AdminFromContext(c)
	if !ok {
		apierr.Abort(c, apierr.New(apierr.CodeAuthInvalid, "Valid admin token required."))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"admin":        admin,
		"capabilities": Capabilities(admin.Role),
		"is_owner":     IsOwner(admin.Role),
	})
}

// ListAdmins handles GET /admins.
func (h *Handler) ListAdmins(c *gin.Context) {
	admins, err := h.mgr.Store().List(c.Request.Context())
	if err != nil {
		apierr.Abort(c, apierr.Wrap(apierr.CodeInternal, "Failed to list admins", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"admins": admins})
}

// CreateAdminRequest is the payload for creating an admin account.
type CreateAdminRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     Role   `json:"role" binding:"required"`
	TenantID string `json:"tenant_id"`
}

// CreateAdmin handles POST /admins.
func (h *Handler) CreateAdmin(c *gin.Context) {
	var req CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "email, password and role are required"))
		return
	}

	created, err := h.mgr.CreateAdmin(c.Request.Context(), req.Email, req.Password, req.Role, req.TenantID)
	if err != nil {
		switch err {
		case ErrEmailTaken:
			apierr.Abort(c, apierr.New(apierr.CodeConflict, "Email already registered."))
		default:
			apierr.Abort(c, apierr.From(err))
		}
		return
	}

	actor, _ := AdminFromContext(c)
	_ = h.recorder.Record(c.Request.Context(), audit.Entry{
		ActorID: actor.ID, ActorEmail: actor.Email,
		Action: "admin.create", ResourceType: "admin", ResourceID: created.ID,
		After: created,
	})

	c.JSON(http.StatusCreated, gin.H{"admin": created})
}

type reasonBody struct {
	Reason string `json:"reason"`
}

// SuspendAdmin handles POST /admins/:id/suspend (reason-gated).
func (h *Handler) SuspendAdmin(c *gin.Context) {
	var body reasonBody
	_ = c.ShouldBindJSON(&body)
	reason, err := audit.Reason(c, body.Reason)
	if err != nil {
		apierr.Abort(c, err)
		return
	}

	target, err := h.mgr.Store().Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeNotFound, "Admin not found."))
		return
	}
	if target.Status == "suspended" {
		apierr.Abort(c, apierr.New(apierr.CodeStateMismatch, "Admin is already suspended."))
		return
	}

	before := *target
	target.Status = "suspended"
	target.TokenVersion++ // kill live sessions too
	target.UpdatedAt = time.Now().UTC()
	if err := h.mgr.Store().Update(c.Request.Context(), target); err != nil {
		apierr.Abort(c, apierr.From(err))
		return
	}

	actor, _ := AdminFromContext(c)
	_ = h.recorder.Record(c.Request.Context(), audit.Entry{
		ActorID: actor.ID, ActorEmail: actor.Email,
		Action: "admin.suspend", ResourceType: "admin", ResourceID: target.ID,
		Before: before, After: target, Reason: reason,
	})

	c.JSON(http.StatusOK, gin.H{"admin": target})
}

// ForceLogout handles POST /admins/:id/force-logout (reason-gated).
func (h *Handler) ForceLogout(c *gin.Context) {
	var body reasonBody
	_ = c.ShouldBindJSON(&body)
	reason, err := audit.Reason(c, body.Reason)
	if err != nil {
		apierr.Abort(c, err)
		return
	}

	id := c.Param("id")
	if err := h.mgr.BumpTokenVersion(c.Request.Context(), id); err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeNotFound, "Admin not found."))
		return
	}

	actor, _ := AdminFromContext(c)
	_ = h.recorder.Record(c.Request.Context(), audit.Entry{
		ActorID: actor.ID, ActorEmail: actor.Email,
		Action: "admin.force_logout", ResourceType: "admin", ResourceID: id,
		Reason: reason,
	})

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
