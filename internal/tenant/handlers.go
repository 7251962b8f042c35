package tenant

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/apierr"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/audit"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/auth"
)

// Handler provides the tenant admin endpoints.
type Handler struct {
	svc      *Service
	recorder *audit.Recorder
}

// NewHandler creates a tenant handler.
func NewHandler(svc *Service, recorder *audit.Recorder) *Handler {
	return &Handler{svc: svc, recorder: recorder}
}

// RegisterRoutes sets up tenant routes on the admin group. Management
// is owner-only; the capabilities view is open to any admin.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/tenants/capabilities", h.Capabilities)

	r.GET("/tenants", auth.RequireCapability(auth.CapTenantsManage), h.List)
	r.POST("/tenants", auth.RequireCapability(auth.CapTenantsManage), h.Create)
	r.GET("/tenants/:id", auth.RequireCapability(auth.CapTenantsManage), h.Get)
	r.PUT("/tenants/:id", auth.RequireCapability(auth.CapTenantsManage), h.Update)
	r.GET("/tenants/:id/payments/policy", auth.RequireCapability(auth.CapTenantsManage), h.GetPolicy)
	r.PUT("/tenants/:id/payments/policy", auth.RequireCapability(auth.CapTenantsManage), h.UpdatePolicy)

	// Caller-scoped policy: the console reads and writes the policy of
	// the admin's own tenant without knowing its ID. Admins outside any
	// tenant operate on the platform defaults.
	r.GET("/tenants/payments/policy", auth.RequireCapability(auth.CapTenantsManage), h.GetCallerPolicy)
	r.PUT("/tenants/payments/policy", auth.RequireCapability(auth.CapTenantsManage), h.UpdateCallerPolicy)
}

// Capabilities handles GET /tenants/capabilities: the caller's role
// capabilities plus their tenant's feature view. The console renders
// its menu from this, but enforcement stays server-side.
func (h *Handler) Capabilities(c *gin.Context) {
	admin, _ := auth.AdminFromContext(c)

	resp := gin.H{
		"capabilities": auth.Capabilities(admin.Role),
		"is_owner":     auth.IsOwner(admin.Role),
	}
	if admin.TenantID != "" {
		if t, err := h.svc.Get(c.Request.Context(), admin.TenantID); err == nil {
			resp["tenant_id"] = t.ID
			resp["features"] = t.Features
			resp["menu_flags"] = t.MenuFlags
		}
	}
	c.JSON(http.StatusOK, resp)
}

// List handles GET /tenants.
func (h *Handler) List(c *gin.Context) {
	tenants, err := h.svc.List(c.Request.Context())
	if err != nil {
		apierr.Abort(c, apierr.Wrap(apierr.CodeInternal, "Failed to list tenants", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"tenants": tenants})
}

// CreateRequest is the new-tenant payload.
type CreateRequest struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug" binding:"required"`
	Type string `json:"type"`
}

// Create handles POST /tenants.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "name and slug are required"))
		return
	}

	t, err := h.svc.Create(c.Request.Context(), req.Name, req.Slug, req.Type)
	if err != nil {
		if errors.Is(err, ErrSlugTaken) {
			apierr.Abort(c, apierr.New(apierr.CodeConflict, "Slug already in use."))
			return
		}
		apierr.Abort(c, apierr.From(err))
		return
	}

	admin, _ := auth.AdminFromContext(c)
	_ = h.recorder.Record(c.Request.Context(), audit.Entry{
		ActorID: admin.ID, ActorEmail: admin.Email,
		Action: "tenant.create", ResourceType: "tenant", ResourceID: t.ID,
		After: t,
	})

	c.JSON(http.StatusCreated, gin.H{"tenant": t})
}

// Get handles GET /tenants/:id.
func (h *Handler) Get(c *gin.Context) {
	t, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeNotFound, "Tenant not found."))
		return
	}
	c.JSON(http.StatusOK, gin.H{"tenant": t})
}

// UpdateRequest carries mutable tenant fields; nil fields are left
// untouched.
type UpdateRequest struct {
	Name      *string          `json:"name"`
	Status    *string          `json:"status"`
	Features  *map[string]bool `json:"features"`
	MenuFlags *map[string]bool `json:"menu_flags"`
}

// Update handles PUT /tenants/:id.
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "Invalid tenant payload."))
		return
	}

	before, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeNotFound, "Tenant not found."))
		return
	}

	t, err := h.svc.Update(c.Request.Context(), c.Param("id"), func(t *Tenant) {
		if req.Name != nil {
			t.Name = *req.Name
		}
		if req.Status != nil {
			t.Status = *req.Status
		}
		if req.Features != nil {
			t.Features = *req.Features
		}
		if req.MenuFlags != nil {
			t.MenuFlags = *req.MenuFlags
		}
	})
	if err != nil {
		apierr.Abort(c, apierr.From(err))
		return
	}

	admin, _ := auth.AdminFromContext(c)
	_ = h.recorder.Record(c.Request.Context(), audit.Entry{
		ActorID: admin.ID, ActorEmail: admin.Email,
		Action: "tenant.update", ResourceType: "tenant", ResourceID: t.ID,
		Before: before, After: t,
	})

	c.JSON(http.StatusOK, gin.H{"tenant": t})
}

// GetPolicy handles GET /tenants/:id/payments/policy.
func (h *Handler) GetPolicy(c *gin.Context) {
	t, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeNotFound, "Tenant not found."))
		return
	}
	c.JSON(http.StatusOK, gin.H{"policy": t.Payments})
}

// bindPolicy decodes and sanity-checks a payments policy payload.
func bindPolicy(c *gin.Context) (PaymentsPolicy, bool) {
	var policy PaymentsPolicy
	if err := c.ShouldBindJSON(&policy); err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "Invalid payments policy payload."))
		return policy, false
	}
	if policy.MinDepositCents < 0 || policy.MinWithdrawalCents < 0 ||
		policy.DailyWithdrawalCapCents < 0 ||
		(policy.MaxDepositCents > 0 && policy.MaxDepositCents < policy.MinDepositCents) ||
		(policy.MaxWithdrawalCents > 0 && policy.MaxWithdrawalCents < policy.MinWithdrawalCents) {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "Policy bounds are inconsistent."))
		return policy, false
	}
	return policy, true
}

// UpdatePolicy handles PUT /tenants/:id/payments/policy.
func (h *Handler) UpdatePolicy(c *gin.Context) {
	policy, ok := bindPolicy(c)
	if !ok {
		return
	}
	h.applyTenantPolicy(c, c.Param("id"), policy)
}

// GetCallerPolicy handles GET /tenants/payments/policy: the policy of
// the caller's tenant, or the platform defaults for admins outside any
// tenant.
func (h *Handler) GetCallerPolicy(c *gin.Context) {
	admin, _ := auth.AdminFromContext(c)
	p := h.svc.Policy(c.Request.Context(), admin.TenantID)
	c.JSON(http.StatusOK, gin.H{"policy": p})
}

// UpdateCallerPolicy handles PUT /tenants/payments/policy.
func (h *Handler) UpdateCallerPolicy(c *gin.Context) {
	policy, ok := bindPolicy(c)
	if !ok {
		return
	}

	admin, _ := auth.AdminFromContext(c)
	if admin.TenantID != "" {
		h.applyTenantPolicy(c, admin.TenantID, policy)
		return
	}

	before := h.svc.Defaults()
	h.svc.SetDefaults(policy)
	_ = h.recorder.Record(c.Request.Context(), audit.Entry{
		ActorID: admin.ID, ActorEmail: admin.Email,
		Action: "tenant.payments_policy.update", ResourceType: "tenant", ResourceID: "platform",
		Before: before, After: policy,
	})
	c.JSON(http.StatusOK, gin.H{"policy": policy})
}

func (h *Handler) applyTenantPolicy(c *gin.Context, id string, policy PaymentsPolicy) {
	before, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeNotFound, "Tenant not found."))
		return
	}

	t, err := h.svc.Update(c.Request.Context(), id, func(t *Tenant) {
		t.Payments = policy
	})
	if err != nil {
		apierr.Abort(c, apierr.From(err))
		return
	}

	admin, _ := auth.AdminFromContext(c)
	_ = h.recorder.Record(c.Request.Context(), audit.Entry{
		ActorID: admin.ID, ActorEmail: admin.Email,
		Action: "tenant.payments_policy.update", ResourceType: "tenant", ResourceID: t.ID,
		Before: before.Payments, After: t.Payments,
	})

	c.JSON(http.StatusOK, gin.H{"policy": t.Payments})
}
