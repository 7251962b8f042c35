package bonus

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/apierr"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/audit"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/auth"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/wallet"
)

// Granter credits a player's bonus balance.
type Granter interface {
	GrantBonus(ctx context.Context, playerID string, amountCents int64, reference string) (*wallet.Transaction, error)
}

// Handler provides the bonus admin endpoints.
type Handler struct {
	svc      *Service
	granter  Granter
	recorder *audit.Recorder
}

// NewHandler creates a bonus handler.
func NewHandler(svc *Service, recorder *audit.Recorder) *Handler {
	return &Handler{svc: svc, recorder: recorder}
}

// WithGranter wires bonus-balance credits for campaign grants.
func (h *Handler) WithGranter(g Granter) *Handler {
	h.granter = g
	return h
}

// RegisterRoutes sets up bonus routes on the admin group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/bonus", auth.RequireCapability(auth.CapBonusManage))
	g.GET("/campaigns", h.List)
	g.POST("/campaigns", h.Create)
	g.GET("/campaigns/:id", h.Get)
	g.POST("/campaigns/:id/activate", h.Activate)
	g.POST("/campaigns/:id/pause", h.Pause)
	g.POST("/campaigns/:id/end", h.End)
	g.POST("/campaigns/:id/grant", h.Grant)
}

// List handles GET /bonus/campaigns.
func (h *Handler) List(c *gin.Context) {
	campaigns, err := h.svc.List(c.Request.Context(), c.Query("tenant_id"))
	if err != nil {
		apierr.Abort(c, apierr.Wrap(apierr.CodeInternal, "Failed to list campaigns", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": campaigns})
}

// CreateRequest is the new-campaign payload.
type CreateRequest struct {
	TenantID           string     `json:"tenant_id"`
	Name               string     `json:"name" binding:"required"`
	Type               string     `json:"type" binding:"required"`
	PercentBps         int        `json:"percent_bps"`
	AmountCents        int64      `json:"amount_cents"`
	WageringMultiplier int        `json:"wagering_multiplier"`
	StartsAt           *time.Time `json:"starts_at"`
	EndsAt             *time.Time `json:"ends_at"`
}

// Create handles POST /bonus/campaigns.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "name and type are required"))
		return
	}

	cp, err := h.svc.Create(c.Request.Context(), CreateParams{
		TenantID:           req.TenantID,
		Name:               req.Name,
		Type:               req.Type,
		PercentBps:         req.PercentBps,
		AmountCents:        req.AmountCents,
		WageringMultiplier: req.WageringMultiplier,
		StartsAt:           req.StartsAt,
		EndsAt:             req.EndsAt,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidType) {
			apierr.Abort(c, apierr.New(apierr.CodeValidation, "type must be deposit_match, free_spins or cashback"))
			return
		}
		apierr.Abort(c, apierr.From(err))
		return
	}

	admin, _ := auth.AdminFromContext(c)
	_ = h.recorder.Record(c.Request.Context(), audit.Entry{
		ActorID: admin.ID, ActorEmail: admin.Email,
		Action: "bonus.campaign.create", ResourceType: "bonus_campaign", ResourceID: cp.ID,
		After: cp,
	})

	c.JSON(http.StatusCreated, gin.H{"campaign": cp})
}

// Get handles GET /bonus/campaigns/:id.
func (h *Handler) Get(c *gin.Context) {
	cp, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeNotFound, "Campaign not found."))
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaign": cp})
}

func (h *Handler) setStatus(c *gin.Context, status string) {
	before, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeNotFound, "Campaign not found."))
		return
	}

	cp, err := h.svc.SetStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		if errors.Is(err, ErrStateMismatch) {
			apierr.Abort(c, apierr.Wrap(apierr.CodeStateMismatch, "Campaign cannot move to that status.", err))
			return
		}
		apierr.Abort(c, apierr.From(err))
		return
	}

	admin, _ := auth.AdminFromContext(c)
	_ = h.recorder.Record(c.Request.Context(), audit.Entry{
		ActorID: admin.ID, ActorEmail: admin.Email,
		Action: "bonus.campaign." + status, ResourceType: "bonus_campaign", ResourceID: cp.ID,
		Before: before, After: cp,
	})

	c.JSON(http.StatusOK, gin.H{"campaign": cp})
}

// Activate handles POST /bonus/campaigns/:id/activate.
func (h *Handler) Activate(c *gin.Context) { h.setStatus(c, StatusActive) }

// Pause handles POST /bonus/campaigns/:id/pause.
func (h *Handler) Pause(c *gin.Context) { h.setStatus(c, StatusPaused) }

// End handles POST /bonus/campaigns/:id/end.
func (h *Handler) End(c *gin.Context) { h.setStatus(c, StatusEnded) }

// GrantRequest is the campaign grant payload.
type GrantRequest struct {
	PlayerID    string `json:"player_id" binding:"required"`
	AmountCents int64  `json:"amount_cents" binding:"required"`
	Reason      string `json:"reason"`
}

// Grant handles POST /bonus/campaigns/:id/grant (reason-gated). Only
// active campaigns can grant.
func (h *Handler) Grant(c *gin.Context) {
	if h.granter == nil {
		apierr.Abort(c, apierr.New(apierr.CodeModuleDisabled, "Bonus grants are temporarily disabled."))
		return
	}

	var req GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AmountCents <= 0 {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "player_id and a positive amount_cents are required"))
		return
	}
	reason, err := audit.Reason(c, req.Reason)
	if err != nil {
		apierr.Abort(c, err)
		return
	}

	cp, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeNotFound, "Campaign not found."))
		return
	}
	if cp.Status != StatusActive {
		apierr.Abort(c, apierr.New(apierr.CodeStateMismatch, "Only active campaigns can grant bonuses."))
		return
	}

	tx, err := h.granter.GrantBonus(c.Request.Context(), req.PlayerID, req.AmountCents, cp.ID)
	if err != nil {
		apierr.Abort(c, apierr.From(err))
		return
	}

	admin, _ := auth.AdminFromContext(c)
	_ = h.recorder.Record(c.Request.Context(), audit.Entry{
		ActorID: admin.ID, ActorEmail: admin.Email,
		Action: "bonus.grant", ResourceType: "player", ResourceID: req.PlayerID,
		After: tx, Reason: reason,
	})

	c.JSON(http.StatusOK, gin.H{"transaction": tx, "campaign_id": cp.ID})
}
