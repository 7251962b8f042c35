package rg

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/apierr"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/audit"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/auth"
)

// Handler provides the responsible-gaming endpoints.
type Handler struct {
	svc      *Service
	recorder *audit.Recorder
}

// NewHandler creates an RG handler.
func NewHandler(svc *Service, recorder *audit.Recorder) *Handler {
	return &Handler{svc: svc, recorder: recorder}
}

// RegisterRoutes sets up RG routes on the admin group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/rg", auth.RequireCapability(auth.CapRGManage))
	g.GET("/limits/:playerID", h.GetLimits)
	g.PUT("/limits/:playerID", h.SetLimits)
	g.GET("/exclusions/:playerID", h.GetExclusion)
	g.POST("/exclusions", h.Exclude)
}

// RegisterPlayerRoutes lets players manage their own limits and
// self-exclude.
func (h *Handler) RegisterPlayerRoutes(r *gin.RouterGroup) {
	r.GET("/rg/limits", h.MyLimits)
	r.PUT("/rg/limits", h.SetMyLimits)
	r.POST("/rg/self-exclude", h.SelfExclude)
}

// GetLimits handles GET /rg/limits/:playerID.
func (h *Handler) GetLimits(c *gin.Context) {
	l, err := h.svc.GetLimits(c.Request.Context(), c.Param("playerID"))
	if err != nil {
		apierr.Abort(c, apierr.From(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"limits": l})
}

// LimitsRequest carries limit values. Zero disables a limit.
type LimitsRequest struct {
	DepositDailyCents int64  `json:"deposit_daily_cents"`
	LossDailyCents    int64  `json:"loss_daily_cents"`
	SessionMinutes    int    `json:"session_minutes"`
	Reason            string `json:"reason"`
}

// SetLimits handles PUT /rg/limits/:playerID (reason-gated: an
// operator is changing a player's protection settings).
func (h *Handler) SetLimits(c *gin.Context) {
	var req LimitsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "Invalid limits payload."))
		return
	}
	reason, err := audit.Reason(c, req.Reason)
	if err != nil {
		apierr.Abort(c, err)
		return
	}

	playerID := c.Param("playerID")
	before, _ := h.svc.GetLimits(c.Request.Context(), playerID)

	l := &Limits{
		PlayerID:          playerID,
		DepositDailyCents: req.DepositDailyCents,
		LossDailyCents:    req.LossDailyCents,
		SessionMinutes:    req.SessionMinutes,
	}
	if err := h.svc.SetLimits(c.Request.Context(), l); err != nil {
		apierr.Abort(c, apierr.From(err))
		return
	}

	admin, _ := auth.AdminFromContext(c)
	_ = h.recorder.Record(c.Request.Context(), audit.Entry{
		ActorID: admin.ID, ActorEmail: admin.Email,
		Action: "rg.limits.set", ResourceType: "player", ResourceID: playerID,
		Before: before, After: l, Reason: reason,
	})

	c.JSON(http.StatusOK, gin.H{"limits": l})
}

// GetExclusion handles GET /rg/exclusions/:playerID.
func (h *Handler) GetExclusion(c *gin.Context) {
	e, err := h.svc.GetExclusion(c.Request.Context(), c.Param("playerID"))
	if err != nil {
		apierr.Abort(c, apierr.From(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"exclusion": e, "excluded": e != nil})
}

// ExcludeRequest is the operator exclusion payload.
type ExcludeRequest struct {
	PlayerID string     `json:"player_id" binding:"required"`
	Kind     string     `json:"kind" binding:"required"`
	Until    *time.Time `json:"until"`
	Reason   string     `json:"reason"`
}

// Exclude handles POST /rg/exclusions (reason-gated).
func (h *Handler) Exclude(c *gin.Context) {
	var req ExcludeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "player_id and kind are required"))
		return
	}
	reason, err := audit.Reason(c, req.Reason)
	if err != nil {
		apierr.Abort(c, err)
		return
	}

	e, err := h.svc.Exclude(c.Request.Context(), req.PlayerID, req.Kind, req.Until)
	if err != nil {
		apierr.Abort(c, apierr.From(err))
		return
	}

	admin, _ := auth.AdminFromContext(c)
	_ = h.recorder.Record(c.Request.Context(), audit.Entry{
		ActorID: admin.ID, ActorEmail: admin.Email,
		Action: "rg.exclude", ResourceType: "player", ResourceID: req.PlayerID,
		After: e, Reason: reason,
	})

	c.JSON(http.StatusCreated, gin.H{"exclusion": e})
}

// MyLimits handles GET /player/rg/limits.
func (h *Handler) MyLimits(c *gin.Context) {
	pid, _ := auth.PlayerIDFromContext(c)
	l, err := h.svc.GetLimits(c.Request.Context(), pid)
	if err != nil {
		apierr.Abort(c, apierr.From(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"limits": l})
}

// SetMyLimits handles PUT /player/rg/limits (players tighten their own
// limits without a reason gate).
func (h *Handler) SetMyLimits(c *gin.Context) {
	var req LimitsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "Invalid limits payload."))
		return
	}

	pid, _ := auth.PlayerIDFromContext(c)
	l := &Limits{
		PlayerID:          pid,
		DepositDailyCents: req.DepositDailyCents,
		LossDailyCents:    req.LossDailyCents,
		SessionMinutes:    req.SessionMinutes,
	}
	if err := h.svc.SetLimits(c.Request.Context(), l); err != nil {
		apierr.Abort(c, apierr.From(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"limits": l})
}

// SelfExcludeRequest is the player self-exclusion payload.
type SelfExcludeRequest struct {
	Kind  string     `json:"kind" binding:"required"`
	Until *time.Time `json:"until"`
}

// SelfExclude handles POST /player/rg/self-exclude.
func (h *Handler) SelfExclude(c *gin.Context) {
	var req SelfExcludeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "kind is required"))
		return
	}

	pid, _ := auth.PlayerIDFromContext(c)
	e, err := h.svc.Exclude(c.Request.Context(), pid, req.Kind, req.Until)
	if err != nil {
		apierr.Abort(c, apierr.From(err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"exclusion": e})
}
