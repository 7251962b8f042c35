package flags

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/apierr"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/audit"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/auth"
)

// Handler provides the flags admin endpoints.
type Handler struct {
	svc      *Service
	recorder *audit.Recorder
}

// NewHandler creates a flags handler.
func NewHandler(svc *Service, recorder *audit.Recorder) *Handler {
	return &Handler{svc: svc, recorder: recorder}
}

// RegisterRoutes sets up flags routes on the admin group (owner-only
// through the flags.manage capability).
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/flags", auth.RequireCapability(auth.CapFlagsManage))
	g.GET("", h.List)
	g.POST("", h.Set)
	g.GET("/experiments", h.ListExperiments)
	g.POST("/experiments", h.SetExperiment)
	g.GET("/kill-switch", h.ListKillSwitches)
	g.POST("/kill-switch", h.SetKillSwitch)
}

// List handles GET /flags.
func (h *Handler) List(c *gin.Context) {
	flags, err := h.svc.ListFlags(c.Request.Context())
	if err != nil {
		apierr.Abort(c, apierr.Wrap(apierr.CodeInternal, "Failed to list flags", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"flags": flags})
}

// FlagRequest is the upsert-flag payload.
type FlagRequest struct {
	Key         string          `json:"key" binding:"required"`
	Enabled     bool            `json:"enabled"`
	Description string          `json:"description"`
	Overrides   map[string]bool `json:"overrides"`
}

// Set handles POST /flags.
func (h *Handler) Set(c *gin.Context) {
	var req FlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "key is required"))
		return
	}

	f, err := h.svc.SetFlag(c.Request.Context(), req.Key, req.Enabled, req.Description, req.Overrides)
	if err != nil {
		apierr.Abort(c, apierr.From(err))
		return
	}

	admin, _ := auth.AdminFromContext(c)
	_ = h.recorder.Record(c.Request.Context(), audit.Entry{
		ActorID: admin.ID, ActorEmail: admin.Email,
		Action: "flags.set", ResourceType: "feature_flag", ResourceID: f.Key,
		After: f,
	})

	c.JSON(http.StatusOK, gin.H{"flag": f})
}

// ListExperiments handles GET /flags/experiments.
func (h *Handler) ListExperiments(c *gin.Context) {
	experiments, err := h.svc.ListExperiments(c.Request.Context())
	if err != nil {
		apierr.Abort(c, apierr.Wrap(apierr.CodeInternal, "Failed to list experiments", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"experiments": experiments})
}

// SetExperiment handles POST /flags/experiments.
func (h *Handler) SetExperiment(c *gin.Context) {
	var e Experiment
	if err := c.ShouldBindJSON(&e); err != nil || e.Key == "" {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "key and variants are required"))
		return
	}

	if err := h.svc.SetExperiment(c.Request.Context(), &e); err != nil {
		apierr.Abort(c, apierr.From(err))
		return
	}

	admin, _ := auth.AdminFromContext(c)
	_ = h.recorder.Record(c.Request.Context(), audit.Entry{
		ActorID: admin.ID, ActorEmail: admin.Email,
		Action: "flags.experiment.set", ResourceType: "experiment", ResourceID: e.Key,
		After: e,
	})

	c.JSON(http.StatusOK, gin.H{"experiment": e})
}

// ListKillSwitches handles GET /flags/kill-switch.
func (h *Handler) ListKillSwitches(c *gin.Context) {
	switches, err := h.svc.ListKillSwitches(c.Request.Context())
	if err != nil {
		apierr.Abort(c, apierr.Wrap(apierr.CodeInternal, "Failed to list kill switches", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"kill_switches": switches})
}

// KillSwitchRequest is the kill-switch payload.
type KillSwitchRequest struct {
	Module   string `json:"module" binding:"required"`
	Disabled *bool  `json:"disabled" binding:"required"`
	Reason   string `json:"reason"`
}

// SetKillSwitch handles POST /flags/kill-switch (reason-gated:
// disabling a module affects live traffic).
func (h *Handler) SetKillSwitch(c *gin.Context) {
	var req KillSwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "module and disabled are required"))
		return
	}
	reason, err := audit.Reason(c, req.Reason)
	if err != nil {
		apierr.Abort(c, err)
		return
	}

	if err := h.svc.SetKillSwitch(c.Request.Context(), req.Module, *req.Disabled); err != nil {
		apierr.Abort(c, apierr.From(err))
		return
	}

	admin, _ := auth.AdminFromContext(c)
	_ = h.recorder.Record(c.Request.Context(), audit.Entry{
		ActorID: admin.ID, ActorEmail: admin.Email,
		Action: "flags.kill_switch", ResourceType: "module", ResourceID: req.Module,
		After: gin.H{"disabled": *req.Disabled}, Reason: reason,
	})

	c.JSON(http.StatusOK, gin.H{"module": req.Module, "disabled": *req.Disabled})
}
