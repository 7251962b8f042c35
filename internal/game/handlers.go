package game

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/apierr"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/audit"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/auth"
)

// Handler provides the catalogue endpoints.
type Handler struct {
	svc      *Service
	recorder *audit.Recorder
}

// NewHandler creates a catalogue handler.
func NewHandler(svc *Service, recorder *audit.Recorder) *Handler {
	return &Handler{svc: svc, recorder: recorder}
}

// RegisterRoutes sets up catalogue routes on the admin group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/games", auth.RequireCapability(auth.CapGamesManage))
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.POST("/:id/enable", h.Enable)
	g.POST("/:id/disable", h.Disable)
}

// RegisterPlayerRoutes exposes the enabled catalogue to players.
func (h *Handler) RegisterPlayerRoutes(r *gin.RouterGroup) {
	r.GET("/games", h.Catalogue)
}

// Catalogue handles GET /player/games.
func (h *Handler) Catalogue(c *gin.Context) {
	games, err := h.svc.ListEnabled(c.Request.Context())
	if err != nil {
		apierr.Abort(c, apierr.From(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"games": games})
}

// List handles GET /games with optional status/provider/q filters.
func (h *Handler) List(c *gin.Context) {
	games, err := h.svc.List(c.Request.Context(), Filter{
		Status:   c.Query("status"),
		Provider: c.Query("provider"),
		Query:    c.Query("q"),
	})
	if err != nil {
		apierr.Abort(c, apierr.From(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"games": games})
}

// Get handles GET /games/:id.
func (h *Handler) Get(c *gin.Context) {
	g, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"game": g})
}

// CreateRequest is the new-game payload.
type CreateRequest struct {
	Name     string   `json:"name" binding:"required"`
	Provider string   `json:"provider" binding:"required"`
	RTPBps   int      `json:"rtp_bps"`
	Tags     []string `json:"tags"`
}

// Create handles POST /games.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "name and provider are required"))
		return
	}

	g, err := h.svc.Create(c.Request.Context(), req.Name, req.Provider, req.RTPBps, req.Tags)
	if err != nil {
		apierr.Abort(c, apierr.From(err))
		return
	}

	admin, _ := auth.AdminFromContext(c)
	_ = h.recorder.Record(c.Request.Context(), audit.Entry{
		ActorID: admin.ID, ActorEmail: admin.Email,
		Action: "game.create", ResourceType: "game", ResourceID: g.ID,
		After: g,
	})

	c.JSON(http.StatusCreated, gin.H{"game": g})
}

// UpdateRequest carries editable game fields.
type UpdateRequest struct {
	Name   *string   `json:"name"`
	RTPBps *int      `json:"rtp_bps"`
	Tags   *[]string `json:"tags"`
}

// Update handles PUT /games/:id.
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "Invalid game payload."))
		return
	}

	id := c.Param("id")
	before, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.abort(c, err)
		return
	}

	g, err := h.svc.Update(c.Request.Context(), id, func(g *Game) {
		if req.Name != nil {
			g.Name = *req.Name
		}
		if req.RTPBps != nil {
			g.RTPBps = *req.RTPBps
		}
		if req.Tags != nil {
			g.Tags = *req.Tags
		}
	})
	if err != nil {
		h.abort(c, err)
		return
	}

	admin, _ := auth.AdminFromContext(c)
	_ = h.recorder.Record(c.Request.Context(), audit.Entry{
		ActorID: admin.ID, ActorEmail: admin.Email,
		Action: "game.update", ResourceType: "game", ResourceID: id,
		Before: before, After: g,
	})

	c.JSON(http.StatusOK, gin.H{"game": g})
}

// Enable handles POST /games/:id/enable.
func (h *Handler) Enable(c *gin.Context) {
	h.setStatus(c, StatusEnabled)
}

// Disable handles POST /games/:id/disable.
func (h *Handler) Disable(c *gin.Context) {
	h.setStatus(c, StatusDisabled)
}

func (h *Handler) setStatus(c *gin.Context, status string) {
	id := c.Param("id")
	g, err := h.svc.SetStatus(c.Request.Context(), id, status)
	if err != nil {
		h.abort(c, err)
		return
	}

	admin, _ := auth.AdminFromContext(c)
	_ = h.recorder.Record(c.Request.Context(), audit.Entry{
		ActorID: admin.ID, ActorEmail: admin.Email,
		Action: "game." + status, ResourceType: "game", ResourceID: id,
		After: g,
	})

	c.JSON(http.StatusOK, gin.H{"game": g})
}

func (h *Handler) abort(c *gin.Context, err error) {
	if err == ErrNotFound {
		apierr.Abort(c, apierr.New(apierr.CodeNotFound, "Game not found."))
		return
	}
	apierr.Abort(c, apierr.From(err))
}
