package player

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/apierr"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/audit"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/auth"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/pagination"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/wallet"
)

// WalletOps is the slice of the wallet service the player console uses
// for manual adjustments.
type WalletOps interface {
	GetBalance(ctx context.Context, playerID string) (*wallet.Balance, error)
	AdminCredit(ctx context.Context, playerID string, amountCents int64, reference string) (*wallet.Transaction, error)
	AdminDebit(ctx context.Context, playerID string, amountCents int64, reference string) (*wallet.Transaction, error)
	GrantBonus(ctx context.Context, playerID string, amountCents int64, reference string) (*wallet.Transaction, error)
}

// ExclusionChecker reports whether a player is blocked by a
// responsible-gaming exclusion.
type ExclusionChecker interface {
	IsExcluded(ctx context.Context, playerID string) (bool, error)
}

// Handler provides the player HTTP endpoints: public registration and
// login, the player's own profile, and the admin console surface.
type Handler struct {
	svc        *Service
	mgr        *auth.Manager
	wallet     WalletOps
	exclusions ExclusionChecker
	recorder   *audit.Recorder
}

// NewHandler creates a player handler.
func NewHandler(svc *Service, mgr *auth.Manager, recorder *audit.Recorder) *Handler {
	return &Handler{svc: svc, mgr: mgr, recorder: recorder}
}

// WithWallet wires manual balance adjustments.
func (h *Handler) WithWallet(w WalletOps) *Handler {
	h.wallet = w
	return h
}

// WithExclusions wires responsible-gaming exclusion checks into login.
func (h *Handler) WithExclusions(e ExclusionChecker) *Handler {
	h.exclusions = e
	return h
}

// RegisterPublicRoutes sets up the unauthenticated player routes.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("/auth/player/register", h.Register)
	r.POST("/auth/player/login", h.Login)
}

// RegisterPlayerRoutes sets up routes behind the player token.
func (h *Handler) RegisterPlayerRoutes(r *gin.RouterGroup) {
	r.GET("/me", h.Me)
}

// RegisterRoutes sets up the admin console routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/players", auth.RequireCapability(auth.CapPlayersRead), h.List)
	r.GET("/players/:id", auth.RequireCapability(auth.CapPlayersRead), h.Get)
	r.GET("/players/:id/notes", auth.RequireCapability(auth.CapPlayersRead), h.ListNotes)
	r.POST("/players/:id/notes", auth.RequireCapability(auth.CapPlayersRead), h.AddNote)

	r.PUT("/players/:id/profile", auth.RequireCapability(auth.CapPlayersLifecycle), h.UpdateProfile)

	r.POST("/players/:id/suspend", auth.RequireCapability(auth.CapPlayersLifecycle), h.Suspend)
	r.POST("/players/:id/unsuspend", auth.RequireCapability(auth.CapPlayersLifecycle), h.Unsuspend)
	r.POST("/players/:id/force-logout", auth.RequireCapability(auth.CapPlayersLifecycle), h.ForceLogout)

	r.POST("/players/:id/credit", auth.RequireCapability(auth.CapPlayersWallet), h.Credit)
	r.POST("/players/:id/debit", auth.RequireCapability(auth.CapPlayersWallet), h.Debit)
	r.POST("/players/:id/bonus", auth.RequireCapability(auth.CapPlayersWallet), h.Bonus)
}

// RegisterRequest is the player signup payload.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	TenantID string `json:"tenant_id"`
}

// Register handles POST /auth/player/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "email, username and a password of at least 8 characters are required"))
		return
	}

	p, err := h.svc.Register(c.Request.Context(), req.TenantID, req.Email, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			apierr.Abort(c, apierr.New(apierr.CodeConflict, "Email already registered."))
			return
		}
		apierr.Abort(c, apierr.From(err))
		return
	}

	token, err := h.mgr.IssuePlayerToken(p.ID, p.TenantID, p.TokenVersion)
	if err != nil {
		apierr.Abort(c, apierr.Wrap(apierr.CodeInternal, "Failed to issue token", err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "player": p})
}

// LoginRequest is the player login payload.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /auth/player/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "email and password are required"))
		return
	}

	p, err := h.svc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrSuspended) {
			apierr.Abort(c, apierr.New(apierr.CodeForbidden, "Account suspended."))
			return
		}
		apierr.Abort(c, apierr.New(apierr.CodeAuthInvalid, "Invalid email or password."))
		return
	}

	if h.exclusions != nil {
		excluded, err := h.exclusions.IsExcluded(c.Request.Context(), p.ID)
		if err != nil {
			apierr.Abort(c, apierr.Wrap(apierr.CodeInternal, "Failed to check exclusions", err))
			return
		}
		if excluded {
			apierr.Abort(c, apierr.New(apierr.CodeRGExcluded, "Account is excluded from playing."))
			return
		}
	}

	token, err := h.mgr.IssuePlayerToken(p.ID, p.TenantID, p.TokenVersion)
	if err != nil {
		apierr.Abort(c, apierr.Wrap(apierr.CodeInternal, "Failed to issue token", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "player": p})
}

// Me handles GET /player/me.
func (h *Handler) Me(c *gin.Context) {
	id, _ := auth.PlayerIDFromContext(c)
	p, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeNotFound, "Player not found."))
		return
	}
	resp := gin.H{"player": p}
	if h.wallet != nil {
		if bal, err := h.wallet.GetBalance(c.Request.Context(), id); err == nil {
			resp["balance"] = bal
		}
	}
	c.JSON(http.StatusOK, resp)
}

// List handles GET /players.
func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	limit = pagination.ClampLimit(limit)

	f := Filter{
		TenantID: c.Query("tenant_id"),
		Status:   c.Query("status"),
		Country:  c.Query("country"),
		Query:    c.Query("q"),
		Limit:    limit + 1,
	}
	cursor, err := pagination.Decode(c.Query("cursor"))
	if err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "Invalid cursor."))
		return
	}
	if cursor != nil {
		f.Before = &cursor.CreatedAt
	}

	list, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		apierr.Abort(c, apierr.Wrap(apierr.CodeInternal, "Failed to list players", err))
		return
	}

	list, next, hasMore := pagination.ComputePage(list, limit, func(p *Player) (time.Time, string) {
		return p.CreatedAt, p.ID
	})

	c.JSON(http.StatusOK, gin.H{
		"players":     list,
		"next_cursor": next,
		"has_more":    hasMore,
	})
}

// Get handles GET /players/:id, including the wallet snapshot when the
// wallet is wired.
func (h *Handler) Get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeNotFound, "Player not found."))
		return
	}
	resp := gin.H{"player": p}
	if h.wallet != nil {
		if bal, err := h.wallet.GetBalance(c.Request.Context(), p.ID); err == nil {
			resp["balance"] = bal
		}
	}
	c.JSON(http.StatusOK, resp)
}

// ProfileRequest carries the operator-managed profile fields.
type ProfileRequest struct {
	Country   string `json:"country"`
	VIPLevel  int    `json:"vip_level"`
	RiskScore int    `json:"risk_score"`
}

// UpdateProfile handles PUT /players/:id/profile.
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "Invalid profile payload."))
		return
	}
	if req.RiskScore < 0 || req.RiskScore > 100 {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "risk_score must be between 0 and 100"))
		return
	}

	id := c.Param("id")
	before, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeNotFound, "Player not found."))
		return
	}

	p, err := h.svc.SetProfile(c.Request.Context(), id, req.Country, req.VIPLevel, req.RiskScore)
	if err != nil {
		apierr.Abort(c, apierr.From(err))
		return
	}

	admin, _ := auth.AdminFromContext(c)
	_ = h.recorder.Record(c.Request.Context(), audit.Entry{
		ActorID: admin.ID, ActorEmail: admin.Email,
		Action: "player.profile", ResourceType: "player", ResourceID: p.ID,
		Before: before, After: p,
	})

	c.JSON(http.StatusOK, gin.H{"player": p})
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// lifecycle applies a suspend/unsuspend/force-logout action with the
// shared reason-gating and audit plumbing.
func (h *Handler) lifecycle(c *gin.Context, action string, apply func(context.Context, string) (*Player, error)) {
	var req reasonRequest
	_ = c.ShouldBindJSON(&req)
	reason, err := audit.Reason(c, req.Reason)
	if err != nil {
		apierr.Abort(c, err)
		return
	}

	id := c.Param("id")
	before, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeNotFound, "Player not found."))
		return
	}

	p, err := apply(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrStateMismatch) {
			apierr.Abort(c, apierr.Wrap(apierr.CodeStateMismatch, "Player is already in that state.", err))
			return
		}
		apierr.Abort(c, apierr.From(err))
		return
	}

	admin, _ := auth.AdminFromContext(c)
	_ = h.recorder.Record(c.Request.Context(), audit.Entry{
		ActorID: admin.ID, ActorEmail: admin.Email,
		Action: "player." + action, ResourceType: "player", ResourceID: p.ID,
		Before: before, After: p, Reason: reason,
	})

	c.JSON(http.StatusOK, gin.H{"player": p})
}

// Suspend handles POST /players/:id/suspend (reason-gated).
func (h *Handler) Suspend(c *gin.Context) {
	h.lifecycle(c, "suspend", h.svc.Suspend)
}

// Unsuspend handles POST /players/:id/unsuspend (reason-gated).
func (h *Handler) Unsuspend(c *gin.Context) {
	h.lifecycle(c, "unsuspend", h.svc.Unsuspend)
}

// ForceLogout handles POST /players/:id/force-logout (reason-gated).
func (h *Handler) ForceLogout(c *gin.Context) {
	h.lifecycle(c, "force_logout", h.svc.ForceLogout)
}

// AdjustRequest is the manual credit/debit/bonus payload.
type AdjustRequest struct {
	AmountCents int64  `json:"amount_cents" binding:"required"`
	Reason      string `json:"reason"`
}

func (h *Handler) adjust(c *gin.Context, action string, apply func(context.Context, string, int64, string) (*wallet.Transaction, error)) {
	var req AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AmountCents <= 0 {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "amount_cents must be a positive integer"))
		return
	}
	reason, err := audit.Reason(c, req.Reason)
	if err != nil {
		apierr.Abort(c, err)
		return
	}

	id := c.Param("id")
	if _, err := h.svc.Get(c.Request.Context(), id); err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeNotFound, "Player not found."))
		return
	}

	tx, err := apply(c.Request.Context(), id, req.AmountCents, reason)
	if err != nil {
		if errors.Is(err, wallet.ErrInsufficientFunds) {
			apierr.Abort(c, apierr.New(apierr.CodeInsufficientFunds, "Insufficient available balance."))
			return
		}
		apierr.Abort(c, apierr.From(err))
		return
	}

	admin, _ := auth.AdminFromContext(c)
	_ = h.recorder.Record(c.Request.Context(), audit.Entry{
		ActorID: admin.ID, ActorEmail: admin.Email,
		Action: "player." + action, ResourceType: "player", ResourceID: id,
		After: tx, Reason: reason,
	})

	bal, _ := h.wallet.GetBalance(c.Request.Context(), id)
	c.JSON(http.StatusOK, gin.H{"transaction": tx, "balance": bal})
}

// Credit handles POST /players/:id/credit (reason-gated).
func (h *Handler) Credit(c *gin.Context) {
	if h.wallet == nil {
		apierr.Abort(c, apierr.New(apierr.CodeModuleDisabled, "Wallet adjustments are temporarily disabled."))
		return
	}
	h.adjust(c, "credit", h.wallet.AdminCredit)
}

// Debit handles POST /players/:id/debit (reason-gated).
func (h *Handler) Debit(c *gin.Context) {
	if h.wallet == nil {
		apierr.Abort(c, apierr.New(apierr.CodeModuleDisabled, "Wallet adjustments are temporarily disabled."))
		return
	}
	h.adjust(c, "debit", h.wallet.AdminDebit)
}

// Bonus handles POST /players/:id/bonus (reason-gated).
func (h *Handler) Bonus(c *gin.Context) {
	if h.wallet == nil {
		apierr.Abort(c, apierr.New(apierr.CodeModuleDisabled, "Wallet adjustments are temporarily disabled."))
		return
	}
	h.adjust(c, "bonus", h.wallet.GrantBonus)
}

// NoteRequest is the add-note payload.
type NoteRequest struct {
	Body string `json:"body" binding:"required"`
}

// AddNote handles POST /players/:id/notes.
func (h *Handler) AddNote(c *gin.Context) {
	var req NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "body is required"))
		return
	}

	admin, _ := auth.AdminFromContext(c)
	n, err := h.svc.AddNote(c.Request.Context(), c.Param("id"), admin.ID, admin.Email, req.Body)
	if err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeNotFound, "Player not found."))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"note": n})
}

// ListNotes handles GET /players/:id/notes.
func (h *Handler) ListNotes(c *gin.Context) {
	notes, err := h.svc.ListNotes(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.Abort(c, apierr.Wrap(apierr.CodeInternal, "Failed to list notes", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"notes": notes})
}
