package wallet

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/apierr"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/auth"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/logging"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/metrics"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/pagination"
)

// PolicyChecker validates amounts against the tenant payment policy.
// withdrawnTodayCents feeds the daily withdrawal cap.
type PolicyChecker interface {
	CheckDeposit(ctx context.Context, tenantID string, amountCents int64) error
	CheckWithdrawal(ctx context.Context, tenantID string, amountCents, withdrawnTodayCents int64) error
}

// DepositGuard enforces responsible-gaming deposit limits.
type DepositGuard interface {
	CheckDeposit(ctx context.Context, playerID string, amountCents, depositedTodayCents int64) error
}

// WithdrawalOpener opens a withdrawal in the finance pipeline. The
// opener owns the hold; the wallet handler only validates and delegates.
type WithdrawalOpener interface {
	OpenWithdrawal(ctx context.Context, playerID, tenantID string, amountCents int64, method string) (id, state string, err error)
}

// Handler provides the player-facing wallet endpoints.
type Handler struct {
	svc     *Service
	policy  PolicyChecker
	rg      DepositGuard
	finance WithdrawalOpener
}

// NewHandler creates a wallet handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// WithPolicy wires tenant payment-policy enforcement.
func (h *Handler) WithPolicy(p PolicyChecker) *Handler {
	h.policy = p
	return h
}

// WithDepositGuard wires responsible-gaming limit enforcement.
func (h *Handler) WithDepositGuard(g DepositGuard) *Handler {
	h.rg = g
	return h
}

// WithFinance wires the withdrawal pipeline.
func (h *Handler) WithFinance(f WithdrawalOpener) *Handler {
	h.finance = f
	return h
}

// RegisterRoutes sets up wallet routes on the player group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/wallet/balance", h.GetBalance)
	r.GET("/wallet/transactions", h.ListTransactions)
	r.POST("/wallet/deposit", h.Deposit)
	r.POST("/wallet/withdraw", h.Withdraw)
}

func playerID(c *gin.Context) string {
	id, _ := auth.PlayerIDFromContext(c)
	return id
}

func tenantID(c *gin.Context) string {
	id, _ := auth.TenantIDFromContext(c)
	return id
}

// GetBalance handles GET /player/wallet/balance.
func (h *Handler) GetBalance(c *gin.Context) {
	bal, err := h.svc.GetBalance(c.Request.Context(), playerID(c))
	if err != nil {
		apierr.Abort(c, apierr.Wrap(apierr.CodeInternal, "Failed to load balance", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": bal})
}

// ListTransactions handles GET /player/wallet/transactions.
func (h *Handler) ListTransactions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	limit = pagination.ClampLimit(limit)

	var before *time.Time
	cursor, err := pagination.Decode(c.Query("cursor"))
	if err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "Invalid cursor."))
		return
	}
	if cursor != nil {
		before = &cursor.CreatedAt
	}

	txs, err := h.svc.ListTransactions(c.Request.Context(), playerID(c), limit+1, before)
	if err != nil {
		apierr.Abort(c, apierr.Wrap(apierr.CodeInternal, "Failed to list transactions", err))
		return
	}

	txs, next, hasMore := pagination.ComputePage(txs, limit, func(t *Transaction) (time.Time, string) {
		return t.CreatedAt, t.ID
	})

	c.JSON(http.StatusOK, gin.H{
		"transactions": txs,
		"next_cursor":  next,
		"has_more":     hasMore,
	})
}

// DepositRequest is the player deposit payload. Outcome selects the
// mock provider result in demo environments ("fail" forces a declined
// deposit); real providers ignore it.
type DepositRequest struct {
	AmountCents int64  `json:"amount_cents" binding:"required"`
	Method      string `json:"method"`
	Outcome     string `json:"outcome"`
}

// Deposit handles POST /player/wallet/deposit.
func (h *Handler) Deposit(c *gin.Context) {
	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AmountCents <= 0 {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "amount_cents must be a positive integer"))
		return
	}

	ctx := c.Request.Context()
	pid := playerID(c)

	if h.policy != nil {
		if err := h.policy.CheckDeposit(ctx, tenantID(c), req.AmountCents); err != nil {
			apierr.Abort(c, err)
			return
		}
	}
	if h.rg != nil {
		since := time.Now().UTC().Truncate(24 * time.Hour)
		deposited, err := h.svc.DepositedSince(ctx, pid, since)
		if err != nil {
			apierr.Abort(c, apierr.Wrap(apierr.CodeInternal, "Failed to check deposit limits", err))
			return
		}
		if err := h.rg.CheckDeposit(ctx, pid, req.AmountCents, deposited); err != nil {
			apierr.Abort(c, err)
			return
		}
	}

	key := c.GetHeader("Idempotency-Key")

	// Mock provider outcome: a declined deposit records a net-zero
	// entry. Amounts carrying the decline marker (.13) fail too, so a
	// failure can be provoked without the outcome field.
	if req.Outcome == "fail" || req.AmountCents%100 == 13 {
		tx, err := h.svc.RecordFailedDeposit(ctx, pid, req.AmountCents, key, req.Method)
		if err != nil {
			apierr.Abort(c, apierr.From(err))
			return
		}
		metrics.DepositsTotal.WithLabelValues("failed").Inc()
		c.JSON(http.StatusOK, gin.H{"status": "failed", "transaction": tx})
		return
	}

	tx, replayed, err := h.svc.Deposit(ctx, pid, req.AmountCents, key, req.Method)
	if err != nil {
		apierr.Abort(c, apierr.From(err))
		return
	}
	if replayed {
		metrics.IdempotentReplaysTotal.Inc()
	} else {
		metrics.DepositsTotal.WithLabelValues("success").Inc()
	}

	bal, _ := h.svc.GetBalance(ctx, pid)
	logging.L(ctx).Info("deposit", "player_id", pid, "amount_cents", req.AmountCents, "replayed", replayed)
	c.JSON(http.StatusOK, gin.H{
		"status":      "success",
		"transaction": tx,
		"balance":     bal,
		"replayed":    replayed,
	})
}

// WithdrawRequest is the player withdrawal payload.
type WithdrawRequest struct {
	AmountCents int64  `json:"amount_cents" binding:"required"`
	Method      string `json:"method"`
}

// Withdraw handles POST /player/wallet/withdraw. Funds move from
// available to held immediately; the withdrawal then waits for review.
func (h *Handler) Withdraw(c *gin.Context) {
	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AmountCents <= 0 {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "amount_cents must be a positive integer"))
		return
	}
	if h.finance == nil {
		apierr.Abort(c, apierr.New(apierr.CodeModuleDisabled, "Withdrawals are temporarily disabled."))
		return
	}

	ctx := c.Request.Context()
	pid := playerID(c)

	if h.policy != nil {
		since := time.Now().UTC().Truncate(24 * time.Hour)
		withdrawnToday, err := h.svc.WithdrawnSince(ctx, pid, since)
		if err != nil {
			apierr.Abort(c, apierr.Wrap(apierr.CodeInternal, "Failed to check withdrawal limits", err))
			return
		}
		if err := h.policy.CheckWithdrawal(ctx, tenantID(c), req.AmountCents, withdrawnToday); err != nil {
			apierr.Abort(c, err)
			return
		}
	}

	id, state, err := h.finance.OpenWithdrawal(ctx, pid, tenantID(c), req.AmountCents, req.Method)
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			apierr.Abort(c, apierr.New(apierr.CodeInsufficientFunds, "Insufficient available balance."))
			return
		}
		apierr.Abort(c, apierr.From(err))
		return
	}

	bal, _ := h.svc.GetBalance(ctx, pid)
	logging.L(ctx).Info("withdrawal requested", "player_id", pid, "withdrawal_id", id, "amount_cents", req.AmountCents)
	c.JSON(http.StatusCreated, gin.H{
		"withdrawal_id": id,
		"state":         state,
		"balance":       bal,
	})
}
