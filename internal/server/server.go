// Package server assembles the HTTP API: storage, services, middleware,
// and routes.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/affiliate"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/audit"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/auth"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/bonus"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/config"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/crm"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/finance"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/flags"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/game"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/health"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/idgen"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/kyc"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/logging"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/metrics"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/player"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/provider"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/ratelimit"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/realtime"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/reporting"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/rg"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/tenant"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/traces"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/wallet"
)

// Kill-switch module names. Flipping one disables its route group.
const (
	ModuleWallet     = "wallet"
	ModuleFinance    = "finance"
	ModuleBonus      = "bonus"
	ModuleCRM        = "crm"
	ModuleKYC        = "kyc"
	ModuleGames      = "games"
	ModuleAffiliates = "affiliates"
)

// Server wraps the HTTP server and all platform services.
type Server struct {
	cfg         *config.Config
	logger      *slog.Logger
	db          *sql.DB // nil if using in-memory
	router      *gin.Engine
	httpSrv     *http.Server
	rateLimiter *ratelimit.Limiter
	health      *health.Registry

	authMgr      *auth.Manager
	recorder     *audit.Recorder
	players      *player.Service
	walletSvc    *wallet.Service
	financeSvc   *finance.Service
	tenants      *tenant.Service
	kycSvc       *kyc.Service
	bonusSvc     *bonus.Service
	crmSvc       *crm.Service
	affiliates   *affiliate.Service
	flagsSvc     *flags.Service
	rgSvc        *rg.Service
	games        *game.Service
	reports      *reporting.Service
	payouts      finance.PayoutProvider
	realtimeHub  *realtime.Hub
	traceCleanup func(context.Context) error
	cancelRunCtx context.CancelFunc

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithPayoutProvider injects a payout provider (tests use the mock
// with scripted outcomes).
func WithPayoutProvider(p finance.PayoutProvider) Option {
	return func(s *Server) {
		s.payouts = p
	}
}

// New creates a server with all services wired. Storage is PostgreSQL
// when DATABASE_URL is set, in-memory otherwise.
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, cfg.LogFormat),
		health: health.NewRegistry(),
	}

	for _, opt := range opts {
		opt(s)
	}

	ctx := context.Background()

	var (
		authStore      auth.Store
		auditStore     audit.Store
		playerStore    player.Store
		walletStore    wallet.Store
		financeStore   finance.Store
		tenantStore    tenant.Store
		kycStore       kyc.Store
		bonusStore     bonus.Store
		crmStore       crm.Store
		affiliateStore affiliate.Store
		flagStore      flags.Store
		rgStore        rg.Store
		gameStore      game.Store
	)

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		s.db = db
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))

		pgAuth := auth.NewPostgresStore(db)
		pgAudit := audit.NewPostgresStore(db)
		pgPlayer := player.NewPostgresStore(db)
		pgWallet := wallet.NewPostgresStore(db, cfg.DefaultCurrency)
		pgFinance := finance.NewPostgresStore(db)
		pgTenant := tenant.NewPostgresStore(db)
		pgKYC := kyc.NewPostgresStore(db)
		pgBonus := bonus.NewPostgresStore(db)
		pgCRM := crm.NewPostgresStore(db)
		pgAffiliate := affiliate.NewPostgresStore(db)
		pgFlags := flags.NewPostgresStore(db)
		pgRG := rg.NewPostgresStore(db)
		pgGame := game.NewPostgresStore(db)

		type migrator interface {
			Migrate(ctx context.Context) error
		}
		for _, m := range []migrator{
			pgAuth, pgAudit, pgPlayer, pgWallet, pgFinance, pgTenant, pgKYC,
			pgBonus, pgCRM, pgAffiliate, pgFlags, pgRG, pgGame,
		} {
			if err := m.Migrate(ctx); err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}

		authStore = pgAuth
		auditStore = pgAudit
		playerStore = pgPlayer
		walletStore = pgWallet
		financeStore = pgFinance
		tenantStore = pgTenant
		kycStore = pgKYC
		bonusStore = pgBonus
		crmStore = pgCRM
		affiliateStore = pgAffiliate
		flagStore = pgFlags
		rgStore = pgRG
		gameStore = pgGame

		s.health.Register("database", func(ctx context.Context) health.Status {
			ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				return health.Status{Name: "database", Healthy: false, Detail: err.Error()}
			}
			return health.Status{Name: "database", Healthy: true}
		})
	} else {
		s.logger.Info("using in-memory storage (data will not persist)")
		authStore = auth.NewMemoryStore()
		auditStore = audit.NewMemoryStore()
		playerStore = player.NewMemoryStore()
		walletStore = wallet.NewMemoryStore(cfg.DefaultCurrency)
		financeStore = finance.NewMemoryStore()
		tenantStore = tenant.NewMemoryStore()
		kycStore = kyc.NewMemoryStore()
		bonusStore = bonus.NewMemoryStore()
		crmStore = crm.NewMemoryStore()
		affiliateStore = affiliate.NewMemoryStore()
		flagStore = flags.NewMemoryStore()
		rgStore = rg.NewMemoryStore()
		gameStore = game.NewMemoryStore()
	}

	// Core services
	s.authMgr = auth.NewManager(authStore, cfg.JWTSecret, time.Duration(cfg.TokenTTLHours)*time.Hour)
	s.recorder = audit.NewRecorder(auditStore)
	s.players = player.NewService(playerStore)
	s.walletSvc = wallet.NewService(walletStore)
	s.tenants = tenant.NewService(tenantStore)

	// Payout provider: injected > Stripe (when configured) > mock.
	if s.payouts == nil {
		if cfg.StripeSecretKey != "" {
			s.payouts = provider.NewStripeProvider(cfg.StripeSecretKey, cfg.DefaultCurrency)
			s.logger.Info("stripe payout provider enabled")
		} else {
			s.payouts = provider.NewMockProvider()
			s.logger.Info("mock payout provider enabled")
		}
	}

	s.realtimeHub = realtime.NewHub(s.logger)
	s.recorder.WithEmitter(s.realtimeHub)

	s.financeSvc = finance.NewService(financeStore, &walletHoldAdapter{s.walletSvc}, s.payouts).
		WithEmitter(s.realtimeHub)

	s.kycSvc = kyc.NewService(kycStore, s.players)
	s.bonusSvc = bonus.NewService(bonusStore)
	s.crmSvc = crm.NewService(crmStore, s.players)
	s.affiliates = affiliate.NewService(affiliateStore)
	s.rgSvc = rg.NewService(rgStore)
	s.games = game.NewService(gameStore)
	s.reports = reporting.NewService(s.walletSvc)

	flagsSvc, err := flags.NewService(ctx, flagStore)
	if err != nil {
		return nil, fmt.Errorf("load feature flags: %w", err)
	}
	s.flagsSvc = flagsSvc

	if err := s.bootstrapAdmin(ctx); err != nil {
		return nil, err
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// bootstrapAdmin creates the initial super admin when the store is
// empty, so a fresh deployment is immediately operable.
func (s *Server) bootstrapAdmin(ctx context.Context) error {
	existing, err := s.authMgr.Store().List(ctx)
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	pass := s.cfg.BootstrapPass
	if pass == "" {
		// Config validation requires a password in production; here we
		// are in a dev environment, so generate one and log it.
		pass = idgen.Hex(12)
		s.logger.Warn("generated bootstrap admin password", "email", s.cfg.BootstrapEmail, "password", pass)
	}

	admin, err := s.authMgr.CreateAdmin(ctx, s.cfg.BootstrapEmail, pass, auth.RoleSuperAdmin, "")
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	s.logger.Info("bootstrap super admin created", "email", admin.Email, "id", admin.ID)
	return nil
}

// maskDSN hides the password in a connection string for logging.
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "INTERNAL",
				"message": "An unexpected error occurred",
			},
		})
	}))

	s.router.Use(corsMiddleware())
	s.router.Use(bodySizeLimit(1 << 20)) // 1MB

	s.rateLimiter = ratelimit.New(ratelimit.Config{RequestsPerMinute: s.cfg.RateLimitRPM})
	s.router.Use(s.rateLimiter.Middleware())

	s.router.Use(metrics.Middleware())
	s.router.Use(s.requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, Idempotency-Key, X-Reason, X-Request-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func bodySizeLimit(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		c.Next()
	}
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Honor an existing request ID (from the load balancer).
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = idgen.Hex(16)
		}

		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		logger := logging.L(c.Request.Context())

		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

func (s *Server) setupRoutes() {
	// Health & metrics
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// Live ops feed for connected consoles
	s.router.GET("/ws", func(c *gin.Context) {
		s.realtimeHub.HandleWebSocket(c.Writer, c.Request)
	})

	// Handlers
	authHandler := auth.NewHandler(s.authMgr, s.recorder)
	playerHandler := player.NewHandler(s.players, s.authMgr, s.recorder).
		WithWallet(s.walletSvc).
		WithExclusions(s.rgSvc)
	walletHandler := wallet.NewHandler(s.walletSvc).
		WithPolicy(s.tenants).
		WithDepositGuard(s.rgSvc).
		WithFinance(s.financeSvc)
	financeHandler := finance.NewHandler(s.financeSvc, s.recorder).
		WithWebhookToken(s.cfg.ProviderWebhookToken)
	tenantHandler := tenant.NewHandler(s.tenants, s.recorder)
	kycHandler := kyc.NewHandler(s.kycSvc, s.recorder)
	bonusHandler := bonus.NewHandler(s.bonusSvc, s.recorder).WithGranter(s.walletSvc)
	crmHandler := crm.NewHandler(s.crmSvc, s.recorder)
	affiliateHandler := affiliate.NewHandler(s.affiliates, s.recorder)
	flagsHandler := flags.NewHandler(s.flagsSvc, s.recorder)
	rgHandler := rg.NewHandler(s.rgSvc, s.recorder)
	gameHandler := game.NewHandler(s.games, s.recorder)
	reportHandler := reporting.NewHandler(s.reports)
	auditHandler := audit.NewHandler(s.recorder)

	// PUBLIC ROUTES (no auth): admin login, player signup/login,
	// affiliate tracking pixels, provider payout webhooks.
	public := s.router.Group("/v1")
	authHandler.RegisterPublicRoutes(public)
	playerHandler.RegisterPublicRoutes(public)
	affiliateHandler.RegisterPublicRoutes(public)
	financeHandler.RegisterWebhookRoutes(public)

	// PLAYER ROUTES (player JWT)
	pg := s.router.Group("/player")
	pg.Use(auth.PlayerMiddleware(s.authMgr, s.players))
	playerHandler.RegisterPlayerRoutes(pg)
	kycHandler.RegisterPlayerRoutes(pg)
	rgHandler.RegisterPlayerRoutes(pg)

	playerWallet := pg.Group("", flags.KillSwitch(s.flagsSvc, ModuleWallet))
	walletHandler.RegisterRoutes(playerWallet)

	playerGames := pg.Group("", flags.KillSwitch(s.flagsSvc, ModuleGames))
	gameHandler.RegisterPlayerRoutes(playerGames)

	// ADMIN ROUTES (admin JWT + per-group capability checks)
	v1 := s.router.Group("/v1")
	v1.Use(auth.AdminMiddleware(s.authMgr))

	authHandler.RegisterRoutes(v1)
	playerHandler.RegisterRoutes(v1)
	tenantHandler.RegisterRoutes(v1)
	rgHandler.RegisterRoutes(v1)
	flagsHandler.RegisterRoutes(v1)
	reportHandler.RegisterRoutes(v1)

	// Audit cannot import auth (auth records into audit), so the
	// capability gate lives here.
	auditGrp := v1.Group("", auth.RequireCapability(auth.CapAuditRead))
	auditHandler.RegisterRoutes(auditGrp)

	// Kill-switched module groups
	financeGrp := v1.Group("", flags.KillSwitch(s.flagsSvc, ModuleFinance))
	financeHandler.RegisterRoutes(financeGrp)

	kycGrp := v1.Group("", flags.KillSwitch(s.flagsSvc, ModuleKYC))
	kycHandler.RegisterRoutes(kycGrp)

	bonusGrp := v1.Group("", flags.KillSwitch(s.flagsSvc, ModuleBonus))
	bonusHandler.RegisterRoutes(bonusGrp)

	crmGrp := v1.Group("", flags.KillSwitch(s.flagsSvc, ModuleCRM))
	crmHandler.RegisterRoutes(crmGrp)

	affiliateGrp := v1.Group("", flags.KillSwitch(s.flagsSvc, ModuleAffiliates))
	affiliateHandler.RegisterRoutes(affiliateGrp)

	gamesGrp := v1.Group("", flags.KillSwitch(s.flagsSvc, ModuleGames))
	gameHandler.RegisterRoutes(gamesGrp)
}

// -----------------------------------------------------------------------------
// Health handlers
// -----------------------------------------------------------------------------

func (s *Server) healthHandler(c *gin.Context) {
	healthy, statuses := s.health.CheckAll(c.Request.Context())

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"version":   "0.1.0",
		"checks":    statuses,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	cleanup, err := traces.Init(runCtx, s.cfg.OTLPEndpoint, s.logger)
	if err != nil {
		s.logger.Warn("failed to initialize tracing", "error", err)
	} else {
		s.traceCleanup = cleanup
	}

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "port", s.cfg.Port, "env", s.cfg.Env)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	go s.realtimeHub.Run(runCtx)

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	if s.traceCleanup != nil {
		if err := s.traceCleanup(ctx); err != nil {
			s.logger.Error("trace shutdown error", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// -----------------------------------------------------------------------------
// Adapters
// -----------------------------------------------------------------------------

// walletHoldAdapter adapts the wallet service to the finance hold
// interface (finance doesn't care about the transaction records).
type walletHoldAdapter struct {
	w *wallet.Service
}

func (a *walletHoldAdapter) Hold(ctx context.Context, playerID string, amountCents int64, reference string) error {
	_, err := a.w.Hold(ctx, playerID, amountCents, reference)
	return err
}

func (a *walletHoldAdapter) ReleaseHold(ctx context.Context, playerID string, amountCents int64, reference string) error {
	_, err := a.w.ReleaseHold(ctx, playerID, amountCents, reference)
	return err
}

func (a *walletHoldAdapter) SettleHold(ctx context.Context, playerID string, amountCents int64, reference string) error {
	_, err := a.w.SettleHold(ctx, playerID, amountCents, reference)
	return err
}
