// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
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

	"github.com/fairplayhq/nilguard/internal/appeal"
	"github.com/fairplayhq/nilguard/internal/assignment"
	"github.com/fairplayhq/nilguard/internal/audit"
	"github.com/fairplayhq/nilguard/internal/bulk"
	"github.com/fairplayhq/nilguard/internal/config"
	"github.com/fairplayhq/nilguard/internal/deal"
	"github.com/fairplayhq/nilguard/internal/health"
	"github.com/fairplayhq/nilguard/internal/logging"
	"github.com/fairplayhq/nilguard/internal/metrics"
	"github.com/fairplayhq/nilguard/internal/override"
	"github.com/fairplayhq/nilguard/internal/ratelimit"
	"github.com/fairplayhq/nilguard/internal/realtime"
	"github.com/fairplayhq/nilguard/internal/security"
	"github.com/fairplayhq/nilguard/internal/validation"
	"github.com/fairplayhq/nilguard/internal/webhooks"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg          *config.Config
	deals        *deal.Service
	overrides    *override.Service
	appeals      *appeal.Service
	assignments  *assignment.Service
	bulkActions  *bulk.Service
	auditLog     audit.Log
	dispatcher   *webhooks.Dispatcher
	emitter      *webhooks.Emitter
	realtimeHub  *realtime.Hub
	rateLimiter  *ratelimit.Limiter
	healthChecks *health.Registry
	db           *sql.DB // nil if using in-memory
	router       *gin.Engine
	httpSrv      *http.Server
	logger       *slog.Logger
	cancelRunCtx context.CancelFunc // cancels background goroutines started in Run

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:          cfg,
		logger:       logging.New(cfg.LogLevel, "json"),
		healthChecks: health.NewRegistry(),
	}

	for _, opt := range opts {
		opt(s)
	}

	// Storage-backed stores (Postgres if DATABASE_URL set, otherwise in-memory)
	var (
		dealStore     deal.Store
		overrideStore override.Store
		appealStore   appeal.Store
		assignStore   assignment.Store
		webhookStore  webhooks.Store
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
		s.auditLog = audit.NewPostgresLog(db)
		dealStore = deal.NewPostgresStore(db)
		overrideStore = override.NewPostgresStore(db)
		appealStore = appeal.NewPostgresStore(db)
		assignStore = assignment.NewPostgresStore(db)
		webhookStore = webhooks.NewPostgresStore(db)
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))

		s.healthChecks.Register("database", func(ctx context.Context) health.Status {
			if err := db.PingContext(ctx); err != nil {
				return health.Status{Name: "database", Healthy: false, Detail: err.Error()}
			}
			return health.Status{Name: "database", Healthy: true}
		})
	} else {
		memLog := audit.NewMemoryLog()
		s.auditLog = memLog
		dealStore = deal.NewMemoryStore(memLog)
		overrideStore = override.NewMemoryStore(memLog)
		appealStore = appeal.NewMemoryStore(memLog)
		assignStore = assignment.NewMemoryStore()
		webhookStore = webhooks.NewMemoryStore()
		s.logger.Info("using in-memory storage (data will not persist)")
	}

	// Webhooks (fire-and-forget notifications to external services)
	s.dispatcher = webhooks.NewDispatcherWithRetry(webhookStore, webhooks.DefaultRetryConfig())
	s.emitter = webhooks.NewEmitter(s.dispatcher, s.logger)

	// Realtime hub for WebSocket streaming
	s.realtimeHub = realtime.NewHub(s.logger)
	s.logger.Info("realtime streaming enabled")

	// Automated score provider: external service if configured, heuristic otherwise
	var provider deal.ScoreProvider
	if cfg.ScoringURL != "" {
		provider = deal.NewHTTPProvider(cfg.ScoringURL, time.Duration(cfg.ScoringTimeout)*time.Second)
		s.logger.Info("scoring service configured", "url", cfg.ScoringURL)
	} else {
		provider = deal.NewHeuristicProvider()
		s.logger.Info("using built-in heuristic scorer")
	}

	// Services. The resolver needs override/appeal lookups, which in turn
	// need the resolver, so lookups are wired after construction.
	resolver := deal.NewResolver(dealStore, nil, nil)
	s.deals = deal.NewService(dealStore, resolver, provider, &dealEvents{s.realtimeHub, s.emitter})
	s.overrides = override.NewService(overrideStore, resolver, &overrideEvents{s.realtimeHub, s.emitter})
	s.appeals = appeal.NewService(appealStore, resolver, &appealEvents{s.realtimeHub, s.emitter})
	resolver.SetLookups(s.overrides, s.appeals)

	s.assignments = assignment.NewService(assignStore, cfg.OverdueDays)
	s.bulkActions = bulk.NewService(s.overrides, s.assignments, &bulkEvents{s.realtimeHub, s.emitter})

	// Configure gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// maskDSN hides password in connection string for logging
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

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers
	s.router.Use(security.HeadersMiddleware())

	// CORS (allow all origins for demo - restrict in production)
	s.router.Use(security.CORSMiddleware([]string{"*"}))

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Rate limiting
	rlCfg := ratelimit.DefaultConfig()
	rlCfg.RequestsPerMinute = s.cfg.RateLimitRPS * 60
	s.rateLimiter = ratelimit.New(rlCfg)
	s.router.Use(s.rateLimiter.Middleware())

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		// Add to context
		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		// Set response header
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

		// Log level based on status code
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

// adminSecretMiddleware gates mutating routes behind X-Admin-Secret when
// ADMIN_SECRET is configured. Without it (local demo) the routes are open.
func (s *Server) adminSecretMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.AdminSecret == "" {
			c.Next()
			return
		}
		provided := c.GetHeader("X-Admin-Secret")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(s.cfg.AdminSecret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Valid X-Admin-Secret header required",
			})
			return
		}
		c.Next()
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// WebSocket for real-time streaming
	s.router.GET("/ws", func(c *gin.Context) {
		s.realtimeHub.HandleWebSocket(c.Writer, c.Request)
	})

	// API info
	s.router.GET("/api", s.infoHandler)

	// V1 API group
	v1 := s.router.Group("/v1")

	dealHandler := deal.NewHandler(s.deals)
	overrideHandler := override.NewHandler(s.overrides)
	appealHandler := appeal.NewHandler(s.appeals)
	assignmentHandler := assignment.NewHandler(s.assignments)
	auditHandler := audit.NewHandler(s.auditLog)
	bulkHandler := bulk.NewHandler(s.bulkActions)
	webhookHandler := webhooks.NewHandler(s.dispatcher.Store(), s.dispatcher)

	// PUBLIC ROUTES (read-only dashboard surface)
	dealHandler.RegisterRoutes(v1)
	overrideHandler.RegisterRoutes(v1)
	appealHandler.RegisterRoutes(v1)
	assignmentHandler.RegisterRoutes(v1)
	auditHandler.RegisterRoutes(v1)

	v1.GET("/stats", s.statsHandler)

	// PROTECTED ROUTES (state transitions)
	protected := v1.Group("")
	protected.Use(s.adminSecretMiddleware())
	{
		dealHandler.RegisterProtectedRoutes(protected)
		overrideHandler.RegisterProtectedRoutes(protected)
		appealHandler.RegisterProtectedRoutes(protected)
		assignmentHandler.RegisterProtectedRoutes(protected)
		bulkHandler.RegisterProtectedRoutes(protected)
		webhookHandler.RegisterRoutes(protected)
	}
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Checks    []health.Status `json:"checks,omitempty"`
	Timestamp string          `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	healthy, checks := s.healthChecks.CheckAll(ctx)

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
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

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "NILGuard",
		"description": "Decision lifecycle engine for NIL compliance",
		"version":     "0.1.0",
	})
}

// statsHandler returns the appeal queue depth and realtime hub stats for
// dashboard summary tiles.
func (s *Server) statsHandler(c *gin.Context) {
	ctx := c.Request.Context()

	stats := gin.H{
		"realtime": s.realtimeHub.Stats(),
	}

	if q, err := s.appeals.Queue(ctx, 0); err == nil {
		stats["appeals"] = gin.H{
			"open":        len(q.Items),
			"submitted":   q.Submitted,
			"underReview": q.UnderReview,
		}
	}

	if workloads, err := s.assignments.TeamWorkload(ctx); err == nil {
		open, overdue := 0, 0
		for _, w := range workloads {
			open += w.Open
			overdue += w.Overdue
		}
		stats["assignments"] = gin.H{
			"members": len(workloads),
			"open":    open,
			"overdue": overdue,
		}
	}

	c.JSON(http.StatusOK, stats)
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	// Create a cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Channel to catch server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		s.logger.Info("starting server", "port", s.cfg.Port)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start realtime hub
	go s.realtimeHub.Run(runCtx)

	// Periodic DB pool stats for the /metrics endpoint
	if s.db != nil {
		go metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
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

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for all background goroutines (hub, collectors)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	// Give load balancers time to stop sending traffic
	time.Sleep(5 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
		s.logger.Info("rate limiter stopped")
	}

	// Close database connection pool
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

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
