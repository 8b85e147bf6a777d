package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	// Addr is the address to listen on (e.g., ":8085")
	Addr string

	// RateLimit is the sustained requests per second allowed per IP.
	RateLimit rate.Limit

	// RateBurst is the per-IP bucket size.
	RateBurst int

	// AdminToken enables the admin API when non-empty.
	AdminToken string

	// AdminRateLimit and AdminRateBurst bound admin requests per IP.
	AdminRateLimit rate.Limit
	AdminRateBurst int

	// LimiterIdleTTL is how long an idle per-IP limiter is kept.
	LimiterIdleTTL time.Duration

	// ReadTimeout for HTTP requests
	ReadTimeout time.Duration

	// WriteTimeout for HTTP responses
	WriteTimeout time.Duration

	// Metrics receives request durations. Optional.
	Metrics RequestRecorder

	Logger *slog.Logger
}

// ServerConfigDefaults returns a config with default values.
func ServerConfigDefaults() ServerConfig {
	return ServerConfig{
		Addr:           ":8085",
		RateLimit:      20,
		RateBurst:      40,
		AdminRateLimit: rate.Every(6 * time.Second),
		AdminRateBurst: 10,
		LimiterIdleTTL: time.Hour,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   15 * time.Second,
		Logger:         slog.Default(),
	}
}

// Server is the public API server.
type Server struct {
	server         *http.Server
	engine         *gin.Engine
	limiters       []*IPRateLimiter
	limiterIdleTTL time.Duration
	stopCleanup    context.CancelFunc
	logger         *slog.Logger
}

// NewServer builds the gin engine and routes. The admin group is only
// registered when cfg.AdminToken is set.
func NewServer(cfg ServerConfig, handler *Handler) *Server {
	defaults := ServerConfigDefaults()
	if cfg.Addr == "" {
		cfg.Addr = defaults.Addr
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaults.RateLimit
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = defaults.RateBurst
	}
	if cfg.AdminRateLimit <= 0 {
		cfg.AdminRateLimit = defaults.AdminRateLimit
	}
	if cfg.AdminRateBurst <= 0 {
		cfg.AdminRateBurst = defaults.AdminRateBurst
	}
	if cfg.LimiterIdleTTL <= 0 {
		cfg.LimiterIdleTTL = defaults.LimiterIdleTTL
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = defaults.Logger
	}
	logger := cfg.Logger.With("component", "api-server")

	engine := gin.New()
	engine.Use(RecoveryMiddleware(logger), RequestLoggerMiddleware(logger, cfg.Metrics))

	publicLimiter := NewIPRateLimiter(cfg.RateLimit, cfg.RateBurst)
	s := &Server{
		engine:         engine,
		limiters:       []*IPRateLimiter{publicLimiter},
		limiterIdleTTL: cfg.LimiterIdleTTL,
		stopCleanup:    func() {},
		logger:         logger,
	}

	api := engine.Group("/api/v1", RateLimitMiddleware(publicLimiter, logger))
	handler.RegisterPublicRoutes(api)

	if cfg.AdminToken != "" && handler.admin != nil {
		adminLimiter := NewIPRateLimiter(cfg.AdminRateLimit, cfg.AdminRateBurst)
		s.limiters = append(s.limiters, adminLimiter)
		admin := engine.Group("/api/v1/admin",
			RateLimitMiddleware(adminLimiter, logger),
			AdminAuthMiddleware(cfg.AdminToken, logger),
		)
		handler.RegisterAdminRoutes(admin)
	} else {
		logger.Info("admin API disabled")
	}

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start begins serving in a goroutine and starts limiter cleanup. The
// returned channel receives the error if the listener fails (bind error or
// a later accept failure); it is closed without a value after Shutdown.
func (s *Server) Start() <-chan error {
	ctx, cancel := context.WithCancel(context.Background())
	s.stopCleanup = cancel
	go s.cleanupLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		s.logger.Info("starting API server", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server failed", "error", err)
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()
	return errCh
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.stopCleanup()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(s.limiterIdleTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := 0
			for _, l := range s.limiters {
				removed += l.Cleanup(s.limiterIdleTTL)
			}
			if removed > 0 {
				s.logger.Debug("dropped idle rate limiters", "count", removed)
			}
		}
	}
}
