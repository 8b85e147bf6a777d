// Package http provides the inbound HTTP adapters: the gin based REST API and
// the health check server.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tradespotter/brokerhub/internal/ports/inbound"
)

// HealthServerConfig holds configuration for the health server.
type HealthServerConfig struct {
	// Addr is the address to listen on (e.g., ":8080")
	Addr string

	// Logger for the health server
	Logger *slog.Logger

	// ReadTimeout for HTTP requests
	ReadTimeout time.Duration

	// WriteTimeout for HTTP responses
	WriteTimeout time.Duration

	// Version is reported by /health so deployments can be told apart.
	Version string
}

// HealthServerConfigDefaults returns a config with default values.
func HealthServerConfigDefaults() HealthServerConfig {
	return HealthServerConfig{
		Addr:         ":8080",
		Logger:       slog.Default(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		Version:      "dev",
	}
}

// HealthServer serves the probe endpoints on a port of its own, outside the
// API rate limits.
//
//   - GET /health/ready  200 while every required dependency answers
//   - GET /health/live   200 until the process is marked unhealthy
//   - GET /health        readiness, liveness, version and uptime in one body
//
// The API sets shuttingDown before it stops serving so the load balancer
// drains the instance first.
type HealthServer struct {
	server       *http.Server
	checker      inbound.HealthChecker
	shuttingDown *atomic.Bool
	version      string
	startedAt    time.Time
	now          func() time.Time
	logger       *slog.Logger
}

type healthResponse struct {
	Status        string `json:"status"`
	Ready         bool   `json:"ready"`
	Healthy       bool   `json:"healthy"`
	ShuttingDown  bool   `json:"shuttingDown"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
}

// NewHealthServer creates a new health server.
func NewHealthServer(config HealthServerConfig, checker inbound.HealthChecker, shuttingDown *atomic.Bool) *HealthServer {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 5 * time.Second
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = 5 * time.Second
	}
	if config.Version == "" {
		config.Version = "dev"
	}
	if shuttingDown == nil {
		shuttingDown = &atomic.Bool{}
	}

	hs := &HealthServer{
		checker:      checker,
		shuttingDown: shuttingDown,
		version:      config.Version,
		startedAt:    time.Now(),
		now:          time.Now,
		logger:       config.Logger.With("component", "health-server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/ready", hs.handleReady)
	mux.HandleFunc("GET /health/live", hs.handleLive)
	mux.HandleFunc("GET /health", hs.handleHealth)

	hs.server = &http.Server{
		Addr:         config.Addr,
		Handler:      mux,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return hs
}

// Handler returns the probe mux.
func (hs *HealthServer) Handler() http.Handler {
	return hs.server.Handler
}

// Start serves in a goroutine.
func (hs *HealthServer) Start() {
	go func() {
		hs.logger.Info("starting health server", "addr", hs.server.Addr)
		if err := hs.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			hs.logger.Error("health server failed", "error", err)
		}
	}()
}

// Shutdown gracefully stops the health server.
func (hs *HealthServer) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return hs.server.Shutdown(ctx)
}

func (hs *HealthServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if hs.shuttingDown.Load() {
		hs.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
		return
	}
	if hs.checker.IsReady() {
		hs.respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	} else {
		hs.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
	}
}

func (hs *HealthServer) handleLive(w http.ResponseWriter, r *http.Request) {
	if hs.shuttingDown.Load() {
		hs.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
		return
	}
	if hs.checker.IsHealthy() {
		hs.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	} else {
		hs.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
	}
}

func (hs *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Version:       hs.version,
		UptimeSeconds: int64(hs.now().Sub(hs.startedAt) / time.Second),
	}

	if hs.shuttingDown.Load() {
		resp.Status = "shutting_down"
		resp.ShuttingDown = true
		hs.respondJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	resp.Ready = hs.checker.IsReady()
	resp.Healthy = hs.checker.IsHealthy()
	resp.Status = "ok"
	statusCode := http.StatusOK
	if !resp.Ready || !resp.Healthy {
		resp.Status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}
	hs.respondJSON(w, statusCode, resp)
}

func (hs *HealthServer) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		hs.logger.Error("failed to encode JSON response", "error", err)
	}
}
