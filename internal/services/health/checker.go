// Package health reports API readiness from its backing services.
package health

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/tradespotter/brokerhub/internal/ports/inbound"
	"github.com/tradespotter/brokerhub/internal/ports/outbound"
)

var _ inbound.HealthChecker = (*Checker)(nil)

// DefaultPingTimeout bounds a single dependency probe.
const DefaultPingTimeout = 2 * time.Second

// Config holds configuration for the Checker.
type Config struct {
	PingTimeout time.Duration
	Logger      *slog.Logger
}

// Dependency is a named backing service.
type Dependency struct {
	Name     string
	Pinger   outbound.Pinger
	Required bool
}

// Checker implements inbound.HealthChecker. The API is ready when every
// required dependency answers a ping; optional dependencies are only logged.
type Checker struct {
	deps    []Dependency
	timeout time.Duration
	logger  *slog.Logger
	healthy atomic.Bool
}

// NewChecker creates a Checker over deps.
func NewChecker(cfg Config, deps ...Dependency) *Checker {
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = DefaultPingTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	c := &Checker{
		deps:    deps,
		timeout: cfg.PingTimeout,
		logger:  cfg.Logger.With("component", "health-checker"),
	}
	c.healthy.Store(true)
	return c
}

// IsReady pings every dependency.
func (c *Checker) IsReady() bool {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	ready := true
	for _, d := range c.deps {
		if err := d.Pinger.Ping(ctx); err != nil {
			if d.Required {
				c.logger.Warn("dependency not ready", "dependency", d.Name, "error", err)
				ready = false
			} else {
				c.logger.Debug("optional dependency unavailable", "dependency", d.Name, "error", err)
			}
		}
	}
	return ready
}

// IsHealthy reports whether the process is serving. It turns false after MarkUnhealthy.
func (c *Checker) IsHealthy() bool {
	return c.healthy.Load()
}

// MarkUnhealthy makes the liveness probe fail, e.g. after the API server died.
func (c *Checker) MarkUnhealthy() {
	c.healthy.Store(false)
}
