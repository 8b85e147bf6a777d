// Package postgres provides PostgreSQL adapters for the template and broker tables.
package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DBConfig holds configuration for the PostgreSQL connection pool.
type DBConfig struct {
	// URL is the PostgreSQL connection string.
	URL string

	// ApplicationName shows up in pg_stat_activity.
	ApplicationName string

	// StatementTimeout aborts any statement running longer. Zero keeps the
	// server default.
	StatementTimeout time.Duration

	// ConnectTimeout bounds pool creation including the first ping.
	ConnectTimeout time.Duration

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultDBConfig returns the pool settings used by the API. Template reads
// are short point lookups, so the pool stays small.
func DefaultDBConfig(url string) DBConfig {
	return DBConfig{
		URL:              url,
		ApplicationName:  "brokerhub",
		StatementTimeout: 5 * time.Second,
		ConnectTimeout:   10 * time.Second,
		MaxConns:         10,
		MinConns:         2,
		MaxConnLifetime:  30 * time.Minute,
		MaxConnIdleTime:  5 * time.Minute,
	}
}

// OpenPool creates a pgx pool and pings the database before returning it.
// The caller closes the pool.
func OpenPool(ctx context.Context, cfg DBConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	applyRuntimeParams(poolConfig, cfg)

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// applyRuntimeParams sets session parameters unless the URL already did.
func applyRuntimeParams(poolConfig *pgxpool.Config, cfg DBConfig) {
	params := poolConfig.ConnConfig.RuntimeParams
	if cfg.ApplicationName != "" {
		if _, ok := params["application_name"]; !ok {
			params["application_name"] = cfg.ApplicationName
		}
	}
	if cfg.StatementTimeout > 0 {
		if _, ok := params["statement_timeout"]; !ok {
			params["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
		}
	}
}
