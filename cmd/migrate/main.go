// Package main applies the SQL migrations and optionally seeds the risk
// warning table with the built-in templates.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/tradespotter/brokerhub/db/migrator"
	"github.com/tradespotter/brokerhub/internal/adapters/outbound/postgres"
	"github.com/tradespotter/brokerhub/internal/pkg/env"
	"github.com/tradespotter/brokerhub/internal/services/risk_warning"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	if err := run(context.Background(), os.Args[1:]); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}
}

type cliConfig struct {
	dbURL         string
	dir           string
	seedTemplates bool
	status        bool
}

func parseConfig(args []string) (cliConfig, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	dbURL := fs.String("db", "", "PostgreSQL connection URL")
	dir := fs.String("dir", "./db/migrations", "Migrations directory")
	seed := fs.Bool("seed-templates", false, "Insert built-in risk warning templates that are missing")
	status := fs.Bool("status", false, "List pending migrations without applying them")
	if err := fs.Parse(args); err != nil {
		return cliConfig{}, err
	}

	cfg := cliConfig{dbURL: *dbURL, dir: *dir, seedTemplates: *seed, status: *status}
	if cfg.status && cfg.seedTemplates {
		return cliConfig{}, fmt.Errorf("-status cannot be combined with -seed-templates")
	}
	if cfg.dbURL == "" {
		cfg.dbURL = env.Get("DATABASE_URL", "")
	}
	if cfg.dbURL == "" {
		return cliConfig{}, fmt.Errorf("database URL not provided (use -db flag or DATABASE_URL env var)")
	}
	return cfg, nil
}

func run(ctx context.Context, args []string) error {
	cfg, err := parseConfig(args)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: env.ParseLogLevel(slog.LevelInfo),
	}))

	pool, err := pgxpool.New(ctx, cfg.dbURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	m := migrator.New(pool, cfg.dir).WithLogger(logger)
	if cfg.status {
		pending, err := m.Pending(ctx)
		if err != nil {
			return err
		}
		for _, name := range pending {
			fmt.Println(name)
		}
		logger.Info("migration status", "pending", len(pending))
		return nil
	}

	if err := m.ApplyAll(ctx); err != nil {
		return err
	}
	logger.Info("all migrations up to date")

	if !cfg.seedTemplates {
		return nil
	}

	repo, err := postgres.NewTemplateRepository(pool, logger)
	if err != nil {
		return fmt.Errorf("creating template repository: %w", err)
	}
	n, err := repo.SeedTemplates(ctx, risk_warning.StaticTemplateEntries())
	if err != nil {
		return fmt.Errorf("seeding templates: %w", err)
	}
	logger.Info("seeded risk warning templates", "inserted", n)
	return nil
}
