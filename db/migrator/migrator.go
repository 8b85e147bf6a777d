// Package migrator applies the SQL files in db/migrations in lexical order.
// Each applied file is recorded with its sha256 checksum; editing a file after
// it was applied is reported as an error on the next run.
package migrator

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// lockKey serializes concurrent migrators (several API tasks starting at
// once, or a migrate job racing a deploy) on pg_advisory_lock.
const lockKey int64 = 0x62726b68 // "brkh"

// Migrator applies migration files from one directory.
type Migrator struct {
	pool          *pgxpool.Pool
	migrationsDir string
	logger        *slog.Logger
}

type migration struct {
	filename string
	checksum string
	sql      string
}

// New creates a Migrator over pool.
func New(pool *pgxpool.Pool, migrationsDir string) *Migrator {
	return &Migrator{
		pool:          pool,
		migrationsDir: migrationsDir,
		logger:        slog.Default().With("component", "migrator"),
	}
}

// WithLogger replaces the logger used to report applied migrations.
func (m *Migrator) WithLogger(logger *slog.Logger) *Migrator {
	if logger != nil {
		m.logger = logger.With("component", "migrator")
	}
	return m
}

// ApplyAll applies every pending migration, each in its own transaction,
// while holding the advisory lock.
func (m *Migrator) ApplyAll(ctx context.Context) error {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", lockKey); err != nil {
		return fmt.Errorf("failed to take migration lock: %w", err)
	}
	defer func() {
		// The session lock must be released on the same connection.
		if _, err := conn.Exec(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", lockKey); err != nil {
			m.logger.Warn("failed to release migration lock", "error", err)
		}
	}()

	pending, err := m.pending(ctx, conn.Conn())
	if err != nil {
		return err
	}
	for _, mig := range pending {
		if err := m.apply(ctx, conn.Conn(), mig); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", mig.filename, err)
		}
	}
	if len(pending) == 0 {
		m.logger.Debug("no pending migrations")
	}
	return nil
}

// Pending lists the migrations ApplyAll would run, without applying them.
// It fails on the same checksum mismatches ApplyAll does.
func (m *Migrator) Pending(ctx context.Context) ([]string, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	pending, err := m.pending(ctx, conn.Conn())
	if err != nil {
		return nil, err
	}
	names := make([]string, len(pending))
	for i, mig := range pending {
		names[i] = mig.filename
	}
	return names, nil
}

func (m *Migrator) pending(ctx context.Context, conn *pgx.Conn) ([]migration, error) {
	if err := ensureMigrationsTable(ctx, conn); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}
	applied, err := appliedChecksums(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}
	files, err := GetMigrationFiles(m.migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get migration files: %w", err)
	}

	var pending []migration
	for _, filename := range files {
		mig, err := m.load(filename)
		if err != nil {
			return nil, err
		}
		stored, ok := applied[filename]
		if !ok {
			pending = append(pending, mig)
			continue
		}
		if stored != "" && stored != mig.checksum {
			return nil, fmt.Errorf("checksum verification failed for %s: migration has been modified (expected checksum %s, got %s)",
				filename, stored, mig.checksum)
		}
	}
	return pending, nil
}

func (m *Migrator) load(filename string) (migration, error) {
	content, err := os.ReadFile(filepath.Join(m.migrationsDir, filename))
	if err != nil {
		return migration{}, fmt.Errorf("failed to read migration %s: %w", filename, err)
	}
	return migration{filename: filename, checksum: Checksum(content), sql: string(content)}, nil
}

func (m *Migrator) apply(ctx context.Context, conn *pgx.Conn, mig migration) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			m.logger.Warn("failed to rollback transaction", "error", err)
		}
	}()

	if _, err := tx.Exec(ctx, mig.sql); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO migrations (filename, checksum) VALUES ($1, $2)",
		mig.filename, mig.checksum); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	m.logger.Info("applied migration", "filename", mig.filename, "checksum", mig.checksum[:8])
	return nil
}

func ensureMigrationsTable(ctx context.Context, conn *pgx.Conn) error {
	_, err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS migrations (
			filename   TEXT PRIMARY KEY,
			checksum   TEXT,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	return err
}

// appliedChecksums returns filename -> stored checksum ("" for rows recorded
// before checksums existed).
func appliedChecksums(ctx context.Context, conn *pgx.Conn) (map[string]string, error) {
	rows, err := conn.Query(ctx, "SELECT filename, COALESCE(checksum, '') FROM migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]string)
	for rows.Next() {
		var filename, checksum string
		if err := rows.Scan(&filename, &checksum); err != nil {
			return nil, err
		}
		applied[filename] = checksum
	}
	return applied, rows.Err()
}

// GetMigrationFiles lists the .sql files of dir in apply order.
func GetMigrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	return files, nil
}

// Checksum returns the hex sha256 of a migration file's content.
func Checksum(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

// ListApplied returns applied filenames in the order they were applied.
func (m *Migrator) ListApplied(ctx context.Context) ([]string, error) {
	rows, err := m.pool.Query(ctx,
		"SELECT filename FROM migrations ORDER BY applied_at ASC, filename ASC")
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
