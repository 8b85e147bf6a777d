package testutil

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SeedBroker inserts an active broker and returns its auto-generated ID.
func SeedBroker(t *testing.T, ctx context.Context, pool *pgxpool.Pool, slug, name, brokerType string, rating float64, riskNote string, featured bool) int64 {
	t.Helper()

	var id int64
	err := pool.QueryRow(ctx, `
		INSERT INTO brokers (slug, name, broker_type, rating, risk_note, is_featured, features)
		VALUES ($1, $2, $3, $4, $5, $6, ARRAY['Demo account'])
		RETURNING id
	`, slug, name, brokerType, rating, riskNote, featured).Scan(&id)
	if err != nil {
		t.Fatalf("failed to insert test broker %s: %v", slug, err)
	}
	return id
}

// SeedBrokerTranslation inserts a translation for a broker.
func SeedBrokerTranslation(t *testing.T, ctx context.Context, pool *pgxpool.Pool, brokerID int64, languageCode, buttonText string) {
	t.Helper()

	_, err := pool.Exec(ctx, `
		INSERT INTO broker_translations (broker_id, language_code, description, button_text)
		VALUES ($1, $2, $3, $4)
	`, brokerID, languageCode, "Description "+languageCode, buttonText)
	if err != nil {
		t.Fatalf("failed to insert translation for broker %d: %v", brokerID, err)
	}
}

// DeactivateBroker marks a broker inactive.
func DeactivateBroker(t *testing.T, ctx context.Context, pool *pgxpool.Pool, brokerID int64) {
	t.Helper()

	if _, err := pool.Exec(ctx, `UPDATE brokers SET active = FALSE WHERE id = $1`, brokerID); err != nil {
		t.Fatalf("failed to deactivate broker %d: %v", brokerID, err)
	}
}

// TruncateTemplates empties the template table, including seeded rows.
func TruncateTemplates(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()

	if _, err := pool.Exec(ctx, `TRUNCATE risk_warning_translations`); err != nil {
		t.Fatalf("failed to truncate templates: %v", err)
	}
}
