package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradespotter/brokerhub/internal/domain/entity"
	"github.com/tradespotter/brokerhub/internal/ports/outbound"
)

// Compile-time check that TemplateRepository implements outbound.TemplateRepository
var _ outbound.TemplateRepository = (*TemplateRepository)(nil)

// TemplateRepository is a PostgreSQL implementation of the outbound.TemplateRepository port
// backed by the risk_warning_translations table.
type TemplateRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewTemplateRepository creates a new PostgreSQL template repository.
func NewTemplateRepository(pool *pgxpool.Pool, logger *slog.Logger) (*TemplateRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TemplateRepository{
		pool:   pool,
		logger: logger.With("component", "template-repository"),
	}, nil
}

// GetTemplate returns the template for one (language, broker type) pair.
func (r *TemplateRepository) GetTemplate(ctx context.Context, languageCode string, brokerType entity.BrokerType) (*entity.RiskTemplate, error) {
	var rt entity.RiskTemplate
	var bt string
	err := r.pool.QueryRow(ctx, `
		SELECT language_code, broker_type, risk_warning_template, updated_at
		FROM risk_warning_translations
		WHERE language_code = $1 AND broker_type = $2
	`, languageCode, brokerType.String()).Scan(&rt.LanguageCode, &bt, &rt.Template, &rt.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", entity.TemplateCacheKey(languageCode, brokerType), outbound.ErrTemplateNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying risk warning template: %w", err)
	}
	rt.BrokerType = entity.BrokerType(bt)
	return &rt, nil
}

// ListTemplates returns all templates ordered by language and broker type.
func (r *TemplateRepository) ListTemplates(ctx context.Context) ([]*entity.RiskTemplate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT language_code, broker_type, risk_warning_template, updated_at
		FROM risk_warning_translations
		ORDER BY language_code, broker_type
	`)
	if err != nil {
		return nil, fmt.Errorf("querying risk warning templates: %w", err)
	}
	defer rows.Close()

	templates := make([]*entity.RiskTemplate, 0)
	for rows.Next() {
		var rt entity.RiskTemplate
		var bt string
		if err := rows.Scan(&rt.LanguageCode, &bt, &rt.Template, &rt.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning risk warning template: %w", err)
		}
		rt.BrokerType = entity.BrokerType(bt)
		templates = append(templates, &rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating risk warning templates: %w", err)
	}
	return templates, nil
}

// UpsertTemplate inserts or replaces a template.
func (r *TemplateRepository) UpsertTemplate(ctx context.Context, template *entity.RiskTemplate) error {
	if template == nil {
		return fmt.Errorf("template cannot be nil")
	}
	updatedAt := template.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO risk_warning_translations (language_code, broker_type, risk_warning_template, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (language_code, broker_type) DO UPDATE SET
			risk_warning_template = EXCLUDED.risk_warning_template,
			updated_at = EXCLUDED.updated_at
	`, template.LanguageCode, template.BrokerType.String(), template.Template, updatedAt)
	if err != nil {
		return fmt.Errorf("upserting risk warning template: %w", err)
	}
	return nil
}

// DeleteTemplate removes a template. Returns ErrTemplateNotFound if no row matched.
func (r *TemplateRepository) DeleteTemplate(ctx context.Context, languageCode string, brokerType entity.BrokerType) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM risk_warning_translations
		WHERE language_code = $1 AND broker_type = $2
	`, languageCode, brokerType.String())
	if err != nil {
		return fmt.Errorf("deleting risk warning template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", entity.TemplateCacheKey(languageCode, brokerType), outbound.ErrTemplateNotFound)
	}
	return nil
}

// SeedTemplates inserts templates that do not exist yet, in one transaction.
// Existing rows are never modified. Returns the number of rows inserted.
func (r *TemplateRepository) SeedTemplates(ctx context.Context, templates []*entity.RiskTemplate) (int, error) {
	if len(templates) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, tx, r.logger)

	batch := &pgx.Batch{}
	for _, rt := range templates {
		batch.Queue(`
			INSERT INTO risk_warning_translations (language_code, broker_type, risk_warning_template)
			VALUES ($1, $2, $3)
			ON CONFLICT (language_code, broker_type) DO NOTHING`,
			rt.LanguageCode, rt.BrokerType.String(), rt.Template,
		)
	}

	inserted := 0
	br := tx.SendBatch(ctx, batch)
	for i := range templates {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return 0, fmt.Errorf("failed to seed template %d: %w", i, err)
		}
		inserted += int(tag.RowsAffected())
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return inserted, nil
}
