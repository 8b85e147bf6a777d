package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradespotter/brokerhub/internal/domain/entity"
	"github.com/tradespotter/brokerhub/internal/ports/outbound"
)

// Compile-time check that BrokerRepository implements outbound.BrokerRepository
var _ outbound.BrokerRepository = (*BrokerRepository)(nil)

const brokerColumns = `
	id, slug, name, broker_type, logo_url, rating::float8, bonus, regulation,
	min_deposit, max_leverage, spreads_from, risk_note, features, is_featured,
	active, updated_at`

// BrokerRepository is a PostgreSQL implementation of the outbound.BrokerRepository port.
type BrokerRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewBrokerRepository creates a new PostgreSQL broker repository.
func NewBrokerRepository(pool *pgxpool.Pool, logger *slog.Logger) (*BrokerRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BrokerRepository{
		pool:   pool,
		logger: logger.With("component", "broker-repository"),
	}, nil
}

// ListBrokers returns active brokers matching the filter, highest rating first,
// with all their translations.
func (r *BrokerRepository) ListBrokers(ctx context.Context, filter entity.BrokerFilter) ([]*entity.Broker, error) {
	filter = filter.Normalize()

	var sb strings.Builder
	sb.WriteString(`SELECT ` + brokerColumns + ` FROM brokers WHERE active`)
	args := make([]any, 0, 3)

	if filter.BrokerType != "" {
		args = append(args, filter.BrokerType.String())
		fmt.Fprintf(&sb, " AND broker_type = $%d", len(args))
	}
	if filter.FeaturedOnly {
		sb.WriteString(" AND is_featured")
	}
	if filter.Query != "" {
		args = append(args, "%"+escapeLike(filter.Query)+"%")
		fmt.Fprintf(&sb, " AND name ILIKE $%d", len(args))
	}
	args = append(args, filter.Limit)
	fmt.Fprintf(&sb, " ORDER BY rating DESC, id ASC LIMIT $%d", len(args))

	brokers, err := r.queryBrokers(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	if err := r.loadTranslations(ctx, brokers); err != nil {
		return nil, err
	}
	return brokers, nil
}

// GetBrokerBySlug returns an active broker with all its translations.
func (r *BrokerRepository) GetBrokerBySlug(ctx context.Context, slug string) (*entity.Broker, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+brokerColumns+` FROM brokers WHERE slug = $1 AND active`, slug)
	b, err := scanBroker(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("slug %q: %w", slug, outbound.ErrBrokerNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying broker: %w", err)
	}
	if err := r.loadTranslations(ctx, []*entity.Broker{b}); err != nil {
		return nil, err
	}
	return b, nil
}

// ListRelatedBrokers returns the top rated active brokers of a type, excluding one broker.
// Translations are not loaded.
func (r *BrokerRepository) ListRelatedBrokers(ctx context.Context, brokerType entity.BrokerType, excludeID int64, limit int) ([]*entity.Broker, error) {
	if limit <= 0 {
		limit = entity.MaxBrokerListLimit
	}
	return r.queryBrokers(ctx, `
		SELECT `+brokerColumns+`
		FROM brokers
		WHERE active AND broker_type = $1 AND id <> $2
		ORDER BY rating DESC, id ASC
		LIMIT $3`, brokerType.String(), excludeID, limit)
}

func (r *BrokerRepository) queryBrokers(ctx context.Context, query string, args ...any) ([]*entity.Broker, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying brokers: %w", err)
	}
	defer rows.Close()

	brokers := make([]*entity.Broker, 0)
	for rows.Next() {
		b, err := scanBroker(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning broker: %w", err)
		}
		brokers = append(brokers, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating brokers: %w", err)
	}
	return brokers, nil
}

func (r *BrokerRepository) loadTranslations(ctx context.Context, brokers []*entity.Broker) error {
	if len(brokers) == 0 {
		return nil
	}

	byID := make(map[int64]*entity.Broker, len(brokers))
	ids := make([]int64, len(brokers))
	for i, b := range brokers {
		byID[b.ID] = b
		ids[i] = b.ID
	}

	rows, err := r.pool.Query(ctx, `
		SELECT broker_id, language_code, description, button_text, search_result_text
		FROM broker_translations
		WHERE broker_id = ANY($1)
	`, ids)
	if err != nil {
		return fmt.Errorf("querying broker translations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t entity.BrokerTranslation
		if err := rows.Scan(&t.BrokerID, &t.LanguageCode, &t.Description, &t.ButtonText, &t.SearchResultText); err != nil {
			return fmt.Errorf("scanning broker translation: %w", err)
		}
		if b, ok := byID[t.BrokerID]; ok {
			b.Translations[t.LanguageCode] = &t
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating broker translations: %w", err)
	}
	return nil
}

func scanBroker(row pgx.Row) (*entity.Broker, error) {
	b := &entity.Broker{Translations: make(map[string]*entity.BrokerTranslation)}
	var bt string
	err := row.Scan(
		&b.ID, &b.Slug, &b.Name, &bt, &b.LogoURL, &b.Rating, &b.Bonus, &b.Regulation,
		&b.MinDeposit, &b.MaxLeverage, &b.SpreadsFrom, &b.RiskNote, &b.Features, &b.IsFeatured,
		&b.Active, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.BrokerType = entity.ParseBrokerType(bt)
	return b, nil
}

// escapeLike escapes the ILIKE wildcards in user input.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
