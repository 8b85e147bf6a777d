// Package broker_catalog serves the public broker listing. Every broker is
// returned with its translation for the requested language and its localized
// risk warning.
package broker_catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tradespotter/brokerhub/internal/domain/entity"
	"github.com/tradespotter/brokerhub/internal/ports/inbound"
	"github.com/tradespotter/brokerhub/internal/ports/outbound"
)

// DefaultRelatedLimit is the number of related brokers shown on a detail page.
const DefaultRelatedLimit = 4

var _ inbound.BrokerCatalog = (*Service)(nil)

// Config holds configuration for the catalog service.
type Config struct {
	RelatedLimit int
	Logger       *slog.Logger
}

// Service implements inbound.BrokerCatalog.
type Service struct {
	repo         outbound.BrokerRepository
	riskWarnings inbound.RiskWarningResolver
	relatedLimit int
	logger       *slog.Logger
}

// NewService creates a catalog service.
func NewService(cfg Config, repo outbound.BrokerRepository, riskWarnings inbound.RiskWarningResolver) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("repo cannot be nil")
	}
	if riskWarnings == nil {
		return nil, fmt.Errorf("riskWarnings cannot be nil")
	}
	if cfg.RelatedLimit <= 0 {
		cfg.RelatedLimit = DefaultRelatedLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		repo:         repo,
		riskWarnings: riskWarnings,
		relatedLimit: cfg.RelatedLimit,
		logger:       cfg.Logger.With("component", "broker-catalog"),
	}, nil
}

// ListBrokers returns the active brokers matching filter.
func (s *Service) ListBrokers(ctx context.Context, filter entity.BrokerFilter, languageCode string) ([]*inbound.BrokerView, error) {
	lang := entity.NormalizeLanguage(languageCode)

	brokers, err := s.repo.ListBrokers(ctx, filter.Normalize())
	if err != nil {
		return nil, fmt.Errorf("failed to list brokers: %w", err)
	}

	views := make([]*inbound.BrokerView, len(brokers))
	for i, b := range brokers {
		views[i] = s.view(ctx, b, lang)
	}
	return views, nil
}

// GetBroker returns one broker and the top rated brokers of the same type.
// A failure to load related brokers is logged and yields an empty list.
func (s *Service) GetBroker(ctx context.Context, slug, languageCode string) (*inbound.BrokerDetail, error) {
	lang := entity.NormalizeLanguage(languageCode)

	b, err := s.repo.GetBrokerBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return nil, fmt.Errorf("failed to get broker %q: %w", slug, err)
	}

	detail := &inbound.BrokerDetail{Related: []*entity.Broker{}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		detail.BrokerView = *s.view(gctx, b, lang)
		return nil
	})
	g.Go(func() error {
		related, err := s.repo.ListRelatedBrokers(gctx, b.BrokerType, b.ID, s.relatedLimit)
		if err != nil {
			s.logger.Warn("failed to load related brokers", "slug", b.Slug, "error", err)
			return nil
		}
		detail.Related = related
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *Service) view(ctx context.Context, b *entity.Broker, lang string) *inbound.BrokerView {
	return &inbound.BrokerView{
		Broker:      b,
		Translation: b.Translation(lang),
		RiskWarning: s.riskWarnings.Resolve(ctx, b.RiskNote, b.BrokerType.String(), lang),
	}
}
