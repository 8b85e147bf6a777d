package risk_warning

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tradespotter/brokerhub/internal/domain/entity"
	"github.com/tradespotter/brokerhub/internal/ports/inbound"
	"github.com/tradespotter/brokerhub/internal/ports/outbound"
)

// ErrInvalidTemplate is returned by UpsertTemplate for text that cannot be stored.
var ErrInvalidTemplate = inbound.ErrInvalidTemplate

var _ inbound.TemplateAdmin = (*AdminService)(nil)

// AdminConfig holds configuration for the AdminService.
type AdminConfig struct {
	// Origin identifies this instance in published events.
	Origin string

	Logger *slog.Logger
}

// AdminService implements the template maintenance use cases. Every write
// invalidates the shared cache entry, clears the local resolver cache and
// announces the change so other instances clear theirs.
type AdminService struct {
	repo     outbound.TemplateRepository
	resolver inbound.RiskWarningResolver
	shared   outbound.SharedTemplateCache
	events   outbound.EventSink
	origin   string
	logger   *slog.Logger
	now      func() time.Time
}

// NewAdminService creates an AdminService. shared and events are optional.
func NewAdminService(
	cfg AdminConfig,
	repo outbound.TemplateRepository,
	resolver inbound.RiskWarningResolver,
	shared outbound.SharedTemplateCache,
	events outbound.EventSink,
) (*AdminService, error) {
	if repo == nil {
		return nil, fmt.Errorf("repo cannot be nil")
	}
	if resolver == nil {
		return nil, fmt.Errorf("resolver cannot be nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &AdminService{
		repo:     repo,
		resolver: resolver,
		shared:   shared,
		events:   events,
		origin:   cfg.Origin,
		logger:   cfg.Logger.With("component", "risk-warning-admin"),
		now:      time.Now,
	}, nil
}

// ListTemplates returns every stored template.
func (s *AdminService) ListTemplates(ctx context.Context) ([]*entity.RiskTemplate, error) {
	templates, err := s.repo.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

// UpsertTemplate validates and stores a template. A literal percentage in the
// text is rewritten into the placeholder before storing.
func (s *AdminService) UpsertTemplate(ctx context.Context, languageCode, brokerType, template string) (*entity.RiskTemplate, error) {
	rt, err := entity.NewRiskTemplate(languageCode, brokerType, template)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	rt.UpdatedAt = s.now().UTC()

	if err := s.repo.UpsertTemplate(ctx, rt); err != nil {
		return nil, fmt.Errorf("failed to upsert template %s: %w", rt.CacheKey(), err)
	}

	s.logger.Info("risk warning template upserted", "language", rt.LanguageCode, "brokerType", rt.BrokerType)
	s.afterWrite(ctx, outbound.EventTypeTemplateUpserted, rt.LanguageCode, rt.BrokerType)
	return rt, nil
}

// DeleteTemplate removes a stored template. Lookups for the pair fall back to
// English and then the built-in table.
func (s *AdminService) DeleteTemplate(ctx context.Context, languageCode, brokerType string) error {
	lang := entity.NormalizeLanguage(languageCode)
	bt := entity.ParseBrokerType(brokerType)

	if err := s.repo.DeleteTemplate(ctx, lang, bt); err != nil {
		return fmt.Errorf("failed to delete template %s: %w", entity.TemplateCacheKey(lang, bt), err)
	}

	s.logger.Info("risk warning template deleted", "language", lang, "brokerType", bt)
	s.afterWrite(ctx, outbound.EventTypeTemplateDeleted, lang, bt)
	return nil
}

// ClearCache clears the shared and local caches and tells other instances to
// clear theirs.
func (s *AdminService) ClearCache(ctx context.Context) {
	if s.shared != nil {
		if err := s.shared.Clear(ctx); err != nil {
			s.logger.Warn("failed to clear shared cache", "error", err)
		}
	}
	s.resolver.ClearCache()
	s.publish(ctx, outbound.TemplateEvent{
		Type:       outbound.EventTypeCacheCleared,
		OccurredAt: s.now().UTC(),
		Origin:     s.origin,
	})
}

func (s *AdminService) afterWrite(ctx context.Context, eventType outbound.EventType, lang string, bt entity.BrokerType) {
	if s.shared != nil {
		if err := s.shared.Delete(ctx, lang, bt); err != nil {
			s.logger.Warn("failed to delete shared cache entry", "language", lang, "brokerType", bt, "error", err)
		}
	}
	s.resolver.ClearCache()
	s.publish(ctx, outbound.TemplateEvent{
		Type:         eventType,
		LanguageCode: lang,
		BrokerType:   bt.String(),
		OccurredAt:   s.now().UTC(),
		Origin:       s.origin,
	})
}

// publish announces a change. The write has already been committed, so a
// failure is logged and not returned.
func (s *AdminService) publish(ctx context.Context, event outbound.TemplateEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish template event", "type", event.Type, "cacheKey", event.GetCacheKey(), "error", err)
	}
}
