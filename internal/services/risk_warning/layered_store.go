package risk_warning

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tradespotter/brokerhub/internal/domain/entity"
	"github.com/tradespotter/brokerhub/internal/ports/outbound"
)

var _ outbound.TemplateStore = (*LayeredStore)(nil)

// LayeredStore reads through a cache shared by all instances before querying
// the template table. Shared cache failures are logged and bypassed.
type LayeredStore struct {
	shared outbound.SharedTemplateCache
	store  outbound.TemplateStore
	logger *slog.Logger
}

// NewLayeredStore wraps store with shared. A nil shared cache is allowed and
// makes the wrapper a pass-through.
func NewLayeredStore(shared outbound.SharedTemplateCache, store outbound.TemplateStore, logger *slog.Logger) (*LayeredStore, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LayeredStore{
		shared: shared,
		store:  store,
		logger: logger.With("component", "layered-template-store"),
	}, nil
}

// GetTemplate implements outbound.TemplateStore.
//
// On a miss the shared cache's version is read before the table, and the
// back-fill only lands if no Delete or Clear ran in between. An admin write
// that invalidates the pair while the row is read therefore wins over the
// stale text.
func (s *LayeredStore) GetTemplate(ctx context.Context, languageCode string, brokerType entity.BrokerType) (*entity.RiskTemplate, error) {
	if s.shared == nil {
		return s.store.GetTemplate(ctx, languageCode, brokerType)
	}

	tmpl, ok, err := s.shared.Get(ctx, languageCode, brokerType)
	if err != nil {
		s.logger.Warn("shared cache read failed", "language", languageCode, "brokerType", brokerType, "error", err)
	} else if ok {
		return &entity.RiskTemplate{LanguageCode: languageCode, BrokerType: brokerType, Template: tmpl}, nil
	}

	version, verr := s.shared.Version(ctx, languageCode, brokerType)
	if verr != nil {
		s.logger.Warn("shared cache version read failed, skipping back-fill", "language", languageCode, "brokerType", brokerType, "error", verr)
	}

	rt, err := s.store.GetTemplate(ctx, languageCode, brokerType)
	if err != nil {
		return nil, err
	}

	if verr == nil && rt != nil && rt.Template != "" {
		stored, err := s.shared.SetIfVersion(ctx, languageCode, brokerType, rt.Template, version)
		switch {
		case err != nil:
			s.logger.Warn("shared cache write failed", "language", languageCode, "brokerType", brokerType, "error", err)
		case !stored:
			s.logger.Debug("template invalidated during read, not back-filled", "language", languageCode, "brokerType", brokerType)
		}
	}
	return rt, nil
}
