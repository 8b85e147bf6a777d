package risk_warning

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tradespotter/brokerhub/internal/domain/entity"
	"github.com/tradespotter/brokerhub/internal/ports/outbound"
)

// errUnusableTemplate marks a stored row whose text cannot take a percentage.
var errUnusableTemplate = errors.New("stored template has no percentage placeholder")

// lookupStep is one entry of the ordered lookup chain a cache miss walks.
type lookupStep struct {
	// source is reported to metrics and traces when the step wins.
	source string

	// language maps the requested language to the one this step queries.
	// Returning false skips the step.
	language func(requested string) (string, bool)

	fetch func(ctx context.Context, languageCode string, brokerType entity.BrokerType) (string, error)

	// cacheable steps have their result stored in the in-process cache under
	// the requested key.
	cacheable bool
}

type lookupResult struct {
	template string
	source   string
}

func sameLanguage(requested string) (string, bool) {
	return requested, true
}

func englishFallback(requested string) (string, bool) {
	if requested == entity.DefaultLanguage {
		return "", false
	}
	return entity.DefaultLanguage, true
}

// lookupChain returns the steps tried in order on a cache miss: the requested
// language from the store, English from the store, then the built-in table.
// The built-in step never fails, so the chain always produces a template.
func (r *Resolver) lookupChain() []lookupStep {
	return []lookupStep{
		{
			source:    outbound.TemplateSourceStore,
			language:  sameLanguage,
			fetch:     r.fetchStored,
			cacheable: true,
		},
		{
			source:    outbound.TemplateSourceStoreEnglish,
			language:  englishFallback,
			fetch:     r.fetchStored,
			cacheable: true,
		},
		{
			source:   outbound.TemplateSourceStatic,
			language: sameLanguage,
			fetch: func(_ context.Context, languageCode string, brokerType entity.BrokerType) (string, error) {
				return StaticTemplate(languageCode, brokerType), nil
			},
		},
	}
}

// fetchStored reads one row from the template store and repairs legacy text.
func (r *Resolver) fetchStored(ctx context.Context, languageCode string, brokerType entity.BrokerType) (string, error) {
	ctx, span := r.tracer.Start(ctx, "riskwarning.fetchStored",
		trace.WithAttributes(
			attribute.String("risk_warning.language", languageCode),
			attribute.String("risk_warning.broker_type", brokerType.String()),
		),
	)
	defer span.End()

	rt, err := r.store.GetTemplate(ctx, languageCode, brokerType)
	if err != nil {
		if !errors.Is(err, outbound.ErrTemplateNotFound) {
			span.RecordError(err)
			r.metrics.RecordStoreError(ctx, languageCode)
		}
		return "", err
	}
	if rt == nil || rt.Template == "" {
		return "", outbound.ErrTemplateNotFound
	}

	tmpl := entity.RepairTemplate(rt.Template)
	if !entity.HasPlaceholder(tmpl) {
		return "", fmt.Errorf("%w: %s", errUnusableTemplate, entity.TemplateCacheKey(languageCode, brokerType))
	}
	return tmpl, nil
}

// lookup walks the chain for a cache miss. gen is the cache generation read
// before the walk; a result is only cached if no Clear happened meanwhile.
func (r *Resolver) lookup(ctx context.Context, languageCode string, brokerType entity.BrokerType, gen uint64) lookupResult {
	key := entity.TemplateCacheKey(languageCode, brokerType)

	for _, step := range r.steps {
		lang, ok := step.language(languageCode)
		if !ok {
			continue
		}

		tmpl, err := step.fetch(ctx, lang, brokerType)
		if err != nil {
			if errors.Is(err, outbound.ErrTemplateNotFound) {
				r.logger.Debug("template not found", "language", lang, "brokerType", brokerType, "source", step.source)
			} else {
				r.logger.Warn("template lookup failed", "language", lang, "brokerType", brokerType, "source", step.source, "error", err)
			}
			continue
		}

		if step.cacheable && !r.cache.SetIfGeneration(key, tmpl, gen) {
			r.logger.Debug("cache cleared during lookup, result not cached", "key", key)
		}
		return lookupResult{template: tmpl, source: step.source}
	}

	// Unreachable while the built-in step terminates the chain.
	return lookupResult{template: StaticTemplate(languageCode, brokerType), source: outbound.TemplateSourceStatic}
}
