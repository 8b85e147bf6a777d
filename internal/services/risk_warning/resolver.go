// Package risk_warning resolves the localized regulatory risk disclaimer shown
// next to each broker.
//
// A template is looked up per (language, broker type) pair: the in-process
// cache first, then the template store in the requested language, the store
// in English, and finally the built-in table. Resolution never fails; every
// problem degrades to a less specific but still valid disclaimer.
package risk_warning

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/tradespotter/brokerhub/internal/domain/entity"
	"github.com/tradespotter/brokerhub/internal/ports/inbound"
	"github.com/tradespotter/brokerhub/internal/ports/outbound"
)

const (
	// tracerName is the instrumentation name for this service.
	tracerName = "github.com/tradespotter/brokerhub/internal/services/risk_warning"
)

var _ inbound.RiskWarningResolver = (*Resolver)(nil)

// Config holds configuration for the Resolver.
type Config struct {
	// CacheTTL is the lifetime of a cached template. Only used when the
	// resolver creates its own cache.
	CacheTTL time.Duration

	// Metrics records resolution sources. Optional.
	Metrics outbound.RiskWarningMetrics

	Logger *slog.Logger
}

// ConfigDefaults returns default configuration.
func ConfigDefaults() Config {
	return Config{
		CacheTTL: DefaultCacheTTL,
		Logger:   slog.Default(),
	}
}

// Resolver implements inbound.RiskWarningResolver.
type Resolver struct {
	store   outbound.TemplateStore
	cache   *TemplateCache
	metrics outbound.RiskWarningMetrics
	logger  *slog.Logger
	tracer  trace.Tracer
	steps   []lookupStep

	// group collapses concurrent misses for the same key into one lookup.
	group singleflight.Group
}

// NewResolver creates a resolver backed by store. A nil cache creates a
// private one with cfg.CacheTTL.
func NewResolver(cfg Config, store outbound.TemplateStore, cache *TemplateCache) (*Resolver, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}

	defaults := ConfigDefaults()
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaults.CacheTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = defaults.Logger
	}
	if cfg.Metrics == nil {
		cfg.Metrics = nopMetrics{}
	}
	if cache == nil {
		cache = NewTemplateCache(cfg.CacheTTL, nil)
	}

	r := &Resolver{
		store:   store,
		cache:   cache,
		metrics: cfg.Metrics,
		logger:  cfg.Logger.With("component", "risk-warning-resolver"),
		tracer:  otel.Tracer(tracerName),
	}
	r.steps = r.lookupChain()
	return r, nil
}

// Resolve returns the disclaimer for percentage, localized for languageCode
// and worded for brokerType. A missing percentage yields the generic disclaimer
// without touching the store.
func (r *Resolver) Resolve(ctx context.Context, percentage any, brokerType, languageCode string) string {
	p := entity.ParseRiskPercentage(percentage)
	if p.IsZero() {
		r.metrics.RecordResolution(ctx, outbound.TemplateSourceGeneric)
		return entity.GenericRiskWarning
	}

	lang := entity.NormalizeLanguage(languageCode)
	bt := entity.ParseBrokerType(brokerType)

	ctx, span := r.tracer.Start(ctx, "riskwarning.Resolve",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("risk_warning.language", lang),
			attribute.String("risk_warning.broker_type", bt.String()),
		),
	)
	defer span.End()

	tmpl, source := r.template(ctx, lang, bt)
	span.SetAttributes(attribute.String("risk_warning.source", source))
	r.metrics.RecordResolution(ctx, source)

	return entity.RenderTemplate(tmpl, p.String())
}

// ResolveSync formats the disclaimer from the built-in table only. A
// percentage argument that already holds a rendered disclaimer has its number
// extracted first.
func (r *Resolver) ResolveSync(percentage any, brokerType, languageCode string) string {
	return ResolveStatic(percentage, brokerType, languageCode)
}

// ClearCache drops every cached template. Lookups in flight when it is called
// do not repopulate the cache.
func (r *Resolver) ClearCache() {
	r.cache.Clear()
	r.metrics.RecordCacheClear(context.Background())
	r.logger.Info("risk warning cache cleared")
}

// template returns the template for the normalized pair and the source that produced it.
func (r *Resolver) template(ctx context.Context, languageCode string, brokerType entity.BrokerType) (string, string) {
	key := entity.TemplateCacheKey(languageCode, brokerType)

	if tmpl, ok := r.cache.Get(key); ok {
		r.metrics.RecordCacheLookup(ctx, true)
		if !entity.HasPlaceholder(tmpl) {
			repaired := entity.RepairTemplate(tmpl)
			if repaired != tmpl {
				r.cache.Replace(key, repaired)
				tmpl = repaired
			}
		}
		return tmpl, outbound.TemplateSourceCache
	}
	r.metrics.RecordCacheLookup(ctx, false)

	// The generation is part of the flight key so a lookup started before a
	// Clear is never shared with callers arriving after it.
	// The shared lookup outlives the caller that started it; each caller
	// stops waiting on its own ctx and falls back to the static text.
	gen := r.cache.Generation()
	lookupCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(strconv.FormatUint(gen, 10)+"|"+key, func() (any, error) {
		return r.lookup(lookupCtx, languageCode, brokerType, gen), nil
	})
	select {
	case res := <-ch:
		lr := res.Val.(lookupResult)
		return lr.template, lr.source
	case <-ctx.Done():
		r.logger.Debug("risk warning lookup abandoned", "key", key, "error", ctx.Err())
		return StaticTemplate(languageCode, brokerType), outbound.TemplateSourceStatic
	}
}

type nopMetrics struct{}

func (nopMetrics) RecordResolution(context.Context, string) {}
func (nopMetrics) RecordCacheLookup(context.Context, bool) {}
func (nopMetrics) RecordStoreError(context.Context, string) {}
func (nopMetrics) RecordCacheClear(context.Context) {}
