package telemetry

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/tradespotter/brokerhub/internal/ports/outbound"
)

// Compile-time check that Metrics implements outbound.RiskWarningMetrics
var _ outbound.RiskWarningMetrics = (*Metrics)(nil)

// instrumentationName is the name used for OpenTelemetry instrumentation.
const instrumentationName = "github.com/tradespotter/brokerhub"

// Metrics records resolver and HTTP metrics using OpenTelemetry.
type Metrics struct {
	resolutions     metric.Int64Counter
	cacheLookups    metric.Int64Counter
	storeErrors     metric.Int64Counter
	cacheClears     metric.Int64Counter
	requestDuration metric.Float64Histogram
}

// NewMetrics creates a metrics recorder using the global meter provider.
func NewMetrics() (*Metrics, error) {
	return NewMetricsWithProvider(otel.GetMeterProvider())
}

// NewMetricsWithProvider creates a metrics recorder with a custom meter provider.
func NewMetricsWithProvider(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(instrumentationName)

	resolutions, err := meter.Int64Counter(
		"risk_warning_resolutions_total",
		metric.WithDescription("Total number of resolved risk warnings by template source"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create risk_warning_resolutions_total counter: %w", err)
	}

	cacheLookups, err := meter.Int64Counter(
		"risk_warning_cache_lookups_total",
		metric.WithDescription("Total number of in-process template cache lookups"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create risk_warning_cache_lookups_total counter: %w", err)
	}

	storeErrors, err := meter.Int64Counter(
		"risk_warning_store_errors_total",
		metric.WithDescription("Total number of failed template store queries"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create risk_warning_store_errors_total counter: %w", err)
	}

	cacheClears, err := meter.Int64Counter(
		"risk_warning_cache_clears_total",
		metric.WithDescription("Total number of template cache invalidations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create risk_warning_cache_clears_total counter: %w", err)
	}

	requestDuration, err := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("Time taken to serve an HTTP request"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	return &Metrics{
		resolutions:     resolutions,
		cacheLookups:    cacheLookups,
		storeErrors:     storeErrors,
		cacheClears:     cacheClears,
		requestDuration: requestDuration,
	}, nil
}

// RecordResolution records which source produced a resolved disclaimer.
func (m *Metrics) RecordResolution(ctx context.Context, source string) {
	m.resolutions.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

// RecordCacheLookup records an in-process cache hit or miss.
func (m *Metrics) RecordCacheLookup(ctx context.Context, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordStoreError records a failed template store query.
func (m *Metrics) RecordStoreError(ctx context.Context, languageCode string) {
	m.storeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("language", languageCode)))
}

// RecordCacheClear records an explicit cache invalidation.
func (m *Metrics) RecordCacheClear(ctx context.Context) {
	m.cacheClears.Add(ctx, 1)
}

// RecordRequest records the duration of an HTTP request.
func (m *Metrics) RecordRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(status)),
	))
}
