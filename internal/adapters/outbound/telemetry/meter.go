// Package telemetry wires OpenTelemetry tracing and metrics for the API.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

const defaultExportInterval = 15 * time.Second

// MetricConfig holds configuration for the meter provider.
type MetricConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// OTLPEndpoint is the OTLP gRPC endpoint. Without it (and without Reader)
	// the global no-op provider stays in place.
	OTLPEndpoint string

	// ExportInterval is how often metrics are pushed. Defaults to 15s.
	ExportInterval time.Duration

	// Reader replaces the OTLP exporter, e.g. a metric.ManualReader in tests.
	Reader metric.Reader
}

// InitMetrics installs a global meter provider and returns its shutdown func.
func InitMetrics(ctx context.Context, config MetricConfig) (shutdown func(context.Context) error, err error) {
	if config.OTLPEndpoint == "" && config.Reader == nil {
		return func(context.Context) error { return nil }, nil
	}
	if config.ExportInterval <= 0 {
		config.ExportInterval = defaultExportInterval
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, err
	}

	reader := config.Reader
	if reader == nil {
		exporter, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(config.OTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
		}
		reader = metric.NewPeriodicReader(exporter, metric.WithInterval(config.ExportInterval))
	}

	mp := metric.NewMeterProvider(metric.WithResource(res), metric.WithReader(reader))
	otel.SetMeterProvider(mp)
	return mp.Shutdown, nil
}

// newResource describes this process for both traces and metrics.
func newResource(name, version, environment string) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(name),
			semconv.ServiceVersion(version),
			semconv.DeploymentEnvironmentName(environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}
