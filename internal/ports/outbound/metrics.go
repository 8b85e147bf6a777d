package outbound

import "context"

// Template sources reported to RiskWarningMetrics.
const (
	TemplateSourceCache        = "cache"
	TemplateSourceStore        = "store"
	TemplateSourceStoreEnglish = "store_english"
	TemplateSourceStatic       = "static"
	TemplateSourceGeneric      = "generic"
)

// RiskWarningMetrics provides an interface for recording resolver metrics.
// This allows the service layer to record metrics without depending on
// specific telemetry implementations.
type RiskWarningMetrics interface {
	// RecordResolution records which source produced a resolved disclaimer.
	RecordResolution(ctx context.Context, source string)

	// RecordCacheLookup records an in-process cache hit or miss.
	RecordCacheLookup(ctx context.Context, hit bool)

	// RecordStoreError records a failed template store query.
	RecordStoreError(ctx context.Context, languageCode string)

	// RecordCacheClear records an explicit cache invalidation.
	RecordCacheClear(ctx context.Context)
}
