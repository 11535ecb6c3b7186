package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics installs a metric SDK provider. The batch binary has no
// exporter; recording sites stay live so one can be wired in later.
func InitMetrics() *sdkmetric.MeterProvider {
	provider := sdkmetric.NewMeterProvider()
	otel.SetMeterProvider(provider)
	return provider
}

type gatewayMetrics struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
	cacheHits       metric.Int64Counter
	fallbackCount   metric.Int64Counter
}

var (
	gwMetricsOnce sync.Once
	gwMetricsInit bool
	gwMetrics     gatewayMetrics
)

func ensureGatewayMetrics() {
	gwMetricsOnce.Do(initGatewayMetrics)
}

func initGatewayMetrics() {
	meter := otel.Meter("github.com/partdesk/catalog-enrichment/ai")

	requestCount, err := meter.Int64Counter(
		"ai.gateway.request.count",
		metric.WithDescription("Number of provider completion requests"),
	)
	if err != nil {
		return
	}
	requestDuration, err := meter.Float64Histogram(
		"ai.gateway.request.duration",
		metric.WithDescription("Provider request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return
	}
	requestErrors, err := meter.Int64Counter(
		"ai.gateway.request.errors",
		metric.WithDescription("Number of provider request errors"),
	)
	if err != nil {
		return
	}
	cacheHits, err := meter.Int64Counter(
		"ai.gateway.cache.hits",
		metric.WithDescription("Number of gateway cache hits"),
	)
	if err != nil {
		return
	}
	fallbackCount, err := meter.Int64Counter(
		"ai.gateway.fallback.count",
		metric.WithDescription("Number of rule-based fallback invocations"),
	)
	if err != nil {
		return
	}

	gwMetrics = gatewayMetrics{
		requestCount:    requestCount,
		requestDuration: requestDuration,
		requestErrors:   requestErrors,
		cacheHits:       cacheHits,
		fallbackCount:   fallbackCount,
	}
	gwMetricsInit = true
}

// RecordProviderCall records one completion provider round-trip.
func RecordProviderCall(ctx context.Context, provider, kind string, duration time.Duration, err error) {
	ensureGatewayMetrics()
	if !gwMetricsInit {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", provider),
		attribute.String("ai.operation", kind),
	}

	gwMetrics.requestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	gwMetrics.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		gwMetrics.requestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordCacheHit records one gateway cache hit.
func RecordCacheHit(ctx context.Context, kind string) {
	ensureGatewayMetrics()
	if !gwMetricsInit {
		return
	}
	gwMetrics.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("ai.operation", kind)))
}

// RecordFallback records one rule-based fallback invocation.
func RecordFallback(ctx context.Context, kind string) {
	ensureGatewayMetrics()
	if !gwMetricsInit {
		return
	}
	gwMetrics.fallbackCount.Add(ctx, 1, metric.WithAttributes(attribute.String("ai.operation", kind)))
}
