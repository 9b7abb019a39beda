package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records query metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordQuery records one query with its outcome, duration and error status.
	RecordQuery(ctx context.Context, meta QueryMeta, outcome string, duration time.Duration, err error)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics creates query instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		"chatquery.query.total",
		metric.WithDescription("Total number of chat-history queries"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"chatquery.query.errors",
		metric.WithDescription("Total number of failed chat-history queries"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"chatquery.query.duration_ms",
		metric.WithDescription("Query duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
	}, nil
}

func (m *metricsImpl) RecordQuery(ctx context.Context, meta QueryMeta, outcome string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("query.operation", meta.Operation),
	}
	if outcome != "" {
		attrs = append(attrs, attribute.String("query.outcome", outcome))
	}
	opt := metric.WithAttributes(attrs...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

type noopMetrics struct{}

func (noopMetrics) RecordQuery(context.Context, QueryMeta, string, time.Duration, error) {}

// NewNopMetrics returns Metrics that record nothing.
func NewNopMetrics() Metrics { return noopMetrics{} }

// TierCounts reports how many entries each cache tier holds.
type TierCounts func() (hot, cold int)

// RegisterCacheGauges publishes chatquery.cache.entries{tier} from counts on
// every collection. Unregister the returned registration on shutdown.
func RegisterCacheGauges(meter metric.Meter, counts TierCounts) (metric.Registration, error) {
	gauge, err := meter.Int64ObservableGauge(
		"chatquery.cache.entries",
		metric.WithDescription("Entries held per cache tier"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	hotAttr := metric.WithAttributes(attribute.String("tier", "hot"))
	coldAttr := metric.WithAttributes(attribute.String("tier", "cold"))

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		hot, cold := counts()
		o.ObserveInt64(gauge, int64(hot), hotAttr)
		o.ObserveInt64(gauge, int64(cold), coldAttr)
		return nil
	}, gauge)
}
