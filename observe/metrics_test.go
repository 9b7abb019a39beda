package observe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumTotal(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	found := findMetric(rm, name)
	if found == nil {
		return 0
	}
	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: expected Sum[int64], got %T", name, found.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_RecordQuery(t *testing.T) {
	reader, mp := newTestMeter(t)
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	ctx := context.Background()
	meta := QueryMeta{Operation: "query", GroupID: 1}
	m.RecordQuery(ctx, meta, "cache", 5*time.Millisecond, nil)
	m.RecordQuery(ctx, meta, "store", 40*time.Millisecond, nil)
	m.RecordQuery(ctx, meta, "", 2*time.Millisecond, errors.New("forbidden"))

	rm := collect(t, reader)
	if got := sumTotal(t, rm, "chatquery.query.total"); got != 3 {
		t.Errorf("total = %d, want 3", got)
	}
	if got := sumTotal(t, rm, "chatquery.query.errors"); got != 1 {
		t.Errorf("errors = %d, want 1", got)
	}

	hist := findMetric(rm, "chatquery.query.duration_ms")
	if hist == nil {
		t.Fatal("duration histogram not found")
	}
	data, ok := hist.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", hist.Data)
	}
	var count uint64
	for _, dp := range data.DataPoints {
		count += dp.Count
	}
	if count != 3 {
		t.Errorf("histogram count = %d, want 3", count)
	}
}

func TestMetrics_OutcomeLabel(t *testing.T) {
	reader, mp := newTestMeter(t)
	m, _ := NewMetrics(mp.Meter("test"))

	m.RecordQuery(context.Background(), QueryMeta{Operation: "query"}, "fuzzy", time.Millisecond, nil)

	sum := findMetric(collect(t, reader), "chatquery.query.total").Data.(metricdata.Sum[int64])
	if len(sum.DataPoints) != 1 {
		t.Fatalf("expected 1 data point, got %d", len(sum.DataPoints))
	}
	v, ok := sum.DataPoints[0].Attributes.Value(attribute.Key("query.outcome"))
	if !ok || v.AsString() != "fuzzy" {
		t.Errorf("query.outcome = %v, want fuzzy", v)
	}
}

func TestMetrics_ConcurrentRecording(t *testing.T) {
	reader, mp := newTestMeter(t)
	m, _ := NewMetrics(mp.Meter("test"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordQuery(context.Background(), QueryMeta{Operation: "query"}, "cache", time.Millisecond, nil)
		}()
	}
	wg.Wait()

	if got := sumTotal(t, collect(t, reader), "chatquery.query.total"); got != 50 {
		t.Errorf("total = %d, want 50", got)
	}
}

func TestRegisterCacheGauges(t *testing.T) {
	reader, mp := newTestMeter(t)
	hot, cold := 3, 17

	reg, err := RegisterCacheGauges(mp.Meter("test"), func() (int, int) { return hot, cold })
	if err != nil {
		t.Fatalf("RegisterCacheGauges: %v", err)
	}
	defer func() { _ = reg.Unregister() }()

	found := findMetric(collect(t, reader), "chatquery.cache.entries")
	if found == nil {
		t.Fatal("chatquery.cache.entries not found")
	}
	gauge, ok := found.Data.(metricdata.Gauge[int64])
	if !ok {
		t.Fatalf("expected Gauge[int64], got %T", found.Data)
	}

	got := map[string]int64{}
	for _, dp := range gauge.DataPoints {
		tier, _ := dp.Attributes.Value(attribute.Key("tier"))
		got[tier.AsString()] = dp.Value
	}
	if got["hot"] != 3 || got["cold"] != 17 {
		t.Errorf("gauges = %v, want hot=3 cold=17", got)
	}
}
