package embeddings

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func newTestMetrics(t *testing.T) (*Metrics, *metric.ManualReader) {
	t.Helper()
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return newMetrics(mp.Meter(embeddingsInstrumentationName), zap.NewNop()), reader
}

func collect(t *testing.T, reader *metric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumInt64(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: expected Sum[int64], got %T", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_RecordGeneration(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordGeneration(ctx, "BAAI/bge-small-en", "text_embeddings", 100*time.Millisecond, nil)
	m.RecordGeneration(ctx, "BAAI/bge-small-en", "query_embedding", 50*time.Millisecond, nil)
	m.RecordGeneration(ctx, "BAAI/bge-small-en", "text_embeddings", 25*time.Millisecond, errors.New("generation failed"))

	got := collect(t, reader)

	duration, ok := got["embedkit.embedding.generation_duration_seconds"]
	if !ok {
		t.Fatal("duration histogram not found")
	}
	hist, ok := duration.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", duration.Data)
	}
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	if count != 3 {
		t.Errorf("expected 3 duration recordings, got %d", count)
	}

	errs, ok := got["embedkit.embedding.errors_total"]
	if !ok {
		t.Fatal("errors counter not found")
	}
	if total := sumInt64(t, errs); total != 1 {
		t.Errorf("expected 1 error, got %d", total)
	}
}

func TestMetrics_RecordResolution(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordResolution(ctx, "local", nil)
	m.RecordResolution(ctx, "local", nil)
	m.RecordResolution(ctx, "absent", errors.New("boom"))
	m.RecordFallback(ctx, DefaultLocalModel)

	got := collect(t, reader)

	resolutions, ok := got["embedkit.resolve.total"]
	if !ok {
		t.Fatal("resolutions counter not found")
	}
	sum := resolutions.Data.(metricdata.Sum[int64])
	counts := make(map[[2]string]int64)
	for _, dp := range sum.DataPoints {
		kind, _ := dp.Attributes.Value(attribute.Key("kind"))
		outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
		counts[[2]string{kind.AsString(), outcome.AsString()}] += dp.Value
	}
	if counts[[2]string{"local", "ok"}] != 2 {
		t.Errorf("expected 2 ok local resolutions, got %d", counts[[2]string{"local", "ok"}])
	}
	if counts[[2]string{"absent", "error"}] != 1 {
		t.Errorf("expected 1 failed absent resolution, got %d", counts[[2]string{"absent", "error"}])
	}

	fallbacks, ok := got["embedkit.resolve.fallbacks_total"]
	if !ok {
		t.Fatal("fallbacks counter not found")
	}
	if total := sumInt64(t, fallbacks); total != 1 {
		t.Errorf("expected 1 fallback, got %d", total)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	// None of these may panic.
	m.RecordResolution(ctx, "local", nil)
	m.RecordFallback(ctx, DefaultLocalModel)
	m.RecordGeneration(ctx, "model", "text_embedding", time.Millisecond, nil)
}
