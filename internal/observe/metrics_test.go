package observe

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
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

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestRecordBuild(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordBuild(ctx, "full", "ok", 0.002, 45000)
	m.RecordBuild(ctx, "compact", "ok", 0.001, 30000)

	rm := collect(t, reader)

	builds := findMetric(rm, "mythweaver.prompt.builds")
	if builds == nil {
		t.Fatal("prompt.builds not found")
	}
	sum, ok := builds.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("prompt.builds is not an int64 sum")
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 2 {
		t.Errorf("prompt.builds total = %d, want 2", total)
	}

	tokens := findMetric(rm, "mythweaver.prompt.tokens")
	if tokens == nil {
		t.Fatal("prompt.tokens not found")
	}
	hist, ok := tokens.Data.(metricdata.Histogram[int64])
	if !ok {
		t.Fatalf("prompt.tokens is not an int64 histogram")
	}
	if len(hist.DataPoints) == 0 {
		t.Fatal("prompt.tokens has no data points")
	}

	dur := findMetric(rm, "mythweaver.assembly.duration")
	if dur == nil {
		t.Fatal("assembly.duration not found")
	}
	if _, ok := dur.Data.(metricdata.Histogram[float64]); !ok {
		t.Fatalf("assembly.duration is not a float64 histogram")
	}
}

func TestRecordCompactSavings_IgnoresNegative(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordCompactSavings(ctx, 1200)
	m.RecordCompactSavings(ctx, -300)

	rm := collect(t, reader)
	met := findMetric(rm, "mythweaver.compact.savings")
	if met == nil {
		t.Fatal("compact.savings not found")
	}
	sum := met.Data.(metricdata.Sum[int64])
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 1200 {
		t.Errorf("compact.savings = %d, want 1200 (negative must be dropped)", total)
	}
}

func TestRecordTruncation_BySection(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordTruncation(ctx, "critical")
	m.RecordTruncation(ctx, "critical")
	m.RecordTruncation(ctx, "contextual")

	rm := collect(t, reader)
	met := findMetric(rm, "mythweaver.section.truncations")
	if met == nil {
		t.Fatal("section.truncations not found")
	}
	sum := met.Data.(metricdata.Sum[int64])
	if len(sum.DataPoints) != 2 {
		t.Errorf("expected 2 attribute sets, got %d", len(sum.DataPoints))
	}
}

func TestActiveSessions_UpDown(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveSessions.Add(ctx, 3)
	m.ActiveSessions.Add(ctx, -1)

	rm := collect(t, reader)
	met := findMetric(rm, "mythweaver.active_sessions")
	if met == nil {
		t.Fatal("active_sessions not found")
	}
	sum := met.Data.(metricdata.Sum[int64])
	if len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 2 {
		t.Errorf("active_sessions = %+v, want single point of 2", sum.DataPoints)
	}
}
