// Package observe provides application-wide observability primitives for
// mythweaver: OpenTelemetry metrics, tracing, and structured-logging helpers.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all mythweaver metrics.
const meterName = "github.com/ntbao/mythweaver"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// AssemblyDuration tracks end-to-end prompt build latency.
	AssemblyDuration metric.Float64Histogram

	// PromptTokens tracks the estimated token size of assembled prompts.
	PromptTokens metric.Int64Histogram

	// PromptBuilds counts prompt builds. Use with attributes:
	//   attribute.String("mode", "full"|"compact"), attribute.String("status", ...)
	PromptBuilds metric.Int64Counter

	// CompactSavings accumulates tokens saved by the compact representation.
	CompactSavings metric.Int64Counter

	// SectionTruncations counts content dropped for budget reasons. Use with
	// attribute: attribute.String("section", ...)
	SectionTruncations metric.Int64Counter

	// LoreActivations counts world-knowledge rule activations.
	LoreActivations metric.Int64Counter

	// ActiveSessions tracks the number of resident session registries.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for the
// in-process assembly path, which is far faster than a network pipeline.
var latencyBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1,
}

// tokenBuckets covers prompt sizes from trivial to a full context window.
var tokenBuckets = []float64{
	1000, 5000, 10000, 25000, 50000, 75000, 90000, 120000,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.AssemblyDuration, err = m.Float64Histogram("mythweaver.assembly.duration",
		metric.WithDescription("Latency of one prompt assembly."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PromptTokens, err = m.Int64Histogram("mythweaver.prompt.tokens",
		metric.WithDescription("Estimated token size of assembled prompts."),
		metric.WithExplicitBucketBoundaries(tokenBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PromptBuilds, err = m.Int64Counter("mythweaver.prompt.builds",
		metric.WithDescription("Total prompt builds by mode and status."),
	); err != nil {
		return nil, err
	}
	if met.CompactSavings, err = m.Int64Counter("mythweaver.compact.savings",
		metric.WithDescription("Cumulative tokens saved by the compact representation."),
	); err != nil {
		return nil, err
	}
	if met.SectionTruncations, err = m.Int64Counter("mythweaver.section.truncations",
		metric.WithDescription("Content dropped for budget reasons, by section."),
	); err != nil {
		return nil, err
	}
	if met.LoreActivations, err = m.Int64Counter("mythweaver.lore.activations",
		metric.WithDescription("Total world-knowledge rule activations."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("mythweaver.active_sessions",
		metric.WithDescription("Number of resident session registries."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordBuild records one prompt build with its duration and token size.
func (m *Metrics) RecordBuild(ctx context.Context, mode, status string, seconds float64, tokens int) {
	attrs := metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("status", status),
	)
	m.PromptBuilds.Add(ctx, 1, attrs)
	m.AssemblyDuration.Record(ctx, seconds, attrs)
	m.PromptTokens.Record(ctx, int64(tokens), attrs)
}

// RecordCompactSavings accumulates the tokens saved by one compact build.
// Negative savings are not recorded.
func (m *Metrics) RecordCompactSavings(ctx context.Context, tokens int) {
	if tokens > 0 {
		m.CompactSavings.Add(ctx, int64(tokens))
	}
}

// RecordTruncation counts one budget-driven truncation in the named section.
func (m *Metrics) RecordTruncation(ctx context.Context, section string) {
	m.SectionTruncations.Add(ctx, 1,
		metric.WithAttributes(attribute.String("section", section)))
}
