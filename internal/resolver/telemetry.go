package resolver

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fyrsmithlabs/answerd/internal/strategy"
)

// InstrumentationName is the name used for OTEL instrumentation.
const InstrumentationName = "github.com/fyrsmithlabs/answerd/internal/resolver"

var (
	resolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "answerd_resolver_resolutions_total",
			Help: "Resolved utterances by winning strategy",
		},
		[]string{"strategy"},
	)

	generativeFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "answerd_resolver_generative_failures_total",
			Help: "Generative calls that produced no usable answer",
		},
		[]string{"reason"},
	)
)

// Metrics provides OpenTelemetry metrics for the coordinator.
type Metrics struct {
	resolutionsTotal        metric.Int64Counter
	generativeFailuresTotal metric.Int64Counter
	learnedTotal            metric.Int64Counter
	duration                metric.Float64Histogram

	initialized bool
}

// NewMetrics creates metrics on meter. If meter is nil, the global meter
// provider is used.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(InstrumentationName)
	}

	m := &Metrics{}
	var err error

	m.resolutionsTotal, err = meter.Int64Counter(
		"resolver.resolutions.total",
		metric.WithDescription("Resolved utterances by winning strategy"),
		metric.WithUnit("{utterance}"),
	)
	if err != nil {
		return nil, err
	}

	m.generativeFailuresTotal, err = meter.Int64Counter(
		"resolver.generative.failures.total",
		metric.WithDescription("Generative calls that produced no usable answer"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	m.learnedTotal, err = meter.Int64Counter(
		"resolver.learned.total",
		metric.WithDescription("Learning decisions by outcome"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}

	m.duration, err = meter.Float64Histogram(
		"resolver.resolve.duration.seconds",
		metric.WithDescription("Time to resolve one utterance"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 15, 30),
	)
	if err != nil {
		return nil, err
	}

	m.initialized = true
	return m, nil
}

// RecordResolution records the winning strategy and elapsed time.
func (m *Metrics) RecordResolution(ctx context.Context, s strategy.Strategy, d time.Duration) {
	resolutionsTotal.WithLabelValues(s.String()).Inc()
	if m == nil || !m.initialized {
		return
	}
	attrs := metric.WithAttributes(attribute.String("strategy", s.String()))
	m.resolutionsTotal.Add(ctx, 1, attrs)
	m.duration.Record(ctx, d.Seconds(), attrs)
}

// RecordGenerativeFailure records a generative call that yielded nothing.
// reason is one of timeout, error, panic, degenerate.
func (m *Metrics) RecordGenerativeFailure(ctx context.Context, reason string) {
	generativeFailuresTotal.WithLabelValues(reason).Inc()
	if m == nil || !m.initialized {
		return
	}
	m.generativeFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordLearning records a learning decision.
func (m *Metrics) RecordLearning(ctx context.Context, decision string) {
	if m == nil || !m.initialized {
		return
	}
	m.learnedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("decision", decision)))
}

// Tracer returns the package tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}
