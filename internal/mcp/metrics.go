package mcp

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/answerd/internal/knowledge"
	"github.com/fyrsmithlabs/answerd/internal/strategy"
)

const instrumentationName = "github.com/fyrsmithlabs/answerd/internal/mcp"

// Metrics holds the tool instruments.
type Metrics struct {
	meter          metric.Meter
	logger         *zap.Logger
	invocations    metric.Int64Counter
	duration       metric.Float64Histogram
	errors         metric.Int64Counter
	activeRequests metric.Int64UpDownCounter
	answers        metric.Int64Counter
}

// NewMetrics creates Metrics on the global meter provider.
func NewMetrics(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Metrics{
		meter:  otel.Meter(instrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.invocations, err = m.meter.Int64Counter(
		"answerd.mcp.tool.invocations_total",
		metric.WithDescription("Tool calls by tool name"),
		metric.WithUnit("{invocation}"),
	)
	m.warn("invocations counter", err)

	m.duration, err = m.meter.Float64Histogram(
		"answerd.mcp.tool.duration_seconds",
		metric.WithDescription("Tool call duration"),
		metric.WithUnit("s"),
		// Generative answers can take the full timeout.
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 15, 30),
	)
	m.warn("duration histogram", err)

	m.errors, err = m.meter.Int64Counter(
		"answerd.mcp.tool.errors_total",
		metric.WithDescription("Failed tool calls by tool and reason"),
		metric.WithUnit("{error}"),
	)
	m.warn("errors counter", err)

	m.activeRequests, err = m.meter.Int64UpDownCounter(
		"answerd.mcp.tool.active_requests",
		metric.WithDescription("Tool calls in flight"),
		metric.WithUnit("{request}"),
	)
	m.warn("active requests gauge", err)

	m.answers, err = m.meter.Int64Counter(
		"answerd.mcp.answers_total",
		metric.WithDescription("Answers returned through MCP by strategy"),
		metric.WithUnit("{answer}"),
	)
	m.warn("answers counter", err)
}

func (m *Metrics) warn(what string, err error) {
	if err != nil {
		m.logger.Warn("failed to create "+what, zap.Error(err))
	}
}

// RecordInvocation records one tool call and, when err is set, its reason.
func (m *Metrics) RecordInvocation(ctx context.Context, toolName string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{attribute.String("tool", toolName)}

	if m.invocations != nil {
		m.invocations.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if m.duration != nil {
		m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	}
	if err != nil && m.errors != nil {
		errorAttrs := append(attrs, attribute.String("reason", categorizeError(err)))
		m.errors.Add(ctx, 1, metric.WithAttributes(errorAttrs...))
	}
}

// RecordAnswer counts an answer returned by toolName under strategy s.
func (m *Metrics) RecordAnswer(ctx context.Context, toolName string, s strategy.Strategy) {
	if m.answers == nil {
		return
	}
	m.answers.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", toolName),
		attribute.String("strategy", s.String()),
	))
}

// IncrementActive marks a call to toolName as started.
func (m *Metrics) IncrementActive(ctx context.Context, toolName string) {
	if m.activeRequests != nil {
		m.activeRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("tool", toolName)))
	}
}

// DecrementActive marks a call to toolName as finished.
func (m *Metrics) DecrementActive(ctx context.Context, toolName string) {
	if m.activeRequests != nil {
		m.activeRequests.Add(ctx, -1, metric.WithAttributes(attribute.String("tool", toolName)))
	}
}

// categorizeError maps a tool error to a low-cardinality reason. Knowledge
// store errors are matched by identity; anything else falls back to the
// message text.
func categorizeError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, knowledge.ErrDuplicateVariant):
		return "conflict"
	case errors.Is(err, knowledge.ErrInvalidEntry):
		return "validation_error"
	case errors.Is(err, knowledge.ErrEntryNotFound):
		return "not_found"
	case knowledge.IsIOError(err):
		return "storage_error"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "cancelled"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "invalid input"):
		return "validation_error"
	case strings.Contains(msg, "not found"):
		return "not_found"
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		return "timeout"
	case strings.Contains(msg, "context canceled") || strings.Contains(msg, "deadline exceeded"):
		return "cancelled"
	case strings.Contains(msg, "permission denied"):
		return "storage_error"
	default:
		return "internal_error"
	}
}
