package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/answerd/internal/knowledge"
	"github.com/fyrsmithlabs/answerd/internal/strategy"
)

func newTestMetrics(t *testing.T) (*Metrics, *metric.ManualReader) {
	t.Helper()
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	m := &Metrics{
		meter:  mp.Meter(instrumentationName),
		logger: zap.NewNop(),
	}
	m.init()
	return m, reader
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

func sumInt64(m metricdata.Metrics) int64 {
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		return -1
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_RecordInvocation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordInvocation(ctx, "ask", 100*time.Millisecond, nil)
	m.RecordInvocation(ctx, "teach", 50*time.Millisecond, fmt.Errorf("invalid input: %w", knowledge.ErrDuplicateVariant))

	got := collect(t, reader)

	inv, ok := got["answerd.mcp.tool.invocations_total"]
	if !ok {
		t.Fatal("invocations counter not found")
	}
	if n := sumInt64(inv); n != 2 {
		t.Errorf("expected 2 invocations, got %d", n)
	}

	if _, ok := got["answerd.mcp.tool.duration_seconds"]; !ok {
		t.Error("duration histogram not found")
	}

	errs, ok := got["answerd.mcp.tool.errors_total"]
	if !ok {
		t.Fatal("errors counter not found")
	}
	if n := sumInt64(errs); n != 1 {
		t.Errorf("expected 1 error, got %d", n)
	}
	dp := errs.Data.(metricdata.Sum[int64]).DataPoints[0]
	if reason, _ := dp.Attributes.Value(attribute.Key("reason")); reason.AsString() != "conflict" {
		t.Errorf("reason = %q, want conflict", reason.AsString())
	}
}

func TestMetrics_RecordAnswer(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordAnswer(ctx, "ask", strategy.Generative)
	m.RecordAnswer(ctx, "ask", strategy.Generative)
	m.RecordAnswer(ctx, "lookup", strategy.Exact)

	answers, ok := collect(t, reader)["answerd.mcp.answers_total"]
	if !ok {
		t.Fatal("answers counter not found")
	}
	for _, dp := range answers.Data.(metricdata.Sum[int64]).DataPoints {
		s, _ := dp.Attributes.Value(attribute.Key("strategy"))
		switch s.AsString() {
		case "GENERATIVE":
			if dp.Value != 2 {
				t.Errorf("GENERATIVE answers = %d, want 2", dp.Value)
			}
		case "EXACT":
			if dp.Value != 1 {
				t.Errorf("EXACT answers = %d, want 1", dp.Value)
			}
		default:
			t.Errorf("unexpected strategy %q", s.AsString())
		}
	}
}

func TestMetrics_ActiveRequests(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.IncrementActive(ctx, "ask")
	m.IncrementActive(ctx, "ask")
	m.DecrementActive(ctx, "ask")

	active, ok := collect(t, reader)["answerd.mcp.tool.active_requests"]
	if !ok {
		t.Fatal("active_requests metric not found")
	}
	if n := sumInt64(active); n != 1 {
		t.Errorf("expected 1 active request, got %d", n)
	}
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil error", nil, ""},
		{"duplicate variant", fmt.Errorf("invalid input: %w", knowledge.ErrDuplicateVariant), "conflict"},
		{"invalid entry", fmt.Errorf("teach failed: %w", knowledge.ErrInvalidEntry), "validation_error"},
		{"invalid input", errors.New("invalid input: utterance is required"), "validation_error"},
		{"entry not found", knowledge.ErrEntryNotFound, "not_found"},
		{"store io", &knowledge.StoreIOError{Op: "write", Path: "/x", Err: errors.New("disk full")}, "storage_error"},
		{"cancelled", fmt.Errorf("ask failed: %w", context.Canceled), "cancelled"},
		{"deadline", fmt.Errorf("ask failed: %w", context.DeadlineExceeded), "cancelled"},
		{"timeout text", errors.New("generative collaborator timed out"), "timeout"},
		{"permission denied", errors.New("open profile: permission denied"), "storage_error"},
		{"generic error", errors.New("something went wrong"), "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := categorizeError(tt.err); got != tt.expected {
				t.Errorf("categorizeError(%v) = %q, want %q", tt.err, got, tt.expected)
			}
		})
	}
}
