package metrics

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func TestLogMetricsCounters(t *testing.T) {
	ctx := context.Background()
	m := NewLogMetrics(slog.New(slog.NewTextHandler(io.Discard, nil)))

	m.IncrementCounter(ctx, MetricSwapsRouted, 1)
	m.IncrementCounter(ctx, MetricSwapsRouted, 2)
	m.IncrementCounter(ctx, MetricSwapsFailed, 1)

	if got := m.Counter(MetricSwapsRouted); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
	if got := m.Counter(MetricSwapsUnauthorized); got != 0 {
		t.Errorf("expected 0 for untouched counter, got %d", got)
	}
}

func TestLogMetricsHistogram(t *testing.T) {
	ctx := context.Background()
	m := NewLogMetrics(slog.New(slog.NewTextHandler(io.Discard, nil)))

	for _, v := range []float64{12, 3, 40} {
		m.RecordHistogram(ctx, MetricSwapDurationMillis, v)
	}

	h := m.Snapshot().Histograms[MetricSwapDurationMillis]
	if h.Count != 3 || h.Sum != 55 || h.Min != 3 || h.Max != 40 {
		t.Errorf("unexpected stats: %+v", h)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewLogMetrics(nil)
	m.UpdateGauge(ctx, MetricWhitelistSize, 2)

	s := m.Snapshot()
	s.Gauges[MetricWhitelistSize] = 99

	if got := m.Snapshot().Gauges[MetricWhitelistSize]; got != 2 {
		t.Errorf("snapshot mutation leaked into metrics: %v", got)
	}
}

func TestNoopMetrics(t *testing.T) {
	var m Metrics = NewNoopMetrics()
	if err := m.IncrementCounter(context.Background(), MetricSwapsRouted, 1); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
