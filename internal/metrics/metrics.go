// Package metrics records router and whitelist activity.
//
// Backends implement Metrics. LogMetrics keeps running totals and writes them
// through slog on Flush; NoopMetrics discards everything.
package metrics

import (
	"context"
	"log/slog"
	"sync"
)

// Metrics defines the interface for collecting router metrics.
type Metrics interface {
	// Initialize prepares the metrics system for data collection.
	Initialize(ctx context.Context) error

	// Flush sends any buffered metrics data.
	Flush(ctx context.Context) error

	// Shutdown flushes and releases the backend.
	Shutdown(ctx context.Context) error

	// UpdateGauge sets a gauge metric to the specified value.
	UpdateGauge(ctx context.Context, name string, value float64) error

	// IncrementCounter increments a counter metric by the specified value.
	IncrementCounter(ctx context.Context, name string, value uint64) error

	// RecordHistogram records a value in a histogram metric.
	RecordHistogram(ctx context.Context, name string, value float64) error
}

// Metric names.
const (
	MetricSwapsRouted        = "router.swaps.routed"
	MetricSwapsFailed        = "router.swaps.failed"
	MetricSwapsUnauthorized  = "router.swaps.unauthorized"
	MetricSwapDurationMillis = "router.swap.duration_ms"
	MetricWhitelistMutations = "whitelist.mutations"
	MetricWhitelistSize      = "whitelist.size"
)

// NoopMetrics is a Metrics implementation that does nothing.
type NoopMetrics struct{}

// NewNoopMetrics creates a new NoopMetrics.
func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (n *NoopMetrics) Initialize(ctx context.Context) error                              { return nil }
func (n *NoopMetrics) Flush(ctx context.Context) error                                   { return nil }
func (n *NoopMetrics) Shutdown(ctx context.Context) error                                { return nil }
func (n *NoopMetrics) UpdateGauge(ctx context.Context, name string, value float64) error { return nil }
func (n *NoopMetrics) IncrementCounter(ctx context.Context, name string, value uint64) error {
	return nil
}
func (n *NoopMetrics) RecordHistogram(ctx context.Context, name string, value float64) error {
	return nil
}

// HistogramStats summarizes the values recorded under one histogram name.
type HistogramStats struct {
	Count uint64  `json:"count"`
	Sum   float64 `json:"sum"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Snapshot is a point-in-time copy of everything LogMetrics has seen.
type Snapshot struct {
	Gauges     map[string]float64        `json:"gauges"`
	Counters   map[string]uint64         `json:"counters"`
	Histograms map[string]HistogramStats `json:"histograms"`
}

// LogMetrics is a Metrics implementation that logs all metrics using slog.
type LogMetrics struct {
	logger     *slog.Logger
	mu         sync.RWMutex
	gauges     map[string]float64
	counters   map[string]uint64
	histograms map[string]HistogramStats
}

// NewLogMetrics creates a new LogMetrics with the given logger.
// If logger is nil, the default logger is used.
func NewLogMetrics(logger *slog.Logger) *LogMetrics {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMetrics{
		logger:     logger,
		gauges:     make(map[string]float64),
		counters:   make(map[string]uint64),
		histograms: make(map[string]HistogramStats),
	}
}

func (l *LogMetrics) Initialize(ctx context.Context) error {
	l.logger.Debug("metrics initialized")
	return nil
}

// Flush logs all current metric values.
func (l *LogMetrics) Flush(ctx context.Context) error {
	s := l.Snapshot()
	l.logger.Info("metrics flush",
		"gauges", s.Gauges,
		"counters", s.Counters,
		"histograms", s.Histograms,
	)
	return nil
}

func (l *LogMetrics) Shutdown(ctx context.Context) error {
	return l.Flush(ctx)
}

func (l *LogMetrics) UpdateGauge(ctx context.Context, name string, value float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.gauges[name] = value
	l.logger.Debug("gauge updated", "name", name, "value", value)
	return nil
}

func (l *LogMetrics) IncrementCounter(ctx context.Context, name string, value uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.counters[name] += value
	l.logger.Debug("counter incremented", "name", name, "value", value, "total", l.counters[name])
	return nil
}

func (l *LogMetrics) RecordHistogram(ctx context.Context, name string, value float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, seen := l.histograms[name]
	if !seen || value < h.Min {
		h.Min = value
	}
	if !seen || value > h.Max {
		h.Max = value
	}
	h.Count++
	h.Sum += value
	l.histograms[name] = h

	l.logger.Debug("histogram recorded", "name", name, "value", value)
	return nil
}

// Counter returns the running total of a counter.
func (l *LogMetrics) Counter(name string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.counters[name]
}

// Snapshot copies the current values.
func (l *LogMetrics) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := Snapshot{
		Gauges:     make(map[string]float64, len(l.gauges)),
		Counters:   make(map[string]uint64, len(l.counters)),
		Histograms: make(map[string]HistogramStats, len(l.histograms)),
	}
	for k, v := range l.gauges {
		s.Gauges[k] = v
	}
	for k, v := range l.counters {
		s.Counters[k] = v
	}
	for k, v := range l.histograms {
		s.Histograms[k] = v
	}
	return s
}
