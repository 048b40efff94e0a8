package graph

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides Prometheus-compatible metrics for workflow execution.
//
// Metrics exposed (all namespaced with "convograph_"):
//
//  1. runs_total (counter): Runs reaching a terminal status.
//     Labels: status (completed, interrupted, failed).
//
//  2. node_latency_ms (histogram): Node execution duration in milliseconds.
//     Labels: node_id, status (success, error).
//
//  3. interrupts_total (counter): Runs paused awaiting a caller decision.
//
//  4. inflight_nodes (gauge): Nodes executing in the current wave.
//
// Usage:
//
//	registry := prometheus.NewRegistry()
//	metrics := graph.NewMetrics(registry)
//	eng, _ := graph.New(g, graph.WithMetrics(metrics))
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
type Metrics struct {
	runs        *prometheus.CounterVec
	nodeLatency *prometheus.HistogramVec
	interrupts  prometheus.Counter
	inflight    prometheus.Gauge

	mu      sync.RWMutex
	enabled bool
}

// NewMetrics creates and registers all workflow metrics with the provided
// Prometheus registry. A nil registry falls back to the default registerer.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	m := &Metrics{enabled: true}

	m.runs = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "convograph",
		Name:      "runs_total",
		Help:      "Workflow runs reaching a terminal status",
	}, []string{"status"})

	m.nodeLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "convograph",
		Name:      "node_latency_ms",
		Help:      "Node execution duration in milliseconds",
		Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
	}, []string{"node_id", "status"})

	m.interrupts = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "convograph",
		Name:      "interrupts_total",
		Help:      "Runs paused awaiting a caller decision",
	})

	m.inflight = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "convograph",
		Name:      "inflight_nodes",
		Help:      "Nodes executing in the current scheduler wave",
	})

	return m
}

// RecordRun counts a run reaching a terminal status.
func (m *Metrics) RecordRun(status RunStatus) {
	if !m.recording() {
		return
	}
	m.runs.WithLabelValues(string(status)).Inc()
}

// RecordNodeLatency records the execution duration of a node.
func (m *Metrics) RecordNodeLatency(nodeID string, latency time.Duration, status string) {
	if !m.recording() {
		return
	}
	m.nodeLatency.WithLabelValues(nodeID, status).Observe(float64(latency.Milliseconds()))
}

// IncInterrupts counts a run pausing for a caller decision.
func (m *Metrics) IncInterrupts() {
	if !m.recording() {
		return
	}
	m.interrupts.Inc()
}

// SetInflight sets the number of nodes executing in the current wave.
func (m *Metrics) SetInflight(n int) {
	if !m.recording() {
		return
	}
	m.inflight.Set(float64(n))
}

func (m *Metrics) recording() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// Disable temporarily disables metric recording (useful for testing).
func (m *Metrics) Disable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = false
}

// Enable re-enables metric recording after Disable.
func (m *Metrics) Enable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = true
}
