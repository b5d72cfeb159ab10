// Package metrics exposes load-run counters to prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fermload"

// Metrics holds the run collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	runs         *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	resources    *prometheus.CounterVec
	skippedKeys  *prometheus.CounterVec
	missingLabel *prometheus.CounterVec
}

// New registers the collectors. withRuntime adds the Go and process
// collectors for a long-running server.
func New(withRuntime bool) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Load runs by pipeline and outcome.",
		}, []string{"pipeline", "outcome"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of load runs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"pipeline"}),
		resources: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resources_total",
			Help:      "Resources emitted by pipeline.",
		}, []string{"pipeline"}),
		skippedKeys: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_keys_total",
			Help:      "Keys skipped after a per-key failure.",
		}, []string{"pipeline"}),
		missingLabel: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "missing_labels_total",
			Help:      "missing_value labels emitted, by label.",
		}, []string{"pipeline", "label"}),
	}
	reg.MustRegister(m.runs, m.runDuration, m.resources, m.skippedKeys, m.missingLabel)
	if withRuntime {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return m
}

// ObserveRun records one finished run
func (m *Metrics) ObserveRun(pipeline string, err error, took time.Duration, resources, skipped int) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.runs.WithLabelValues(pipeline, outcome).Inc()
	m.runDuration.WithLabelValues(pipeline).Observe(took.Seconds())
	m.resources.WithLabelValues(pipeline).Add(float64(resources))
	m.skippedKeys.WithLabelValues(pipeline).Add(float64(skipped))
}

// ObserveMissing counts one missing_value label
func (m *Metrics) ObserveMissing(pipeline, label string) {
	if m == nil {
		return
	}
	m.missingLabel.WithLabelValues(pipeline, label).Inc()
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
