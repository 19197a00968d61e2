// Package metrics exports fragment cache activity to Prometheus.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iedon/htmlfrag/fragment"
)

const (
	namespace    = "htmlfrag"
	outcomeLabel = "outcome"
)

// Build outcomes.
const (
	OutcomeHit    = "hit"
	OutcomeMiss   = "miss"
	OutcomeBypass = "bypass"
	OutcomeError  = "error"
)

// StatsSource is anything that can report cache statistics.
type StatsSource interface {
	Stats() fragment.Stats
}

// Metrics owns a private registry with cache and build collectors.
type Metrics struct {
	registry *prometheus.Registry

	version      *prometheus.GaugeVec
	buildsTotal  *prometheus.CounterVec
	buildSeconds prometheus.Histogram
}

// New registers collectors reading from src.
func New(src StatsSource, version string) (*Metrics, error) {
	reg := prometheus.NewRegistry()

	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("register process collector: %w", err)
	}
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("register go collector: %w", err)
	}

	factory := promauto.With(reg)
	m := &Metrics{
		registry: reg,
		version: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "version",
			Help:      "Which version is running. 1 for the 'version' label with the current version.",
		}, []string{"version"}),
		buildsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "factory",
			Name:      "builds_total",
			Help:      "Fragment builds partitioned by cache outcome.",
		}, []string{outcomeLabel}),
		buildSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "factory",
			Name:      "build_seconds",
			Help:      "Time spent building one fragment.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
	}

	if src != nil {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Number of templates held by the fragment cache.",
		}, func() float64 { return float64(src.Stats().Entries) })
		factory.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Reads served by copying a cached fragment.",
		}, func() float64 { return float64(src.Stats().Hits) })
		factory.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Reads that parsed and stored a new fragment.",
		}, func() float64 { return float64(src.Stats().Misses) })
		factory.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "bypasses_total",
			Help:      "Builds that did not consult the cache.",
		}, func() float64 { return float64(src.Stats().Bypasses) })
	}

	m.version.WithLabelValues(version).Set(1)
	return m, nil
}

// ObserveBuild records one build.
func (m *Metrics) ObserveBuild(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.buildsTotal.WithLabelValues(outcome).Inc()
	m.buildSeconds.Observe(took.Seconds())
}

// Registry returns the registry of the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
