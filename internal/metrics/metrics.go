// Package metrics holds the process-wide translation counters and exposes
// them in Prometheus format from a private registry.
package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/valpere/transbench/internal/translator"
)

const namespace = "transbench"

var latencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

type Stats struct {
	started time.Time
	count   atomic.Int64

	registry     *prometheus.Registry
	translations *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

func New() *Stats {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Stats{
		started:  time.Now(),
		registry: reg,
		translations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translations_total",
			Help:      "Backend translation attempts by backend and status",
		}, []string{"backend", "status"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "translation_latency_seconds",
			Help:      "Backend translation latency in seconds",
			Buckets:   latencyBuckets,
		}, []string{"backend"}),
	}
}

// Record counts one attempted backend invocation. Safe for concurrent use.
func (s *Stats) Record(r translator.Result) {
	s.count.Add(1)
	s.translations.WithLabelValues(r.BackendID, string(r.Status)).Inc()
	s.latency.WithLabelValues(r.BackendID).Observe(r.Latency.Seconds())
}

func (s *Stats) Translations() int64 {
	return s.count.Load()
}

func (s *Stats) Uptime() time.Duration {
	return time.Since(s.started)
}

// TrackReadiness exports a backend's init state as a 0/1 gauge read at
// scrape time.
func (s *Stats) TrackReadiness(backend string, state func() translator.InitState) error {
	return s.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "backend_ready",
		Help:        "Whether the backend finished initialization",
		ConstLabels: prometheus.Labels{"backend": backend},
	}, func() float64 {
		if state() == translator.Ready {
			return 1
		}
		return 0
	}))
}

func (s *Stats) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})
}

// Gatherer exposes the registry for tests and embedding.
func (s *Stats) Gatherer() prometheus.Gatherer {
	return s.registry
}
