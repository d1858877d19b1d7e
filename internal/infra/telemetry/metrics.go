package telemetry

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yanqian/carefinder/internal/domain/evaluation"
	"github.com/yanqian/carefinder/internal/domain/hospital"
)

const namespace = "carefinder"

// Metrics owns a private Prometheus registry and the service's collectors.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	catalogFetches  *prometheus.CounterVec
	catalogLatency  *prometheus.HistogramVec
	catalogRows     prometheus.Gauge
	evaluationRuns  prometheus.Counter
	evaluationRows  *prometheus.CounterVec
	evaluationTimes prometheus.Histogram
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		catalogFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_fetches_total",
			Help:      "Hospital source fetches by source and outcome.",
		}, []string{"source", "outcome"}),
		catalogLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_fetch_duration_seconds",
			Help:      "Hospital source fetch latency in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120},
		}, []string{"source"}),
		catalogRows: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_rows",
			Help:      "Rows in the most recently fetched hospital table.",
		}),
		evaluationRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluation_runs_total",
			Help:      "Completed batch evaluations.",
		}),
		evaluationRows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluation_queries_total",
			Help:      "Evaluation queries by outcome.",
		}, []string{"outcome"}),
		evaluationTimes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Batch evaluation wall time in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTP records one served request. route is the matched pattern, not the raw path.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveEvaluation implements evaluation.Observer.
func (m *Metrics) ObserveEvaluation(evaluated, failed int, elapsed time.Duration) {
	m.evaluationRuns.Inc()
	m.evaluationRows.WithLabelValues("evaluated").Add(float64(evaluated))
	m.evaluationRows.WithLabelValues("failed").Add(float64(failed))
	m.evaluationTimes.Observe(elapsed.Seconds())
}

// InstrumentSource wraps src so every fetch is counted and timed.
func (m *Metrics) InstrumentSource(src hospital.Source) hospital.Source {
	return &instrumentedSource{Source: src, metrics: m}
}

type instrumentedSource struct {
	hospital.Source
	metrics *Metrics
}

func (s *instrumentedSource) Fetch(ctx context.Context) (hospital.Table, error) {
	start := time.Now()
	table, err := s.Source.Fetch(ctx)
	name := s.Source.Name()
	s.metrics.catalogLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.catalogFetches.WithLabelValues(name, "error").Inc()
		return nil, err
	}
	s.metrics.catalogFetches.WithLabelValues(name, "ok").Inc()
	s.metrics.catalogRows.Set(float64(len(table)))
	return table, nil
}

var _ evaluation.Observer = (*Metrics)(nil)
