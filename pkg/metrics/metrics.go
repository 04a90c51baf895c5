// Package metrics defines the Prometheus collectors used by the retrieval
// service and the offline pipeline, and exposes an HTTP handler for
// scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the platform.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	RetrievalsTotal      *prometheus.CounterVec
	RetrievalLatency     *prometheus.HistogramVec
	RetrievalScore       prometheus.Histogram
	PredictionsTotal     *prometheus.CounterVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	CorpusDocuments      prometheus.Gauge
	CalibrationThreshold prometheus.Gauge
	CalibrationF1        prometheus.Gauge
	PipelineRecords      *prometheus.CounterVec
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates all collectors and registers them with reg. A nil reg uses
// the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		RetrievalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retrievals_total",
				Help: "Total retrievals by outcome (ok, zero_overlap, error).",
			},
			[]string{"outcome"},
		),
		RetrievalLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "retrieval_latency_seconds",
				Help:    "Retrieval latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		RetrievalScore: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "retrieval_top_score",
				Help:    "BM25 score of the top retrieved document.",
				Buckets: []float64{0, 1, 2, 5, 10, 15, 20, 30, 50},
			},
		),
		PredictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predictions_total",
				Help: "Hallucination predictions by outcome (hallucination, grounded).",
			},
			[]string{"prediction"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of retrieval cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of retrieval cache misses.",
			},
		),
		CorpusDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "corpus_documents",
				Help: "Number of unique documents in the indexed corpus.",
			},
		),
		CalibrationThreshold: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "calibration_threshold",
				Help: "Active decision threshold in canonical polarity.",
			},
		),
		CalibrationF1: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "calibration_f1",
				Help: "F1 of the active threshold on its calibration set.",
			},
		),
		PipelineRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_records_total",
				Help: "Records processed by pipeline stage and status (ok, failed).",
			},
			[]string{"stage", "status"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.RetrievalsTotal,
		m.RetrievalLatency,
		m.RetrievalScore,
		m.PredictionsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CorpusDocuments,
		m.CalibrationThreshold,
		m.CalibrationF1,
		m.PipelineRecords,
		m.CircuitBreakerState,
	)

	return m
}

// ObserveRecord counts one pipeline record.
func (m *Metrics) ObserveRecord(stage string, ok bool) {
	status := "ok"
	if !ok {
		status = "failed"
	}
	m.PipelineRecords.WithLabelValues(stage, status).Inc()
}

// ObservePrediction counts one classification.
func (m *Metrics) ObservePrediction(hallucination bool) {
	label := "grounded"
	if hallucination {
		label = "hallucination"
	}
	m.PredictionsTotal.WithLabelValues(label).Inc()
}

// Handler serves every registered collector in the Prometheus or
// OpenMetrics exposition format, as negotiated by the scraper.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
