// Package metrics provides Prometheus metrics for the Breslov API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP request metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Pipeline metrics
	AnswersTotal            *prometheus.CounterVec
	RetrievalDuration       prometheus.Histogram
	RetrievalResults        prometheus.Histogram
	GenerationFailuresTotal prometheus.Counter
	CacheLookupsTotal       *prometheus.CounterVec

	// Library metrics
	DocumentsLoaded prometheus.Gauge
	ChunksLoaded    prometheus.Gauge
	BookLoadsTotal  *prometheus.CounterVec

	// Outbound calls
	ExternalCallsTotal *prometheus.CounterVec
}

// New creates all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "breslov_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "breslov_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		AnswersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "breslov_answers_total",
				Help: "Answers produced, by strategy and outcome",
			},
			[]string{"strategy", "outcome"},
		),
		RetrievalDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "breslov_retrieval_duration_seconds",
				Help:    "Duration of passage retrieval in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),
		RetrievalResults: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "breslov_retrieval_results",
				Help:    "Number of passages returned per retrieval",
				Buckets: []float64{0, 1, 2, 3, 5, 8, 10, 20},
			},
		),
		GenerationFailuresTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "breslov_generation_failures_total",
				Help: "Generation calls that failed or returned empty text",
			},
		),
		CacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "breslov_cache_lookups_total",
				Help: "Cache lookups by cache and result",
			},
			[]string{"cache", "result"},
		),

		DocumentsLoaded: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "breslov_documents_loaded",
				Help: "Number of documents in the registry",
			},
		),
		ChunksLoaded: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "breslov_chunks_loaded",
				Help: "Number of chunks in the registry",
			},
		),
		BookLoadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "breslov_book_loads_total",
				Help: "Book load attempts by status",
			},
			[]string{"status"},
		),

		ExternalCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "breslov_external_calls_total",
				Help: "Calls to external generation and speech services",
			},
			[]string{"service", "status"},
		),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordAnswer records the outcome of an answered query.
func (m *Metrics) RecordAnswer(strategy, outcome string) {
	if m == nil {
		return
	}
	m.AnswersTotal.WithLabelValues(strategy, outcome).Inc()
}

// RecordRetrieval records one retrieval call.
func (m *Metrics) RecordRetrieval(duration time.Duration, results int) {
	if m == nil {
		return
	}
	m.RetrievalDuration.Observe(duration.Seconds())
	m.RetrievalResults.Observe(float64(results))
}

// RecordGenerationFailure counts a failed or empty generation.
func (m *Metrics) RecordGenerationFailure() {
	if m == nil {
		return
	}
	m.GenerationFailuresTotal.Inc()
}

// RecordCacheLookup counts a cache hit or miss.
func (m *Metrics) RecordCacheLookup(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(cache, result).Inc()
}

// SetLibrarySize updates the loaded document and chunk gauges.
func (m *Metrics) SetLibrarySize(documents, chunks int) {
	if m == nil {
		return
	}
	m.DocumentsLoaded.Set(float64(documents))
	m.ChunksLoaded.Set(float64(chunks))
}

// RecordBookLoad counts a book load attempt. status is loaded, missing or failed.
func (m *Metrics) RecordBookLoad(status string) {
	if m == nil {
		return
	}
	m.BookLoadsTotal.WithLabelValues(status).Inc()
}

// RecordExternalCall counts an outbound call to service.
func (m *Metrics) RecordExternalCall(service string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.ExternalCallsTotal.WithLabelValues(service, status).Inc()
}
