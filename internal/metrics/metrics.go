package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects counters for queries, completions and provider calls.
// All methods are safe on a nil receiver.
type Metrics struct {
	gatherer prometheus.Gatherer

	queriesTotal      *prometheus.CounterVec
	queryDuration     *prometheus.HistogramVec
	completionsTotal  *prometheus.CounterVec
	completionRetries prometheus.Counter
	providerRequests  *prometheus.CounterVec
	providerDuration  *prometheus.HistogramVec
	cbState           *prometheus.GaugeVec
	documentsIngested prometheus.Counter
	chunksIndexed     prometheus.Gauge
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New registers every collector with reg. Tests pass a fresh
// prometheus.NewRegistry().
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		queriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "airrag_queries_total",
			Help: "Queries processed by matched route.",
		}, []string{"route"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "airrag_query_duration_seconds",
			Help:    "Query processing time by matched route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		completionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "airrag_completions_total",
			Help: "Generative completion calls by outcome class.",
		}, []string{"outcome"}),
		completionRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "airrag_completion_retries_total",
			Help: "Completion retries after a rate-limit response.",
		}),
		providerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "airrag_provider_requests_total",
			Help: "Air-quality provider requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		providerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "airrag_provider_request_duration_seconds",
			Help:    "Air-quality provider request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		cbState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "airrag_provider_cb_state",
			Help: "Circuit breaker state gauge (0 closed, 1 half, 2 open).",
		}, []string{"provider"}),
		documentsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "airrag_documents_ingested_total",
			Help: "Documents accepted for chunking.",
		}),
		chunksIndexed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "airrag_chunks_indexed",
			Help: "Chunks in the current document store.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "airrag_http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "airrag_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
	reg.MustRegister(
		m.queriesTotal,
		m.queryDuration,
		m.completionsTotal,
		m.completionRetries,
		m.providerRequests,
		m.providerDuration,
		m.cbState,
		m.documentsIngested,
		m.chunksIndexed,
		m.httpRequestsTotal,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) Query(route string, d time.Duration) {
	if m == nil {
		return
	}
	m.queriesTotal.WithLabelValues(route).Inc()
	m.queryDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) Completion(outcome string) {
	if m == nil {
		return
	}
	m.completionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CompletionRetry() {
	if m == nil {
		return
	}
	m.completionRetries.Inc()
}

func (m *Metrics) ProviderRequest(provider string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.providerRequests.WithLabelValues(provider, outcome).Inc()
	m.providerDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// BreakerState records 0 closed, 1 half-open, 2 open.
func (m *Metrics) BreakerState(provider string, state int) {
	if m == nil {
		return
	}
	m.cbState.WithLabelValues(provider).Set(float64(state))
}

func (m *Metrics) DocumentIngested(chunks int) {
	if m == nil {
		return
	}
	m.documentsIngested.Inc()
	m.chunksIndexed.Set(float64(chunks))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
