package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	defaultRegistry     *prometheus.Registry
	onceDefaultRegistry sync.Once
)

var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

func DefaultRegistry() *prometheus.Registry {
	onceDefaultRegistry.Do(func() {
		r := prometheus.NewRegistry()
		r.MustRegister(collectors.NewGoCollector())
		r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		defaultRegistry = r
	})
	return defaultRegistry
}

type HTTPMetrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	InflightRequests *prometheus.GaugeVec
}

func NewHTTPMetrics(reg prometheus.Registerer, namespace, service string) *HTTPMetrics {
	reqTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"service", "route", "method", "status"})
	reqDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   durationBuckets,
	}, []string{"service", "route", "method", "status"})
	inflight := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_inflight_requests",
		Help:      "Current number of inflight HTTP requests",
	}, []string{"service"})

	reg.MustRegister(reqTotal, reqDur, inflight)
	inflight.WithLabelValues(service).Set(0)

	return &HTTPMetrics{
		RequestsTotal:    reqTotal,
		RequestDuration:  reqDur,
		InflightRequests: inflight,
	}
}

// BusinessMetrics covers the analysis pipeline and the classifier behind it.
type BusinessMetrics struct {
	AnalyzeTotal       *prometheus.CounterVec
	AnalyzeDuration    *prometheus.HistogramVec
	ChunksPerDocument  *prometheus.HistogramVec
	ClassifyTotal      *prometheus.CounterVec
	ClassifyDuration   *prometheus.HistogramVec
	ScoreCacheRequests *prometheus.CounterVec
	JobsTotal          *prometheus.CounterVec
}

func NewBusinessMetrics(reg prometheus.Registerer, namespace string) *BusinessMetrics {
	mkCounter := func(name, help string, labels ...string) *prometheus.CounterVec {
		c := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
		reg.MustRegister(c)
		return c
	}
	mkHist := func(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
		h := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: name, Help: help, Buckets: buckets}, labels)
		reg.MustRegister(h)
		return h
	}
	return &BusinessMetrics{
		AnalyzeTotal:       mkCounter("analyze_total", "Total emotion analyses", "service", "status"),
		AnalyzeDuration:    mkHist("analyze_duration_seconds", "Emotion analysis duration in seconds", durationBuckets, "service", "status"),
		ChunksPerDocument:  mkHist("chunks_per_document", "Number of chunks a document was split into", prometheus.ExponentialBuckets(1, 2, 10), "service"),
		ClassifyTotal:      mkCounter("classify_total", "Total classifier calls", "backend", "status"),
		ClassifyDuration:   mkHist("classify_duration_seconds", "Classifier call duration in seconds", durationBuckets, "backend", "status"),
		ScoreCacheRequests: mkCounter("score_cache_requests_total", "Chunk score cache lookups", "store", "result"),
		JobsTotal:          mkCounter("jobs_total", "Queued analysis jobs processed", "status"),
	}
}

var (
	defaultBusiness     *BusinessMetrics
	onceDefaultBusiness sync.Once
)

// DefaultBusinessMetrics is the process-wide set registered on DefaultRegistry.
func DefaultBusinessMetrics() *BusinessMetrics {
	onceDefaultBusiness.Do(func() {
		defaultBusiness = NewBusinessMetrics(DefaultRegistry(), "emo")
	})
	return defaultBusiness
}
