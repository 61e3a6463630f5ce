package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal  *prometheus.CounterVec
	responsesSubmitted prometheus.Counter
	responsesRejected  *prometheus.CounterVec
	statsDuration      *prometheus.HistogramVec
	reportCache        *prometheus.CounterVec
	surveyEvents       *prometheus.CounterVec
	registerOnce       sync.Once
)

// Register initializes Prometheus metrics on the default registry.
func Register() {
	registerOnce.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "survey",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed by the survey API.",
		}, []string{"method", "path", "status"})
		responsesSubmitted = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "survey",
			Name:      "responses_submitted_total",
			Help:      "Responses accepted and committed.",
		})
		responsesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "survey",
			Name:      "responses_rejected_total",
			Help:      "Submissions rejected before commit, by reason.",
		}, []string{"reason"})
		statsDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "survey",
			Name:      "statistics_duration_seconds",
			Help:      "Time spent computing statistics, by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"})
		reportCache = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "survey",
			Name:      "report_cache_total",
			Help:      "Report cache lookups, by result.",
		}, []string{"result"})
		surveyEvents = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "survey",
			Name:      "events_processed_total",
			Help:      "Survey events handled by the background worker, by kind.",
		}, []string{"kind"})
	})
}

// IncRequest increments the http_requests_total counter with the given labels.
func IncRequest(method, path string, status int) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

func IncSubmitted() {
	if responsesSubmitted == nil {
		return
	}
	responsesSubmitted.Inc()
}

func IncRejected(reason string) {
	if responsesRejected == nil {
		return
	}
	responsesRejected.WithLabelValues(reason).Inc()
}

func ObserveStats(operation string, d time.Duration) {
	if statsDuration == nil {
		return
	}
	statsDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncReportCache records a cache lookup result: hit, miss or error.
func IncReportCache(result string) {
	if reportCache == nil {
		return
	}
	reportCache.WithLabelValues(result).Inc()
}

func IncEvent(kind string) {
	if surveyEvents == nil {
		return
	}
	surveyEvents.WithLabelValues(kind).Inc()
}
