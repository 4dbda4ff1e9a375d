package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidstats_http_requests_total",
			Help: "Total number of operator API requests by route and status.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vidstats_http_request_duration_seconds",
			Help:    "Operator API latency by route.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60},
		},
		[]string{"method", "route"},
	)
	translationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidstats_translations_total",
			Help: "Total number of natural-language to SQL translations by status.",
		},
		[]string{"status"},
	)
	translationLatencySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vidstats_translation_duration_seconds",
			Help:    "Latency of text-generation calls in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
	)
	queryExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidstats_query_executions_total",
			Help: "Total number of SQL executions by outcome.",
		},
		[]string{"status"},
	)
	queryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vidstats_query_duration_seconds",
			Help:    "Latency of SQL executions in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
	botMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidstats_bot_messages_total",
			Help: "Total number of handled chat messages by outcome.",
		},
		[]string{"outcome"},
	)
	importRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidstats_import_rows_total",
			Help: "Total number of rows written by the bulk loader by table.",
		},
		[]string{"table"},
	)
	importParseFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vidstats_import_parse_failures_total",
			Help: "Total number of date fields the bulk loader could not parse.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		translationsTotal,
		translationLatencySeconds,
		queryExecutionsTotal,
		queryDurationSeconds,
		botMessagesTotal,
		importRowsTotal,
		importParseFailuresTotal,
	)
}

func ObserveTranslation(status string, elapsed time.Duration) {
	translationsTotal.WithLabelValues(status).Inc()
	translationLatencySeconds.Observe(elapsed.Seconds())
}

func ObserveQueryExecution(status string, elapsed time.Duration) {
	queryExecutionsTotal.WithLabelValues(status).Inc()
	queryDurationSeconds.Observe(elapsed.Seconds())
}

func IncrementBotMessages(outcome string) {
	botMessagesTotal.WithLabelValues(outcome).Inc()
}

func AddImportedRows(table string, rows int) {
	if rows <= 0 {
		return
	}
	importRowsTotal.WithLabelValues(table).Add(float64(rows))
}

func IncrementImportParseFailures() {
	importParseFailuresTotal.Inc()
}
