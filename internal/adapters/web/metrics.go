package web

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pharmastock_http_requests_total",
		Help: "HTTP requests handled, by method and status.",
	}, []string{"method", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pharmastock_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	transactionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pharmastock_transactions_total",
		Help: "Stock transactions created, by type.",
	}, []string{"type"})
)

// Metrics records request counts and latencies. Routes are not used as a
// label to keep cardinality bounded.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		timer := prometheus.NewTimer(httpDuration.WithLabelValues(r.Method))
		next.ServeHTTP(rec, r)
		timer.ObserveDuration()
		httpRequests.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
	})
}

// MetricsHandler exposes the Prometheus scrape endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

func countTransaction(typ string) {
	transactionsCreated.WithLabelValues(typ).Inc()
}
