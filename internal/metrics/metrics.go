// package metrics holds the Prometheus collectors for the pacer, the AniList
// client and the migration executor.
//
// Pacer:
//   - alx_rate_limit_requests_per_minute (Gauge): last budget reported by AniList
//   - alx_pacer_interval_seconds (Gauge): current minimum spacing between calls
//   - alx_pacer_wait_seconds (Histogram): time spent waiting for a slot
//
// Client:
//   - alx_requests_total{operation, status} (Counter): GraphQL requests by operation and HTTP status
//   - alx_request_duration_seconds{operation} (Histogram): request latency
//
// Executor:
//   - alx_outcomes_total{kind} (Counter): per-entry outcomes
//   - alx_run_progress_percent (Gauge): percent complete of the active run
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	rateLimitRPM = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "alx_rate_limit_requests_per_minute",
		Help: "Requests per minute most recently reported by AniList",
	})

	pacerInterval = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "alx_pacer_interval_seconds",
		Help: "Minimum spacing between remote calls",
	})

	pacerWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "alx_pacer_wait_seconds",
		Help:    "Time spent waiting for a pacer slot",
		Buckets: []float64{0.001, 0.01, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alx_requests_total",
		Help: "AniList requests by operation and HTTP status",
	}, []string{"operation", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "alx_request_duration_seconds",
		Help:    "AniList request duration by operation",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	outcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alx_outcomes_total",
		Help: "Migration outcomes by kind",
	}, []string{"kind"})

	runProgress = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "alx_run_progress_percent",
		Help: "Percent complete of the active migration run",
	})
)

// SetBudget records a budget change.
func SetBudget(rpm int, interval time.Duration) {
	rateLimitRPM.Set(float64(rpm))
	pacerInterval.Set(interval.Seconds())
}

// ObserveWait records the time a caller spent blocked on the pacer.
func ObserveWait(d time.Duration) {
	pacerWait.Observe(d.Seconds())
}

// ObserveRequest records one AniList request. A status of 0 means the request never got a response.
func ObserveRequest(operation string, status int, d time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	requestsTotal.WithLabelValues(operation, label).Inc()
	requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordOutcome counts one outcome by its kind name.
func RecordOutcome(kind string) {
	outcomesTotal.WithLabelValues(kind).Inc()
}

// SetProgress records the percent complete of the active run.
func SetProgress(percent float64) {
	runProgress.Set(percent)
}

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
