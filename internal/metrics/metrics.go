// Package metrics exposes Prometheus metrics for the refresh pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stakefetcher"

// Fetch results used as label values.
const (
	ResultAccepted   = "accepted"
	ResultPublished  = "published"
	ResultSuperseded = "superseded"
	ResultFailed     = "failed"
)

// Registry holds every metric of this package; it leaves out the default Go
// collectors.
var Registry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

var (
	fetches = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetches_total",
		Help:      "Fetch cycles by lifecycle result.",
	}, []string{"result"})

	failures = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_failures_total",
		Help:      "Published fetch failures by error kind.",
	}, []string{"kind"})

	fetchDuration = promauto.With(Registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "fetch_duration_seconds",
		Help:      "Time spent running a fetch cycle against the API.",
		Buckets:   prometheus.DefBuckets,
	})

	clears = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "clears_total",
		Help:      "Clear-fields requests issued for incomplete input or reset.",
	})
)

// RecordFetch counts a fetch lifecycle result.
func RecordFetch(result string) {
	fetches.WithLabelValues(result).Inc()
}

// RecordFailure counts a published failure of the given kind.
func RecordFailure(kind string) {
	failures.WithLabelValues(kind).Inc()
}

// ObserveFetchDuration records how long a fetch cycle ran.
func ObserveFetchDuration(seconds float64) {
	fetchDuration.Observe(seconds)
}

// RecordClear counts a clear-fields request.
func RecordClear() {
	clears.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
