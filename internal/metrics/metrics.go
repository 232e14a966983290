// Package metrics holds the dispatch client's Prometheus collectors. They live
// on a dedicated registry exposed on the control surface at /metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry of the dispatch client.
	Registry = prometheus.NewRegistry()

	// APIRequests counts dispatch server calls by operation and outcome.
	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dispatch_api_requests_total", Help: "Dispatch server requests by operation and status."},
		[]string{"operation", "status"},
	)
	// APIDuration records dispatch server call latency in seconds.
	APIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_api_request_duration_seconds",
			Help:    "Dispatch server request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// LocationSamples counts sensor samples by result (accepted, cached).
	LocationSamples = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dispatch_location_samples_total", Help: "Location samples by result."},
		[]string{"result"},
	)
	// LocationPushes counts location uploads by status.
	LocationPushes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dispatch_location_pushes_total", Help: "Location uploads by status."},
		[]string{"status"},
	)

	// ClaimAttempts counts claim attempts by outcome.
	ClaimAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dispatch_claim_attempts_total", Help: "Claim attempts by outcome."},
		[]string{"outcome"},
	)

	// Notifications counts proximity alerts by channel and status.
	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dispatch_notifications_total", Help: "Proximity notifications by channel and status."},
		[]string{"channel", "status"},
	)

	// TaskRuns counts scheduler task runs by task and status (ok, error, skipped).
	TaskRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dispatch_task_runs_total", Help: "Scheduler task runs by task and status."},
		[]string{"task", "status"},
	)

	// CatalogStale is 1 while a catalog read is failing.
	CatalogStale = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "dispatch_catalog_stale", Help: "1 while the cached catalog is stale."},
	)

	// HTTPRequests counts control surface requests by method, path and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
)

var regOnce sync.Once

// RegisterDefault registers every collector on Registry. Safe to call more than once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(
			APIRequests,
			APIDuration,
			LocationSamples,
			LocationPushes,
			ClaimAttempts,
			Notifications,
			TaskRuns,
			CatalogStale,
			HTTPRequests,
		)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
