// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Worker metrics.
var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Jobs currently being processed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)
)

// Nearby view metrics.
var (
	NearbyRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nearby_requests_total",
			Help: "Nearby view builds by outcome (ok, geolocation_error, fetch_error)",
		},
		[]string{"outcome"},
	)

	NearbyItemsFiltered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nearby_items_filtered_total",
			Help: "Items seen by the proximity filter, by decision",
		},
		[]string{"decision"},
	)

	GeolocationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geolocation_errors_total",
			Help: "Geolocation failures by kind",
		},
		[]string{"kind"},
	)

	NearbyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nearby_build_duration_seconds",
			Help:    "Time to build the nearby view",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Listing and HTTP metrics.
var (
	ListingEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_events_total",
			Help: "Listing lifecycle events by type and publish result",
		},
		[]string{"type", "result"},
	)

	ProfileCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profile_cache_lookups_total",
			Help: "User profile cache lookups (hit, miss, error)",
		},
		[]string{"result"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
