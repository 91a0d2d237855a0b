package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Fan-out metrics
	NotificationsDispatched *prometheus.CounterVec
	NotificationsFailed     *prometheus.CounterVec
	DispatchLatency         prometheus.Histogram
	CandidatesSelected      prometheus.Histogram

	// Acceptance race metrics
	AcceptAttempts prometheus.Counter
	AcceptOutcomes *prometheus.CounterVec
	AcceptLatency  prometheus.Histogram

	// Expiry sweep metrics
	SweepRuns       prometheus.Counter
	RequestsExpired prometheus.Counter
	SweepLatency    prometheus.Histogram

	// Post-acceptance metrics
	VideoRoomProvisioned prometheus.Counter
	VideoRoomFailed      prometheus.Counter

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
	DatabaseLatency    *prometheus.HistogramVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		NotificationsDispatched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_dispatched_total",
			Help:      "Total number of notification attempts dispatched",
		}, []string{"channel"}),
		NotificationsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_failed_total",
			Help:      "Total number of notification attempts that failed",
		}, []string{"channel"}),
		DispatchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent fanning a request out to all candidates",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		CandidatesSelected: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "candidates_selected",
			Help:      "Number of eligible doctors per request",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
		AcceptAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "accept_attempts_total",
			Help:      "Total number of accept attempts received",
		}),
		AcceptOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "accept_outcomes_total",
			Help:      "Accept attempt outcomes by result and channel",
		}, []string{"result", "channel"}),
		AcceptLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "accept_duration_seconds",
			Help:      "Duration of the atomic accept transition",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		SweepRuns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "expiry_sweep_runs_total",
			Help:      "Total number of expiry sweep iterations",
		}),
		RequestsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_expired_total",
			Help:      "Total number of requests moved to expired by the sweep",
		}),
		SweepLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "expiry_sweep_duration_seconds",
			Help:      "Time spent per expiry sweep iteration",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		VideoRoomProvisioned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "video_rooms_provisioned_total",
			Help:      "Total number of video rooms provisioned after acceptance",
		}),
		VideoRoomFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "video_rooms_failed_total",
			Help:      "Total number of video room provisioning failures",
		}),
		DatabaseOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
		DatabaseLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "database_operation_duration_seconds",
			Help:      "Duration of database operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),
	}
}
