package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestCounter counts HTTP requests by status code, method, and route pattern
	RequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "competition_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"status", "method", "path"},
	)

	// RequestDuration measures HTTP request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "competition_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status", "method", "path"},
	)

	// RequestInProgress counts HTTP requests currently being processed
	RequestInProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "competition_http_requests_in_progress",
			Help: "Number of HTTP requests currently being processed",
		},
		[]string{"method"},
	)

	ParticipationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "competition_participation_requests_total",
			Help: "Participation requests by resulting status and whether a record was created",
		},
		[]string{"status", "created"},
	)

	SubmissionsAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "competition_submissions_accepted_total",
			Help: "Total number of accepted submissions",
		},
	)

	// SubmissionsRejected counts refused submissions by error kind
	SubmissionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "competition_submissions_rejected_total",
			Help: "Total number of rejected submissions",
		},
		[]string{"kind"},
	)

	LeaderboardChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "competition_leaderboard_changes_total",
			Help: "Leaderboard entry changes by operation (added, replaced, unchanged, removed)",
		},
		[]string{"operation"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "competition_notifications_sent_total",
			Help: "Notifications delivered by template",
		},
		[]string{"template"},
	)

	NotificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "competition_notifications_failed_total",
			Help: "Notifications that could not be delivered, by template",
		},
		[]string{"template"},
	)

	NotificationsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "competition_notifications_dropped_total",
			Help: "Notifications dropped because the dispatch queue was full or closed",
		},
	)

	JobsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "competition_jobs_enqueued_total",
			Help: "Jobs sent to the worker queue by kind",
		},
		[]string{"kind"},
	)

	JobsEnqueueFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "competition_jobs_enqueue_failed_total",
			Help: "Jobs that could not be sent to the worker queue by kind",
		},
		[]string{"kind"},
	)

	JobResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "competition_job_results_total",
			Help: "Job results consumed from the result queue by kind and status",
		},
		[]string{"kind", "status"},
	)

	RealtimeClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "competition_realtime_clients",
			Help: "Number of connected websocket clients",
		},
	)
)
