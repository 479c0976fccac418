package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Task metrics
	TasksScheduled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cansrv_tasks_scheduled_total",
			Help: "Total number of tasks scheduled",
		},
		[]string{"kind", "priority"},
	)

	TasksCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cansrv_tasks_completed_total",
			Help: "Total number of task invocations completed",
		},
		[]string{"kind", "status"},
	)

	TaskInvocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cansrv_task_invocation_duration_seconds",
			Help:    "cansend invocation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		},
		[]string{"kind"},
	)

	// Queue metrics
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cansrv_queue_depth",
			Help: "Current number of work items waiting in the deadline queue",
		},
	)

	QueueLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cansrv_queue_latency_seconds",
			Help:    "Time a work item spent past its deadline before a worker picked it up",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		},
	)

	// Worker metrics
	ActiveWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cansrv_active_workers",
			Help: "Current number of worker goroutines running",
		},
	)

	WorkerBusyTime = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cansrv_worker_busy_seconds_total",
			Help: "Total time workers spent executing actions",
		},
		[]string{"worker_id"},
	)

	// Subprocess metrics
	SubprocessExits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cansrv_subprocess_exits_total",
			Help: "Total cansend subprocess terminations, classified by outcome",
		},
		[]string{"outcome"},
	)

	// Session metrics
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cansrv_active_sessions",
			Help: "Current number of connected TCP client sessions",
		},
	)

	CommandsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cansrv_commands_received_total",
			Help: "Total number of protocol commands received",
		},
		[]string{"command"},
	)

	// CAN interface metrics
	CANInterfacesAvailable = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cansrv_can_interfaces_available",
			Help: "Current number of CAN interfaces discovered on the host",
		},
	)

	// Admin HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cansrv_http_request_duration_seconds",
			Help:    "Admin HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Events metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cansrv_events_published_total",
			Help: "Total number of task lifecycle events published",
		},
		[]string{"event_type"},
	)

	EventsPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cansrv_events_publish_errors_total",
			Help: "Total number of failures publishing task lifecycle events",
		},
	)
)

func RecordTaskScheduled(kind, priority string) {
	TasksScheduled.WithLabelValues(kind, priority).Inc()
}

func RecordTaskCompletion(kind, status string, duration float64) {
	TasksCompleted.WithLabelValues(kind, status).Inc()
	TaskInvocationDuration.WithLabelValues(kind).Observe(duration)
}

func SetQueueDepth(depth float64) {
	QueueDepth.Set(depth)
}

func RecordQueueLatency(latency float64) {
	QueueLatency.Observe(latency)
}

func SetActiveWorkers(count float64) {
	ActiveWorkers.Set(count)
}

func RecordWorkerBusyTime(workerID string, duration float64) {
	WorkerBusyTime.WithLabelValues(workerID).Add(duration)
}

func RecordSubprocessExit(outcome string) {
	SubprocessExits.WithLabelValues(outcome).Inc()
}

func SetActiveSessions(count float64) {
	ActiveSessions.Set(count)
}

func RecordCommandReceived(command string) {
	CommandsReceived.WithLabelValues(command).Inc()
}

func SetCANInterfacesAvailable(count float64) {
	CANInterfacesAvailable.Set(count)
}

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration)
}

func RecordEventPublished(eventType string) {
	EventsPublished.WithLabelValues(eventType).Inc()
}

func RecordEventPublishError() {
	EventsPublishErrors.Inc()
}
