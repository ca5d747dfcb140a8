package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Task metrics
	TasksSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_tasks_submitted_total",
			Help: "Total number of tasks submitted",
		},
		[]string{"priority"},
	)

	TasksCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_tasks_completed_total",
			Help: "Total number of tasks that reached a terminal state",
		},
		[]string{"status"},
	)

	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduler_task_duration_seconds",
			Help:    "Task execution duration in seconds, from RUNNING to terminal",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
		[]string{"status"},
	)

	TasksCancelled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_tasks_cancelled_total",
			Help: "Total number of tasks cancelled, split by whether cancellation was direct or dependency-propagated",
		},
		[]string{"reason"},
	)

	// Queue metrics
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_queue_depth",
			Help: "Current number of ready tasks waiting for a worker",
		},
	)

	QueueWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduler_queue_wait_seconds",
			Help:    "Time a task spent in the ready queue before a worker popped it",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		},
	)

	// Worker metrics
	ActiveWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_active_workers",
			Help: "Current number of worker slots",
		},
	)

	BusyWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_busy_workers",
			Help: "Current number of worker slots executing a task",
		},
	)

	WorkerRestarts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_worker_restarts_total",
			Help: "Total number of worker slots respawned after dying",
		},
	)

	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduler_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Redis metrics (event fan-out only, never on the scheduling path)
	RedisOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduler_redis_operation_duration_seconds",
			Help:    "Redis operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12), // 0.1ms to ~200ms
		},
		[]string{"operation"},
	)

	RedisErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_redis_errors_total",
			Help: "Total number of Redis errors",
		},
		[]string{"operation"},
	)

	// WebSocket metrics
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_websocket_connections",
			Help: "Current number of WebSocket connections",
		},
	)

	WebSocketMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_websocket_messages_total",
			Help: "Total number of WebSocket messages sent",
		},
		[]string{"type"},
	)
)

// RecordTaskSubmission records a task submission.
func RecordTaskSubmission(priority string) {
	TasksSubmitted.WithLabelValues(priority).Inc()
}

// RecordTaskCompletion records a task reaching a terminal state.
func RecordTaskCompletion(status string, duration float64) {
	TasksCompleted.WithLabelValues(status).Inc()
	TaskDuration.WithLabelValues(status).Observe(duration)
}

// RecordTaskCancelled records a cancellation, direct or propagated.
func RecordTaskCancelled(reason string) {
	TasksCancelled.WithLabelValues(reason).Inc()
}

// UpdateQueueDepth updates the ready queue depth gauge.
func UpdateQueueDepth(depth float64) {
	QueueDepth.Set(depth)
}

// RecordQueueWait records the time a task spent in the ready queue.
func RecordQueueWait(seconds float64) {
	QueueWaitDuration.Observe(seconds)
}

// SetActiveWorkers sets the worker-slot gauge.
func SetActiveWorkers(count float64) {
	ActiveWorkers.Set(count)
}

// SetBusyWorkers sets the busy-worker-slot gauge.
func SetBusyWorkers(count float64) {
	BusyWorkers.Set(count)
}

// IncrementWorkerRestarts increments the worker-restart counter.
func IncrementWorkerRestarts() {
	WorkerRestarts.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration)
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordRedisOperation records a Redis operation.
func RecordRedisOperation(operation string, duration float64) {
	RedisOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordRedisError records a Redis error.
func RecordRedisError(operation string) {
	RedisErrors.WithLabelValues(operation).Inc()
}

// SetWebSocketConnections sets the WebSocket connections gauge.
func SetWebSocketConnections(count float64) {
	WebSocketConnections.Set(count)
}

// RecordWebSocketMessage records a WebSocket message.
func RecordWebSocketMessage(msgType string) {
	WebSocketMessages.WithLabelValues(msgType).Inc()
}
