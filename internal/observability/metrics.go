package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)

	WebSocketConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Current number of active WebSocket connections",
		},
	)

	MessagesCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "messages_created_total",
			Help: "Messages persisted",
		},
	)

	ConversationsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversations_created_total",
			Help: "Conversations created by type",
		},
		[]string{"type"},
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_events_published_total",
			Help: "Events accepted by the fan-out bus",
		},
		[]string{"topic", "type"},
	)

	EventsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_events_dropped_total",
			Help: "Events dropped because the bus queue or a subscriber buffer was full",
		},
		[]string{"topic", "reason"},
	)

	PublishFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_publish_failures_total",
			Help: "Best-effort publishes that failed",
		},
		[]string{"topic"},
	)

	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storage_operation_duration_seconds",
			Help:    "Duration of attachment storage operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op", "result"},
	)

	BrokerReceiveFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_broker_receive_failures_total",
			Help: "Broker reads that failed and were retried",
		},
		[]string{"broker"},
	)

	StorageOrphansTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storage_orphaned_objects_total",
			Help: "Stored objects whose best-effort cleanup failed",
		},
	)
)
