package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletwire_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "walletwire_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Relay metrics
	ConnectionsOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "walletwire_connections_online",
			Help: "Identities with a live connection",
		},
	)

	MessagesDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletwire_messages_delivered_total",
			Help: "Messages delivered to a live handle",
		},
		[]string{"path"}, // "direct" or "replay"
	)

	MessagesBuffered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "walletwire_messages_buffered_total",
			Help: "Messages buffered for offline recipients",
		},
	)

	StoreOverflows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "walletwire_store_overflow_total",
			Help: "Buffered messages dropped because a recipient inbox was full",
		},
	)

	DeliveryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "walletwire_delivery_failures_total",
			Help: "Delivery attempts rejected by a transport handle",
		},
	)

	PresenceEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletwire_presence_events_total",
			Help: "Presence events broadcast",
		},
		[]string{"state"}, // "joined" or "left"
	)

	// Broker metrics
	BrokerAttached = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "walletwire_broker_attached",
			Help: "Identities attached through the channel broker",
		},
	)

	BrokerEventsIn = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletwire_broker_events_in_total",
			Help: "Inbound broker events by subject",
		},
		[]string{"subject"},
	)

	// Ledger metrics
	LedgerTransfers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletwire_ledger_transfers_total",
			Help: "Ledger transfer requests",
		},
		[]string{"result"}, // "ok" or "error"
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletwire_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	BlockedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletwire_blocked_requests_total",
			Help: "Total blocked requests",
		},
		[]string{"reason"},
	)
)
