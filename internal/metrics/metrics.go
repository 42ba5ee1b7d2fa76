package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gympulse_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gympulse_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	VisitorsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gympulse_visitors_created_total",
			Help: "Total number of visitors registered",
		},
		[]string{"subscription_type"},
	)

	AlertsFiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gympulse_expiry_alerts_fired_total",
			Help: "Total number of expiry advisories dispatched",
		},
	)

	AlertsSuppressedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gympulse_expiry_alerts_suppressed_total",
			Help: "Total number of expiry advisories suppressed by the gate",
		},
	)

	ReconciliationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gympulse_status_reconciliations_total",
			Help: "Total number of lapsed visitors written back as expired",
		},
		[]string{"status"},
	)

	ExpiringVisitors = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gympulse_expiring_visitors",
			Help: "Visitors inside the expiry alerting window, per principal",
		},
		[]string{"principal"},
	)

	NotificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gympulse_push_notifications_total",
			Help: "Total number of web push deliveries attempted",
		},
		[]string{"status"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordVisitorCreated(subscriptionType string) {
	VisitorsCreatedTotal.WithLabelValues(subscriptionType).Inc()
}

func RecordAlertFired() {
	AlertsFiredTotal.Inc()
}

func RecordAlertSuppressed() {
	AlertsSuppressedTotal.Inc()
}

func RecordReconciliation(status string) {
	ReconciliationsTotal.WithLabelValues(status).Inc()
}

func SetExpiringVisitors(principal string, count int) {
	ExpiringVisitors.WithLabelValues(principal).Set(float64(count))
}

func RecordNotification(status string) {
	NotificationsSentTotal.WithLabelValues(status).Inc()
}
