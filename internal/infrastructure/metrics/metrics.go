package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Reconciliation metrics
	NotificationsProcessed *prometheus.CounterVec
	CreditsRecorded        prometheus.Counter
	CreditAmount           prometheus.Histogram
	AllocationsCompleted   prometheus.Counter
	RecoveriesResumed      prometheus.Counter
	PendingResolved        *prometheus.CounterVec

	// Push session metrics
	PushSessionsInitiated prometheus.Counter
	PushSessionsTerminal  *prometheus.CounterVec

	// Audit metrics
	AuditEventsPublished *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		NotificationsProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paycore_notifications_processed_total",
				Help: "Inbound payment notifications by outcome",
			},
			[]string{"outcome"},
		),
		CreditsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "paycore_credits_recorded_total",
			Help: "Wallet credits recorded",
		}),
		CreditAmount: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "paycore_credit_amount_minor_units",
			Help:    "Credit amounts in minor currency units",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
		}),
		AllocationsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "paycore_allocations_completed_total",
			Help: "Invoice allocation passes completed",
		}),
		RecoveriesResumed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "paycore_recoveries_resumed_total",
			Help: "Notifications resumed by the recovery sweep",
		}),
		PendingResolved: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paycore_pending_resolutions_total",
				Help: "Pending reconciliations closed by staff, by action",
			},
			[]string{"action"},
		),
		PushSessionsInitiated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "paycore_push_sessions_initiated_total",
			Help: "Push payment sessions initiated",
		}),
		PushSessionsTerminal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paycore_push_sessions_terminal_total",
				Help: "Push payment sessions reaching a terminal state",
			},
			[]string{"state"},
		),
		AuditEventsPublished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paycore_audit_events_published_total",
				Help: "Audit events delivered to the sink",
			},
			[]string{"status"},
		),
		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paycore_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "paycore_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}
