package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	Updates            *prometheus.CounterVec
	WizardTransitions  *prometheus.CounterVec
	OrdersCreated      prometheus.Counter
	OrdersPaid         *prometheus.CounterVec
	CommissionCredited prometheus.Counter
	OutboundRequests   *prometheus.CounterVec
	OutboundLatency    *prometheus.HistogramVec
	StateConflicts     prometheus.Counter
	HTTPRequests       *prometheus.CounterVec
	SSEClients         prometheus.Gauge
	Errors             *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = newMetrics(namespace)
		prometheus.MustRegister(metricsInstance.collectors()...)
	})
	return metricsInstance
}

// NewUnregistered builds a fresh set of collectors, for tests.
func NewUnregistered() *Metrics {
	return newMetrics("test")
}

func newMetrics(namespace string) *Metrics {
	return &Metrics{
		Updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bot_updates_total",
			Help:      "Inbound Telegram updates by kind and outcome.",
		}, []string{"kind", "outcome"}),
		WizardTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wizard_transitions_total",
			Help:      "Wizard steps rendered, by step.",
		}, []string{"step"}),
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders confirmed by customers.",
		}),
		OrdersPaid: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_paid_total",
			Help:      "Orders moved to paid, by source.",
		}, []string{"source"}),
		CommissionCredited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "referral_commission_credited_total",
			Help:      "Sum of referral commission credited to wallets.",
		}),
		OutboundRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_requests_total",
			Help:      "Calls to Telegram and the blob store by target and status.",
		}, []string{"target", "status"}),
		OutboundLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outbound_request_duration_seconds",
			Help:      "Latency of outbound calls including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"target"}),
		StateConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversation_state_conflicts_total",
			Help:      "Conversation state writes rejected by the revision check.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Admin API requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		SSEClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sse_clients",
			Help:      "Dashboard event streams currently open.",
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total errors grouped by component.",
		}, []string{"component"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Updates,
		m.WizardTransitions,
		m.OrdersCreated,
		m.OrdersPaid,
		m.CommissionCredited,
		m.OutboundRequests,
		m.OutboundLatency,
		m.StateConflicts,
		m.HTTPRequests,
		m.SSEClients,
		m.Errors,
	}
}
