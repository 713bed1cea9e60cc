package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the prometheus collectors exported on /metrics.
type Registry struct {
	reg *prometheus.Registry

	OpenPositions   prometheus.Gauge
	UnrealizedPL    *prometheus.GaugeVec
	CloseSignals    *prometheus.CounterVec
	Transitions     *prometheus.CounterVec
	MonitorErrors   *prometheus.CounterVec
	MonitorDuration prometheus.Histogram
	QuoteRequests   *prometheus.CounterVec
	FlowAlerts      *prometheus.CounterVec
}

// NewRegistry builds a registry with every premiumdesk collector registered. Each call
// returns an independent registry.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "premiumdesk_open_positions",
			Help: "Number of OPEN positions seen by the last monitor pass",
		}),

		UnrealizedPL: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "premiumdesk_unrealized_pl_dollars",
				Help: "Unrealized P&L of open positions by underlying",
			},
			[]string{"symbol"},
		),

		CloseSignals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "premiumdesk_close_signals_total",
				Help: "Close signals raised by the monitor by reason",
			},
			[]string{"reason"},
		),

		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "premiumdesk_position_transitions_total",
				Help: "Position status transitions by target status",
			},
			[]string{"status"},
		),

		MonitorErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "premiumdesk_monitor_errors_total",
				Help: "Monitor failures by stage",
			},
			[]string{"stage"},
		),

		MonitorDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "premiumdesk_monitor_pass_seconds",
			Help:    "Duration of a monitor pass in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		QuoteRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "premiumdesk_quote_requests_total",
				Help: "Market data requests by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),

		FlowAlerts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "premiumdesk_flow_alerts_total",
				Help: "Options flow alerts raised by severity",
			},
			[]string{"severity"},
		),
	}

	r.reg.MustRegister(
		r.OpenPositions,
		r.UnrealizedPL,
		r.CloseSignals,
		r.Transitions,
		r.MonitorErrors,
		r.MonitorDuration,
		r.QuoteRequests,
		r.FlowAlerts,
	)
	return r
}

// Handler serves the registry in the prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry, mainly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// The helpers below are no-ops on a nil *Registry so callers can run without metrics.

func (r *Registry) SetOpenPositions(n int) {
	if r == nil {
		return
	}
	r.OpenPositions.Set(float64(n))
}

func (r *Registry) SetUnrealizedPL(symbol string, v float64) {
	if r == nil {
		return
	}
	r.UnrealizedPL.WithLabelValues(symbol).Set(v)
}

// ResetUnrealizedPL drops every symbol series before a pass repopulates them.
func (r *Registry) ResetUnrealizedPL() {
	if r == nil {
		return
	}
	r.UnrealizedPL.Reset()
}

func (r *Registry) IncCloseSignal(reason string) {
	if r == nil {
		return
	}
	r.CloseSignals.WithLabelValues(reason).Inc()
}

func (r *Registry) IncTransition(status string) {
	if r == nil {
		return
	}
	r.Transitions.WithLabelValues(status).Inc()
}

func (r *Registry) IncMonitorError(stage string) {
	if r == nil {
		return
	}
	r.MonitorErrors.WithLabelValues(stage).Inc()
}

func (r *Registry) ObserveMonitorPass(d time.Duration) {
	if r == nil {
		return
	}
	r.MonitorDuration.Observe(d.Seconds())
}

func (r *Registry) IncQuoteRequest(endpoint, outcome string) {
	if r == nil {
		return
	}
	r.QuoteRequests.WithLabelValues(endpoint, outcome).Inc()
}

func (r *Registry) IncFlowAlert(severity string) {
	if r == nil {
		return
	}
	r.FlowAlerts.WithLabelValues(severity).Inc()
}
