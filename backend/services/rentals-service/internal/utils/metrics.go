package utils

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "rentals"

// Metrics are the domain counters exported on /metrics.
type Metrics struct {
	ApplicationTransitions *prometheus.CounterVec
	Payments               *prometheus.CounterVec
	WebhookEvents          *prometheus.CounterVec
	EmailsSent             *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ApplicationTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "application_transitions_total",
			Help:      "Applied application status transitions by target status.",
		}, []string{"to"}),
		Payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "payments_total",
			Help:      "Payment status changes by resulting status.",
		}, []string{"status"}),
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "webhook_events_total",
			Help:      "Stripe webhook events by type and handling result.",
		}, []string{"type", "result"}),
		EmailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "emails_total",
			Help:      "Outbound emails by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.ApplicationTransitions, m.Payments, m.WebhookEvents, m.EmailsSent)
	}
	return m
}
