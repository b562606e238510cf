package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics records webhook processing and payout execution outcomes.
type SettlementMetrics struct {
	webhookDuration *prometheus.HistogramVec
	webhookOutcome  *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	payoutTransfers *prometheus.CounterVec
	payoutAmount    *prometheus.CounterVec
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	webhookDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_duration_seconds",
		Help:    "Duration of payment webhook processing in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})
	webhookOutcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_outcome",
		Help: "Payment webhook outcomes by result.",
	}, []string{"provider", "outcome"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions",
		Help: "Order status transitions applied.",
	}, []string{"to_status"})
	payoutTransfers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payout_transfers",
		Help: "PIX transfer executions by terminal status.",
	}, []string{"status"})
	payoutAmount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payout_amount_cents",
		Help: "Total paid out amount in cents by terminal status.",
	}, []string{"status"})
	reg.MustRegister(webhookDuration, webhookOutcome, transitions, payoutTransfers, payoutAmount)
	return &SettlementMetrics{
		webhookDuration: webhookDuration,
		webhookOutcome:  webhookOutcome,
		transitions:     transitions,
		payoutTransfers: payoutTransfers,
		payoutAmount:    payoutAmount,
	}
}

// ObserveWebhook records one webhook processing attempt.
func (s *SettlementMetrics) ObserveWebhook(provider, outcome string, duration time.Duration) {
	if s == nil || s.webhookOutcome == nil {
		return
	}
	s.webhookDuration.WithLabelValues(normalizeLabel(provider)).Observe(duration.Seconds())
	s.webhookOutcome.WithLabelValues(normalizeLabel(provider), normalizeLabel(outcome)).Inc()
}

// IncTransition counts an applied order status transition.
func (s *SettlementMetrics) IncTransition(toStatus string) {
	if s == nil || s.transitions == nil {
		return
	}
	s.transitions.WithLabelValues(normalizeLabel(toStatus)).Inc()
}

// ObserveTransfer counts a transfer reaching a terminal status and its amount in cents.
func (s *SettlementMetrics) ObserveTransfer(status string, amountCents int64) {
	if s == nil || s.payoutTransfers == nil {
		return
	}
	s.payoutTransfers.WithLabelValues(normalizeLabel(status)).Inc()
	if amountCents > 0 {
		s.payoutAmount.WithLabelValues(normalizeLabel(status)).Add(float64(amountCents))
	}
}
