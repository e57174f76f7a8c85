package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "numberledger"

// Ledger holds the marketplace counters. A nil *Ledger records nothing.
type Ledger struct {
	Purchases        *prometheus.CounterVec
	Revenue          *prometheus.CounterVec
	DepositCredits   *prometheus.CounterVec
	DepositReviews   *prometheus.CounterVec
	OTPDeliveries    *prometheus.CounterVec
	Intents          *prometheus.CounterVec
	IntentsThrottled prometheus.Counter
	Broadcasts       *prometheus.CounterVec
	JournalExported  prometheus.Counter

	gatherer prometheus.Gatherer
}

// New creates the ledger counters and registers them with reg
func New(reg *prometheus.Registry) *Ledger {
	m := &Ledger{
		Purchases: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "purchases_total",
				Help:      "Total number of purchase attempts.",
			},
			[]string{"type", "outcome"},
		),
		Revenue: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "revenue_total",
				Help:      "Total price of sold units.",
			},
			[]string{"type"},
		),
		DepositCredits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deposit_credits_total",
				Help:      "Total number of deposit credit attempts.",
			},
			[]string{"outcome"},
		),
		DepositReviews: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deposit_reviews_total",
				Help:      "Total number of approve or deny decisions.",
			},
			[]string{"decision", "outcome"},
		),
		OTPDeliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "otp_deliveries_total",
				Help:      "Total number of OTP deliveries.",
			},
			[]string{"outcome"},
		),
		Intents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "intents_total",
				Help:      "Total number of handled intents.",
			},
			[]string{"command"},
		),
		IntentsThrottled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "intents_throttled_total",
				Help:      "Total number of intents dropped by the per-actor limiter.",
			},
		),
		Broadcasts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "broadcast_recipients_total",
				Help:      "Total number of broadcast deliveries.",
			},
			[]string{"outcome"}, // outcome: sent/failed
		),
		JournalExported: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "journal_exported_total",
				Help:      "Total number of journal entries archived.",
			},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.Purchases,
		m.Revenue,
		m.DepositCredits,
		m.DepositReviews,
		m.OTPDeliveries,
		m.Intents,
		m.IntentsThrottled,
		m.Broadcasts,
		m.JournalExported,
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Ledger) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Purchase records a purchase attempt and, on success, its price
func (m *Ledger) Purchase(accountType, outcome string, price float64) {
	if m == nil {
		return
	}
	m.Purchases.WithLabelValues(accountType, outcome).Inc()
	if outcome == "ok" {
		m.Revenue.WithLabelValues(accountType).Add(price)
	}
}

// DepositCredit records a credit attempt
func (m *Ledger) DepositCredit(outcome string) {
	if m == nil {
		return
	}
	m.DepositCredits.WithLabelValues(outcome).Inc()
}

// DepositReview records an approve or deny attempt
func (m *Ledger) DepositReview(decision, outcome string) {
	if m == nil {
		return
	}
	m.DepositReviews.WithLabelValues(decision, outcome).Inc()
}

// OTPDelivery records an OTP delivery attempt
func (m *Ledger) OTPDelivery(outcome string) {
	if m == nil {
		return
	}
	m.OTPDeliveries.WithLabelValues(outcome).Inc()
}

// Intent records a handled intent
func (m *Ledger) Intent(command string) {
	if m == nil {
		return
	}
	m.Intents.WithLabelValues(command).Inc()
}

// Throttled records an intent dropped by the limiter
func (m *Ledger) Throttled() {
	if m == nil {
		return
	}
	m.IntentsThrottled.Inc()
}

// Broadcast records the result of a broadcast run
func (m *Ledger) Broadcast(sent, failed int) {
	if m == nil {
		return
	}
	m.Broadcasts.WithLabelValues("sent").Add(float64(sent))
	m.Broadcasts.WithLabelValues("failed").Add(float64(failed))
}

// Exported records archived journal entries
func (m *Ledger) Exported(n int) {
	if m == nil {
		return
	}
	m.JournalExported.Add(float64(n))
}
