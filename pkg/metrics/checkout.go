package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics counts reconciler outcomes.
type CheckoutMetrics struct {
	quotes            prometheus.Counter
	intents           *prometheus.CounterVec
	verifications     *prometheus.CounterVec
	commits           *prometheus.CounterVec
	oversells         prometheus.Counter
	promotionsRevoked prometheus.Counter
	sessionsExpired   prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	m := &CheckoutMetrics{
		quotes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "checkout_quotes_total",
			Help: "Quotes priced.",
		}),
		intents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_intents_total",
			Help: "Payment intents requested, by outcome.",
		}, []string{"outcome"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_verifications_total",
			Help: "Payment proof verifications, by outcome.",
		}, []string{"outcome"}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_commits_total",
			Help: "Order commits, by outcome.",
		}, []string{"outcome"}),
		oversells: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "checkout_oversell_lines_total",
			Help: "Committed lines flagged as oversold.",
		}),
		promotionsRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "checkout_promotions_revoked_total",
			Help: "Promotions dropped at commit time.",
		}),
		sessionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "checkout_sessions_expired_total",
			Help: "Checkout sessions expired before payment.",
		}),
	}
	reg.MustRegister(m.quotes, m.intents, m.verifications, m.commits, m.oversells, m.promotionsRevoked, m.sessionsExpired)
	return m
}

func (m *CheckoutMetrics) IncQuote() {
	if m == nil || m.quotes == nil {
		return
	}
	m.quotes.Inc()
}

// IncIntent records an intent outcome such as created, unavailable or unknown.
func (m *CheckoutMetrics) IncIntent(outcome string) {
	if m == nil || m.intents == nil {
		return
	}
	m.intents.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *CheckoutMetrics) IncVerification(outcome string) {
	if m == nil || m.verifications == nil {
		return
	}
	m.verifications.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *CheckoutMetrics) IncCommit(outcome string) {
	if m == nil || m.commits == nil {
		return
	}
	m.commits.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *CheckoutMetrics) AddOversell(lines int) {
	if m == nil || m.oversells == nil || lines <= 0 {
		return
	}
	m.oversells.Add(float64(lines))
}

func (m *CheckoutMetrics) IncPromotionRevoked() {
	if m == nil || m.promotionsRevoked == nil {
		return
	}
	m.promotionsRevoked.Inc()
}

func (m *CheckoutMetrics) AddExpired(count int) {
	if m == nil || m.sessionsExpired == nil || count <= 0 {
		return
	}
	m.sessionsExpired.Add(float64(count))
}
