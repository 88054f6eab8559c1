package inspect

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeDecoded      = "decoded"
	outcomeUnrecognized = "unrecognized"
	outcomeMalformed    = "malformed"
)

// Metrics holds the inspector's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	recordsTotal    *prometheus.CounterVec
	cacheTotal      *prometheus.CounterVec
	ledgerErrors    *prometheus.CounterVec
	publishFailures prometheus.Counter
	matchesPerBlock prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		recordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sasinspect_records_total",
				Help: "Total number of account payloads inspected",
			},
			[]string{"kind", "outcome"},
		),

		cacheTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sasinspect_account_cache_total",
				Help: "Account cache lookups",
			},
			[]string{"result"},
		),

		ledgerErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sasinspect_ledger_errors_total",
				Help: "Failed ledger calls",
			},
			[]string{"method"},
		),

		publishFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sasinspect_publish_failures_total",
				Help: "Reports that could not be published",
			},
		),

		matchesPerBlock: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sasinspect_block_matches",
				Help:    "Accounts created for the program per scanned block",
				Buckets: []float64{0, 1, 2, 4, 8, 16},
			},
		),
	}
}

func (m *Metrics) recordOutcome(kind, outcome string) {
	if m == nil {
		return
	}
	m.recordsTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) cacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ledgerError(method string) {
	if m == nil {
		return
	}
	m.ledgerErrors.WithLabelValues(method).Inc()
}

func (m *Metrics) publishFailed() {
	if m == nil {
		return
	}
	m.publishFailures.Inc()
}

func (m *Metrics) blockMatches(n int) {
	if m == nil {
		return
	}
	m.matchesPerBlock.Observe(float64(n))
}
