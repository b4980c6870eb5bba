package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "wallet_ledger"

// Ledger holds the collectors for the atomic step, committed entries and live subscribers.
type Ledger struct {
	stepDuration        *prometheus.HistogramVec
	conflictsRetried    *prometheus.CounterVec
	conflictsExhausted  *prometheus.CounterVec
	insufficientBalance *prometheus.CounterVec
	entriesCommitted    *prometheus.CounterVec
	subscribersActive   prometheus.Gauge
}

// New registers the ledger collectors with reg.
func New(reg prometheus.Registerer) *Ledger {
	factory := promauto.With(reg)

	return &Ledger{
		stepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "atomic_step_duration_seconds",
				Help:      "Duration of committed atomic ledger steps including retries",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
			},
			[]string{"op"}, // "mutate", "transfer"
		),
		conflictsRetried: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conflicts_retried_total",
				Help:      "Atomic steps restarted after a concurrent modification",
			},
			[]string{"op"},
		),
		conflictsExhausted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conflicts_exhausted_total",
				Help:      "Atomic steps that failed after all conflict retries",
			},
			[]string{"op"},
		),
		insufficientBalance: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "insufficient_balance_total",
				Help:      "Debits rejected because the balance would go negative",
			},
			[]string{"op"},
		),
		entriesCommitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "entries_committed_total",
				Help:      "Ledger entries committed by wallet kind and transaction type",
			},
			[]string{"kind", "type"},
		),
		subscribersActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "live_subscribers",
				Help:      "Number of open live balance subscriptions",
			},
		),
	}
}

func (l *Ledger) ObserveCommit(op string, d time.Duration) {
	l.stepDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (l *Ledger) ConflictRetried(op string) {
	l.conflictsRetried.WithLabelValues(op).Inc()
}

func (l *Ledger) ConflictExhausted(op string) {
	l.conflictsExhausted.WithLabelValues(op).Inc()
}

func (l *Ledger) InsufficientBalance(op string) {
	l.insufficientBalance.WithLabelValues(op).Inc()
}

// EntryCommitted counts one committed ledger entry.
func (l *Ledger) EntryCommitted(kind, txType string) {
	l.entriesCommitted.WithLabelValues(kind, txType).Inc()
}

// SubscriberOpened and SubscriberClosed track live balance streams.
func (l *Ledger) SubscriberOpened() {
	l.subscribersActive.Inc()
}

func (l *Ledger) SubscriberClosed() {
	l.subscribersActive.Dec()
}
