package mempool

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors for the mempool watcher.
type Metrics struct {
	Transactions *prometheus.CounterVec
	Reconnects   prometheus.Counter
}

// NewMetrics creates and registers the mempool collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arb",
			Subsystem: "mempool",
			Name:      "transactions_total",
			Help:      "Pending transactions seen, by filter result.",
		}, []string{"result"}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arb",
			Subsystem: "mempool",
			Name:      "reconnects_total",
			Help:      "Subscription reconnect attempts.",
		}),
	}
	reg.MustRegister(m.Transactions, m.Reconnects)
	return m
}
