package oracle

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors for the oracle.
type Metrics struct {
	Queries      *prometheus.CounterVec
	Failures     *prometheus.CounterVec
	PairLookups  *prometheus.CounterVec
	QueryLatency prometheus.Histogram
}

// NewMetrics creates and registers the oracle collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arb",
			Subsystem: "oracle",
			Name:      "dex_queries_total",
			Help:      "Reserve queries issued per DEX.",
		}, []string{"dex"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arb",
			Subsystem: "oracle",
			Name:      "dex_failures_total",
			Help:      "Reserve queries that failed per DEX and stage.",
		}, []string{"dex", "stage"}),
		PairLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arb",
			Subsystem: "oracle",
			Name:      "pair_lookups_total",
			Help:      "Pair address lookups by cache result.",
		}, []string{"result"}),
		QueryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "arb",
			Subsystem: "oracle",
			Name:      "pair_query_duration_seconds",
			Help:      "Duration of an all-DEX reserve query for one pair.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.Queries, m.Failures, m.PairLookups, m.QueryLatency)
	return m
}
