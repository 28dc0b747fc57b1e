package scanner

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors for the scanner.
type Metrics struct {
	Scans              *prometheus.CounterVec
	ScanDuration       prometheus.Histogram
	CacheRebuilds      *prometheus.CounterVec
	CachedPaths        prometheus.Gauge
	PathsSimulated     prometheus.Counter
	SimulationFailures *prometheus.CounterVec
	Opportunities      *prometheus.CounterVec
	TriggersDropped    *prometheus.CounterVec
	State              prometheus.Gauge
}

// NewMetrics creates and registers the scanner collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arb",
			Subsystem: "scanner",
			Name:      "scans_total",
			Help:      "Scans run per trigger source.",
		}, []string{"trigger"}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "arb",
			Subsystem: "scanner",
			Name:      "scan_duration_seconds",
			Help:      "Duration of a scan, cache refresh included.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		CacheRebuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arb",
			Subsystem: "scanner",
			Name:      "cache_rebuilds_total",
			Help:      "Path cache rebuilds by result (ok, unchanged, error).",
		}, []string{"result"}),
		CachedPaths: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "arb",
			Subsystem: "scanner",
			Name:      "cached_paths",
			Help:      "Number of paths in the current cache snapshot.",
		}),
		PathsSimulated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arb",
			Subsystem: "scanner",
			Name:      "paths_simulated_total",
			Help:      "Paths handed to the simulator.",
		}),
		SimulationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arb",
			Subsystem: "scanner",
			Name:      "simulation_failures_total",
			Help:      "Path simulations that errored or panicked.",
		}, []string{"reason"}),
		Opportunities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arb",
			Subsystem: "scanner",
			Name:      "opportunities_total",
			Help:      "Profitable opportunities by execution status.",
		}, []string{"status"}),
		TriggersDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arb",
			Subsystem: "scanner",
			Name:      "triggers_dropped_total",
			Help:      "Scan requests coalesced into a pending or recent one.",
		}, []string{"trigger"}),
		State: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "arb",
			Subsystem: "scanner",
			Name:      "state",
			Help:      "Current scanner state (0 idle, 1 building cache, 2 scanning, 3 executing).",
		}),
	}
	reg.MustRegister(
		m.Scans, m.ScanDuration, m.CacheRebuilds, m.CachedPaths, m.PathsSimulated,
		m.SimulationFailures, m.Opportunities, m.TriggersDropped, m.State,
	)
	return m
}
