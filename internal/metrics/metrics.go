// Package metrics tracks fuzzing run statistics with Prometheus collectors,
// replacing the atomic-counter Metrics struct ehrlich-b-go-ublk uses for
// device I/O statistics with registered gauges/counters of the same shape:
// execution and crash counters, edge-count and corpus-size gauges, and a
// latency histogram.
package metrics

import (
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the fuzzer's Prometheus-backed statistics sink. It implements
// interfaces.Observer.
type Metrics struct {
	reg *prometheus.Registry

	execsTotal      prometheus.Counter
	crashesTotal    prometheus.Counter
	newCoverageEdge prometheus.Gauge
	corpusSize      prometheus.Gauge
	execLatency     prometheus.Histogram
	startTime       time.Time
}

// New registers and returns a Metrics instance bound to a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		reg: reg,
		execsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fuzzer_execs_total",
			Help: "Total number of target executions issued through the forkserver.",
		}),
		crashesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fuzzer_crashes_total",
			Help: "Total number of crashes accepted as new, deduplicated solutions.",
		}),
		newCoverageEdge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fuzzer_edges_total",
			Help: "Cumulative number of distinct edges ever observed.",
		}),
		corpusSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fuzzer_corpus_size",
			Help: "Number of test cases currently in the queue.",
		}),
		execLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fuzzer_exec_duration_seconds",
			Help:    "Per-execution latency through the forkserver.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
		}),
		startTime: time.Now(),
	}

	m.reg.MustRegister(m.execsTotal, m.crashesTotal, m.newCoverageEdge, m.corpusSize, m.execLatency)
	return m
}

// Registry returns the underlying Prometheus registry, e.g. to serve on a
// metrics endpoint or read gauge values for the stats sink.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// ObserveExec records one execution's latency. Whether the execution
// crashed is not reflected here: crashesTotal only advances once a crash
// is actually accepted as a new, deduplicated solution, via ObserveCrash.
func (m *Metrics) ObserveExec(durationNs uint64, crashed bool) {
	m.execsTotal.Inc()
	m.execLatency.Observe(float64(durationNs) / 1e9)
}

// ObserveNewCoverage updates the cumulative all-time edge count.
func (m *Metrics) ObserveNewCoverage(totalEdges uint64) {
	m.newCoverageEdge.Set(float64(totalEdges))
}

// ObserveCrash records one accepted, deduplicated crash.
func (m *Metrics) ObserveCrash() {
	m.crashesTotal.Inc()
}

// ObserveCorpusSize records the current queue length.
func (m *Metrics) ObserveCorpusSize(n int) {
	m.corpusSize.Set(float64(n))
}

// Snapshot is a point-in-time read of the counters the stats sink needs.
type Snapshot struct {
	ExecsTotal   float64
	CrashesTotal float64
	ExecsPerSec  float64
	CorpusSize   float64
}

// Snapshot reads the current counter/gauge values.
func (m *Metrics) Snapshot() Snapshot {
	elapsed := time.Since(m.startTime).Seconds()
	execs := readCounter(m.execsTotal)
	var rate float64
	if elapsed > 0 {
		rate = execs / elapsed
	}
	return Snapshot{
		ExecsTotal:   execs,
		CrashesTotal: readCounter(m.crashesTotal),
		ExecsPerSec:  rate,
		CorpusSize:   readGauge(m.corpusSize),
	}
}

func readCounter(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

func readGauge(g prometheus.Gauge) float64 {
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}
