// Package telemetry exports scheduler introspection as Prometheus
// metrics, grounded on
// _examples/88lin-divinesense/ai/metrics/prometheus.go's exporter shape.
// It is the one place this repo uses net/http rather than the teacher's
// own HTTP/1.0 stack: Prometheus scrapers speak real HTTP/1.1, and the
// teacher's JSON /metrics route already covers internal/ad hoc
// diagnostics, so this is a second, external-facing surface rather than
// a replacement.
package telemetry

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reactorsched/internal/reactor"
)

// Exporter periodically-on-scrape reads a reactor.Scheduler snapshot and
// reports it as Prometheus gauges.
type Exporter struct {
	sched *reactor.Scheduler

	idleWorkers prometheus.GaugeFunc
	nextLevel   prometheus.GaugeFunc
	execLevel   prometheus.GaugeFunc
	stopped     prometheus.GaugeFunc
	queueDepth  *prometheus.GaugeVec
}

// New builds an Exporter bound to sched. Call Handler to mount it.
func New(sched *reactor.Scheduler) *Exporter {
	e := &Exporter{sched: sched}

	e.idleWorkers = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "reactor_idle_workers",
		Help: "Number of worker goroutines currently idle.",
	}, func() float64 { return float64(e.sched.Snapshot().IdleWorkers) })

	e.nextLevel = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "reactor_next_level",
		Help: "Next precedence level the advancer will inspect.",
	}, func() float64 { return float64(e.sched.Snapshot().NextLevel) })

	e.execLevel = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "reactor_executing_level",
		Help: "Precedence level currently being drained by workers.",
	}, func() float64 { return float64(e.sched.Snapshot().ExecutingLevel) })

	e.stopped = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "reactor_stopped",
		Help: "1 once the scheduler has reached its stop tag.",
	}, func() float64 {
		if e.sched.Snapshot().Stopped {
			return 1
		}
		return 0
	})

	e.queueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "reactor_level_queue_depth",
		Help: "Number of ready reactions currently queued at each level.",
	}, []string{"level"})

	return e
}

// collectorFunc adapts a function to prometheus.Collector. GaugeVec has no
// "func" variant, so Handler uses one to repopulate the per-level queue
// depth vector and then emit it, in that order, on every scrape.
type collectorFunc func(chan<- prometheus.Metric)

func (f collectorFunc) Describe(chan<- *prometheus.Desc)    {}
func (f collectorFunc) Collect(ch chan<- prometheus.Metric) { f(ch) }

// Handler returns the http.Handler Prometheus scrapers should hit.
func (e *Exporter) Handler() http.Handler {
	refresher := collectorFunc(func(ch chan<- prometheus.Metric) {
		snap := e.sched.Snapshot()
		e.queueDepth.Reset()
		for level, depth := range snap.QueueDepths {
			e.queueDepth.WithLabelValues(strconv.Itoa(level)).Set(float64(depth))
		}
		e.queueDepth.Collect(ch)
	})
	reg := prometheus.NewRegistry()
	reg.MustRegister(e.idleWorkers, e.nextLevel, e.execLevel, e.stopped, refresher)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
