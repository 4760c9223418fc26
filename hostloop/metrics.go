package hostloop

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// loopMetrics holds the Prometheus collectors for a single Loop.
// All methods are safe to call on a nil receiver, which is the disabled state.
type loopMetrics struct {
	submitted prometheus.Counter
	executed  prometheus.Counter
	panics    prometheus.Counter
	latency   prometheus.Histogram
	depth     prometheus.GaugeFunc
}

func newLoopMetrics(registerer prometheus.Registerer, l *Loop) (*loopMetrics, error) {
	if registerer == nil {
		return nil, nil
	}

	labels := prometheus.Labels{"loop": strconv.FormatUint(l.id, 10)}

	m := &loopMetrics{
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "hostloop",
			Name:        "tasks_submitted_total",
			Help:        "Tasks accepted by the host loop.",
			ConstLabels: labels,
		}),
		executed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "hostloop",
			Name:        "tasks_executed_total",
			Help:        "Tasks executed on the host goroutine.",
			ConstLabels: labels,
		}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "hostloop",
			Name:        "task_panics_total",
			Help:        "Tasks that panicked, recovered by the host loop.",
			ConstLabels: labels,
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "hostloop",
			Name:        "task_duration_seconds",
			Help:        "Time spent executing each task on the host goroutine.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		depth: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   "hostloop",
			Name:        "queue_depth",
			Help:        "Tasks currently waiting in the host loop queue.",
			ConstLabels: labels,
		}, func() float64 { return float64(l.pending()) }),
	}

	for _, c := range []prometheus.Collector{m.submitted, m.executed, m.panics, m.latency, m.depth} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *loopMetrics) recordSubmit() {
	if m != nil {
		m.submitted.Inc()
	}
}

func (m *loopMetrics) recordExecute(d time.Duration, panicked bool) {
	if m == nil {
		return
	}
	m.executed.Inc()
	m.latency.Observe(d.Seconds())
	if panicked {
		m.panics.Inc()
	}
}
