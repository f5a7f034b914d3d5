package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lograte"

// Collector records analysis runs as Prometheus metrics. It satisfies
// analyzer.Recorder.
type Collector struct {
	runs       *prometheus.CounterVec
	lines      prometheus.Counter
	lineErrors prometheus.Counter
	buckets    prometheus.Counter
	duration   prometheus.Histogram
}

// New creates a Collector and registers it with reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Analysis runs by result.",
		}, []string{"result"}),
		lines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_read_total",
			Help:      "Lines decoded across all runs.",
		}),
		lineErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "line_errors_total",
			Help:      "Lines skipped because they could not be decoded.",
		}),
		buckets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bucket_emissions_total",
			Help:      "Hour buckets emitted across all runs.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of analysis runs.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
	reg.MustRegister(c.runs, c.lines, c.lineErrors, c.buckets, c.duration)
	return c
}

func (c *Collector) LineRead()      { c.lines.Inc() }
func (c *Collector) LineError()     { c.lineErrors.Inc() }
func (c *Collector) BucketEmitted() { c.buckets.Inc() }

// RunFinished counts the run as "ok" or "error" and observes its duration.
func (c *Collector) RunFinished(d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.runs.WithLabelValues(result).Inc()
	c.duration.Observe(d.Seconds())
}
