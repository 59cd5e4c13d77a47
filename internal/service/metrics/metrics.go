package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "flow_monitor"

// Recorder counts cycles, alarms and changed nodes.
type Recorder struct {
	cycles       *prometheus.CounterVec
	alarms       prometheus.Counter
	duration     prometheus.Histogram
	changedNodes prometheus.Counter
	lastApplied  prometheus.Gauge
}

// NewRecorder creates the collectors and registers them on reg.
// Duration is only observed for cycles that actually ran.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Refresh requests by outcome.",
		}, []string{"outcome"}),
		alarms: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alarms_total",
			Help:      "Alarm events emitted.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of poll cycles from fetch start to apply.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		changedNodes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_changed_total",
			Help:      "Diagram nodes whose derived fields changed.",
		}),
		lastApplied: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_applied_timestamp_seconds",
			Help:      "Unix time of the last applied change.",
		}),
	}

	for _, c := range []prometheus.Collector{r.cycles, r.alarms, r.duration, r.changedNodes, r.lastApplied} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// ObserveCycle counts a refresh request by outcome.
func (r *Recorder) ObserveCycle(outcome string, elapsed time.Duration) {
	r.cycles.WithLabelValues(outcome).Inc()

	if elapsed > 0 {
		r.duration.Observe(elapsed.Seconds())
	}
}

// AddAlarms counts emitted alarms.
func (r *Recorder) AddAlarms(n int) {
	r.alarms.Add(float64(n))
}

// AddChangedNodes counts changed nodes.
func (r *Recorder) AddChangedNodes(n int) {
	r.changedNodes.Add(float64(n))
}

// SetLastApplied records the time of the last applied change.
func (r *Recorder) SetLastApplied(t time.Time) {
	r.lastApplied.Set(float64(t.UnixNano()) / float64(time.Second))
}
