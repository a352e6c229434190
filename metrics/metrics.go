// Package metrics exports engine frame statistics to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/matt-g-everett/ledmotion/anim"
)

const namespace = "ledmotion"

// Observer records every processed engine frame.
type Observer struct {
	frames  prometheus.Counter
	writes  prometheus.Counter
	running prometheus.Gauge
	delta   prometheus.Histogram
	took    prometheus.Histogram
}

// NewObserver creates the collectors and registers them with reg.
func NewObserver(reg prometheus.Registerer) (*Observer, error) {
	o := &Observer{
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Engine frames processed.",
		}),
		writes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writes_total",
			Help:      "Property values written to the sink.",
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "running_nodes",
			Help:      "Nodes in the engine run list after the last frame.",
		}),
		delta: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_interval_seconds",
			Help:      "Time between processed frames.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
		took: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_duration_seconds",
			Help:      "Time spent rendering a frame.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 12),
		}),
	}
	for _, c := range []prometheus.Collector{o.frames, o.writes, o.running, o.delta, o.took} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (o *Observer) Observe(s anim.TickStats) {
	o.frames.Inc()
	o.writes.Add(float64(s.Writes))
	o.running.Set(float64(s.Running))
	o.delta.Observe(s.Delta.Seconds())
	o.took.Observe(s.Took.Seconds())
}
