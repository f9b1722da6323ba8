package provisioning

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the executor's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	nodesTotal      *prometheus.CounterVec
	nodeDuration    *prometheus.HistogramVec
	runDuration     prometheus.Gauge
	runFailedNodes  prometheus.Gauge
	runLastFinished prometheus.Gauge
}

// NewMetrics creates the executor collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		nodesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fluxtenancy",
				Subsystem: "executor",
				Name:      "resources_total",
				Help:      "Total number of applied resources by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		nodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "fluxtenancy",
				Subsystem: "executor",
				Name:      "resource_duration_seconds",
				Help:      "Duration of applying a resource in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
			},
			[]string{"kind"},
		),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fluxtenancy",
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Duration of the last run in seconds",
		}),
		runFailedNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fluxtenancy",
			Subsystem: "run",
			Name:      "failed_resources",
			Help:      "Number of resources that failed in the last run",
		}),
		runLastFinished: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fluxtenancy",
			Subsystem: "run",
			Name:      "last_finished_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}

	reg.MustRegister(m.nodesTotal, m.nodeDuration, m.runDuration, m.runFailedNodes, m.runLastFinished)
	return m
}

func (m *Metrics) recordNode(kind string, outcome Outcome, duration time.Duration) {
	if m == nil {
		return
	}
	m.nodesTotal.WithLabelValues(kind, string(outcome)).Inc()
	if outcome != OutcomeSkipped {
		m.nodeDuration.WithLabelValues(kind).Observe(duration.Seconds())
	}
}

func (m *Metrics) recordRun(r *Report) {
	if m == nil {
		return
	}
	m.runDuration.Set(r.FinishedAt.Sub(r.StartedAt).Seconds())
	m.runFailedNodes.Set(float64(len(r.Failed())))
	m.runLastFinished.Set(float64(r.FinishedAt.Unix()))
}
