package compilation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels of the requests counter.
const (
	OutcomeSuccess      = "success"
	OutcomeCompileError = "compile_error"
	OutcomeEmpty        = "empty"
	OutcomeRejected     = "rejected"
	OutcomeInfraError   = "infra_error"
)

// Metrics collects compile call statistics.
type Metrics struct {
	requests *prometheus.CounterVec
	duration prometheus.Histogram
	lockWait prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg. A nil reg leaves
// them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "swaypad",
				Subsystem: "compile",
				Name:      "requests_total",
				Help:      "Total number of compile requests by outcome",
			},
			[]string{"outcome"},
		),
		duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "swaypad",
				Subsystem: "compile",
				Name:      "duration_seconds",
				Help:      "Compile request duration in seconds",
				Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		),
		lockWait: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "swaypad",
				Subsystem: "build",
				Name:      "lock_wait_seconds",
				Help:      "Time spent waiting for the toolchain lock",
				Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
		),
	}
}

func (m *Metrics) observe(outcome string, start time.Time) {
	m.requests.WithLabelValues(outcome).Inc()
	m.duration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) observeLockWait(start time.Time) {
	m.lockWait.Observe(time.Since(start).Seconds())
}
