package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/netzbremse/nb-speedtest/pkg/speedtest"
)

// Metrics is the agent's own operational telemetry, served on the /metrics
// endpoint when one is configured. Measurement figures themselves travel as
// artifacts, not through here.
type Metrics struct {
	attempts            *prometheus.CounterVec
	consecutiveFailures prometheus.Gauge
	attemptDuration     prometheus.Histogram
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nb_speedtest_attempts_total",
			Help: "Measurement attempts by final status.",
		}, []string{"status"}),
		consecutiveFailures: factory.NewGauge(prometheus.GaugeOpts{
			Name: "nb_speedtest_consecutive_failures",
			Help: "Back-to-back failed attempts since the last success.",
		}),
		attemptDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "nb_speedtest_attempt_duration_seconds",
			Help:    "Wall-clock duration of measurement attempts.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
}

func (m *Metrics) ObserveAttempt(report speedtest.RunReport) {
	m.attempts.WithLabelValues(string(report.Status)).Inc()
	m.attemptDuration.Observe(report.Duration.Seconds())
}

func (m *Metrics) SetConsecutiveFailures(count int) {
	m.consecutiveFailures.Set(float64(count))
}
