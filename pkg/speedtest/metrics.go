package speedtest

import "github.com/prometheus/client_golang/prometheus"

// ObserveMetrics publishes measurement figures into a per-attempt registry so
// they end up in the metrics artifact stored next to the report.
func ObserveMetrics(registry *prometheus.Registry, m *Metrics) {
	if registry == nil || m == nil {
		return
	}

	gauges := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "speedtest_measurement",
		Help: "Raw figures of the last measurement; download/upload in bits per second, latencies in ms.",
	}, []string{"metric"})
	if err := registry.Register(gauges); err != nil {
		return
	}

	gauges.WithLabelValues("download").Set(m.Download)
	gauges.WithLabelValues("upload").Set(m.Upload)
	gauges.WithLabelValues("latency").Set(m.Latency)
	gauges.WithLabelValues("jitter").Set(m.Jitter)
}
