// Package telemetry exports Prometheus metrics for the detection engine.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/oraclewatch/oraclewatch/internal/deviation"
	"github.com/oraclewatch/oraclewatch/internal/manip"
)

// Metrics implements manip.Recorder with Prometheus collectors.
type Metrics struct {
	detections   *prometheus.CounterVec
	suppressed   *prometheus.CounterVec
	trackedFeeds prometheus.Gauge
}

var _ manip.Recorder = (*Metrics)(nil)

// NewMetrics builds and registers the engine collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		detections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oraclewatch_detections_total",
				Help: "Manipulation detections emitted, by type and severity",
			},
			[]string{"type", "severity"},
		),
		suppressed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oraclewatch_detections_suppressed_total",
				Help: "Detections suppressed by gating, by reason",
			},
			[]string{"reason"},
		),
		trackedFeeds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "oraclewatch_tracked_feeds",
				Help: "Number of feed keys with retained price history",
			},
		),
	}
	reg.MustRegister(m.detections, m.suppressed, m.trackedFeeds)
	return m
}

func (m *Metrics) DetectionEmitted(detType manip.DetectionType, severity deviation.Severity) {
	m.detections.WithLabelValues(string(detType), string(severity)).Inc()
}

func (m *Metrics) DetectionSuppressed(reason string) {
	m.suppressed.WithLabelValues(reason).Inc()
}

func (m *Metrics) SetTrackedFeeds(n int) {
	m.trackedFeeds.Set(float64(n))
}
