package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/oraclewatch/oraclewatch/internal/deviation"
	"github.com/oraclewatch/oraclewatch/internal/manip"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.DetectionEmitted(manip.TypeSandwichAttack, deviation.SeverityHigh)
	m.DetectionEmitted(manip.TypeSandwichAttack, deviation.SeverityHigh)
	m.DetectionEmitted(manip.TypeFlashLoanAttack, deviation.SeverityCritical)
	m.DetectionSuppressed("cooldown")
	m.SetTrackedFeeds(7)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.detections.WithLabelValues("sandwich_attack", "high")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.detections.WithLabelValues("flash_loan_attack", "critical")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.suppressed.WithLabelValues("cooldown")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.trackedFeeds))
}
