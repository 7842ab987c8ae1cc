package manip

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oraclewatch/oraclewatch/internal/deviation"
)

// emitAt drives one detection through the public API at the given clock
// value. The snapshot noise controls the resulting severity.
func emitAt(t *testing.T, d *Detector, now *time.Time, at time.Time, symbol string, noise, current float64) *Detection {
	t.Helper()
	*now = at

	snap := anomalousSnapshot(20, noise, current)
	snap.Symbol = symbol

	det, err := d.AnalyzePriceFeed(context.Background(), snap)
	require.NoError(t, err)
	require.NotNil(t, det)
	return det
}

func newLedgerFixture(t *testing.T) (*Detector, *time.Time) {
	t.Helper()
	now := testBase
	cfg := DefaultConfig()
	cfg.Alerting.MinSeverity = deviation.SeverityLow
	d := newTestDetector(t, cfg, WithClock(func() time.Time { return now }))
	return d, &now
}

func TestDetectionHistory_FilterAndOrder(t *testing.T) {
	d, now := newLedgerFixture(t)

	// Three detections across two days; noise 4 yields medium severity
	// (z=6 → confidence 60), noise 0.5 yields critical.
	first := emitAt(t, d, now, testBase, "ETH/USD", 0.5, 120)
	second := emitAt(t, d, now, testBase.Add(6*time.Minute), "BTC/USD", 4, 124)
	third := emitAt(t, d, now, testBase.Add(24*time.Hour), "ETH/USD", 0.5, 130)

	all := d.DetectionHistory(HistoryFilter{})
	require.Len(t, all, 3)
	assert.Equal(t, third.ID, all[0].ID, "newest first")
	assert.Equal(t, second.ID, all[1].ID)
	assert.Equal(t, first.ID, all[2].ID)

	critical := d.DetectionHistory(HistoryFilter{Severity: deviation.SeverityCritical})
	require.Len(t, critical, 2)

	dayOne := d.DetectionHistory(HistoryFilter{
		StartTime: testBase.Add(-time.Minute),
		EndTime:   testBase.Add(time.Hour),
	})
	require.Len(t, dayOne, 2)

	limited := d.DetectionHistory(HistoryFilter{Limit: 1})
	require.Len(t, limited, 1)
	assert.Equal(t, third.ID, limited[0].ID)
}

func TestMetrics_Aggregation(t *testing.T) {
	d, now := newLedgerFixture(t)

	emitAt(t, d, now, testBase, "ETH/USD", 0.5, 120)                    // critical, conf 100
	emitAt(t, d, now, testBase.Add(6*time.Minute), "BTC/USD", 4, 124)   // medium, conf 60
	emitAt(t, d, now, testBase.Add(24*time.Hour), "ETH/USD", 0.5, 130)  // critical, conf 100
	emitAt(t, d, now, testBase.Add(25*time.Hour), "SOL/USD", 4, 76)     // medium, conf 60

	report := d.Metrics(TimeRange{})
	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 2, report.BySeverity[deviation.SeverityCritical])
	assert.Equal(t, 2, report.BySeverity[deviation.SeverityMedium])
	assert.Equal(t, 4, report.ByType[TypePriceManipulation])
	assert.InDelta(t, 80.0, report.AverageConfidence, 1e-9)
	assert.Equal(t, 0, report.Confirmed)
	assert.Equal(t, 0, report.FalsePositives)

	require.Len(t, report.DailyTrend, 2)
	assert.Equal(t, "2026-03-01", report.DailyTrend[0].Date)
	assert.Equal(t, 2, report.DailyTrend[0].Count)
	assert.Equal(t, deviation.SeverityCritical, report.DailyTrend[0].MaxSeverity)
	assert.Equal(t, "2026-03-02", report.DailyTrend[1].Date)
	assert.Equal(t, deviation.SeverityCritical, report.DailyTrend[1].MaxSeverity)

	require.NotEmpty(t, report.TopFeeds)
	assert.Equal(t, FeedCount{Feed: "chainlink-ETH/USD-ethereum", Count: 2}, report.TopFeeds[0])
}

func TestMetrics_TimeRangeBounds(t *testing.T) {
	d, now := newLedgerFixture(t)

	emitAt(t, d, now, testBase, "ETH/USD", 0.5, 120)
	emitAt(t, d, now, testBase.Add(24*time.Hour), "BTC/USD", 0.5, 120)

	report := d.Metrics(TimeRange{
		Start: testBase.Add(-time.Hour),
		End:   testBase.Add(time.Hour),
	})
	assert.Equal(t, 1, report.Total)

	report = d.Metrics(TimeRange{Start: testBase.Add(48 * time.Hour)})
	assert.Equal(t, 0, report.Total)
	assert.Empty(t, report.DailyTrend)
	assert.Empty(t, report.TopFeeds)
	assert.Equal(t, 0.0, report.AverageConfidence)
}

func TestMetrics_TopFeedsCapped(t *testing.T) {
	d, now := newLedgerFixture(t)

	symbols := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L"}
	for i, sym := range symbols {
		emitAt(t, d, now, testBase.Add(time.Duration(i)*10*time.Minute), sym+"/USD", 0.5, 120)
	}

	report := d.Metrics(TimeRange{})
	assert.Equal(t, len(symbols), report.Total)
	assert.Len(t, report.TopFeeds, 10)
}
