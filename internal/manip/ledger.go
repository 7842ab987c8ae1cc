package manip

import (
	"sort"
	"time"

	"github.com/oraclewatch/oraclewatch/internal/deviation"
)

// HistoryFilter narrows DetectionHistory results. Zero times mean
// unbounded; an empty severity matches all; Limit <= 0 means no truncation.
type HistoryFilter struct {
	StartTime time.Time
	EndTime   time.Time
	Severity  deviation.Severity
	Limit     int
}

// DetectionHistory returns ledger entries matching the filter, newest
// first. Returned detections are shared, immutable records; callers must
// not modify them.
func (d *Detector) DetectionHistory(filter HistoryFilter) []*Detection {
	d.ledgerMu.RLock()
	defer d.ledgerMu.RUnlock()

	var out []*Detection
	for _, det := range d.ledger {
		if !filter.StartTime.IsZero() && det.Timestamp.Before(filter.StartTime) {
			continue
		}
		if !filter.EndTime.IsZero() && det.Timestamp.After(filter.EndTime) {
			continue
		}
		if filter.Severity != "" && det.Severity != filter.Severity {
			continue
		}
		out = append(out, det)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

// TimeRange bounds a metrics aggregation window.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// DailyTrendPoint is one UTC day's detection activity.
type DailyTrendPoint struct {
	Date        string             `json:"date"` // YYYY-MM-DD, UTC
	Count       int                `json:"count"`
	MaxSeverity deviation.Severity `json:"max_severity"`
}

// FeedCount ranks a feed by how often it appeared in detections.
type FeedCount struct {
	Feed  string `json:"feed"`
	Count int    `json:"count"`
}

// MetricsReport aggregates ledger entries within a time range.
type MetricsReport struct {
	Total             int                        `json:"total"`
	BySeverity        map[deviation.Severity]int `json:"by_severity"`
	ByType            map[DetectionType]int      `json:"by_type"`
	AverageConfidence float64                    `json:"average_confidence"`
	Confirmed         int                        `json:"confirmed"`
	FalsePositives    int                        `json:"false_positives"`
	DailyTrend        []DailyTrendPoint          `json:"daily_trend"`
	TopFeeds          []FeedCount                `json:"top_feeds"`
}

const topFeedLimit = 10

// Metrics summarizes detections inside the given range: counts by severity
// and type, average confidence, triage outcomes, a per-UTC-day trend, and
// the ten most affected feeds.
func (d *Detector) Metrics(tr TimeRange) MetricsReport {
	d.ledgerMu.RLock()
	defer d.ledgerMu.RUnlock()

	report := MetricsReport{
		BySeverity: make(map[deviation.Severity]int),
		ByType:     make(map[DetectionType]int),
	}

	days := make(map[string]*DailyTrendPoint)
	feeds := make(map[string]int)
	confidenceSum := 0.0

	for _, det := range d.ledger {
		if !tr.Start.IsZero() && det.Timestamp.Before(tr.Start) {
			continue
		}
		if !tr.End.IsZero() && det.Timestamp.After(tr.End) {
			continue
		}

		report.Total++
		report.BySeverity[det.Severity]++
		report.ByType[det.Type]++
		confidenceSum += det.Confidence

		switch det.Status {
		case StatusConfirmed:
			report.Confirmed++
		case StatusFalsePositive:
			report.FalsePositives++
		}

		day := det.Timestamp.UTC().Format("2006-01-02")
		point, ok := days[day]
		if !ok {
			point = &DailyTrendPoint{Date: day, MaxSeverity: det.Severity}
			days[day] = point
		}
		point.Count++
		if deviation.Rank(det.Severity) > deviation.Rank(point.MaxSeverity) {
			point.MaxSeverity = det.Severity
		}

		for _, feed := range det.AffectedFeeds {
			feeds[feed]++
		}
	}

	if report.Total > 0 {
		report.AverageConfidence = confidenceSum / float64(report.Total)
	}

	for _, point := range days {
		report.DailyTrend = append(report.DailyTrend, *point)
	}
	sort.Slice(report.DailyTrend, func(i, j int) bool {
		return report.DailyTrend[i].Date < report.DailyTrend[j].Date
	})

	for feed, count := range feeds {
		report.TopFeeds = append(report.TopFeeds, FeedCount{Feed: feed, Count: count})
	}
	sort.Slice(report.TopFeeds, func(i, j int) bool {
		if report.TopFeeds[i].Count != report.TopFeeds[j].Count {
			return report.TopFeeds[i].Count > report.TopFeeds[j].Count
		}
		return report.TopFeeds[i].Feed < report.TopFeeds[j].Feed
	})
	if len(report.TopFeeds) > topFeedLimit {
		report.TopFeeds = report.TopFeeds[:topFeedLimit]
	}

	return report
}
