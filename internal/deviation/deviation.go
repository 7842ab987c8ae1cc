// Package deviation maps deviation magnitudes to severity tiers and turns
// detector math into operator-facing scores and recommendation text.
package deviation

import (
	"fmt"
	"strings"

	"github.com/oraclewatch/oraclewatch/internal/trend"
)

// Severity is an ordered alert tier.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities for gate comparisons. Unknown values rank lowest.
func Rank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether s is a known severity tier.
func Valid(s Severity) bool {
	return Rank(s) > 0
}

// Thresholds are ascending fractional cutoffs for deviation classification.
type Thresholds struct {
	Low      float64 `yaml:"low" json:"low"`
	Medium   float64 `yaml:"medium" json:"medium"`
	High     float64 `yaml:"high" json:"high"`
	Critical float64 `yaml:"critical" json:"critical"`
}

// DefaultThresholds returns the standard 0.5%/1%/2%/5% ladder.
func DefaultThresholds() Thresholds {
	return Thresholds{Low: 0.005, Medium: 0.01, High: 0.02, Critical: 0.05}
}

// Classify buckets a fractional deviation. Tiers are checked in strict
// descending precedence, not as independent ranges.
func Classify(deviationPercent float64, t Thresholds) Severity {
	switch {
	case deviationPercent > t.Critical:
		return SeverityCritical
	case deviationPercent > t.High:
		return SeverityHigh
	case deviationPercent > t.Medium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// AnomalyScore combines the outlier ratio with the share of deviations above
// threshold into a single [0,1] score.
func AnomalyScore(deviations []float64, outlierIndices []int, threshold float64) float64 {
	if len(deviations) == 0 {
		return 0
	}

	n := float64(len(deviations))
	outlierRatio := float64(len(outlierIndices)) / n

	high := 0
	for _, d := range deviations {
		if d > threshold {
			high++
		}
	}
	highRatio := float64(high) / n

	score := (outlierRatio + highRatio) / 2
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// Recommendation produces operator guidance, one sentence per triggered
// rule. A quiet series yields a canned all-clear message.
func Recommendation(anomalyScore float64, tr trend.Analysis, severity Severity) string {
	var parts []string

	switch {
	case anomalyScore > 0.7:
		parts = append(parts, "High anomaly score detected; treat current prices from this feed as unreliable until sources reconverge.")
	case anomalyScore > 0.4:
		parts = append(parts, "Elevated anomaly score; cross-check this feed against independent price sources before acting on it.")
	}

	if tr.Direction == trend.DirectionIncreasing && tr.Strength > 0.5 {
		parts = append(parts, fmt.Sprintf("Strong upward trend (strength %.2f) may indicate coordinated price pushing.", tr.Strength))
	}

	switch severity {
	case SeverityCritical:
		parts = append(parts, "Critical deviation from reference price; pause dependent contracts and investigate immediately.")
	case SeverityHigh:
		parts = append(parts, "Large deviation from reference price; increase monitoring frequency for this feed.")
	}

	if len(parts) == 0 {
		return "Price behavior is within normal ranges; no action required."
	}
	return strings.Join(parts, " ")
}
