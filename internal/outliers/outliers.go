// Package outliers flags statistical outliers in price deviation series.
//
// All functions are pure and allocation-light; they are safe for concurrent
// use without synchronization.
package outliers

import (
	"math"
	"sort"
)

// Method selects the outlier detection algorithm.
type Method string

const (
	MethodThreshold Method = "threshold"
	MethodIQR       Method = "iqr"
	MethodZScore    Method = "zscore"
	MethodBoth      Method = "both" // threshold ∪ IQR
)

// Config controls outlier detection behavior.
type Config struct {
	Method          Method  `yaml:"method" json:"method"`
	Threshold       float64 `yaml:"threshold" json:"threshold"`
	IQRMultiplier   float64 `yaml:"iqr_multiplier" json:"iqr_multiplier"`
	ZScoreThreshold float64 `yaml:"zscore_threshold" json:"zscore_threshold"`
	MinDataPoints   int     `yaml:"min_data_points" json:"min_data_points"`
}

// DefaultConfig returns production defaults for deviation-series screening.
func DefaultConfig() Config {
	return Config{
		Method:          MethodBoth,
		Threshold:       0.05,
		IQRMultiplier:   1.5,
		ZScoreThreshold: 3.0,
		MinDataPoints:   4,
	}
}

// DetectByThreshold returns the indices of deviations strictly above threshold.
func DetectByThreshold(deviations []float64, threshold float64) []int {
	var out []int
	for i, d := range deviations {
		if d > threshold {
			out = append(out, i)
		}
	}
	return out
}

// DetectByIQR returns indices outside the Tukey fences
// [Q1 - multiplier*IQR, Q3 + multiplier*IQR]. Quartiles use floor indexing
// on the sorted series. Fewer than 4 points yields no outliers.
func DetectByIQR(deviations []float64, multiplier float64) []int {
	if len(deviations) < 4 {
		return nil
	}

	sorted := make([]float64, len(deviations))
	copy(sorted, deviations)
	sort.Float64s(sorted)

	q1 := sorted[int(math.Floor(float64(len(sorted))*0.25))]
	q3 := sorted[int(math.Floor(float64(len(sorted))*0.75))]
	iqr := q3 - q1

	lower := q1 - multiplier*iqr
	upper := q3 + multiplier*iqr

	var out []int
	for i, d := range deviations {
		if d < lower || d > upper {
			out = append(out, i)
		}
	}
	return out
}

// DetectByZScore returns indices whose population Z-score exceeds zThreshold.
// Fewer than 4 points, or a zero standard deviation, yields no outliers.
func DetectByZScore(deviations []float64, zThreshold float64) []int {
	if len(deviations) < 4 {
		return nil
	}

	mean := 0.0
	for _, d := range deviations {
		mean += d
	}
	mean /= float64(len(deviations))

	variance := 0.0
	for _, d := range deviations {
		variance += (d - mean) * (d - mean)
	}
	std := math.Sqrt(variance / float64(len(deviations)))
	if std == 0 {
		return nil
	}

	var out []int
	for i, d := range deviations {
		if math.Abs(d-mean)/std > zThreshold {
			out = append(out, i)
		}
	}
	return out
}

// Detect dispatches per cfg.Method and returns deduplicated, ascending
// indices. Below cfg.MinDataPoints the robust methods are unreliable, so
// detection degrades to threshold-only (empty for pure iqr/zscore modes).
//
// MethodBoth unions threshold and IQR results only; Z-score stays a
// standalone mode.
func Detect(deviations []float64, cfg Config) []int {
	if len(deviations) < cfg.MinDataPoints {
		switch cfg.Method {
		case MethodThreshold, MethodBoth:
			return DetectByThreshold(deviations, cfg.Threshold)
		default:
			return nil
		}
	}

	switch cfg.Method {
	case MethodThreshold:
		return DetectByThreshold(deviations, cfg.Threshold)
	case MethodIQR:
		return DetectByIQR(deviations, cfg.IQRMultiplier)
	case MethodZScore:
		return DetectByZScore(deviations, cfg.ZScoreThreshold)
	case MethodBoth:
		return mergeIndices(
			DetectByThreshold(deviations, cfg.Threshold),
			DetectByIQR(deviations, cfg.IQRMultiplier),
		)
	default:
		return DetectByThreshold(deviations, cfg.Threshold)
	}
}

func mergeIndices(sets ...[]int) []int {
	seen := make(map[int]struct{})
	var out []int
	for _, set := range sets {
		for _, idx := range set {
			if _, ok := seen[idx]; !ok {
				seen[idx] = struct{}{}
				out = append(out, idx)
			}
		}
	}
	sort.Ints(out)
	return out
}
