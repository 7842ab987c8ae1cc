// Package trend estimates direction, strength, and volatility of noisy
// price series using outlier-robust statistics: rolling-median smoothing,
// the Theil-Sen estimator, log-scale growth regression, and MAD-based
// dispersion.
package trend

import (
	"math"
	"sort"
)

// Direction classifies the movement of a series.
type Direction string

const (
	DirectionIncreasing Direction = "increasing"
	DirectionDecreasing Direction = "decreasing"
	DirectionStable     Direction = "stable"
)

const (
	// DefaultSmoothingWindow is the rolling-median window applied before
	// slope estimation.
	DefaultSmoothingWindow = 3

	// DefaultDirectionThreshold is the relative per-step change below which
	// a series counts as stable.
	DefaultDirectionThreshold = 0.05

	// madConsistency rescales MAD to approximate the standard deviation
	// under a normal distribution.
	madConsistency = 1.4826

	// logFloor substitutes for non-positive values before taking logs.
	logFloor = 1e-10

	// expClamp bounds regression slopes before exponentiation so that
	// growth-rate conversion cannot overflow.
	expClamp = 700.0
)

// Analysis is the composite result of RobustAnalysis.
type Analysis struct {
	Direction  Direction `json:"direction"`
	Strength   float64   `json:"strength"` // 0..1
	Slope      float64   `json:"slope"`
	Volatility float64   `json:"volatility"`
	Intercept  float64   `json:"intercept"`
}

// Line is a fitted slope/intercept pair.
type Line struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// RollingMedianSmooth replaces each value with the median of a centered
// window. Even window sizes are widened to the next odd size; windows at the
// array edges are truncated, not wrapped.
func RollingMedianSmooth(values []float64, windowSize int) []float64 {
	if len(values) == 0 {
		return nil
	}
	if windowSize < 1 {
		windowSize = 1
	}
	if windowSize%2 == 0 {
		windowSize++
	}
	half := windowSize / 2

	out := make([]float64, len(values))
	for i := range values {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half + 1
		if hi > len(values) {
			hi = len(values)
		}
		out[i] = median(values[lo:hi])
	}
	return out
}

// TheilSen fits a line as the median of all pairwise slopes, with the
// intercept taken as the median of per-point residual intercepts. A single
// extreme outlier barely moves the fit, unlike ordinary least squares.
// Fewer than 2 points, or no pair with distinct x, yields a zero line.
func TheilSen(x, y []float64) Line {
	if len(x) < 2 || len(x) != len(y) {
		return Line{}
	}

	var slopes []float64
	for i := 0; i < len(x); i++ {
		for j := i + 1; j < len(x); j++ {
			if x[j] == x[i] {
				continue
			}
			slopes = append(slopes, (y[j]-y[i])/(x[j]-x[i]))
		}
	}
	if len(slopes) == 0 {
		return Line{}
	}

	slope := median(slopes)
	intercepts := make([]float64, len(x))
	for i := range x {
		intercepts[i] = y[i] - slope*x[i]
	}
	return Line{Slope: slope, Intercept: median(intercepts)}
}

// LogRegression fits ordinary least squares on (x, ln y) and converts the
// slope to a per-step growth rate. Non-positive y values are floored at
// logFloor before the transform; the slope is clamped to ±expClamp before
// exponentiation.
func LogRegression(x, y []float64) (growthRate float64, fit Line) {
	logs := make([]float64, len(y))
	for i, v := range y {
		if v <= 0 {
			v = logFloor
		}
		logs[i] = math.Log(v)
	}
	fit = linearRegression(x, logs)
	clamped := math.Max(-expClamp, math.Min(expClamp, fit.Slope))
	return math.Exp(clamped) - 1, fit
}

// linearRegression is the OLS helper. A zero or non-finite denominator
// degrades to a flat line at the mean of y.
func linearRegression(x, y []float64) Line {
	n := float64(len(x))
	if len(x) == 0 || len(x) != len(y) {
		return Line{}
	}

	var sumX, sumY, sumXY, sumXX float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumXX += x[i] * x[i]
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 || math.IsNaN(denom) || math.IsInf(denom, 0) {
		return Line{Intercept: sumY / n}
	}

	slope := (n*sumXY - sumX*sumY) / denom
	return Line{Slope: slope, Intercept: (sumY - slope*sumX) / n}
}

// RobustDirection classifies the series after median smoothing: the
// Theil-Sen slope is normalized by the smoothed median and compared against
// ±threshold.
func RobustDirection(values []float64, threshold float64) Direction {
	if len(values) < 2 {
		return DirectionStable
	}

	smoothed := RollingMedianSmooth(values, DefaultSmoothingWindow)
	fit := TheilSen(indexSeries(len(smoothed)), smoothed)

	med := median(smoothed)
	if med == 0 {
		return DirectionStable
	}

	relativeChange := fit.Slope / med
	switch {
	case relativeChange > threshold:
		return DirectionIncreasing
	case relativeChange < -threshold:
		return DirectionDecreasing
	default:
		return DirectionStable
	}
}

// RobustStrength maps the smoothed series' log-scale growth rate onto [0,1],
// saturating at a 10% per-step rate. Non-positive smoothed values are
// discarded; fewer than 2 survivors yields 0.
func RobustStrength(values []float64) float64 {
	smoothed := RollingMedianSmooth(values, DefaultSmoothingWindow)

	var xs, ys []float64
	for i, v := range smoothed {
		if v > 0 {
			xs = append(xs, float64(i))
			ys = append(ys, v)
		}
	}
	if len(ys) < 2 {
		return 0
	}

	growthRate, _ := LogRegression(xs, ys)
	return math.Min(math.Abs(growthRate)/0.1, 1)
}

// RobustVolatility is the scaled median absolute deviation of the raw
// (unsmoothed) series.
func RobustVolatility(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	med := median(values)
	absDev := make([]float64, len(values))
	for i, v := range values {
		absDev[i] = math.Abs(v - med)
	}
	return madConsistency * median(absDev)
}

// RobustAnalysis composes direction, strength, volatility, and the
// Theil-Sen fit into one result. Fewer than 2 points is reported as a
// stable, zero-slope series anchored at the only observation.
func RobustAnalysis(values []float64, threshold float64) Analysis {
	if len(values) < 2 {
		intercept := 0.0
		if len(values) == 1 {
			intercept = values[0]
		}
		return Analysis{Direction: DirectionStable, Intercept: intercept}
	}

	smoothed := RollingMedianSmooth(values, DefaultSmoothingWindow)
	fit := TheilSen(indexSeries(len(smoothed)), smoothed)

	return Analysis{
		Direction:  RobustDirection(values, threshold),
		Strength:   RobustStrength(values),
		Volatility: RobustVolatility(values),
		Slope:      fit.Slope,
		Intercept:  fit.Intercept,
	}
}

func indexSeries(n int) []float64 {
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	return xs
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
