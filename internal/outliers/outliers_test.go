package outliers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectByThreshold(t *testing.T) {
	deviations := []float64{0.01, 0.08, 0.03, 0.12}

	got := DetectByThreshold(deviations, 0.05)
	assert.Equal(t, []int{1, 3}, got)

	assert.Empty(t, DetectByThreshold(deviations, 0.5), "nothing above a high threshold")
	assert.Empty(t, DetectByThreshold(nil, 0.05))
}

func TestDetectByIQR_InsufficientData(t *testing.T) {
	for _, series := range [][]float64{nil, {1}, {1, 2}, {1, 2, 3}} {
		assert.Empty(t, DetectByIQR(series, 1.5), "fewer than 4 points must yield no outliers")
	}
}

func TestDetectByIQR_FlagsExtremes(t *testing.T) {
	deviations := []float64{1, 2, 2, 3, 2, 3, 2, 100}

	got := DetectByIQR(deviations, 1.5)
	assert.Equal(t, []int{7}, got)
}

func TestDetectByIQR_UniformSeries(t *testing.T) {
	assert.Empty(t, DetectByIQR([]float64{5, 5, 5, 5, 5}, 1.5))
}

func TestDetectByZScore_InsufficientData(t *testing.T) {
	for _, series := range [][]float64{nil, {1}, {1, 2}, {1, 2, 3}} {
		assert.Empty(t, DetectByZScore(series, 3))
	}
}

func TestDetectByZScore_ZeroStdDev(t *testing.T) {
	constant := []float64{2, 2, 2, 2, 2, 2}
	for _, threshold := range []float64{0.1, 1, 3, 10} {
		assert.Empty(t, DetectByZScore(constant, threshold), "constant series has no outliers at any threshold")
	}
}

func TestDetectByZScore_FlagsExtremes(t *testing.T) {
	series := make([]float64, 20)
	for i := range series {
		series[i] = 1.0
	}
	series[0] = 1.1
	series[19] = 50

	got := DetectByZScore(series, 3)
	assert.Equal(t, []int{19}, got)
}

func TestDetect_MinDataPointsFallback(t *testing.T) {
	short := []float64{0.01, 0.2}

	cfg := Config{Method: MethodIQR, Threshold: 0.05, IQRMultiplier: 1.5, MinDataPoints: 4}
	assert.Empty(t, Detect(short, cfg), "iqr mode below min points abstains")

	cfg.Method = MethodZScore
	assert.Empty(t, Detect(short, cfg), "zscore mode below min points abstains")

	cfg.Method = MethodBoth
	assert.Equal(t, []int{1}, Detect(short, cfg), "both mode degrades to threshold-only")

	cfg.Method = MethodThreshold
	assert.Equal(t, []int{1}, Detect(short, cfg))
}

func TestDetect_BothUnionsThresholdAndIQROnly(t *testing.T) {
	// Index 5 is an IQR outlier and above threshold; index 0 only trips the
	// threshold. The union must carry both, deduplicated and sorted.
	deviations := []float64{0.06, 0.01, 0.012, 0.011, 0.013, 0.9}

	cfg := Config{Method: MethodBoth, Threshold: 0.05, IQRMultiplier: 1.5, ZScoreThreshold: 3, MinDataPoints: 4}
	got := Detect(deviations, cfg)
	assert.Equal(t, []int{0, 5}, got)
}

func TestDetect_Dispatch(t *testing.T) {
	deviations := []float64{0.01, 0.01, 0.012, 0.011, 0.013, 0.9}
	cfg := DefaultConfig()

	cfg.Method = MethodIQR
	assert.Equal(t, []int{5}, Detect(deviations, cfg))

	cfg.Method = MethodZScore
	cfg.ZScoreThreshold = 2
	assert.Equal(t, []int{5}, Detect(deviations, cfg))
}
