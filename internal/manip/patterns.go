package manip

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/oraclewatch/oraclewatch/internal/deviation"
	"github.com/oraclewatch/oraclewatch/internal/outliers"
	"github.com/oraclewatch/oraclewatch/internal/trend"
)

// sandwichMaxGap is the largest spacing between the legs of a sandwich;
// front/back-running happens within the same or adjacent blocks.
const sandwichMaxGap = 2 * time.Second

// liquidityWindow is how many trailing points form the liquidity baseline.
const liquidityWindow = 5

// minStatisticalPoints is the history floor below which the statistical
// detector abstains.
const minStatisticalPoints = 10

// patternResult is one detector's verdict. A nil result means the detector
// abstained (insufficient data or nothing suspicious), never an error.
type patternResult struct {
	Type       DetectionType
	Confidence float64 // 0..100
	Evidence   []Evidence
}

// runDetectors evaluates the independent pattern detectors in ranked order.
// The order matters: merge breaks confidence ties in favor of earlier
// detectors.
func (d *Detector) runDetectors(snap FeedSnapshot, history []PricePoint) []*patternResult {
	var results []*patternResult
	for _, r := range []*patternResult{
		d.detectStatisticalAnomaly(snap, history),
		d.detectFlashLoan(snap.RecentTransactions),
		d.detectSandwich(snap.RecentTransactions),
		d.detectLiquidityDrop(history),
	} {
		if r != nil {
			results = append(results, r)
		}
	}
	return results
}

// detectStatisticalAnomaly compares the current price against the feed's
// history mean. It abstains below minStatisticalPoints or on a flat series.
func (d *Detector) detectStatisticalAnomaly(snap FeedSnapshot, history []PricePoint) *patternResult {
	if len(history) < minStatisticalPoints {
		return nil
	}

	prices := make([]float64, len(history))
	for i, p := range history {
		prices[i] = p.Price
	}

	mean := 0.0
	for _, p := range prices {
		mean += p
	}
	mean /= float64(len(prices))

	variance := 0.0
	for _, p := range prices {
		variance += (p - mean) * (p - mean)
	}
	std := math.Sqrt(variance / float64(len(prices)))
	if std == 0 || mean == 0 {
		return nil
	}

	zScore := math.Abs(snap.CurrentPrice-mean) / std
	deviationPct := math.Abs(snap.CurrentPrice-mean) / mean * 100
	if deviationPct <= d.cfg.StatisticalThresholds.PriceDeviation {
		return nil
	}

	// Context for triage: which history points were themselves outliers,
	// and what the robust trend looked like going into the spike.
	deviations := make([]float64, len(prices))
	for i, p := range prices {
		deviations[i] = math.Abs(p-mean) / mean
	}
	outlierIdx := outliers.Detect(deviations, d.cfg.Outliers)
	anomalyScore := deviation.AnomalyScore(deviations, outlierIdx, d.cfg.Outliers.Threshold)
	tr := trend.RobustAnalysis(prices, trend.DefaultDirectionThreshold)
	tier := deviation.Classify(deviationPct/100, deviation.DefaultThresholds())

	ev := Evidence{
		Type: "statistical",
		Description: fmt.Sprintf("price %.6f deviates %.2f%% from history mean %.6f (z=%.2f)",
			snap.CurrentPrice, deviationPct, mean, zScore),
		Data: map[string]interface{}{
			"mean":              mean,
			"std_dev":           std,
			"z_score":           zScore,
			"deviation_percent": deviationPct,
			"history_outliers":  len(outlierIdx),
			"anomaly_score":     anomalyScore,
			"trend_direction":   string(tr.Direction),
			"trend_strength":    tr.Strength,
			"trend_volatility":  tr.Volatility,
			"deviation_tier":    string(tier),
			"recommendation":    deviation.Recommendation(anomalyScore, tr, tier),
		},
		Timestamp: d.now(),
	}

	return &patternResult{
		Type:       TypePriceManipulation,
		Confidence: math.Min(zScore*10, 100),
		Evidence:   []Evidence{ev},
	}
}

// detectFlashLoan scans transaction call data for known flash-loan entry
// point selectors.
func (d *Detector) detectFlashLoan(txs []TransactionRecord) *patternResult {
	var evidence []Evidence
	for _, tx := range txs {
		for _, sig := range d.signatures {
			if !sig.Matches(tx.Input) {
				continue
			}
			evidence = append(evidence, Evidence{
				Type:        "flash_loan_signature",
				Description: fmt.Sprintf("transaction %s calls %s", tx.Hash, sig.Name),
				Data: map[string]interface{}{
					"hash":      tx.Hash,
					"signature": sig.Name,
					"selector":  sig.Selector,
					"value":     tx.Value,
				},
				Timestamp: tx.Timestamp,
			})
			break
		}
	}
	if len(evidence) == 0 {
		return nil
	}

	return &patternResult{
		Type:       TypeFlashLoanAttack,
		Confidence: math.Min(float64(len(evidence))*30+20, 100),
		Evidence:   evidence,
	}
}

// detectSandwich looks for the front-run/victim/back-run shape: a large
// transaction tightly before and after a smaller one.
func (d *Detector) detectSandwich(txs []TransactionRecord) *patternResult {
	if len(txs) < 3 {
		return nil
	}

	sorted := make([]TransactionRecord, len(txs))
	copy(sorted, txs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var evidence []Evidence
	for i := 1; i < len(sorted)-1; i++ {
		prev, target, next := sorted[i-1], sorted[i], sorted[i+1]

		if target.Timestamp.Sub(prev.Timestamp) >= sandwichMaxGap {
			continue
		}
		if next.Timestamp.Sub(target.Timestamp) >= sandwichMaxGap {
			continue
		}
		if prev.Value <= target.Value || next.Value <= target.Value {
			continue
		}
		if prev.Value <= d.cfg.PatternRecognition.MaxNormalTxValue {
			continue
		}

		evidence = append(evidence, Evidence{
			Type: "sandwich_pattern",
			Description: fmt.Sprintf("transaction %s sandwiched between %s and %s within %s",
				target.Hash, prev.Hash, next.Hash, next.Timestamp.Sub(prev.Timestamp)),
			Data: map[string]interface{}{
				"front_hash":   prev.Hash,
				"victim_hash":  target.Hash,
				"back_hash":    next.Hash,
				"front_value":  prev.Value,
				"victim_value": target.Value,
				"back_value":   next.Value,
			},
			Timestamp: target.Timestamp,
		})
	}
	if len(evidence) == 0 {
		return nil
	}

	return &patternResult{
		Type:       TypeSandwichAttack,
		Confidence: math.Min(70+10*float64(len(evidence)), 100),
		Evidence:   evidence,
	}
}

// detectLiquidityDrop compares the latest recorded liquidity against the
// average of the preceding window.
func (d *Detector) detectLiquidityDrop(history []PricePoint) *patternResult {
	if len(history) < liquidityWindow+1 {
		return nil
	}

	latest := history[len(history)-1]
	window := history[len(history)-1-liquidityWindow : len(history)-1]

	avg := 0.0
	for _, p := range window {
		avg += p.Liquidity
	}
	avg /= float64(len(window))
	if avg <= 0 {
		return nil
	}

	dropPct := (avg - latest.Liquidity) / avg * 100
	if dropPct <= d.cfg.StatisticalThresholds.LiquidityDrop {
		return nil
	}

	ev := Evidence{
		Type: "liquidity_drop",
		Description: fmt.Sprintf("liquidity fell %.2f%% from trailing average %.2f to %.2f",
			dropPct, avg, latest.Liquidity),
		Data: map[string]interface{}{
			"average_liquidity": avg,
			"current_liquidity": latest.Liquidity,
			"drop_percent":      dropPct,
		},
		Timestamp: latest.Timestamp,
	}

	return &patternResult{
		Type:       TypeLiquidityDrain,
		Confidence: math.Min(dropPct, 100),
		Evidence:   []Evidence{ev},
	}
}
