// Package consensus derives a single reference price from multiple oracle
// sources and identifies the source that strays furthest from it.
package consensus

import (
	"math"
	"sort"
)

// Method selects how source prices are combined.
type Method string

const (
	MethodMedian   Method = "median"
	MethodMean     Method = "mean"
	MethodWeighted Method = "weighted"
)

// Price combines source prices into one reference value.
//
// An empty input yields 0 and a single price is returned as-is. Weighted
// aggregation requires one weight per price and a positive weight sum;
// otherwise it degrades to the arithmetic mean.
func Price(prices []float64, method Method, weights []float64) float64 {
	switch len(prices) {
	case 0:
		return 0
	case 1:
		return prices[0]
	}

	switch method {
	case MethodMedian:
		return median(prices)
	case MethodWeighted:
		if len(weights) != len(prices) {
			return mean(prices)
		}
		weightSum := 0.0
		for _, w := range weights {
			weightSum += w
		}
		if weightSum <= 0 {
			return mean(prices)
		}
		weighted := 0.0
		for i, p := range prices {
			weighted += p * weights[i]
		}
		return weighted / weightSum
	default:
		return mean(prices)
	}
}

// SourceDeviation reports how far one source strays from consensus.
type SourceDeviation struct {
	Protocol         string  `json:"protocol"`
	Deviation        float64 `json:"deviation"`
	DeviationPercent float64 `json:"deviation_percent"`
}

// MaxDeviation returns the source with the greatest relative distance from
// consensusPrice, or nil when there are no sources or consensus is zero.
func MaxDeviation(protocolPrices map[string]float64, consensusPrice float64) *SourceDeviation {
	if len(protocolPrices) == 0 || consensusPrice == 0 {
		return nil
	}

	var worst *SourceDeviation
	worstRel := math.Inf(-1)
	for protocol, price := range protocolPrices {
		dev := math.Abs(price - consensusPrice)
		rel := dev / math.Abs(consensusPrice)
		// Lexical tie-break keeps the result stable across map iteration order.
		if worst == nil || rel > worstRel || (rel == worstRel && protocol < worst.Protocol) {
			worstRel = rel
			worst = &SourceDeviation{
				Protocol:         protocol,
				Deviation:        dev,
				DeviationPercent: rel * 100,
			}
		}
	}
	return worst
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
