package manip

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oraclewatch/oraclewatch/internal/deviation"
)

func sandwichTriple(spacing time.Duration) []TransactionRecord {
	return []TransactionRecord{
		{Hash: "0xfront", Timestamp: testBase, Value: 50000},
		{Hash: "0xvictim", Timestamp: testBase.Add(spacing), Value: 1000},
		{Hash: "0xback", Timestamp: testBase.Add(spacing + spacing*4/5), Value: 60000},
	}
}

func TestDetectSandwich_TightTriple(t *testing.T) {
	d := newTestDetector(t, nil)

	// t, t+500ms, t+900ms: both gaps under 2s with the large/small/large
	// value shape.
	got := d.detectSandwich(sandwichTriple(500 * time.Millisecond))
	require.NotNil(t, got)
	assert.Equal(t, TypeSandwichAttack, got.Type)
	assert.Equal(t, 80.0, got.Confidence, "70 base + 10 per pattern")
	require.Len(t, got.Evidence, 1)
	assert.Equal(t, "0xvictim", got.Evidence[0].Data["victim_hash"])
}

func TestDetectSandwich_SlowTripleDoesNotFire(t *testing.T) {
	d := newTestDetector(t, nil)

	assert.Nil(t, d.detectSandwich(sandwichTriple(10*time.Second)),
		"identical shape spaced 10s apart is normal flow")
}

func TestDetectSandwich_ValueShapeRequired(t *testing.T) {
	d := newTestDetector(t, nil)

	txs := sandwichTriple(500 * time.Millisecond)
	txs[1].Value = 70000 // middle transaction is the largest
	assert.Nil(t, d.detectSandwich(txs))

	txs = sandwichTriple(500 * time.Millisecond)
	txs[0].Value = 5000 // front-runner below the normal-value ceiling
	assert.Nil(t, d.detectSandwich(txs))
}

func TestDetectSandwich_SortsByTimestamp(t *testing.T) {
	d := newTestDetector(t, nil)

	txs := sandwichTriple(500 * time.Millisecond)
	txs[0], txs[2] = txs[2], txs[0] // arrival order != time order

	got := d.detectSandwich(txs)
	require.NotNil(t, got)
	assert.Equal(t, "0xvictim", got.Evidence[0].Data["victim_hash"])
}

func TestDetectFlashLoan(t *testing.T) {
	d := newTestDetector(t, nil)

	txs := []TransactionRecord{
		{Hash: "0xaaa", Input: "0xAB9C4B5D00000000deadbeef", Value: 500000},
		{Hash: "0xbbb", Input: "0x12345678", Value: 100},
	}

	got := d.detectFlashLoan(txs)
	require.NotNil(t, got)
	assert.Equal(t, TypeFlashLoanAttack, got.Type)
	assert.Equal(t, 50.0, got.Confidence, "one match: 1*30+20")
	require.Len(t, got.Evidence, 1)
	assert.Equal(t, "aave_v2_flashLoan", got.Evidence[0].Data["signature"], "matching is case-insensitive")
}

func TestDetectFlashLoan_ConfidenceScalesWithMatches(t *testing.T) {
	d := newTestDetector(t, nil)

	var txs []TransactionRecord
	for i := 0; i < 4; i++ {
		txs = append(txs, TransactionRecord{
			Hash:  fmt.Sprintf("0x%d", i),
			Input: "0x42b0b77c00",
		})
	}

	got := d.detectFlashLoan(txs)
	require.NotNil(t, got)
	assert.Equal(t, 100.0, got.Confidence, "4*30+20 clamps to 100")
}

func TestDetectFlashLoan_NoMatch(t *testing.T) {
	d := newTestDetector(t, nil)

	assert.Nil(t, d.detectFlashLoan(nil))
	assert.Nil(t, d.detectFlashLoan([]TransactionRecord{{Input: "0xdeadbeef"}}))
	assert.Nil(t, d.detectFlashLoan([]TransactionRecord{{Input: ""}}))
}

func TestDetectFlashLoan_PluggableSignatures(t *testing.T) {
	custom := []SignatureMatcher{{Name: "custom_drain", Selector: "0xfeedface"}}
	d := newTestDetector(t, nil, WithSignatures(custom))

	got := d.detectFlashLoan([]TransactionRecord{{Hash: "0xccc", Input: "0xfeedface99"}})
	require.NotNil(t, got)
	assert.Equal(t, "custom_drain", got.Evidence[0].Data["signature"])

	assert.Nil(t, d.detectFlashLoan([]TransactionRecord{{Input: "0xab9c4b5d"}}),
		"default signatures are fully replaced")
}

func liquidityHistory(levels []float64) []PricePoint {
	points := make([]PricePoint, len(levels))
	for i, l := range levels {
		points[i] = PricePoint{
			Timestamp: testBase.Add(time.Duration(i) * time.Minute),
			Price:     100,
			Liquidity: l,
			Source:    "uniswap",
		}
	}
	return points
}

func TestDetectLiquidityDrop(t *testing.T) {
	d := newTestDetector(t, nil)

	got := d.detectLiquidityDrop(liquidityHistory([]float64{1000, 1000, 1000, 1000, 1000, 400}))
	require.NotNil(t, got)
	assert.Equal(t, TypeLiquidityDrain, got.Type)
	assert.InDelta(t, 60.0, got.Confidence, 1e-9, "60% drop maps straight to confidence")
}

func TestDetectLiquidityDrop_Abstains(t *testing.T) {
	d := newTestDetector(t, nil)

	assert.Nil(t, d.detectLiquidityDrop(liquidityHistory([]float64{1000, 1000, 400})),
		"needs a full trailing window")
	assert.Nil(t, d.detectLiquidityDrop(liquidityHistory([]float64{1000, 1000, 1000, 1000, 1000, 900})),
		"10% drop is under the 30% threshold")
	assert.Nil(t, d.detectLiquidityDrop(liquidityHistory([]float64{0, 0, 0, 0, 0, 0})),
		"no recorded liquidity")
}

func TestMerge_HighestConfidenceWins(t *testing.T) {
	d := newTestDetector(t, nil)

	// Flash loan (1 match → 50) and sandwich (1 pattern → 80) both fire:
	// sandwich becomes the primary type, evidence is concatenated.
	txs := sandwichTriple(500 * time.Millisecond)
	txs[0].Input = "0xab9c4b5d00"

	snap := FeedSnapshot{
		Protocol:           "chainlink",
		Symbol:             "ETH/USD",
		Chain:              "ethereum",
		CurrentPrice:       100,
		RecentTransactions: txs,
	}

	det, err := d.AnalyzePriceFeed(context.Background(), snap)
	require.NoError(t, err)
	require.NotNil(t, det)

	assert.Equal(t, TypeSandwichAttack, det.Type)
	assert.Equal(t, 80.0, det.Confidence)
	assert.Equal(t, deviation.SeverityHigh, det.Severity)
	assert.Len(t, det.Details.Evidence, 2, "evidence from both detectors")

	// Both large legs exceed the normal-value ceiling.
	require.Len(t, det.SuspiciousTransactions, 2)
	assert.Equal(t, 5.0, det.SuspiciousTransactions[0].RelevanceScore)
	assert.Equal(t, 6.0, det.SuspiciousTransactions[1].RelevanceScore)
}

func TestSeverityFromConfidence(t *testing.T) {
	tests := []struct {
		confidence float64
		want       deviation.Severity
	}{
		{92, deviation.SeverityCritical},
		{90, deviation.SeverityCritical},
		{80, deviation.SeverityHigh},
		{75, deviation.SeverityHigh},
		{60, deviation.SeverityMedium},
		{50, deviation.SeverityMedium},
		{10, deviation.SeverityLow},
		{0, deviation.SeverityLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, severityFromConfidence(tt.confidence), "confidence %v", tt.confidence)
	}
}
