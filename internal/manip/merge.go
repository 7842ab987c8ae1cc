package manip

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/oraclewatch/oraclewatch/internal/deviation"
)

// severityFromConfidence buckets a 0..100 confidence into an alert tier.
func severityFromConfidence(confidence float64) deviation.Severity {
	switch {
	case confidence >= 90:
		return deviation.SeverityCritical
	case confidence >= 75:
		return deviation.SeverityHigh
	case confidence >= 50:
		return deviation.SeverityMedium
	default:
		return deviation.SeverityLow
	}
}

// merge folds all firing detector results into one detection. The primary
// type and confidence come from the highest-confidence detector, ties going
// to the earlier one in evaluation order; evidence is concatenated across
// all of them.
func (d *Detector) merge(snap FeedSnapshot, history []PricePoint, results []*patternResult) *Detection {
	primary := results[0]
	for _, r := range results[1:] {
		if r.Confidence > primary.Confidence {
			primary = r
		}
	}

	confidence := math.Max(0, math.Min(primary.Confidence, 100))
	severity := severityFromConfidence(confidence)

	var evidence []Evidence
	for _, r := range results {
		evidence = append(evidence, r.Evidence...)
	}

	normalPrice := historyMean(history)
	deviationPct := 0.0
	if normalPrice != 0 {
		deviationPct = math.Abs(snap.CurrentPrice-normalPrice) / normalPrice * 100
	}

	now := d.now()
	return &Detection{
		ID:            uuid.NewString(),
		Type:          primary.Type,
		Severity:      severity,
		Status:        StatusActive,
		Confidence:    confidence,
		Timestamp:     now,
		AffectedFeeds: []string{snap.FeedKey()},
		Details: Details{
			Description:      describe(primary.Type, snap, deviationPct),
			Evidence:         evidence,
			PriceDeviation:   deviationPct,
			NormalPrice:      normalPrice,
			ManipulatedPrice: snap.CurrentPrice,
			Duration:         evidenceSpan(evidence),
		},
		SuspiciousTransactions: d.suspiciousTransactions(snap.RecentTransactions),
		Impact:                 impact(severity, snap.FeedKey()),
		RecommendedActions:     recommendedActions(primary.Type, severity),
		CreatedAt:              now,
		UpdatedAt:              now,
	}
}

func describe(t DetectionType, snap FeedSnapshot, deviationPct float64) string {
	feed := snap.FeedKey()
	switch t {
	case TypeFlashLoanAttack:
		return fmt.Sprintf("Flash loan activity detected around feed %s; borrowed liquidity may be distorting the reported price.", feed)
	case TypeSandwichAttack:
		return fmt.Sprintf("Sandwich attack pattern detected in transactions affecting feed %s.", feed)
	case TypeLiquidityDrain:
		return fmt.Sprintf("Sharp liquidity drain detected on feed %s; thin books make the price easy to move.", feed)
	default:
		return fmt.Sprintf("Price on feed %s deviates %.2f%% from its recent history.", feed, deviationPct)
	}
}

func impact(severity deviation.Severity, feedKey string) string {
	switch severity {
	case deviation.SeverityCritical:
		return fmt.Sprintf("Contracts consuming %s are at immediate risk of acting on a manipulated price.", feedKey)
	case deviation.SeverityHigh:
		return fmt.Sprintf("Downstream consumers of %s may already be mispriced.", feedKey)
	case deviation.SeverityMedium:
		return fmt.Sprintf("Feed %s shows suspicious behavior worth closer review.", feedKey)
	default:
		return fmt.Sprintf("Feed %s shows a minor irregularity.", feedKey)
	}
}

func recommendedActions(t DetectionType, severity deviation.Severity) []string {
	var actions []string

	if severity == deviation.SeverityCritical || severity == deviation.SeverityHigh {
		actions = append(actions, "Pause the affected price feed until sources reconverge.")
	}

	switch t {
	case TypeFlashLoanAttack:
		actions = append(actions,
			"Check lending protocols for liquidations triggered during the attack window.",
			"Correlate the flagged transactions with pool reserve changes.")
	case TypeSandwichAttack:
		actions = append(actions,
			"Review mempool ordering around the victim transaction.",
			"Consider tighter slippage bounds for the affected pair.")
	case TypeLiquidityDrain:
		actions = append(actions,
			"Verify remaining pool depth before trusting subsequent prices.",
			"Alert liquidity providers of the withdrawal.")
	default:
		actions = append(actions, "Compare the feed against independent price sources.")
	}

	if severity == deviation.SeverityLow || severity == deviation.SeverityMedium {
		actions = append(actions, "Continue monitoring; no immediate intervention required.")
	}
	return actions
}

// suspiciousTransactions flags every transaction above the normal-value
// ceiling, scored by how far it exceeds it.
func (d *Detector) suspiciousTransactions(txs []TransactionRecord) []SuspiciousTransaction {
	var out []SuspiciousTransaction
	for _, tx := range txs {
		if tx.Value <= d.cfg.PatternRecognition.MaxNormalTxValue {
			continue
		}
		out = append(out, SuspiciousTransaction{
			TransactionRecord: tx,
			RelevanceScore:    math.Min(tx.Value/10000, 100),
		})
	}
	return out
}

func historyMean(history []PricePoint) float64 {
	if len(history) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range history {
		sum += p.Price
	}
	return sum / float64(len(history))
}

// evidenceSpan estimates the attack window from the evidence timestamps.
func evidenceSpan(evidence []Evidence) time.Duration {
	if len(evidence) < 2 {
		return 0
	}
	earliest, latest := evidence[0].Timestamp, evidence[0].Timestamp
	for _, ev := range evidence[1:] {
		if ev.Timestamp.Before(earliest) {
			earliest = ev.Timestamp
		}
		if ev.Timestamp.After(latest) {
			latest = ev.Timestamp
		}
	}
	return latest.Sub(earliest)
}
