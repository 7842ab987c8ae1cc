package manip

import (
	"fmt"
	"time"

	"github.com/oraclewatch/oraclewatch/internal/deviation"
)

// DetectionType identifies which manipulation pattern fired.
type DetectionType string

const (
	TypePriceManipulation DetectionType = "price_manipulation"
	TypeFlashLoanAttack   DetectionType = "flash_loan_attack"
	TypeSandwichAttack    DetectionType = "sandwich_attack"
	TypeLiquidityDrain    DetectionType = "liquidity_drain"
)

// Status tracks a detection through triage. The engine only ever creates
// detections as active; status transitions belong to external review
// tooling working on exported copies.
type Status string

const (
	StatusActive        Status = "active"
	StatusConfirmed     Status = "confirmed"
	StatusFalsePositive Status = "false_positive"
	StatusResolved      Status = "resolved"
)

// PricePoint is one observation from one source at one instant. Immutable
// once recorded.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume,omitempty"`
	Liquidity float64   `json:"liquidity,omitempty"`
	Source    string    `json:"source"`
}

// TransactionLog is a minimal decoded event log entry.
type TransactionLog struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics"`
	Data    string   `json:"data"`
}

// TransactionRecord carries the already-decoded transaction fields the
// pattern detectors inspect. Input is raw call data used only for prefix
// matching; no ABI decoding happens here.
type TransactionRecord struct {
	Hash      string           `json:"hash"`
	Timestamp time.Time        `json:"timestamp"`
	From      string           `json:"from"`
	To        string           `json:"to"`
	Value     float64          `json:"value"`
	GasPrice  float64          `json:"gas_price"`
	GasUsed   uint64           `json:"gas_used"`
	Input     string           `json:"input"`
	Logs      []TransactionLog `json:"logs,omitempty"`
}

// SuspiciousTransaction is a transaction flagged during merge, scored by
// how far its value exceeds normal activity.
type SuspiciousTransaction struct {
	TransactionRecord
	RelevanceScore float64 `json:"relevance_score"` // 0..100
}

// Evidence is one atomic piece of supporting data attached to a detection.
type Evidence struct {
	Type        string                 `json:"type"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}

// Details holds the descriptive body of a detection.
type Details struct {
	Description      string        `json:"description"`
	Evidence         []Evidence    `json:"evidence"`
	PriceDeviation   float64       `json:"price_deviation"` // percent
	NormalPrice      float64       `json:"normal_price"`
	ManipulatedPrice float64       `json:"manipulated_price"`
	Duration         time.Duration `json:"duration"`
}

// Detection is the engine's sole output artifact. Once emitted it is never
// mutated or deleted; the ledger has audit-append semantics.
type Detection struct {
	ID                     string                  `json:"id"`
	Type                   DetectionType           `json:"type"`
	Severity               deviation.Severity      `json:"severity"`
	Status                 Status                  `json:"status"`
	Confidence             float64                 `json:"confidence"` // 0..100
	Timestamp              time.Time               `json:"timestamp"`
	AffectedFeeds          []string                `json:"affected_feeds"`
	Details                Details                 `json:"details"`
	SuspiciousTransactions []SuspiciousTransaction `json:"suspicious_transactions,omitempty"`
	Impact                 string                  `json:"impact"`
	RecommendedActions     []string                `json:"recommended_actions"`
	CreatedAt              time.Time               `json:"created_at"`
	UpdatedAt              time.Time               `json:"updated_at"`
}

// FeedSnapshot is one analysis cycle's input for a single monitored feed.
type FeedSnapshot struct {
	Protocol           string              `json:"protocol"`
	Symbol             string              `json:"symbol"`
	Chain              string              `json:"chain"`
	CurrentPrice       float64             `json:"current_price"`
	HistoricalData     []PricePoint        `json:"historical_data"`
	RecentTransactions []TransactionRecord `json:"recent_transactions"`
}

// FeedKey is the composite protocol-symbol-chain identifier for one
// monitored price stream.
func (s FeedSnapshot) FeedKey() string {
	return fmt.Sprintf("%s-%s-%s", s.Protocol, s.Symbol, s.Chain)
}
