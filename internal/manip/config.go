package manip

import (
	"fmt"
	"time"

	"github.com/oraclewatch/oraclewatch/internal/deviation"
	"github.com/oraclewatch/oraclewatch/internal/outliers"
)

// Config parameterizes the manipulation detector. Zero-valued sections and
// fields are filled from DefaultConfig (explicit per-section deep merge, so
// a partial nested override never silently drops sibling defaults).
type Config struct {
	StatisticalThresholds StatisticalThresholds `yaml:"statistical_thresholds" json:"statistical_thresholds"`
	PatternRecognition    PatternRecognition    `yaml:"pattern_recognition" json:"pattern_recognition"`
	MultiSourceValidation MultiSourceValidation `yaml:"multi_source_validation" json:"multi_source_validation"`
	Outliers              outliers.Config       `yaml:"outliers" json:"outliers"`
	Alerting              Alerting              `yaml:"alerting" json:"alerting"`
}

// StatisticalThresholds gate the statistics-driven detectors. Percentages
// are whole numbers (5 means 5%).
type StatisticalThresholds struct {
	PriceDeviation float64 `yaml:"price_deviation" json:"price_deviation"`
	LiquidityDrop  float64 `yaml:"liquidity_drop" json:"liquidity_drop"`
}

// PatternRecognition bounds for the transaction-shape detectors.
type PatternRecognition struct {
	MinProfitThreshold float64 `yaml:"min_profit_threshold" json:"min_profit_threshold"`
	MaxNormalTxValue   float64 `yaml:"max_normal_tx_value" json:"max_normal_tx_value"`
}

// MultiSourceValidation parameterizes cross-source consensus checks.
type MultiSourceValidation struct {
	MinSources         int     `yaml:"min_sources" json:"min_sources"`
	DeviationTolerance float64 `yaml:"deviation_tolerance" json:"deviation_tolerance"` // percent
}

// Alerting governs emission: the minimum severity worth alerting on and the
// per-feed cooldown between alerts.
type Alerting struct {
	MinSeverity    deviation.Severity `yaml:"min_severity" json:"min_severity"`
	Channels       []string           `yaml:"channels" json:"channels"`
	CooldownPeriod time.Duration      `yaml:"cooldown_period" json:"cooldown_period"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() *Config {
	return &Config{
		StatisticalThresholds: StatisticalThresholds{
			PriceDeviation: 5.0,
			LiquidityDrop:  30.0,
		},
		PatternRecognition: PatternRecognition{
			MinProfitThreshold: 1000,
			MaxNormalTxValue:   10000,
		},
		MultiSourceValidation: MultiSourceValidation{
			MinSources:         3,
			DeviationTolerance: 2.0,
		},
		Outliers: outliers.DefaultConfig(),
		Alerting: Alerting{
			MinSeverity:    deviation.SeverityMedium,
			Channels:       []string{"log"},
			CooldownPeriod: 5 * time.Minute,
		},
	}
}

// withDefaults deep-merges c over DefaultConfig, section by section. A nil
// receiver yields the full defaults.
func (c *Config) withDefaults() *Config {
	def := DefaultConfig()
	if c == nil {
		return def
	}

	merged := *c
	if merged.StatisticalThresholds.PriceDeviation == 0 {
		merged.StatisticalThresholds.PriceDeviation = def.StatisticalThresholds.PriceDeviation
	}
	if merged.StatisticalThresholds.LiquidityDrop == 0 {
		merged.StatisticalThresholds.LiquidityDrop = def.StatisticalThresholds.LiquidityDrop
	}
	if merged.PatternRecognition.MinProfitThreshold == 0 {
		merged.PatternRecognition.MinProfitThreshold = def.PatternRecognition.MinProfitThreshold
	}
	if merged.PatternRecognition.MaxNormalTxValue == 0 {
		merged.PatternRecognition.MaxNormalTxValue = def.PatternRecognition.MaxNormalTxValue
	}
	if merged.MultiSourceValidation.MinSources == 0 {
		merged.MultiSourceValidation.MinSources = def.MultiSourceValidation.MinSources
	}
	if merged.MultiSourceValidation.DeviationTolerance == 0 {
		merged.MultiSourceValidation.DeviationTolerance = def.MultiSourceValidation.DeviationTolerance
	}
	if merged.Outliers.Method == "" {
		merged.Outliers.Method = def.Outliers.Method
	}
	if merged.Outliers.Threshold == 0 {
		merged.Outliers.Threshold = def.Outliers.Threshold
	}
	if merged.Outliers.IQRMultiplier == 0 {
		merged.Outliers.IQRMultiplier = def.Outliers.IQRMultiplier
	}
	if merged.Outliers.ZScoreThreshold == 0 {
		merged.Outliers.ZScoreThreshold = def.Outliers.ZScoreThreshold
	}
	if merged.Outliers.MinDataPoints == 0 {
		merged.Outliers.MinDataPoints = def.Outliers.MinDataPoints
	}
	if merged.Alerting.MinSeverity == "" {
		merged.Alerting.MinSeverity = def.Alerting.MinSeverity
	}
	if merged.Alerting.Channels == nil {
		merged.Alerting.Channels = def.Alerting.Channels
	}
	if merged.Alerting.CooldownPeriod == 0 {
		merged.Alerting.CooldownPeriod = def.Alerting.CooldownPeriod
	}
	return &merged
}

// Validate rejects configurations that signal a deployment mistake rather
// than a data condition.
func (c *Config) Validate() error {
	if c.StatisticalThresholds.PriceDeviation <= 0 {
		return fmt.Errorf("statistical_thresholds.price_deviation must be positive, got %v", c.StatisticalThresholds.PriceDeviation)
	}
	if c.StatisticalThresholds.LiquidityDrop <= 0 {
		return fmt.Errorf("statistical_thresholds.liquidity_drop must be positive, got %v", c.StatisticalThresholds.LiquidityDrop)
	}
	if c.PatternRecognition.MaxNormalTxValue <= 0 {
		return fmt.Errorf("pattern_recognition.max_normal_tx_value must be positive, got %v", c.PatternRecognition.MaxNormalTxValue)
	}
	if c.PatternRecognition.MinProfitThreshold < 0 {
		return fmt.Errorf("pattern_recognition.min_profit_threshold must not be negative, got %v", c.PatternRecognition.MinProfitThreshold)
	}
	if c.MultiSourceValidation.DeviationTolerance <= 0 {
		return fmt.Errorf("multi_source_validation.deviation_tolerance must be positive, got %v", c.MultiSourceValidation.DeviationTolerance)
	}
	if !deviation.Valid(c.Alerting.MinSeverity) {
		return fmt.Errorf("alerting.min_severity %q is not one of low/medium/high/critical", c.Alerting.MinSeverity)
	}
	if c.Alerting.CooldownPeriod < 0 {
		return fmt.Errorf("alerting.cooldown_period must not be negative, got %v", c.Alerting.CooldownPeriod)
	}
	return nil
}
