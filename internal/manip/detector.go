// Package manip orchestrates manipulation detection for decentralized price
// oracle feeds: it maintains bounded per-feed price history, runs the
// independent pattern detectors against each observation, merges their
// results into a single ranked detection, and gates emission by severity
// and per-feed cooldown.
package manip

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/oraclewatch/oraclewatch/internal/consensus"
	"github.com/oraclewatch/oraclewatch/internal/deviation"
)

// maxHistoryPoints caps per-feed price history; the oldest points are
// evicted first.
const maxHistoryPoints = 1000

const (
	suppressCooldown = "cooldown"
	suppressSeverity = "severity"
)

// Detector is the manipulation detection engine. One instance owns the
// mutable state for all feeds it monitors; construct isolated instances
// per test or hosting service rather than sharing a global.
//
// Calls for the same feed key serialize on a per-feed lock so the
// one-detection-per-cooldown-window invariant holds under concurrent use;
// distinct feeds proceed independently.
type Detector struct {
	cfg        *Config
	logger     zerolog.Logger
	recorder   Recorder
	signatures []SignatureMatcher
	now        func() time.Time

	mu        sync.Mutex // guards the three maps below
	history   map[string][]PricePoint
	lastAlert map[string]time.Time
	feedLocks map[string]*sync.Mutex

	ledgerMu sync.RWMutex
	ledger   []*Detection
}

// Option customizes a Detector at construction.
type Option func(*Detector)

// WithLogger routes engine logs through the given logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(d *Detector) { d.logger = logger }
}

// WithRecorder attaches a telemetry recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Detector) { d.recorder = r }
}

// WithSignatures replaces the default flash-loan fingerprint list.
func WithSignatures(sigs []SignatureMatcher) Option {
	return func(d *Detector) { d.signatures = sigs }
}

// WithClock overrides the time source (testing).
func WithClock(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

// NewDetector builds a detector from cfg merged over defaults. A nil cfg
// uses defaults unchanged. Invalid configuration fails here, not at
// analysis time.
func NewDetector(cfg *Config, opts ...Option) (*Detector, error) {
	merged := cfg.withDefaults()
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	d := &Detector{
		cfg:        merged,
		logger:     log.Logger,
		recorder:   nopRecorder{},
		signatures: DefaultFlashLoanSignatures(),
		now:        time.Now,
		history:    make(map[string][]PricePoint),
		lastAlert:  make(map[string]time.Time),
		feedLocks:  make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Config returns the effective (merged) configuration.
func (d *Detector) Config() Config {
	return *d.cfg
}

// AnalyzePriceFeed appends the snapshot's history to the feed's bounded
// window, runs all pattern detectors, and returns the merged detection if
// gating passes, or nil when nothing fired or emission was suppressed.
//
// ctx is accepted for pipeline symmetry; the engine performs no I/O and
// never suspends.
func (d *Detector) AnalyzePriceFeed(ctx context.Context, snap FeedSnapshot) (*Detection, error) {
	key := snap.FeedKey()

	lock := d.feedLock(key)
	lock.Lock()
	defer lock.Unlock()

	history := d.appendHistory(key, snap.HistoricalData)

	results := d.runDetectors(snap, history)
	if len(results) == 0 {
		d.logger.Debug().Str("feed", key).Msg("no detector fired")
		return nil, nil
	}

	detection := d.merge(snap, history, results)

	if reason, ok := d.gate(key, detection); !ok {
		d.recorder.DetectionSuppressed(reason)
		d.logger.Debug().
			Str("feed", key).
			Str("type", string(detection.Type)).
			Str("severity", string(detection.Severity)).
			Str("reason", reason).
			Msg("detection suppressed")
		return nil, nil
	}

	d.ledgerMu.Lock()
	d.ledger = append(d.ledger, detection)
	d.ledgerMu.Unlock()

	d.recorder.DetectionEmitted(detection.Type, detection.Severity)
	d.logger.Info().
		Str("feed", key).
		Str("id", detection.ID).
		Str("type", string(detection.Type)).
		Str("severity", string(detection.Severity)).
		Float64("confidence", detection.Confidence).
		Msg("manipulation detected")

	return detection, nil
}

// AnalyzeMultipleFeeds runs AnalyzePriceFeed per snapshot, strictly in
// order, and collects the non-nil detections. Sequential processing bounds
// downstream alert load; callers wanting fan-out must add it externally.
func (d *Detector) AnalyzeMultipleFeeds(ctx context.Context, snaps []FeedSnapshot) ([]*Detection, error) {
	var detections []*Detection
	for _, snap := range snaps {
		det, err := d.AnalyzePriceFeed(ctx, snap)
		if err != nil {
			return detections, err
		}
		if det != nil {
			detections = append(detections, det)
		}
	}
	return detections, nil
}

// ValidateMultiSource checks per-source prices against their consensus and
// reports the worst source when its deviation exceeds the configured
// tolerance. Fewer sources than MinSources, or a degenerate consensus,
// abstains.
func (d *Detector) ValidateMultiSource(sourcePrices map[string]float64) *consensus.SourceDeviation {
	if len(sourcePrices) < d.cfg.MultiSourceValidation.MinSources {
		return nil
	}

	prices := make([]float64, 0, len(sourcePrices))
	for _, p := range sourcePrices {
		prices = append(prices, p)
	}
	ref := consensus.Price(prices, consensus.MethodMedian, nil)

	worst := consensus.MaxDeviation(sourcePrices, ref)
	if worst == nil || worst.DeviationPercent <= d.cfg.MultiSourceValidation.DeviationTolerance {
		return nil
	}
	return worst
}

// Reset drops all per-feed state and the detection ledger (testing).
func (d *Detector) Reset() {
	d.mu.Lock()
	d.history = make(map[string][]PricePoint)
	d.lastAlert = make(map[string]time.Time)
	d.feedLocks = make(map[string]*sync.Mutex)
	d.mu.Unlock()

	d.ledgerMu.Lock()
	d.ledger = nil
	d.ledgerMu.Unlock()

	d.recorder.SetTrackedFeeds(0)
}

// HistoryLen reports the current number of retained points for a feed key.
func (d *Detector) HistoryLen(feedKey string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.history[feedKey])
}

func (d *Detector) feedLock(key string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	lock, ok := d.feedLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		d.feedLocks[key] = lock
	}
	return lock
}

// appendHistory extends the feed's window and trims it to maxHistoryPoints,
// returning a snapshot slice the detectors can read without further
// locking.
func (d *Detector) appendHistory(key string, points []PricePoint) []PricePoint {
	d.mu.Lock()
	defer d.mu.Unlock()

	h := append(d.history[key], points...)
	if len(h) > maxHistoryPoints {
		h = append([]PricePoint(nil), h[len(h)-maxHistoryPoints:]...)
	}
	d.history[key] = h
	d.recorder.SetTrackedFeeds(len(d.history))

	out := make([]PricePoint, len(h))
	copy(out, h)
	return out
}

// gate applies cooldown first (a hot feed stays quiet even on critical),
// then the minimum-severity floor. On pass it stamps the cooldown clock.
func (d *Detector) gate(key string, det *Detection) (reason string, ok bool) {
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if last, seen := d.lastAlert[key]; seen && now.Sub(last) < d.cfg.Alerting.CooldownPeriod {
		return suppressCooldown, false
	}
	if deviation.Rank(det.Severity) < deviation.Rank(d.cfg.Alerting.MinSeverity) {
		return suppressSeverity, false
	}

	d.lastAlert[key] = now
	return "", true
}
