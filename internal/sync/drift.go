// ABOUTME: Per-source drift tracking between produced and expected sample counts
// ABOUTME: Classifies each observation and smooths drift for metering
package sync

import (
	"log"
	"sync"
	"time"
)

// Quality represents how well a source is keeping pace with the capture clock
type Quality int

const (
	// QualityGood means the source is within tolerance
	QualityGood Quality = iota
	// QualityDegraded means the source is ahead of the clock (lag spike catch-up)
	QualityDegraded
	// QualityLost means the source fell behind and was padded with silence
	QualityLost
)

func (q Quality) String() string {
	switch q {
	case QualityGood:
		return "good"
	case QualityDegraded:
		return "ahead"
	case QualityLost:
		return "behind"
	default:
		return "unknown"
	}
}

// Action is the correction the mixer should apply for one observation
type Action int

const (
	ActionNone Action = iota
	// ActionPad means insert Correction.Samples of silence per channel
	ActionPad
	// ActionWarnAhead means the source is ahead; nothing is removed
	ActionWarnAhead
)

// Correction is the outcome of one drift observation
type Correction struct {
	Action Action
	// Samples per channel by which the source is behind (ActionPad) or ahead
	Samples int64
}

// Stats is a snapshot of a tracker
type Stats struct {
	Drift         int64 // last observed actual - expected, samples per channel
	SmoothedDrift float64
	MaxBehind     int64
	MaxAhead      int64
	Pads          int
	PaddedSamples int64
	AheadWarnings int
	Quality       Quality
	Observations  int
}

// Tracker compares a source's running sample counter against the count expected
// from elapsed capture time. Observe is called from the frame goroutine; stats
// may be read from any goroutine.
type Tracker struct {
	name       string
	sampleRate int
	tolerance  int64 // samples per channel

	mu            sync.RWMutex
	drift         int64
	smoothed      float64
	smoothingRate float64
	maxBehind     int64
	maxAhead      int64
	pads          int
	padded        int64
	aheadWarnings int
	quality       Quality
	observations  int
}

// NewTracker creates a tracker for a source at sampleRate with the given tolerance
func NewTracker(name string, sampleRate int, tolerance time.Duration) *Tracker {
	return &Tracker{
		name:          name,
		sampleRate:    sampleRate,
		tolerance:     int64(tolerance.Seconds() * float64(sampleRate)),
		smoothingRate: 0.1, // 10% weight to new samples
		quality:       QualityGood,
	}
}

// Tolerance returns the tolerance in samples per channel
func (t *Tracker) Tolerance() int64 { return t.tolerance }

// Expected returns floor(elapsed * sampleRate), or 0 for negative elapsed time
func (t *Tracker) Expected(elapsedSeconds float64) int64 {
	if elapsedSeconds <= 0 {
		return 0
	}
	return int64(elapsedSeconds * float64(t.sampleRate))
}

// Observe classifies actual against the expected count for elapsedSeconds
func (t *Tracker) Observe(elapsedSeconds float64, actual int64) Correction {
	expected := t.Expected(elapsedSeconds)
	drift := actual - expected

	t.mu.Lock()
	defer t.mu.Unlock()

	t.drift = drift
	if t.observations == 0 {
		t.smoothed = float64(drift)
	} else {
		t.smoothed += t.smoothingRate * (float64(drift) - t.smoothed)
	}
	t.observations++

	switch {
	case -drift > t.tolerance:
		behind := -drift
		if behind > t.maxBehind {
			t.maxBehind = behind
		}
		t.pads++
		t.padded += behind
		t.quality = QualityLost
		log.Printf("Warning: %s audio can't keep up, padding with silence (behind by %d samples at %.3fs)",
			t.name, behind, elapsedSeconds)
		return Correction{Action: ActionPad, Samples: behind}

	case drift > t.tolerance:
		if drift > t.maxAhead {
			t.maxAhead = drift
		}
		t.aheadWarnings++
		t.quality = QualityDegraded
		log.Printf("Warning: %s audio ahead of capture clock by %d samples at %.3fs, assuming lag spike catch-up",
			t.name, drift, elapsedSeconds)
		return Correction{Action: ActionWarnAhead, Samples: drift}
	}

	t.quality = QualityGood
	return Correction{Action: ActionNone}
}

// Reset clears the tracker for a new capture session
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.drift = 0
	t.smoothed = 0
	t.maxBehind = 0
	t.maxAhead = 0
	t.pads = 0
	t.padded = 0
	t.aheadWarnings = 0
	t.quality = QualityGood
	t.observations = 0
}

// GetStats returns drift statistics
func (t *Tracker) GetStats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Stats{
		Drift:         t.drift,
		SmoothedDrift: t.smoothed,
		MaxBehind:     t.maxBehind,
		MaxAhead:      t.maxAhead,
		Pads:          t.pads,
		PaddedSamples: t.padded,
		AheadWarnings: t.aheadWarnings,
		Quality:       t.quality,
		Observations:  t.observations,
	}
}
