// ABOUTME: Tests for drift tracking
// ABOUTME: Tests tolerance boundaries, classification and statistics
package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrackerTolerance(t *testing.T) {
	tr := NewTracker("game", 48000, 100*time.Millisecond)
	assert.Equal(t, int64(4800), tr.Tolerance())
}

func TestTrackerClassification(t *testing.T) {
	tests := []struct {
		name    string
		elapsed float64
		actual  int64
		action  Action
		samples int64
		quality Quality
	}{
		{"on time", 1.0, 48000, ActionNone, 0, QualityGood},
		{"behind within tolerance", 1.0, 48000 - 4800, ActionNone, 0, QualityGood},
		{"behind past tolerance", 1.0, 48000 - 4801, ActionPad, 4801, QualityLost},
		{"ahead within tolerance", 1.0, 48000 + 4800, ActionNone, 0, QualityGood},
		{"ahead past tolerance", 1.0, 48000 + 9600, ActionWarnAhead, 9600, QualityDegraded},
		{"negative elapsed", -0.5, 0, ActionNone, 0, QualityGood},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker("game", 48000, 100*time.Millisecond)
			c := tr.Observe(tt.elapsed, tt.actual)
			assert.Equal(t, tt.action, c.Action)
			if tt.action != ActionNone {
				assert.Equal(t, tt.samples, c.Samples)
			}
			assert.Equal(t, tt.quality, tr.GetStats().Quality)
		})
	}
}

func TestTrackerStatsAndReset(t *testing.T) {
	tr := NewTracker("microphone", 48000, 100*time.Millisecond)

	tr.Observe(1.0, 0)
	tr.Observe(2.0, 48000)
	tr.Observe(2.0, 2*48000+10000)

	s := tr.GetStats()
	assert.Equal(t, 3, s.Observations)
	assert.Equal(t, 2, s.Pads)
	assert.Equal(t, int64(96000), s.PaddedSamples)
	assert.Equal(t, int64(48000), s.MaxBehind)
	assert.Equal(t, int64(10000), s.MaxAhead)
	assert.Equal(t, 1, s.AheadWarnings)
	assert.Equal(t, "ahead", s.Quality.String())

	tr.Reset()
	assert.Equal(t, Stats{Quality: QualityGood}, tr.GetStats())
}
