// ABOUTME: Tests for limiter transfer functions
// ABOUTME: Checks knee behaviour, symmetry and mode parsing
package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHardKnee(t *testing.T) {
	assert.Equal(t, float32(0.5), HardKnee(0.5))
	assert.Equal(t, float32(1), HardKnee(1.7))
	assert.Equal(t, float32(-1), HardKnee(-3))
}

func TestSoftKneeLinearBelowThreshold(t *testing.T) {
	for _, x := range []float32{0, 0.25, -0.5, 0.75} {
		assert.Equal(t, x, SoftKnee(x))
	}
}

func TestSoftKneeBoundedAndMonotonic(t *testing.T) {
	prev := SoftKnee(0.75)
	for x := float32(0.76); x < 4; x += 0.01 {
		y := SoftKnee(x)
		assert.LessOrEqual(t, y, float32(1))
		assert.GreaterOrEqual(t, y, prev)
		assert.Equal(t, -y, SoftKnee(-x))
		prev = y
	}
}

func TestParseLimiterMode(t *testing.T) {
	tests := []struct {
		input    string
		expected LimiterMode
	}{
		{"soft", LimiterSoftKnee},
		{"", LimiterSoftKnee},
		{"HARD", LimiterHardKnee},
		{"bypass", LimiterBypass},
		{"none", LimiterBypass},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			mode, err := ParseLimiterMode(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, mode)
		})
	}

	_, err := ParseLimiterMode("brickwall")
	assert.Error(t, err)
}

func TestLimiterModeFunc(t *testing.T) {
	assert.Equal(t, float32(1), LimiterHardKnee.Func()(2))
	assert.Equal(t, float32(2), LimiterBypass.Func()(2))
	assert.Less(t, LimiterSoftKnee.Func()(2), float32(1))
	assert.Equal(t, "soft", LimiterSoftKnee.String())
}
