// ABOUTME: Tests for the linear resampler
// ABOUTME: Checks passthrough, output length and chunk continuity
package resample

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassthrough(t *testing.T) {
	r := New(48000, 48000, 2)
	require.True(t, r.Passthrough())

	out := r.Resample(nil, []float32{1, 2, 3, 4, 5})
	assert.Equal(t, []float32{1, 2, 3, 4}, out)
}

func TestUpsampleLength(t *testing.T) {
	r := New(24000, 48000, 1)

	var out []float32
	for i := 0; i < 10; i++ {
		chunk := make([]float32, 240)
		out = r.Resample(out, chunk)
	}

	// 2400 input frames at 2x: within one frame of 4800
	assert.InDelta(t, 4800, len(out), 2)
}

func TestDownsampleLength(t *testing.T) {
	r := New(96000, 48000, 2)

	var out []float32
	for i := 0; i < 4; i++ {
		out = r.Resample(out, make([]float32, 960*2))
	}

	assert.InDelta(t, 1920*2, len(out), 4)
	assert.Equal(t, 0, len(out)%2)
}

func TestRampStaysContinuousAcrossChunks(t *testing.T) {
	r := New(44100, 48000, 1)

	// A linear ramp resampled linearly should stay a monotonic ramp
	var out []float32
	next := float32(0)
	for c := 0; c < 5; c++ {
		chunk := make([]float32, 441)
		for i := range chunk {
			chunk[i] = next
			next++
		}
		out = r.Resample(out, chunk)
	}

	require.NotEmpty(t, out)
	for i := 1; i < len(out); i++ {
		step := out[i] - out[i-1]
		assert.InDelta(t, 44100.0/48000.0, step, 2e-3, "step %d", i)
	}
}

func TestReset(t *testing.T) {
	r := New(44100, 48000, 2)
	r.Resample(nil, make([]float32, 100))
	r.Reset()

	assert.False(t, r.primed)
	assert.Equal(t, 0.0, r.position)
}

func TestFrameEstimates(t *testing.T) {
	r := New(44100, 48000, 2)
	assert.InDelta(t, 480, r.OutputFramesFor(441), 1)
	assert.InDelta(t, 441, r.InputFramesFor(480), 1)
}
