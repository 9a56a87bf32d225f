// ABOUTME: Tests for the audio mixer
// ABOUTME: Covers block emission, summing, drift padding, startup offset and metering
package mixer

import (
	"testing"
	"time"

	"github.com/Resonate-Protocol/resonate-capture/internal/capture"
	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rate = 48000

type fixture struct {
	mixer *Mixer
	game  *capture.Source
	mic   *capture.Source
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	game := capture.NewGameSource(cfg.QueueCapacity)
	mic := capture.NewMicrophoneSource(cfg.QueueCapacity)
	m, err := New(cfg, game, mic)
	require.NoError(t, err)
	return &fixture{mixer: m, game: game, mic: mic}
}

func constant(frames int, v float32) []float32 {
	out := make([]float32, frames*2)
	for i := range out {
		out[i] = v
	}
	return out
}

func ramp(frames int) []float32 {
	out := make([]float32, frames*2)
	for i := range out {
		out[i] = float32(i+1) / float32(len(out)+1)
	}
	return out
}

// at returns the capture time at which frames samples per channel are expected
func at(frames int) float64 {
	return float64(frames) / rate
}

func TestGameOnlyEmitsWholeBlocks(t *testing.T) {
	f := newFixture(t, nil)
	f.mixer.EnableCapture()

	require.NoError(t, f.game.Write(capture.PathNative, constant(2048, 0.25), 2))
	out := f.mixer.GetMixedAudio(at(2048))

	assert.Len(t, out, 2*audio.BlockSamples)
	stats := f.mixer.Stats()
	assert.Equal(t, 0, stats.Game.Queued)
	assert.Equal(t, 0, stats.Microphone.Queued)
	assert.Equal(t, int64(2), stats.Blocks)
}

func TestMixedCaptureSumsAndLimits(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.mixer.SetMicrophoneCaptureActive(true))
	f.mixer.EnableCapture()

	require.NoError(t, f.game.Write(capture.PathNative, constant(1024, 0.5), 2))
	require.NoError(t, f.mic.Write(capture.PathNative, constant(1024, 0.3), 2))

	out := f.mixer.GetMixedAudio(at(1024))
	require.Len(t, out, audio.BlockSamples)

	g, m := float32(0.5), float32(0.3)
	want := audio.SoftKnee(g + m)
	for i, v := range out {
		require.Equal(t, want, v, "sample %d", i)
	}

	stats := f.mixer.Stats()
	assert.Equal(t, 0, stats.Game.Queued)
	assert.Equal(t, 0, stats.Microphone.Queued)
}

func TestMixWaitsForSlowestActiveSource(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.mixer.SetMicrophoneCaptureActive(true))
	f.mixer.EnableCapture()

	require.NoError(t, f.game.Write(capture.PathNative, constant(2048, 0.1), 2))
	require.NoError(t, f.mic.Write(capture.PathNative, constant(1000, 0.1), 2))

	assert.Empty(t, f.mixer.GetMixedAudio(at(1000)))
	stats := f.mixer.Stats()
	assert.Equal(t, 4096, stats.Game.Queued, "nothing is consumed without a whole block")
	assert.Equal(t, 2000, stats.Microphone.Queued)

	require.NoError(t, f.mic.Write(capture.PathNative, constant(100, 0.1), 2))
	assert.Len(t, f.mixer.GetMixedAudio(at(1100)), audio.BlockSamples)
}

func TestDisablingMicrophoneKeepsGameFlowing(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.mixer.SetMicrophoneCaptureActive(true))
	f.mixer.EnableCapture()

	require.NoError(t, f.game.Write(capture.PathNative, constant(1024, 0.2), 2))
	require.NoError(t, f.mic.Write(capture.PathNative, constant(512, 0.2), 2))
	f.mixer.GetMixedAudio(at(512))

	require.NoError(t, f.mixer.SetMicrophoneCaptureActive(false))
	assert.Equal(t, 0, f.mixer.Stats().Microphone.Queued)
	assert.False(t, f.mic.IsCapturing())

	require.NoError(t, f.game.Write(capture.PathNative, constant(1024, 0.2), 2))
	out := f.mixer.GetMixedAudio(at(2048))
	assert.Len(t, out, 2*audio.BlockSamples)
	for _, v := range out {
		assert.InDelta(t, 0.2, v, 1e-6)
	}
}

func TestMicrophonePermissionDenied(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Permission = capture.Denied })

	err := f.mixer.SetMicrophoneCaptureActive(true)
	assert.ErrorIs(t, err, capture.ErrMicrophonePermissionDenied)
	assert.False(t, f.mixer.MicrophoneCaptureActive())

	assert.NoError(t, f.mixer.SetMicrophoneCaptureActive(false))
}

func TestPositiveStartupOffsetInsertsSilence(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.GameOffset = 50 * time.Millisecond })
	f.mixer.EnableCapture()

	require.NoError(t, f.game.Write(capture.PathNative, constant(3072, 0.5), 2))
	out := f.mixer.GetMixedAudio(at(3072))

	require.Len(t, out, 5*audio.BlockSamples)
	for i := 0; i < 4800; i++ {
		require.Zero(t, out[i], "sample %d should be offset silence", i)
	}
	for i := 4800; i < len(out); i++ {
		require.Equal(t, float32(0.5), out[i], "sample %d should be captured audio", i)
	}

	// Offset applies once per session
	require.NoError(t, f.game.Write(capture.PathNative, constant(2048, 0.5), 2))
	out = f.mixer.GetMixedAudio(at(3072 + 2048))
	for _, v := range out {
		require.Equal(t, float32(0.5), v)
	}
}

func TestStartupOffsetDoesNotShiftDriftBaseline(t *testing.T) {
	f := newFixture(t, func(c *Config) {
		c.GameOffset = 150 * time.Millisecond
		c.DriftTolerance = 100 * time.Millisecond
	})
	f.mixer.EnableCapture()

	written := 0
	for i := 0; i < 60; i++ {
		require.NoError(t, f.game.Write(capture.PathNative, constant(800, 0.5), 2))
		written += 800
		f.mixer.GetMixedAudio(at(written))
	}

	stats := f.mixer.Stats()
	assert.Zero(t, stats.Game.Drift.AheadWarnings)
	assert.Zero(t, stats.Game.Drift.Pads)
	assert.InDelta(t, 0, stats.Game.Drift.Drift, 1)
	assert.Equal(t, int64(written+7200), stats.Game.Enqueued, "offset silence still counts as enqueued")
}

func TestNegativeStartupOffsetTrimsGameAudio(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.GameOffset = -10 * time.Millisecond })
	f.mixer.EnableCapture()

	in := ramp(2048)
	require.NoError(t, f.game.Write(capture.PathNative, in, 2))
	out := f.mixer.GetMixedAudio(at(2048))

	// 480 frames trimmed leaves 1568, so one block
	require.Len(t, out, audio.BlockSamples)
	assert.Equal(t, in[960], out[0])
	assert.Equal(t, 0, f.mixer.Stats().PendingTrim)
	assert.Equal(t, 2*(1568-1024), f.mixer.Stats().Game.Queued)
}

func TestDriftPaddingIsNonDestructive(t *testing.T) {
	f := newFixture(t, func(c *Config) {
		c.QueueCapacity = 4 * rate * 2
		c.OutputCapacity = 4 * rate * 2
	})
	f.mixer.EnableCapture()

	captured := constant(1024, 0.25)
	require.NoError(t, f.game.Write(capture.PathNative, captured, 2))

	out := f.mixer.GetMixedAudio(1.0)

	stats := f.mixer.Stats()
	tolerance := int64(rate / 10)
	assert.GreaterOrEqual(t, stats.Game.Enqueued, int64(rate)-tolerance, "counter within tolerance after correction")
	assert.Equal(t, int64(rate-1024), stats.Game.Padded)
	assert.Equal(t, 1, stats.Game.Drift.Pads)

	require.GreaterOrEqual(t, len(out), len(captured))
	assert.Equal(t, captured, out[:len(captured)], "real samples come out ahead of the padding")
	for _, v := range out[len(captured):] {
		require.Zero(t, v)
	}
	assert.Equal(t, 0, len(out)%audio.BlockSamples)
}

func TestAheadSourceIsOnlyWarned(t *testing.T) {
	f := newFixture(t, nil)
	f.mixer.EnableCapture()

	require.NoError(t, f.game.Write(capture.PathNative, constant(10000, 0.1), 2))
	out := f.mixer.GetMixedAudio(0)

	assert.Len(t, out, 9*audio.BlockSamples)
	stats := f.mixer.Stats()
	assert.Equal(t, 1, stats.Game.Drift.AheadWarnings)
	assert.Zero(t, stats.Game.Padded)
	assert.Equal(t, 2*(10000-9*1024), stats.Game.Queued)
}

func TestBlockAlignment(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.mixer.SetMicrophoneCaptureActive(true))
	f.mixer.EnableCapture()

	gameFrames, micFrames, emitted := 0, 0, 0
	writes := []struct{ game, mic int }{
		{333, 480}, {1500, 10}, {7, 900}, {2048, 2048}, {1, 1}, {999, 1200}, {4096, 3000},
	}
	for _, w := range writes {
		require.NoError(t, f.game.Write(capture.PathNative, constant(w.game, 0.1), 2))
		require.NoError(t, f.mic.Write(capture.PathNative, constant(w.mic, 0.1), 2))
		gameFrames += w.game
		micFrames += w.mic

		out := f.mixer.GetMixedAudio(at(min(gameFrames, micFrames)))
		require.Equal(t, 0, len(out)%audio.BlockSamples)
		emitted += len(out) / 2

		stats := f.mixer.Stats()
		assert.Equal(t, 2*(gameFrames-emitted), stats.Game.Queued)
		assert.Equal(t, 2*(micFrames-emitted), stats.Microphone.Queued)
	}
}

func TestGainAndMuteApplyAtEnqueue(t *testing.T) {
	f := newFixture(t, nil)
	f.mixer.EnableCapture()
	f.mixer.SetGameAudioGain(0.5)

	require.NoError(t, f.game.Write(capture.PathNative, constant(512, 0.4), 2))
	require.Empty(t, f.mixer.GetMixedAudio(at(512)))

	f.mixer.SetGameAudioGain(1)
	f.mixer.SetGameAudioMute(true)
	require.NoError(t, f.game.Write(capture.PathNative, constant(512, 0.4), 2))
	out := f.mixer.GetMixedAudio(at(1024))

	require.Len(t, out, audio.BlockSamples)
	assert.InDelta(t, 0.2, out[0], 1e-6, "queued audio keeps the gain it was captured with")
	assert.InDelta(t, 0.2, out[1023], 1e-6)
	assert.Zero(t, out[1024], "muted audio is silence")
	assert.Zero(t, out[2047])
}

func TestOutputLevels(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.mixer.SetMicrophoneCaptureActive(true))
	f.mixer.EnableCapture()

	require.NoError(t, f.game.Write(capture.PathNative, constant(256, 0.5), 2))
	require.NoError(t, f.mic.Write(capture.PathNative, constant(256, 0.2), 2))
	f.mixer.GetMixedAudio(at(256))

	assert.InDelta(t, 0.25, f.mixer.GameOutputLevel(), 1e-6)
	assert.InDelta(t, 0.1, f.mixer.MicrophoneOutputLevel(), 1e-6)

	require.NoError(t, f.game.Write(capture.PathNative, constant(256, 0.5), 2))
	f.mixer.GetMixedAudio(at(512))
	assert.InDelta(t, 0.375, f.mixer.GameOutputLevel(), 1e-6)

	f.mixer.DisableCapture()
	assert.Zero(t, f.mixer.GameOutputLevel())
}

func TestOutputTruncationKeepsQueuedAudio(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.OutputCapacity = 2 * audio.BlockSamples })
	f.mixer.EnableCapture()

	require.NoError(t, f.game.Write(capture.PathNative, constant(4096, 0.1), 2))
	out := f.mixer.GetMixedAudio(at(4096))

	assert.Len(t, out, 2*audio.BlockSamples)
	stats := f.mixer.Stats()
	assert.Equal(t, 1, stats.Truncations)
	assert.Equal(t, 2*2048, stats.Game.Queued)

	assert.Len(t, f.mixer.GetMixedAudio(at(4096)), 2*audio.BlockSamples)
}

func TestDisabledMixerReturnsNothing(t *testing.T) {
	f := newFixture(t, nil)
	assert.Empty(t, f.mixer.GetMixedAudio(1))

	f.mixer.EnableCapture()
	require.NoError(t, f.game.Write(capture.PathNative, constant(2048, 0.1), 2))
	f.mixer.DisableCapture()
	assert.Empty(t, f.mixer.GetMixedAudio(1))
	assert.False(t, f.game.IsCapturing())
}

func TestMicrophoneZeroReference(t *testing.T) {
	f := newFixture(t, nil)
	f.mixer.EnableCapture()

	// Game has been running for a second when the microphone joins
	require.NoError(t, f.game.Write(capture.PathNative, constant(rate*1, 0), 2))
	f.mixer.GetMixedAudio(1.0)

	require.NoError(t, f.mixer.SetMicrophoneCaptureActive(true))
	require.NoError(t, f.mic.Write(capture.PathNative, constant(1024, 0.1), 2))
	require.NoError(t, f.game.Write(capture.PathNative, constant(1024, 0), 2))
	f.mixer.GetMixedAudio(1.0 + at(1024))

	assert.Zero(t, f.mixer.Stats().Microphone.Padded, "microphone time starts at its first mix")
}

func TestNewRejectsBadConfig(t *testing.T) {
	game := capture.NewGameSource(8192)
	mic := capture.NewMicrophoneSource(8192)

	cfg := DefaultConfig()
	cfg.SampleRate = 0
	_, err := New(cfg, game, mic)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.QueueCapacity = 100
	_, err = New(cfg, game, mic)
	assert.Error(t, err)

	_, err = New(DefaultConfig(), game, nil)
	assert.Error(t, err)
}
