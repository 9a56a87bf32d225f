// ABOUTME: Two-source audio mixer producing fixed-size stereo blocks
// ABOUTME: Applies gain and mute at enqueue, corrects drift with silence and limits the sum
package mixer

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/Resonate-Protocol/resonate-capture/internal/capture"
	drift "github.com/Resonate-Protocol/resonate-capture/internal/sync"
	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
)

// Config holds mixer parameters
type Config struct {
	SampleRate     int
	BlockFrames    int
	QueueCapacity  int // per-source queue size in samples
	OutputCapacity int // bound on one GetMixedAudio result in samples
	DriftTolerance time.Duration

	// GameOffset is the one-time startup correction for game audio.
	// Positive inserts silence ahead of the first game samples, negative trims them.
	GameOffset time.Duration

	Limiter    audio.Limiter
	Permission capture.Permission
}

// DefaultConfig returns the standard 48 kHz configuration
func DefaultConfig() Config {
	return Config{
		SampleRate:     audio.DefaultSampleRate,
		BlockFrames:    audio.BlockFrames,
		QueueCapacity:  2 * audio.DefaultSampleRate * audio.StereoChannels,
		OutputCapacity: audio.DefaultSampleRate * audio.StereoChannels,
		DriftTolerance: 100 * time.Millisecond,
		Limiter:        audio.SoftKnee,
		Permission:     capture.AlwaysGranted,
	}
}

// Mixer owns one ingest queue per source and emits block-aligned mixed audio.
// Everything except the level getters belongs to the frame goroutine.
type Mixer struct {
	cfg          Config
	blockSamples int

	game *channel
	mic  *channel

	capturing   bool
	micActive   bool
	micZero     float64
	micZeroSet  bool
	pendingTrim int // game samples still to trim for a negative offset

	out     *audio.SampleBuffer
	scratch []float32

	blocks      int64
	truncations int
}

// New creates a mixer over the game and microphone sources
func New(cfg Config, game, mic *capture.Source) (*Mixer, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", cfg.SampleRate)
	}
	if cfg.BlockFrames <= 0 {
		return nil, fmt.Errorf("invalid block size: %d frames", cfg.BlockFrames)
	}
	blockSamples := cfg.BlockFrames * audio.StereoChannels
	if cfg.QueueCapacity < blockSamples {
		return nil, fmt.Errorf("queue capacity %d smaller than one block (%d samples)", cfg.QueueCapacity, blockSamples)
	}
	if cfg.OutputCapacity == 0 {
		cfg.OutputCapacity = cfg.QueueCapacity
	}
	if cfg.OutputCapacity < blockSamples {
		return nil, fmt.Errorf("output capacity %d smaller than one block (%d samples)", cfg.OutputCapacity, blockSamples)
	}
	if cfg.Limiter == nil {
		cfg.Limiter = audio.SoftKnee
	}
	if cfg.Permission == nil {
		cfg.Permission = capture.AlwaysGranted
	}
	if game == nil || mic == nil {
		return nil, fmt.Errorf("mixer requires both game and microphone sources")
	}

	return &Mixer{
		cfg:          cfg,
		blockSamples: blockSamples,
		game:         newChannel(game, cfg),
		mic:          newChannel(mic, cfg),
		out:          audio.NewSampleBuffer(cfg.OutputCapacity),
	}, nil
}

// SampleRate returns the output sample rate
func (m *Mixer) SampleRate() int { return m.cfg.SampleRate }

// Channels returns the output channel count (always stereo)
func (m *Mixer) Channels() int { return audio.StereoChannels }

// BlockFrames returns the emission granularity in frames
func (m *Mixer) BlockFrames() int { return m.cfg.BlockFrames }

// SetMicrophoneCaptureActive turns microphone capture on or off. Turning it on
// fails with a permission error when the platform has not granted access.
func (m *Mixer) SetMicrophoneCaptureActive(active bool) error {
	if active && !m.cfg.Permission.MicrophoneGranted() {
		log.Printf("Warning: microphone capture requested but permission was not granted")
		return capture.NewError(capture.KindMicrophonePermissionDenied, "platform has not granted microphone access", nil)
	}
	if active == m.micActive {
		return nil
	}

	m.micActive = active
	m.micZeroSet = false
	m.mic.reset()

	if active {
		if m.capturing {
			m.mic.source.EnableCapture()
		}
		log.Printf("Microphone capture enabled")
	} else {
		m.mic.source.DisableCapture()
		log.Printf("Microphone capture disabled")
	}
	return nil
}

// MicrophoneCaptureActive reports whether the microphone contributes to the mix
func (m *Mixer) MicrophoneCaptureActive() bool { return m.micActive }

// SetGameAudioMute mutes game audio from the next drained samples on
func (m *Mixer) SetGameAudioMute(muted bool) { m.game.muted = muted }

// SetMicrophoneMute mutes microphone audio from the next drained samples on
func (m *Mixer) SetMicrophoneMute(muted bool) { m.mic.muted = muted }

// SetGameAudioGain sets the linear gain applied to game audio at enqueue time
func (m *Mixer) SetGameAudioGain(gain float32) { m.game.gain = clampGain(gain) }

// SetMicrophoneGain sets the linear gain applied to microphone audio at enqueue time
func (m *Mixer) SetMicrophoneGain(gain float32) { m.mic.gain = clampGain(gain) }

func clampGain(g float32) float32 {
	if g < 0 || math.IsNaN(float64(g)) {
		return 0
	}
	return g
}

// GameOutputLevel returns the smoothed game level. Safe from any goroutine.
func (m *Mixer) GameOutputLevel() float32 { return m.game.level() }

// MicrophoneOutputLevel returns the smoothed microphone level. Safe from any goroutine.
func (m *Mixer) MicrophoneOutputLevel() float32 { return m.mic.level() }

// IsCapturing reports whether capture is enabled
func (m *Mixer) IsCapturing() bool { return m.capturing }

// EnableCapture starts a capture session: sources start from empty buffers, queues
// and counters reset, and the game startup offset is armed.
func (m *Mixer) EnableCapture() {
	m.game.reset()
	m.mic.reset()
	m.micZeroSet = false
	m.pendingTrim = 0
	m.out.Clear()
	m.blocks = 0
	m.truncations = 0

	m.game.source.EnableCapture()
	if m.micActive {
		m.mic.source.EnableCapture()
	}

	offsetFrames := int(math.Abs(m.cfg.GameOffset.Seconds()) * float64(m.cfg.SampleRate))
	switch {
	case m.cfg.GameOffset > 0:
		// HACK: fixed latency compensation between the game and microphone capture paths
		if m.game.queue.AppendSilence(offsetFrames * audio.StereoChannels) {
			m.game.total += int64(offsetFrames)
			m.game.offset = int64(offsetFrames)
		} else {
			log.Printf("Warning: game offset of %v does not fit the queue, ignoring", m.cfg.GameOffset)
		}
	case m.cfg.GameOffset < 0:
		m.pendingTrim = offsetFrames * audio.StereoChannels
	}

	m.capturing = true
	log.Printf("Mixer capture enabled (%d Hz, %d-frame blocks, game offset %v, microphone %v)",
		m.cfg.SampleRate, m.cfg.BlockFrames, m.cfg.GameOffset, m.micActive)
}

// DisableCapture stops both sources and discards everything queued
func (m *Mixer) DisableCapture() {
	m.game.source.DisableCapture()
	m.mic.source.DisableCapture()
	m.game.reset()
	m.mic.reset()
	m.micZeroSet = false
	m.pendingTrim = 0
	m.out.Clear()
	m.capturing = false
	log.Printf("Mixer capture disabled after %d blocks", m.blocks)
}

// GetMixedAudio drains both sources, corrects drift against captureTime and returns
// whole blocks of limited stereo audio. The result may be empty and is only valid
// until the next call.
func (m *Mixer) GetMixedAudio(captureTime float64) []float32 {
	m.out.Clear()
	if !m.capturing {
		return m.out.Samples()
	}

	if m.micActive && !m.micZeroSet {
		m.micZero = captureTime
		m.micZeroSet = true
	}

	m.game.source.PullAvailable(func(samples []float32) {
		m.enqueue(m.game, samples)
	})
	if m.micActive {
		m.mic.source.PullAvailable(func(samples []float32) {
			m.enqueue(m.mic, samples)
		})
	}

	m.correctDrift(m.game, captureTime)
	if m.micActive {
		m.correctDrift(m.mic, captureTime-m.micZero)
	}

	frames := m.game.queue.Len() / audio.StereoChannels
	if m.micActive {
		if micFrames := m.mic.queue.Len() / audio.StereoChannels; micFrames < frames {
			frames = micFrames
		}
	}
	blocks := frames / m.cfg.BlockFrames
	if blocks == 0 {
		return m.out.Samples()
	}

	if maxBlocks := m.out.Free() / m.blockSamples; blocks > maxBlocks {
		m.truncations++
		log.Printf("Warning: mixed output full, emitting %d of %d available blocks", maxBlocks, blocks)
		blocks = maxBlocks
	}

	n := blocks * m.blockSamples
	game := m.game.queue.Samples()[:n]
	var mic []float32
	if m.micActive {
		mic = m.mic.queue.Samples()[:n]
	}

	if !m.out.TryAppendSlice(m.limitInto(game, mic)) {
		m.truncations++
		log.Printf("Error: failed to build mixed block of %d samples, nothing emitted", n)
		return m.out.Samples()
	}

	m.game.queue.Skip(n)
	if m.micActive {
		m.mic.queue.Skip(n)
	}
	m.blocks += int64(n / m.blockSamples)

	return m.out.Samples()
}

// limitInto sums and limits into scratch storage
func (m *Mixer) limitInto(game, mic []float32) []float32 {
	if cap(m.scratch) < len(game) {
		m.scratch = make([]float32, len(game))
	}
	dst := m.scratch[:len(game)]
	for i := range game {
		sum := game[i]
		if mic != nil {
			sum += mic[i]
		}
		dst[i] = m.cfg.Limiter(sum)
	}
	return dst
}

// enqueue applies the startup trim, gain and mute, then appends to the channel queue
func (m *Mixer) enqueue(ch *channel, samples []float32) {
	if ch == m.game && m.pendingTrim > 0 {
		trim := m.pendingTrim
		if trim > len(samples) {
			trim = len(samples)
		}
		trim &^= 1
		m.pendingTrim -= trim
		ch.total += int64(trim / audio.StereoChannels)
		samples = samples[trim:]
	}
	if len(samples) == 0 {
		return
	}

	var ok bool
	if ch.muted {
		ch.updateLevel(0)
		ok = ch.queue.AppendSilence(len(samples))
	} else {
		if cap(m.scratch) < len(samples) {
			m.scratch = make([]float32, len(samples))
		}
		scaled := m.scratch[:len(samples)]
		for i, s := range samples {
			scaled[i] = s * ch.gain
		}
		ch.updateLevel(audio.RMS(scaled))
		ok = ch.queue.TryAppendSlice(scaled)
	}

	if !ok {
		ch.dropped += int64(len(samples))
		log.Printf("Warning: %s queue full (%d/%d samples), losing data, assume lag spike",
			ch.source.Name(), ch.queue.Len(), ch.queue.Cap())
		return
	}
	ch.total += int64(len(samples) / audio.StereoChannels)
}

// correctDrift pads a source that fell behind the capture clock. Real samples are never removed.
func (m *Mixer) correctDrift(ch *channel, elapsed float64) {
	c := ch.tracker.Observe(elapsed, ch.total-ch.offset)
	if c.Action != drift.ActionPad {
		return
	}

	pad := int(c.Samples) * audio.StereoChannels
	if free := ch.queue.Free() &^ 1; pad > free {
		log.Printf("Warning: %s queue can only absorb %d of %d padding samples", ch.source.Name(), free, pad)
		pad = free
	}
	if pad > 0 && ch.queue.AppendSilence(pad) {
		ch.total += int64(pad / audio.StereoChannels)
		ch.padded += int64(pad / audio.StereoChannels)
	}
}
