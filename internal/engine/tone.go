// ABOUTME: Test tone generator
// ABOUTME: Sine wave reader standing in for a game's audio output
package engine

import (
	"math"
	"sync"

	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
)

// Tone generates a sine wave at a fixed frequency
type Tone struct {
	frequency   float64
	amplitude   float64
	format      audio.Format
	sampleIndex uint64
	sampleMu    sync.Mutex
}

// NewTone creates a tone generator. channels may be 1, 2 or 6; every channel
// carries the same signal.
func NewTone(frequency float64, format audio.Format) *Tone {
	if frequency <= 0 {
		frequency = 440.0 // A4 note
	}
	return &Tone{
		frequency: frequency,
		amplitude: 0.5,
		format:    format,
	}
}

// SetAmplitude sets the peak level in [0, 1]
func (s *Tone) SetAmplitude(a float64) {
	s.sampleMu.Lock()
	defer s.sampleMu.Unlock()
	s.amplitude = math.Max(0, math.Min(1, a))
}

// Read fills dst with whole frames and never ends
func (s *Tone) Read(dst []float32) (int, error) {
	s.sampleMu.Lock()
	defer s.sampleMu.Unlock()

	channels := s.format.Channels
	numFrames := len(dst) / channels

	for i := 0; i < numFrames; i++ {
		t := float64(s.sampleIndex+uint64(i)) / float64(s.format.SampleRate)
		sample := float32(s.amplitude * math.Sin(2*math.Pi*s.frequency*t))
		for ch := 0; ch < channels; ch++ {
			dst[i*channels+ch] = sample
		}
	}

	s.sampleIndex += uint64(numFrames)
	return numFrames * channels, nil
}

// Format returns the generated format
func (s *Tone) Format() audio.Format { return s.format }

// Close is a no-op
func (s *Tone) Close() error { return nil }
