// ABOUTME: Audio type definitions
// ABOUTME: Defines the capture format, block sizing and float sample conversions
package audio

import (
	"math"
	"time"
)

const (
	// DefaultSampleRate is the encoder-facing sample rate
	DefaultSampleRate = 48000

	// StereoChannels is the only channel layout the mixer operates on
	StereoChannels = 2

	// BlockFrames is the number of stereo frames in one encoder block
	BlockFrames = 1024

	// BlockSamples is BlockFrames expressed in interleaved samples
	BlockSamples = BlockFrames * StereoChannels
)

// Format describes a PCM stream
type Format struct {
	SampleRate int
	Channels   int
}

// Stereo returns a stereo format at the given rate
func Stereo(sampleRate int) Format {
	return Format{SampleRate: sampleRate, Channels: StereoChannels}
}

// FramesFor returns the number of frames covering d, rounded down
func (f Format) FramesFor(d time.Duration) int {
	return int(int64(d) * int64(f.SampleRate) / int64(time.Second))
}

// SamplesFor returns the number of interleaved samples covering d, rounded down to whole frames
func (f Format) SamplesFor(d time.Duration) int {
	return f.FramesFor(d) * f.Channels
}

// Duration returns how long the given number of interleaved samples lasts
func (f Format) Duration(samples int) time.Duration {
	if f.SampleRate == 0 || f.Channels == 0 {
		return 0
	}
	frames := int64(samples / f.Channels)
	return time.Duration(frames * int64(time.Second) / int64(f.SampleRate))
}

// SampleFromInt16 converts a 16-bit PCM sample to float in [-1, 1)
func SampleFromInt16(sample int16) float32 {
	return float32(sample) / 32768.0
}

// SampleToInt16 converts a float sample to 16-bit PCM, clamping out-of-range input
func SampleToInt16(sample float32) int16 {
	v := float64(sample) * 32768.0
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// SampleFromInt32 converts a signed integer sample of the given bit depth to float
func SampleFromInt32(sample int32, bitDepth int) float32 {
	if bitDepth <= 0 || bitDepth > 32 {
		return 0
	}
	scale := float64(int64(1) << uint(bitDepth-1))
	return float32(float64(sample) / scale)
}

// RMS returns the root mean square of the samples
func RMS(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return float32(math.Sqrt(sum / float64(len(samples))))
}
