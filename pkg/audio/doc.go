// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, SampleBuffer, channel remixing and limiter transfer functions
// Package audio provides the sample-level building blocks of the capture mixer.
//
// This package defines:
//   - Format: sample rate and channel count of a PCM stream
//   - SampleBuffer: a bounded, reusable linear buffer of interleaved float32 samples
//   - Remixing: mono and 5.1 down-mix to stereo
//   - Limiter: soft-knee, hard-knee and bypass peak limiting
//
// Samples are float32 in the nominal range [-1, 1]. The mixer only ever sees stereo.
//
// Example:
//
//	buf := audio.NewSampleBuffer(48000)
//	stereo, err := audio.RemixToStereo(nil, monoSamples, 1)
//	if err == nil && !buf.TryAppendSlice(stereo) {
//	    log.Printf("Warning: buffer full, losing data")
//	}
package audio
