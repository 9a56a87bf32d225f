// ABOUTME: Audio encoder package for the recorder
// ABOUTME: Provides Encoder interface and implementations for PCM and Opus
// Package encode turns mixed float32 blocks into codec packets.
//
// Supports: PCM (16-bit little-endian), Opus (20ms frames via libopus)
//
// Mixer blocks are 1024 frames, which does not line up with Opus frame sizes, so
// encoders buffer internally and may return zero or several packets per call.
//
// Example:
//
//	enc, err := encode.New("opus", audio.Stereo(48000), 128000)
//	packets, err := enc.Encode(block)
package encode
