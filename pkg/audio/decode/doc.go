// ABOUTME: Audio decoder package for file-backed capture sources
// ABOUTME: Provides the Reader interface plus MP3, FLAC, raw PCM and Opus packet decoding
// Package decode turns encoded audio into interleaved float32 samples.
//
// Supports: MP3 (go-mp3), FLAC (mewkiz/flac), raw 16-bit little-endian PCM, and
// Opus packets as written by the recorder.
//
// Readers keep the file's native channel count; callers remix to stereo.
//
// Example:
//
//	r, err := decode.Open("intro.flac", true)
//	n, err := r.Read(samples)
package decode
