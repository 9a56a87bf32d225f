// ABOUTME: Audio output package for monitoring the mixed stream
// ABOUTME: Provides Output interface and oto implementation
// Package output plays mixed capture audio back for monitoring.
//
// Writes never block the caller: blocks are queued to a playback goroutine and
// dropped if the device falls behind.
//
// Example:
//
//	out := output.NewOto()
//	err := out.Open(48000, 2)
//	err = out.Write(block)
package output
