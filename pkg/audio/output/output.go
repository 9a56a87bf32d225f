// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for monitor playback backends
package output

// Output represents an audio output device
type Output interface {
	// Open initializes the output device
	Open(sampleRate, channels int) error

	// Write queues interleaved float32 samples for playback
	Write(samples []float32) error

	// Close releases output resources
	Close() error
}
