// ABOUTME: Encoder interface definition
// ABOUTME: Common interface for all block encoders plus codec dispatch
package encode

import (
	"fmt"

	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
)

// Encoder encodes interleaved float32 samples to packets
type Encoder interface {
	// Encode consumes samples and returns any packets that became complete
	Encode(samples []float32) ([][]byte, error)

	// Flush pads buffered samples with silence and returns the final packets
	Flush() ([][]byte, error)

	// Codec returns the codec name
	Codec() string

	// Close releases encoder resources
	Close() error
}

// New creates an encoder for the named codec
func New(codec string, format audio.Format, bitrate int) (Encoder, error) {
	switch codec {
	case "opus":
		return NewOpus(format, bitrate)
	case "pcm":
		return NewPCM(format)
	default:
		return nil, fmt.Errorf("unsupported codec: %s (supported: opus, pcm)", codec)
	}
}
