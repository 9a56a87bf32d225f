// ABOUTME: PCM audio encoder
// ABOUTME: Encodes float32 samples to 16-bit little-endian PCM
package encode

import (
	"encoding/binary"
	"fmt"

	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
)

// PCMEncoder encodes PCM audio
type PCMEncoder struct {
	format audio.Format
}

// NewPCM creates a new PCM encoder
func NewPCM(format audio.Format) (*PCMEncoder, error) {
	if format.Channels <= 0 {
		return nil, fmt.Errorf("invalid channel count: %d", format.Channels)
	}
	return &PCMEncoder{format: format}, nil
}

// Encode converts samples to one s16le packet
func (e *PCMEncoder) Encode(samples []float32) ([][]byte, error) {
	if len(samples) == 0 {
		return nil, nil
	}
	output := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(output[i*2:], uint16(audio.SampleToInt16(sample)))
	}
	return [][]byte{output}, nil
}

// Flush is a no-op; PCM never buffers
func (e *PCMEncoder) Flush() ([][]byte, error) { return nil, nil }

func (e *PCMEncoder) Codec() string { return "pcm" }

// Close releases resources
func (e *PCMEncoder) Close() error {
	return nil
}
