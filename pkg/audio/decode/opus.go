// ABOUTME: Opus packet decoder
// ABOUTME: Decodes recorder Opus packets back to float32 samples
package decode

import (
	"fmt"

	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// maxOpusFrameMs is the longest frame an Opus packet can carry
const maxOpusFrameMs = 120

// OpusDecoder decodes Opus packets
type OpusDecoder struct {
	decoder *opus.Decoder
	format  audio.Format
	pcm     []float32
}

// NewOpus creates a new Opus decoder
func NewOpus(format audio.Format) (*OpusDecoder, error) {
	dec, err := opus.NewDecoder(format.SampleRate, format.Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}

	return &OpusDecoder{
		decoder: dec,
		format:  format,
		pcm:     make([]float32, format.SampleRate*maxOpusFrameMs/1000*format.Channels),
	}, nil
}

// Decode converts one Opus packet to interleaved float32 samples.
// The returned slice is reused by the next call.
func (d *OpusDecoder) Decode(packet []byte) ([]float32, error) {
	n, err := d.decoder.DecodeFloat32(packet, d.pcm)
	if err != nil {
		return nil, fmt.Errorf("opus decode error: %w", err)
	}

	return d.pcm[:n*d.format.Channels], nil
}

// Close releases decoder resources
func (d *OpusDecoder) Close() error {
	return nil
}
