// ABOUTME: Opus audio encoder
// ABOUTME: Re-frames mixer blocks into 20ms Opus frames
package encode

import (
	"fmt"
	"log"

	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// maxOpusPacket is the largest packet libopus will produce
const maxOpusPacket = 4000

// OpusEncoder encodes Opus audio
type OpusEncoder struct {
	encoder   *opus.Encoder
	format    audio.Format
	frameSize int // samples per channel per frame
	pending   []float32
}

// NewOpus creates a new Opus encoder. bitrate <= 0 uses 64 kbps per channel.
func NewOpus(format audio.Format, bitrate int) (*OpusEncoder, error) {
	encoder, err := opus.NewEncoder(format.SampleRate, format.Channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}

	if bitrate <= 0 {
		bitrate = 64000 * format.Channels
	}
	if err := encoder.SetBitrate(bitrate); err != nil {
		log.Printf("Warning: Failed to set Opus bitrate: %v", err)
	}

	return &OpusEncoder{
		encoder:   encoder,
		format:    format,
		frameSize: format.SampleRate / 50, // 20ms frame
	}, nil
}

// FrameSize returns samples per channel per Opus frame
func (e *OpusEncoder) FrameSize() int { return e.frameSize }

// Encode buffers samples and encodes every complete 20ms frame
func (e *OpusEncoder) Encode(samples []float32) ([][]byte, error) {
	e.pending = append(e.pending, samples...)

	frameSamples := e.frameSize * e.format.Channels
	var packets [][]byte
	for len(e.pending) >= frameSamples {
		packet, err := e.encodeFrame(e.pending[:frameSamples])
		if err != nil {
			return packets, err
		}
		packets = append(packets, packet)
		e.pending = e.pending[frameSamples:]
	}

	// Keep the backing array from growing without bound
	if len(e.pending) == 0 {
		e.pending = e.pending[:0:0]
	}

	return packets, nil
}

// Flush pads the last partial frame with silence
func (e *OpusEncoder) Flush() ([][]byte, error) {
	if len(e.pending) == 0 {
		return nil, nil
	}
	frame := make([]float32, e.frameSize*e.format.Channels)
	copy(frame, e.pending)
	e.pending = nil

	packet, err := e.encodeFrame(frame)
	if err != nil {
		return nil, err
	}
	return [][]byte{packet}, nil
}

func (e *OpusEncoder) encodeFrame(pcm []float32) ([]byte, error) {
	data := make([]byte, maxOpusPacket)
	n, err := e.encoder.EncodeFloat32(pcm, data)
	if err != nil {
		return nil, fmt.Errorf("opus encode error: %w", err)
	}
	return data[:n], nil
}

func (e *OpusEncoder) Codec() string { return "opus" }

// Close releases resources
func (e *OpusEncoder) Close() error {
	// opus.Encoder doesn't have a Close method, nothing to do
	return nil
}
