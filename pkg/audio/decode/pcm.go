// ABOUTME: Raw PCM reader
// ABOUTME: Reads 16-bit little-endian interleaved PCM from any io.Reader
package decode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
)

// PCMReader decodes headerless s16le PCM
type PCMReader struct {
	r      io.Reader
	format audio.Format
	buf    []byte
}

// NewPCM wraps r, which must yield s16le samples in the given format
func NewPCM(r io.Reader, format audio.Format) (*PCMReader, error) {
	if format.SampleRate <= 0 || format.Channels <= 0 {
		return nil, fmt.Errorf("invalid PCM format: %dHz %d channels", format.SampleRate, format.Channels)
	}
	return &PCMReader{r: r, format: format}, nil
}

func (p *PCMReader) Read(dst []float32) (int, error) {
	numBytes := len(dst) * 2
	if cap(p.buf) < numBytes {
		p.buf = make([]byte, numBytes)
	}
	buf := p.buf[:numBytes]

	n, err := io.ReadFull(p.r, buf)
	numSamples := n / 2
	for i := 0; i < numSamples; i++ {
		dst[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(buf[i*2:])))
	}

	if err == io.ErrUnexpectedEOF {
		err = nil
	}
	if err == io.EOF && numSamples > 0 {
		err = nil
	}
	return numSamples, err
}

func (p *PCMReader) Format() audio.Format { return p.format }

// Close closes the underlying reader if it is an io.Closer
func (p *PCMReader) Close() error {
	if c, ok := p.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
