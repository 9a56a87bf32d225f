// ABOUTME: MP3 file reader
// ABOUTME: Decodes MP3 to float32 stereo via go-mp3
package decode

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// MP3Reader reads from an MP3 file
type MP3Reader struct {
	file    *os.File
	decoder *mp3.Decoder
	format  audio.Format
	loop    bool
	buf     []byte
}

// OpenMP3 opens an MP3 file
func OpenMP3(path string, loop bool) (*MP3Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	log.Printf("Loaded MP3: %s (sample rate: %d Hz)", path, decoder.SampleRate())

	return &MP3Reader{
		file:    f,
		decoder: decoder,
		// go-mp3 always outputs 16-bit stereo
		format: audio.Format{SampleRate: decoder.SampleRate(), Channels: 2},
		loop:   loop,
	}, nil
}

func (r *MP3Reader) Read(dst []float32) (int, error) {
	numBytes := len(dst) * 2
	if cap(r.buf) < numBytes {
		r.buf = make([]byte, numBytes)
	}
	buf := r.buf[:numBytes]

	n, err := io.ReadFull(r.decoder, buf)
	numSamples := n / 2
	for i := 0; i < numSamples; i++ {
		dst[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(buf[i*2:])))
	}

	if err == io.EOF || err == io.ErrUnexpectedEOF {
		if !r.loop {
			if numSamples > 0 {
				return numSamples, nil
			}
			return 0, io.EOF
		}
		if _, seekErr := r.decoder.Seek(0, io.SeekStart); seekErr != nil {
			return numSamples, fmt.Errorf("failed to seek to start: %w", seekErr)
		}
		return numSamples, nil
	}
	if err != nil {
		return numSamples, fmt.Errorf("mp3 decode error: %w", err)
	}

	return numSamples, nil
}

func (r *MP3Reader) Format() audio.Format { return r.format }

func (r *MP3Reader) Close() error {
	return r.file.Close()
}
