// ABOUTME: FLAC file reader
// ABOUTME: Decodes FLAC frames via mewkiz/flac, keeping the native channel layout
package decode

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
	"github.com/mewkiz/flac"
)

// FLACReader reads from a FLAC file
type FLACReader struct {
	file     *os.File
	stream   *flac.Stream
	format   audio.Format
	bitDepth int
	loop     bool

	// decoded samples of the current frame not yet handed out
	pending []float32
}

// OpenFLAC opens a FLAC file
func OpenFLAC(path string, loop bool) (*FLACReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}

	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	format := audio.Format{SampleRate: int(info.SampleRate), Channels: int(info.NChannels)}

	log.Printf("Loaded FLAC: %s (sample rate: %d Hz, channels: %d, bit depth: %d)",
		path, format.SampleRate, format.Channels, info.BitsPerSample)

	return &FLACReader{
		file:     f,
		stream:   stream,
		format:   format,
		bitDepth: int(info.BitsPerSample),
		loop:     loop,
	}, nil
}

func (r *FLACReader) Read(dst []float32) (int, error) {
	read := 0
	for read < len(dst) {
		if len(r.pending) > 0 {
			n := copy(dst[read:], r.pending)
			r.pending = r.pending[n:]
			read += n
			continue
		}

		frame, err := r.stream.ParseNext()
		if err == io.EOF {
			if !r.loop {
				if read > 0 {
					return read, nil
				}
				return 0, io.EOF
			}
			if err := r.rewind(); err != nil {
				return read, err
			}
			continue
		}
		if err != nil {
			return read, fmt.Errorf("flac decode error: %w", err)
		}

		channels := r.format.Channels
		pending := r.pending[:0]
		for i := 0; i < int(frame.BlockSize); i++ {
			for ch := 0; ch < channels; ch++ {
				pending = append(pending, audio.SampleFromInt32(frame.Subframes[ch].Samples[i], r.bitDepth))
			}
		}
		r.pending = pending
	}

	return read, nil
}

// rewind restarts the stream from the beginning of the file
func (r *FLACReader) rewind() error {
	if _, err := r.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}
	stream, err := flac.New(r.file)
	if err != nil {
		return fmt.Errorf("failed to create new stream: %w", err)
	}
	r.stream = stream
	return nil
}

func (r *FLACReader) Format() audio.Format { return r.format }

func (r *FLACReader) Close() error {
	return r.file.Close()
}
