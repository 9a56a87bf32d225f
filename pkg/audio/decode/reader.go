// ABOUTME: Reader interface definition and file dispatch
// ABOUTME: Picks a decoder by file extension
package decode

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
)

// Reader streams decoded PCM samples
type Reader interface {
	// Read fills dst with interleaved samples at the native channel count.
	// Returns the number of samples read; io.EOF once a non-looping stream ends.
	Read(dst []float32) (int, error)

	// Format returns the native sample rate and channel count
	Format() audio.Format

	// Close releases the underlying file
	Close() error
}

// Open creates a Reader for an audio file. Looping readers restart at EOF.
func Open(path string, loop bool) (Reader, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("audio file not found: %s", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".mp3":
		return OpenMP3(path, loop)
	case ".flac":
		return OpenFLAC(path, loop)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s (supported: .mp3, .flac)", ext)
	}
}
