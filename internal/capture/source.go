// ABOUTME: Lock-guarded audio source bridging engine callbacks to the mixer
// ABOUTME: Producers append remixed stereo under the lock; the mixer drains once per frame
package capture

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
)

// Path identifies an independent producer feeding one source
type Path int

const (
	// PathNative is the engine's own audio output (or a capture device)
	PathNative Path = iota
	// PathMiddleware is an audio middleware bus mixed on top of the native path
	PathMiddleware

	numPaths
)

func (p Path) String() string {
	switch p {
	case PathNative:
		return "native"
	case PathMiddleware:
		return "middleware"
	default:
		return fmt.Sprintf("Path(%d)", int(p))
	}
}

// pathBuffer is the raw capture buffer of one producer path
type pathBuffer struct {
	buf     *audio.SampleBuffer
	scratch []float32
	seen    bool // written since capture was enabled
	dropped int64
	badLog  bool // unsupported layout already logged
}

// Source buffers audio from one logical input (game audio or microphone).
// Write may be called from any goroutine; every other method belongs to the
// consuming frame goroutine. All buffer access happens under one mutex.
type Source struct {
	name string

	mu        sync.Mutex
	capturing bool
	paths     [numPaths]*pathBuffer
	mixed     []float32
}

// NewSource creates a source with one capture buffer of capacity samples per path.
// With no paths given, only PathNative is used.
func NewSource(name string, capacity int, paths ...Path) *Source {
	if len(paths) == 0 {
		paths = []Path{PathNative}
	}
	s := &Source{name: name}
	for _, p := range paths {
		if p < 0 || p >= numPaths || s.paths[p] != nil {
			continue
		}
		s.paths[p] = &pathBuffer{buf: audio.NewSampleBuffer(capacity)}
	}
	return s
}

// NewGameSource creates the game-audio source fed by both the native and middleware paths
func NewGameSource(capacity int) *Source {
	return NewSource("game", capacity, PathNative, PathMiddleware)
}

// NewMicrophoneSource creates the microphone source
func NewMicrophoneSource(capacity int) *Source {
	return NewSource("microphone", capacity, PathNative)
}

// Name returns the source name used in logs
func (s *Source) Name() string { return s.name }

// EnableCapture starts accepting producer data from an empty buffer
func (s *Source) EnableCapture() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capturing = true
	s.resetLocked()
}

// DisableCapture stops accepting producer data and discards anything buffered
func (s *Source) DisableCapture() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capturing = false
	s.resetLocked()
}

// IsCapturing reports whether producer data is being accepted
func (s *Source) IsCapturing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capturing
}

func (s *Source) resetLocked() {
	for _, p := range s.paths {
		if p == nil {
			continue
		}
		p.buf.Clear()
		p.seen = false
	}
}

// Write is the producer entry point. samples are interleaved with the given channel
// count and are remixed to stereo before buffering. A full buffer drops the whole
// write and returns a KindBufferFull error; the source keeps running.
func (s *Source) Write(path Path, samples []float32, channels int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.capturing {
		return nil
	}
	if path < 0 || path >= numPaths || s.paths[path] == nil {
		return fmt.Errorf("%s source has no %s path", s.name, path)
	}
	p := s.paths[path]

	stereo, err := audio.RemixToStereo(p.scratch[:0], samples, channels)
	if err != nil {
		if !p.badLog {
			log.Printf("Error: %s %s capture rejected: %v", s.name, path, err)
			p.badLog = true
		}
		if errors.Is(err, audio.ErrUnsupportedChannels) {
			return NewError(KindUnsupportedChannels, fmt.Sprintf("%s %s path sent %d channels", s.name, path, channels), err)
		}
		return err
	}
	p.scratch = stereo
	p.badLog = false

	if !p.buf.TryAppendSlice(stereo) {
		p.dropped += int64(len(stereo))
		log.Printf("Warning: %s %s capture buffer full (%d/%d samples), losing data, assume lag spike",
			s.name, path, p.buf.Len(), p.buf.Cap())
		return NewError(KindBufferFull, fmt.Sprintf("%s %s path dropped %d samples", s.name, path, len(stereo)), nil)
	}
	p.seen = true

	return nil
}

// PullAvailable hands everything buffered to fn and clears it. fn runs under the
// source lock and must not retain the slice. When two paths are producing, they are
// summed sample by sample up to their common length and the longer path's remainder
// is kept for the next pull.
func (s *Source) PullAvailable(fn func(samples []float32)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var active []*pathBuffer
	for _, p := range s.paths {
		if p != nil && p.seen {
			active = append(active, p)
		}
	}

	switch len(active) {
	case 0:
		return
	case 1:
		p := active[0]
		if p.buf.Len() > 0 {
			fn(p.buf.Samples())
		}
		p.buf.Clear()
		return
	}

	n := active[0].buf.Len()
	for _, p := range active[1:] {
		if l := p.buf.Len(); l < n {
			n = l
		}
	}
	n &^= 1
	if n == 0 {
		return
	}

	if cap(s.mixed) < n {
		s.mixed = make([]float32, n)
	}
	mixed := s.mixed[:n]
	copy(mixed, active[0].buf.Samples()[:n])
	for _, p := range active[1:] {
		src := p.buf.Samples()[:n]
		for i := range mixed {
			mixed[i] += src[i]
		}
	}

	fn(mixed)

	for _, p := range active {
		p.buf.Skip(n)
	}
}

// Buffered returns the number of samples waiting in each path
func (s *Source) Buffered() map[Path]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[Path]int)
	for i, p := range s.paths {
		if p != nil {
			out[Path(i)] = p.buf.Len()
		}
	}
	return out
}

// Dropped returns how many samples were lost to full buffers since creation
func (s *Source) Dropped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, p := range s.paths {
		if p != nil {
			total += p.dropped
		}
	}
	return total
}
