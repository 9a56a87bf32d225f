// ABOUTME: Reference encoder collaborator for the encode looper
// ABOUTME: Encodes mixed audio to Opus or PCM packets, tracks session data and publishes lifecycle events
package recorder

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/Resonate-Protocol/resonate-capture/internal/events"
	"github.com/Resonate-Protocol/resonate-capture/internal/looper"
	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
	"github.com/Resonate-Protocol/resonate-capture/pkg/audio/encode"
	"github.com/Resonate-Protocol/resonate-capture/pkg/audio/output"
	"github.com/google/uuid"
)

// Config holds recorder parameters
type Config struct {
	Codec   string
	Format  audio.Format
	Bitrate int
}

// Recorder implements looper.Encoder. EncodeFrame runs on the frame goroutine,
// Stop may run anywhere.
type Recorder struct {
	cfg     Config
	bus     *events.Bus
	monitor output.Output

	mu        sync.Mutex
	w         *bufio.Writer
	closer    io.Closer
	enc       encode.Encoder
	active    bool
	paused    bool
	sessionID string
	data      looper.SessionData
	position  uint64 // samples per channel handed to the encoder
}

// New creates an idle recorder. bus and monitor may be nil.
func New(cfg Config, bus *events.Bus, monitor output.Output) (*Recorder, error) {
	if cfg.Format.SampleRate <= 0 || cfg.Format.Channels <= 0 {
		return nil, fmt.Errorf("invalid recorder format: %d Hz, %d channels", cfg.Format.SampleRate, cfg.Format.Channels)
	}
	if cfg.Codec == "" {
		cfg.Codec = "opus"
	}
	return &Recorder{cfg: cfg, bus: bus, monitor: monitor}, nil
}

// Start begins a session writing to w. If w is an io.Closer it is closed on Stop.
func (r *Recorder) Start(w io.Writer) error {
	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		return fmt.Errorf("recorder already active")
	}

	enc, err := encode.New(r.cfg.Codec, r.cfg.Format, r.cfg.Bitrate)
	if err != nil {
		r.mu.Unlock()
		return fmt.Errorf("failed to create encoder: %w", err)
	}

	sessionID := uuid.NewString()
	bw := bufio.NewWriter(w)
	if err := WriteHeader(bw, Header{Codec: enc.Codec(), Format: r.cfg.Format, SessionID: sessionID}); err != nil {
		enc.Close()
		r.mu.Unlock()
		return err
	}

	if r.monitor != nil {
		if err := r.monitor.Open(r.cfg.Format.SampleRate, r.cfg.Format.Channels); err != nil {
			log.Printf("Warning: monitor playback unavailable: %v", err)
			r.monitor = nil
		}
	}

	r.w = bw
	r.closer, _ = w.(io.Closer)
	r.enc = enc
	r.active = true
	r.paused = false
	r.sessionID = sessionID
	r.data = looper.SessionData{SessionID: sessionID}
	r.position = 0
	r.mu.Unlock()

	log.Printf("Recording session %s started (%s, %d Hz)", sessionID, enc.Codec(), r.cfg.Format.SampleRate)
	r.publish(events.EncoderEvent{Kind: events.EncoderStarted, SessionID: sessionID})
	return nil
}

// IsActive reports whether a session is running
func (r *Recorder) IsActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// IsPaused reports whether the session is paused
func (r *Recorder) IsPaused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

// SetPaused pauses or resumes the session
func (r *Recorder) SetPaused(paused bool) {
	r.mu.Lock()
	if !r.active || r.paused == paused {
		r.mu.Unlock()
		return
	}
	r.paused = paused
	sessionID := r.sessionID
	r.mu.Unlock()

	kind := events.EncoderResumed
	if paused {
		kind = events.EncoderPaused
	}
	r.publish(events.EncoderEvent{Kind: kind, SessionID: sessionID})
}

// SessionData returns the session's progress
func (r *Recorder) SessionData() looper.SessionData {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data
}

// EncodeFrame encodes one frame's mixed audio
func (r *Recorder) EncodeFrame(videoTime float64, samples []float32, encodeVideo bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return fmt.Errorf("recorder not active")
	}

	packets, err := r.enc.Encode(samples)
	if err != nil {
		return fmt.Errorf("failed to encode audio: %w", err)
	}
	if err := r.writePackets(packets); err != nil {
		return err
	}

	frames := int64(len(samples) / r.cfg.Format.Channels)
	r.data.EncodedAudioSamplesPerChannel += frames
	if encodeVideo {
		r.data.EncodedVideoFrames++
	}
	r.data.CaptureTimeSeconds = videoTime

	if r.monitor != nil && len(samples) > 0 {
		if err := r.monitor.Write(samples); err != nil {
			log.Printf("Warning: monitor write failed: %v", err)
		}
	}
	return nil
}

// writePackets lays packets out back to back from the current position. Packet
// positions follow the codec frame size, not the mixer block size.
func (r *Recorder) writePackets(packets [][]byte) error {
	for _, p := range packets {
		if err := WritePacket(r.w, Packet{Position: r.position, Data: p}); err != nil {
			return err
		}
		r.position += uint64(r.packetFrames(p))
	}
	return nil
}

func (r *Recorder) packetFrames(p []byte) int {
	if o, ok := r.enc.(*encode.OpusEncoder); ok {
		return o.FrameSize()
	}
	return len(p) / (2 * r.cfg.Format.Channels)
}

// Stop flushes and ends the session. Safe to call from any goroutine and more than once.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return
	}
	r.active = false
	r.paused = false
	sessionID := r.sessionID

	var stopErr error
	if packets, err := r.enc.Flush(); err != nil {
		stopErr = fmt.Errorf("failed to flush encoder: %w", err)
	} else if err := r.writePackets(packets); err != nil {
		stopErr = err
	}
	if err := r.w.Flush(); err != nil && stopErr == nil {
		stopErr = fmt.Errorf("failed to flush output: %w", err)
	}
	if err := r.enc.Close(); err != nil {
		log.Printf("Warning: encoder close failed: %v", err)
	}
	if r.closer != nil {
		if err := r.closer.Close(); err != nil && stopErr == nil {
			stopErr = fmt.Errorf("failed to close output: %w", err)
		}
	}
	if r.monitor != nil {
		if err := r.monitor.Close(); err != nil {
			log.Printf("Warning: monitor close failed: %v", err)
		}
	}
	data := r.data
	r.mu.Unlock()

	if stopErr != nil {
		log.Printf("Error: recording session %s ended with error: %v", sessionID, stopErr)
		r.publish(events.EncoderEvent{Kind: events.EncoderFailed, SessionID: sessionID, Err: stopErr})
		return
	}
	log.Printf("Recording session %s stopped (%d audio samples per channel, %d video frames, %.3fs)",
		sessionID, data.EncodedAudioSamplesPerChannel, data.EncodedVideoFrames, data.CaptureTimeSeconds)
	r.publish(events.EncoderEvent{Kind: events.EncoderStopped, SessionID: sessionID})
}

func (r *Recorder) publish(e events.EncoderEvent) {
	if r.bus != nil {
		r.bus.Encoder.Publish(e)
	}
}
