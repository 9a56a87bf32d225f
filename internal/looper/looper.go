// ABOUTME: Per-frame encode loop keeping the video and audio timelines coherent
// ABOUTME: Explicit state machine driven by Tick once per application frame
package looper

import (
	"fmt"
	"log"
	"math"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/resonate-capture/internal/capture"
	"github.com/Resonate-Protocol/resonate-capture/internal/events"
	"github.com/Resonate-Protocol/resonate-capture/internal/telemetry"
)

// State is the looper's lifecycle state
type State int

const (
	StateIdle State = iota
	StateWarmingUp
	StateRunning
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWarmingUp:
		return "warming up"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config holds looper parameters
type Config struct {
	SampleRate        int
	Channels          int
	BlockFrames       int
	WarmupFrames      int
	LagSpikeThreshold time.Duration
	MaxDesync         time.Duration
	MinIncrement      time.Duration
}

// DefaultConfig returns the standard configuration
func DefaultConfig() Config {
	return Config{
		SampleRate:        48000,
		Channels:          2,
		BlockFrames:       1024,
		WarmupFrames:      3,
		LagSpikeThreshold: time.Second,
		MaxDesync:         300 * time.Millisecond,
		MinIncrement:      time.Millisecond,
	}
}

// Stats is a snapshot of looper counters
type Stats struct {
	State         State
	Frames        int64
	EncodedFrames int64
	LagSpikes     int
	Corrections   int
	Failures      int
	VideoTime     float64
	PausedTime    float64
}

const (
	requestNone int32 = iota
	requestStart
	requestStop
)

// Looper drives the encoder once per application frame. All methods except the
// bus handlers belong to the frame goroutine.
type Looper struct {
	cfg     Config
	encoder Encoder
	video   Video
	mixer   AudioMixer
	sink    telemetry.Sink

	state      State
	warmup     int
	firstFrame bool

	videoTime         float64
	prevVideoTime     float64
	pausedAccumulator float64

	silence []float32
	stats   Stats

	pending atomic.Int32
	bus     *events.Bus
	sub     events.Subscription
}

// New creates an idle looper
func New(cfg Config, encoder Encoder, video Video, mixer AudioMixer, sink telemetry.Sink) (*Looper, error) {
	if encoder == nil || mixer == nil {
		return nil, fmt.Errorf("looper requires an encoder and a mixer")
	}
	if cfg.SampleRate <= 0 || cfg.Channels <= 0 || cfg.BlockFrames <= 0 {
		return nil, fmt.Errorf("invalid audio format: %d Hz, %d channels, %d-frame blocks",
			cfg.SampleRate, cfg.Channels, cfg.BlockFrames)
	}
	if cfg.WarmupFrames < 0 {
		cfg.WarmupFrames = 0
	}
	if video == nil {
		video = NoVideo{}
	}
	if sink == nil {
		sink = telemetry.LogSink{}
	}

	return &Looper{
		cfg:     cfg,
		encoder: encoder,
		video:   video,
		mixer:   mixer,
		sink:    sink,
		silence: make([]float32, cfg.BlockFrames*cfg.Channels),
	}, nil
}

// Attach subscribes to encoder lifecycle events. Handlers only record a request;
// the next Tick applies it on the frame goroutine.
func (l *Looper) Attach(bus *events.Bus) {
	l.Detach()
	l.bus = bus
	l.sub = bus.Encoder.Subscribe(func(e events.EncoderEvent) {
		switch e.Kind {
		case events.EncoderStarted:
			l.pending.Store(requestStart)
		case events.EncoderStopped, events.EncoderFailed:
			l.pending.Store(requestStop)
		}
	})
}

// Detach removes the bus subscription
func (l *Looper) Detach() {
	if l.bus != nil {
		l.bus.Encoder.Unsubscribe(l.sub)
		l.bus = nil
	}
}

// Start begins warmup for a new encoder session
func (l *Looper) Start() {
	if l.state != StateIdle {
		return
	}
	l.state = StateWarmingUp
	l.warmup = 0
	l.videoTime = 0
	l.prevVideoTime = 0
	l.pausedAccumulator = 0
	l.stats = Stats{State: StateWarmingUp}
	log.Printf("Encode looper warming up (%d forced frames)", l.cfg.WarmupFrames)
}

// Stop returns to idle and stops audio capture
func (l *Looper) Stop() {
	if l.state == StateIdle {
		return
	}
	wasCapturing := l.state != StateWarmingUp
	l.state = StateIdle
	l.stats.State = StateIdle
	if wasCapturing {
		l.mixer.DisableCapture()
	}
	log.Printf("Encode looper stopped at %.3fs (%d frames encoded)", l.videoTime, l.stats.EncodedFrames)
}

// State returns the current state
func (l *Looper) State() State { return l.state }

// VideoTime returns the timeline position in seconds
func (l *Looper) VideoTime() float64 { return l.videoTime }

// Stats returns a snapshot
func (l *Looper) Stats() Stats {
	s := l.stats
	s.State = l.state
	s.VideoTime = l.videoTime
	s.PausedTime = l.pausedAccumulator
	return s
}

// Tick runs once per application frame with the frame's wall-clock delta
func (l *Looper) Tick(delta time.Duration) {
	switch l.pending.Swap(requestNone) {
	case requestStart:
		// A stop may have been overwritten by the start of the next session
		if l.state != StateIdle {
			log.Printf("Encoder session restarted, resetting encode looper")
			l.Stop()
		}
		l.Start()
	case requestStop:
		l.Stop()
	}

	if l.state == StateIdle {
		return
	}
	if !l.encoder.IsActive() {
		log.Printf("Encoder no longer active, stopping encode looper")
		l.Stop()
		return
	}

	if l.state == StateWarmingUp {
		l.tickWarmup()
		return
	}
	l.tickRunning(delta)
}

func (l *Looper) tickWarmup() {
	if l.warmup < l.cfg.WarmupFrames {
		l.video.CaptureFrame(true)
		l.warmup++
		if l.warmup < l.cfg.WarmupFrames {
			return
		}
	}

	l.videoTime = 0
	l.prevVideoTime = 0
	l.pausedAccumulator = 0
	l.firstFrame = true
	l.mixer.EnableCapture()
	l.state = StateRunning
	log.Printf("Encode looper running")
}

func (l *Looper) tickRunning(delta time.Duration) {
	l.stats.Frames++

	if delta < 0 {
		delta = 0
	}
	elapsed := delta.Seconds()

	mixed := l.mixer.GetMixedAudio(l.videoTime + l.pausedAccumulator)

	if delta > l.cfg.LagSpikeThreshold {
		clamped := float64(len(mixed)) / float64(l.cfg.SampleRate*l.cfg.Channels)
		log.Printf("Warning: lag spike of %v, advancing timeline by %.3fs of available audio", delta, clamped)
		elapsed = clamped
		l.stats.LagSpikes++
	}

	if l.encoder.IsPaused() {
		if l.state != StatePaused {
			l.state = StatePaused
			log.Printf("Encoding paused at %.3fs", l.videoTime)
		}
		l.pausedAccumulator += delta.Seconds()
		return
	}
	if l.state == StatePaused {
		l.state = StateRunning
		log.Printf("Encoding resumed at %.3fs after %.3fs paused", l.videoTime, l.pausedAccumulator)
	}

	session := l.encoder.SessionData()

	if l.firstFrame {
		l.firstFrame = false
		if session.EncodedAudioSamplesPerChannel == 0 && len(mixed) == 0 {
			mixed = l.silence
		}
	}

	audioTime := float64(session.EncodedAudioSamplesPerChannel) / float64(l.cfg.SampleRate)
	if math.Abs(l.videoTime-audioTime) > l.cfg.MaxDesync.Seconds() {
		corrected := math.Max(audioTime, l.prevVideoTime+l.cfg.MinIncrement.Seconds())
		log.Printf("Error: video time %.3fs and audio time %.3fs out of sync, correcting video time to %.3fs",
			l.videoTime, audioTime, corrected)
		l.videoTime = corrected
		l.stats.Corrections++
	}

	encodeVideo := l.video.CaptureFrame(false)
	if err := l.encode(mixed, encodeVideo); err != nil {
		l.fail(session, err)
		return
	}
	l.stats.EncodedFrames++

	l.prevVideoTime = l.videoTime
	l.videoTime += elapsed
}

// encode submits a frame, converting encoder panics into a typed fault
func (l *Looper) encode(mixed []float32, encodeVideo bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = capture.NewError(capture.KindEncoderFault, fmt.Sprintf("encoder panic: %v", r), nil)
		}
	}()

	if err := l.encoder.EncodeFrame(l.videoTime, mixed, encodeVideo); err != nil {
		return capture.NewError(capture.KindEncodeFailed, fmt.Sprintf("frame at %.3fs", l.videoTime), err)
	}
	return nil
}

// fail ends the session: no retries mid-session
func (l *Looper) fail(session SessionData, err error) {
	l.stats.Failures++
	log.Printf("Error: failed to encode frame at %.3fs, stopping capture: %v", l.videoTime, err)

	l.sink.Report(telemetry.Event{
		Name:        "encode_failed",
		SessionID:   session.SessionID,
		CaptureTime: l.videoTime,
		Err:         err,
		Fields: map[string]any{
			"kind":          capture.KindOf(err).String(),
			"video_frames":  session.EncodedVideoFrames,
			"audio_samples": session.EncodedAudioSamplesPerChannel,
		},
	})

	encoder := l.encoder
	go encoder.Stop()

	l.Stop()
}
