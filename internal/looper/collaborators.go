// ABOUTME: Collaborator boundaries of the encode looper
// ABOUTME: Encoder, video capture and mixer interfaces plus session data
package looper

// SessionData is the encoder's progress for the current session. Read-only to the looper.
type SessionData struct {
	SessionID                     string
	EncodedVideoFrames            int64
	EncodedAudioSamplesPerChannel int64
	CaptureTimeSeconds            float64
}

// Encoder is the external video+audio encoder
type Encoder interface {
	IsActive() bool
	IsPaused() bool
	SessionData() SessionData
	// EncodeFrame submits one frame's audio and optionally a video frame at videoTime seconds
	EncodeFrame(videoTime float64, audio []float32, encodeVideo bool) error
	// Stop ends the session; it may block and is called off the frame goroutine
	Stop()
}

// Video captures the rendered image for the frame
type Video interface {
	// CaptureFrame reports whether a fresh frame should be encoded this tick.
	// force captures regardless of the target frame rate.
	CaptureFrame(force bool) bool
}

// AudioMixer produces block-aligned mixed audio
type AudioMixer interface {
	EnableCapture()
	DisableCapture()
	GetMixedAudio(captureTime float64) []float32
}

// NoVideo is used for audio-only sessions
type NoVideo struct{}

// CaptureFrame never requests a video frame
func (NoVideo) CaptureFrame(bool) bool { return false }

// FrameRateVideo paces video capture at a target frame rate from the frame deltas it is fed
type FrameRateVideo struct {
	Interval float64 // seconds between encoded frames
	due      float64
	now      float64
}

// NewFrameRateVideo creates a pacer for fps frames per second
func NewFrameRateVideo(fps float64) *FrameRateVideo {
	if fps <= 0 {
		fps = 60
	}
	return &FrameRateVideo{Interval: 1 / fps}
}

// Advance moves the pacer's clock forward by seconds
func (v *FrameRateVideo) Advance(seconds float64) { v.now += seconds }

// CaptureFrame reports whether a frame is due, or always when forced
func (v *FrameRateVideo) CaptureFrame(force bool) bool {
	if force || v.now >= v.due {
		v.due = v.now + v.Interval
		return true
	}
	return false
}
