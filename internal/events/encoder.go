// ABOUTME: Encoder lifecycle events
// ABOUTME: Bus carrying encoder start, stop and failure notifications
package events

// EncoderEventKind tags an encoder lifecycle event
type EncoderEventKind int

const (
	EncoderStarted EncoderEventKind = iota
	EncoderStopped
	EncoderFailed
	EncoderPaused
	EncoderResumed
)

func (k EncoderEventKind) String() string {
	switch k {
	case EncoderStarted:
		return "started"
	case EncoderStopped:
		return "stopped"
	case EncoderFailed:
		return "failed"
	case EncoderPaused:
		return "paused"
	case EncoderResumed:
		return "resumed"
	default:
		return "unknown"
	}
}

// EncoderEvent is published by the encoder collaborator
type EncoderEvent struct {
	Kind      EncoderEventKind
	SessionID string
	Err       error
}

// Bus groups the topics shared by the capture subsystem
type Bus struct {
	Encoder Topic[EncoderEvent]
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{}
}
