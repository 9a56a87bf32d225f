// ABOUTME: Typed capture errors
// ABOUTME: Error kinds surfaced across the capture subsystem boundary
package capture

import (
	"errors"
	"fmt"
)

// ErrorKind enumerates the failure classes of the capture subsystem
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindMicrophonePermissionDenied
	KindUnsupportedChannels
	KindBufferFull
	KindEncodeFailed
	KindEncoderFault
	KindDevice
)

func (k ErrorKind) String() string {
	switch k {
	case KindMicrophonePermissionDenied:
		return "microphone_permission_denied"
	case KindUnsupportedChannels:
		return "unsupported_channels"
	case KindBufferFull:
		return "buffer_full"
	case KindEncodeFailed:
		return "encode_failed"
	case KindEncoderFault:
		return "encoder_fault"
	case KindDevice:
		return "device"
	default:
		return "unknown"
	}
}

// Error is the result type for capture failures
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is
var (
	ErrMicrophonePermissionDenied = &Error{Kind: KindMicrophonePermissionDenied, Message: "microphone permission denied"}
	ErrUnsupportedChannels        = &Error{Kind: KindUnsupportedChannels, Message: "unsupported channel count"}
	ErrBufferFull                 = &Error{Kind: KindBufferFull, Message: "capture buffer full"}
	ErrEncodeFailed               = &Error{Kind: KindEncodeFailed, Message: "encode frame failed"}
	ErrEncoderFault               = &Error{Kind: KindEncoderFault, Message: "encoder fault"}
)

// NewError builds an Error of the given kind
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
