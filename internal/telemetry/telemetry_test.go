// ABOUTME: Tests for telemetry sinks
// ABOUTME: Tests event formatting, recording and fan-out
package telemetry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventString(t *testing.T) {
	e := Event{
		Name:        "encode_failed",
		SessionID:   "abc",
		CaptureTime: 1.5,
		Err:         errors.New("boom"),
		Fields:      map[string]any{"frame": 12, "codec": "opus"},
	}

	assert.Equal(t, `encode_failed session=abc capture_time=1.500s error="boom" codec=opus frame=12`, e.String())
}

func TestRecorderAndFanout(t *testing.T) {
	a := &Recorder{}
	b := &Recorder{}
	var called int
	sink := Fanout{a, nil, b, SinkFunc(func(Event) { called++ })}

	sink.Report(Event{Name: "x"})
	sink.Report(Event{Name: "y"})
	sink.Report(Event{Name: "x"})

	require.Len(t, a.Events(), 3)
	assert.Equal(t, 2, b.Count("x"))
	assert.Equal(t, 3, called)
}
