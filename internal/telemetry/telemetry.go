// ABOUTME: Telemetry sink abstraction
// ABOUTME: Injected destination for capture events and native error callbacks
package telemetry

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
)

// Event is a single telemetry record
type Event struct {
	Name        string
	SessionID   string
	CaptureTime float64 // seconds on the capture timeline, when known
	Err         error
	Fields      map[string]any
}

// Sink receives telemetry events. Implementations must be safe for concurrent use:
// device callbacks report from audio threads.
type Sink interface {
	Report(Event)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(Event)

// Report calls f(e)
func (f SinkFunc) Report(e Event) { f(e) }

// LogSink writes events to the standard logger
type LogSink struct{}

// Report logs the event on one line
func (LogSink) Report(e Event) {
	log.Printf("Telemetry: %s", e)
}

// String formats the event as name key=value pairs
func (e Event) String() string {
	var b strings.Builder
	b.WriteString(e.Name)
	if e.SessionID != "" {
		fmt.Fprintf(&b, " session=%s", e.SessionID)
	}
	if e.CaptureTime != 0 {
		fmt.Fprintf(&b, " capture_time=%.3fs", e.CaptureTime)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, " error=%q", e.Err.Error())
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
	}
	return b.String()
}

// Recorder keeps events in memory; used by tests and the simulate command
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Report stores the event
func (r *Recorder) Report(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything reported so far
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many events with the given name were reported
func (r *Recorder) Count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Name == name {
			n++
		}
	}
	return n
}

// Fanout reports to every sink in order
type Fanout []Sink

// Report forwards e to all sinks
func (f Fanout) Report(e Event) {
	for _, s := range f {
		if s != nil {
			s.Report(e)
		}
	}
}
