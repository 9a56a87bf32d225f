// ABOUTME: Tests for dashboard model and control commands
// ABOUTME: Tests status updates, key handling, and rendering helpers
package ui

import (
	"errors"
	"strings"
	"testing"

	"github.com/Resonate-Protocol/resonate-capture/internal/looper"
	"github.com/Resonate-Protocol/resonate-capture/internal/mixer"
	drift "github.com/Resonate-Protocol/resonate-capture/internal/sync"
	tea "github.com/charmbracelet/bubbletea"
)

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewModel(t *testing.T) {
	model := NewModel(nil, "capture.rcap", "opus", true)

	if model.output != "capture.rcap" {
		t.Errorf("expected output 'capture.rcap', got '%s'", model.output)
	}
	if !model.micActive {
		t.Error("expected mic active")
	}
	if model.gameMuted || model.micMuted {
		t.Error("expected nothing muted initially")
	}
	if model.showDebug {
		t.Error("expected showDebug to be false initially")
	}
}

func TestStatusMsgSession(t *testing.T) {
	model := NewModel(nil, "", "", false)

	model.applyStatus(StatusMsg{SessionID: "abc", Codec: "pcm", Output: "out.rcap"})

	if model.sessionID != "abc" {
		t.Errorf("expected sessionID 'abc', got '%s'", model.sessionID)
	}
	if model.codec != "pcm" || model.output != "out.rcap" {
		t.Errorf("unexpected codec/output %s/%s", model.codec, model.output)
	}

	// Empty fields leave the previous values alone
	model.applyStatus(StatusMsg{})
	if model.sessionID != "abc" {
		t.Errorf("expected sessionID to survive empty update, got '%s'", model.sessionID)
	}
}

func TestStatusMsgMixerMirrorsControls(t *testing.T) {
	model := NewModel(nil, "", "", false)

	stats := mixer.Stats{
		Capturing:  true,
		Game:       mixer.SourceStats{Name: "game", Muted: true, Level: 0.5},
		Microphone: mixer.SourceStats{Name: "mic", Active: true},
	}
	model.applyStatus(StatusMsg{Mixer: &stats})

	if !model.gameMuted {
		t.Error("expected game muted from status")
	}
	if !model.micActive {
		t.Error("expected mic active from status")
	}
	if model.mixer.Game.Level != 0.5 {
		t.Errorf("expected game level 0.5, got %v", model.mixer.Game.Level)
	}
}

func TestStatusMsgLooperAndError(t *testing.T) {
	model := NewModel(nil, "", "", false)

	ls := looper.Stats{State: looper.StateRunning, EncodedFrames: 42}
	model.applyStatus(StatusMsg{Looper: &ls, Err: errors.New("encode_failed: boom")})

	if model.looper.EncodedFrames != 42 {
		t.Errorf("expected 42 encoded frames, got %d", model.looper.EncodedFrames)
	}
	if model.lastErr != "encode_failed: boom" {
		t.Errorf("unexpected lastErr '%s'", model.lastErr)
	}
	if !strings.Contains(model.View(), "encode_failed: boom") {
		t.Error("expected error in view")
	}
}

func TestKeysSendCommands(t *testing.T) {
	controls := NewControls()
	model := NewModel(controls, "", "", true)

	tests := []struct {
		key  string
		want Command
	}{
		{"g", Command{Kind: CommandGameMute, On: true}},
		{"m", Command{Kind: CommandMicMute, On: true}},
		{"t", Command{Kind: CommandMicActive, On: false}},
		{"p", Command{Kind: CommandPause, On: true}},
		{"p", Command{Kind: CommandPause, On: false}},
	}

	var next tea.Model = model
	for _, tt := range tests {
		next, _ = next.Update(key(tt.key))
		select {
		case got := <-controls.Commands:
			if got != tt.want {
				t.Errorf("key %s: expected %+v, got %+v", tt.key, tt.want, got)
			}
		default:
			t.Fatalf("key %s: no command sent", tt.key)
		}
	}
}

func TestQuitKey(t *testing.T) {
	controls := NewControls()
	model := NewModel(controls, "", "", false)

	next, cmd := model.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if !next.(Model).quitting {
		t.Error("expected quitting")
	}
	if got := <-controls.Commands; got.Kind != CommandQuit {
		t.Errorf("expected CommandQuit, got %v", got.Kind)
	}
}

func TestNilControlsDoNotPanic(t *testing.T) {
	model := NewModel(nil, "", "", false)
	next, _ := model.Update(key("g"))
	if !next.(Model).gameMuted {
		t.Error("expected local mute state to toggle")
	}
}

func TestControlsDoNotBlockWhenFull(t *testing.T) {
	controls := &Controls{Commands: make(chan Command, 1)}
	controls.send(Command{Kind: CommandPause})
	controls.send(Command{Kind: CommandPause})

	if len(controls.Commands) != 1 {
		t.Errorf("expected 1 queued command, got %d", len(controls.Commands))
	}
}

func TestDebugToggle(t *testing.T) {
	model := NewModel(nil, "", "", false)

	next, _ := model.Update(key("d"))
	m := next.(Model)
	if !m.showDebug {
		t.Error("expected showDebug after 'd'")
	}
	if !strings.Contains(m.View(), "truncations") {
		t.Error("expected debug section in view")
	}
}

func TestWindowSize(t *testing.T) {
	model := NewModel(nil, "", "", false)
	next, _ := model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m := next.(Model)
	if m.width != 80 || m.height != 24 {
		t.Errorf("expected 80x24, got %dx%d", m.width, m.height)
	}
}

func TestRenderBar(t *testing.T) {
	tests := []struct {
		value  int
		filled int
	}{
		{0, 0},
		{50, 5},
		{100, 10},
		{150, 10},
		{-5, 0},
	}

	for _, tt := range tests {
		bar := renderBar(tt.value, 100, 10)
		if got := strings.Count(bar, "█"); got != tt.filled {
			t.Errorf("renderBar(%d): expected %d filled, got %d", tt.value, tt.filled, got)
		}
		if got := strings.Count(bar, "░"); got != 10-tt.filled {
			t.Errorf("renderBar(%d): expected %d empty, got %d", tt.value, 10-tt.filled, got)
		}
	}
}

func TestQualityText(t *testing.T) {
	if got := qualityText(drift.Stats{}); got != "-" {
		t.Errorf("expected '-' before observations, got '%s'", got)
	}
	got := qualityText(drift.Stats{Observations: 1, Quality: drift.QualityLost, Drift: -4800})
	if got != "behind (-4800)" {
		t.Errorf("unexpected quality text '%s'", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected 'short', got '%s'", got)
	}
	if got := truncate("a very long session id", 10); got != "a very ..." {
		t.Errorf("expected 'a very ...', got '%s'", got)
	}
}
