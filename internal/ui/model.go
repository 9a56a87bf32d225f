// ABOUTME: Bubbletea model for the capture dashboard
// ABOUTME: Defines dashboard state, key handling and rendering
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Resonate-Protocol/resonate-capture/internal/looper"
	"github.com/Resonate-Protocol/resonate-capture/internal/mixer"
	drift "github.com/Resonate-Protocol/resonate-capture/internal/sync"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().Faint(true)
)

// Model represents the dashboard state
type Model struct {
	// Session
	sessionID string
	codec     string
	output    string
	started   time.Time

	// Pipeline
	mixer  mixer.Stats
	looper looper.Stats

	// Controls, mirrored locally so the view reacts before the next status
	gameMuted bool
	micMuted  bool
	micActive bool
	paused    bool

	lastErr string

	showDebug bool
	quitting  bool

	controls *Controls

	width  int
	height int
}

type tickMsg time.Time

// Init starts the redraw ticker
func (m Model) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		return m, tickEvery()
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the dashboard
func (m Model) View() string {
	if m.quitting {
		return "Stopping capture...\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Resonate Capture"))
	b.WriteString("\n")
	b.WriteString(m.renderSession())
	b.WriteString("\n")
	b.WriteString(m.renderSource("Game", m.mixer.Game, m.gameMuted, true))
	b.WriteString(m.renderSource("Mic ", m.mixer.Microphone, m.micMuted, m.micActive))
	b.WriteString("\n")
	b.WriteString(m.renderLooper())

	if m.showDebug {
		b.WriteString(m.renderDebug())
	}
	if m.lastErr != "" {
		b.WriteString(errorStyle.Render("Error: " + m.lastErr))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("g:Mute game  m:Mute mic  t:Toggle mic  p:Pause  d:Debug  q:Quit"))
	return b.String()
}

func (m Model) renderSession() string {
	session := m.sessionID
	if session == "" {
		session = "(none)"
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render("Session: "))
	b.WriteString(valueStyle.Render(truncate(session, 36)))
	b.WriteString("\n")
	b.WriteString(headerStyle.Render("Output:  "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%s (%s)", m.output, m.codec)))
	b.WriteString("\n")
	if !m.started.IsZero() {
		b.WriteString(headerStyle.Render("Uptime:  "))
		b.WriteString(valueStyle.Render(time.Since(m.started).Round(time.Second).String()))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderSource(label string, s mixer.SourceStats, muted, active bool) string {
	state := "live"
	switch {
	case !active:
		state = "off"
	case muted:
		state = "muted"
	}

	line := fmt.Sprintf("%s [%s] %-5s gain %.2f  drift %s",
		label, renderBar(levelPercent(s.Level), 100, 20), state, s.Gain, qualityText(s.Drift))

	if s.Drift.Quality != drift.QualityGood {
		return warnStyle.Render(line) + "\n"
	}
	return valueStyle.Render(line) + "\n"
}

func (m Model) renderLooper() string {
	state := m.looper.State.String()
	if m.paused && m.looper.State != looper.StatePaused {
		state += " (pause requested)"
	}
	return fmt.Sprintf("%s %s\n%s %.2fs  %s %d  %s %d  %s %d\n",
		headerStyle.Render("Looper:"), valueStyle.Render(state),
		headerStyle.Render("Video time:"), m.looper.VideoTime,
		headerStyle.Render("Frames:"), m.looper.EncodedFrames,
		headerStyle.Render("Lag spikes:"), m.looper.LagSpikes,
		headerStyle.Render("Corrections:"), m.looper.Corrections)
}

func (m Model) renderDebug() string {
	g, mic := m.mixer.Game, m.mixer.Microphone
	return helpStyle.Render(fmt.Sprintf(
		"\nblocks %d  truncations %d  pending trim %d\n"+
			"game: enqueued %d padded %d queued %d dropped %d\n"+
			"mic:  enqueued %d padded %d queued %d dropped %d\n",
		m.mixer.Blocks, m.mixer.Truncations, m.mixer.PendingTrim,
		g.Enqueued, g.Padded, g.Queued, g.Dropped,
		mic.Enqueued, mic.Padded, mic.Queued, mic.Dropped)) + "\n"
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		m.controls.send(Command{Kind: CommandQuit})
		return m, tea.Quit
	case "g":
		m.gameMuted = !m.gameMuted
		m.controls.send(Command{Kind: CommandGameMute, On: m.gameMuted})
	case "m":
		m.micMuted = !m.micMuted
		m.controls.send(Command{Kind: CommandMicMute, On: m.micMuted})
	case "t":
		m.micActive = !m.micActive
		m.controls.send(Command{Kind: CommandMicActive, On: m.micActive})
	case "p":
		m.paused = !m.paused
		m.controls.send(Command{Kind: CommandPause, On: m.paused})
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.SessionID != "" {
		m.sessionID = msg.SessionID
	}
	if msg.Codec != "" {
		m.codec = msg.Codec
	}
	if msg.Output != "" {
		m.output = msg.Output
	}
	if !msg.Started.IsZero() {
		m.started = msg.Started
	}
	if msg.Mixer != nil {
		m.mixer = *msg.Mixer
		m.micActive = msg.Mixer.Microphone.Active
		m.gameMuted = msg.Mixer.Game.Muted
		m.micMuted = msg.Mixer.Microphone.Muted
	}
	if msg.Looper != nil {
		m.looper = *msg.Looper
	}
	if msg.Err != nil {
		m.lastErr = msg.Err.Error()
	}
}

// StatusMsg updates dashboard state. Nil and zero fields are left unchanged.
type StatusMsg struct {
	SessionID string
	Codec     string
	Output    string
	Started   time.Time
	Mixer     *mixer.Stats
	Looper    *looper.Stats
	Err       error
}

// Utility functions
func renderBar(value, max, width int) string {
	if value < 0 {
		value = 0
	}
	if value > max {
		value = max
	}
	filled := (value * width) / max
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func levelPercent(level float32) int {
	return int(level*100 + 0.5)
}

func qualityText(s drift.Stats) string {
	if s.Observations == 0 {
		return "-"
	}
	return fmt.Sprintf("%s (%+d)", s.Quality, s.Drift)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
