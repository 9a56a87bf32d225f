// ABOUTME: Dashboard program wrapper and control channel
// ABOUTME: Key presses become Commands applied by the frame goroutine
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// CommandKind identifies a dashboard control
type CommandKind int

const (
	CommandQuit CommandKind = iota
	CommandGameMute
	CommandMicMute
	CommandMicActive
	CommandPause
)

// Command is a control request from the dashboard. The mixer and looper are
// owned by the frame goroutine, which drains Controls.Commands.
type Command struct {
	Kind CommandKind
	On   bool
}

// Controls carries commands out of the dashboard
type Controls struct {
	Commands chan Command
}

// NewControls creates a control handler
func NewControls() *Controls {
	return &Controls{
		Commands: make(chan Command, 16),
	}
}

func (c *Controls) send(cmd Command) {
	if c == nil {
		return
	}
	select {
	case c.Commands <- cmd:
	default:
		// Don't block the UI if the frame loop is behind
	}
}

// NewModel creates a dashboard model. controls may be nil.
func NewModel(controls *Controls, output, codec string, micActive bool) Model {
	return Model{
		output:    output,
		codec:     codec,
		micActive: micActive,
		controls:  controls,
	}
}

// Dashboard owns the bubbletea program
type Dashboard struct {
	program *tea.Program
	updates chan StatusMsg
	done    chan struct{}
}

// NewDashboard creates the dashboard program on the alternate screen
func NewDashboard(model Model, opts ...tea.ProgramOption) *Dashboard {
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	return &Dashboard{
		program: tea.NewProgram(model, opts...),
		updates: make(chan StatusMsg, 10),
		done:    make(chan struct{}),
	}
}

// Run blocks until the user quits or Quit is called
func (d *Dashboard) Run() error {
	go func() {
		for {
			select {
			case status := <-d.updates:
				d.program.Send(status)
			case <-d.done:
				return
			}
		}
	}()

	_, err := d.program.Run()
	close(d.done)
	return err
}

// Update queues a status snapshot for the dashboard
func (d *Dashboard) Update(status StatusMsg) {
	select {
	case d.updates <- status:
	default:
		// Don't block the frame loop if the UI is behind
	}
}

// Quit stops the program
func (d *Dashboard) Quit() {
	d.program.Quit()
}
