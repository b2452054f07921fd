// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and the channels it drives the client with
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// VolumeChangeMsg is a volume or mute change requested from the keyboard
type VolumeChangeMsg struct {
	Volume int
	Muted  bool
}

// Controls holds channels carrying key actions to the client
type Controls struct {
	Connect chan struct{}
	Volume  chan VolumeChangeMsg
	Quit    chan struct{}
}

// NewControls creates a new control handler
func NewControls() *Controls {
	return &Controls{
		Connect: make(chan struct{}, 1),
		Volume:  make(chan VolumeChangeMsg, 10),
		Quit:    make(chan struct{}, 1),
	}
}

func (c *Controls) toggleConnection() {
	if c == nil {
		return
	}
	select {
	case c.Connect <- struct{}{}:
	default:
	}
}

func (c *Controls) setVolume(volume int, muted bool) {
	if c == nil {
		return
	}
	select {
	case c.Volume <- VolumeChangeMsg{Volume: volume, Muted: muted}:
	default:
	}
}

func (c *Controls) quit() {
	if c == nil {
		return
	}
	select {
	case c.Quit <- struct{}{}:
	default:
	}
}

// NewModel creates a new TUI model
func NewModel(controls *Controls, transportName string, volume int, muted bool) Model {
	return Model{
		transportName:  transportName,
		schedulerState: "idle",
		volume:         volume,
		muted:          muted,
		controls:       controls,
	}
}

// Run creates the TUI program; the caller runs it
func Run(model Model) *tea.Program {
	return tea.NewProgram(model, tea.WithAltScreen())
}
