// ABOUTME: Bubbletea model for the voicelink TUI
// ABOUTME: Defines session display state and key handling
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/voicelink/voicelink-go/internal/session"
	"github.com/voicelink/voicelink-go/internal/transport"
)

// visibleTranscripts is how many transcript lines the view shows
const visibleTranscripts = 8

// Model represents the TUI state
type Model struct {
	// Connection
	transportName string
	connecting    bool
	connected     bool
	lastError     string

	// Playback
	schedulerState string
	lead           time.Duration
	volume         int
	muted          bool

	// Stats
	blocks    int64
	dropped   int64
	sent      int64
	received  int64
	scheduled int64
	rejected  int64

	transcripts []transport.Transcript

	controls *Controls

	// Dimensions
	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderPlayback()
	s += m.renderStats()
	s += m.renderTranscripts()
	s += m.renderHelp()

	return s
}

// renderHeader renders connection status
func (m Model) renderHeader() string {
	connStatus := "Disconnected"
	switch {
	case m.connecting:
		connStatus = "Connecting..."
	case m.connected:
		connStatus = fmt.Sprintf("Connected (%s)", m.transportName)
	}

	s := fmt.Sprintf(`┌─ Voicelink ──────────────────────────────────────────┐
│ Status: %-44s │
`, truncate(connStatus, 44))
	if m.lastError != "" && !m.connected {
		s += fmt.Sprintf("│ Error:  %-44s │\n", truncate(m.lastError, 44))
	}
	s += "├──────────────────────────────────────────────────────┤\n"
	return s
}

// renderPlayback renders scheduler and volume state
func (m Model) renderPlayback() string {
	muteIcon := ""
	if m.muted {
		muteIcon = " (muted)"
	}

	volumeBar := renderBar(m.volume, 100, 10)
	state := m.schedulerState
	if state == "" {
		state = "idle"
	}

	return fmt.Sprintf("│ Volume:   [%s] %3d%%%-21s │\n"+
		"│ Playback: %-8s lead %5dms%-20s │\n",
		volumeBar, m.volume, muteIcon,
		state, m.lead.Milliseconds(), "")
}

// renderStats renders pipeline counters
func (m Model) renderStats() string {
	return fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ Mic:  blocks %-7d dropped %-6d sent %-9d │
│ Peer: chunks %-7d played %-7d bad %-9d │
`, m.blocks, m.dropped, m.sent, m.received, m.scheduled, m.rejected)
}

// renderTranscripts renders the most recent transcript lines
func (m Model) renderTranscripts() string {
	s := "├──────────────────────────────────────────────────────┤\n"
	if len(m.transcripts) == 0 {
		return s + "│ (no transcript yet)                                  │\n"
	}

	lines := m.transcripts
	if len(lines) > visibleTranscripts {
		lines = lines[len(lines)-visibleTranscripts:]
	}
	for _, line := range lines {
		who := "You"
		if line.Role == transport.RoleModel {
			who = "Peer"
		}
		text := strings.ReplaceAll(line.Text, "\n", " ")
		s += fmt.Sprintf("│ %-4s %-47s │\n", who+":", truncate(text, 47))
	}
	return s
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `│ c:Connect/Disconnect  +/-:Volume  m:Mute  q:Quit     │
└──────────────────────────────────────────────────────┘
`
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.controls.quit()
		return m, tea.Quit
	case "c":
		m.controls.toggleConnection()
	case "+", "=", "up":
		if m.volume < 100 {
			m.volume = min(m.volume+5, 100)
			m.controls.setVolume(m.volume, m.muted)
		}
	case "-", "down":
		if m.volume > 0 {
			m.volume = max(m.volume-5, 0)
			m.controls.setVolume(m.volume, m.muted)
		}
	case "m":
		m.muted = !m.muted
		m.controls.setVolume(m.volume, m.muted)
	}

	return m, nil
}

// applyStatus updates model from a status message
func (m *Model) applyStatus(msg StatusMsg) {
	st := msg.Status

	m.connecting = st.Connecting
	m.connected = st.Connected
	m.lastError = ""
	if st.LastError != nil {
		m.lastError = st.LastError.Error()
	}

	m.schedulerState = st.Scheduler.String()
	m.lead = st.Lead
	m.blocks = st.Capture.Blocks
	m.dropped = st.Capture.Dropped
	m.sent = st.Sent
	m.received = st.Received
	m.scheduled = st.Playback.Scheduled
	m.rejected = st.Playback.Rejected

	if msg.Transcripts != nil {
		m.transcripts = msg.Transcripts
	}
}

// StatusMsg carries a session snapshot to the TUI
type StatusMsg struct {
	Status      session.Status
	Transcripts []transport.Transcript
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := (value * width) / max
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func truncate(s string, length int) string {
	r := []rune(s)
	if len(r) <= length {
		return s
	}
	return string(r[:length-3]) + "..."
}
