// ABOUTME: Tests for TUI model and state management
// ABOUTME: Tests status updates, key handling and rendering
package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/voicelink/voicelink-go/internal/capture"
	"github.com/voicelink/voicelink-go/internal/playback"
	"github.com/voicelink/voicelink-go/internal/session"
	"github.com/voicelink/voicelink-go/internal/transport"
)

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewModel(t *testing.T) {
	model := NewModel(nil, "loopback", 80, false)

	if model.connected {
		t.Error("expected connected to be false initially")
	}
	if model.volume != 80 {
		t.Errorf("expected volume 80, got %d", model.volume)
	}
	if model.schedulerState != "idle" {
		t.Errorf("expected idle, got %s", model.schedulerState)
	}
}

func TestApplyStatus(t *testing.T) {
	model := NewModel(nil, "relay", 100, false)

	model.applyStatus(StatusMsg{
		Status: session.Status{
			Connected: true,
			Scheduler: playback.Active,
			Lead:      250 * time.Millisecond,
			Capture:   capture.Stats{Blocks: 12, Dropped: 1},
			Playback:  playback.Stats{Scheduled: 30, Rejected: 2},
			Sent:      11,
			Received:  31,
		},
		Transcripts: []transport.Transcript{{Role: transport.RoleUser, Text: "hello"}},
	})

	if !model.connected || model.schedulerState != "active" {
		t.Errorf("unexpected state: connected=%v scheduler=%s", model.connected, model.schedulerState)
	}
	if model.blocks != 12 || model.dropped != 1 || model.sent != 11 {
		t.Errorf("unexpected capture stats %d/%d/%d", model.blocks, model.dropped, model.sent)
	}
	if model.received != 31 || model.scheduled != 30 || model.rejected != 2 {
		t.Errorf("unexpected playback stats %d/%d/%d", model.received, model.scheduled, model.rejected)
	}
	if len(model.transcripts) != 1 {
		t.Errorf("expected 1 transcript, got %d", len(model.transcripts))
	}

	// A later status without transcripts keeps the previous ones
	model.applyStatus(StatusMsg{Status: session.Status{LastError: errors.New("socket reset")}})
	if model.connected {
		t.Error("expected disconnected")
	}
	if model.lastError != "socket reset" {
		t.Errorf("expected error text, got %q", model.lastError)
	}
	if len(model.transcripts) != 1 {
		t.Error("transcripts should be kept")
	}
}

func TestVolumeKeys(t *testing.T) {
	tests := []struct {
		name     string
		start    int
		key      string
		expected int
	}{
		{"plus", 50, "+", 55},
		{"plus at max", 100, "+", 100},
		{"plus clamps", 98, "+", 100},
		{"minus", 50, "-", 45},
		{"minus at zero", 0, "-", 0},
		{"minus clamps", 3, "-", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := NewModel(nil, "loopback", tt.start, false)
			updated, _ := model.Update(key(tt.key))
			if got := updated.(Model).volume; got != tt.expected {
				t.Errorf("expected volume %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestKeysDriveControls(t *testing.T) {
	controls := NewControls()
	model := NewModel(controls, "loopback", 50, false)

	updated, _ := model.Update(key("m"))
	model = updated.(Model)
	select {
	case change := <-controls.Volume:
		if !change.Muted || change.Volume != 50 {
			t.Errorf("unexpected volume change %+v", change)
		}
	default:
		t.Error("expected a volume change")
	}

	model.Update(key("c"))
	select {
	case <-controls.Connect:
	default:
		t.Error("expected a connect toggle")
	}

	_, cmd := model.Update(key("q"))
	if cmd == nil {
		t.Error("expected quit command")
	}
	select {
	case <-controls.Quit:
	default:
		t.Error("expected quit signal")
	}
}

func TestView(t *testing.T) {
	model := NewModel(nil, "gemini", 100, false)
	if model.View() != "Loading..." {
		t.Error("expected loading view before window size")
	}

	updated, _ := model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	model = updated.(Model)
	model.applyStatus(StatusMsg{
		Status: session.Status{Connected: true},
		Transcripts: []transport.Transcript{
			{Role: transport.RoleUser, Text: "what time is it"},
			{Role: transport.RoleModel, Text: "about noon"},
		},
	})

	view := model.View()
	for _, want := range []string{"Connected (gemini)", "You: what time is it", "Peer: about noon", "c:Connect"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestViewShowsConnecting(t *testing.T) {
	model := NewModel(nil, "relay", 100, false)
	model.width = 80
	model.applyStatus(StatusMsg{Status: session.Status{Connecting: true}})

	if !strings.Contains(model.View(), "Connecting...") {
		t.Error("expected connecting status")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		length int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
	}

	for _, tt := range tests {
		if got := truncate(tt.in, tt.length); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.length, got, tt.want)
		}
	}
}

func TestRenderBar(t *testing.T) {
	if got := renderBar(50, 100, 10); got != "█████░░░░░" {
		t.Errorf("unexpected bar %q", got)
	}
}
