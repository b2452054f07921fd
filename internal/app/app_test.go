// ABOUTME: Tests for application wiring
// ABOUTME: Tests component selection from configuration without touching devices
package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/voicelink/voicelink-go/internal/config"
	"github.com/voicelink/voicelink-go/internal/metrics"
	"github.com/voicelink/voicelink-go/internal/transport/gemini"
	"github.com/voicelink/voicelink-go/internal/transport/relay"
	"github.com/voicelink/voicelink-go/pkg/audio/input"
	"github.com/voicelink/voicelink-go/pkg/audio/output"
)

func TestSessionConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Audio.WarmUpMS = 150
	cfg.Audio.CancelScheduledOnStop = true

	sc := SessionConfig(cfg)
	if sc.Capture.SampleRate != 16000 || sc.Capture.BlockSize != 4096 {
		t.Errorf("unexpected capture config %+v", sc.Capture)
	}
	if sc.Playback.SampleRate != 24000 || sc.Playback.WarmUp != 150*time.Millisecond {
		t.Errorf("unexpected playback config %+v", sc.Playback)
	}
	if !sc.Playback.CancelOnStop {
		t.Error("expected cancel on stop")
	}
}

func TestBuildSource(t *testing.T) {
	cfg := config.Default()

	src, err := BuildSource(cfg)
	if err != nil {
		t.Fatalf("BuildSource failed: %v", err)
	}
	if _, ok := src.(*input.Malgo); !ok {
		t.Errorf("expected malgo source, got %T", src)
	}

	cfg.Input.Backend = config.InputTone
	src, _ = BuildSource(cfg)
	if _, ok := src.(*input.Tone); !ok {
		t.Errorf("expected tone source, got %T", src)
	}

	cfg.Input.Backend = "alsa"
	if _, err := BuildSource(cfg); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestBuildBackend(t *testing.T) {
	cfg := config.Default()
	tl := output.NewTimeline(24000)

	backend, err := BuildBackend(cfg, tl)
	if err != nil {
		t.Fatalf("BuildBackend failed: %v", err)
	}
	if _, ok := backend.(*output.Oto); !ok {
		t.Errorf("expected oto backend, got %T", backend)
	}

	cfg.Output.Backend = config.OutputMalgo
	backend, _ = BuildBackend(cfg, tl)
	if _, ok := backend.(*output.Malgo); !ok {
		t.Errorf("expected malgo backend, got %T", backend)
	}
}

func TestBuildDialer(t *testing.T) {
	cfg := config.Default()
	cfg.Gemini.APIKey = "k"

	d, err := BuildDialer(cfg, "test")
	if err != nil {
		t.Fatalf("BuildDialer failed: %v", err)
	}
	if _, ok := d.(*gemini.Dialer); !ok {
		t.Errorf("expected gemini dialer, got %T", d)
	}

	cfg.Transport.Kind = config.TransportRelay
	cfg.Relay.Addr = "127.0.0.1:8927"
	d, _ = BuildDialer(cfg, "test")
	if _, ok := d.(*relay.Dialer); !ok {
		t.Errorf("expected relay dialer, got %T", d)
	}

	cfg.Transport.Kind = config.TransportLoopback
	d, _ = BuildDialer(cfg, "test")
	session, err := d.Dial(context.Background())
	if err != nil {
		t.Fatalf("loopback dial failed: %v", err)
	}
	session.Close()

	cfg.Transport.Kind = "smoke-signals"
	if _, err := BuildDialer(cfg, "test"); err == nil {
		t.Error("expected error for unknown transport")
	}
}

func TestRelayBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Transport.Kind = config.TransportLoopback

	d, err := RelayBackend(cfg)
	if err != nil {
		t.Fatalf("RelayBackend failed: %v", err)
	}
	session, err := d.Dial(context.Background())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	session.Close()

	cfg.Transport.Kind = config.TransportGemini
	cfg.Gemini.APIKey = ""
	if _, err := RelayBackend(cfg); err == nil {
		t.Error("expected error without api key")
	}
}

func TestNewClientWithTone(t *testing.T) {
	cfg := config.Default()
	cfg.Input.Backend = config.InputTone
	cfg.Transport.Kind = config.TransportLoopback
	cfg.Output.Volume = 40

	c, err := NewClient(cfg, "test", metrics.Discard())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if c.Session() == nil {
		t.Fatal("expected session")
	}
	if c.timeline.GetVolume() != 40 {
		t.Errorf("expected volume 40, got %d", c.timeline.GetVolume())
	}
}

func TestNewRelay(t *testing.T) {
	cfg := config.Default()
	cfg.Transport.Kind = config.TransportLoopback

	s, err := NewRelay(cfg, metrics.Discard(), nil)
	if err != nil {
		t.Fatalf("NewRelay failed: %v", err)
	}
	if s.ClientCount() != 0 {
		t.Error("expected no clients")
	}
}

func TestDefaultName(t *testing.T) {
	if got := DefaultName("kitchen"); !strings.HasPrefix(got, "kitchen-") {
		t.Errorf("unexpected name %q", got)
	}
	if got := DefaultName(""); !strings.HasPrefix(got, "unknown-") {
		t.Errorf("unexpected name %q", got)
	}
}
