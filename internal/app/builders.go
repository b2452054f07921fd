// ABOUTME: Component construction from configuration
// ABOUTME: Selects input source, output backend and transport dialer
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/voicelink/voicelink-go/internal/capture"
	"github.com/voicelink/voicelink-go/internal/config"
	"github.com/voicelink/voicelink-go/internal/discovery"
	"github.com/voicelink/voicelink-go/internal/playback"
	"github.com/voicelink/voicelink-go/internal/session"
	"github.com/voicelink/voicelink-go/internal/transport"
	"github.com/voicelink/voicelink-go/internal/transport/gemini"
	"github.com/voicelink/voicelink-go/internal/transport/loopback"
	"github.com/voicelink/voicelink-go/internal/transport/relay"
	"github.com/voicelink/voicelink-go/internal/version"
	"github.com/voicelink/voicelink-go/pkg/audio/input"
	"github.com/voicelink/voicelink-go/pkg/audio/output"
)

// discoveryTimeout bounds the mDNS browse when no relay address is set
const discoveryTimeout = 10 * time.Second

// SessionConfig maps configuration onto the session pipeline
func SessionConfig(cfg *config.Config) session.Config {
	return session.Config{
		Capture: capture.Config{
			SampleRate: cfg.Audio.CaptureSampleRate,
			BlockSize:  cfg.Audio.BlockSize,
			QueueDepth: cfg.Audio.BlockQueue,
		},
		Playback: playback.Config{
			SampleRate:   cfg.Audio.PlaybackSampleRate,
			WarmUp:       cfg.Audio.WarmUp(),
			CancelOnStop: cfg.Audio.CancelScheduledOnStop,
		},
		TranscriptLimit: session.DefaultTranscriptLimit,
	}
}

// BuildSource returns the configured input device
func BuildSource(cfg *config.Config) (input.Source, error) {
	switch cfg.Input.Backend {
	case config.InputMalgo:
		return input.NewMalgo(), nil
	case config.InputTone:
		return input.NewTone(cfg.Input.ToneHz), nil
	default:
		return nil, fmt.Errorf("unknown input backend %q", cfg.Input.Backend)
	}
}

// BuildBackend returns the configured playback backend driving tl
func BuildBackend(cfg *config.Config, tl *output.Timeline) (output.Backend, error) {
	switch cfg.Output.Backend {
	case config.OutputOto:
		return output.NewOto(tl), nil
	case config.OutputMalgo:
		return output.NewMalgo(tl), nil
	default:
		return nil, fmt.Errorf("unknown output backend %q", cfg.Output.Backend)
	}
}

// LoopbackConfig maps configuration onto the echo peer
func LoopbackConfig(cfg *config.Config) loopback.Config {
	lc := loopback.DefaultConfig()
	lc.InputRate = cfg.Audio.CaptureSampleRate
	lc.OutputRate = cfg.Audio.PlaybackSampleRate
	lc.ReplyChunk = cfg.Audio.PlaybackSampleRate / 10
	return lc
}

// BuildDialer returns the configured transport
func BuildDialer(cfg *config.Config, name string) (transport.Dialer, error) {
	switch cfg.Transport.Kind {
	case config.TransportGemini:
		return gemini.NewDialer(gemini.Config{
			APIKey:            cfg.Gemini.APIKey,
			Model:             cfg.Gemini.Model,
			Voice:             cfg.Gemini.Voice,
			SystemInstruction: cfg.Gemini.SystemInstruction,
			Transcribe:        cfg.Gemini.Transcribe,
		})

	case config.TransportLoopback:
		return loopback.Dialer(LoopbackConfig(cfg)), nil

	case config.TransportRelay:
		relayConfig := relay.Config{
			ServerAddr: cfg.Relay.Addr,
			Path:       cfg.Relay.Path,
			Name:       name,
		}
		if relayConfig.ServerAddr != "" {
			return relay.NewDialer(relayConfig), nil
		}
		return transport.DialerFunc(func(ctx context.Context) (transport.Session, error) {
			ctx, cancel := context.WithTimeout(ctx, discoveryTimeout)
			defer cancel()

			log.Printf("Starting relay discovery...")
			server, err := discovery.Discover(ctx)
			if err != nil {
				return nil, err
			}
			discovered := relayConfig
			discovered.ServerAddr = server.Addr()
			if server.Path != "" {
				discovered.Path = server.Path
			}
			return relay.NewDialer(discovered).Dial(ctx)
		}), nil

	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport.Kind)
	}
}

// DefaultName returns a client name derived from the product
func DefaultName(hostname string) string {
	if hostname == "" {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-%s", hostname, version.Product)
}
