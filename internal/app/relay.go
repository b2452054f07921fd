// ABOUTME: Relay server application wiring
// ABOUTME: Chooses the backend every relay client is bridged to
package app

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/voicelink/voicelink-go/internal/config"
	"github.com/voicelink/voicelink-go/internal/metrics"
	"github.com/voicelink/voicelink-go/internal/relay"
	"github.com/voicelink/voicelink-go/internal/transport"
	"github.com/voicelink/voicelink-go/internal/transport/gemini"
	"github.com/voicelink/voicelink-go/internal/transport/loopback"
)

// RelayBackend returns the dialer relay clients are bridged to: a Gemini
// Live session when configured, otherwise the echo peer
func RelayBackend(cfg *config.Config) (transport.Dialer, error) {
	if cfg.Transport.Kind == config.TransportGemini {
		return gemini.NewDialer(gemini.Config{
			APIKey:            cfg.Gemini.APIKey,
			Model:             cfg.Gemini.Model,
			Voice:             cfg.Gemini.Voice,
			SystemInstruction: cfg.Gemini.SystemInstruction,
			Transcribe:        cfg.Gemini.Transcribe,
		})
	}
	return loopback.Dialer(LoopbackConfig(cfg)), nil
}

// NewRelay builds the relay server from configuration
func NewRelay(cfg *config.Config, m *metrics.Metrics, gatherer prometheus.Gatherer) (*relay.Server, error) {
	backend, err := RelayBackend(cfg)
	if err != nil {
		return nil, err
	}

	return relay.New(relay.Config{
		Port:          cfg.Relay.Port,
		Name:          cfg.Relay.Name,
		Path:          cfg.Relay.Path,
		EnableMDNS:    cfg.Relay.EnableMDNS,
		EnableMetrics: cfg.Relay.EnableMetrics,
	}, backend, m, gatherer), nil
}
