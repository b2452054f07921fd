// ABOUTME: YAML configuration for the voicelink client and relay
// ABOUTME: Defaults, file loading and validation of every pipeline setting
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/voicelink/voicelink-go/pkg/audio"
)

// Config represents the complete configuration
type Config struct {
	Audio     AudioConfig     `yaml:"audio"`
	Input     InputConfig     `yaml:"input"`
	Output    OutputConfig    `yaml:"output"`
	Transport TransportConfig `yaml:"transport"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Relay     RelayConfig     `yaml:"relay"`
	Log       LogConfig       `yaml:"log"`
}

// AudioConfig contains pipeline constants
type AudioConfig struct {
	CaptureSampleRate     int  `yaml:"capture_sample_rate"`
	PlaybackSampleRate    int  `yaml:"playback_sample_rate"`
	BlockSize             int  `yaml:"block_size"`
	WarmUpMS              int  `yaml:"warm_up_ms"`
	BlockQueue            int  `yaml:"block_queue"`
	CancelScheduledOnStop bool `yaml:"cancel_scheduled_on_stop"`
}

// WarmUp returns the warm-up latency as a duration
func (a AudioConfig) WarmUp() time.Duration {
	return time.Duration(a.WarmUpMS) * time.Millisecond
}

// InputConfig selects the capture device
type InputConfig struct {
	Backend string  `yaml:"backend"` // malgo | tone
	ToneHz  float64 `yaml:"tone_hz"`
}

// OutputConfig selects the playback device
type OutputConfig struct {
	Backend string `yaml:"backend"` // oto | malgo
	Volume  int    `yaml:"volume"`
	Muted   bool   `yaml:"muted"`
}

// TransportConfig selects the remote peer
type TransportConfig struct {
	Kind string `yaml:"kind"` // gemini | relay | loopback
}

// GeminiConfig configures the live model session
type GeminiConfig struct {
	APIKey            string `yaml:"api_key"`
	Model             string `yaml:"model"`
	Voice             string `yaml:"voice"`
	SystemInstruction string `yaml:"system_instruction"`
	Transcribe        bool   `yaml:"transcribe"`
}

// RelayConfig configures both the relay client and the relay server
type RelayConfig struct {
	Addr          string `yaml:"addr"` // empty = browse mDNS
	Path          string `yaml:"path"`
	Name          string `yaml:"name"`
	Port          int    `yaml:"port"`
	EnableMDNS    bool   `yaml:"mdns"`
	EnableMetrics bool   `yaml:"metrics"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	File string `yaml:"file"`
	TUI  bool   `yaml:"tui"`
}

// Input backends
const (
	InputMalgo = "malgo"
	InputTone  = "tone"
)

// Output backends
const (
	OutputOto   = "oto"
	OutputMalgo = "malgo"
)

// Transport kinds
const (
	TransportGemini   = "gemini"
	TransportRelay    = "relay"
	TransportLoopback = "loopback"
)

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			CaptureSampleRate:  audio.CaptureSampleRate,
			PlaybackSampleRate: audio.PlaybackSampleRate,
			BlockSize:          audio.BlockSize,
			WarmUpMS:           int(audio.WarmUpLatency / time.Millisecond),
			BlockQueue:         8,
		},
		Input: InputConfig{
			Backend: InputMalgo,
			ToneHz:  440,
		},
		Output: OutputConfig{
			Backend: OutputOto,
			Volume:  100,
		},
		Transport: TransportConfig{
			Kind: TransportGemini,
		},
		Gemini: GeminiConfig{
			Model:      "gemini-2.5-flash-native-audio-preview-09-2025",
			Voice:      "Zephyr",
			Transcribe: true,
		},
		Relay: RelayConfig{
			Path:          "/voicelink",
			Name:          "voicelink-relay",
			Port:          8927,
			EnableMDNS:    true,
			EnableMetrics: true,
		},
		Log: LogConfig{
			File: "voicelink.log",
			TUI:  true,
		},
	}
}

// Load reads path over the defaults and validates the result. An empty
// path returns the defaults.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Read is Load without validation, for callers that apply overrides first
func Read(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		cfg.applyEnv()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader parses YAML over the defaults and validates the result
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg, err := decode(r)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func decode(r io.Reader) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv fills secrets from the environment when the file leaves them empty
func (c *Config) applyEnv() {
	if c.Gemini.APIKey == "" {
		c.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs []error

	if err := c.Audio.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("audio config: %w", err))
	}
	if err := c.Input.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("input config: %w", err))
	}
	if err := c.Output.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("output config: %w", err))
	}
	if err := c.Relay.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("relay config: %w", err))
	}

	switch c.Transport.Kind {
	case TransportRelay, TransportLoopback:
	case TransportGemini:
		if c.Gemini.APIKey == "" {
			errs = append(errs, fmt.Errorf("gemini config: api_key is required (or set GEMINI_API_KEY)"))
		}
	default:
		errs = append(errs, fmt.Errorf("transport config: unknown kind %q", c.Transport.Kind))
	}

	return errors.Join(errs...)
}

// Validate checks the pipeline constants
func (a AudioConfig) Validate() error {
	var errs []error
	if a.CaptureSampleRate <= 0 {
		errs = append(errs, fmt.Errorf("capture_sample_rate must be positive, got %d", a.CaptureSampleRate))
	}
	if a.PlaybackSampleRate <= 0 {
		errs = append(errs, fmt.Errorf("playback_sample_rate must be positive, got %d", a.PlaybackSampleRate))
	}
	if a.BlockSize <= 0 {
		errs = append(errs, fmt.Errorf("block_size must be positive, got %d", a.BlockSize))
	}
	if a.WarmUpMS < 0 {
		errs = append(errs, fmt.Errorf("warm_up_ms must not be negative, got %d", a.WarmUpMS))
	}
	if a.BlockQueue <= 0 {
		errs = append(errs, fmt.Errorf("block_queue must be positive, got %d", a.BlockQueue))
	}
	return errors.Join(errs...)
}

// Validate checks the input backend
func (i InputConfig) Validate() error {
	switch i.Backend {
	case InputMalgo:
		return nil
	case InputTone:
		if i.ToneHz <= 0 {
			return fmt.Errorf("tone_hz must be positive, got %v", i.ToneHz)
		}
		return nil
	default:
		return fmt.Errorf("unknown backend %q", i.Backend)
	}
}

// Validate checks the output backend
func (o OutputConfig) Validate() error {
	var errs []error
	if o.Backend != OutputOto && o.Backend != OutputMalgo {
		errs = append(errs, fmt.Errorf("unknown backend %q", o.Backend))
	}
	if o.Volume < 0 || o.Volume > 100 {
		errs = append(errs, fmt.Errorf("volume must be 0-100, got %d", o.Volume))
	}
	return errors.Join(errs...)
}

// Validate checks the relay settings
func (r RelayConfig) Validate() error {
	var errs []error
	if r.Port <= 0 || r.Port > 65535 {
		errs = append(errs, fmt.Errorf("port out of range: %d", r.Port))
	}
	if r.Path == "" || r.Path[0] != '/' {
		errs = append(errs, fmt.Errorf("path must start with '/', got %q", r.Path))
	}
	return errors.Join(errs...)
}
