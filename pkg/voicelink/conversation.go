// ABOUTME: High-level Conversation API for voicelink
// ABOUTME: Wires input, transport and output into one session with callbacks
package voicelink

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/voicelink/voicelink-go/internal/app"
	"github.com/voicelink/voicelink-go/internal/config"
	"github.com/voicelink/voicelink-go/internal/metrics"
	"github.com/voicelink/voicelink-go/internal/session"
	"github.com/voicelink/voicelink-go/internal/transport"
	"github.com/voicelink/voicelink-go/pkg/audio/output"
)

// Transports
const (
	TransportGemini   = config.TransportGemini
	TransportRelay    = config.TransportRelay
	TransportLoopback = config.TransportLoopback
)

// Transcript is one line of conversation text
type Transcript = transport.Transcript

// Config holds conversation configuration
type Config struct {
	// Transport selects the peer (default: gemini)
	Transport string

	// APIKey, Model, Voice and SystemInstruction configure Gemini Live
	APIKey            string
	Model             string
	Voice             string
	SystemInstruction string

	// RelayAddr is the relay host:port; empty browses mDNS
	RelayAddr string

	// Name is the display name sent to a relay
	Name string

	// Volume is the initial volume (0-100, default 100)
	Volume int

	// ToneHz replaces the microphone with a test tone when non-zero
	ToneHz float64

	// OnTranscript is called for every new or extended transcript line
	OnTranscript func(Transcript)

	// OnStateChange is called when the connection or playback state changes
	OnStateChange func(State)

	// OnError is called when the session ends with an error
	OnError func(error)
}

// State describes the current conversation state
type State struct {
	Connecting bool
	Connected  bool
	Playback   string // "idle", "active"
	Lead       time.Duration
	Volume     int
	Muted      bool
}

// Conversation is a voice session with a remote peer
type Conversation struct {
	config   Config
	timeline *output.Timeline
	backend  output.Backend
	session  *session.Session

	mu          sync.Mutex
	state       State
	lastError   error
	transcripts int
	lastText    string

	cancel context.CancelFunc
	done   chan struct{}
}

// settings maps the public configuration onto the application config
func (c Config) settings() *config.Config {
	cfg := config.Default()
	if c.Transport != "" {
		cfg.Transport.Kind = c.Transport
	}
	cfg.Gemini.APIKey = c.APIKey
	if c.Model != "" {
		cfg.Gemini.Model = c.Model
	}
	if c.Voice != "" {
		cfg.Gemini.Voice = c.Voice
	}
	cfg.Gemini.SystemInstruction = c.SystemInstruction
	cfg.Relay.Addr = c.RelayAddr
	if c.Volume > 0 {
		cfg.Output.Volume = c.Volume
	}
	if c.ToneHz > 0 {
		cfg.Input.Backend = config.InputTone
		cfg.Input.ToneHz = c.ToneHz
	}
	cfg.Log.TUI = false
	return cfg
}

// New creates a conversation; no device is opened until Start
func New(config Config) (*Conversation, error) {
	if config.Name == "" {
		config.Name = "voicelink-library"
	}

	cfg := config.settings()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid conversation config: %w", err)
	}

	tl := output.NewTimeline(cfg.Audio.PlaybackSampleRate)
	tl.SetVolume(cfg.Output.Volume)

	backend, err := app.BuildBackend(cfg, tl)
	if err != nil {
		return nil, err
	}
	source, err := app.BuildSource(cfg)
	if err != nil {
		return nil, err
	}
	dialer, err := app.BuildDialer(cfg, config.Name)
	if err != nil {
		return nil, err
	}

	sess, err := session.New(app.SessionConfig(cfg), dialer, source, tl, metrics.Discard())
	if err != nil {
		return nil, err
	}

	return &Conversation{
		config:   config,
		timeline: tl,
		backend:  backend,
		session:  sess,
		state: State{
			Playback: "idle",
			Volume:   tl.GetVolume(),
		},
	}, nil
}

// Start opens the speaker, connects and begins streaming
func (c *Conversation) Start(ctx context.Context) error {
	if err := c.backend.Open(); err != nil {
		return fmt.Errorf("failed to open output: %w", err)
	}
	if err := c.session.Connect(ctx); err != nil {
		c.backend.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.watch(watchCtx, c.done)

	return nil
}

// watch turns session updates into callbacks
func (c *Conversation) watch(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.session.Updates():
			c.refresh(c.session.Status(), c.session.Transcripts())
		}
	}
}

// refresh records a status snapshot and fires callbacks for what changed
func (c *Conversation) refresh(st session.Status, lines []Transcript) {
	c.mu.Lock()
	next := State{
		Connecting: st.Connecting,
		Connected:  st.Connected,
		Playback:   st.Scheduler.String(),
		Lead:       st.Lead,
		Volume:     c.timeline.GetVolume(),
		Muted:      c.timeline.IsMuted(),
	}
	changed := next.Connecting != c.state.Connecting ||
		next.Connected != c.state.Connected ||
		next.Playback != c.state.Playback
	c.state = next

	var fresh []Transcript
	switch {
	case len(lines) > c.transcripts:
		fresh = lines[c.transcripts:]
	case len(lines) > 0 && lines[len(lines)-1].Text != c.lastText:
		fresh = lines[len(lines)-1:]
	}
	c.transcripts = len(lines)
	if len(lines) > 0 {
		c.lastText = lines[len(lines)-1].Text
	}

	var failed error
	if st.LastError != nil && st.LastError != c.lastError {
		failed = st.LastError
		c.lastError = st.LastError
	}
	c.mu.Unlock()

	if changed && c.config.OnStateChange != nil {
		c.config.OnStateChange(next)
	}
	if c.config.OnTranscript != nil {
		for _, t := range fresh {
			c.config.OnTranscript(t)
		}
	}
	if failed != nil && c.config.OnError != nil {
		c.config.OnError(failed)
	}
}

// Wait blocks until the connection ends
func (c *Conversation) Wait() {
	c.session.Wait()
}

// State returns the latest state
func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Transcripts returns the conversation so far
func (c *Conversation) Transcripts() []Transcript {
	return c.session.Transcripts()
}

// SetVolume changes the playback volume (0-100)
func (c *Conversation) SetVolume(volume int) {
	c.timeline.SetVolume(volume)
}

// SetMuted mutes or unmutes playback
func (c *Conversation) SetMuted(muted bool) {
	c.timeline.SetMuted(muted)
}

// Close disconnects and releases the speaker
func (c *Conversation) Close() error {
	c.session.Disconnect()
	if c.cancel != nil {
		c.cancel()
		<-c.done
		c.cancel = nil
	}
	if err := c.backend.Close(); err != nil {
		log.Printf("Warning: output close error: %v", err)
	}
	return nil
}
