// ABOUTME: Live session orchestration joining capture, transport and playback
// ABOUTME: Owns connect/disconnect, routes inbound events and keeps the transcript log
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voicelink/voicelink-go/internal/capture"
	"github.com/voicelink/voicelink-go/internal/metrics"
	"github.com/voicelink/voicelink-go/internal/playback"
	"github.com/voicelink/voicelink-go/internal/transport"
	"github.com/voicelink/voicelink-go/pkg/audio"
	"github.com/voicelink/voicelink-go/pkg/audio/input"
	"github.com/voicelink/voicelink-go/pkg/audio/output"
)

// ErrAlreadyConnected is returned by Connect while a session is live or connecting
var ErrAlreadyConnected = errors.New("already connected")

// ErrDisconnected is returned by Connect when Disconnect ran while it was
// still connecting
var ErrDisconnected = errors.New("disconnected while connecting")

// DefaultTranscriptLimit bounds the transcript log
const DefaultTranscriptLimit = 50

// Config holds session configuration
type Config struct {
	Capture         capture.Config
	Playback        playback.Config
	TranscriptLimit int
}

// DefaultConfig returns the standard pipeline configuration
func DefaultConfig() Config {
	return Config{
		Capture:         capture.DefaultConfig(),
		Playback:        playback.DefaultConfig(),
		TranscriptLimit: DefaultTranscriptLimit,
	}
}

// Status is a snapshot of the session for display
type Status struct {
	Connecting bool
	Connected  bool
	LastError  error

	Scheduler playback.State
	Lead      time.Duration
	Capture   capture.Stats
	Playback  playback.Stats
	Sent      int64
	Received  int64
	// Chunks the output device refused
	ScheduleErrors int64
}

// Session joins one capture engine and one playback scheduler through a
// transport session. At most one connection exists at a time.
type Session struct {
	config  Config
	dialer  transport.Dialer
	source  input.Source
	device  output.Device
	metrics *metrics.Metrics

	mu          sync.Mutex
	connecting  bool
	connected   bool
	lastErr     error
	transcripts []transport.Transcript
	openTurn    bool // last transcript may still grow
	engine      *capture.Engine
	scheduler   *playback.Scheduler
	cancel      context.CancelFunc
	done        chan struct{}

	// Set while Connect is in flight
	abort   context.CancelFunc
	aborted bool

	scheduleErrors atomic.Int64

	sent     atomic.Int64
	received atomic.Int64
	updates  chan struct{}
}

// New creates a disconnected session
func New(config Config, dialer transport.Dialer, source input.Source, device output.Device, m *metrics.Metrics) (*Session, error) {
	if dialer == nil || source == nil || device == nil {
		return nil, fmt.Errorf("dialer, input source and output device are required")
	}
	if config.TranscriptLimit <= 0 {
		config.TranscriptLimit = DefaultTranscriptLimit
	}
	if m == nil {
		m = metrics.Default
	}

	return &Session{
		config:  config,
		dialer:  dialer,
		source:  source,
		device:  device,
		metrics: m,
		updates: make(chan struct{}, 1),
	}, nil
}

// Updates signals, coalesced, whenever the status or transcripts change
func (s *Session) Updates() <-chan struct{} {
	return s.updates
}

func (s *Session) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// Connect dials the transport, starts capture and begins routing events.
// A capture failure closes the transport before returning.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.connecting || s.connected {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	dialCtx, abort := context.WithCancel(ctx)
	defer abort()
	s.connecting = true
	s.aborted = false
	s.abort = abort
	s.lastErr = nil
	s.mu.Unlock()
	s.notify()

	err := s.connect(dialCtx)

	s.mu.Lock()
	s.connecting = false
	s.abort = nil
	if err != nil {
		s.lastErr = err
	}
	s.mu.Unlock()
	s.notify()

	return err
}

func (s *Session) connect(ctx context.Context) error {
	conn, err := s.dialer.Dial(ctx)
	if err != nil {
		s.metrics.SessionErrors.WithLabelValues("dial").Inc()
		return fmt.Errorf("connect failed: %w", err)
	}

	scheduler, err := playback.NewScheduler(s.device, s.config.Playback, s.metrics)
	if err != nil {
		conn.Close()
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())

	var sendErrors atomic.Int64
	sink := func(encoded, mimeType string) {
		if err := conn.SendAudio(loopCtx, encoded, mimeType); err != nil {
			if n := sendErrors.Add(1); n <= 5 {
				log.Printf("Session: send failed: %v", err)
			}
			return
		}
		s.sent.Add(1)
	}

	engine, err := capture.New(s.source, s.config.Capture, sink, s.metrics)
	if err != nil {
		cancel()
		conn.Close()
		return err
	}
	if err := engine.Start(loopCtx); err != nil {
		s.metrics.SessionErrors.WithLabelValues("capture").Inc()
		cancel()
		conn.Close()
		return err
	}

	s.mu.Lock()
	if s.aborted {
		s.mu.Unlock()
		cancel()
		conn.Close()
		engine.Stop()
		log.Printf("Session: disconnected while connecting")
		return ErrDisconnected
	}
	s.connected = true
	s.engine = engine
	s.scheduler = scheduler
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	s.metrics.SessionsStarted.Inc()
	log.Printf("Session connected")

	go s.pump(loopCtx, conn, engine, scheduler, done)

	return nil
}

// pump routes inbound events until the transport ends or Disconnect.
// It owns both engines for the lifetime of the connection.
func (s *Session) pump(ctx context.Context, conn transport.Session, engine *capture.Engine, scheduler *playback.Scheduler, done chan struct{}) {
	defer close(done)

	var endErr error
	events := conn.Events()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case ev, ok := <-events:
			if !ok {
				break loop
			}
			if ev.Err != nil {
				endErr = ev.Err
				break loop
			}
			s.handleEvent(ev, scheduler)
		}
	}

	// Close first: a send blocked on a stalled transport only returns once
	// the transport is closed, and capture Stop waits for that send
	if err := conn.Close(); err != nil {
		log.Printf("Session: transport close error: %v", err)
	}
	engine.Stop()
	scheduler.Stop()

	if endErr != nil {
		s.metrics.SessionErrors.WithLabelValues("transport").Inc()
		log.Printf("Session ended: %v", endErr)
	} else {
		log.Printf("Session disconnected")
	}

	s.mu.Lock()
	s.connected = false
	s.engine = nil
	s.scheduler = nil
	s.cancel = nil
	if endErr != nil {
		s.lastErr = endErr
	}
	s.mu.Unlock()
	s.notify()
}

// handleEvent applies one inbound event
func (s *Session) handleEvent(ev transport.Event, scheduler *playback.Scheduler) {
	switch {
	case ev.Audio != "":
		s.received.Add(1)
		// Malformed chunks are skipped; the scheduler logs them
		if err := scheduler.AddEncoded(ev.Audio); err != nil && !errors.Is(err, audio.ErrMalformedChunk) {
			if n := s.scheduleErrors.Add(1); n <= 5 {
				log.Printf("Warning: failed to schedule chunk: %v", err)
			}
		}

	case ev.Interrupted:
		s.metrics.Interrupts.Inc()
		scheduler.Stop()
		s.closeTurn()
		s.notify()

	case ev.TurnComplete:
		s.closeTurn()

	case ev.Transcript != nil:
		s.addTranscript(*ev.Transcript)
		s.notify()
	}
}

// addTranscript appends a line, extending the previous one when the same
// speaker is still mid-turn
func (s *Session) addTranscript(t transport.Transcript) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.transcripts); n > 0 && s.openTurn && s.transcripts[n-1].Role == t.Role {
		s.transcripts[n-1].Text += t.Text
		return
	}

	s.transcripts = append(s.transcripts, t)
	if over := len(s.transcripts) - s.config.TranscriptLimit; over > 0 {
		s.transcripts = append(s.transcripts[:0:0], s.transcripts[over:]...)
	}
	s.openTurn = true
}

func (s *Session) closeTurn() {
	s.mu.Lock()
	s.openTurn = false
	s.mu.Unlock()
}

// Disconnect stops both engines and closes the transport. A Connect still
// in flight is aborted and returns ErrDisconnected. It is a no-op when not
// connected.
func (s *Session) Disconnect() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	if s.connecting && cancel == nil {
		s.aborted = true
		if s.abort != nil {
			s.abort()
		}
	}
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Wait blocks until the current connection ends
func (s *Session) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Connected reports whether a connection is live
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Transcripts returns a copy of the transcript log
func (s *Session) Transcripts() []transport.Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]transport.Transcript, len(s.transcripts))
	copy(out, s.transcripts)
	return out
}

// Status returns a snapshot for display
func (s *Session) Status() Status {
	s.mu.Lock()
	st := Status{
		Connecting: s.connecting,
		Connected:  s.connected,
		LastError:  s.lastErr,
		Sent:       s.sent.Load(),
		Received:   s.received.Load(),

		ScheduleErrors: s.scheduleErrors.Load(),
	}
	engine, scheduler := s.engine, s.scheduler
	s.mu.Unlock()

	if engine != nil {
		st.Capture = engine.Stats()
	}
	if scheduler != nil {
		st.Scheduler = scheduler.State()
		st.Lead = scheduler.Lead()
		st.Playback = scheduler.Stats()
	}
	return st
}
