// ABOUTME: Gapless playback scheduling of received PCM16 chunks
// ABOUTME: Places each chunk back-to-back on the output device's audio clock
package playback

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/voicelink/voicelink-go/internal/metrics"
	"github.com/voicelink/voicelink-go/pkg/audio"
	"github.com/voicelink/voicelink-go/pkg/audio/decode"
	"github.com/voicelink/voicelink-go/pkg/audio/framing"
	"github.com/voicelink/voicelink-go/pkg/audio/output"
)

// State is the scheduler lifecycle state
type State int

const (
	// Idle: no schedule exists, the next chunk starts a new one
	Idle State = iota
	// Active: chunks are appended at nextStartTime
	Active
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config holds scheduler configuration
type Config struct {
	SampleRate int
	WarmUp     time.Duration

	// CancelOnStop also drops buffers already handed to the device
	CancelOnStop bool
}

// DefaultConfig returns 24 kHz playback with a 100ms warm-up
func DefaultConfig() Config {
	return Config{
		SampleRate: audio.PlaybackSampleRate,
		WarmUp:     audio.WarmUpLatency,
	}
}

// Stats tracks scheduler metrics
type Stats struct {
	Scheduled int64
	Rejected  int64
	Stops     int64
}

// Scheduler owns one PlaybackSchedule
type Scheduler struct {
	mu            sync.Mutex
	device        output.Device
	config        Config
	metrics       *metrics.Metrics
	state         State
	nextStartTime float64
	stats         Stats
}

// NewScheduler creates an idle scheduler playing on device
func NewScheduler(device output.Device, config Config, m *metrics.Metrics) (*Scheduler, error) {
	if device == nil {
		return nil, fmt.Errorf("output device is required")
	}
	if err := (audio.Format{SampleRate: config.SampleRate, Channels: audio.Channels}).Validate(); err != nil {
		return nil, fmt.Errorf("invalid playback config: %w", err)
	}
	if config.WarmUp < 0 {
		return nil, fmt.Errorf("invalid warm-up: %v", config.WarmUp)
	}
	if m == nil {
		m = metrics.Default
	}

	return &Scheduler{
		device:  device,
		config:  config,
		metrics: m,
	}, nil
}

// AddEncoded decodes a base64 chunk and schedules it
func (s *Scheduler) AddEncoded(encoded string) error {
	chunk, err := framing.Decode(encoded)
	if err != nil {
		s.reject(err)
		return err
	}
	return s.AddChunk(chunk)
}

// AddChunk schedules chunk immediately after everything scheduled before
// it. A malformed chunk is rejected without touching the schedule.
func (s *Scheduler) AddChunk(chunk audio.Chunk) error {
	samples, err := decode.PCM16(chunk)
	if err != nil {
		s.reject(err)
		return err
	}

	buf, err := s.device.CreateBuffer(audio.Channels, len(samples), s.config.SampleRate)
	if err != nil {
		return fmt.Errorf("failed to create buffer: %w", err)
	}
	copy(buf.ChannelData(0), samples)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.device.CurrentTime()
	if s.state == Idle {
		s.nextStartTime = now + s.config.WarmUp.Seconds()
		s.state = Active
		log.Printf("Playback: schedule started at %.3fs (clock %.3fs)", s.nextStartTime, now)
	}

	if err := s.device.ScheduleBuffer(buf, s.nextStartTime); err != nil {
		return fmt.Errorf("failed to schedule buffer: %w", err)
	}

	s.stats.Scheduled++
	if s.stats.Scheduled <= 5 {
		log.Printf("Playback: chunk %d, %d samples at %.3fs", s.stats.Scheduled, len(samples), s.nextStartTime)
	}

	s.nextStartTime += float64(len(samples)) / float64(s.config.SampleRate)

	s.metrics.ChunksScheduled.Inc()
	s.metrics.ScheduleLead.Set(s.nextStartTime - now)

	return nil
}

func (s *Scheduler) reject(err error) {
	s.mu.Lock()
	s.stats.Rejected++
	n := s.stats.Rejected
	s.mu.Unlock()

	s.metrics.ChunksRejected.Inc()
	if n <= 5 {
		log.Printf("Playback: skipping chunk: %v", err)
	}
}

// Stop returns to Idle and forgets the schedule. Buffers already on the
// device keep playing unless CancelOnStop is set.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Active {
		s.stats.Stops++
		log.Printf("Playback: stopped at %.3fs", s.device.CurrentTime())
	}
	s.state = Idle
	s.nextStartTime = 0
	s.metrics.ScheduleLead.Set(0)

	if s.config.CancelOnStop {
		s.device.Cancel()
	}
}

// State returns the current state
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// NextStartTime returns where the next chunk will be placed; zero when idle
func (s *Scheduler) NextStartTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextStartTime
}

// Lead returns how far the schedule runs ahead of the audio clock
func (s *Scheduler) Lead() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Idle {
		return 0
	}
	lead := s.nextStartTime - s.device.CurrentTime()
	if lead < 0 {
		return 0
	}
	return time.Duration(lead * float64(time.Second))
}

// Stats returns scheduler statistics
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
