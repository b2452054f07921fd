// ABOUTME: In-process echo peer implementing a transport session
// ABOUTME: Resamples captured speech to the playback rate and plays it back as a reply turn
package loopback

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/voicelink/voicelink-go/internal/transport"
	"github.com/voicelink/voicelink-go/pkg/audio"
	"github.com/voicelink/voicelink-go/pkg/audio/decode"
	"github.com/voicelink/voicelink-go/pkg/audio/encode"
	"github.com/voicelink/voicelink-go/pkg/audio/framing"
	"github.com/voicelink/voicelink-go/pkg/audio/resample"
)

// Config holds echo peer configuration
type Config struct {
	InputRate  int
	OutputRate int

	// ReplyChunk is the number of output samples per reply chunk
	ReplyChunk int

	// ChunkInterval paces reply chunks; zero sends them back to back
	ChunkInterval time.Duration

	// Threshold is the RMS level above which a chunk counts as speech
	Threshold float64

	// MaxTurn caps how much speech is collected before replying
	MaxTurn time.Duration
}

// DefaultConfig echoes 16 kHz capture as 24 kHz playback in 100ms chunks
func DefaultConfig() Config {
	return Config{
		InputRate:     audio.CaptureSampleRate,
		OutputRate:    audio.PlaybackSampleRate,
		ReplyChunk:    audio.PlaybackSampleRate / 10,
		ChunkInterval: 100 * time.Millisecond,
		Threshold:     0.02,
		MaxTurn:       3 * time.Second,
	}
}

// Peer is a transport.Session that answers each utterance with its echo.
// Speech starting while a reply plays interrupts the reply.
type Peer struct {
	config    Config
	mimeType  string
	resampler *resample.Resampler
	events    chan transport.Event

	mu        sync.Mutex
	closed    bool
	utterance []int16
	voiced    bool // current utterance contains speech
	prevLoud  bool // previous chunk was above threshold
	speaking  bool
	stopReply context.CancelFunc

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates an echo peer
func New(config Config) (*Peer, error) {
	if config.InputRate <= 0 || config.OutputRate <= 0 {
		return nil, fmt.Errorf("invalid rates: %d -> %d", config.InputRate, config.OutputRate)
	}
	if config.ReplyChunk <= 0 {
		return nil, fmt.Errorf("invalid reply chunk: %d", config.ReplyChunk)
	}
	if config.MaxTurn <= 0 {
		return nil, fmt.Errorf("invalid max turn: %v", config.MaxTurn)
	}

	return &Peer{
		config:    config,
		mimeType:  audio.MIMEType(config.OutputRate),
		resampler: resample.New(config.InputRate, config.OutputRate),
		events:    make(chan transport.Event, transport.EventBuffer),
		done:      make(chan struct{}),
	}, nil
}

// Dialer returns a dialer creating a fresh peer per session
func Dialer(config Config) transport.Dialer {
	return transport.DialerFunc(func(ctx context.Context) (transport.Session, error) {
		return New(config)
	})
}

// SendAudio accepts one capture chunk
func (p *Peer) SendAudio(ctx context.Context, encoded, mimeType string) error {
	chunk, err := framing.Decode(encoded)
	if err != nil {
		return err
	}
	samples, err := decode.Int16(chunk)
	if err != nil {
		return err
	}
	level := rms(samples)
	loud := level >= p.config.Threshold

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return transport.ErrClosed
	}

	onset := loud && !p.prevLoud
	p.prevLoud = loud

	if p.speaking && onset {
		// Barge-in
		p.stopReply()
		p.speaking = false
		p.emitLocked(transport.Event{Interrupted: true})
		log.Printf("Loopback: reply interrupted")
	}

	if !loud && !p.voiced {
		// Silence before any speech is not part of an utterance
		return nil
	}

	maxSamples := int(p.config.MaxTurn.Seconds() * float64(p.config.OutputRate))
	if len(p.utterance) < maxSamples {
		p.utterance = append(p.utterance, p.resampler.Resample(samples)...)
	}
	if loud {
		p.voiced = true
	}

	endOfUtterance := !loud && p.voiced
	if (endOfUtterance || len(p.utterance) >= maxSamples) && !p.speaking {
		p.startReplyLocked()
	}

	return nil
}

// startReplyLocked hands the collected utterance to a reply goroutine
func (p *Peer) startReplyLocked() {
	utterance := p.utterance
	p.utterance = nil
	p.voiced = false
	p.resampler.Reset()

	seconds := float64(len(utterance)) / float64(p.config.OutputRate)
	p.emitLocked(transport.Event{Transcript: &transport.Transcript{
		Role: transport.RoleUser,
		Text: fmt.Sprintf("(%.1fs of speech)", seconds),
	}})

	ctx, cancel := context.WithCancel(context.Background())
	p.stopReply = cancel
	p.speaking = true

	p.wg.Add(1)
	go p.reply(ctx, utterance, seconds)
}

func (p *Peer) reply(ctx context.Context, utterance []int16, seconds float64) {
	defer p.wg.Done()

	var ticker *time.Ticker
	if p.config.ChunkInterval > 0 {
		ticker = time.NewTicker(p.config.ChunkInterval)
		defer ticker.Stop()
	}

	for start := 0; start < len(utterance); start += p.config.ReplyChunk {
		end := min(start+p.config.ReplyChunk, len(utterance))
		ev := transport.Event{
			Audio:    framing.Encode(encode.Int16(utterance[start:end])),
			MIMEType: p.mimeType,
		}
		if !p.emit(ctx, ev) {
			return
		}

		if ticker != nil && end < len(utterance) {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}

	if !p.emit(ctx, transport.Event{Transcript: &transport.Transcript{
		Role: transport.RoleModel,
		Text: fmt.Sprintf("(echoed %.1fs)", seconds),
	}}) {
		return
	}
	if !p.emit(ctx, transport.Event{TurnComplete: true}) {
		return
	}

	p.mu.Lock()
	if ctx.Err() == nil {
		p.speaking = false
	}
	p.mu.Unlock()
}

// emit delivers ev from the reply goroutine
func (p *Peer) emit(ctx context.Context, ev transport.Event) bool {
	select {
	case p.events <- ev:
		return true
	case <-ctx.Done():
		return false
	case <-p.done:
		return false
	}
}

// emitLocked delivers ev while p.mu is held
func (p *Peer) emitLocked(ev transport.Event) {
	select {
	case p.events <- ev:
	case <-p.done:
	}
}

// Events returns the inbound event channel
func (p *Peer) Events() <-chan transport.Event {
	return p.events
}

// Speaking reports whether a reply is playing
func (p *Peer) Speaking() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speaking
}

// Close stops any reply and closes the event channel
func (p *Peer) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)

		p.mu.Lock()
		p.closed = true
		if p.stopReply != nil {
			p.stopReply()
		}
		p.mu.Unlock()

		p.wg.Wait()
		close(p.events)
	})
	return nil
}

// rms returns the normalized root-mean-square level of samples
func rms(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(audio.SampleFromInt16(s))
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
