// ABOUTME: Capture engine turning microphone blocks into encoded PCM16 chunks
// ABOUTME: Owns the capture session between Start and Stop and feeds the registered sink
package capture

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/voicelink/voicelink-go/internal/metrics"
	"github.com/voicelink/voicelink-go/pkg/audio"
	"github.com/voicelink/voicelink-go/pkg/audio/encode"
	"github.com/voicelink/voicelink-go/pkg/audio/framing"
	"github.com/voicelink/voicelink-go/pkg/audio/input"
)

// ErrAlreadyStarted is returned by Start while a session is active
var ErrAlreadyStarted = errors.New("capture already started")

// Sink receives each encoded chunk with its MIME descriptor. It runs on the
// engine's processing loop and must not call Stop.
type Sink func(encoded, mimeType string)

// Config holds capture configuration
type Config struct {
	SampleRate int
	BlockSize  int
	QueueDepth int
}

// DefaultConfig returns the 16 kHz / 4096-sample capture configuration
func DefaultConfig() Config {
	return Config{
		SampleRate: audio.CaptureSampleRate,
		BlockSize:  audio.BlockSize,
		QueueDepth: input.DefaultQueueDepth,
	}
}

// Stats tracks capture metrics
type Stats struct {
	Blocks   int64
	Rejected int64
	Dropped  int64
}

// Engine converts captured AudioBlocks into PCM16 chunks for the transport
type Engine struct {
	source   input.Source
	config   Config
	sink     Sink
	encoder  *encode.PCMEncoder
	mimeType string
	metrics  *metrics.Metrics

	// Capture session, present only between Start and Stop
	handle input.Handle
	cancel context.CancelFunc
	done   chan struct{}

	blocks      atomic.Int64
	rejected    atomic.Int64
	dropped     atomic.Int64
	lastDropped int64
}

// New creates a capture engine reading from source and delivering to sink
func New(source input.Source, config Config, sink Sink, m *metrics.Metrics) (*Engine, error) {
	if source == nil {
		return nil, fmt.Errorf("input source is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("sink is required")
	}
	if m == nil {
		m = metrics.Default
	}

	format := audio.Format{SampleRate: config.SampleRate, Channels: audio.Channels}
	encoder, err := encode.NewPCM(format)
	if err != nil {
		return nil, err
	}

	return &Engine{
		source:   source,
		config:   config,
		sink:     sink,
		encoder:  encoder,
		mimeType: audio.MIMEType(config.SampleRate),
		metrics:  m,
	}, nil
}

// MIMEType returns the descriptor attached to every emitted chunk
func (e *Engine) MIMEType() string {
	return e.mimeType
}

// Start acquires the input device and starts the processing loop. It fails
// with an error wrapping input.ErrDeviceUnavailable when no device can be
// opened; no retry is attempted.
func (e *Engine) Start(ctx context.Context) error {
	if e.handle != nil {
		return ErrAlreadyStarted
	}

	handle, err := e.source.Acquire(input.Config{
		Channels:   audio.Channels,
		SampleRate: e.config.SampleRate,
		BlockSize:  e.config.BlockSize,
		QueueDepth: e.config.QueueDepth,
	})
	if err != nil {
		return fmt.Errorf("capture start failed: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	e.handle = handle
	e.cancel = cancel
	e.done = make(chan struct{})
	e.lastDropped = 0

	go e.run(loopCtx, handle, e.done)

	log.Printf("Capture started: %dHz, %d-sample blocks", e.config.SampleRate, e.config.BlockSize)

	return nil
}

// run is the single processing loop of a capture session
func (e *Engine) run(ctx context.Context, handle input.Handle, done chan struct{}) {
	defer close(done)

	blocks := handle.Blocks()
	for {
		select {
		case <-ctx.Done():
			return
		case block, ok := <-blocks:
			if !ok {
				log.Printf("Capture: input device closed")
				return
			}
			if ctx.Err() != nil {
				return
			}
			e.process(block)
			e.syncDropped(handle)
		}
	}
}

// process converts one block and hands it to the sink
func (e *Engine) process(block audio.Block) {
	if len(block) != e.config.BlockSize {
		// Device contract violation: never forward partial or merged blocks
		n := e.rejected.Add(1)
		e.metrics.BlocksRejected.Inc()
		if n <= 5 {
			log.Printf("Capture: rejected block of %d samples (expected %d)", len(block), e.config.BlockSize)
		}
		return
	}

	chunk := e.encoder.Encode(block)
	e.sink(framing.Encode(chunk), e.mimeType)

	e.blocks.Add(1)
	e.metrics.BlocksCaptured.Inc()
	e.metrics.ChunksSent.Inc()
}

// syncDropped folds the device's drop counter into engine stats
func (e *Engine) syncDropped(handle input.Handle) {
	total := handle.Dropped()
	if delta := total - e.lastDropped; delta > 0 {
		e.lastDropped = total
		e.dropped.Add(delta)
		e.metrics.BlocksDropped.Add(float64(delta))
		log.Printf("Capture: %d blocks dropped (engine fell behind)", delta)
	}
}

// Stop ends the capture session: the loop exits, the device is released and
// the session discarded. Calling Stop when not started is a no-op. No sink
// call happens after Stop returns.
func (e *Engine) Stop() {
	if e.handle == nil {
		return
	}

	e.cancel()
	<-e.done

	if err := e.handle.Release(); err != nil {
		log.Printf("Warning: input release error: %v", err)
	}

	e.handle = nil
	e.cancel = nil
	e.done = nil

	log.Printf("Capture stopped")
}

// Active reports whether a capture session exists
func (e *Engine) Active() bool {
	return e.handle != nil
}

// Stats returns capture statistics; safe to call from any goroutine
func (e *Engine) Stats() Stats {
	return Stats{
		Blocks:   e.blocks.Load(),
		Rejected: e.rejected.Load(),
		Dropped:  e.dropped.Load(),
	}
}
