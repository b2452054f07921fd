// ABOUTME: Audio input interface definitions
// ABOUTME: Input device contract, block re-chunking and the drop-oldest block queue
package input

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/voicelink/voicelink-go/pkg/audio"
)

// ErrDeviceUnavailable is returned when no input device exists or access is denied
var ErrDeviceUnavailable = errors.New("input device unavailable")

// DefaultQueueDepth is the number of blocks buffered between the device and its reader
const DefaultQueueDepth = 8

// Config describes the stream requested from an input device
type Config struct {
	Channels   int
	SampleRate int
	BlockSize  int
	QueueDepth int
}

// DefaultConfig returns the capture configuration of the voice pipeline
func DefaultConfig() Config {
	return Config{
		Channels:   audio.Channels,
		SampleRate: audio.CaptureSampleRate,
		BlockSize:  audio.BlockSize,
		QueueDepth: DefaultQueueDepth,
	}
}

// Validate rejects configurations the pipeline cannot carry
func (c Config) Validate() error {
	if err := (audio.Format{SampleRate: c.SampleRate, Channels: c.Channels}).Validate(); err != nil {
		return err
	}
	if c.BlockSize <= 0 {
		return fmt.Errorf("invalid block size: %d", c.BlockSize)
	}
	if c.QueueDepth <= 0 {
		return fmt.Errorf("invalid queue depth: %d", c.QueueDepth)
	}
	return nil
}

// Source acquires input devices
type Source interface {
	// Acquire opens a device delivering blocks of exactly cfg.BlockSize samples
	Acquire(cfg Config) (Handle, error)
}

// Handle is a live input device
type Handle interface {
	// Blocks delivers captured blocks in order; closed after Release
	Blocks() <-chan audio.Block

	// Dropped returns how many blocks were discarded because the reader fell behind
	Dropped() int64

	// Release stops the device. No block is delivered after it returns.
	Release() error
}

// blockQueue is a bounded channel with a drop-oldest policy: the producer
// runs on the audio thread and must never block.
type blockQueue struct {
	ch      chan audio.Block
	dropped atomic.Int64
}

func newBlockQueue(depth int) *blockQueue {
	return &blockQueue{ch: make(chan audio.Block, depth)}
}

// offer enqueues b, evicting the oldest queued block when full
func (q *blockQueue) offer(b audio.Block) {
	for {
		select {
		case q.ch <- b:
			return
		default:
		}

		select {
		case <-q.ch:
			q.dropped.Add(1)
		default:
		}
	}
}

// blocker re-chunks arbitrary device periods into fixed-size blocks
type blocker struct {
	size    int
	pending audio.Block
	emit    func(audio.Block)
}

func newBlocker(size int, emit func(audio.Block)) *blocker {
	return &blocker{
		size:    size,
		pending: make(audio.Block, 0, size),
		emit:    emit,
	}
}

// write appends samples and emits every completed block
func (b *blocker) write(samples []float32) {
	for len(samples) > 0 {
		n := min(b.size-len(b.pending), len(samples))
		b.pending = append(b.pending, samples[:n]...)
		samples = samples[n:]

		if len(b.pending) == b.size {
			b.emit(b.pending)
			b.pending = make(audio.Block, 0, b.size)
		}
	}
}
