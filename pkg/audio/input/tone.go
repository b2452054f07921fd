// ABOUTME: Test tone input source
// ABOUTME: Generates a paced sine wave in place of a microphone
package input

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/voicelink/voicelink-go/pkg/audio"
)

// Tone generates a sine wave at real-time pace
type Tone struct {
	frequency float64
	amplitude float64
}

// NewTone creates a tone source at frequency Hz and half scale
func NewTone(frequency float64) *Tone {
	return &Tone{
		frequency: frequency,
		amplitude: 0.5,
	}
}

// Acquire starts generating blocks; it never fails for a valid config
func (t *Tone) Acquire(cfg Config) (Handle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid capture config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &toneHandle{
		tone:   t,
		cfg:    cfg,
		queue:  newBlockQueue(cfg.QueueDepth),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go h.run(ctx)

	return h, nil
}

// Generate fills block with the tone starting at sample index start
func (t *Tone) Generate(block audio.Block, start uint64, sampleRate int) {
	for i := range block {
		ts := float64(start+uint64(i)) / float64(sampleRate)
		block[i] = float32(t.amplitude * math.Sin(2*math.Pi*t.frequency*ts))
	}
}

type toneHandle struct {
	tone    *Tone
	cfg     Config
	queue   *blockQueue
	cancel  context.CancelFunc
	done    chan struct{}
	release sync.Once
}

func (h *toneHandle) run(ctx context.Context) {
	defer close(h.done)

	period := time.Duration(h.cfg.BlockSize) * time.Second / time.Duration(h.cfg.SampleRate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	var sampleIndex uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			block := make(audio.Block, h.cfg.BlockSize)
			h.tone.Generate(block, sampleIndex, h.cfg.SampleRate)
			sampleIndex += uint64(h.cfg.BlockSize)
			h.queue.offer(block)
		}
	}
}

func (h *toneHandle) Blocks() <-chan audio.Block {
	return h.queue.ch
}

func (h *toneHandle) Dropped() int64 {
	return h.queue.dropped.Load()
}

func (h *toneHandle) Release() error {
	h.release.Do(func() {
		h.cancel()
		<-h.done
		close(h.queue.ch)
	})
	return nil
}
