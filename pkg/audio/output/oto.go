// ABOUTME: Oto-based audio output backend
// ABOUTME: Streams a Timeline to the sound card through a persistent oto player
package output

import (
	"fmt"
	"log"
	"time"

	"github.com/ebitengine/oto/v3"
)

// otoBufferSize keeps the device read-ahead small so the Timeline clock
// stays close to what is audible
const otoBufferSize = 40 * time.Millisecond

// Oto output implementation using oto library
type Oto struct {
	timeline *Timeline
	otoCtx   *oto.Context
	player   *oto.Player
	ready    bool
}

// NewOto creates a new Oto output that plays timeline
func NewOto(timeline *Timeline) *Oto {
	return &Oto{
		timeline: timeline,
	}
}

// Open initializes the output device at the timeline's sample rate
func (o *Oto) Open() error {
	// oto only allows one context per process
	if o.otoCtx != nil {
		log.Printf("Audio output already initialized, reusing context")
		if err := o.otoCtx.Resume(); err != nil {
			return fmt.Errorf("failed to resume oto context: %w", err)
		}
		if o.player == nil {
			o.startPlayer()
		}
		return nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   o.timeline.SampleRate(),
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   otoBufferSize,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}

	<-readyChan

	o.otoCtx = ctx
	o.startPlayer()

	log.Printf("Audio output initialized: %dHz, 1 channel (oto)", o.timeline.SampleRate())

	return nil
}

// startPlayer creates the persistent player that pulls from the timeline
func (o *Oto) startPlayer() {
	o.player = o.otoCtx.NewPlayer(o.timeline)
	o.player.Play()
	o.ready = true
}

// Ready reports whether audio is flowing
func (o *Oto) Ready() bool {
	return o.ready
}

// Close releases output resources
func (o *Oto) Close() error {
	if o.player != nil {
		if err := o.player.Close(); err != nil {
			log.Printf("Warning: oto player close error: %v", err)
		}
		o.player = nil
	}
	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			log.Printf("Warning: oto suspend error: %v", err)
		}
	}
	o.ready = false
	return nil
}
