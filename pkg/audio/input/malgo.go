// ABOUTME: Malgo-based microphone input
// ABOUTME: Captures float32 mono audio via miniaudio and re-blocks it for the capture engine
package input

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/voicelink/voicelink-go/pkg/audio"
)

// Malgo acquires capture devices through malgo/miniaudio
type Malgo struct{}

// NewMalgo creates a new Malgo input source
func NewMalgo() *Malgo {
	return &Malgo{}
}

// Acquire opens the default capture device. miniaudio converts from the
// hardware rate, so blocks always arrive at cfg.SampleRate.
func (m *Malgo) Acquire(cfg Config) (Handle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid capture config: %w", err)
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to initialize malgo context: %v", ErrDeviceUnavailable, err)
	}

	h := &malgoHandle{
		malgoCtx: ctx,
		channels: cfg.Channels,
		queue:    newBlockQueue(cfg.QueueDepth),
	}
	h.blocker = newBlocker(cfg.BlockSize, h.queue.offer)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(cfg.BlockSize)
	deviceConfig.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: h.dataCallback,
	})
	if err != nil {
		h.freeContext()
		return nil, fmt.Errorf("%w: failed to initialize capture device: %v", ErrDeviceUnavailable, err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		h.freeContext()
		return nil, fmt.Errorf("%w: failed to start capture device: %v", ErrDeviceUnavailable, err)
	}
	h.device = device

	log.Printf("Audio input initialized: %dHz, %d channel, %d-sample blocks (malgo)",
		cfg.SampleRate, cfg.Channels, cfg.BlockSize)

	return h, nil
}

type malgoHandle struct {
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	channels int
	queue    *blockQueue
	blocker  *blocker
	scratch  []float32
	release  sync.Once
}

// dataCallback runs on the audio thread once per device period
func (h *malgoHandle) dataCallback(_, pInput []byte, frameCount uint32) {
	n := int(frameCount) * h.channels
	if n*4 > len(pInput) {
		n = len(pInput) / 4
	}
	if cap(h.scratch) < n {
		h.scratch = make([]float32, n)
	}
	samples := h.scratch[:n]
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(pInput[i*4:]))
	}
	h.blocker.write(samples)
}

func (h *malgoHandle) Blocks() <-chan audio.Block {
	return h.queue.ch
}

func (h *malgoHandle) Dropped() int64 {
	return h.queue.dropped.Load()
}

// Release stops the device; miniaudio guarantees no callback runs after Stop
func (h *malgoHandle) Release() error {
	h.release.Do(func() {
		if err := h.device.Stop(); err != nil {
			log.Printf("Warning: capture device stop error: %v", err)
		}
		h.device.Uninit()
		h.freeContext()
		close(h.queue.ch)
		log.Printf("Audio input released")
	})
	return nil
}

func (h *malgoHandle) freeContext() {
	if h.malgoCtx == nil {
		return
	}
	if err := h.malgoCtx.Uninit(); err != nil {
		log.Printf("Warning: malgo context uninit error: %v", err)
	}
	h.malgoCtx.Free()
	h.malgoCtx = nil
}
