// ABOUTME: Audio output interface definitions
// ABOUTME: Output device contract (buffers, scheduling, audio clock) and playback backends
package output

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedBuffer is returned for buffers the device cannot play
	ErrUnsupportedBuffer = errors.New("unsupported buffer format")

	// ErrNotOpen is returned when a backend is used before Open
	ErrNotOpen = errors.New("output not initialized")
)

// Device is the output side of the audio subsystem. Times are seconds on
// the device's audio clock.
type Device interface {
	// CreateBuffer allocates a playable buffer
	CreateBuffer(channels, frames, sampleRate int) (*Buffer, error)

	// ScheduleBuffer queues buf to start playing at startTime
	ScheduleBuffer(buf *Buffer, startTime float64) error

	// CurrentTime returns the monotonic audio clock
	CurrentTime() float64

	// Cancel drops every buffer that has not finished playing
	Cancel()
}

// Backend drives a Timeline from a real audio device
type Backend interface {
	// Open initializes the device and starts pulling audio
	Open() error

	// Close releases output resources
	Close() error
}

// Buffer holds mono float samples at a fixed sample rate
type Buffer struct {
	sampleRate int
	channels   int
	data       []float32
}

// NewBuffer allocates a zeroed buffer
func NewBuffer(channels, frames, sampleRate int) (*Buffer, error) {
	if channels != 1 {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedBuffer, channels)
	}
	if frames <= 0 {
		return nil, fmt.Errorf("%w: %d frames", ErrUnsupportedBuffer, frames)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrUnsupportedBuffer, sampleRate)
	}

	return &Buffer{
		sampleRate: sampleRate,
		channels:   channels,
		data:       make([]float32, frames*channels),
	}, nil
}

// ChannelData returns the writable samples of channel ch
func (b *Buffer) ChannelData(ch int) []float32 {
	if ch != 0 {
		return nil
	}
	return b.data
}

// Frames returns the buffer length in sample frames
func (b *Buffer) Frames() int {
	return len(b.data) / b.channels
}

// SampleRate returns the buffer's sample rate
func (b *Buffer) SampleRate() int {
	return b.sampleRate
}

// Channels returns the buffer's channel count
func (b *Buffer) Channels() int {
	return b.channels
}

// Duration returns the exact playback length in seconds
func (b *Buffer) Duration() float64 {
	return float64(b.Frames()) / float64(b.sampleRate)
}
