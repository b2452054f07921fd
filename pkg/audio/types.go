// ABOUTME: Audio type definitions and pipeline constants
// ABOUTME: Defines blocks, PCM16 chunks and float32/int16 sample conversion
package audio

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

const (
	// CaptureSampleRate is the microphone rate requested from the input device
	CaptureSampleRate = 16000

	// PlaybackSampleRate is the rate of PCM16 chunks received from the remote peer
	PlaybackSampleRate = 24000

	// BlockSize is the number of samples per captured AudioBlock
	BlockSize = 4096

	// WarmUpLatency is added to the audio clock before the first scheduled chunk
	WarmUpLatency = 100 * time.Millisecond

	// Channels is fixed: the pipeline is mono end to end
	Channels = 1

	// BytesPerSample for 16-bit linear PCM
	BytesPerSample = 2
)

const (
	// 16-bit range constants
	MaxInt16 = 32767
	MinInt16 = -32768

	// Scale factors applied to normalized samples
	positiveScale = 32767.0
	negativeScale = 32768.0
)

// ErrMalformedChunk is returned for PCM16 payloads that cannot be decoded
var ErrMalformedChunk = errors.New("malformed pcm16 chunk")

// Format describes a PCM stream
type Format struct {
	SampleRate int
	Channels   int
}

// CaptureFormat is the format requested from the input device
var CaptureFormat = Format{SampleRate: CaptureSampleRate, Channels: Channels}

// PlaybackFormat is the format of chunks received from the remote peer
var PlaybackFormat = Format{SampleRate: PlaybackSampleRate, Channels: Channels}

// Validate rejects formats the pipeline cannot carry
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", f.SampleRate)
	}
	if f.Channels != Channels {
		return fmt.Errorf("unsupported channel count: %d (supported: %d)", f.Channels, Channels)
	}
	return nil
}

// Block is one AudioBlock: normalized mono samples in [-1.0, 1.0]
type Block []float32

// Chunk is one PCM16Chunk: little-endian signed 16-bit mono samples
type Chunk []byte

// Samples returns the number of 16-bit samples in the chunk
func (c Chunk) Samples() int {
	return len(c) / BytesPerSample
}

// Duration returns the playback duration of the chunk at sampleRate
func (c Chunk) Duration(sampleRate int) time.Duration {
	return time.Duration(c.Samples()) * time.Second / time.Duration(sampleRate)
}

// Validate reports whether the chunk holds a whole number of samples
func (c Chunk) Validate() error {
	if len(c) == 0 {
		return ErrMalformedChunk
	}
	if len(c)%BytesPerSample != 0 {
		return ErrMalformedChunk
	}
	return nil
}

// MIMEType returns the transport descriptor for PCM16 at sampleRate
func MIMEType(sampleRate int) string {
	return "audio/pcm;rate=" + strconv.Itoa(sampleRate)
}

// SampleToInt16 converts a normalized float sample to int16.
// Input is clamped to [-1, 1]; negatives scale by 32768, the rest by 32767,
// and the result is truncated toward zero.
func SampleToInt16(sample float32) int16 {
	s := float64(sample)
	if math.IsNaN(s) {
		return 0
	}
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	if s < 0 {
		return int16(s * negativeScale)
	}
	return int16(s * positiveScale)
}

// SampleFromInt16 converts an int16 sample to a normalized float
func SampleFromInt16(sample int16) float32 {
	return float32(float64(sample) / negativeScale)
}
