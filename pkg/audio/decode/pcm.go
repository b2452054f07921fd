// ABOUTME: PCM16 audio decoder
// ABOUTME: Decodes little-endian 16-bit PCM bytes to normalized float32 samples
package decode

import (
	"encoding/binary"
	"fmt"

	"github.com/voicelink/voicelink-go/pkg/audio"
)

// PCMDecoder decodes 16-bit little-endian PCM
type PCMDecoder struct {
	format audio.Format
}

// NewPCM creates a new PCM decoder
func NewPCM(format audio.Format) (*PCMDecoder, error) {
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("invalid format for PCM decoder: %w", err)
	}

	return &PCMDecoder{
		format: format,
	}, nil
}

// Format returns the stream format this decoder was built for
func (d *PCMDecoder) Format() audio.Format {
	return d.format
}

// Decode converts PCM16 bytes to float samples in [-1, 1)
func (d *PCMDecoder) Decode(chunk audio.Chunk) ([]float32, error) {
	return PCM16(chunk)
}

// PCM16 converts PCM16 bytes to float samples by dividing by 32768
func PCM16(chunk audio.Chunk) ([]float32, error) {
	if err := chunk.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %d bytes", err, len(chunk))
	}

	numSamples := chunk.Samples()
	samples := make([]float32, numSamples)
	for i := 0; i < numSamples; i++ {
		samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(chunk[i*2:])))
	}
	return samples, nil
}

// Int16 unpacks PCM16 bytes to integer samples
func Int16(chunk audio.Chunk) ([]int16, error) {
	if err := chunk.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %d bytes", err, len(chunk))
	}

	samples := make([]int16, chunk.Samples())
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(chunk[i*2:]))
	}
	return samples, nil
}
