// ABOUTME: PCM16 audio encoder
// ABOUTME: Encodes normalized float32 blocks to little-endian 16-bit PCM bytes
package encode

import (
	"encoding/binary"
	"fmt"

	"github.com/voicelink/voicelink-go/pkg/audio"
)

// PCMEncoder encodes blocks as 16-bit little-endian PCM
type PCMEncoder struct {
	format audio.Format
}

// NewPCM creates a new PCM encoder
func NewPCM(format audio.Format) (*PCMEncoder, error) {
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("invalid format for PCM encoder: %w", err)
	}

	return &PCMEncoder{
		format: format,
	}, nil
}

// Format returns the stream format this encoder was built for
func (e *PCMEncoder) Format() audio.Format {
	return e.format
}

// Encode converts float samples to PCM16 bytes, saturating out-of-range input
func (e *PCMEncoder) Encode(block audio.Block) audio.Chunk {
	return PCM16(block)
}

// PCM16 converts float samples to PCM16 bytes preserving sample order
func PCM16(block audio.Block) audio.Chunk {
	output := make(audio.Chunk, len(block)*audio.BytesPerSample)
	for i, sample := range block {
		binary.LittleEndian.PutUint16(output[i*2:], uint16(audio.SampleToInt16(sample)))
	}
	return output
}

// Int16 packs integer samples as PCM16 bytes
func Int16(samples []int16) audio.Chunk {
	output := make(audio.Chunk, len(samples)*audio.BytesPerSample)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(output[i*2:], uint16(sample))
	}
	return output
}
