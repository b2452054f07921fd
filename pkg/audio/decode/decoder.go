// ABOUTME: Decoder interface definition
// ABOUTME: Common interface for turning received chunks into float samples
package decode

import "github.com/voicelink/voicelink-go/pkg/audio"

// Decoder decodes transport chunks to normalized float samples
type Decoder interface {
	// Decode converts a chunk to samples; malformed chunks return an error
	Decode(chunk audio.Chunk) ([]float32, error)
}
