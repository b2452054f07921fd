// ABOUTME: Encoder interface definition
// ABOUTME: Common interface for turning captured blocks into wire chunks
package encode

import "github.com/voicelink/voicelink-go/pkg/audio"

// Encoder encodes captured AudioBlocks to transport chunks
type Encoder interface {
	// Encode converts one block to a chunk of the same sample count
	Encode(block audio.Block) audio.Chunk
}
