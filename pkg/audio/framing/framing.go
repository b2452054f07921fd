// ABOUTME: Text-safe framing for binary audio payloads
// ABOUTME: Converts PCM16 chunks to and from standard base64
package framing

import (
	"encoding/base64"
	"fmt"

	"github.com/voicelink/voicelink-go/pkg/audio"
)

// Encode converts a chunk to its text-safe transport form
func Encode(chunk audio.Chunk) string {
	return base64.StdEncoding.EncodeToString(chunk)
}

// Decode converts a transport string back to chunk bytes.
// Invalid input is reported as audio.ErrMalformedChunk.
func Decode(encoded string) (audio.Chunk, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", audio.ErrMalformedChunk, err)
	}
	return data, nil
}
