// ABOUTME: Tests for transport framing
// ABOUTME: Tests reversibility and malformed input handling
package framing

import (
	"bytes"
	"errors"
	"testing"

	"github.com/voicelink/voicelink-go/pkg/audio"
)

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		name  string
		chunk audio.Chunk
	}{
		{"silent block", make(audio.Chunk, 8192)},
		{"all byte values", allBytes()},
		{"single sample", audio.Chunk{0xFF, 0x7F}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := Encode(tt.chunk)
			decoded, err := Decode(encoded)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if !bytes.Equal(decoded, tt.chunk) {
				t.Error("decoded bytes differ from original")
			}
		})
	}
}

func TestEncodeKnownValue(t *testing.T) {
	if got := Encode(audio.Chunk{0, 0, 0}); got != "AAAA" {
		t.Errorf("expected AAAA, got %q", got)
	}
}

func TestDecodeInvalid(t *testing.T) {
	_, err := Decode("not base64!")
	if !errors.Is(err, audio.ErrMalformedChunk) {
		t.Errorf("expected ErrMalformedChunk, got %v", err)
	}
}

func allBytes() audio.Chunk {
	b := make(audio.Chunk, 256)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}
