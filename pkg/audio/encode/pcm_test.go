// ABOUTME: Unit tests for PCM16 encoder
// ABOUTME: Tests saturation, byte order and the silent block scenario
package encode

import (
	"encoding/binary"
	"testing"

	"github.com/voicelink/voicelink-go/pkg/audio"
)

func TestNewPCM(t *testing.T) {
	tests := []struct {
		name    string
		format  audio.Format
		wantErr bool
	}{
		{"capture format", audio.CaptureFormat, false},
		{"stereo", audio.Format{SampleRate: 16000, Channels: 2}, true},
		{"no rate", audio.Format{Channels: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewPCM(tt.format)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if enc.Format() != tt.format {
				t.Errorf("expected format %+v, got %+v", tt.format, enc.Format())
			}
		})
	}
}

func TestEncodeSilentBlock(t *testing.T) {
	enc, err := NewPCM(audio.CaptureFormat)
	if err != nil {
		t.Fatalf("NewPCM failed: %v", err)
	}

	block := make(audio.Block, audio.BlockSize)
	chunk := enc.Encode(block)

	if len(chunk) != 8192 {
		t.Fatalf("expected 8192 bytes, got %d", len(chunk))
	}
	for i, b := range chunk {
		if b != 0 {
			t.Fatalf("expected zero byte at %d, got %d", i, b)
		}
	}
}

func TestEncodeByteOrder(t *testing.T) {
	block := audio.Block{1.0, -1.0, 0, 2.5, -3}
	chunk := PCM16(block)

	expected := []int16{32767, -32768, 0, 32767, -32768}
	if chunk.Samples() != len(expected) {
		t.Fatalf("expected %d samples, got %d", len(expected), chunk.Samples())
	}

	for i, want := range expected {
		got := int16(binary.LittleEndian.Uint16(chunk[i*2:]))
		if got != want {
			t.Errorf("sample %d: expected %d, got %d", i, want, got)
		}
	}

	// Little-endian layout of 32767 is FF 7F
	if chunk[0] != 0xFF || chunk[1] != 0x7F {
		t.Errorf("expected FF 7F, got %02X %02X", chunk[0], chunk[1])
	}
}

func TestEncodePreservesOrder(t *testing.T) {
	block := make(audio.Block, 64)
	for i := range block {
		block[i] = float32(i) / 64
	}

	chunk := PCM16(block)
	prev := int16(-1)
	for i := 0; i < chunk.Samples(); i++ {
		s := int16(binary.LittleEndian.Uint16(chunk[i*2:]))
		if s <= prev {
			t.Fatalf("sample %d out of order: %d after %d", i, s, prev)
		}
		prev = s
	}
}
