// ABOUTME: Tests for relay protocol messages
// ABOUTME: Tests envelope parsing and payload decoding
package protocol

import (
	"encoding/json"
	"testing"
)

func TestParseAndDecode(t *testing.T) {
	data, err := json.Marshal(Message{
		Type:    TypeInputAudio,
		Payload: InputAudio{MIMEType: "audio/pcm;rate=16000", Data: "AAA="},
	})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	env, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if env.Type != TypeInputAudio {
		t.Errorf("expected %s, got %s", TypeInputAudio, env.Type)
	}

	var in InputAudio
	if err := env.Decode(&in); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if in.MIMEType != "audio/pcm;rate=16000" || in.Data != "AAA=" {
		t.Errorf("unexpected payload %+v", in)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{"},
		{"no type", `{"payload":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDecodeEmptyPayload(t *testing.T) {
	env, err := Parse([]byte(`{"type":"server/hello"}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	var hello ServerHello
	if err := env.Decode(&hello); err == nil {
		t.Error("expected error for missing payload")
	}
}

func TestServerContentOmitsUnsetFields(t *testing.T) {
	data, err := json.Marshal(ServerContent{Interrupted: true})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"interrupted":true}` {
		t.Errorf("unexpected encoding %s", data)
	}
}
