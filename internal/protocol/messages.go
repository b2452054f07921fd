// ABOUTME: Voicelink relay protocol message type definitions
// ABOUTME: Defines the JSON envelope and payloads exchanged over the relay websocket
package protocol

import (
	"encoding/json"
	"fmt"
)

// Version is the relay protocol version spoken by this build
const Version = 1

// Message types
const (
	TypeClientHello   = "client/hello"
	TypeServerHello   = "server/hello"
	TypeInputAudio    = "input/audio"
	TypeServerContent = "server/content"
	TypeServerError   = "server/error"
)

// Message is the top-level wrapper for all protocol messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Envelope is a received message with its payload left undecoded
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Parse decodes a text frame into an envelope
func Parse(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to parse message: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("message has no type")
	}
	return env, nil
}

// Decode unmarshals the payload into v
func (e Envelope) Decode(v interface{}) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%s: invalid payload: %w", e.Type, err)
	}
	return nil
}

// ClientHello is sent by clients to initiate the handshake
type ClientHello struct {
	ClientID     string      `json:"client_id"`
	Name         string      `json:"name"`
	Version      int         `json:"version"`
	InputFormat  AudioFormat `json:"input_format"`
	OutputFormat AudioFormat `json:"output_format"`
}

// AudioFormat describes a raw PCM stream
type AudioFormat struct {
	Codec      string `json:"codec"`
	Channels   int    `json:"channels"`
	SampleRate int    `json:"sample_rate"`
	BitDepth   int    `json:"bit_depth"`
}

// ServerHello is the server's response to client/hello
type ServerHello struct {
	ServerID  string `json:"server_id"`
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
	Version   int    `json:"version"`
}

// InputAudio carries one base64 capture chunk to the server
type InputAudio struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

// ServerContent carries the peer's output. Each message sets one field.
type ServerContent struct {
	Audio        *InputAudio `json:"audio,omitempty"`
	Interrupted  bool        `json:"interrupted,omitempty"`
	TurnComplete bool        `json:"turn_complete,omitempty"`
	Transcript   *Transcript `json:"transcript,omitempty"`
}

// Transcript is one line of speech text
type Transcript struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// ServerError reports a fatal server-side failure; the connection closes after it
type ServerError struct {
	Message string `json:"message"`
}
