// ABOUTME: Transport session contract between the audio engines and a remote peer
// ABOUTME: Defines outbound audio, inbound events and the dialer abstraction
package transport

import (
	"context"
	"errors"
)

// ErrClosed is returned when sending on a closed session
var ErrClosed = errors.New("transport session closed")

// Role identifies who spoke a transcript line
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Transcript is one line of recognized or generated speech
type Transcript struct {
	Role Role
	Text string
}

// Event is one inbound notification from the remote peer. Exactly one of
// its fields is meaningful per event.
type Event struct {
	// Audio is a base64 PCM16 chunk at the playback rate
	Audio    string
	MIMEType string

	// Interrupted means the peer stopped speaking; queued playback is stale
	Interrupted bool

	// TurnComplete marks the end of the peer's turn
	TurnComplete bool

	Transcript *Transcript

	// Err is terminal: the events channel closes right after it
	Err error
}

// Session is a live connection to a remote peer
type Session interface {
	// SendAudio forwards one base64 PCM16 chunk with its MIME descriptor
	SendAudio(ctx context.Context, encoded, mimeType string) error

	// Events delivers inbound events in arrival order. It is closed when
	// the session ends, after a final Err event if the end was a failure.
	Events() <-chan Event

	// Close ends the session. Safe to call more than once.
	Close() error
}

// Dialer opens sessions
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// DialerFunc adapts a function to Dialer
type DialerFunc func(ctx context.Context) (Session, error)

// Dial calls f(ctx)
func (f DialerFunc) Dial(ctx context.Context) (Session, error) {
	return f(ctx)
}

// EventBuffer is the inbound queue depth used by the transports
const EventBuffer = 64
