// ABOUTME: WebSocket transport speaking the voicelink relay protocol
// ABOUTME: Handles connection, handshake, and routing of server content to events
package relay

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/voicelink/voicelink-go/internal/protocol"
	"github.com/voicelink/voicelink-go/internal/transport"
	"github.com/voicelink/voicelink-go/pkg/audio"
)

// DefaultPath is the websocket endpoint served by the relay
const DefaultPath = "/voicelink"

const (
	// handshakeTimeout bounds the wait for server/hello
	handshakeTimeout = 5 * time.Second

	writeTimeout = 10 * time.Second
)

// Config holds client configuration
type Config struct {
	ServerAddr string
	Path       string
	ClientID   string
	Name       string
}

// Dialer connects to a relay server
type Dialer struct {
	config Config
}

// NewDialer creates a relay dialer. A missing client ID is generated.
func NewDialer(config Config) *Dialer {
	if config.Path == "" {
		config.Path = DefaultPath
	}
	if config.ClientID == "" {
		config.ClientID = uuid.New().String()
	}
	if config.Name == "" {
		config.Name = "voicelink"
	}
	return &Dialer{config: config}
}

// Dial establishes the websocket connection and performs the handshake
func (d *Dialer) Dial(ctx context.Context) (transport.Session, error) {
	u := url.URL{Scheme: "ws", Host: d.config.ServerAddr, Path: d.config.Path}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	c := &Client{
		config: d.config,
		conn:   conn,
		events: make(chan transport.Event, transport.EventBuffer),
		done:   make(chan struct{}),
	}

	if err := c.handshake(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()

	return c, nil
}

// Client is a relay session
type Client struct {
	config    Config
	conn      *websocket.Conn
	sessionID string
	events    chan transport.Event

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// handshake performs the protocol handshake
func (c *Client) handshake() error {
	hello := protocol.ClientHello{
		ClientID: c.config.ClientID,
		Name:     c.config.Name,
		Version:  protocol.Version,
		InputFormat: protocol.AudioFormat{
			Codec:      "pcm",
			Channels:   audio.Channels,
			SampleRate: audio.CaptureSampleRate,
			BitDepth:   16,
		},
		OutputFormat: protocol.AudioFormat{
			Codec:      "pcm",
			Channels:   audio.Channels,
			SampleRate: audio.PlaybackSampleRate,
			BitDepth:   16,
		},
	}

	if err := c.sendJSON(protocol.Message{Type: protocol.TypeClientHello, Payload: hello}); err != nil {
		return fmt.Errorf("failed to send client/hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	env, err := protocol.Parse(data)
	if err != nil {
		return err
	}
	if env.Type == protocol.TypeServerError {
		var serverErr protocol.ServerError
		if err := env.Decode(&serverErr); err != nil {
			return err
		}
		return fmt.Errorf("server rejected hello: %s", serverErr.Message)
	}
	if env.Type != protocol.TypeServerHello {
		return fmt.Errorf("expected server/hello, got %s", env.Type)
	}

	var serverHello protocol.ServerHello
	if err := env.Decode(&serverHello); err != nil {
		return err
	}
	c.sessionID = serverHello.SessionID

	log.Printf("Handshake complete with %s (session %s)", serverHello.Name, serverHello.SessionID)
	return nil
}

// SessionID returns the id assigned by the server
func (c *Client) SessionID() string {
	return c.sessionID
}

// sendJSON writes one message; gorilla allows a single concurrent writer
func (c *Client) sendJSON(msg protocol.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(msg)
}

// SendAudio sends an input/audio message
func (c *Client) SendAudio(ctx context.Context, encoded, mimeType string) error {
	select {
	case <-c.done:
		return transport.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	msg := protocol.Message{
		Type:    protocol.TypeInputAudio,
		Payload: protocol.InputAudio{MIMEType: mimeType, Data: encoded},
	}
	if err := c.sendJSON(msg); err != nil {
		return fmt.Errorf("send input/audio: %w", err)
	}
	return nil
}

// Events returns the inbound event channel
func (c *Client) Events() <-chan transport.Event {
	return c.events
}

// readMessages reads and routes incoming messages
func (c *Client) readMessages() {
	defer close(c.events)

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.emit(transport.Event{Err: fmt.Errorf("relay read: %w", err)})
			}
			return
		}

		if messageType != websocket.TextMessage {
			log.Printf("Ignoring binary relay message (%d bytes)", len(data))
			continue
		}

		ev, ok, err := translate(data)
		if err != nil {
			log.Printf("Relay: %v", err)
			continue
		}
		if !ok {
			continue
		}
		if !c.emit(ev) {
			return
		}
		if ev.Err != nil {
			return
		}
	}
}

// translate converts one relay text frame into an event
func translate(data []byte) (transport.Event, bool, error) {
	env, err := protocol.Parse(data)
	if err != nil {
		return transport.Event{}, false, err
	}

	switch env.Type {
	case protocol.TypeServerContent:
		var content protocol.ServerContent
		if err := env.Decode(&content); err != nil {
			return transport.Event{}, false, err
		}
		switch {
		case content.Audio != nil:
			return transport.Event{Audio: content.Audio.Data, MIMEType: content.Audio.MIMEType}, true, nil
		case content.Interrupted:
			return transport.Event{Interrupted: true}, true, nil
		case content.TurnComplete:
			return transport.Event{TurnComplete: true}, true, nil
		case content.Transcript != nil:
			return transport.Event{Transcript: &transport.Transcript{
				Role: transport.Role(content.Transcript.Role),
				Text: content.Transcript.Text,
			}}, true, nil
		}
		return transport.Event{}, false, nil

	case protocol.TypeServerError:
		var serverErr protocol.ServerError
		if err := env.Decode(&serverErr); err != nil {
			return transport.Event{}, false, err
		}
		return transport.Event{Err: fmt.Errorf("relay error: %s", serverErr.Message)}, true, nil

	default:
		log.Printf("Unknown message type: %s", env.Type)
		return transport.Event{}, false, nil
	}
}

func (c *Client) emit(ev transport.Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

// Close closes the connection
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.writeMu.Lock()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()

		err = c.conn.Close()
		log.Printf("Connection closed")
	})
	return err
}
