// ABOUTME: Gemini Live API transport
// ABOUTME: Streams microphone audio to a live model session and relays its replies
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"google.golang.org/genai"

	"github.com/voicelink/voicelink-go/internal/transport"
	"github.com/voicelink/voicelink-go/pkg/audio"
	"github.com/voicelink/voicelink-go/pkg/audio/framing"
)

const (
	// DefaultModel is a native-audio live model
	DefaultModel = "gemini-2.5-flash-native-audio-preview-09-2025"

	// DefaultVoice is the prebuilt voice used for replies
	DefaultVoice = "Zephyr"
)

// Config holds live session configuration
type Config struct {
	APIKey            string
	Model             string
	Voice             string
	SystemInstruction string

	// Transcribe enables input and output transcription events
	Transcribe bool
}

// Dialer opens Gemini Live sessions
type Dialer struct {
	config Config
}

// NewDialer creates a dialer; the API key is required
func NewDialer(config Config) (*Dialer, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Voice == "" {
		config.Voice = DefaultVoice
	}
	return &Dialer{config: config}, nil
}

// connectConfig builds the live session setup
func (d *Dialer) connectConfig() *genai.LiveConnectConfig {
	cfg := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: d.config.Voice},
			},
		},
	}
	if d.config.SystemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: d.config.SystemInstruction}},
		}
	}
	if d.config.Transcribe {
		cfg.InputAudioTranscription = &genai.AudioTranscriptionConfig{}
		cfg.OutputAudioTranscription = &genai.AudioTranscriptionConfig{}
	}
	return cfg
}

// Dial connects a live session
func (d *Dialer) Dial(ctx context.Context) (transport.Session, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  d.config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}

	live, err := client.Live.Connect(ctx, d.config.Model, d.connectConfig())
	if err != nil {
		return nil, fmt.Errorf("live connect failed: %w", err)
	}

	log.Printf("Gemini live session open: model=%s voice=%s", d.config.Model, d.config.Voice)

	s := &Session{
		live:   live,
		events: make(chan transport.Event, transport.EventBuffer),
		done:   make(chan struct{}),
	}
	go s.readLoop()

	return s, nil
}

// Session is a Gemini Live session
type Session struct {
	live   *genai.Session
	events chan transport.Event

	sendMu    sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// SendAudio sends one capture chunk as realtime input
func (s *Session) SendAudio(ctx context.Context, encoded, mimeType string) error {
	select {
	case <-s.done:
		return transport.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	data, err := framing.Decode(encoded)
	if err != nil {
		return err
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	err = s.live.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{Data: data, MIMEType: mimeType},
	})
	if err != nil {
		return fmt.Errorf("send realtime input: %w", err)
	}
	return nil
}

// Events returns the inbound event channel
func (s *Session) Events() <-chan transport.Event {
	return s.events
}

// Close ends the live session
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.live.Close()
		log.Printf("Gemini live session closed")
	})
	return err
}

func (s *Session) readLoop() {
	defer close(s.events)

	for {
		msg, err := s.live.Receive()
		if err != nil {
			select {
			case <-s.done:
				// Closed locally; the read error is the close itself
			default:
				s.emit(transport.Event{Err: fmt.Errorf("live receive: %w", err)})
			}
			return
		}

		for _, ev := range Translate(msg) {
			if !s.emit(ev) {
				return
			}
		}
	}
}

// emit delivers ev unless the session is closed
func (s *Session) emit(ev transport.Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

// ErrGoAway is reported when the server announces the session will end
var ErrGoAway = errors.New("live session terminated by server")

// Translate converts one server message into transport events, in the
// order audio, transcripts, interrupt, turn completion.
func Translate(msg *genai.LiveServerMessage) []transport.Event {
	if msg == nil {
		return nil
	}

	var events []transport.Event

	if sc := msg.ServerContent; sc != nil {
		if sc.ModelTurn != nil {
			for _, part := range sc.ModelTurn.Parts {
				if part == nil {
					continue
				}
				if part.InlineData != nil && len(part.InlineData.Data) > 0 {
					mime := part.InlineData.MIMEType
					if mime == "" {
						mime = audio.MIMEType(audio.PlaybackSampleRate)
					}
					events = append(events, transport.Event{
						Audio:    framing.Encode(part.InlineData.Data),
						MIMEType: mime,
					})
				}
				if part.Text != "" && !part.Thought {
					events = append(events, transport.Event{
						Transcript: &transport.Transcript{Role: transport.RoleModel, Text: part.Text},
					})
				}
			}
		}
		if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
			events = append(events, transport.Event{
				Transcript: &transport.Transcript{Role: transport.RoleUser, Text: sc.InputTranscription.Text},
			})
		}
		if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
			events = append(events, transport.Event{
				Transcript: &transport.Transcript{Role: transport.RoleModel, Text: sc.OutputTranscription.Text},
			})
		}
		if sc.Interrupted {
			events = append(events, transport.Event{Interrupted: true})
		}
		if sc.TurnComplete {
			events = append(events, transport.Event{TurnComplete: true})
		}
	}

	if msg.GoAway != nil {
		events = append(events, transport.Event{Err: ErrGoAway})
	}

	return events
}
