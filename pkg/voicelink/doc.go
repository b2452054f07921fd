// ABOUTME: High-level voicelink library API
// ABOUTME: Provides a single Conversation type for embedding the voice pipeline
// Package voicelink provides a high-level API for real-time voice conversations.
//
// A Conversation captures the microphone, streams it to a peer (Gemini Live,
// a voicelink relay or the local echo peer) and plays spoken replies as
// they arrive. For lower-level control, see the internal capture, playback
// and session packages through the voicelink binaries, or pkg/audio.
//
// Example:
//
//	conv, err := voicelink.New(voicelink.Config{
//	    Transport: voicelink.TransportGemini,
//	    APIKey:    os.Getenv("GEMINI_API_KEY"),
//	    OnTranscript: func(t voicelink.Transcript) {
//	        log.Printf("%s: %s", t.Role, t.Text)
//	    },
//	})
//	err = conv.Start(ctx)
//	defer conv.Close()
package voicelink
