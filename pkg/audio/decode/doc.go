// ABOUTME: Audio decoder package for the playback path
// ABOUTME: Provides Decoder interface and the PCM16 implementation
// Package decode turns PCM16 chunks received from the remote peer into
// normalized float samples ready for the output device.
//
// Chunks with an odd byte count are rejected with audio.ErrMalformedChunk.
//
// Example:
//
//	decoder, err := decode.NewPCM(audio.PlaybackFormat)
//	samples, err := decoder.Decode(chunk)
package decode
