// ABOUTME: Package documentation for the loopback peer
// ABOUTME: Explains utterance detection and echo replies
// Package loopback provides an in-process peer that echoes speech.
//
// Captured chunks are resampled to the playback rate and collected while
// their level stays above a threshold. When the speaker pauses, or the
// utterance reaches its maximum length, the peer replies with the
// collected audio followed by a transcript and a turn-complete event.
// Speech that starts during a reply interrupts it.
package loopback
