// ABOUTME: Audio input package for capturing microphone audio
// ABOUTME: Provides the Source/Handle contract with malgo and test tone sources
// Package input provides the input half of the audio subsystem.
//
// Device callbacks are turned into a bounded channel of fixed-size blocks.
// The producer side never blocks: when the reader falls behind, the oldest
// queued block is dropped and counted.
//
// Example:
//
//	h, err := input.NewMalgo().Acquire(input.DefaultConfig())
//	if errors.Is(err, input.ErrDeviceUnavailable) { ... }
//	for block := range h.Blocks() { ... }
package input
