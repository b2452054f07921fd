// ABOUTME: Audio encoder package for the capture path
// ABOUTME: Provides Encoder interface and the PCM16 implementation
// Package encode turns captured AudioBlocks into PCM16 chunks.
//
// Samples are clamped to [-1, 1] before scaling, so loud input saturates
// instead of wrapping.
//
// Example:
//
//	encoder, err := encode.NewPCM(audio.CaptureFormat)
//	chunk := encoder.Encode(block)
package encode
