// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Block, Chunk types and sample conversion functions
// Package audio provides the sample formats shared by the capture and
// playback halves of the voice pipeline.
//
// This package defines core types used throughout voicelink:
//   - Block: one captured AudioBlock of normalized float32 samples
//   - Chunk: one PCM16Chunk, little-endian signed 16-bit samples
//
// It also provides the float32 ↔ int16 conversions used on both paths:
// saturating on encode, linear rescale on decode.
//
// Example:
//
//	s16 := audio.SampleToInt16(block[i])   // clamps to [-1, 1]
//	f := audio.SampleFromInt16(s16)        // divides by 32768
package audio
