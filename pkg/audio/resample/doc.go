// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts mono PCM16 audio between sample rates
// Package resample provides streaming sample rate conversion for mono
// PCM16 audio.
//
// Example:
//
//	r := resample.New(16000, 24000)
//	out := r.Resample(samples) // ~1.5x as many samples
package resample
