// ABOUTME: Package documentation for the capture engine
// ABOUTME: Describes the block-to-chunk pipeline feeding the transport
// Package capture turns microphone AudioBlocks into base64 PCM16 chunks.
//
// An Engine owns at most one capture session. Start acquires the input
// device and runs a single processing loop; every block of exactly the
// configured size is clamped, scaled to int16, packed little-endian,
// base64 encoded and handed to the sink with the "audio/pcm;rate=16000"
// descriptor. Stop ends the loop and releases the device, after which the
// sink is never called again.
package capture
