// ABOUTME: Framing package for crossing the transport boundary
// ABOUTME: Byte-for-byte reversible base64 encoding of PCM16 chunks
// Package framing converts binary PCM16 chunks to the text-safe form
// carried by JSON transports and back.
package framing
