// ABOUTME: Package documentation for transports
// ABOUTME: Lists the available session implementations
// Package transport defines the session contract joining the capture
// engine and the playback scheduler to a remote peer.
//
// Implementations live in subpackages: gemini talks to the Gemini Live
// API, relay speaks the voicelink websocket protocol, and loopback is an
// in-process echo peer.
package transport
