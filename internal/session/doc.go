// ABOUTME: Package documentation for session orchestration
// ABOUTME: Describes connection lifecycle and event routing
// Package session is the caller of both audio engines.
//
// Connect dials a transport, starts the capture engine with a sink that
// forwards chunks to the transport, and runs one goroutine that routes
// inbound events: audio goes to the playback scheduler, an interrupt stops
// it, and transcripts are appended to a bounded log. When the transport
// ends or Disconnect is called, capture and playback stop and the
// transport is closed.
package session
