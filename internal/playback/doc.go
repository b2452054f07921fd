// ABOUTME: Package documentation for the playback scheduler
// ABOUTME: Describes the Idle/Active lifecycle and gapless placement
// Package playback schedules PCM16 chunks received from the remote peer.
//
// The first chunk after construction or Stop is placed one warm-up
// interval after the output device's current time. Every following chunk
// starts exactly where the previous one ends, so consecutive chunks play
// without gaps or overlaps regardless of how irregularly they arrive.
package playback
