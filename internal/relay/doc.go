// ABOUTME: Package documentation for the relay server
// ABOUTME: Summarizes the connection lifecycle
// Package relay implements the voicelink relay server.
//
// Each websocket client performs a client/hello handshake, receives a
// session id, and is bridged to its own backend session: input/audio
// messages go to the backend and backend events come back as
// server/content messages. The relay can advertise itself over mDNS and
// serve Prometheus metrics.
package relay
