// ABOUTME: Metrics package
// ABOUTME: Prometheus instrumentation shared by the client and the relay server
// Package metrics holds the Prometheus collectors for voicelink.
//
// Components take a *Metrics so tests can pass Discard() instead of the
// process-wide Default.
package metrics
