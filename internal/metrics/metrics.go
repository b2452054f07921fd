// ABOUTME: Prometheus metrics for the voice pipeline
// ABOUTME: Counters and gauges for capture, playback, transport and relay activity
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for voicelink
type Metrics struct {
	// Capture metrics
	BlocksCaptured prometheus.Counter
	BlocksDropped  prometheus.Counter
	BlocksRejected prometheus.Counter
	ChunksSent     prometheus.Counter

	// Playback metrics
	ChunksScheduled prometheus.Counter
	ChunksRejected  prometheus.Counter
	Interrupts      prometheus.Counter
	ScheduleLead    prometheus.Gauge

	// Session metrics
	SessionsStarted prometheus.Counter
	SessionErrors   *prometheus.CounterVec

	// Relay metrics
	RelayConnections prometheus.Gauge
	RelayMessages    *prometheus.CounterVec
}

// New creates the metrics and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		BlocksCaptured: f.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_capture_blocks_total",
			Help: "Total number of audio blocks read from the input device",
		}),
		BlocksDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_capture_blocks_dropped_total",
			Help: "Total number of audio blocks dropped because the engine fell behind",
		}),
		BlocksRejected: f.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_capture_blocks_rejected_total",
			Help: "Total number of audio blocks rejected for having the wrong size",
		}),
		ChunksSent: f.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_capture_chunks_sent_total",
			Help: "Total number of PCM16 chunks handed to the transport",
		}),
		ChunksScheduled: f.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_playback_chunks_scheduled_total",
			Help: "Total number of PCM16 chunks scheduled for playback",
		}),
		ChunksRejected: f.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_playback_chunks_rejected_total",
			Help: "Total number of malformed chunks skipped by the scheduler",
		}),
		Interrupts: f.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_playback_interrupts_total",
			Help: "Total number of interrupt events that stopped playback",
		}),
		ScheduleLead: f.NewGauge(prometheus.GaugeOpts{
			Name: "voicelink_playback_schedule_lead_seconds",
			Help: "Audio scheduled ahead of the output clock",
		}),
		SessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_sessions_started_total",
			Help: "Total number of transport sessions established",
		}),
		SessionErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voicelink_session_errors_total",
			Help: "Total number of session failures by stage",
		}, []string{"stage"}),
		RelayConnections: f.NewGauge(prometheus.GaugeOpts{
			Name: "voicelink_relay_connections",
			Help: "Number of open relay connections",
		}),
		RelayMessages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voicelink_relay_messages_total",
			Help: "Relay protocol messages by type and direction",
		}, []string{"type", "direction"}),
	}
}

// Default is registered with the global Prometheus registry
var Default = New(prometheus.DefaultRegisterer)

// Discard returns metrics bound to a private registry, for tests and tools
// that should not touch the global one
func Discard() *Metrics {
	return New(prometheus.NewRegistry())
}
