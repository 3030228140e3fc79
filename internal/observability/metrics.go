package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SubmissionsTotal counts gallery submissions by operation and final state.
	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prompt_doumi_gallery_submissions_total",
		Help: "Gallery submissions by operation and final state",
	}, []string{"operation", "state"})

	// UploadBytes records uploaded media sizes by media kind.
	UploadBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "prompt_doumi_upload_bytes",
		Help:    "Size of uploaded gallery media in bytes",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
	}, []string{"kind"})

	// AuthEventsTotal counts admin auth events by type.
	AuthEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prompt_doumi_auth_events_total",
		Help: "Admin auth events by type",
	}, []string{"event"})

	// PromptsComposedTotal counts prompts composed by builder mode.
	PromptsComposedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prompt_doumi_prompts_composed_total",
		Help: "Prompts composed by builder mode",
	}, []string{"mode"})

	// WebSocketConnections is the gauge of open auth event sockets.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prompt_doumi_websocket_connections",
		Help: "Number of open auth event WebSocket connections",
	})
)
