package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quadcrop_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quadcrop_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Crop metrics
	cropRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quadcrop_crops_total",
			Help: "Total number of crop commits",
		},
		[]string{"source", "status"}, // source: http, websocket; status: success, degenerate, error
	)

	cropDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quadcrop_crop_duration_seconds",
			Help:    "Time from commit to encoded crop in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"source", "format"},
	)

	cropOutputPixels = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quadcrop_crop_output_pixels",
			Help:    "Pixel count of rectified crops",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		},
	)

	// File upload metrics
	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quadcrop_upload_size_bytes",
			Help:    "Size of uploaded images in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024, 100 * 1024 * 1024},
		},
	)

	// Session metrics
	sessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quadcrop_sessions_active",
			Help: "Number of open interactive sessions",
		},
	)

	sessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quadcrop_sessions_total",
			Help: "Total number of finished interactive sessions",
		},
		[]string{"outcome"}, // outcome: committed, cancelled, failed, abandoned
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quadcrop_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quadcrop_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)
