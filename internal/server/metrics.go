package server

import (
	"errors"
	"strconv"
	"unicode/utf8"

	"github.com/MeKo-Tech/visionscan/internal/scan"
	"github.com/MeKo-Tech/visionscan/internal/vision"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visionscan_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "visionscan_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Scan metrics
	scansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visionscan_scans_total",
			Help: "Total number of scans",
		},
		[]string{"mode", "status"}, // status: found, empty, error, cancelled
	)

	scanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "visionscan_scan_duration_seconds",
			Help:    "Scan duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 25},
		},
		[]string{"mode"},
	)

	scanAngleTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visionscan_text_rotation_angle_total",
			Help: "Clockwise rotation at which text scans found their best result",
		},
		[]string{"angle"},
	)

	scanTextLength = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "visionscan_text_length",
			Help:    "Length of the recognized text in characters",
			Buckets: []float64{0, 10, 50, 100, 500, 1000, 5000},
		},
		[]string{"mode"},
	)

	// Rate limiting metrics
	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visionscan_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"}, // type: minute, hour, requests, data
	)

	// File upload metrics
	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "visionscan_upload_size_bytes",
			Help:    "Size of uploaded files in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "visionscan_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visionscan_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)

// MetricsObserver records every scan attempt in the Prometheus metrics.
type MetricsObserver struct{}

func (MetricsObserver) ObserveScan(mode vision.Mode, res scan.Result, err error) {
	m := string(mode)
	scansTotal.WithLabelValues(m, scanStatus(res, err)).Inc()
	if err != nil {
		return
	}
	scanDuration.WithLabelValues(m).Observe(res.Duration.Seconds())
	scanTextLength.WithLabelValues(m).Observe(float64(utf8.RuneCountInString(res.Text)))
	if mode == vision.ModeText && res.Found {
		scanAngleTotal.WithLabelValues(strconv.Itoa(res.Angle)).Inc()
	}
}

func scanStatus(res scan.Result, err error) string {
	switch {
	case errors.Is(err, scan.ErrCancelled):
		return "cancelled"
	case err != nil:
		return "error"
	case res.Found:
		return "found"
	default:
		return "empty"
	}
}
