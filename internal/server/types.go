// Package server exposes barcode and text scans over HTTP and WebSocket.
package server

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/MeKo-Tech/visionscan/internal/imageio"
	"github.com/MeKo-Tech/visionscan/internal/scan"
	"github.com/MeKo-Tech/visionscan/internal/vision"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	detector    vision.Detector
	sessions    map[vision.Mode]*scan.Session
	corsOrigin  string
	maxUploadMB int64
	timeout     time.Duration
	uploadDir   string
	version     string
	rateLimiter *RateLimiter
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
	// UploadDir receives the transient upload files. Defaults to os.TempDir().
	UploadDir    string
	BarcodeScale imageio.ScaleRequest
	TextScale    imageio.ScaleRequest
	RateLimit    RateLimitConfig
	Version      string
}

// RateLimitConfig holds per-client rate limiting configuration.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status       string          `json:"status"`
	Version      string          `json:"version,omitempty"`
	Time         string          `json:"time"`
	Capabilities map[string]bool `json:"capabilities"`
}

// ScanResult is the JSON form of one scan.
type ScanResult struct {
	ID    string `json:"id"`
	Mode  string `json:"mode"`
	Found bool   `json:"found"`
	// Message is the display text, or the "nothing detected" message.
	Message   string `json:"message"`
	Text      string `json:"text,omitempty"`
	RawValue  string `json:"raw_value,omitempty"`
	Symbology string `json:"symbology,omitempty"`
	ValueType string `json:"value_type,omitempty"`
	Angle     int    `json:"angle"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`

	Processing struct {
		TotalTimeMs int64 `json:"total_time_ms"`
	} `json:"processing"`
}

// ScanResponse wraps a scan result or an error.
type ScanResponse struct {
	Success bool        `json:"success"`
	Result  *ScanResult `json:"result,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func newScanResult(res scan.Result) *ScanResult {
	out := &ScanResult{
		ID:      res.ID,
		Mode:    string(res.Mode),
		Found:   res.Found,
		Message: res.Message(),
		Text:    res.Text,
		Angle:   res.Angle,
	}
	if res.Barcode != nil {
		out.RawValue = res.Barcode.RawValue
		out.Symbology = res.Barcode.Symbology.String()
		out.ValueType = res.Barcode.ValueType.String()
	}
	if res.Image != nil {
		out.Width = res.Image.Bounds().Dx()
		out.Height = res.Image.Bounds().Dy()
	}
	out.Processing.TotalTimeMs = res.Duration.Milliseconds()
	return out
}

// NewServer creates a scan server on top of detector. A mode the detector
// cannot serve stays disabled and answers 503.
func NewServer(config Config, detector vision.Detector) (*Server, error) {
	if detector == nil {
		return nil, errors.New("server: detector is required")
	}

	uploadDir := config.UploadDir
	if uploadDir == "" {
		uploadDir = os.TempDir()
	}
	if err := os.MkdirAll(uploadDir, 0o750); err != nil {
		return nil, fmt.Errorf("server: create upload dir: %w", err)
	}

	s := &Server{
		detector:    detector,
		sessions:    make(map[vision.Mode]*scan.Session, 2),
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeout:     time.Duration(config.TimeoutSec) * time.Second,
		uploadDir:   uploadDir,
		version:     config.Version,
	}
	if s.maxUploadMB <= 0 {
		s.maxUploadMB = 20
	}
	if s.timeout <= 0 {
		s.timeout = 60 * time.Second
	}

	observer := scan.Observers{scan.LogObserver{}, MetricsObserver{}}
	scales := map[vision.Mode]imageio.ScaleRequest{
		vision.ModeBarcode: config.BarcodeScale,
		vision.ModeText:    config.TextScale,
	}
	for mode, scale := range scales {
		session, err := scan.NewSession(detector, scan.Options{
			Mode:            mode,
			Scale:           scale,
			DeleteAfterScan: true,
			Observer:        observer,
		})
		if err != nil && !errors.Is(err, scan.ErrNoDetectionAvailable) {
			return nil, err
		}
		s.sessions[mode] = session
	}

	if config.RateLimit.Enabled {
		s.rateLimiter = NewRateLimiter(
			config.RateLimit.RequestsPerMinute,
			config.RateLimit.RequestsPerHour,
			config.RateLimit.MaxRequestsPerDay,
			config.RateLimit.MaxDataPerDay,
		)
	}

	return s, nil
}

// Close releases the detector.
func (s *Server) Close() error {
	if s.detector != nil {
		return s.detector.Close()
	}
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/scan/barcode", s.corsMiddleware(s.rateLimitMiddleware(s.scanHandler(vision.ModeBarcode))))
	mux.HandleFunc("/scan/text", s.corsMiddleware(s.rateLimitMiddleware(s.scanHandler(vision.ModeText))))
	mux.HandleFunc("/ws/scan", s.scanWebSocketHandler)
	mux.Handle("/metrics", promhttp.Handler())
}
