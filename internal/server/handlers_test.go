package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MeKo-Tech/visionscan/internal/barcode"
	"github.com/MeKo-Tech/visionscan/internal/imageio"
	"github.com/MeKo-Tech/visionscan/internal/scan"
	"github.com/MeKo-Tech/visionscan/internal/vision"
	"github.com/MeKo-Tech/visionscan/internal/vision/visiontest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var isbn = vision.Barcode{
	RawValue:  "9780201379624",
	Symbology: barcode.SymbologyEAN13,
	ValueType: barcode.ValueTypeISBN,
}

func decodeScanResponse(t *testing.T, w *httptest.ResponseRecorder) ScanResponse {
	t.Helper()
	var resp ScanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestNewServer_RequiresDetector(t *testing.T) {
	_, err := NewServer(Config{}, nil)
	require.Error(t, err)
}

func TestServer_Close(t *testing.T) {
	det := &visiontest.Detector{}
	s := newTestServer(t, det)
	require.NoError(t, s.Close())
	assert.True(t, det.Closed())
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t, &visiontest.Detector{})

	w := httptest.NewRecorder()
	newTestMux(s).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "test", resp.Version)
	assert.NotEmpty(t, resp.Time)
	assert.Equal(t, map[string]bool{"barcode": true, "text": true}, resp.Capabilities)
}

func TestHealthHandler_Degraded(t *testing.T) {
	s := newTestServer(t, &visiontest.Detector{Unavailable: true})

	w := httptest.NewRecorder()
	s.healthHandler(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.False(t, resp.Capabilities["text"])
}

func TestHealthHandler_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t, &visiontest.Detector{})
	w := httptest.NewRecorder()
	s.healthHandler(w, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestScanBarcode(t *testing.T) {
	s := newTestServer(t, &visiontest.Detector{Barcodes: []vision.Barcode{isbn}}, func(c *Config) {
		c.BarcodeScale = imageio.ScaleRequest{Width: 600, Height: 600}
	})

	req := createMultipartRequest(t, "/scan/barcode", "image", "photo.png", pngBytes(t, 1300, 1900))
	w := httptest.NewRecorder()
	newTestMux(s).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeScanResponse(t, w)
	require.True(t, resp.Success)
	require.NotNil(t, resp.Result)
	assert.True(t, resp.Result.Found)
	assert.Equal(t, "barcode", resp.Result.Mode)
	assert.Equal(t, "9 780201 379624\n(EAN_13, ISBN)", resp.Result.Message)
	assert.Equal(t, "9780201379624", resp.Result.RawValue)
	assert.Equal(t, "EAN_13", resp.Result.Symbology)
	assert.Equal(t, "ISBN", resp.Result.ValueType)
	assert.Equal(t, 650, resp.Result.Width)
	assert.Equal(t, 950, resp.Result.Height)
	assert.NotEmpty(t, resp.Result.ID)

	assert.Empty(t, uploadDirEntries(t, s), "upload is deleted after the scan")
}

func TestScanText_BestOrientation(t *testing.T) {
	s := newTestServer(t, &visiontest.Detector{Texts: []string{"ab", "hello world", "", "xyz"}})

	req := createMultipartRequest(t, "/scan/text", "image", "note.png", pngBytes(t, 40, 20))
	w := httptest.NewRecorder()
	newTestMux(s).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeScanResponse(t, w)
	require.NotNil(t, resp.Result)
	assert.Equal(t, "hello world \n", resp.Result.Text)
	assert.Equal(t, 90, resp.Result.Angle)
	assert.Equal(t, 20, resp.Result.Width, "winning candidate is the rotated image")
	assert.Equal(t, 40, resp.Result.Height)
}

func TestScanText_PlainTextFormat(t *testing.T) {
	s := newTestServer(t, &visiontest.Detector{})

	req := createMultipartRequest(t, "/scan/text?format=text", "image", "blank.png", pngBytes(t, 8, 8))
	w := httptest.NewRecorder()
	newTestMux(s).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, scan.MsgNothingFound+"\n", w.Body.String())
}

func TestScanHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		det        *visiontest.Detector
		target     string
		field      string
		data       []byte
		wantStatus int
		wantError  string
	}{
		{
			name:       "missing file",
			det:        &visiontest.Detector{},
			target:     "/scan/barcode",
			wantStatus: http.StatusBadRequest,
			wantError:  "No image file provided",
		},
		{
			name:       "not an image",
			det:        &visiontest.Detector{},
			target:     "/scan/barcode",
			field:      "image",
			data:       []byte("definitely not a png"),
			wantStatus: http.StatusBadRequest,
			wantError:  scan.MsgReadFailed,
		},
		{
			name:       "too large",
			det:        &visiontest.Detector{},
			target:     "/scan/text",
			field:      "image",
			data:       make([]byte, 2*1024*1024),
			wantStatus: http.StatusRequestEntityTooLarge,
			wantError:  "File too large",
		},
		{
			name:       "detector unavailable",
			det:        &visiontest.Detector{Unavailable: true},
			target:     "/scan/text",
			field:      "image",
			data:       []byte("x"),
			wantStatus: http.StatusServiceUnavailable,
			wantError:  scan.MsgNoDetector,
		},
		{
			name:       "detector failure",
			det:        &visiontest.Detector{Err: errors.New("boom")},
			target:     "/scan/barcode",
			field:      "image",
			wantStatus: http.StatusInternalServerError,
			wantError:  scan.MsgScanFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.det)
			data := tt.data
			if data == nil && tt.field != "" {
				data = pngBytes(t, 8, 8)
			}

			w := httptest.NewRecorder()
			newTestMux(s).ServeHTTP(w, createMultipartRequest(t, tt.target, tt.field, "upload.png", data))

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			resp := decodeScanResponse(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantError, resp.Error)
			assert.Empty(t, uploadDirEntries(t, s))
		})
	}
}

func TestScanHandler_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t, &visiontest.Detector{})
	w := httptest.NewRecorder()
	newTestMux(s).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/scan/barcode", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestScanHandler_Timeout(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	det := &visiontest.Detector{Barcodes: []vision.Barcode{isbn}, Gate: gate}
	s := newTestServer(t, det)
	s.timeout = 50 * time.Millisecond

	w := httptest.NewRecorder()
	newTestMux(s).ServeHTTP(w, createMultipartRequest(t, "/scan/barcode", "image", "p.png", pngBytes(t, 8, 8)))

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, scan.MsgCancelled, decodeScanResponse(t, w).Error)
}

func TestSaveUpload_KeepsOnlyExtension(t *testing.T) {
	s := newTestServer(t, &visiontest.Detector{})

	path, err := s.saveUpload(strings.NewReader("data"), "../../etc/Photo.JPG")
	require.NoError(t, err)
	assert.Equal(t, s.uploadDir, filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, ".jpg"))
	assert.True(t, strings.HasPrefix(path[len(s.uploadDir)+1:], "visionscan-"))
}

func TestScanErrorStatus(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, scanErrorStatus(scan.ErrNoDetectionAvailable))
	assert.Equal(t, http.StatusBadRequest, scanErrorStatus(imageio.ErrFileNotFound))
	assert.Equal(t, http.StatusGatewayTimeout, scanErrorStatus(scan.ErrCancelled))
	assert.Equal(t, http.StatusInternalServerError, scanErrorStatus(errors.New("other")))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, &visiontest.Detector{})
	mux := newTestMux(s)

	// one request so the HTTP counters have a sample
	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "visionscan_http_requests_total")
}
