package server

import (
	"bytes"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/MeKo-Tech/visionscan/internal/testutil"
	"github.com/MeKo-Tech/visionscan/internal/vision/visiontest"
	"github.com/stretchr/testify/require"
)

// newTestServer builds a server on det with uploads going to a test
// directory. Options may adjust the config before construction.
func newTestServer(t *testing.T, det *visiontest.Detector, opts ...func(*Config)) *Server {
	t.Helper()
	cfg := Config{
		CORSOrigin:  "*",
		MaxUploadMB: 1,
		TimeoutSec:  5,
		UploadDir:   t.TempDir(),
		Version:     "test",
	}
	for _, o := range opts {
		o(&cfg)
	}
	s, err := NewServer(cfg, det)
	require.NoError(t, err)
	return s
}

// newTestMux returns a mux with all routes of s.
func newTestMux(s *Server) *http.ServeMux {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}

// pngBytes encodes a white w×h PNG.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testutil.CreateTestImage(w, h, testutil.White)))
	return buf.Bytes()
}

// createMultipartRequest builds a POST to target carrying data in field.
func createMultipartRequest(t *testing.T, target, field, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		part, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// uploadDirEntries lists what is left in the server's upload directory.
func uploadDirEntries(t *testing.T, s *Server) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(s.uploadDir)
	require.NoError(t, err)
	return entries
}
