package support

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/visionscan/cmd/visionscan/cmd"
	"github.com/MeKo-Tech/visionscan/internal/config"
	"github.com/MeKo-Tech/visionscan/internal/server"
	"github.com/MeKo-Tech/visionscan/internal/vision"
)

func (testCtx *TestContext) uploadDir() string {
	return filepath.Join(testCtx.WorkingDir, "uploads")
}

// theScanServerIsRunning starts the HTTP API on an httptest listener.
func (testCtx *TestContext) theScanServerIsRunning() error {
	cfg := config.DefaultConfig()

	var detector vision.Detector
	if testCtx.Detector != nil {
		detector = testCtx.Detector
	} else {
		d, err := cmd.DefaultDetector(&cfg)
		if err != nil {
			return err
		}
		detector = d
	}

	s, err := server.NewServer(server.Config{
		CORSOrigin:   "*",
		MaxUploadMB:  1,
		TimeoutSec:   10,
		UploadDir:    testCtx.uploadDir(),
		BarcodeScale: cfg.BarcodeScale(),
		TextScale:    cfg.TextScale(),
		Version:      "test",
	}, detector)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	testCtx.HTTPServer = httptest.NewServer(mux)
	return nil
}

func (testCtx *TestContext) recordResponse(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(body)
	testCtx.LastHTTPHeaders = make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		testCtx.LastHTTPHeaders[k] = resp.Header.Get(k)
	}
	return nil
}

func (testCtx *TestContext) iUploadTo(name, endpoint string) error {
	if testCtx.HTTPServer == nil {
		return fmt.Errorf("server is not running")
	}
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", filepath.Base(name))
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	resp, err := http.Post(testCtx.HTTPServer.URL+endpoint, mw.FormDataContentType(), &body) //nolint:noctx // test request
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	return testCtx.recordResponse(resp)
}

func (testCtx *TestContext) iRequest(endpoint string) error {
	if testCtx.HTTPServer == nil {
		return fmt.Errorf("server is not running")
	}
	resp, err := http.Get(testCtx.HTTPServer.URL + endpoint) //nolint:noctx // test request
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return testCtx.recordResponse(resp)
}

func (testCtx *TestContext) theResponseStatusShouldBe(code int) error {
	if testCtx.LastHTTPStatusCode != code {
		return fmt.Errorf("expected status %d, got %d\nBody: %s", code, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseFieldShouldBe(path, expected string) error {
	return jsonFieldEquals([]byte(testCtx.LastHTTPResponse), path, expected)
}

func (testCtx *TestContext) theUploadDirectoryShouldBeEmpty() error {
	entries, err := os.ReadDir(testCtx.uploadDir())
	if err != nil {
		return err
	}
	if len(entries) != 0 {
		return fmt.Errorf("upload directory still holds %d file(s)", len(entries))
	}
	return nil
}
