package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/visionscan/internal/imageio"
	"github.com/MeKo-Tech/visionscan/internal/scan"
	"github.com/MeKo-Tech/visionscan/internal/vision"
	"github.com/google/uuid"
)

const (
	formatText = "text"
)

var errUploadTooLarge = errors.New("upload too large")

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:       "healthy",
		Version:      s.version,
		Time:         time.Now().UTC().Format(time.RFC3339),
		Capabilities: make(map[string]bool, len(s.sessions)),
	}
	enabled := 0
	for mode, session := range s.sessions {
		response.Capabilities[string(mode)] = session.Enabled()
		if session.Enabled() {
			enabled++
		}
	}
	if enabled == 0 {
		response.Status = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to encode health response", "error", err)
	}
}

// scanHandler accepts a multipart upload in the "image" field and scans it
// in the given mode.
func (s *Server) scanHandler(mode vision.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		session := s.sessions[mode]
		if session == nil || !session.Enabled() {
			s.writeErrorResponse(w, scan.MsgNoDetector, http.StatusServiceUnavailable)
			return
		}

		path, err := s.receiveUpload(w, r)
		if err != nil {
			switch {
			case errors.Is(err, errUploadTooLarge):
				s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
			case errors.Is(err, http.ErrMissingFile):
				s.writeErrorResponse(w, "No image file provided", http.StatusBadRequest)
			default:
				s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
			}
			return
		}

		res, err := s.runScan(r.Context(), session, path)
		if err != nil {
			s.writeErrorResponse(w, scan.StatusMessage(err), scanErrorStatus(err))
			return
		}

		format := r.FormValue("format")
		if format == "" {
			format = r.URL.Query().Get("format")
		}
		if format == formatText {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = io.WriteString(w, res.Message()+"\n")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(ScanResponse{Success: true, Result: newScanResult(res)}); err != nil {
			slog.Error("Failed to encode scan response", "error", err)
		}
	}
}

// receiveUpload stores the "image" form file under a fresh name in the
// upload directory and returns its path.
func (s *Server) receiveUpload(w http.ResponseWriter, r *http.Request) (string, error) {
	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		// Distinguish body-too-large from generic parse error
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(strings.ToLower(err.Error()), "request body too large") {
			return "", errUploadTooLarge
		}
		return "", err
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return "", err
	}
	defer func() { _ = file.Close() }()

	if header.Size > limit {
		return "", errUploadTooLarge
	}
	uploadSizeBytes.Observe(float64(header.Size))

	return s.saveUpload(file, header.Filename)
}

// saveUpload copies src into the upload directory. The original file name
// only contributes its extension.
func (s *Server) saveUpload(src io.Reader, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	path := filepath.Join(s.uploadDir, "visionscan-"+uuid.NewString()+ext)

	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close upload file: %w", err)
	}
	return path, nil
}

// runScan submits path to session and waits for it under the request
// timeout. When ctx ends first the task is cancelled and its result dropped.
func (s *Server) runScan(ctx context.Context, session *scan.Session, path string) (scan.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	task := session.Submit(ctx, path)
	select {
	case <-task.Done():
		return task.Result()
	case <-ctx.Done():
		task.Cancel()
		return scan.Result{}, scan.ErrCancelled
	}
}

func scanErrorStatus(err error) int {
	switch {
	case errors.Is(err, scan.ErrNoDetectionAvailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, imageio.ErrFileNotFound), errors.Is(err, imageio.ErrUnsupportedImage):
		return http.StatusBadRequest
	case errors.Is(err, scan.ErrCancelled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ScanResponse{
		Success: false,
		Error:   message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to write error response", "error", err)
	}
}
