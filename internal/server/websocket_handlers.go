package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/MeKo-Tech/visionscan/internal/scan"
	"github.com/MeKo-Tech/visionscan/internal/vision"
	"github.com/gorilla/websocket"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsWriteWait  = 10 * time.Second
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketScanRequest is a client message on /ws/scan.
type WebSocketScanRequest struct {
	Type      string `json:"type"` // "scan" or "cancel"
	Mode      string `json:"mode,omitempty"`
	Image     []byte `json:"image,omitempty"`
	Filename  string `json:"filename,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// WebSocketScanResponse is a server message on /ws/scan.
type WebSocketScanResponse struct {
	Type      string      `json:"type"`
	Status    string      `json:"status"` // "processing", "completed", "cancelled", "error"
	Result    *ScanResult `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorType string      `json:"error_type,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// lockedConn serializes writes from concurrent scans on one connection.
type lockedConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *lockedConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteMessage(messageType, data)
}

// taskRegistry maps request IDs to in-flight tasks.
type taskRegistry struct {
	mu    sync.Mutex
	tasks map[string]*scan.Task
}

func (r *taskRegistry) add(t *scan.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[t.ID] = t
}

func (r *taskRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, id)
}

func (r *taskRegistry) get(id string) *scan.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tasks[id]
}

// scanWebSocketHandler handles WebSocket connections for scans. Closing the
// connection cancels every scan it started.
func (s *Server) scanWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)
	s.handleWebSocketConnection(conn)
}

// handleWebSocketConnection reads messages until the connection fails and
// then waits for its scans to wind down.
func (s *Server) handleWebSocketConnection(conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	writer := &lockedConn{conn: conn}
	tasks := &taskRegistry{tasks: make(map[string]*scan.Task)}

	// base64 inflates the image by a third
	conn.SetReadLimit(s.maxUploadMB * 1024 * 1024 * 2)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()

		if messageType != websocket.TextMessage {
			continue
		}

		var req WebSocketScanRequest
		if err := json.Unmarshal(data, &req); err != nil {
			s.sendWebSocketError(writer, "invalid_request", fmt.Sprintf("Failed to parse request: %v", err), "")
			continue
		}

		switch req.Type {
		case "scan":
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.processWebSocketScan(ctx, writer, tasks, req)
			}()
		case "cancel":
			t := tasks.get(req.RequestID)
			if t == nil {
				s.sendWebSocketError(writer, "invalid_request", "Unknown request: "+req.RequestID, req.RequestID)
				continue
			}
			t.Cancel()
		default:
			s.sendWebSocketError(writer, "invalid_request", "Unsupported request type: "+req.Type, "")
		}
	}
}

// processWebSocketScan runs one scan and reports it. Nothing is sent once
// the connection is gone.
func (s *Server) processWebSocketScan(ctx context.Context, conn WebSocketConnWriter, tasks *taskRegistry, req WebSocketScanRequest) {
	mode := vision.Mode(req.Mode)
	session := s.sessions[mode]
	if !mode.Valid() || session == nil {
		s.sendWebSocketError(conn, "invalid_request", "Unsupported scan mode: "+req.Mode, "")
		return
	}
	if !session.Enabled() {
		s.sendWebSocketError(conn, "unavailable", scan.MsgNoDetector, "")
		return
	}
	if len(req.Image) == 0 {
		s.sendWebSocketError(conn, "invalid_request", "No image data provided", "")
		return
	}
	if int64(len(req.Image)) > s.maxUploadMB*1024*1024 {
		s.sendWebSocketError(conn, "invalid_request", "File too large", "")
		return
	}
	uploadSizeBytes.Observe(float64(len(req.Image)))

	path, err := s.saveUpload(bytes.NewReader(req.Image), req.Filename)
	if err != nil {
		s.sendWebSocketError(conn, "processing_error", err.Error(), "")
		return
	}

	taskCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	task := session.Submit(taskCtx, path)
	tasks.add(task)
	defer tasks.remove(task.ID)

	s.sendWebSocketResponse(conn, WebSocketScanResponse{
		Type:      "scan_response",
		Status:    "processing",
		RequestID: task.ID,
	})

	<-task.Done()
	res, err := task.Result()
	switch {
	case ctx.Err() != nil:
		slog.Debug("WebSocket closed, dropping scan", "request_id", task.ID)
	case errors.Is(err, scan.ErrCancelled):
		s.sendWebSocketResponse(conn, WebSocketScanResponse{
			Type:      "scan_response",
			Status:    "cancelled",
			RequestID: task.ID,
		})
	case err != nil:
		s.sendWebSocketError(conn, "processing_error", scan.StatusMessage(err), task.ID)
	default:
		s.sendWebSocketResponse(conn, WebSocketScanResponse{
			Type:      "scan_response",
			Status:    "completed",
			Result:    newScanResult(res),
			RequestID: task.ID,
		})
	}
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketScanResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, errorType, message, requestID string) {
	s.sendWebSocketResponse(conn, WebSocketScanResponse{
		Type:      "error",
		Status:    "error",
		Error:     message,
		ErrorType: errorType,
		RequestID: requestID,
	})
}
