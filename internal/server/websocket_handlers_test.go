package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MeKo-Tech/visionscan/internal/vision"
	"github.com/MeKo-Tech/visionscan/internal/vision/visiontest"
	"github.com/gorilla/websocket"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockWebSocketConn records written messages.
type mockWebSocketConn struct {
	sentMessages [][]byte
}

func (m *mockWebSocketConn) WriteMessage(_ int, data []byte) error {
	m.sentMessages = append(m.sentMessages, data)
	return nil
}

func dialScan(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(newTestMux(s))
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/scan"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readResponse(t *testing.T, conn *websocket.Conn) WebSocketScanResponse {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var resp WebSocketScanResponse
	require.NoError(t, conn.ReadJSON(&resp))
	return resp
}

func TestWebSocket_Scan(t *testing.T) {
	s := newTestServer(t, &visiontest.Detector{Barcodes: []vision.Barcode{isbn}})
	conn := dialScan(t, s)

	require.NoError(t, conn.WriteJSON(WebSocketScanRequest{
		Type:     "scan",
		Mode:     "barcode",
		Image:    pngBytes(t, 16, 16),
		Filename: "shot.png",
	}))

	processing := readResponse(t, conn)
	assert.Equal(t, "processing", processing.Status)
	require.NotEmpty(t, processing.RequestID)

	done := readResponse(t, conn)
	assert.Equal(t, "completed", done.Status)
	assert.Equal(t, processing.RequestID, done.RequestID)
	require.NotNil(t, done.Result)
	assert.Equal(t, "9 780201 379624\n(EAN_13, ISBN)", done.Result.Message)
	assert.Empty(t, uploadDirEntries(t, s))
}

func TestWebSocket_InvalidRequests(t *testing.T) {
	s := newTestServer(t, &visiontest.Detector{})
	conn := dialScan(t, s)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	resp := readResponse(t, conn)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "invalid_request", resp.ErrorType)

	require.NoError(t, conn.WriteJSON(WebSocketScanRequest{Type: "scan", Mode: "video", Image: []byte{1}}))
	resp = readResponse(t, conn)
	assert.Contains(t, resp.Error, "Unsupported scan mode")

	require.NoError(t, conn.WriteJSON(WebSocketScanRequest{Type: "scan", Mode: "text"}))
	resp = readResponse(t, conn)
	assert.Equal(t, "No image data provided", resp.Error)

	require.NoError(t, conn.WriteJSON(WebSocketScanRequest{Type: "cancel", RequestID: "missing"}))
	resp = readResponse(t, conn)
	assert.Equal(t, "missing", resp.RequestID)

	require.NoError(t, conn.WriteJSON(WebSocketScanRequest{Type: "pdf"}))
	resp = readResponse(t, conn)
	assert.Contains(t, resp.Error, "Unsupported request type")
}

func TestWebSocket_CancelMessage(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	det := &visiontest.Detector{Gate: gate, Started: make(chan struct{}, 1)}
	s := newTestServer(t, det)
	conn := dialScan(t, s)

	require.NoError(t, conn.WriteJSON(WebSocketScanRequest{Type: "scan", Mode: "text", Image: pngBytes(t, 8, 8)}))
	processing := readResponse(t, conn)
	<-det.Started

	require.NoError(t, conn.WriteJSON(WebSocketScanRequest{Type: "cancel", RequestID: processing.RequestID}))
	resp := readResponse(t, conn)
	assert.Equal(t, "cancelled", resp.Status)
	assert.Equal(t, processing.RequestID, resp.RequestID)
	assert.Nil(t, resp.Result)
}

func TestWebSocket_CloseCancelsScan(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	det := &visiontest.Detector{Gate: gate, Started: make(chan struct{}, 1)}
	s := newTestServer(t, det)
	conn := dialScan(t, s)

	cancelled := scansTotal.WithLabelValues("text", "cancelled")
	before := promtest.ToFloat64(cancelled)

	require.NoError(t, conn.WriteJSON(WebSocketScanRequest{Type: "scan", Mode: "text", Image: pngBytes(t, 8, 8)}))
	readResponse(t, conn)
	<-det.Started

	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool {
		return promtest.ToFloat64(cancelled) == before+1
	}, 5*time.Second, 10*time.Millisecond, "closing the socket cancels the in-flight scan")
	assert.Eventually(t, func() bool {
		return len(uploadDirEntries(t, s)) == 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, det.TextCalls(), "no further orientations are tried")
}

func TestSendWebSocketError(t *testing.T) {
	conn := &mockWebSocketConn{}
	(&Server{}).sendWebSocketError(conn, "processing_error", "boom", "req-1")

	require.Len(t, conn.sentMessages, 1)
	var resp WebSocketScanResponse
	require.NoError(t, json.Unmarshal(conn.sentMessages[0], &resp))
	assert.Equal(t, WebSocketScanResponse{
		Type:      "error",
		Status:    "error",
		Error:     "boom",
		ErrorType: "processing_error",
		RequestID: "req-1",
	}, resp)
}
