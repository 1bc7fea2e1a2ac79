package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/obraops/captura/internal/pipeline"
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow connections from any origin in development
		// In production, you should check against allowed origins
		return true
	},
}

// WebSocketScanRequest is a scan request via WebSocket. The image payload
// is base64-encoded by the JSON layer.
type WebSocketScanRequest struct {
	Image    []byte `json:"image"`
	MimeType string `json:"mime_type"`
}

// WebSocketMessage is the envelope for all server-to-client messages.
// Type is "progress", "result", or "error".
type WebSocketMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// scanWebSocketHandler streams stage-granular progress while a capture is
// processed, then sends the final result on the same connection.
func (s *Server) scanWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	s.handleWebSocketConnection(conn)
}

// handleWebSocketConnection reads scan requests off the connection until
// the client goes away. Requests are processed one at a time.
func (s *Server) handleWebSocketConnection(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Keep the connection alive between requests.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			break
		}

		websocketMessagesTotal.WithLabelValues("received").Inc()

		if messageType == websocket.TextMessage {
			s.handleWebSocketScan(conn, data)
		}
	}
}

// handleWebSocketScan runs one capture, relaying observer events as they
// happen. Writes stay on this goroutine; the session runs on its own.
func (s *Server) handleWebSocketScan(conn *websocket.Conn, data []byte) {
	var req WebSocketScanRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketMessage(conn, WebSocketMessage{Type: "error", Error: fmt.Sprintf("Failed to parse request: %v", err)})
		return
	}
	if len(req.Image) == 0 {
		s.sendWebSocketMessage(conn, WebSocketMessage{Type: "error", Error: "No image payload provided"})
		return
	}
	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = http.DetectContentType(req.Image)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(s.timeoutSec)*time.Second)
	defer cancel()

	obs := pipeline.NewChannelObserver(32)
	session := pipeline.NewSessionWithObserver(s.pipeline, obs)

	start := time.Now()
	var (
		res     *pipeline.Result
		procErr error
	)
	go func() {
		res, procErr = session.Process(ctx, req.Image, mimeType)
		obs.Close()
	}()

	for ev := range obs.Events() {
		s.sendWebSocketMessage(conn, WebSocketMessage{Type: "progress", Payload: ev})
	}

	elapsed := time.Since(start)
	if procErr != nil {
		scanRequestsTotal.WithLabelValues("error").Inc()
		s.sendWebSocketMessage(conn, WebSocketMessage{Type: "error", Error: procErr.Error()})
		return
	}

	scanRequestsTotal.WithLabelValues("ok").Inc()
	scanDuration.Observe(elapsed.Seconds())
	if res.Amount != nil && res.Amount.Value != nil {
		amountsExtractedTotal.Inc()
	}
	s.sendWebSocketMessage(conn, WebSocketMessage{Type: "result", Payload: resultFromRun(res, elapsed.Milliseconds())})
}

func (s *Server) sendWebSocketMessage(conn *websocket.Conn, msg WebSocketMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("Failed to marshal WebSocket message", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to write WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}
