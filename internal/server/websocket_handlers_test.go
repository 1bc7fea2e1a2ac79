package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obraops/captura/internal/testutil"
)

func dialScanSocket(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	mux := http.NewServeMux()
	srv.SetupRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/scan/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessages(t *testing.T, conn *websocket.Conn) []WebSocketMessage {
	t.Helper()
	var msgs []WebSocketMessage
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var msg WebSocketMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		msgs = append(msgs, msg)
		if msg.Type == "result" || msg.Type == "error" {
			return msgs
		}
	}
}

func TestWebSocketScanStreamsProgress(t *testing.T) {
	engine := &testutil.StubEngine{Text: "TOTAL: $42.00", Confidence: 75}
	srv := newTestServer(t, engine)
	conn := dialScanSocket(t, srv)

	req := WebSocketScanRequest{Image: receiptPNG(t), MimeType: "image/png"}
	require.NoError(t, conn.WriteJSON(req))

	msgs := readMessages(t, conn)
	require.NotEmpty(t, msgs)

	final := msgs[len(msgs)-1]
	require.Equal(t, "result", final.Type)

	// Progress events precede the result.
	var sawProgress bool
	for _, m := range msgs[:len(msgs)-1] {
		if m.Type == "progress" {
			sawProgress = true
		}
	}
	assert.True(t, sawProgress)

	payload, err := json.Marshal(final.Payload)
	require.NoError(t, err)
	var result ScanResult
	require.NoError(t, json.Unmarshal(payload, &result))
	require.NotNil(t, result.Amount)
	assert.InDelta(t, 42.0, *result.Amount, 1e-9)
}

func TestWebSocketScanRejectsMalformedRequest(t *testing.T) {
	srv := newTestServer(t, &testutil.StubEngine{})
	conn := dialScanSocket(t, srv)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	msgs := readMessages(t, conn)
	require.Len(t, msgs, 1)
	assert.Equal(t, "error", msgs[0].Type)
	assert.NotEmpty(t, msgs[0].Error)
}

func TestWebSocketScanRejectsEmptyPayload(t *testing.T) {
	srv := newTestServer(t, &testutil.StubEngine{})
	conn := dialScanSocket(t, srv)

	require.NoError(t, conn.WriteJSON(WebSocketScanRequest{MimeType: "image/png"}))

	msgs := readMessages(t, conn)
	require.Len(t, msgs, 1)
	assert.Equal(t, "error", msgs[0].Type)
}
