package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrabble-score/internal/domain"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	hub.SetStateProvider(func() any { return map[string]string{"phase": "setup"} })
	go hub.Run()
	t.Cleanup(hub.Stop)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func messageType(t *testing.T, msg map[string]json.RawMessage) string {
	t.Helper()
	var typ string
	require.NoError(t, json.Unmarshal(msg["type"], &typ))
	return typ
}

func TestHub_GreetsAndBroadcasts(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)

	greeting := readMessage(t, conn)
	assert.Equal(t, MessageTypeStateUpdate, messageType(t, greeting))
	assert.JSONEq(t, `{"phase":"setup"}`, string(greeting["data"]))

	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.BroadcastHistory([]domain.GameRecord{{Player1: "Alice", Player2: "Bob", Turns: []domain.Turn{}}})
	msg := readMessage(t, conn)
	assert.Equal(t, MessageTypeHistoryUpdate, messageType(t, msg))
	assert.Contains(t, string(msg["data"]), `"player1":"Alice"`)

	hub.BroadcastState(map[string]string{"phase": "playing"})
	msg = readMessage(t, conn)
	assert.Equal(t, MessageTypeStateUpdate, messageType(t, msg))
}

func TestClient_PingPong(t *testing.T) {
	_, url := startHub(t)
	conn := dial(t, url)
	readMessage(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	assert.Equal(t, MessageTypePong, messageType(t, readMessage(t, conn)))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	assert.Equal(t, MessageTypeError, messageType(t, readMessage(t, conn)))
}

func TestHub_UnregistersOnClose(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	readMessage(t, conn)
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 0 }, 2*time.Second, 5*time.Millisecond)
}
