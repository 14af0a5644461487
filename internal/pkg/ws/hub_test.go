package ws

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
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	assert.NotNil(t, hub)
	assert.Equal(t, 0, hub.ConnectionCount())
}

func TestHub_Broadcast_NoClients(t *testing.T) {
	hub := NewHub()

	err := hub.Broadcast(&Message{Type: "alert", Data: map[string]string{"title": "Gate Open"}})
	assert.NoError(t, err)
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub()

	c := &Client{}
	hub.Register(c)
	assert.Equal(t, 1, hub.ConnectionCount())

	hub.Unregister(c)
	assert.Equal(t, 0, hub.ConnectionCount())
}

func TestHub_Broadcast_DeliversToClient(t *testing.T) {
	hub := NewHub()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.Register(&Client{Conn: conn})
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Wait for registration to land.
	deadline := time.Now().Add(2 * time.Second)
	for hub.ConnectionCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, 1, hub.ConnectionCount())

	require.NoError(t, hub.Broadcast(&Message{Type: "alert", Data: "low water"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(payload, &msg))
	assert.Equal(t, "alert", msg.Type)
	assert.Equal(t, "low water", msg.Data)
}
