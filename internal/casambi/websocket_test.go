package casambi

import (
	"context"
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

// bridgeServer upgrades one connection and hands it to fn.
func bridgeServer(t *testing.T, fn func(conn *websocket.Conn, r *http.Request)) string {
	t.Helper()

	upgrader := websocket.Upgrader{
		Subprotocols: []string{"test-key"},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		fn(conn, r)
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDialWire_OpenHandshake(t *testing.T) {
	type opened struct {
		msg openMessage
		r   *http.Request
	}
	got := make(chan opened, 1)

	url := bridgeServer(t, func(conn *websocket.Conn, r *http.Request) {
		var open openMessage
		require.NoError(t, conn.ReadJSON(&open))
		got <- opened{msg: open, r: r}

		// Push one unit event back
		conn.WriteJSON(map[string]any{
			"method":   "unitChanged",
			"id":       8,
			"controls": []map[string]any{{"type": "Dimmer", "value": 0.5}},
		})
	})

	w, err := dialWire(context.Background(), url, "test-key", "net1", "sess-1", 42)
	require.NoError(t, err)
	defer w.close()

	select {
	case o := <-got:
		assert.Equal(t, "test-key", o.r.Header.Get("Sec-WebSocket-Protocol"))
		assert.Equal(t, MethodOpen, o.msg.Method)
		assert.Equal(t, "net1", o.msg.ID)
		assert.Equal(t, "sess-1", o.msg.Session)
		assert.Equal(t, 42, o.msg.Wire)
		assert.Equal(t, clientTypeFrontend, o.msg.Type)
		assert.NotEmpty(t, o.msg.Ref)
	case <-time.After(2 * time.Second):
		t.Fatal("open frame not received")
	}

	msg, err := w.read()
	require.NoError(t, err)
	assert.Equal(t, MethodUnitChanged, msg.Method)
	assert.Equal(t, 8, msg.ID.Int())
}

func TestWireSendControl(t *testing.T) {
	frames := make(chan []byte, 2)

	url := bridgeServer(t, func(conn *websocket.Conn, r *http.Request) {
		for i := 0; i < 2; i++ {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			frames <- payload
		}
	})

	w, err := dialWire(context.Background(), url, "test-key", "net1", "sess-1", 7)
	require.NoError(t, err)
	defer w.close()

	// First frame is the open handshake
	<-frames

	tc, err := TargetDimmer(0.25)
	require.NoError(t, err)
	require.NoError(t, w.sendJSON(controlMessage{
		Wire:           w.id,
		Method:         MethodControlUnit,
		ID:             8,
		TargetControls: tc,
	}))

	select {
	case payload := <-frames:
		var sent map[string]any
		require.NoError(t, json.Unmarshal(payload, &sent))
		assert.Equal(t, MethodControlUnit, sent["method"])
		assert.Equal(t, float64(7), sent["wire"])
		assert.Equal(t, float64(8), sent["id"])
		targets := sent["targetControls"].(map[string]any)
		dimmer := targets[ControlDimmer].(map[string]any)
		assert.Equal(t, 0.25, dimmer["value"])
	case <-time.After(2 * time.Second):
		t.Fatal("control frame not received")
	}
}

func TestWireRead_SkipsNoise(t *testing.T) {
	url := bridgeServer(t, func(conn *websocket.Conn, r *http.Request) {
		conn.ReadMessage() // open frame
		conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"wire": 3}`))
		conn.WriteJSON(map[string]any{"method": "peerChanged", "online": true})
	})

	w, err := dialWire(context.Background(), url, "test-key", "net1", "sess-1", 3)
	require.NoError(t, err)
	defer w.close()

	msg, err := w.read()
	require.NoError(t, err)
	assert.Equal(t, MethodPeerChanged, msg.Method)
}

func TestWireRead_ClosedConnection(t *testing.T) {
	url := bridgeServer(t, func(conn *websocket.Conn, r *http.Request) {
		conn.ReadMessage()
		conn.Close()
	})

	w, err := dialWire(context.Background(), url, "test-key", "net1", "sess-1", 3)
	require.NoError(t, err)
	defer w.close()

	_, err = w.read()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWireClosed)
}
