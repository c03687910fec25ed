package casambi

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/jhellqvist/casambid/internal/metrics"
)

// DefaultWSURL is the Casambi Cloud WebSocket bridge endpoint.
const DefaultWSURL = "wss://door.casambi.com/v1/bridge/"

const (
	pingInterval = 15 * time.Second
	// The bridge answers pings with pongs; four missed intervals means
	// the connection is dead.
	readTimeout  = 4 * pingInterval
	writeTimeout = 10 * time.Second

	// FRONTEND client type for the open handshake.
	clientTypeFrontend = 1
)

// wire is one open WebSocket connection to the bridge. A wire is bound
// to a single network and carries a client-chosen wire id that tags
// every frame in both directions. Writes are serialized; reads happen
// from a single goroutine in the controller.
type wire struct {
	conn *websocket.Conn
	id   int

	writeMu sync.Mutex
}

// newWireID picks a random wire id. The Casambi examples use small ids;
// anything in [10, 60] works.
func newWireID() int {
	return rand.Intn(51) + 10
}

// dialWire connects to the bridge and performs the open handshake for
// the given network. The developer API key travels as the WebSocket
// subprotocol, not as a header.
func dialWire(ctx context.Context, url, apiKey, networkID, sessionID string, wireID int) (*wire, error) {
	if url == "" {
		url = DefaultWSURL
	}

	dialer := websocket.Dialer{
		Subprotocols:     []string{apiKey},
		HandshakeTimeout: writeTimeout,
	}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, newAPIError(resp.StatusCode, url)
		}
		return nil, fmt.Errorf("dial bridge: %w", err)
	}

	w := &wire{conn: conn, id: wireID}

	open := openMessage{
		Method:  MethodOpen,
		ID:      networkID,
		Session: sessionID,
		Ref:     uuid.NewString(),
		Wire:    wireID,
		Type:    clientTypeFrontend,
	}
	if err := w.sendJSON(open); err != nil {
		conn.Close()
		return nil, fmt.Errorf("open wire: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	log.Debug().Int("wire", wireID).Str("network_id", networkID).Msg("Wire opened")
	return w, nil
}

// sendJSON writes one frame. Safe for concurrent use.
func (w *wire) sendJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := w.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("%w: %v", ErrWireClosed, err)
	}
	return nil
}

// ping sends a keepalive control frame.
func (w *wire) ping() error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	return w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// read blocks for the next data frame and decodes it. Non-JSON frames
// and frames without a method are skipped.
func (w *wire) read() (*Message, error) {
	for {
		w.conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, payload, err := w.conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrWireClosed, err)
		}

		var msg Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.Warn().Err(err).Msg("Dropping undecodable frame")
			continue
		}
		if msg.Method == "" {
			continue
		}

		metrics.WSMessages.WithLabelValues(msg.Method).Inc()
		return &msg, nil
	}
}

// close tears the connection down, attempting a clean close frame
// first.
func (w *wire) close() error {
	w.writeMu.Lock()
	w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
	w.writeMu.Unlock()

	return w.conn.Close()
}
