// internal/hub/websocket.go
// Provides the /live-reload-ws endpoint with its read and write pumps.
package hub

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketPath is the alternative live-reload endpoint for clients that
// prefer a socket over an event stream.
const WebSocketPath = "/live-reload-ws"

const (
	webSocketReadDeadline  = 60 * time.Second
	webSocketWriteDeadline = 10 * time.Second
	webSocketPingPeriod    = (webSocketReadDeadline * 9) / 10 // Must be less than readDeadline
	webSocketMaxMessage    = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Local development server: pages may be opened from any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWs upgrades the HTTP connection to a WebSocket and registers the client.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Errorf("WebSocket upgrade error: %v", err)
		return
	}

	client := NewClient(TransportWebSocket)
	if err := h.Register(client); err != nil {
		conn.Close()
		return
	}
	go h.writePump(client, conn)
	h.readPump(client, conn)
}

// readPump discards anything the browser sends and unregisters on the
// first read error, which is how a closed tab shows up.
func (h *Hub) readPump(client *Client, conn *websocket.Conn) {
	defer func() {
		h.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(webSocketMaxMessage)
	conn.SetReadDeadline(time.Now().Add(webSocketReadDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(webSocketReadDeadline))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.Logger.Errorf("WebSocket error: %v", err)
			}
			return
		}
	}
}

// writePump writes reload events as JSON text frames and pings the peer.
func (h *Hub) writePump(client *Client, conn *websocket.Conn) {
	ticker := time.NewTicker(webSocketPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case ev, ok := <-client.Send:
			conn.SetWriteDeadline(time.Now().Add(webSocketWriteDeadline))
			if !ok {
				// The hub closed the channel.
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := ev.JSON()
			if err != nil {
				h.Logger.Errorf("Failed to marshal reload event: %v", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(webSocketWriteDeadline))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return // Client connection is likely broken
			}
		}
	}
}
