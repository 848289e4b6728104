// internal/hub/client.go
// Provides the Client handle with its bounded reload queue.
package hub

import (
	"sync"
	"time"

	"github.com/erilali/devserver/internal/message"
)

// Transport names the kind of stream a client is attached through.
type Transport string

const (
	TransportSSE       Transport = "sse"
	TransportWebSocket Transport = "websocket"
)

// sendBufferSize bounds the events queued for a client whose writer has
// fallen behind. A push into a full queue counts as a failed push.
const sendBufferSize = 16

// Client represents one open notification stream. Send is drained by the
// transport's writer and closed by the hub when the client is removed.
type Client struct {
	Transport   Transport
	ConnectedAt time.Time
	Send        chan message.Event

	closeOnce sync.Once
}

// NewClient creates a client for the given transport.
func NewClient(transport Transport) *Client {
	return &Client{
		Transport:   transport,
		ConnectedAt: time.Now(),
		Send:        make(chan message.Event, sendBufferSize),
	}
}

// push queues ev without blocking and reports whether it was accepted.
func (c *Client) push(ev message.Event) bool {
	select {
	case c.Send <- ev:
		return true
	default:
		return false
	}
}

// close ends the stream. Closing twice is a no-op.
func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.Send) })
}
