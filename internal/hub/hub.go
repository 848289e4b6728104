// internal/hub/hub.go
// Provides the Hub that owns the set of connected live-reload clients and
// fans reload events out to them.
package hub

import (
	"errors"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/erilali/devserver/internal/logger"
	"github.com/erilali/devserver/internal/message"
	"github.com/nats-io/nats.go"
)

// ErrHubClosed is returned when registering with a hub that has shut down.
var ErrHubClosed = errors.New("hub closed")

// Hub owns the Active Client Set. The set is only mutated by the Run loop;
// mu guards it so Count can read from other goroutines.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan message.Event
	mu         sync.RWMutex

	quit     chan struct{}
	done     chan struct{}
	quitOnce sync.Once
	state    sync.Mutex // guards started and closed
	started  bool
	closed   bool

	NatsConn *nats.Conn     // optional relay, nil when disabled
	Logger   *logger.Logger // custom logger
}

// NewHub creates a new Hub. nc may be nil.
func NewHub(nc *nats.Conn, logger *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message.Event),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		NatsConn:   nc,
		Logger:     logger,
	}
}

// Run is the hub's event loop. It returns after Close, once every remaining
// client has been closed and the set cleared. Run returns at once if the hub
// is already running or has been closed.
func (h *Hub) Run() {
	h.state.Lock()
	if h.started || h.closed {
		h.state.Unlock()
		return
	}
	h.started = true
	h.state.Unlock()
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.Logger.LogEvent("info", "client_connected", string(client.Transport), strconv.Itoa(total))

		case client := <-h.unregister:
			total := h.remove(client)
			h.Logger.LogEvent("info", "client_disconnected", string(client.Transport), strconv.Itoa(total))

		case ev := <-h.broadcast:
			h.fanOut(ev)

		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				client.close()
			}
			h.clients = make(map[*Client]bool)
			h.mu.Unlock()
			return
		}
	}
}

// fanOut pushes ev to the snapshot of clients present when it runs. A client
// whose push fails is removed and closed; the rest are unaffected.
func (h *Hub) fanOut(ev message.Event) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		if !client.push(ev) {
			h.Logger.LogEvent("warn", "push_failed", string(client.Transport), "")
			h.remove(client)
		}
	}
}

// remove deletes client from the set and closes it. Removing an absent
// client is a no-op. It returns the resulting set size.
func (h *Hub) remove(client *Client) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.close()
	}
	return len(h.clients)
}

// Register adds client to the Active Client Set.
func (h *Hub) Register(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.quit:
		return ErrHubClosed
	}
}

// Unregister removes client from the Active Client Set. It is safe to call
// for a client the hub already pruned, and after Close.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// Broadcast hands ev to the run loop for delivery to every connected client.
// It is dropped if the hub has been closed.
func (h *Hub) Broadcast(ev message.Event) {
	select {
	case h.broadcast <- ev:
	case <-h.quit:
	}
}

// NotifyChange reports a change of a watched file: it logs the change,
// broadcasts a reload and publishes the change on the NATS relay.
func (h *Hub) NotifyChange(file string) {
	ev := message.Reload(filepath.Base(file))
	h.Logger.LogEvent("info", "file_changed", ev.File, strconv.Itoa(h.Count()))
	h.Broadcast(ev)
	h.publishChangeToNATS(ev)
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops the run loop, closing every client stream and clearing the
// set. If Run has started, Close blocks until it has returned; otherwise any
// later Run call is a no-op. Calling Close more than once is safe.
func (h *Hub) Close() {
	h.state.Lock()
	h.closed = true
	started := h.started
	h.state.Unlock()

	h.quitOnce.Do(func() { close(h.quit) })
	if started {
		<-h.done
	}
}
