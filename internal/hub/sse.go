// internal/hub/sse.go
// Provides the /live-reload-events text/event-stream endpoint.
package hub

import (
	"net/http"
)

// EventsPath is where browsers open the live-reload event stream.
const EventsPath = "/live-reload-events"

// ServeSSE registers a client with the hub and streams reload frames to it
// until the client goes away or the hub closes the stream. It answers 503
// when the hub has already shut down.
func (h *Hub) ServeSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.Logger.Error("Streaming unsupported by response writer")
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	// Headers go out only once the client is in the set, so a closed hub
	// never answers with an empty 200 stream.
	client := NewClient(TransportSSE)
	if err := h.Register(client); err != nil {
		h.Logger.Warnf("Rejecting event stream: %v", err)
		http.Error(w, "Live reload unavailable", http.StatusServiceUnavailable)
		return
	}
	defer h.Unregister(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-client.Send:
			if !ok {
				// The hub closed the stream.
				return
			}
			if _, err := w.Write(ev.SSEFrame()); err != nil {
				h.Logger.Debugf("SSE write failed: %v", err)
				return
			}
			flusher.Flush()
		}
	}
}
