// internal/message/message.go
// Contains the reload event exchanged between the watcher, the hub and clients.
package message

import (
	"encoding/json"
	"time"
)

const (
	Version    = "1.0"
	TypeReload = "reload"
)

// Event is a single notification pushed to live-reload clients.
type Event struct {
	Version   string `json:"version"`
	Type      string `json:"type"`
	File      string `json:"file,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Reload returns a reload event for file. file may be empty when the
// trigger did not come from a watched file.
func Reload(file string) Event {
	return Event{
		Version:   Version,
		Type:      TypeReload,
		File:      file,
		Timestamp: time.Now().Unix(),
	}
}

// SSEFrame renders the event as a server-sent events frame. Only the type
// travels on the wire, so a reload is always "data: reload\n\n".
func (e Event) SSEFrame() []byte {
	return []byte("data: " + e.Type + "\n\n")
}

// JSON marshals the event for the WebSocket and NATS transports.
func (e Event) JSON() ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses an event published by an external tool. An empty payload is
// a plain reload.
func Decode(data []byte) (Event, error) {
	if len(data) == 0 {
		return Reload(""), nil
	}
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	// reload is the only event clients understand
	e.Type = TypeReload
	if e.Version == "" {
		e.Version = Version
	}
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().Unix()
	}
	return e, nil
}
