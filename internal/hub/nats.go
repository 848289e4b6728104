// internal/hub/nats.go
// Provides the optional NATS relay for file changes and reload triggers.
package hub

import (
	"github.com/erilali/devserver/internal/message"
	"github.com/nats-io/nats.go"
)

const (
	// SubjectChanged carries every watched file change detected locally.
	SubjectChanged = "livereload.changed"
	// SubjectTrigger lets external tools (build scripts, other dev servers)
	// ask for a reload.
	SubjectTrigger = "livereload.trigger"
)

// publishChangeToNATS publishes a detected change to NATS
func (h *Hub) publishChangeToNATS(ev message.Event) {
	if h.NatsConn == nil {
		return
	}
	data, err := ev.JSON()
	if err != nil {
		h.Logger.Errorf("Failed to marshal change event: %v", err)
		return
	}
	if err := h.NatsConn.Publish(SubjectChanged, data); err != nil {
		h.Logger.Errorf("Failed to publish change to NATS: %v", err)
	}
}

// SubscribeTriggers broadcasts a reload for every message received on
// SubjectTrigger. It returns nil, nil when the relay is disabled.
func (h *Hub) SubscribeTriggers() (*nats.Subscription, error) {
	if h.NatsConn == nil {
		return nil, nil
	}
	return h.NatsConn.Subscribe(SubjectTrigger, h.handleTrigger)
}

func (h *Hub) handleTrigger(msg *nats.Msg) {
	ev, err := message.Decode(msg.Data)
	if err != nil {
		h.Logger.Warnf("Ignoring malformed reload trigger on %s: %v", msg.Subject, err)
		return
	}
	h.Logger.Infof("Reload triggered via NATS. Sending reload event to %d client(s).", h.Count())
	h.Broadcast(ev)
}
