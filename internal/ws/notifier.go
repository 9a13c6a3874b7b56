package ws

import (
	"encoding/json"

	"github.com/dileep812/credit-score/internal/chain"
	"github.com/dileep812/credit-score/internal/view"
)

const AdminTopic = "admin:view"

func ViewTopic(address string) string {
	return "view:" + chain.NormalizeAddress(address)
}

// Notifier fans view events out to connected dashboard clients. The admin
// topic carries platform-wide refreshes; per-address topics carry the
// owner's own updates and form resets.
type Notifier struct {
	hub *Hub
}

func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{hub: hub}
}

// Publish satisfies the controller's event hook.
func (n *Notifier) Publish(ev view.Event) {
	payload, _ := json.Marshal(map[string]any{
		"event": string(ev.Type),
		"data": map[string]any{
			"address":   chain.NormalizeAddress(ev.Address),
			"operation": ev.Operation,
		},
	})

	if ev.Type == view.EventAdminViewUpdated {
		n.hub.Publish(AdminTopic, payload)
		return
	}
	if ev.Address != "" {
		n.hub.Publish(ViewTopic(ev.Address), payload)
	}
}
