package ws

import "sync"

// Hub routes dashboard refresh payloads to subscribed connections. Topics are
// either a wallet's own view ("view:<address>") or the shared admin panel
// ("admin:view"); a connection may hold both at once.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: map[string]map[*Client]struct{}{}}
}

func (h *Hub) Subscribe(topic string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[topic]; !ok {
		h.subscribers[topic] = map[*Client]struct{}{}
	}
	h.subscribers[topic][client] = struct{}{}
	client.addTopic(topic)
}

// UnsubscribeAll drops every topic the client holds; empty topics are removed
// so an idle hub carries no state.
func (h *Hub) UnsubscribeAll(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, topic := range client.listTopics() {
		if subs, ok := h.subscribers[topic]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.subscribers, topic)
			}
		}
	}
}

func (h *Hub) Publish(topic string, payload []byte) {
	h.mu.RLock()
	subs := h.subscribers[topic]
	h.mu.RUnlock()

	for c := range subs {
		c.send(payload)
	}
}
