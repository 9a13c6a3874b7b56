package ws

import (
	"sync"

	"golang.org/x/net/websocket"
)

// clientBuffer holds a burst of refresh signals. View updates are coalesced
// re-render hints, so a browser that falls this far behind is better off
// reconnecting than replaying a backlog.
const clientBuffer = 64

type Client struct {
	conn *websocket.Conn
	out  chan []byte

	mu     sync.RWMutex
	topics map[string]struct{}
}

func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		conn:   conn,
		out:    make(chan []byte, clientBuffer),
		topics: map[string]struct{}{},
	}
}

// send drops the connection rather than block the publisher on a slow reader.
func (c *Client) send(payload []byte) {
	select {
	case c.out <- payload:
	default:
		_ = c.conn.Close()
	}
}

func (c *Client) addTopic(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics[topic] = struct{}{}
}

func (c *Client) listTopics() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.topics))
	for t := range c.topics {
		out = append(out, t)
	}
	return out
}
