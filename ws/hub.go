package ws

import (
	"homematch-server/metrics"
	"log"
)

// Hub is the single shared event dispatcher: it tracks every live session per
// user and fans payloads out to them. All map access happens on the run loop,
// so there is no lock.
type Hub struct {
	clients    map[uint]map[*Client]bool // userID -> set of sessions
	register   chan *Client
	unregister chan *Client
	direct     chan *directMessage
}

type directMessage struct {
	userID  uint
	payload []byte
}

func NewHub() *Hub {
	h := &Hub{
		clients:    make(map[uint]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		direct:     make(chan *directMessage, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			if _, ok := h.clients[c.userID]; !ok {
				h.clients[c.userID] = make(map[*Client]bool)
			}
			h.clients[c.userID][c] = true
			metrics.LiveConnections.Inc()
			log.Printf("live session %s registered for user %d", c.sessionID, c.userID)
		case c := <-h.unregister:
			if sessions, ok := h.clients[c.userID]; ok {
				if _, exists := sessions[c]; exists {
					delete(sessions, c)
					close(c.send)
					metrics.LiveConnections.Dec()
				}
				if len(sessions) == 0 {
					delete(h.clients, c.userID)
				}
			}
		case m := <-h.direct:
			sessions, ok := h.clients[m.userID]
			if !ok {
				// disconnected peer: the durable write already happened, the
				// user catches up on next history/feed fetch
				metrics.LivePushes.WithLabelValues("dropped").Inc()
				continue
			}
			for c := range sessions {
				select {
				case c.send <- m.payload:
					metrics.LivePushes.WithLabelValues("delivered").Inc()
				default:
					// slow consumer; drop the payload, not the session. The
					// send channel is only ever closed on unregister, after
					// the session's readPump has exited — closing it here
					// would race with the pump's own ack writes. A dead
					// connection misses its pings and unregisters itself.
					metrics.LivePushes.WithLabelValues("dropped").Inc()
				}
			}
		}
	}
}

func (h *Hub) RegisterClient(c *Client) {
	h.register <- c
}

func (h *Hub) UnregisterClient(c *Client) {
	h.unregister <- c
}

// PushToUser enqueues a payload for delivery to all active sessions of a
// user. Best effort: delivery failure never propagates to the caller.
func (h *Hub) PushToUser(userID uint, payload []byte) {
	h.direct <- &directMessage{userID: userID, payload: payload}
}
