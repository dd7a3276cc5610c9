package websocket

import (
	"context"

	"github.com/gorilla/websocket"

	"unimarket/pkg/logger"
)

// Client represents a connected user's websocket session.
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte
}

type envelope struct {
	userID  string
	payload []byte
}

// Manager tracks active websocket connections so notification events can be
// pushed to the user they are addressed to. The clients map and every Send
// channel close are owned by the single Start loop; callers only ever talk
// to it through channels.
type Manager struct {
	clients    map[string]*Client
	Register   chan *Client
	Unregister chan *Client
	outbound   chan envelope
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		outbound:   make(chan envelope, 256),
	}
}

// Start runs the manager's bookkeeping loop until ctx is done.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.clients[client.UserID] = client
				logger.Debug("Notification client registered: %s", client.UserID)

			case client := <-m.Unregister:
				if _, ok := m.clients[client.UserID]; ok {
					delete(m.clients, client.UserID)
					close(client.Send)
				}
				logger.Debug("Notification client unregistered: %s", client.UserID)

			case env := <-m.outbound:
				client, ok := m.clients[env.userID]
				if !ok {
					continue
				}
				select {
				case client.Send <- env.payload:
				default:
					// Slow client: drop the connection rather than block.
					delete(m.clients, env.userID)
					close(client.Send)
				}

			case <-ctx.Done():
				return
			}
		}
	}()
}

// SendToUser queues a payload for a connected user. Delivery is best effort:
// with the outbound queue full the event is dropped, never blocking the
// caller.
func (m *Manager) SendToUser(userID string, payload []byte) {
	select {
	case m.outbound <- envelope{userID: userID, payload: payload}:
	default:
	}
}

// WritePump drains the client's send channel onto the wire.
func (c *Client) WritePump() {
	defer c.Conn.Close()
	for payload := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

// ReadPump consumes (and discards) inbound frames until the connection
// drops, then unregisters the client. The notification channel is one-way.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		m.Unregister <- c
		c.Conn.Close()
	}()
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
