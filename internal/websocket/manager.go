package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Manager tracks WebSocket clients per auction and fans auction events
// out to them.
type Manager struct {
	// auctionID -> set of clients watching that auction
	subscribers sync.Map // map[string]*sync.Map

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage

	logger *zap.Logger
}

// Client is one WebSocket connection watching a single auction.
type Client struct {
	ID        string
	AuctionID string
	Conn      *websocket.Conn
	Send      chan []byte
}

// BroadcastMessage targets every client watching one auction.
type BroadcastMessage struct {
	AuctionID string
	Payload   []byte
}

// NewManager creates a manager; call Run in a goroutine to start it.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
		logger:     logger,
	}
}

// Run is the manager's main loop.
func (m *Manager) Run() {
	for {
		select {
		case client := <-m.register:
			m.registerClient(client)
		case client := <-m.unregister:
			m.unregisterClient(client)
		case message := <-m.broadcast:
			m.broadcastToAuction(message.AuctionID, message.Payload)
		}
	}
}

// RegisterClient adds a client to the manager.
func (m *Manager) RegisterClient(client *Client) {
	m.register <- client
}

// UnregisterClient removes a client from the manager.
func (m *Manager) UnregisterClient(client *Client) {
	m.unregister <- client
}

// Broadcast sends a payload to every client watching an auction.
func (m *Manager) Broadcast(auctionID string, payload []byte) {
	m.broadcast <- &BroadcastMessage{AuctionID: auctionID, Payload: payload}
}

func (m *Manager) registerClient(client *Client) {
	subscribers, _ := m.subscribers.LoadOrStore(client.AuctionID, &sync.Map{})
	subscribers.(*sync.Map).Store(client, true)

	m.logger.Info("client subscribed",
		zap.String("client_id", client.ID),
		zap.String("auction_id", client.AuctionID))

	go client.writePump()
}

func (m *Manager) unregisterClient(client *Client) {
	if subscribers, ok := m.subscribers.Load(client.AuctionID); ok {
		subscribers.(*sync.Map).Delete(client)
	}

	close(client.Send)
	client.Conn.Close()

	m.logger.Info("client unsubscribed",
		zap.String("client_id", client.ID),
		zap.String("auction_id", client.AuctionID))
}

func (m *Manager) broadcastToAuction(auctionID string, payload []byte) {
	subscribers, ok := m.subscribers.Load(auctionID)
	if !ok {
		return
	}

	count := 0
	var evicted []*Client
	subscribers.(*sync.Map).Range(func(key, _ any) bool {
		client := key.(*Client)
		select {
		case client.Send <- payload:
			count++
		default:
			// Slow client; drop it rather than block the rest.
			evicted = append(evicted, client)
		}
		return true
	})

	// Unregister directly: this runs on the Run goroutine, so sending on
	// the unregister channel here would block forever.
	for _, client := range evicted {
		m.unregisterClient(client)
	}

	m.logger.Debug("event broadcast",
		zap.String("auction_id", auctionID),
		zap.Int("clients", count))
}

// SubscriberCount returns how many clients watch an auction.
func (m *Manager) SubscriberCount(auctionID string) int {
	subscribers, ok := m.subscribers.Load(auctionID)
	if !ok {
		return 0
	}
	count := 0
	subscribers.(*sync.Map).Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

// writePump pumps messages from the Send channel to the connection,
// pinging to keep it alive.
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains client messages and detects disconnects.
func (c *Client) readPump(unregister chan *Client) {
	defer func() {
		unregister <- c
	}()

	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			break
		}
	}
}

// StartReadPump starts the read pump for this client.
func (c *Client) StartReadPump(unregister chan *Client) {
	go c.readPump(unregister)
}
