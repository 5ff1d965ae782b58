package signaling

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024 // 64 KB - enough for WebRTC SDP messages

	// Outbound queue size per connection.
	sendBuffer = 256
)

// Client wraps a single websocket connection (an authenticated peer).
type Client struct {
	// Hub is the hub that manages this client.
	Hub *Hub

	// Conn is the websocket connection. Nil in tests that drive the hub
	// directly.
	Conn *websocket.Conn

	// ID is the unique connection ID.
	ID string

	// Name is the authenticated identity of the peer.
	Name string

	// Send is a buffered channel for all outbound events. The hub writes
	// to it; WritePump drains it onto the websocket.
	Send chan *Event
}

// NewClient wraps an upgraded websocket connection for the given identity.
func NewClient(hub *Hub, conn *websocket.Conn, name string) *Client {
	return &Client{
		Hub:  hub,
		Conn: conn,
		ID:   uuid.NewString(),
		Name: name,
		Send: make(chan *Event, sendBuffer),
	}
}

// trySend queues the event without blocking the hub. Events to a client
// whose queue is full are dropped; signaling peers recover by renegotiating.
func (c *Client) trySend(event *Event) {
	select {
	case c.Send <- event:
	default:
		log.Printf("signaling: dropping %s event for slow client %s", event.Type, c.ID)
	}
}

// ReadPump pumps events from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine. All reads
// happen from this goroutine, so there is at most one reader per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var event Event
		if err := c.Conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("signaling: read error from %s: %v", c.ID, err)
			}
			break
		}

		event.client = c
		c.Hub.Inbound <- &event
	}
}

// WritePump pumps events from the hub to the websocket connection.
//
// A goroutine running WritePump is started for each connection. All writes
// happen from this goroutine, so there is at most one writer per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteJSON(event); err != nil {
				log.Printf("signaling: write error to %s: %v", c.ID, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
