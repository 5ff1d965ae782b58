package signaling

import (
	"context"
	"encoding/json"
	"log"
)

// Hub is the central brain of the signaling relay. A single goroutine
// (Run) owns all connection state, so per-connection event order is
// preserved and no handler needs extra locking.
type Hub struct {
	// registry tracks room membership.
	registry *Registry

	// clients is the set of all connected clients, in rooms or not.
	clients map[*Client]struct{}

	// Register is a channel for registering new clients.
	Register chan *Client

	// Unregister is a channel for unregistering clients.
	Unregister chan *Client

	// Inbound carries signaling events read from client connections.
	Inbound chan *Event

	// system carries out-of-band events fanned out to every client
	// (admin broadcast, force-logout).
	system chan *Event
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		registry:   NewRegistry(),
		clients:    make(map[*Client]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Inbound:    make(chan *Event),
		system:     make(chan *Event),
	}
}

// Registry exposes the room registry for inspection.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Run starts the hub's main processing loop. It returns when ctx is
// cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.Register:
			h.clients[client] = struct{}{}
			log.Printf("signaling: client registered: %s (%s)", client.Name, client.ID)

		case client := <-h.Unregister:
			if _, ok := h.clients[client]; !ok {
				continue
			}
			delete(h.clients, client)

			// A dropped connection must disappear from every room it
			// joined, with the same notification an explicit leave
			// would have produced.
			for _, roomID := range h.registry.DropClient(client) {
				h.fanOut(h.registry.Members(roomID), &Event{
					Type: EventUserLeft,
					Name: client.Name,
				})
			}

			close(client.Send)
			log.Printf("signaling: client unregistered: %s (%s)", client.Name, client.ID)

		case event := <-h.Inbound:
			h.handleEvent(event)

		case event := <-h.system:
			for client := range h.clients {
				client.trySend(event)
			}
		}
	}
}

// handleEvent dispatches one inbound event from a client connection.
func (h *Hub) handleEvent(event *Event) {
	sender := event.client
	if sender == nil {
		return
	}

	switch event.Type {
	case EventJoin:
		h.registry.Join(sender, event.Room)
		h.fanOut(h.registry.MembersExcluding(event.Room, sender), &Event{
			Type: EventUserJoined,
			Name: event.Name,
		})

	case EventLeave:
		h.registry.Leave(sender, event.Room)
		h.fanOut(h.registry.Members(event.Room), &Event{
			Type: EventUserLeft,
			Name: event.Name,
		})

	case EventOffer, EventAnswer, EventCandidate:
		// Pure pass-through: the payload structure belongs to the two
		// negotiating peers.
		h.fanOut(h.registry.MembersExcluding(event.Room, sender), event)

	default:
		log.Printf("signaling: unknown event type %q from %s", event.Type, sender.ID)
	}
}

// fanOut delivers the event to every target.
func (h *Hub) fanOut(targets []*Client, event *Event) {
	for _, c := range targets {
		c.trySend(event)
	}
}

// BroadcastMessage sends an admin broadcast to every connected client.
func (h *Hub) BroadcastMessage(message string) {
	payload, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return
	}
	h.system <- &Event{Type: EventBroadcast, Payload: payload}
}

// ForceLogout tells every connected client to drop its session.
func (h *Hub) ForceLogout() {
	h.system <- &Event{Type: EventForceLogout}
}
