package signaling

import "sync"

// Registry tracks which connections belong to which room. Rooms exist only
// while they have members: the first Join creates a room, removing the last
// member deletes it.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]map[*Client]struct{}),
	}
}

// Join adds the client to the room, creating the room if needed. Idempotent.
func (r *Registry) Join(c *Client, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[*Client]struct{})
		r.rooms[roomID] = members
	}
	members[c] = struct{}{}
}

// Leave removes the client from the room. The room is deleted once empty.
// Idempotent: leaving a room the client is not in does nothing.
func (r *Registry) Leave(c *Client, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(c, roomID)
}

func (r *Registry) leaveLocked(c *Client, roomID string) {
	members, ok := r.rooms[roomID]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(r.rooms, roomID)
	}
}

// Members returns a stable snapshot of the room's members.
func (r *Registry) Members(roomID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]*Client, 0, len(r.rooms[roomID]))
	for c := range r.rooms[roomID] {
		members = append(members, c)
	}
	return members
}

// MembersExcluding returns a stable snapshot of the room's members without
// the given client. This is the fan-out target list for relayed events.
func (r *Registry) MembersExcluding(roomID string, exclude *Client) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]*Client, 0, len(r.rooms[roomID]))
	for c := range r.rooms[roomID] {
		if c != exclude {
			members = append(members, c)
		}
	}
	return members
}

// DropClient removes the client from every room it belongs to and returns
// the affected room IDs. Used for cleanup when a connection drops without an
// explicit leave.
func (r *Registry) DropClient(c *Client) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var affected []string
	for roomID, members := range r.rooms {
		if _, ok := members[c]; ok {
			affected = append(affected, roomID)
			r.leaveLocked(c, roomID)
		}
	}
	return affected
}

// RoomCount returns the number of live rooms.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
