package signaling

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

// startHub runs a hub for the duration of the test.
func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func register(t *testing.T, hub *Hub, name string) *Client {
	t.Helper()
	c := newTestClient(name)
	c.Hub = hub
	hub.Register <- c
	return c
}

func join(t *testing.T, hub *Hub, c *Client, room string) {
	t.Helper()
	hub.Inbound <- &Event{Type: EventJoin, Room: room, Name: c.Name, client: c}
}

func recvEvent(t *testing.T, c *Client) *Event {
	t.Helper()
	select {
	case ev, ok := <-c.Send:
		if !ok {
			t.Fatal("send channel closed unexpectedly")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func expectNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case ev := <-c.Send:
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_JoinNotifiesOtherMembers(t *testing.T) {
	hub := startHub(t)
	alice := register(t, hub, "alice")
	bob := register(t, hub, "bob")

	join(t, hub, alice, "lobby")
	expectNoEvent(t, alice) // alone in the room, nobody to notify

	join(t, hub, bob, "lobby")

	ev := recvEvent(t, alice)
	if ev.Type != EventUserJoined || ev.Name != "bob" {
		t.Errorf("got %+v, want user-joined bob", ev)
	}
	// The joiner itself gets nothing.
	expectNoEvent(t, bob)
}

func TestHub_RelayReachesAllButSender(t *testing.T) {
	hub := startHub(t)
	alice := register(t, hub, "alice")
	bob := register(t, hub, "bob")
	carol := register(t, hub, "carol")

	join(t, hub, alice, "lobby")
	join(t, hub, bob, "lobby")
	join(t, hub, carol, "lobby")
	drainJoinNotifications(t, alice, bob, carol)

	payload := json.RawMessage(`{"sdp":"v=0...","type":"offer"}`)
	hub.Inbound <- &Event{Type: EventOffer, Room: "lobby", Payload: payload, client: alice}

	for _, c := range []*Client{bob, carol} {
		ev := recvEvent(t, c)
		if ev.Type != EventOffer {
			t.Errorf("%s got %s, want offer", c.Name, ev.Type)
		}
		if string(ev.Payload) != string(payload) {
			t.Errorf("%s payload mutated: %s", c.Name, ev.Payload)
		}
	}
	expectNoEvent(t, alice)
}

func TestHub_LeaveNotifiesRemainingMembers(t *testing.T) {
	hub := startHub(t)
	alice := register(t, hub, "alice")
	bob := register(t, hub, "bob")

	join(t, hub, alice, "lobby")
	join(t, hub, bob, "lobby")
	drainJoinNotifications(t, alice, bob)

	hub.Inbound <- &Event{Type: EventLeave, Room: "lobby", Name: "alice", client: alice}

	ev := recvEvent(t, bob)
	if ev.Type != EventUserLeft || ev.Name != "alice" {
		t.Errorf("got %+v, want user-left alice", ev)
	}
	expectNoEvent(t, alice)
}

func TestHub_DisconnectCleansUpAllRooms(t *testing.T) {
	hub := startHub(t)
	alice := register(t, hub, "alice")
	bobA := register(t, hub, "bob")
	bobB := register(t, hub, "carol")

	join(t, hub, alice, "room-a")
	join(t, hub, alice, "room-b")
	join(t, hub, bobA, "room-a")
	join(t, hub, bobB, "room-b")
	drainJoinNotifications(t, alice)

	// Abrupt disconnect: no explicit leave events.
	hub.Unregister <- alice

	for _, c := range []*Client{bobA, bobB} {
		ev := recvEvent(t, c)
		if ev.Type != EventUserLeft || ev.Name != "alice" {
			t.Errorf("%s got %+v, want user-left alice", c.Name, ev)
		}
	}

	// Wait for the hub to finish the unregister before inspecting state.
	waitFor(t, func() bool {
		return len(hub.Registry().Members("room-a")) == 1 &&
			len(hub.Registry().Members("room-b")) == 1
	})

	// The client's send channel is closed as part of cleanup.
	if _, ok := <-alice.Send; ok {
		// Drain any pending event first; the channel must end up closed.
		for range alice.Send {
		}
	}
}

func TestHub_BroadcastReachesEveryClient(t *testing.T) {
	hub := startHub(t)
	alice := register(t, hub, "alice")
	bob := register(t, hub, "bob")

	// bob is in a room, alice is not; broadcast ignores rooms.
	join(t, hub, bob, "lobby")

	hub.BroadcastMessage("maintenance in 5 minutes")

	for _, c := range []*Client{alice, bob} {
		ev := recvEvent(t, c)
		if ev.Type != EventBroadcast {
			t.Fatalf("%s got %s, want broadcast", c.Name, ev.Type)
		}
		var body map[string]string
		if err := json.Unmarshal(ev.Payload, &body); err != nil {
			t.Fatalf("decoding payload: %v", err)
		}
		if body["message"] != "maintenance in 5 minutes" {
			t.Errorf("message = %q", body["message"])
		}
	}
}

func TestHub_ForceLogoutReachesEveryClient(t *testing.T) {
	hub := startHub(t)
	alice := register(t, hub, "alice")
	bob := register(t, hub, "bob")

	hub.ForceLogout()

	for _, c := range []*Client{alice, bob} {
		ev := recvEvent(t, c)
		if ev.Type != EventForceLogout {
			t.Errorf("%s got %s, want force-logout", c.Name, ev.Type)
		}
	}
}

func TestHub_EventsFromOneConnectionKeepOrder(t *testing.T) {
	hub := startHub(t)
	alice := register(t, hub, "alice")
	bob := register(t, hub, "bob")

	join(t, hub, alice, "lobby")
	join(t, hub, bob, "lobby")
	drainJoinNotifications(t, alice)

	for i := 0; i < 10; i++ {
		payload, _ := json.Marshal(map[string]int{"seq": i})
		hub.Inbound <- &Event{Type: EventCandidate, Room: "lobby", Payload: payload, client: alice}
	}

	for i := 0; i < 10; i++ {
		ev := recvEvent(t, bob)
		var body map[string]int
		if err := json.Unmarshal(ev.Payload, &body); err != nil {
			t.Fatalf("decoding payload: %v", err)
		}
		if body["seq"] != i {
			t.Fatalf("event %d arrived out of order (seq %d)", i, body["seq"])
		}
	}
}

// drainJoinNotifications swallows pending user-joined events so tests can
// assert on what follows.
func drainJoinNotifications(t *testing.T, clients ...*Client) {
	t.Helper()
	for _, c := range clients {
		draining := true
		for draining {
			select {
			case ev := <-c.Send:
				if ev.Type != EventUserJoined {
					t.Fatalf("unexpected %s while draining joins", ev.Type)
				}
			case <-time.After(50 * time.Millisecond):
				draining = false
			}
		}
	}
}

// waitFor polls until cond is true or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
