package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/kozaktomas/facecall/internal/signaling"
	"github.com/kozaktomas/facecall/internal/web/middleware"
)

// setupSignalingServer starts a hub and an httptest server exposing /ws.
func setupSignalingServer(t *testing.T) (*httptest.Server, *middleware.SessionManager) {
	t.Helper()

	hub := signaling.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	sm := newSessionManager(t)
	handler := NewWSHandler(hub, sm)

	router := chi.NewRouter()
	router.Get("/ws", handler.Serve)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, sm
}

// dialWS connects an authenticated websocket client.
func dialWS(t *testing.T, server *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	header := http.Header{"Authorization": {"Bearer " + sessionID}}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dialing %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func connectUser(t *testing.T, server *httptest.Server, sm *middleware.SessionManager, name string) *websocket.Conn {
	t.Helper()
	session, err := sm.CreateSession(name)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	return dialWS(t, server, session.ID)
}

func sendEvent(t *testing.T, conn *websocket.Conn, ev signaling.Event) {
	t.Helper()
	if err := conn.WriteJSON(ev); err != nil {
		t.Fatalf("writing event: %v", err)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) signaling.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev signaling.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("reading event: %v", err)
	}
	return ev
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	var ev signaling.Event
	if err := conn.ReadJSON(&ev); err == nil {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestWS_RejectsUnauthenticated(t *testing.T) {
	server, _ := setupSignalingServer(t)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected handshake to fail without a session")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 handshake response, got %+v", resp)
	}
}

func TestWS_OfferRelayedToOtherMemberOnly(t *testing.T) {
	server, sm := setupSignalingServer(t)

	alice := connectUser(t, server, sm, "alice")
	sendEvent(t, alice, signaling.Event{Type: signaling.EventJoin, Room: "lobby", Name: "alice"})
	time.Sleep(100 * time.Millisecond) // let the hub process the first join

	bob := connectUser(t, server, sm, "bob")
	sendEvent(t, bob, signaling.Event{Type: signaling.EventJoin, Room: "lobby", Name: "bob"})

	ev := readEvent(t, alice)
	if ev.Type != signaling.EventUserJoined || ev.Name != "bob" {
		t.Fatalf("got %+v, want user-joined bob", ev)
	}

	// Offer from bob reaches alice verbatim and never echoes back to bob.
	payload := json.RawMessage(`{"type":"offer","sdp":"v=0\r\n..."}`)
	sendEvent(t, bob, signaling.Event{Type: signaling.EventOffer, Room: "lobby", Payload: payload})

	ev = readEvent(t, alice)
	if ev.Type != signaling.EventOffer {
		t.Fatalf("got %s, want offer", ev.Type)
	}
	var sdp map[string]string
	if err := json.Unmarshal(ev.Payload, &sdp); err != nil {
		t.Fatalf("payload corrupted in relay: %v", err)
	}
	if sdp["type"] != "offer" {
		t.Errorf("payload = %s", ev.Payload)
	}

	expectSilence(t, bob)
}

func TestWS_AbruptDisconnectNotifiesRoom(t *testing.T) {
	server, sm := setupSignalingServer(t)

	alice := connectUser(t, server, sm, "alice")
	sendEvent(t, alice, signaling.Event{Type: signaling.EventJoin, Room: "lobby", Name: "alice"})
	time.Sleep(100 * time.Millisecond)

	bob := connectUser(t, server, sm, "bob")
	sendEvent(t, bob, signaling.Event{Type: signaling.EventJoin, Room: "lobby", Name: "bob"})

	if ev := readEvent(t, alice); ev.Type != signaling.EventUserJoined {
		t.Fatalf("got %+v, want user-joined", ev)
	}

	// No leave event: just tear down the connection.
	bob.Close()

	ev := readEvent(t, alice)
	if ev.Type != signaling.EventUserLeft || ev.Name != "bob" {
		t.Errorf("got %+v, want user-left bob", ev)
	}
}
