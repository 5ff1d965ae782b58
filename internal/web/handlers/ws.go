package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/kozaktomas/facecall/internal/signaling"
	"github.com/kozaktomas/facecall/internal/web/middleware"
)

// upgrader configures the websocket handshake. Cross-origin access is
// governed by the session requirement: the browser only gets a session
// cookie through the CORS-checked login endpoint.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024, // 64 KB
	WriteBufferSize: 64 * 1024, // 64 KB
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades authenticated requests into signaling connections.
type WSHandler struct {
	hub            *signaling.Hub
	sessionManager *middleware.SessionManager
}

// NewWSHandler creates a new websocket handler
func NewWSHandler(hub *signaling.Hub, sm *middleware.SessionManager) *WSHandler {
	return &WSHandler{
		hub:            hub,
		sessionManager: sm,
	}
}

// Serve upgrades the connection and hands it to the hub. The session's
// identity becomes the client name announced in join/leave notifications.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	session := h.sessionManager.GetSessionFromRequest(r)
	if session == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: failed to upgrade connection: %v", err)
		return
	}

	client := signaling.NewClient(h.hub, conn, session.Name)
	h.hub.Register <- client

	// One goroutine per direction; their lifetimes bound the connection.
	go client.WritePump()
	go client.ReadPump()
}
