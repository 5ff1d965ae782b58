package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/facecall/internal/facestore"
	"github.com/kozaktomas/facecall/internal/web/middleware"
)

// Broadcaster fans out-of-band events to every live signaling connection.
// Implemented by signaling.Hub.
type Broadcaster interface {
	BroadcastMessage(message string)
	ForceLogout()
}

// AdminHandler exposes the enrolled-identity management surface.
type AdminHandler struct {
	store          *facestore.Store
	hub            Broadcaster
	sessionManager *middleware.SessionManager
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(store *facestore.Store, hub Broadcaster, sm *middleware.SessionManager) *AdminHandler {
	return &AdminHandler{
		store:          store,
		hub:            hub,
		sessionManager: sm,
	}
}

// similarLimit caps the similar-face listing.
const similarLimit = 5

// UserInfo is one enrolled identity in the admin listing.
type UserInfo struct {
	Name  string `json:"name"`
	Added string `json:"added"`
}

// ListUsers returns all enrolled identities with enrollment timestamps.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	records := h.store.List()

	users := make([]UserInfo, 0, len(records))
	for _, rec := range records {
		users = append(users, UserInfo{
			Name:  rec.Name,
			Added: rec.AddedAt.Format("2006-01-02 15:04:05"),
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{"users": users})
}

// DeleteUser removes an enrolled identity and rebuilds the store. Deleting
// an unknown identity succeeds.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	if err := h.store.Remove(r.Context(), name); err != nil {
		log.Printf("admin: removing %s: %v", sanitizeForLog(name), err)
		respondError(w, http.StatusInternalServerError, "failed to remove identity")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// SimilarUser is one entry in the similar-face listing.
type SimilarUser struct {
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
}

// SimilarUsers returns the enrolled identities closest to the named one,
// nearest first. Useful for spotting duplicate enrollments of the same person.
func (h *AdminHandler) SimilarUsers(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	snap := h.store.Snapshot()

	var query []float32
	for _, rec := range snap.Records() {
		if rec.Name == name {
			query = rec.Embedding
			break
		}
	}
	if query == nil {
		respondError(w, http.StatusNotFound, "unknown identity")
		return
	}

	// Ask for one extra neighbor because the identity matches itself.
	similar := make([]SimilarUser, 0)
	for _, n := range snap.NearestK(query, similarLimit+1) {
		if n.Record.Name == name {
			continue
		}
		similar = append(similar, SimilarUser{Name: n.Record.Name, Distance: n.Distance})
		if len(similar) == similarLimit {
			break
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{"similar": similar})
}

// LogoutAll invalidates every session and tells all connected clients to
// drop theirs.
func (h *AdminHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	h.sessionManager.DeleteAll()
	h.hub.ForceLogout()
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// broadcastRequest carries the admin announcement text.
type broadcastRequest struct {
	Message string `json:"message"`
}

// Broadcast sends a plain-text announcement to every connected client.
func (h *AdminHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Message == "" {
		respondError(w, http.StatusBadRequest, "message is required")
		return
	}

	h.hub.BroadcastMessage(req.Message)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
