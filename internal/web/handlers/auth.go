package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/kozaktomas/facecall/internal/imaging"
	"github.com/kozaktomas/facecall/internal/matcher"
	"github.com/kozaktomas/facecall/internal/web/middleware"
)

// Authenticator decides whether a submitted frame belongs to an enrolled
// identity. Implemented by matcher.Matcher.
type Authenticator interface {
	Authenticate(ctx context.Context, imageData []byte) (matcher.Result, error)
}

// AuthHandler handles face login and session endpoints.
type AuthHandler struct {
	auth           Authenticator
	sessionManager *middleware.SessionManager
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth Authenticator, sm *middleware.SessionManager) *AuthHandler {
	return &AuthHandler{
		auth:           auth,
		sessionManager: sm,
	}
}

// loginRequest carries the base64 data-URL webcam frame.
type loginRequest struct {
	Image string `json:"image"`
}

// LoginResponse mirrors the original wire contract: status is one of
// "fail", "success" or "new_face".
type LoginResponse struct {
	Status string `json:"status"`
	Name   string `json:"name,omitempty"`
}

// Login authenticates a user by face similarity. An unrecognized face is
// enrolled under a generated identity but not logged in; undecodable frames
// and frames without a detectable face both fail.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Image == "" {
		respondJSON(w, http.StatusOK, LoginResponse{Status: "fail"})
		return
	}

	imageData, err := decodeDataURL(req.Image)
	if err != nil {
		respondJSON(w, http.StatusOK, LoginResponse{Status: "fail"})
		return
	}

	result, err := h.auth.Authenticate(r.Context(), imageData)
	if err != nil {
		if errors.Is(err, imaging.ErrDecode) {
			respondJSON(w, http.StatusOK, LoginResponse{Status: "fail"})
			return
		}
		log.Printf("login: authentication failed: %v", err)
		respondJSON(w, http.StatusInternalServerError, LoginResponse{Status: "fail"})
		return
	}

	switch result.Status {
	case matcher.StatusMatched:
		session, err := h.sessionManager.CreateSession(result.Name)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to create session")
			return
		}
		h.sessionManager.SetSessionCookie(w, session)
		respondJSON(w, http.StatusOK, LoginResponse{Status: "success", Name: result.Name})

	case matcher.StatusEnrolled:
		log.Printf("login: enrolled new face as %s", sanitizeForLog(result.Name))
		respondJSON(w, http.StatusOK, LoginResponse{Status: "new_face", Name: result.Name})

	default: // matcher.StatusNoFace
		respondJSON(w, http.StatusOK, LoginResponse{Status: "fail"})
	}
}

// Logout handles user logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if session := h.sessionManager.GetSessionFromRequest(r); session != nil {
		h.sessionManager.DeleteSession(session.ID)
	}

	h.sessionManager.ClearSessionCookie(w)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// StatusResponse represents the auth status response
type StatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	Name          string `json:"name,omitempty"`
	ExpiresAt     string `json:"expires_at,omitempty"`
}

// Status checks if the user is authenticated by validating the session.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	session := h.sessionManager.GetSessionFromRequest(r)
	if session == nil {
		respondJSON(w, http.StatusOK, StatusResponse{Authenticated: false})
		return
	}
	respondJSON(w, http.StatusOK, StatusResponse{
		Authenticated: true,
		Name:          session.Name,
		ExpiresAt:     session.ExpiresAt.Format("2006-01-02T15:04:05Z"),
	})
}

// decodeDataURL strips an optional "data:image/...;base64," prefix and
// decodes the remainder.
func decodeDataURL(s string) ([]byte, error) {
	if idx := strings.Index(s, ","); idx >= 0 {
		s = s[idx+1:]
	}
	return base64.StdEncoding.DecodeString(s)
}
