package handlers

import (
	"net/http"

	"github.com/kozaktomas/facecall/internal/config"
)

// ConfigHandler serves client-side configuration.
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{config: cfg}
}

// ClientConfig is the subset of configuration browsers need before they can
// open a peer connection.
type ClientConfig struct {
	ICEServers []config.ICEServer `json:"ice_servers"`
}

// Get returns the client configuration.
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ClientConfig{
		ICEServers: h.config.ICE.Servers,
	})
}
