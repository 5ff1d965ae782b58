package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/facecall/internal/facestore"
	"github.com/kozaktomas/facecall/internal/signaling"
	"github.com/kozaktomas/facecall/internal/web/handlers"
	"github.com/kozaktomas/facecall/internal/web/middleware"
)

func (s *Server) setupRoutes(auth handlers.Authenticator, store *facestore.Store, hub *signaling.Hub) {
	// Create handlers
	authHandler := handlers.NewAuthHandler(auth, s.sessionManager)
	adminHandler := handlers.NewAdminHandler(store, hub, s.sessionManager)
	configHandler := handlers.NewConfigHandler(s.config)
	wsHandler := handlers.NewWSHandler(hub, s.sessionManager)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Auth routes (face login creates the session)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)

		// Client configuration for RTCPeerConnection setup
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.sessionManager))
			r.Get("/config", configHandler.Get)
		})

		// Admin surface
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(s.sessionManager, s.config.Web.AdminName))

			r.Get("/admin/users", adminHandler.ListUsers)
			r.Get("/admin/users/{name}/similar", adminHandler.SimilarUsers)
			r.Delete("/admin/users/{name}", adminHandler.DeleteUser)
			r.Post("/admin/logout-all", adminHandler.LogoutAll)
			r.Post("/admin/broadcast", adminHandler.Broadcast)
		})
	})

	// Signaling channel; authentication happens inside the handler so the
	// websocket handshake can fail with a proper status code.
	s.router.Get("/ws", wsHandler.Serve)
}
