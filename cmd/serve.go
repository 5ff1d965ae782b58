package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/facecall/internal/config"
	"github.com/kozaktomas/facecall/internal/embedding"
	"github.com/kozaktomas/facecall/internal/facestore"
	"github.com/kozaktomas/facecall/internal/matcher"
	"github.com/kozaktomas/facecall/internal/signaling"
	"github.com/kozaktomas/facecall/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the facecall server",
	Long: `Start the facecall server.
The server exposes the face login API, the WebRTC signaling websocket,
and the admin endpoints for managing enrolled identities.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().String("session-secret", "", "Secret for signing session cookies (defaults to random)")
}

// applyServeFlags lets explicitly set flags win over environment configuration.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("port") {
		cfg.Web.Port = mustGetInt(cmd, "port")
	}
	if cmd.Flags().Changed("host") {
		cfg.Web.Host = mustGetString(cmd, "host")
	}
	if cmd.Flags().Changed("session-secret") {
		cfg.Web.SessionSecret = mustGetString(cmd, "session-secret")
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyServeFlags(cmd, cfg)

	if err := os.MkdirAll(cfg.Faces.Dir, 0755); err != nil {
		return fmt.Errorf("creating faces directory: %w", err)
	}

	embedder := embedding.NewClient(cfg.Embedding.URL)
	store := facestore.New(cfg.Faces.Dir, embedder)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Printf("Loading enrolled faces from %s...\n", cfg.Faces.Dir)
	if err := store.Reload(ctx); err != nil {
		return fmt.Errorf("loading enrolled faces: %w", err)
	}
	fmt.Printf("Loaded %d enrolled identities\n", len(store.List()))

	auth := matcher.New(store, embedder, cfg.Match)

	hub := signaling.NewHub()
	go hub.Run(ctx)

	server := web.NewServer(cfg, auth, store, hub)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
		cancel()
	}()

	fmt.Printf("Starting facecall server on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
