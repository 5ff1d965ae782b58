package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "facecall",
	Short: "Face-authenticated video calls",
	Long: `Facecall is a video call server where users log in with their face.
A camera frame is matched against the enrolled identities; unknown faces
are enrolled automatically. Authenticated users exchange WebRTC signaling
through room-scoped websocket channels.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
