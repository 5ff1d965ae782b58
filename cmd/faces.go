package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/kozaktomas/facecall/internal/config"
	"github.com/kozaktomas/facecall/internal/embedding"
	"github.com/kozaktomas/facecall/internal/facestore"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var facesCmd = &cobra.Command{
	Use:   "faces",
	Short: "List and manage enrolled faces",
	Long:  `List all enrolled identities. Use subcommands to remove or reindex them.`,
	RunE:  runFacesList,
}

var facesRemoveCmd = &cobra.Command{
	Use:   "remove [name...]",
	Short: "Remove enrolled identities by name",
	Long: `Remove one or more enrolled identities. Deletes the backing image file.

Example:
  facecall faces remove user_20250102_150405
  facecall faces remove alice bob`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFacesRemove,
}

var facesReindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Re-embed every stored face image",
	Long: `Run every image in the faces directory through the embedding server
and report files that are unreadable or contain no detectable face.
Those files are skipped by the server at startup; remove or replace them.`,
	RunE: runFacesReindex,
}

func init() {
	rootCmd.AddCommand(facesCmd)
	facesCmd.AddCommand(facesRemoveCmd)
	facesCmd.AddCommand(facesReindexCmd)

	facesRemoveCmd.Flags().Bool("yes", false, "Skip confirmation prompt")
}

// newFaceStore builds a store from configuration and loads it from disk.
func newFaceStore(ctx context.Context, cfg *config.Config) (*facestore.Store, error) {
	store := facestore.New(cfg.Faces.Dir, embedding.NewClient(cfg.Embedding.URL))
	if err := store.Reload(ctx); err != nil {
		return nil, fmt.Errorf("loading enrolled faces: %w", err)
	}
	return store, nil
}

func runFacesList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	store, err := newFaceStore(ctx, cfg)
	if err != nil {
		return err
	}

	records := store.List()
	if len(records) == 0 {
		fmt.Println("No enrolled faces.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tADDED")
	fmt.Fprintln(w, "----\t-----")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\n", r.Name, r.AddedAt.Format("2006-01-02 15:04:05"))
	}
	w.Flush()

	fmt.Printf("\nTotal: %d enrolled identities\n", len(records))
	return nil
}

func runFacesRemove(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()
	skipConfirm := mustGetBool(cmd, "yes")

	store, err := newFaceStore(ctx, cfg)
	if err != nil {
		return err
	}

	known := make(map[string]bool)
	for _, r := range store.List() {
		known[r.Name] = true
	}

	var valid []string
	fmt.Println("Identities to remove:")
	for _, name := range args {
		if known[name] {
			fmt.Printf("  - %s\n", name)
			valid = append(valid, name)
		} else {
			fmt.Printf("  - WARNING: Unknown identity %s (skipping)\n", name)
		}
	}

	if len(valid) == 0 {
		return fmt.Errorf("no valid identities to remove")
	}

	if !skipConfirm {
		fmt.Printf("\nRemove %d identity(ies)? [y/N]: ", len(valid))
		reader := bufio.NewReader(os.Stdin)
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	for _, name := range valid {
		if err := store.Remove(ctx, name); err != nil {
			return fmt.Errorf("removing %s: %w", name, err)
		}
	}

	fmt.Printf("Removed %d identity(ies).\n", len(valid))
	return nil
}

func runFacesReindex(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	entries, err := os.ReadDir(cfg.Faces.Dir)
	if err != nil {
		return fmt.Errorf("reading faces directory %s: %w", cfg.Faces.Dir, err)
	}

	var images []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png":
			images = append(images, entry.Name())
		}
	}

	if len(images) == 0 {
		fmt.Println("No face images found.")
		return nil
	}

	embedder := embedding.NewClient(cfg.Embedding.URL)

	bar := progressbar.NewOptions(len(images),
		progressbar.OptionSetDescription("Embedding faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("faces"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var bad []string
	for _, name := range images {
		path := filepath.Join(cfg.Faces.Dir, name)

		data, err := os.ReadFile(path)
		if err != nil {
			bad = append(bad, fmt.Sprintf("%s: %v", name, err))
			bar.Add(1)
			continue
		}

		resp, err := embedder.DetectFaces(ctx, data)
		if err != nil {
			return fmt.Errorf("embedding %s: %w", name, err)
		}
		if len(resp.Faces) == 0 {
			bad = append(bad, fmt.Sprintf("%s: no face detected", name))
		}
		bar.Add(1)
	}
	fmt.Println()

	if len(bad) > 0 {
		fmt.Printf("\n%d image(s) will be skipped by the server:\n", len(bad))
		for _, b := range bad {
			fmt.Printf("  - %s\n", b)
		}
		return fmt.Errorf("%d of %d face images are unusable", len(bad), len(images))
	}

	fmt.Printf("All %d face images embedded successfully.\n", len(images))
	return nil
}
