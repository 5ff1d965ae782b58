// Package facestore keeps the in-memory index of enrolled face embeddings.
// The backing state is one image file per identity; the filename (minus
// extension) is the identity name. The whole index is rebuilt from disk on
// every mutation and swapped in atomically, so readers always observe either
// the pre- or post-mutation snapshot.
package facestore

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kozaktomas/facecall/internal/embedding"
)

// imageExtensions lists the file types considered enrolled identities.
var imageExtensions = []string{".jpg", ".jpeg", ".png"}

// Record is one enrolled identity.
type Record struct {
	Name      string
	Embedding []float32
	AddedAt   time.Time
}

// Store owns the enrolled identities. All mutations (Reload, Enroll, Remove)
// are serialized; reads go through lock-free snapshots.
type Store struct {
	dir      string
	embedder embedding.FaceEmbedder

	mu   sync.Mutex // serializes rebuilds
	snap atomic.Pointer[Snapshot]
}

// New creates a store backed by the given directory. Call Reload to populate
// it; until then the snapshot is empty.
func New(dir string, embedder embedding.FaceEmbedder) *Store {
	s := &Store{
		dir:      dir,
		embedder: embedder,
	}
	s.snap.Store(newSnapshot(nil))
	return s
}

// Dir returns the backing faces directory.
func (s *Store) Dir() string {
	return s.dir
}

// Snapshot returns the current immutable view of the store. Never nil.
func (s *Store) Snapshot() *Snapshot {
	return s.snap.Load()
}

// List returns the enrolled identities in store order.
func (s *Store) List() []Record {
	return s.Snapshot().Records()
}

// Reload rebuilds the index from the faces directory. Files that cannot be
// read or contain no detectable face are logged and skipped; they never abort
// the rebuild. The new snapshot replaces the old one atomically.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadLocked(ctx)
}

func (s *Store) reloadLocked(ctx context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("reading faces directory %s: %w", s.dir, err)
	}

	var records []Record
	for _, entry := range entries {
		if entry.IsDir() || !isImageFile(entry.Name()) {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("facestore: skipping %s: %v", path, err)
			continue
		}

		resp, err := s.embedder.DetectFaces(ctx, data)
		if err != nil {
			log.Printf("facestore: skipping %s: %v", path, err)
			continue
		}
		if len(resp.Faces) == 0 {
			log.Printf("facestore: skipping %s: no face detected", path)
			continue
		}

		addedAt := time.Now()
		if info, err := entry.Info(); err == nil {
			addedAt = info.ModTime()
		}

		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		records = append(records, Record{
			Name:      name,
			Embedding: resp.Faces[0].Embedding,
			AddedAt:   addedAt,
		})
	}

	s.snap.Store(newSnapshot(records))
	return nil
}

// Enroll writes the JPEG frame as a new identity and rebuilds the index.
// A write failure leaves the store untouched.
func (s *Store) Enroll(ctx context.Context, jpegData []byte, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, name+".jpg")
	if err := os.WriteFile(path, jpegData, 0644); err != nil {
		return fmt.Errorf("saving face image: %w", err)
	}

	return s.reloadLocked(ctx)
}

// Remove deletes the identity's backing image, if present, and rebuilds the
// index. Removing an unknown identity is a no-op.
func (s *Store) Remove(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ext := range imageExtensions {
		path := filepath.Join(s.dir, name+ext)
		if _, err := os.Stat(path); err == nil {
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("removing face image: %w", err)
			}
		}
	}

	return s.reloadLocked(ctx)
}

func isImageFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range imageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
