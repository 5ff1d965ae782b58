// Package matcher implements the face authentication decision: match a
// submitted frame against the enrolled identities or enroll it as a new one.
package matcher

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/facecall/internal/config"
	"github.com/kozaktomas/facecall/internal/embedding"
	"github.com/kozaktomas/facecall/internal/facestore"
	"github.com/kozaktomas/facecall/internal/imaging"
)

// maxImageSize bounds the longer edge of frames sent to the embedder.
const maxImageSize = 1280

// Status is the outcome of an authentication attempt.
type Status string

const (
	// StatusNoFace means the embedder found zero faces in the frame.
	StatusNoFace Status = "no_face"
	// StatusMatched means an enrolled identity was within tolerance.
	StatusMatched Status = "matched"
	// StatusEnrolled means the frame was persisted as a new identity.
	StatusEnrolled Status = "enrolled"
)

// Result describes the authentication outcome.
type Result struct {
	Status   Status
	Name     string  // matched or newly enrolled identity
	Distance float64 // cosine distance of the match, 0 otherwise
}

// Matcher authenticates camera frames against the face store.
type Matcher struct {
	store     *facestore.Store
	embedder  embedding.FaceEmbedder
	tolerance float64
	strategy  string
	now       func() time.Time
}

// New creates a matcher. The tolerance and strategy are policy knobs; see
// config.MatchConfig.
func New(store *facestore.Store, embedder embedding.FaceEmbedder, cfg config.MatchConfig) *Matcher {
	return &Matcher{
		store:     store,
		embedder:  embedder,
		tolerance: cfg.Tolerance,
		strategy:  cfg.Strategy,
		now:       time.Now,
	}
}

// Authenticate decides whether the submitted image belongs to an enrolled
// identity. Undecodable payloads fail with an error wrapping
// imaging.ErrDecode. When no identity is within tolerance, the frame is
// persisted under a generated name and the store reloaded; the caller is not
// logged in as the new identity.
//
// Multi-face frames are not disambiguated: only the first detected face is
// considered.
func (m *Matcher) Authenticate(ctx context.Context, imageData []byte) (Result, error) {
	normalized, err := imaging.Normalize(imageData, maxImageSize)
	if err != nil {
		return Result{}, err
	}

	resp, err := m.embedder.DetectFaces(ctx, normalized)
	if err != nil {
		return Result{}, fmt.Errorf("computing face embedding: %w", err)
	}
	if len(resp.Faces) == 0 {
		return Result{Status: StatusNoFace}, nil
	}

	probe := resp.Faces[0].Embedding
	snap := m.store.Snapshot()

	var (
		rec  facestore.Record
		dist float64
		ok   bool
	)
	if m.strategy == config.StrategyNearest {
		rec, dist, ok = snap.Nearest(probe)
		ok = ok && dist <= m.tolerance
	} else {
		rec, dist, ok = snap.FirstWithin(probe, m.tolerance)
	}
	if ok {
		return Result{Status: StatusMatched, Name: rec.Name, Distance: dist}, nil
	}

	name := fmt.Sprintf("user_%s", m.now().Format("20060102_150405"))
	if err := m.store.Enroll(ctx, normalized, name); err != nil {
		return Result{}, fmt.Errorf("enrolling new face: %w", err)
	}

	return Result{Status: StatusEnrolled, Name: name}, nil
}
