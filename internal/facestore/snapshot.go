package facestore

import "github.com/coder/hnsw"

// hnswMaxNeighbors is the M parameter for the HNSW graph.
const hnswMaxNeighbors = 16

// Snapshot is an immutable view of the store at one point in time. It carries
// the records in store order plus an HNSW index for nearest-neighbor lookup.
type Snapshot struct {
	records []Record
	graph   *hnsw.Graph[int] // node key = index into records, nil when empty
}

func newSnapshot(records []Record) *Snapshot {
	snap := &Snapshot{records: records}

	if len(records) == 0 {
		return snap
	}

	g := hnsw.NewGraph[int]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.CosineDistance

	for i := range records {
		if len(records[i].Embedding) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(i, records[i].Embedding))
	}

	snap.graph = g
	return snap
}

// Records returns the enrolled identities in store order. The caller must not
// mutate the result.
func (s *Snapshot) Records() []Record {
	return s.records
}

// Len returns the number of enrolled identities.
func (s *Snapshot) Len() int {
	return len(s.records)
}

// FirstWithin returns the first record (in store order) whose embedding is
// within tolerance of the query. This preserves the historical tie-break:
// when two identities both fall within tolerance, the earlier-enrolled one
// wins.
func (s *Snapshot) FirstWithin(query []float32, tolerance float64) (Record, float64, bool) {
	for _, rec := range s.records {
		if d := CosineDistance(query, rec.Embedding); d <= tolerance {
			return rec, d, true
		}
	}
	return Record{}, 0, false
}

// Nearest returns the record closest to the query and its cosine distance,
// using the HNSW index. ok is false when the snapshot is empty.
func (s *Snapshot) Nearest(query []float32) (Record, float64, bool) {
	if s.graph == nil {
		return Record{}, 0, false
	}

	neighbors := s.graph.Search(query, 1)
	if len(neighbors) == 0 {
		return Record{}, 0, false
	}

	n := neighbors[0]
	// Recompute the exact distance from the node's own vector; the graph
	// search distance is approximate for pruned candidates.
	return s.records[n.Key], CosineDistance(query, n.Value), true
}

// Neighbor is one result of a similarity lookup.
type Neighbor struct {
	Record   Record
	Distance float64
}

// NearestK returns up to k records closest to the query, nearest first.
func (s *Snapshot) NearestK(query []float32, k int) []Neighbor {
	if s.graph == nil || k <= 0 {
		return nil
	}

	nodes := s.graph.Search(query, k)
	neighbors := make([]Neighbor, 0, len(nodes))
	for _, n := range nodes {
		neighbors = append(neighbors, Neighbor{
			Record:   s.records[n.Key],
			Distance: CosineDistance(query, n.Value),
		})
	}
	return neighbors
}
