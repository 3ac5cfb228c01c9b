// Package memory provides an in-process vector index for tests and
// single-node deployments.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/clauseworks/clausegraph/vecindex"
)

// Index is an in-memory vecindex.Index. Safe for concurrent use.
type Index struct {
	mu      sync.RWMutex
	entries map[string]vecindex.Entry
}

var _ vecindex.Index = (*Index)(nil)

// New creates an empty index.
func New() *Index {
	return &Index{entries: make(map[string]vecindex.Entry)}
}

// Upsert writes entries, replacing any entry with the same ID.
func (ix *Index) Upsert(ctx context.Context, entries []vecindex.Entry) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, e := range entries {
		if e.TenantID == "" {
			return vecindex.ErrTenantRequired
		}
		e.Text = vecindex.ClampText(e.Text)
		ix.entries[e.ID] = e
	}
	return nil
}

// Search returns up to limit hits for the tenant, best first.
func (ix *Index) Search(ctx context.Context, tenantID string, query []float32, limit int) ([]vecindex.Hit, error) {
	if tenantID == "" {
		return nil, vecindex.ErrTenantRequired
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	hits := make([]vecindex.Hit, 0)
	for _, e := range ix.entries {
		if e.TenantID != tenantID {
			continue
		}
		hits = append(hits, vecindex.Hit{
			ID:      e.ID,
			OwnerID: e.OwnerID,
			Text:    e.Text,
			Score:   cosineSimilarity32(query, e.Embedding),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	for i := range hits {
		hits[i].Rank = i
	}
	return hits, nil
}

// DeleteByOwner removes every entry owned by the given contract.
func (ix *Index) DeleteByOwner(ctx context.Context, ownerID string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for id, e := range ix.entries {
		if e.OwnerID == ownerID {
			delete(ix.entries, id)
		}
	}
	return nil
}

// Len reports the number of stored entries.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

func cosineSimilarity32(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct float64
	var normA float64
	var normB float64

	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
