// Package redis implements the vector index on Redis. Entries are kept
// as JSON values with secondary sets per tenant and per owning contract;
// similarity is scored client-side.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/clauseworks/clausegraph/vecindex"
)

// Index implements vecindex.Index using Redis.
type Index struct {
	client *redis.Client
	prefix string
}

var _ vecindex.Index = (*Index)(nil)

// Options configuration for Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // Key prefix, default "clausegraph:"
}

// New creates a new Redis-backed vector index.
func New(opts Options) *Index {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewWithClient(client, opts.Prefix)
}

// NewWithClient creates an index with an existing client. Useful for
// testing with miniredis.
func NewWithClient(client *redis.Client, prefix string) *Index {
	if prefix == "" {
		prefix = "clausegraph:"
	}
	return &Index{client: client, prefix: prefix}
}

// Close closes the underlying client.
func (ix *Index) Close() error {
	return ix.client.Close()
}

type storedEntry struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	TenantID  string    `json:"tenant_id"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

func (ix *Index) entryKey(id string) string {
	return fmt.Sprintf("%sentry:%s", ix.prefix, id)
}

func (ix *Index) tenantKey(tenantID string) string {
	return fmt.Sprintf("%stenant:%s:entries", ix.prefix, tenantID)
}

func (ix *Index) ownerKey(ownerID string) string {
	return fmt.Sprintf("%sowner:%s:entries", ix.prefix, ownerID)
}

// Upsert writes entries, replacing any entry with the same ID.
func (ix *Index) Upsert(ctx context.Context, entries []vecindex.Entry) error {
	pipe := ix.client.Pipeline()

	for _, e := range entries {
		if e.TenantID == "" {
			return vecindex.ErrTenantRequired
		}
		data, err := json.Marshal(storedEntry{
			ID:        e.ID,
			OwnerID:   e.OwnerID,
			TenantID:  e.TenantID,
			Text:      vecindex.ClampText(e.Text),
			Embedding: e.Embedding,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal entry: %w", err)
		}

		pipe.Set(ctx, ix.entryKey(e.ID), data, 0)
		pipe.SAdd(ctx, ix.tenantKey(e.TenantID), e.ID)
		pipe.SAdd(ctx, ix.ownerKey(e.OwnerID), e.ID)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to upsert entries to redis: %w", err)
	}
	return nil
}

// Search returns up to limit hits for the tenant, best first.
func (ix *Index) Search(ctx context.Context, tenantID string, query []float32, limit int) ([]vecindex.Hit, error) {
	if tenantID == "" {
		return nil, vecindex.ErrTenantRequired
	}

	ids, err := ix.client.SMembers(ctx, ix.tenantKey(tenantID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list tenant entries: %w", err)
	}
	if len(ids) == 0 {
		return []vecindex.Hit{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = ix.entryKey(id)
	}

	values, err := ix.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}

	hits := make([]vecindex.Hit, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Entry deleted between SMembers and MGet.
			continue
		}
		var e storedEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
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
	ownerKey := ix.ownerKey(ownerID)

	ids, err := ix.client.SMembers(ctx, ownerKey).Result()
	if err != nil {
		return fmt.Errorf("failed to list owner entries: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	// Load entries first so the tenant sets can be cleaned too.
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = ix.entryKey(id)
	}
	values, err := ix.client.MGet(ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("failed to load owner entries: %w", err)
	}

	pipe := ix.client.Pipeline()
	for i, v := range values {
		pipe.Del(ctx, keys[i])
		if raw, ok := v.(string); ok {
			var e storedEntry
			if err := json.Unmarshal([]byte(raw), &e); err == nil {
				pipe.SRem(ctx, ix.tenantKey(e.TenantID), e.ID)
			}
		}
	}
	pipe.Del(ctx, ownerKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete owner entries: %w", err)
	}
	return nil
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
