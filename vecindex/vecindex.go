// Package vecindex defines the vector index used for semantic retrieval
// over analyzed contract fragments.
package vecindex

import (
	"context"
	"errors"

	"github.com/clauseworks/clausegraph/contract"
)

// MaxPayloadTextChars bounds the fragment text stored alongside each
// vector.
const MaxPayloadTextChars = 1500

// ErrTenantRequired is returned when an index operation is attempted
// without a tenant scope.
var ErrTenantRequired = errors.New("vecindex: tenant id is required")

// Entry is one indexed fragment. OwnerID is the contract the fragment
// was extracted from; a contract may own many entries.
type Entry struct {
	ID        string
	OwnerID   string
	TenantID  string
	Text      string
	Embedding []float32
}

// Hit is a search result, ordered by descending similarity.
type Hit struct {
	ID      string
	OwnerID string
	Text    string
	Score   float64
	Rank    int
}

// Index stores embedded fragments and answers tenant-scoped similarity
// queries.
type Index interface {
	// Upsert writes entries, replacing any entry with the same ID.
	// Entry text longer than MaxPayloadTextChars is truncated.
	Upsert(ctx context.Context, entries []Entry) error

	// Search returns up to limit hits for the tenant, best first.
	Search(ctx context.Context, tenantID string, query []float32, limit int) ([]Hit, error)

	// DeleteByOwner removes every entry owned by the given contract.
	DeleteByOwner(ctx context.Context, ownerID string) error
}

// ClampText truncates fragment text to the payload bound.
func ClampText(s string) string {
	return contract.Truncate(s, MaxPayloadTextChars)
}
