// Package retrieval reconciles vector search hits against the record
// store at question time. Hits whose contract no longer exists are
// dropped from the result and their index entries are pruned in the
// background, so the index converges back to the store without a
// separate sweep job.
package retrieval

import (
	"context"
	"sync"
	"time"

	"github.com/clauseworks/clausegraph/contract"
	"github.com/clauseworks/clausegraph/log"
	"github.com/clauseworks/clausegraph/store"
	"github.com/clauseworks/clausegraph/vecindex"
)

// DefaultTopK is the default number of index hits considered per query.
const DefaultTopK = 20

// DefaultCleanupTimeout bounds each background orphan prune.
const DefaultCleanupTimeout = 30 * time.Second

// Outcome distinguishes an answerable result from the two empty cases.
type Outcome string

const (
	// OutcomeEvidence means at least one hit survived reconciliation.
	OutcomeEvidence Outcome = "evidence"
	// OutcomeNoMatches means the index returned nothing for the tenant.
	OutcomeNoMatches Outcome = "no_matches"
	// OutcomeAllOrphaned means every hit referenced a deleted contract.
	OutcomeAllOrphaned Outcome = "all_orphaned"
)

// Evidence is one reconciled source: the best-ranked surviving fragment
// for a contract, enriched with the stored record.
type Evidence struct {
	ContractID string
	Title      string
	Fragment   string
	Score      float64
	Record     *contract.Record
}

// Citation names a source contract. One per distinct contract, in
// evidence order.
type Citation struct {
	ContractID string `json:"contract_id"`
	Title      string `json:"title"`
}

// EvidenceSet is the reconciled retrieval result.
type EvidenceSet struct {
	Outcome   Outcome
	Evidence  []Evidence
	Citations []Citation
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithTopK sets how many index hits are considered per query.
func WithTopK(k int) Option {
	return func(r *Reconciler) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithLogger sets the logger used for background prune failures.
func WithLogger(l log.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithCleanupTimeout bounds each background orphan prune.
func WithCleanupTimeout(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.cleanupTimeout = d
		}
	}
}

// Reconciler answers tenant-scoped retrieval queries with store-backed
// evidence.
type Reconciler struct {
	index          vecindex.Index
	records        store.RecordStore
	topK           int
	cleanupTimeout time.Duration
	logger         log.Logger

	cleanup sync.WaitGroup
}

// New creates a Reconciler over the given index and record store.
func New(index vecindex.Index, records store.RecordStore, opts ...Option) *Reconciler {
	r := &Reconciler{
		index:          index,
		records:        records,
		topK:           DefaultTopK,
		cleanupTimeout: DefaultCleanupTimeout,
		logger:         log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve runs a similarity query for the tenant and reconciles the
// hits against the record store. Search and store failures fail the
// whole call; orphan pruning failures are only logged.
func (r *Reconciler) Retrieve(ctx context.Context, tenantID string, query []float32) (*EvidenceSet, error) {
	if tenantID == "" {
		return nil, store.ErrTenantRequired
	}

	hits, err := r.index.Search(ctx, tenantID, query, r.topK)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return &EvidenceSet{Outcome: OutcomeNoMatches, Evidence: []Evidence{}, Citations: []Citation{}}, nil
	}

	// Distinct owners in rank order. The first hit per contract is the
	// one that carries its fragment into the evidence.
	ownerOrder := make([]string, 0, len(hits))
	bestHit := make(map[string]vecindex.Hit, len(hits))
	for _, h := range hits {
		if _, seen := bestHit[h.OwnerID]; seen {
			continue
		}
		bestHit[h.OwnerID] = h
		ownerOrder = append(ownerOrder, h.OwnerID)
	}

	recs, err := r.records.GetByIDs(ctx, tenantID, ownerOrder)
	if err != nil {
		return nil, err
	}

	set := &EvidenceSet{Evidence: []Evidence{}, Citations: []Citation{}}
	var orphans []string
	for _, ownerID := range ownerOrder {
		rec, ok := recs[ownerID]
		if !ok {
			orphans = append(orphans, ownerID)
			continue
		}
		h := bestHit[ownerID]
		set.Evidence = append(set.Evidence, Evidence{
			ContractID: ownerID,
			Title:      rec.Title,
			Fragment:   h.Text,
			Score:      h.Score,
			Record:     rec,
		})
		set.Citations = append(set.Citations, Citation{ContractID: ownerID, Title: rec.Title})
	}

	if len(orphans) > 0 {
		r.pruneAsync(ctx, orphans)
	}

	if len(set.Evidence) == 0 {
		set.Outcome = OutcomeAllOrphaned
	} else {
		set.Outcome = OutcomeEvidence
	}
	return set, nil
}

// pruneAsync deletes orphaned index entries without blocking the
// caller. The prune outlives the request context but not the cleanup
// timeout.
func (r *Reconciler) pruneAsync(ctx context.Context, ownerIDs []string) {
	base := context.WithoutCancel(ctx)
	for _, ownerID := range ownerIDs {
		r.cleanup.Add(1)
		go func(id string) {
			defer r.cleanup.Done()

			pruneCtx, cancel := context.WithTimeout(base, r.cleanupTimeout)
			defer cancel()

			if err := r.index.DeleteByOwner(pruneCtx, id); err != nil {
				r.logger.Warn("failed to prune orphaned index entries for contract %s: %v", id, err)
			}
		}(ownerID)
	}
}

// WaitCleanup blocks until all in-flight orphan prunes have finished.
func (r *Reconciler) WaitCleanup() {
	r.cleanup.Wait()
}
