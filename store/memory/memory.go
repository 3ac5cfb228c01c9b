// Package memory provides an in-memory record store, used by tests and
// as the default for single-process setups.
package memory

import (
	"context"
	"sync"

	"github.com/clauseworks/clausegraph/contract"
	"github.com/clauseworks/clausegraph/store"
)

// Store is an in-memory RecordStore and GenealogyStore. Safe for
// concurrent use.
type Store struct {
	mu          sync.RWMutex
	records     map[string]contract.Record // keyed by contract id
	obligations map[string][]contract.Obligation
	clauses     map[string][]contract.ClassifiedClause
}

var (
	_ store.RecordStore    = (*Store)(nil)
	_ store.GenealogyStore = (*Store)(nil)
)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		records:     make(map[string]contract.Record),
		obligations: make(map[string][]contract.Obligation),
		clauses:     make(map[string][]contract.ClassifiedClause),
	}
}

// Upsert writes the record, replacing analysis fields when it exists.
func (s *Store) Upsert(ctx context.Context, rec *contract.Record) error {
	if rec.TenantID == "" {
		return store.ErrTenantRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[rec.ContractID]; ok {
		// Update mode replaces analysis output only; identity,
		// ownership and the original raw text are untouched.
		updated := *rec
		updated.TenantID = existing.TenantID
		updated.Title = existing.Title
		updated.RawDocument = existing.RawDocument
		s.records[rec.ContractID] = updated
		return nil
	}
	s.records[rec.ContractID] = *rec
	return nil
}

// Get returns one record scoped to the tenant.
func (s *Store) Get(ctx context.Context, tenantID, contractID string) (*contract.Record, error) {
	if tenantID == "" {
		return nil, store.ErrTenantRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[contractID]
	if !ok || rec.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	out := rec
	return &out, nil
}

// GetByIDs batch-fetches records by id, scoped to the tenant.
func (s *Store) GetByIDs(ctx context.Context, tenantID string, ids []string) (map[string]*contract.Record, error) {
	if tenantID == "" {
		return nil, store.ErrTenantRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*contract.Record, len(ids))
	for _, id := range ids {
		rec, ok := s.records[id]
		if !ok || rec.TenantID != tenantID {
			continue
		}
		cp := rec
		out[id] = &cp
	}
	return out, nil
}

// Delete removes a record. It exists so tests and admin tooling can
// create orphaned index entries deliberately.
func (s *Store) Delete(ctx context.Context, contractID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, contractID)
}

// InsertObligations stores obligation rows with the pending status.
func (s *Store) InsertObligations(ctx context.Context, tenantID, contractID string, obligations []contract.Obligation) error {
	if tenantID == "" {
		return store.ErrTenantRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ob := range obligations {
		if ob.Description == "" {
			continue
		}
		if ob.Status == "" {
			ob.Status = contract.ObligationStatusPending
		}
		s.obligations[contractID] = append(s.obligations[contractID], ob)
	}
	return nil
}

// InsertClauses stores classified clause rows.
func (s *Store) InsertClauses(ctx context.Context, tenantID, contractID string, clauses []contract.ClassifiedClause) error {
	if tenantID == "" {
		return store.ErrTenantRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cl := range clauses {
		if cl.OriginalText == "" {
			continue
		}
		s.clauses[contractID] = append(s.clauses[contractID], cl)
	}
	return nil
}

// Obligations returns the stored obligation rows for a contract.
func (s *Store) Obligations(contractID string) []contract.Obligation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]contract.Obligation(nil), s.obligations[contractID]...)
}

// Clauses returns the stored clause rows for a contract.
func (s *Store) Clauses(contractID string) []contract.ClassifiedClause {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]contract.ClassifiedClause(nil), s.clauses[contractID]...)
}
