// Package store defines the record store contracts. The record store is
// the system of record for contract existence: the vector index is a
// derived structure reconciled against it at retrieval time.
package store

import (
	"context"
	"errors"

	"github.com/clauseworks/clausegraph/contract"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrTenantRequired is returned when a tenant-scoped call is made
	// without a tenant id. This is a contract error, never recovered.
	ErrTenantRequired = errors.New("tenant id is required")
)

// RecordStore persists analysis records. Upsert inserts a new record or
// updates the analysis fields of an existing one; reads are always
// tenant-scoped.
type RecordStore interface {
	// Upsert writes the record, inserting when the contract id is new
	// and updating the analysis output fields when it already exists.
	Upsert(ctx context.Context, rec *contract.Record) error

	// Get returns one record scoped to the tenant.
	Get(ctx context.Context, tenantID, contractID string) (*contract.Record, error)

	// GetByIDs batch-fetches records by id, scoped to the tenant. Ids
	// with no record are simply absent from the result; the caller
	// treats them as nonexistent.
	GetByIDs(ctx context.Context, tenantID string, ids []string) (map[string]*contract.Record, error)
}

// GenealogyStore persists the derived obligation and clause rows mined
// from a contract. Rows carry their own lifecycle after insertion.
type GenealogyStore interface {
	// InsertObligations writes the obligation rows for a contract,
	// stamping each with the pending status.
	InsertObligations(ctx context.Context, tenantID, contractID string, obligations []contract.Obligation) error

	// InsertClauses writes the classified clause rows for a contract.
	InsertClauses(ctx context.Context, tenantID, contractID string, clauses []contract.ClassifiedClause) error
}
