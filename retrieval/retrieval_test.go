package retrieval

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clauseworks/clausegraph/contract"
	"github.com/clauseworks/clausegraph/log"
	"github.com/clauseworks/clausegraph/store"
	storemem "github.com/clauseworks/clausegraph/store/memory"
	"github.com/clauseworks/clausegraph/vecindex"
	vecmem "github.com/clauseworks/clausegraph/vecindex/memory"
)

// countingIndex counts DeleteByOwner calls so tests can assert that
// pruning happens exactly once per orphan.
type countingIndex struct {
	*vecmem.Index
	deletes atomic.Int64
}

func (c *countingIndex) DeleteByOwner(ctx context.Context, ownerID string) error {
	c.deletes.Add(1)
	return c.Index.DeleteByOwner(ctx, ownerID)
}

type failingIndex struct {
	vecindex.Index
	searchErr error
	deleteErr error
}

func (f *failingIndex) Search(ctx context.Context, tenantID string, query []float32, limit int) ([]vecindex.Hit, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.Index.Search(ctx, tenantID, query, limit)
}

func (f *failingIndex) DeleteByOwner(ctx context.Context, ownerID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.Index.DeleteByOwner(ctx, ownerID)
}

type failingRecordStore struct {
	store.RecordStore
	err error
}

func (f *failingRecordStore) GetByIDs(ctx context.Context, tenantID string, ids []string) (map[string]*contract.Record, error) {
	return nil, f.err
}

func storedRecord(id, tenant, title string) *contract.Record {
	return &contract.Record{
		ContractID: id,
		TenantID:   tenant,
		Title:      title,
		RiskScore:  60,
		RiskLevel:  contract.RiskMedium,
	}
}

func seed(t *testing.T, ix vecindex.Index, records *storemem.Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, records.Upsert(ctx, storedRecord("c-1", "tenant-a", "Vendor MSA")))
	require.NoError(t, records.Upsert(ctx, storedRecord("c-2", "tenant-a", "NDA")))

	require.NoError(t, ix.Upsert(ctx, []vecindex.Entry{
		{ID: "e-1", OwnerID: "c-1", TenantID: "tenant-a", Text: "indemnity clause", Embedding: []float32{1, 0, 0}},
		{ID: "e-2", OwnerID: "c-1", TenantID: "tenant-a", Text: "liability cap", Embedding: []float32{0.9, 0.1, 0}},
		{ID: "e-3", OwnerID: "c-2", TenantID: "tenant-a", Text: "confidentiality", Embedding: []float32{0.5, 0.5, 0}},
	}))
}

func TestReconciler_RetrieveDeduplicatesByContract(t *testing.T) {
	ix := vecmem.New()
	records := storemem.New()
	seed(t, ix, records)

	r := New(ix, records, WithLogger(&log.NoOpLogger{}))

	set, err := r.Retrieve(context.Background(), "tenant-a", []float32{1, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, OutcomeEvidence, set.Outcome)

	// c-1 owns the top two hits; only its best-ranked fragment survives.
	require.Len(t, set.Evidence, 2)
	assert.Equal(t, "c-1", set.Evidence[0].ContractID)
	assert.Equal(t, "indemnity clause", set.Evidence[0].Fragment)
	assert.Equal(t, "Vendor MSA", set.Evidence[0].Title)
	assert.Equal(t, "c-2", set.Evidence[1].ContractID)

	require.Len(t, set.Citations, 2)
	assert.Equal(t, Citation{ContractID: "c-1", Title: "Vendor MSA"}, set.Citations[0])
	assert.Equal(t, Citation{ContractID: "c-2", Title: "NDA"}, set.Citations[1])

	require.NotNil(t, set.Evidence[0].Record)
	assert.Equal(t, contract.RiskMedium, set.Evidence[0].Record.RiskLevel)
}

func TestReconciler_RetrievePrunesOrphansOnce(t *testing.T) {
	ix := &countingIndex{Index: vecmem.New()}
	records := storemem.New()
	seed(t, ix.Index, records)
	ctx := context.Background()

	// Delete a contract from the store but not the index.
	records.Delete(ctx, "c-1")

	r := New(ix, records, WithLogger(&log.NoOpLogger{}))

	set, err := r.Retrieve(ctx, "tenant-a", []float32{1, 0, 0})
	require.NoError(t, err)
	r.WaitCleanup()

	assert.Equal(t, OutcomeEvidence, set.Outcome)
	require.Len(t, set.Evidence, 1)
	assert.Equal(t, "c-2", set.Evidence[0].ContractID)
	assert.Equal(t, int64(1), ix.deletes.Load())

	// The orphan is gone from the index, so a second query triggers no
	// further deletes.
	_, err = r.Retrieve(ctx, "tenant-a", []float32{1, 0, 0})
	require.NoError(t, err)
	r.WaitCleanup()
	assert.Equal(t, int64(1), ix.deletes.Load())
}

func TestReconciler_RetrieveAllOrphaned(t *testing.T) {
	ix := vecmem.New()
	records := storemem.New()
	seed(t, ix, records)
	ctx := context.Background()

	records.Delete(ctx, "c-1")
	records.Delete(ctx, "c-2")

	r := New(ix, records, WithLogger(&log.NoOpLogger{}))

	set, err := r.Retrieve(ctx, "tenant-a", []float32{1, 0, 0})
	require.NoError(t, err)
	r.WaitCleanup()

	assert.Equal(t, OutcomeAllOrphaned, set.Outcome)
	assert.Empty(t, set.Evidence)
	assert.Empty(t, set.Citations)
}

func TestReconciler_RetrieveNoMatches(t *testing.T) {
	r := New(vecmem.New(), storemem.New(), WithLogger(&log.NoOpLogger{}))

	set, err := r.Retrieve(context.Background(), "tenant-a", []float32{1, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoMatches, set.Outcome)
	assert.Empty(t, set.Evidence)
}

func TestReconciler_RetrieveTenantIsolation(t *testing.T) {
	ix := vecmem.New()
	records := storemem.New()
	seed(t, ix, records)

	r := New(ix, records, WithLogger(&log.NoOpLogger{}))

	set, err := r.Retrieve(context.Background(), "tenant-b", []float32{1, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoMatches, set.Outcome)

	_, err = r.Retrieve(context.Background(), "", []float32{1, 0, 0})
	assert.ErrorIs(t, err, store.ErrTenantRequired)
}

func TestReconciler_SearchFailureFailsRetrieve(t *testing.T) {
	ix := &failingIndex{Index: vecmem.New(), searchErr: errors.New("index down")}
	r := New(ix, storemem.New(), WithLogger(&log.NoOpLogger{}))

	_, err := r.Retrieve(context.Background(), "tenant-a", []float32{1})
	assert.Error(t, err)
}

func TestReconciler_StoreFailureFailsRetrieve(t *testing.T) {
	ix := vecmem.New()
	records := storemem.New()
	seed(t, ix, records)

	broken := &failingRecordStore{RecordStore: records, err: errors.New("store down")}
	r := New(ix, broken, WithLogger(&log.NoOpLogger{}))

	_, err := r.Retrieve(context.Background(), "tenant-a", []float32{1, 0, 0})
	assert.Error(t, err)
}

func TestReconciler_PruneFailureIsOnlyLogged(t *testing.T) {
	inner := vecmem.New()
	records := storemem.New()
	seed(t, inner, records)
	ctx := context.Background()

	records.Delete(ctx, "c-1")
	ix := &failingIndex{Index: inner, deleteErr: errors.New("delete rejected")}

	r := New(ix, records, WithLogger(&log.NoOpLogger{}))

	set, err := r.Retrieve(ctx, "tenant-a", []float32{1, 0, 0})
	require.NoError(t, err)
	r.WaitCleanup()

	assert.Equal(t, OutcomeEvidence, set.Outcome)
	require.Len(t, set.Evidence, 1)
	assert.Equal(t, "c-2", set.Evidence[0].ContractID)
}
