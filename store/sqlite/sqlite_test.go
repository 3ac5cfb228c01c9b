package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clauseworks/clausegraph/contract"
	"github.com/clauseworks/clausegraph/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Options{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func analyzedRecord(id, tenant string) *contract.Record {
	return &contract.Record{
		ContractID:       id,
		TenantID:         tenant,
		Title:            "SaaS Subscription",
		RawDocument:      "Customer subscribes to the service.",
		ContractValue:    "$12,000",
		EndDate:          "2027-01-31",
		ExtractedClauses: map[string]string{"renewal": "Auto-renewal with 30 days notice."},
		ComplianceIssues: []string{},
		RiskScore:        35,
		RiskFlags:        []string{},
		RiskLevel:        contract.RiskLow,
		CounterProposal:  "No changes recommended.",
		DraftRevisions:   []contract.DraftRevision{},
	}
}

func TestStore_UpsertAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := analyzedRecord("c-1", "tenant-a")
	require.NoError(t, s.Upsert(ctx, rec))

	loaded, err := s.Get(ctx, "tenant-a", "c-1")
	require.NoError(t, err)
	assert.Equal(t, rec.Title, loaded.Title)
	assert.Equal(t, rec.ExtractedClauses, loaded.ExtractedClauses)
	assert.Equal(t, contract.RiskLow, loaded.RiskLevel)
	assert.Equal(t, rec.RiskScore, loaded.RiskScore)
}

func TestStore_UpsertPreservesIdentityOnUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := analyzedRecord("c-1", "tenant-a")
	require.NoError(t, s.Upsert(ctx, rec))

	// Re-analysis of the same contract carries fresh analysis but must
	// not rebind the record to another tenant or retitle it.
	again := analyzedRecord("c-1", "tenant-b")
	again.Title = "Renamed"
	again.RiskScore = 90
	again.RiskLevel = contract.RiskHigh
	require.NoError(t, s.Upsert(ctx, again))

	loaded, err := s.Get(ctx, "tenant-a", "c-1")
	require.NoError(t, err)
	assert.Equal(t, "SaaS Subscription", loaded.Title)
	assert.Equal(t, "tenant-a", loaded.TenantID)
	assert.Equal(t, float64(90), loaded.RiskScore)
	assert.Equal(t, contract.RiskHigh, loaded.RiskLevel)
}

func TestStore_GetTenantIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, analyzedRecord("c-1", "tenant-a")))

	_, err := s.Get(ctx, "tenant-b", "c-1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Get(ctx, "", "c-1")
	assert.ErrorIs(t, err, store.ErrTenantRequired)
}

func TestStore_GetByIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, analyzedRecord("c-1", "tenant-a")))
	require.NoError(t, s.Upsert(ctx, analyzedRecord("c-2", "tenant-a")))
	require.NoError(t, s.Upsert(ctx, analyzedRecord("c-3", "tenant-b")))

	got, err := s.GetByIDs(ctx, "tenant-a", []string{"c-1", "c-2", "c-3", "c-missing"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Contains(t, got, "c-1")
	assert.Contains(t, got, "c-2")
	assert.NotContains(t, got, "c-3")
	assert.NotContains(t, got, "c-missing")

	empty, err := s.GetByIDs(ctx, "tenant-a", nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStore_ListByTenant(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, analyzedRecord("c-1", "tenant-a")))
	require.NoError(t, s.Upsert(ctx, analyzedRecord("c-2", "tenant-a")))
	require.NoError(t, s.Upsert(ctx, analyzedRecord("c-3", "tenant-b")))

	recs, err := s.ListByTenant(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	_, err = s.ListByTenant(ctx, "")
	assert.ErrorIs(t, err, store.ErrTenantRequired)
}

func TestStore_InsertObligationsAndClauses(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, analyzedRecord("c-1", "tenant-a")))

	err := s.InsertObligations(ctx, "tenant-a", "c-1", []contract.Obligation{
		{Description: "Provide uptime report", DueDate: "2026-06-30"},
		{Description: ""},
	})
	require.NoError(t, err)

	err = s.InsertClauses(ctx, "tenant-a", "c-1", []contract.ClassifiedClause{
		{Type: contract.ClauseTermination, OriginalText: "Either party may terminate.", AISummary: "Mutual termination right."},
	})
	require.NoError(t, err)

	var obligationCount int
	require.NoError(t, s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM contract_obligations WHERE contract_id = ?", "c-1").Scan(&obligationCount))
	assert.Equal(t, 1, obligationCount)

	var status string
	require.NoError(t, s.db.QueryRowContext(ctx,
		"SELECT status FROM contract_obligations WHERE contract_id = ?", "c-1").Scan(&status))
	assert.Equal(t, contract.ObligationStatusPending, status)

	var clauseType string
	require.NoError(t, s.db.QueryRowContext(ctx,
		"SELECT clause_type FROM contract_clauses WHERE contract_id = ?", "c-1").Scan(&clauseType))
	assert.Equal(t, string(contract.ClauseTermination), clauseType)
}
