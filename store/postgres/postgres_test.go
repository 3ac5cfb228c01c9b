package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"

	"github.com/clauseworks/clausegraph/contract"
	"github.com/clauseworks/clausegraph/store"
)

func testRecord() *contract.Record {
	return &contract.Record{
		ContractID:       "c-1",
		TenantID:         "tenant-a",
		Title:            "MSA - Acme",
		RawDocument:      "This Agreement is made between the parties.",
		ContractValue:    "$50,000",
		EndDate:          "2026-12-31",
		ExtractedClauses: map[string]string{"indemnity": "Indemnification by Vendor."},
		ComplianceIssues: []string{"Missing data-processing addendum."},
		RiskScore:        82,
		RiskFlags:        []string{"Uncapped liability."},
		RiskLevel:        contract.RiskHigh,
		CounterProposal:  "Cap liability at 12 months of fees.",
		DraftRevisions: []contract.DraftRevision{
			{OriginalIssue: "Uncapped liability.", NeutralRewrite: "Liability is capped."},
		},
	}
}

func TestStore_Upsert_Insert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock)
	rec := testRecord()

	clausesJSON, issuesJSON, flagsJSON, revisionsJSON, err := marshalAnalysis(rec)
	assert.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM contracts WHERE id = $1)")).
		WithArgs(rec.ContractID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO contracts")).
		WithArgs(
			rec.ContractID,
			rec.TenantID,
			rec.Title,
			rec.RawDocument,
			rec.ContractValue,
			rec.EndDate,
			clausesJSON,
			issuesJSON,
			rec.RiskScore,
			flagsJSON,
			string(rec.RiskLevel),
			rec.CounterProposal,
			revisionsJSON,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = s.Upsert(context.Background(), rec)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Upsert_UpdateExisting(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock)
	rec := testRecord()

	clausesJSON, issuesJSON, flagsJSON, revisionsJSON, err := marshalAnalysis(rec)
	assert.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM contracts WHERE id = $1)")).
		WithArgs(rec.ContractID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	// Re-analysis must not touch identity or ownership columns.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE contracts SET")).
		WithArgs(
			rec.ContractID,
			rec.ContractValue,
			rec.EndDate,
			clausesJSON,
			issuesJSON,
			rec.RiskScore,
			flagsJSON,
			string(rec.RiskLevel),
			rec.CounterProposal,
			revisionsJSON,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = s.Upsert(context.Background(), rec)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Upsert_TenantRequired(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock)
	rec := testRecord()
	rec.TenantID = ""

	err = s.Upsert(context.Background(), rec)
	assert.ErrorIs(t, err, store.ErrTenantRequired)
}

func TestStore_Get_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock)

	mock.ExpectQuery("SELECT .+ FROM contracts WHERE tenant_id").
		WithArgs("tenant-a", "missing").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, err = s.Get(context.Background(), "tenant-a", "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_GetByIDs(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock)
	rec := testRecord()

	clausesJSON, _ := json.Marshal(rec.ExtractedClauses)
	issuesJSON, _ := json.Marshal(rec.ComplianceIssues)
	flagsJSON, _ := json.Marshal(rec.RiskFlags)
	revisionsJSON, _ := json.Marshal(rec.DraftRevisions)

	rows := pgxmock.NewRows([]string{
		"id", "tenant_id", "title", "raw_document", "contract_value", "end_date",
		"extracted_clauses", "compliance_issues", "risk_score", "risk_flags",
		"risk_level", "counter_proposal", "draft_revisions",
	}).AddRow(
		rec.ContractID, rec.TenantID, rec.Title, rec.RawDocument,
		rec.ContractValue, rec.EndDate, clausesJSON, issuesJSON,
		rec.RiskScore, flagsJSON, string(rec.RiskLevel),
		rec.CounterProposal, revisionsJSON,
	)

	ids := []string{"c-1", "c-gone"}
	mock.ExpectQuery("SELECT .+ FROM contracts WHERE tenant_id = \\$1 AND id = ANY\\(\\$2\\)").
		WithArgs(rec.TenantID, ids).
		WillReturnRows(rows)

	got, err := s.GetByIDs(context.Background(), rec.TenantID, ids)
	assert.NoError(t, err)
	assert.Len(t, got, 1)
	loaded, ok := got["c-1"]
	assert.True(t, ok)
	assert.Equal(t, rec.Title, loaded.Title)
	assert.Equal(t, contract.RiskHigh, loaded.RiskLevel)
	assert.Equal(t, rec.DraftRevisions, loaded.DraftRevisions)

	// An id with no row is simply absent from the result.
	_, ok = got["c-gone"]
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetByIDs_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock)
	got, err := s.GetByIDs(context.Background(), "tenant-a", nil)
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_InsertObligations(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock)

	obligations := []contract.Obligation{
		{Description: "Deliver quarterly report", DueDate: "2026-03-31"},
		{Description: ""}, // skipped
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO contract_obligations")).
		WithArgs("tenant-a", "c-1", "Deliver quarterly report", "2026-03-31", contract.ObligationStatusPending).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = s.InsertObligations(context.Background(), "tenant-a", "c-1", obligations)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_InsertClauses(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock)

	clauses := []contract.ClassifiedClause{
		{Type: contract.ClauseIndemnity, OriginalText: "Vendor shall indemnify.", AISummary: "Vendor indemnifies customer."},
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO contract_clauses")).
		WithArgs("tenant-a", "c-1", string(contract.ClauseIndemnity), "Vendor shall indemnify.", "Vendor indemnifies customer.").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = s.InsertClauses(context.Background(), "tenant-a", "c-1", clauses)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Upsert_ExistenceCheckError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("c-1").
		WillReturnError(errors.New("connection refused"))

	err = s.Upsert(context.Background(), testRecord())
	assert.Error(t, err)
}
