// Package postgres implements the record store on PostgreSQL using pgx.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clauseworks/clausegraph/contract"
	"github.com/clauseworks/clausegraph/store"
)

// DBPool defines the interface for the database connection pool.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements store.RecordStore and store.GenealogyStore on
// PostgreSQL.
type Store struct {
	pool DBPool
}

var (
	_ store.RecordStore    = (*Store)(nil)
	_ store.GenealogyStore = (*Store)(nil)
)

// Options configuration for the Postgres connection.
type Options struct {
	ConnString string
}

// New creates a new Postgres record store.
func New(ctx context.Context, opts Options) (*Store, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool creates a store with an existing pool. Useful for testing
// with mocks.
func NewWithPool(pool DBPool) *Store {
	return &Store{pool: pool}
}

// InitSchema creates the necessary tables if they don't exist.
func (s *Store) InitSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS contracts (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			title TEXT,
			raw_document TEXT,
			contract_value TEXT,
			end_date TEXT,
			extracted_clauses JSONB,
			compliance_issues JSONB,
			risk_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			risk_flags JSONB,
			risk_level TEXT,
			counter_proposal TEXT,
			draft_revisions JSONB
		);
		CREATE INDEX IF NOT EXISTS idx_contracts_tenant_id ON contracts (tenant_id);

		CREATE TABLE IF NOT EXISTS contract_obligations (
			id BIGSERIAL PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			contract_id TEXT NOT NULL,
			description TEXT NOT NULL,
			due_date TEXT,
			status TEXT NOT NULL DEFAULT 'pending'
		);
		CREATE INDEX IF NOT EXISTS idx_obligations_contract_id ON contract_obligations (contract_id);

		CREATE TABLE IF NOT EXISTS contract_clauses (
			id BIGSERIAL PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			contract_id TEXT NOT NULL,
			clause_type TEXT NOT NULL,
			original_text TEXT NOT NULL,
			ai_summary TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_clauses_contract_id ON contract_clauses (contract_id);
	`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Upsert writes the record. When the contract id already exists only the
// analysis output fields are updated; identity and ownership columns are
// left untouched.
func (s *Store) Upsert(ctx context.Context, rec *contract.Record) error {
	if rec.TenantID == "" {
		return store.ErrTenantRequired
	}

	clausesJSON, issuesJSON, flagsJSON, revisionsJSON, err := marshalAnalysis(rec)
	if err != nil {
		return err
	}

	var exists bool
	err = s.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM contracts WHERE id = $1)", rec.ContractID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check existence: %w", err)
	}

	if exists {
		_, err = s.pool.Exec(ctx, `
			UPDATE contracts SET
				contract_value = $2,
				end_date = $3,
				extracted_clauses = $4,
				compliance_issues = $5,
				risk_score = $6,
				risk_flags = $7,
				risk_level = $8,
				counter_proposal = $9,
				draft_revisions = $10
			WHERE id = $1`,
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
		)
		if err != nil {
			return fmt.Errorf("failed to update record: %w", err)
		}
		return nil
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO contracts (
			id, tenant_id, title, raw_document,
			contract_value, end_date, extracted_clauses, compliance_issues,
			risk_score, risk_flags, risk_level, counter_proposal, draft_revisions
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
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
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

const recordColumns = `id, tenant_id, title, raw_document, contract_value, end_date,
	extracted_clauses, compliance_issues, risk_score, risk_flags, risk_level,
	counter_proposal, draft_revisions`

// Get returns one record scoped to the tenant.
func (s *Store) Get(ctx context.Context, tenantID, contractID string) (*contract.Record, error) {
	if tenantID == "" {
		return nil, store.ErrTenantRequired
	}

	row := s.pool.QueryRow(ctx,
		"SELECT "+recordColumns+" FROM contracts WHERE tenant_id = $1 AND id = $2",
		tenantID, contractID)

	rec, err := scanRecord(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load record: %w", err)
	}
	return rec, nil
}

// GetByIDs batch-fetches records by id, scoped to the tenant.
func (s *Store) GetByIDs(ctx context.Context, tenantID string, ids []string) (map[string]*contract.Record, error) {
	if tenantID == "" {
		return nil, store.ErrTenantRequired
	}
	if len(ids) == 0 {
		return map[string]*contract.Record{}, nil
	}

	rows, err := s.pool.Query(ctx,
		"SELECT "+recordColumns+" FROM contracts WHERE tenant_id = $1 AND id = ANY($2)",
		tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*contract.Record)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record row: %w", err)
		}
		out[rec.ContractID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating record rows: %w", err)
	}
	return out, nil
}

// InsertObligations writes obligation rows with the pending status.
func (s *Store) InsertObligations(ctx context.Context, tenantID, contractID string, obligations []contract.Obligation) error {
	if tenantID == "" {
		return store.ErrTenantRequired
	}
	for _, ob := range obligations {
		if ob.Description == "" {
			continue
		}
		status := ob.Status
		if status == "" {
			status = contract.ObligationStatusPending
		}
		_, err := s.pool.Exec(ctx, `
			INSERT INTO contract_obligations (tenant_id, contract_id, description, due_date, status)
			VALUES ($1, $2, $3, $4, $5)`,
			tenantID, contractID, ob.Description, ob.DueDate, status)
		if err != nil {
			return fmt.Errorf("failed to insert obligation: %w", err)
		}
	}
	return nil
}

// InsertClauses writes classified clause rows.
func (s *Store) InsertClauses(ctx context.Context, tenantID, contractID string, clauses []contract.ClassifiedClause) error {
	if tenantID == "" {
		return store.ErrTenantRequired
	}
	for _, cl := range clauses {
		if cl.OriginalText == "" {
			continue
		}
		_, err := s.pool.Exec(ctx, `
			INSERT INTO contract_clauses (tenant_id, contract_id, clause_type, original_text, ai_summary)
			VALUES ($1, $2, $3, $4, $5)`,
			tenantID, contractID, string(cl.Type), cl.OriginalText, cl.AISummary)
		if err != nil {
			return fmt.Errorf("failed to insert clause: %w", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*contract.Record, error) {
	var rec contract.Record
	var riskLevel string
	var clausesJSON, issuesJSON, flagsJSON, revisionsJSON []byte

	err := row.Scan(
		&rec.ContractID,
		&rec.TenantID,
		&rec.Title,
		&rec.RawDocument,
		&rec.ContractValue,
		&rec.EndDate,
		&clausesJSON,
		&issuesJSON,
		&rec.RiskScore,
		&flagsJSON,
		&riskLevel,
		&rec.CounterProposal,
		&revisionsJSON,
	)
	if err != nil {
		return nil, err
	}

	rec.RiskLevel = contract.RiskLevel(riskLevel)
	if err := unmarshalInto(clausesJSON, &rec.ExtractedClauses); err != nil {
		return nil, err
	}
	if err := unmarshalInto(issuesJSON, &rec.ComplianceIssues); err != nil {
		return nil, err
	}
	if err := unmarshalInto(flagsJSON, &rec.RiskFlags); err != nil {
		return nil, err
	}
	if err := unmarshalInto(revisionsJSON, &rec.DraftRevisions); err != nil {
		return nil, err
	}
	return &rec, nil
}

func marshalAnalysis(rec *contract.Record) (clauses, issues, flags, revisions []byte, err error) {
	if clauses, err = json.Marshal(rec.ExtractedClauses); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal clauses: %w", err)
	}
	if issues, err = json.Marshal(rec.ComplianceIssues); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal issues: %w", err)
	}
	if flags, err = json.Marshal(rec.RiskFlags); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal flags: %w", err)
	}
	if revisions, err = json.Marshal(rec.DraftRevisions); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal revisions: %w", err)
	}
	return clauses, issues, flags, revisions, nil
}

func unmarshalInto(data []byte, dst any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to unmarshal column: %w", err)
	}
	return nil
}
