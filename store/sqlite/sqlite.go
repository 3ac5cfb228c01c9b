// Package sqlite implements the record store on SQLite, intended for
// local and single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/clauseworks/clausegraph/contract"
	"github.com/clauseworks/clausegraph/store"
)

// Store implements store.RecordStore and store.GenealogyStore using SQLite.
type Store struct {
	db *sql.DB
}

var (
	_ store.RecordStore    = (*Store)(nil)
	_ store.GenealogyStore = (*Store)(nil)
)

// Options configuration for SQLite connection.
type Options struct {
	Path string // ":memory:" for an in-process database
}

// New creates a new SQLite record store and initializes the schema.
func New(opts Options) (*Store, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
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
			extracted_clauses TEXT,
			compliance_issues TEXT,
			risk_score REAL NOT NULL DEFAULT 0,
			risk_flags TEXT,
			risk_level TEXT,
			counter_proposal TEXT,
			draft_revisions TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_contracts_tenant_id ON contracts (tenant_id);

		CREATE TABLE IF NOT EXISTS contract_obligations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tenant_id TEXT NOT NULL,
			contract_id TEXT NOT NULL,
			description TEXT NOT NULL,
			due_date TEXT,
			status TEXT NOT NULL DEFAULT 'pending'
		);
		CREATE INDEX IF NOT EXISTS idx_obligations_contract_id ON contract_obligations (contract_id);

		CREATE TABLE IF NOT EXISTS contract_clauses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tenant_id TEXT NOT NULL,
			contract_id TEXT NOT NULL,
			clause_type TEXT NOT NULL,
			original_text TEXT NOT NULL,
			ai_summary TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_clauses_contract_id ON contract_clauses (contract_id);
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert writes the record. An existing contract keeps its identity and
// ownership columns; only the analysis output fields are replaced.
func (s *Store) Upsert(ctx context.Context, rec *contract.Record) error {
	if rec.TenantID == "" {
		return store.ErrTenantRequired
	}

	clausesJSON, issuesJSON, flagsJSON, revisionsJSON, err := marshalAnalysis(rec)
	if err != nil {
		return err
	}

	var exists bool
	err = s.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM contracts WHERE id = ?)", rec.ContractID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check existence: %w", err)
	}

	if exists {
		_, err = s.db.ExecContext(ctx, `
			UPDATE contracts SET
				contract_value = ?,
				end_date = ?,
				extracted_clauses = ?,
				compliance_issues = ?,
				risk_score = ?,
				risk_flags = ?,
				risk_level = ?,
				counter_proposal = ?,
				draft_revisions = ?
			WHERE id = ?`,
			rec.ContractValue, rec.EndDate, clausesJSON, issuesJSON,
			rec.RiskScore, flagsJSON, string(rec.RiskLevel),
			rec.CounterProposal, revisionsJSON, rec.ContractID)
		if err != nil {
			return fmt.Errorf("failed to update record: %w", err)
		}
		return nil
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO contracts (
			id, tenant_id, title, raw_document,
			contract_value, end_date, extracted_clauses, compliance_issues,
			risk_score, risk_flags, risk_level, counter_proposal, draft_revisions
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ContractID, rec.TenantID, rec.Title, rec.RawDocument,
		rec.ContractValue, rec.EndDate, clausesJSON, issuesJSON,
		rec.RiskScore, flagsJSON, string(rec.RiskLevel),
		rec.CounterProposal, revisionsJSON)
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

	row := s.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM contracts WHERE tenant_id = ? AND id = ?",
		tenantID, contractID)

	rec, err := scanRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
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

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, 0, len(ids)+1)
	args = append(args, tenantID)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM contracts WHERE tenant_id = ? AND id IN ("+placeholders+")",
		args...)
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

// ListByTenant returns every record owned by the tenant. Used to
// rebuild an ephemeral vector index from the system of record.
func (s *Store) ListByTenant(ctx context.Context, tenantID string) ([]*contract.Record, error) {
	if tenantID == "" {
		return nil, store.ErrTenantRequired
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM contracts WHERE tenant_id = ?", tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var out []*contract.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record row: %w", err)
		}
		out = append(out, rec)
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
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO contract_obligations (tenant_id, contract_id, description, due_date, status)
			VALUES (?, ?, ?, ?, ?)`,
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
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO contract_clauses (tenant_id, contract_id, clause_type, original_text, ai_summary)
			VALUES (?, ?, ?, ?, ?)`,
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
