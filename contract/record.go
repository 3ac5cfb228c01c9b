package contract

import (
	"errors"
	"fmt"
)

// MaxRawDocumentChars bounds the raw text kept on a Record. The cap is a
// cost/safety bound for downstream model calls, not a correctness
// requirement.
const MaxRawDocumentChars = 15000

// ErrEmptyDocument is returned when a Record is created from empty text.
var ErrEmptyDocument = errors.New("document text is empty")

// Record is the accumulating per-contract analysis result. It is created
// with identity and raw input only; each pipeline stage contributes its
// declared fields via an Update. After the pipeline completes the Record
// is treated as immutable.
type Record struct {
	ContractID  string `json:"contract_id"`
	TenantID    string `json:"tenant_id"`
	Title       string `json:"title,omitempty"`
	RawDocument string `json:"raw_document"`

	ContractValue    string            `json:"contract_value,omitempty"`
	EndDate          string            `json:"end_date,omitempty"`
	ExtractedClauses map[string]string `json:"extracted_clauses,omitempty"`

	ComplianceIssues []string `json:"compliance_issues,omitempty"`

	RiskScore float64   `json:"risk_score"`
	RiskFlags []string  `json:"risk_flags,omitempty"`
	RiskLevel RiskLevel `json:"risk_level,omitempty"`

	CounterProposal string          `json:"counter_proposal,omitempty"`
	DraftRevisions  []DraftRevision `json:"draft_revisions,omitempty"`

	ExtractedObligations []Obligation       `json:"extracted_obligations,omitempty"`
	ClassifiedClauses    []ClassifiedClause `json:"classified_clauses,omitempty"`
}

// DraftRevision pairs a flagged issue with a neutral rewrite proposed for
// it.
type DraftRevision struct {
	OriginalIssue  string `json:"original_issue"`
	NeutralRewrite string `json:"neutral_rewrite"`
}

// ObligationStatusPending is the lifecycle status stamped on obligation
// rows at creation. The status is mutated externally afterwards.
const ObligationStatusPending = "pending"

// Obligation is a contractual duty mined from the raw document text.
type Obligation struct {
	Description string `json:"description"`
	DueDate     string `json:"due_date,omitempty"`
	Status      string `json:"status,omitempty"`
}

// ClassifiedClause is one clause assigned to the fixed taxonomy.
type ClassifiedClause struct {
	Type         ClauseType `json:"clause_type"`
	OriginalText string     `json:"original_text"`
	AISummary    string     `json:"ai_summary,omitempty"`
}

// NewRecord creates a Record holding identity and bounded raw input only.
// The raw text is truncated deterministically to MaxRawDocumentChars.
// Empty input is rejected before any stage can run.
func NewRecord(contractID, tenantID, title, rawText string) (Record, error) {
	if rawText == "" {
		return Record{}, ErrEmptyDocument
	}
	return Record{
		ContractID:  contractID,
		TenantID:    tenantID,
		Title:       title,
		RawDocument: Truncate(rawText, MaxRawDocumentChars),
	}, nil
}

// Truncate returns at most max bytes of s. It is the deterministic prefix
// bound applied before any external call.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max]
}

// Field names used by stage Updates. A field is only ever written by
// exactly one stage.
const (
	FieldContractValue        = "contract_value"
	FieldEndDate              = "end_date"
	FieldExtractedClauses     = "extracted_clauses"
	FieldComplianceIssues     = "compliance_issues"
	FieldRiskScore            = "risk_score"
	FieldRiskFlags            = "risk_flags"
	FieldCounterProposal      = "counter_proposal"
	FieldDraftRevisions       = "draft_revisions"
	FieldExtractedObligations = "extracted_obligations"
	FieldClassifiedClauses    = "classified_clauses"
)

// Update is a partial update produced by a single stage, keyed by field
// name. Values must match the field's declared type.
type Update map[string]any

// Apply folds an Update into a copy of the Record and returns the new
// value. The receiver is never mutated; stages only ever see read-only
// snapshots. Unknown keys and mistyped values are programming errors.
func (r Record) Apply(u Update) (Record, error) {
	out := r.clone()
	for key, val := range u {
		if err := out.set(key, val); err != nil {
			return Record{}, err
		}
	}
	return out, nil
}

func (r *Record) set(key string, val any) error {
	switch key {
	case FieldContractValue:
		return assign(key, val, &r.ContractValue)
	case FieldEndDate:
		return assign(key, val, &r.EndDate)
	case FieldExtractedClauses:
		return assign(key, val, &r.ExtractedClauses)
	case FieldComplianceIssues:
		return assign(key, val, &r.ComplianceIssues)
	case FieldRiskScore:
		return assign(key, val, &r.RiskScore)
	case FieldRiskFlags:
		return assign(key, val, &r.RiskFlags)
	case FieldCounterProposal:
		return assign(key, val, &r.CounterProposal)
	case FieldDraftRevisions:
		return assign(key, val, &r.DraftRevisions)
	case FieldExtractedObligations:
		return assign(key, val, &r.ExtractedObligations)
	case FieldClassifiedClauses:
		return assign(key, val, &r.ClassifiedClauses)
	default:
		return fmt.Errorf("unknown record field %q", key)
	}
}

func assign[T any](key string, val any, dst *T) error {
	typed, ok := val.(T)
	if !ok {
		return fmt.Errorf("field %q: unexpected value type %T", key, val)
	}
	*dst = typed
	return nil
}

// clone deep-copies the mutable collections so that an applied Update can
// never alias state visible to an earlier snapshot.
func (r Record) clone() Record {
	out := r
	if r.ExtractedClauses != nil {
		out.ExtractedClauses = make(map[string]string, len(r.ExtractedClauses))
		for k, v := range r.ExtractedClauses {
			out.ExtractedClauses[k] = v
		}
	}
	out.ComplianceIssues = append([]string(nil), r.ComplianceIssues...)
	out.RiskFlags = append([]string(nil), r.RiskFlags...)
	out.DraftRevisions = append([]DraftRevision(nil), r.DraftRevisions...)
	out.ExtractedObligations = append([]Obligation(nil), r.ExtractedObligations...)
	out.ClassifiedClauses = append([]ClassifiedClause(nil), r.ClassifiedClauses...)
	return out
}
