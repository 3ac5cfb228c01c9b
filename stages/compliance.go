package stages

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/clauseworks/clausegraph/contract"
	"github.com/clauseworks/clausegraph/llm"
)

const complianceSystemPrompt = "You are a legal compliance JSON generator."

const compliancePromptFormat = `You are a Senior Legal Compliance Auditor.
Review the following extracted clauses and identify any that are illegal, heavily biased, commercially unreasonable, or violate standard B2B compliance.

Return pure JSON with a single key 'compliance_issues' containing a list of strings detailing the issues. If none, return an empty list.

CLAUSES:
%s`

// ComplianceStage audits the clauses extracted by the ingestion stage
// for compliance violations.
type ComplianceStage struct {
	ex llm.Extractor
}

// NewComplianceStage creates the compliance stage.
func NewComplianceStage(ex llm.Extractor) *ComplianceStage {
	return &ComplianceStage{ex: ex}
}

// Name returns the stage name.
func (s *ComplianceStage) Name() string { return "compliance" }

// Outputs declares the fields this stage writes.
func (s *ComplianceStage) Outputs() []string {
	return []string{contract.FieldComplianceIssues}
}

// Run audits the extracted clauses.
func (s *ComplianceStage) Run(ctx context.Context, rec contract.Record) (contract.Update, error) {
	clausesJSON, err := json.Marshal(rec.ExtractedClauses)
	if err != nil {
		return nil, fmt.Errorf("encoding clauses: %w", err)
	}

	var out struct {
		ComplianceIssues []string `json:"compliance_issues"`
	}
	prompt := fmt.Sprintf(compliancePromptFormat, clausesJSON)
	if err := extract(ctx, s.ex, complianceSystemPrompt, prompt, &out); err != nil {
		return nil, err
	}
	if out.ComplianceIssues == nil {
		out.ComplianceIssues = []string{}
	}
	return contract.Update{contract.FieldComplianceIssues: out.ComplianceIssues}, nil
}

// Fallback records the documented audit-failure issue.
func (s *ComplianceStage) Fallback() contract.Update {
	return contract.Update{
		contract.FieldComplianceIssues: []string{SentinelComplianceFailure},
	}
}
