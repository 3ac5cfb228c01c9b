package stages

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/clauseworks/clausegraph/contract"
	"github.com/clauseworks/clausegraph/llm"
)

const riskSystemPrompt = "You are a risk assessment JSON generator."

const riskPromptFormat = `You are a Chief Risk Officer AI.
Evaluate the following compliance issues and the contract value to determine the risk.
Calculate a 'risk_score' as a float from 0.0 (perfectly safe) to 100.0 (extreme risk).
Generate a list of 'risk_flags' summarizing the critical dangers.

Return pure JSON with keys: 'risk_score' (float) and 'risk_flags' (list of strings).

CONTRACT VALUE: %s
COMPLIANCE ISSUES:
%s`

// RiskStage scores the contract from the compliance findings and the
// extracted value. Its failure sentinel is the maximum-risk score: an
// unscorable contract is treated as a dangerous one.
type RiskStage struct {
	ex llm.Extractor
}

// NewRiskStage creates the risk stage.
func NewRiskStage(ex llm.Extractor) *RiskStage {
	return &RiskStage{ex: ex}
}

// Name returns the stage name.
func (s *RiskStage) Name() string { return "risk" }

// Outputs declares the fields this stage writes.
func (s *RiskStage) Outputs() []string {
	return []string{contract.FieldRiskScore, contract.FieldRiskFlags}
}

// Run computes the risk score and flags.
func (s *RiskStage) Run(ctx context.Context, rec contract.Record) (contract.Update, error) {
	issuesJSON, err := json.Marshal(rec.ComplianceIssues)
	if err != nil {
		return nil, fmt.Errorf("encoding issues: %w", err)
	}

	var out struct {
		RiskScore float64  `json:"risk_score"`
		RiskFlags []string `json:"risk_flags"`
	}
	prompt := fmt.Sprintf(riskPromptFormat, rec.ContractValue, issuesJSON)
	if err := extract(ctx, s.ex, riskSystemPrompt, prompt, &out); err != nil {
		return nil, err
	}
	if out.RiskFlags == nil {
		out.RiskFlags = []string{}
	}
	return contract.Update{
		contract.FieldRiskScore: contract.ClampScore(out.RiskScore),
		contract.FieldRiskFlags: out.RiskFlags,
	}, nil
}

// Fallback substitutes the maximum-risk sentinel.
func (s *RiskStage) Fallback() contract.Update {
	return contract.Update{
		contract.FieldRiskScore: SentinelMaxRiskScore,
		contract.FieldRiskFlags: []string{SentinelRiskFlag},
	}
}
