package stages

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/clauseworks/clausegraph/contract"
	"github.com/clauseworks/clausegraph/llm"
)

const strategySystemPrompt = "You are a contract negotiation JSON generator."

const strategyPromptFormat = `You are a Senior Commercial Negotiator.
Given the compliance issues and risk flags below, draft a concise counter-proposal strategy the customer's legal team can take into renegotiation. Focus on the highest-risk items first.

Return pure JSON with a single key 'counter_proposal' containing the strategy text.

RISK SCORE: %.1f
COMPLIANCE ISSUES:
%s
RISK FLAGS:
%s`

// StrategyStage derives a negotiation counter-proposal from the
// compliance findings and the risk assessment.
type StrategyStage struct {
	ex llm.Extractor
}

// NewStrategyStage creates the strategy stage.
func NewStrategyStage(ex llm.Extractor) *StrategyStage {
	return &StrategyStage{ex: ex}
}

// Name returns the stage name.
func (s *StrategyStage) Name() string { return "strategy" }

// Outputs declares the fields this stage writes.
func (s *StrategyStage) Outputs() []string {
	return []string{contract.FieldCounterProposal}
}

// Run produces the counter-proposal.
func (s *StrategyStage) Run(ctx context.Context, rec contract.Record) (contract.Update, error) {
	issuesJSON, err := json.Marshal(rec.ComplianceIssues)
	if err != nil {
		return nil, fmt.Errorf("encoding issues: %w", err)
	}
	flagsJSON, err := json.Marshal(rec.RiskFlags)
	if err != nil {
		return nil, fmt.Errorf("encoding flags: %w", err)
	}

	var out struct {
		CounterProposal string `json:"counter_proposal"`
	}
	prompt := fmt.Sprintf(strategyPromptFormat, rec.RiskScore, issuesJSON, flagsJSON)
	if err := extract(ctx, s.ex, strategySystemPrompt, prompt, &out); err != nil {
		return nil, err
	}
	return contract.Update{contract.FieldCounterProposal: out.CounterProposal}, nil
}

// Fallback substitutes the documented unavailability marker.
func (s *StrategyStage) Fallback() contract.Update {
	return contract.Update{contract.FieldCounterProposal: SentinelCounterProposal}
}
