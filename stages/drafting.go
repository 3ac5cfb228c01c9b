package stages

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/clauseworks/clausegraph/contract"
	"github.com/clauseworks/clausegraph/llm"
)

const draftingSystemPrompt = "You are a legal drafting JSON generator."

const draftingPromptFormat = `You are a Legal Drafting Assistant.
For each compliance issue below, produce a neutral, balanced rewrite of the problematic language, guided by the negotiation strategy.

Return pure JSON with a single key 'draft_revisions' containing a list of objects with keys 'original_issue' and 'neutral_rewrite'. If there are no issues, return an empty list.

NEGOTIATION STRATEGY:
%s
COMPLIANCE ISSUES:
%s`

// DraftingStage turns each compliance issue into a neutral rewrite,
// guided by the strategy stage's counter-proposal.
type DraftingStage struct {
	ex llm.Extractor
}

// NewDraftingStage creates the drafting stage.
func NewDraftingStage(ex llm.Extractor) *DraftingStage {
	return &DraftingStage{ex: ex}
}

// Name returns the stage name.
func (s *DraftingStage) Name() string { return "drafting" }

// Outputs declares the fields this stage writes.
func (s *DraftingStage) Outputs() []string {
	return []string{contract.FieldDraftRevisions}
}

// Run drafts the neutral rewrites.
func (s *DraftingStage) Run(ctx context.Context, rec contract.Record) (contract.Update, error) {
	issuesJSON, err := json.Marshal(rec.ComplianceIssues)
	if err != nil {
		return nil, fmt.Errorf("encoding issues: %w", err)
	}

	var out struct {
		DraftRevisions []contract.DraftRevision `json:"draft_revisions"`
	}
	prompt := fmt.Sprintf(draftingPromptFormat, rec.CounterProposal, issuesJSON)
	if err := extract(ctx, s.ex, draftingSystemPrompt, prompt, &out); err != nil {
		return nil, err
	}
	if out.DraftRevisions == nil {
		out.DraftRevisions = []contract.DraftRevision{}
	}
	return contract.Update{contract.FieldDraftRevisions: out.DraftRevisions}, nil
}

// Fallback substitutes an empty revision list.
func (s *DraftingStage) Fallback() contract.Update {
	return contract.Update{contract.FieldDraftRevisions: []contract.DraftRevision{}}
}
