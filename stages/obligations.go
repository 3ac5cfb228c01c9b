package stages

import (
	"context"
	"fmt"

	"github.com/clauseworks/clausegraph/contract"
	"github.com/clauseworks/clausegraph/llm"
)

const obligationsSystemPrompt = "You are an obligation mining JSON generator."

const obligationsPromptFormat = `You are a Contract Obligations Analyst.
Read the contract text and list every concrete obligation a party must perform (deliverables, payments, notices, renewals).
For each obligation capture 'description' and, when the text states one, 'due_date' in YYYY-MM-DD format. Omit 'due_date' when no date is given.

Return pure JSON with a single key 'extracted_obligations' containing a list of objects with keys 'description' and optional 'due_date'. If none, return an empty list.

CONTRACT TEXT:
%s`

// ObligationsStage mines concrete obligations from the raw document
// text. It only depends on the immutable input; it runs late for call
// pacing, not because of a data dependency.
type ObligationsStage struct {
	ex llm.Extractor
}

// NewObligationsStage creates the obligations stage.
func NewObligationsStage(ex llm.Extractor) *ObligationsStage {
	return &ObligationsStage{ex: ex}
}

// Name returns the stage name.
func (s *ObligationsStage) Name() string { return "obligations" }

// Outputs declares the fields this stage writes.
func (s *ObligationsStage) Outputs() []string {
	return []string{contract.FieldExtractedObligations}
}

// Run mines the obligations.
func (s *ObligationsStage) Run(ctx context.Context, rec contract.Record) (contract.Update, error) {
	var out struct {
		ExtractedObligations []contract.Obligation `json:"extracted_obligations"`
	}
	prompt := fmt.Sprintf(obligationsPromptFormat, promptInput(rec.RawDocument))
	if err := extract(ctx, s.ex, obligationsSystemPrompt, prompt, &out); err != nil {
		return nil, err
	}

	// Drop entries without a description; they cannot become rows.
	kept := make([]contract.Obligation, 0, len(out.ExtractedObligations))
	for _, ob := range out.ExtractedObligations {
		if ob.Description == "" {
			continue
		}
		kept = append(kept, ob)
	}
	return contract.Update{contract.FieldExtractedObligations: kept}, nil
}

// Fallback substitutes an empty obligation list.
func (s *ObligationsStage) Fallback() contract.Update {
	return contract.Update{contract.FieldExtractedObligations: []contract.Obligation{}}
}
