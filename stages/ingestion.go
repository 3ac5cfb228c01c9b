package stages

import (
	"context"
	"fmt"

	"github.com/clauseworks/clausegraph/contract"
	"github.com/clauseworks/clausegraph/llm"
)

const ingestionSystemPrompt = "You are a precise JSON legal extraction engine."

const ingestionPromptFormat = `You are an expert Legal Document Parser.
Extract the following from the provided contract text:
1. 'contract_value': The total financial consideration or value. If none, say "Not Specified".
2. 'end_date': The termination date or duration. If none, say "Not Specified".
3. 'extracted_clauses': An object where keys are clause names (e.g., 'Indemnity', 'Liability', 'Termination') and values are the exact text or a summary, always as strings.

Return pure JSON with keys: 'contract_value', 'end_date', 'extracted_clauses'.

CONTRACT TEXT:
%s`

// IngestionStage parses the raw document into key metadata and clauses.
// It is the only stage that reads nothing but the immutable input.
type IngestionStage struct {
	ex llm.Extractor
}

// NewIngestionStage creates the ingestion stage.
func NewIngestionStage(ex llm.Extractor) *IngestionStage {
	return &IngestionStage{ex: ex}
}

// Name returns the stage name.
func (s *IngestionStage) Name() string { return "ingestion" }

// Outputs declares the fields this stage writes.
func (s *IngestionStage) Outputs() []string {
	return []string{
		contract.FieldContractValue,
		contract.FieldEndDate,
		contract.FieldExtractedClauses,
	}
}

// Run extracts contract value, end date and named clauses.
func (s *IngestionStage) Run(ctx context.Context, rec contract.Record) (contract.Update, error) {
	var out struct {
		ContractValue    string            `json:"contract_value"`
		EndDate          string            `json:"end_date"`
		ExtractedClauses map[string]string `json:"extracted_clauses"`
	}
	prompt := fmt.Sprintf(ingestionPromptFormat, promptInput(rec.RawDocument))
	if err := extract(ctx, s.ex, ingestionSystemPrompt, prompt, &out); err != nil {
		return nil, err
	}
	if out.ExtractedClauses == nil {
		out.ExtractedClauses = map[string]string{}
	}
	return contract.Update{
		contract.FieldContractValue:    out.ContractValue,
		contract.FieldEndDate:          out.EndDate,
		contract.FieldExtractedClauses: out.ExtractedClauses,
	}, nil
}

// Fallback substitutes the documented extraction sentinels.
func (s *IngestionStage) Fallback() contract.Update {
	return contract.Update{
		contract.FieldContractValue:    SentinelExtractionFailed,
		contract.FieldEndDate:          SentinelExtractionFailed,
		contract.FieldExtractedClauses: map[string]string{},
	}
}
