package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/clauseworks/clausegraph/contract"
	"github.com/clauseworks/clausegraph/llm"
)

const classificationSystemPrompt = "You are a clause taxonomy JSON generator."

const classificationPromptFormat = `You are a Clause Classification Engine.
Assign each extracted clause below to exactly one of these types: %s.
For each clause produce 'clause_type' (one of the listed types), 'original_text' (the clause text) and 'ai_summary' (one sentence).

Return pure JSON with a single key 'classified_clauses' containing a list of those objects. If there are no clauses, return an empty list.

CLAUSES:
%s`

// ClassificationStage assigns the extracted clauses to the fixed
// taxonomy. Labels outside the taxonomy normalize to Other.
type ClassificationStage struct {
	ex llm.Extractor
}

// NewClassificationStage creates the classification stage.
func NewClassificationStage(ex llm.Extractor) *ClassificationStage {
	return &ClassificationStage{ex: ex}
}

// Name returns the stage name.
func (s *ClassificationStage) Name() string { return "classification" }

// Outputs declares the fields this stage writes.
func (s *ClassificationStage) Outputs() []string {
	return []string{contract.FieldClassifiedClauses}
}

// Run classifies the extracted clauses.
func (s *ClassificationStage) Run(ctx context.Context, rec contract.Record) (contract.Update, error) {
	clausesJSON, err := json.Marshal(rec.ExtractedClauses)
	if err != nil {
		return nil, fmt.Errorf("encoding clauses: %w", err)
	}

	var out struct {
		ClassifiedClauses []struct {
			ClauseType   string `json:"clause_type"`
			OriginalText string `json:"original_text"`
			AISummary    string `json:"ai_summary"`
		} `json:"classified_clauses"`
	}
	prompt := fmt.Sprintf(classificationPromptFormat, taxonomyList(), clausesJSON)
	if err := extract(ctx, s.ex, classificationSystemPrompt, prompt, &out); err != nil {
		return nil, err
	}

	classified := make([]contract.ClassifiedClause, 0, len(out.ClassifiedClauses))
	for _, cl := range out.ClassifiedClauses {
		if cl.OriginalText == "" {
			continue
		}
		classified = append(classified, contract.ClassifiedClause{
			Type:         contract.NormalizeClauseType(cl.ClauseType),
			OriginalText: cl.OriginalText,
			AISummary:    cl.AISummary,
		})
	}
	return contract.Update{contract.FieldClassifiedClauses: classified}, nil
}

// Fallback substitutes an empty classification list.
func (s *ClassificationStage) Fallback() contract.Update {
	return contract.Update{contract.FieldClassifiedClauses: []contract.ClassifiedClause{}}
}

func taxonomyList() string {
	types := contract.ClauseTypes()
	names := make([]string, len(types))
	for i, ct := range types {
		names[i] = string(ct)
	}
	return strings.Join(names, ", ")
}
