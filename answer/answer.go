// Package answer turns a reconciled evidence set into a grounded
// natural-language answer.
package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/clauseworks/clausegraph/retrieval"
)

// Answer is a grounded response with its source citations.
type Answer struct {
	Text      string               `json:"answer"`
	Citations []retrieval.Citation `json:"citations"`
}

// Answerer produces an answer for a question from reconciled evidence.
type Answerer interface {
	Answer(ctx context.Context, question string, set *retrieval.EvidenceSet) (*Answer, error)
}

const systemPrompt = `You are an enterprise legal portfolio manager. Your task is to
summarize, evaluate, and compare information across ALL documents provided in the
context, not just one of them.

Guidelines:
1. For questions about risk or compliance across the portfolio, rank the documents
by their recorded risk level and compliance notes, and say which are high risk and
which are safe.
2. If every document is low risk, do not answer "no data found". Give a short
managerial summary of the portfolio instead.
3. If the requested information genuinely does not appear in the context, say so
politely.
4. Write in structured, executive-oriented prose.

DOCUMENT CONTEXT:
%s`

// LLMAnswerer renders the evidence set into a context block and asks a
// chat model.
type LLMAnswerer struct {
	model llms.Model
}

var _ Answerer = (*LLMAnswerer)(nil)

// NewLLMAnswerer creates an answerer over the given model.
func NewLLMAnswerer(model llms.Model) *LLMAnswerer {
	return &LLMAnswerer{model: model}
}

// Answer asks the model the question, grounded on the evidence set.
func (a *LLMAnswerer) Answer(ctx context.Context, question string, set *retrieval.EvidenceSet) (*Answer, error) {
	contextBlock := RenderContext(set)

	resp, err := a.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, fmt.Sprintf(systemPrompt, contextBlock)),
		llms.TextParts(llms.ChatMessageTypeHuman, question),
	})
	if err != nil {
		return nil, fmt.Errorf("answer generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("answer generation returned no choices")
	}

	return &Answer{
		Text:      resp.Choices[0].Content,
		Citations: set.Citations,
	}, nil
}

// RenderContext formats each evidence source with its fragment and the
// stored risk assessment.
func RenderContext(set *retrieval.EvidenceSet) string {
	var b strings.Builder
	for _, ev := range set.Evidence {
		b.WriteString("Source Document:\n")
		fmt.Fprintf(&b, "Title: %s\n", ev.Title)
		fmt.Fprintf(&b, "Fragment: %s\n", ev.Fragment)

		riskLevel := "Unknown"
		var notes []string
		if rec := ev.Record; rec != nil {
			if rec.RiskLevel != "" {
				riskLevel = string(rec.RiskLevel)
			}
			if len(rec.ComplianceIssues) > 0 {
				notes = append(notes, "Compliance Issues: "+strings.Join(rec.ComplianceIssues, "; "))
			}
			if len(rec.RiskFlags) > 0 {
				notes = append(notes, "Risk Flags: "+strings.Join(rec.RiskFlags, "; "))
			}
		}
		if len(notes) == 0 {
			notes = append(notes, "Notes: None")
		}
		fmt.Fprintf(&b, "Risk Assessment: Risk Level: %s, %s\n---\n", riskLevel, strings.Join(notes, ", "))
	}
	return b.String()
}
