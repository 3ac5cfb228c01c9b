// Package stages contains the seven enrichment stages of the contract
// analysis pipeline, in their canonical order: ingestion, compliance,
// risk, strategy, drafting, obligations, classification. Every stage
// calls the model through a structured-output contract and substitutes
// its documented sentinel when the call fails or the response does not
// parse into the declared shape.
package stages

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/clauseworks/clausegraph/llm"
)

// MaxPromptChars bounds the raw document prefix submitted with a stage
// prompt.
const MaxPromptChars = 10000

// Documented sentinel values substituted on stage failure.
const (
	// SentinelExtractionFailed marks scalar fields whose extraction
	// call failed.
	SentinelExtractionFailed = "Extraction Failed"

	// SentinelComplianceFailure is the single compliance issue recorded
	// when the audit call failed.
	SentinelComplianceFailure = "Compliance audit failed; manual review required."

	// SentinelMaxRiskScore is the maximum-risk score recorded when risk
	// calculation failed. Failing closed keeps a broken scoring call
	// from hiding a risky contract.
	SentinelMaxRiskScore = 100.0

	// SentinelRiskFlag is the risk flag recorded alongside
	// SentinelMaxRiskScore.
	SentinelRiskFlag = "Risk calculation failed; treated as maximum risk."

	// SentinelCounterProposal marks a failed strategy stage.
	SentinelCounterProposal = "Counter-proposal unavailable."
)

// extract performs the model call and unmarshals the JSON response into
// out. A response that does not fit the declared shape is a stage
// failure like any other.
func extract(ctx context.Context, ex llm.Extractor, system, user string, out any) error {
	raw, err := ex.Extract(ctx, system, user)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("response did not match declared shape: %w", err)
	}
	return nil
}

func promptInput(raw string) string {
	if len(raw) > MaxPromptChars {
		return raw[:MaxPromptChars]
	}
	return raw
}
