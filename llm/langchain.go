package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
)

// LangchainExtractor adapts a langchaingo llms.Model to the Extractor
// contract, so any provider langchaingo supports can back the pipeline.
type LangchainExtractor struct {
	model   llms.Model
	timeout time.Duration
}

var _ Extractor = (*LangchainExtractor)(nil)

// NewLangchainExtractor wraps an llms.Model. A zero timeout falls back to
// DefaultCallTimeout.
func NewLangchainExtractor(model llms.Model, timeout time.Duration) *LangchainExtractor {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &LangchainExtractor{model: model, timeout: timeout}
}

// Extract generates a JSON-mode completion via the wrapped model.
func (e *LangchainExtractor) Extract(ctx context.Context, system, user string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}

	resp, err := e.model.GenerateContent(ctx, messages, llms.WithJSONMode())
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return nil, ErrEmptyResponse
	}
	return json.RawMessage(resp.Choices[0].Content), nil
}
