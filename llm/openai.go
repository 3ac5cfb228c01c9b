package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient implements Extractor and Embedder against the OpenAI API.
// Chat calls run in JSON mode so the response is guaranteed to be a
// single JSON object (or an API error, never prose).
type OpenAIClient struct {
	client         *openai.Client
	chatModel      string
	embeddingModel openai.EmbeddingModel
	timeout        time.Duration
}

// OpenAIOption configures an OpenAIClient.
type OpenAIOption func(*OpenAIClient)

// WithChatModel overrides the chat model (default gpt-4o-mini).
func WithChatModel(model string) OpenAIOption {
	return func(c *OpenAIClient) {
		c.chatModel = model
	}
}

// WithEmbeddingModel overrides the embedding model (default
// text-embedding-3-small).
func WithEmbeddingModel(model openai.EmbeddingModel) OpenAIOption {
	return func(c *OpenAIClient) {
		c.embeddingModel = model
	}
}

// WithCallTimeout overrides the per-call deadline.
func WithCallTimeout(d time.Duration) OpenAIOption {
	return func(c *OpenAIClient) {
		c.timeout = d
	}
}

// NewOpenAIClient creates an OpenAI-backed model client.
func NewOpenAIClient(apiKey string, opts ...OpenAIOption) *OpenAIClient {
	c := &OpenAIClient{
		client:         openai.NewClient(apiKey),
		chatModel:      openai.GPT4oMini,
		embeddingModel: openai.SmallEmbedding3,
		timeout:        DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	_ Extractor = (*OpenAIClient)(nil)
	_ Embedder  = (*OpenAIClient)(nil)
)

// Extract performs a JSON-mode chat completion.
func (c *OpenAIClient) Extract(ctx context.Context, system, user string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.chatModel,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, ErrEmptyResponse
	}
	return json.RawMessage(resp.Choices[0].Message.Content), nil
}

// Embed returns the embedding for the given text, truncated to the
// embedding input bound.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if len(text) > MaxEmbeddingChars {
		text = text[:MaxEmbeddingChars]
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: c.embeddingModel,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, ErrEmptyResponse
	}
	return resp.Data[0].Embedding, nil
}
