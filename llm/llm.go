// Package llm defines the typed contracts for the model calls the engine
// depends on: structured (JSON) extraction and text embedding. Both are
// treated as unreliable collaborators; callers decide how to degrade when
// a call fails.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// DefaultCallTimeout bounds a single model round-trip when the
// implementation applies its own deadline.
const DefaultCallTimeout = 60 * time.Second

// MaxEmbeddingChars bounds the text submitted for embedding.
const MaxEmbeddingChars = 8000

// Extractor performs a structured-output model call. The returned bytes
// must be a single JSON object; callers unmarshal into their declared
// shape and treat unmarshable output as a failed call.
type Extractor interface {
	Extract(ctx context.Context, system, user string) (json.RawMessage, error)
}

// Embedder turns text into a vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ErrEmptyResponse is returned when the model produced no usable output.
var ErrEmptyResponse = errors.New("model returned an empty response")
