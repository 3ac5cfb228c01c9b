// Package engine wires the analysis pipeline, record store, vector
// index, and retrieval reconciler into the two top-level operations:
// analyzing a document and answering a question over the portfolio.
package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/clauseworks/clausegraph/answer"
	"github.com/clauseworks/clausegraph/contract"
	"github.com/clauseworks/clausegraph/llm"
	"github.com/clauseworks/clausegraph/log"
	"github.com/clauseworks/clausegraph/pipeline"
	"github.com/clauseworks/clausegraph/retrieval"
	"github.com/clauseworks/clausegraph/store"
	"github.com/clauseworks/clausegraph/vecindex"
)

// DefaultBatchConcurrency bounds concurrent pipeline runs in
// AnalyzeBatch.
const DefaultBatchConcurrency = 4

// Canned responses for the two empty retrieval outcomes.
const (
	NoEvidenceAnswer  = "No relevant documents were found in your organization's vault to answer this."
	AllOrphanedAnswer = "All documents relevant to this question have since been deleted from the system."
)

// AnalyzeRequest describes one document to analyze.
type AnalyzeRequest struct {
	// ContractID is optional; a fresh id is assigned when empty.
	ContractID string
	TenantID   string
	Title      string
	Text       string
}

// Option configures an Engine.
type Option func(*Engine)

// WithGenealogy sets the store receiving obligation and clause rows.
func WithGenealogy(g store.GenealogyStore) Option {
	return func(e *Engine) { e.genealogy = g }
}

// WithAnswerer sets the answer generator used by AskQuestion.
func WithAnswerer(a answer.Answerer) Option {
	return func(e *Engine) { e.answerer = a }
}

// WithLogger sets the engine logger.
func WithLogger(l log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTopK sets how many index hits AskQuestion considers.
func WithTopK(k int) Option {
	return func(e *Engine) { e.topK = k }
}

// WithBatchConcurrency bounds concurrent runs in AnalyzeBatch.
func WithBatchConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchConcurrency = n
		}
	}
}

// Engine runs document analysis and portfolio question answering.
type Engine struct {
	runnable  *pipeline.Runnable
	records   store.RecordStore
	genealogy store.GenealogyStore
	index     vecindex.Index
	embedder  llm.Embedder
	answerer  answer.Answerer

	reconciler       *retrieval.Reconciler
	topK             int
	batchConcurrency int
	logger           log.Logger
}

// New creates an Engine. The runnable is a compiled analysis pipeline;
// records, index and embedder are required for both operations.
func New(runnable *pipeline.Runnable, records store.RecordStore, index vecindex.Index, embedder llm.Embedder, opts ...Option) *Engine {
	e := &Engine{
		runnable:         runnable,
		records:          records,
		index:            index,
		embedder:         embedder,
		topK:             retrieval.DefaultTopK,
		batchConcurrency: DefaultBatchConcurrency,
		logger:           log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.reconciler = retrieval.New(index, records,
		retrieval.WithTopK(e.topK),
		retrieval.WithLogger(e.logger))
	return e
}

// AnalyzeDocument runs the full analysis chain: pipeline, risk
// classification, store upsert, genealogy rows, and indexing. Genealogy
// failures are logged and do not fail the call; indexing failures do,
// since an unindexed contract is invisible to retrieval.
func (e *Engine) AnalyzeDocument(ctx context.Context, req AnalyzeRequest) (*contract.Record, error) {
	if req.TenantID == "" {
		return nil, store.ErrTenantRequired
	}

	contractID := req.ContractID
	if contractID == "" {
		contractID = uuid.NewString()
	}

	rec, err := contract.NewRecord(contractID, req.TenantID, req.Title, req.Text)
	if err != nil {
		return nil, err
	}

	out, err := e.runnable.Invoke(ctx, rec)
	if err != nil {
		return nil, err
	}
	out.RiskLevel = contract.RiskLevelFor(out.RiskScore)

	if err := e.records.Upsert(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to persist record: %w", err)
	}

	if e.genealogy != nil {
		if err := e.genealogy.InsertObligations(ctx, out.TenantID, out.ContractID, out.ExtractedObligations); err != nil {
			e.logger.Warn("failed to persist obligations for contract %s: %v", out.ContractID, err)
		}
		if err := e.genealogy.InsertClauses(ctx, out.TenantID, out.ContractID, out.ClassifiedClauses); err != nil {
			e.logger.Warn("failed to persist clauses for contract %s: %v", out.ContractID, err)
		}
	}

	if err := e.indexRecord(ctx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *Engine) indexRecord(ctx context.Context, rec *contract.Record) error {
	embedding, err := e.embedder.Embed(ctx, rec.RawDocument)
	if err != nil {
		return fmt.Errorf("failed to embed document: %w", err)
	}

	entry := vecindex.Entry{
		ID:        uuid.NewString(),
		OwnerID:   rec.ContractID,
		TenantID:  rec.TenantID,
		Text:      rec.RawDocument,
		Embedding: embedding,
	}
	if err := e.index.Upsert(ctx, []vecindex.Entry{entry}); err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	return nil
}

// AnalyzeBatch analyzes independent documents concurrently. The first
// failure cancels the remaining runs.
func (e *Engine) AnalyzeBatch(ctx context.Context, reqs []AnalyzeRequest) ([]*contract.Record, error) {
	results := make([]*contract.Record, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.batchConcurrency)
	for i, req := range reqs {
		g.Go(func() error {
			rec, err := e.AnalyzeDocument(gctx, req)
			if err != nil {
				return fmt.Errorf("analysis of %q failed: %w", req.Title, err)
			}
			results[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// AskQuestion answers a question over the tenant's portfolio. The two
// empty retrieval outcomes get fixed responses with no citations.
func (e *Engine) AskQuestion(ctx context.Context, tenantID, question string) (*answer.Answer, error) {
	if e.answerer == nil {
		return nil, fmt.Errorf("no answerer configured")
	}

	embedding, err := e.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	set, err := e.reconciler.Retrieve(ctx, tenantID, embedding)
	if err != nil {
		return nil, err
	}

	switch set.Outcome {
	case retrieval.OutcomeNoMatches:
		return &answer.Answer{Text: NoEvidenceAnswer, Citations: []retrieval.Citation{}}, nil
	case retrieval.OutcomeAllOrphaned:
		return &answer.Answer{Text: AllOrphanedAnswer, Citations: []retrieval.Citation{}}, nil
	}

	return e.answerer.Answer(ctx, question, set)
}

// WaitCleanup blocks until background index pruning has finished.
func (e *Engine) WaitCleanup() {
	e.reconciler.WaitCleanup()
}
