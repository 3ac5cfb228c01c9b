package stages

import (
	"github.com/clauseworks/clausegraph/llm"
	"github.com/clauseworks/clausegraph/pipeline"
)

// DefaultPipeline assembles the canonical seven-stage pipeline in its
// reference order. The obligations and classification stages only read
// the raw text and the ingestion output, but the reference ordering runs
// everything sequentially to bound concurrent model-call load.
func DefaultPipeline(ex llm.Extractor, opts ...pipeline.Option) *pipeline.Pipeline {
	p := pipeline.New(opts...)
	p.AddStage(NewIngestionStage(ex))
	p.AddStage(NewComplianceStage(ex))
	p.AddStage(NewRiskStage(ex))
	p.AddStage(NewStrategyStage(ex))
	p.AddStage(NewDraftingStage(ex))
	p.AddStage(NewObligationsStage(ex))
	p.AddStage(NewClassificationStage(ex))
	return p
}
