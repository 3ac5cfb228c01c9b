// Package pipeline implements the staged enrichment pipeline. Stages run
// strictly in the configured order; each receives a read-only snapshot of
// the accumulated Record and returns a partial update, which the runner
// folds into a fresh Record value. A failing stage never aborts the run:
// its documented sentinel update is merged instead and execution
// continues, trading strict correctness for availability.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clauseworks/clausegraph/contract"
	"github.com/clauseworks/clausegraph/log"
)

var (
	// ErrNoStages is returned when compiling an empty pipeline.
	ErrNoStages = errors.New("pipeline has no stages")

	// ErrDuplicateStage is returned when two stages share a name.
	ErrDuplicateStage = errors.New("duplicate stage name")

	// ErrFieldClaimed is returned when two stages declare the same
	// output field. A field is only ever written by exactly one stage.
	ErrFieldClaimed = errors.New("output field claimed by more than one stage")

	// ErrUndeclaredField is returned when a stage writes a field it did
	// not declare. This is a stage programming error, not a runtime
	// condition to recover from.
	ErrUndeclaredField = errors.New("stage wrote an undeclared field")
)

// Stage is one ordered enrichment step. Outputs declares the exact set
// of Record fields the stage may write; Run returns a partial update
// covering some or all of them. Fallback returns the documented sentinel
// update merged when Run fails.
type Stage interface {
	Name() string
	Outputs() []string
	Run(ctx context.Context, rec contract.Record) (contract.Update, error)
	Fallback() contract.Update
}

// Pipeline is an ordered list of stages. Configure it with AddStage and
// Compile it into a Runnable.
type Pipeline struct {
	stages       []Stage
	stageTimeout time.Duration
	logger       log.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStageTimeout bounds each stage's execution. A timed-out stage is
// treated like any other stage failure: sentinel substitution, then the
// next stage runs. Default is 90 seconds.
func WithStageTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		p.stageTimeout = d
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger log.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		stageTimeout: 90 * time.Second,
		logger:       log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddStage appends a stage. Stages execute in insertion order.
func (p *Pipeline) AddStage(s Stage) {
	p.stages = append(p.stages, s)
}

// Compile validates the pipeline and returns a Runnable. It enforces the
// single-writer invariant: every output field belongs to exactly one
// stage.
func (p *Pipeline) Compile() (*Runnable, error) {
	if len(p.stages) == 0 {
		return nil, ErrNoStages
	}

	names := make(map[string]bool, len(p.stages))
	owners := make(map[string]string)
	for _, s := range p.stages {
		if names[s.Name()] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStage, s.Name())
		}
		names[s.Name()] = true

		for _, field := range s.Outputs() {
			if owner, ok := owners[field]; ok {
				return nil, fmt.Errorf("%w: %q declared by %s and %s", ErrFieldClaimed, field, owner, s.Name())
			}
			owners[field] = s.Name()
		}
	}

	return &Runnable{pipeline: p}, nil
}

// Runnable is a compiled pipeline that can be invoked. A Runnable is
// safe for concurrent use: each Invoke owns its Record exclusively.
type Runnable struct {
	pipeline *Pipeline
}

// Invoke executes every stage in order against the initial Record and
// returns the final accumulated Record. Stage failures are degraded to
// sentinel values; only an empty input or a cancelled context aborts the
// run.
func (r *Runnable) Invoke(ctx context.Context, initial contract.Record) (contract.Record, error) {
	if initial.RawDocument == "" {
		return contract.Record{}, contract.ErrEmptyDocument
	}

	rec := initial
	for _, stage := range r.pipeline.stages {
		if err := ctx.Err(); err != nil {
			return rec, err
		}

		update, err := r.runStage(ctx, stage, rec)
		if err != nil {
			r.pipeline.logger.Warn("stage %s failed, substituting sentinel values: %v", stage.Name(), err)
			update = stage.Fallback()
		}

		if err := validateOutputs(stage, update); err != nil {
			return rec, err
		}

		rec, err = rec.Apply(update)
		if err != nil {
			return rec, fmt.Errorf("stage %s: %w", stage.Name(), err)
		}
		r.pipeline.logger.Debug("stage %s complete for contract %s", stage.Name(), rec.ContractID)
	}

	return rec, nil
}

func (r *Runnable) runStage(ctx context.Context, stage Stage, rec contract.Record) (contract.Update, error) {
	stageCtx, cancel := context.WithTimeout(ctx, r.pipeline.stageTimeout)
	defer cancel()
	return stage.Run(stageCtx, rec)
}

func validateOutputs(stage Stage, update contract.Update) error {
	declared := make(map[string]bool, len(stage.Outputs()))
	for _, f := range stage.Outputs() {
		declared[f] = true
	}
	for field := range update {
		if !declared[field] {
			return fmt.Errorf("%w: stage %s wrote %q", ErrUndeclaredField, stage.Name(), field)
		}
	}
	return nil
}
