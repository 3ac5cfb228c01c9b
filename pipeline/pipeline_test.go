package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clauseworks/clausegraph/contract"
)

// fakeStage is a configurable stage for pipeline tests.
type fakeStage struct {
	name     string
	outputs  []string
	run      func(ctx context.Context, rec contract.Record) (contract.Update, error)
	fallback contract.Update
}

func (s *fakeStage) Name() string             { return s.name }
func (s *fakeStage) Outputs() []string        { return s.outputs }
func (s *fakeStage) Fallback() contract.Update { return s.fallback }
func (s *fakeStage) Run(ctx context.Context, rec contract.Record) (contract.Update, error) {
	return s.run(ctx, rec)
}

func newRecord(t *testing.T) contract.Record {
	t.Helper()
	rec, err := contract.NewRecord("c-1", "t-1", "msa.pdf", "raw contract text")
	require.NoError(t, err)
	return rec
}

func TestCompileValidation(t *testing.T) {
	t.Run("Empty Pipeline", func(t *testing.T) {
		_, err := New().Compile()
		assert.ErrorIs(t, err, ErrNoStages)
	})

	t.Run("Duplicate Stage Name", func(t *testing.T) {
		p := New()
		p.AddStage(&fakeStage{name: "a", outputs: []string{contract.FieldEndDate}})
		p.AddStage(&fakeStage{name: "a", outputs: []string{contract.FieldContractValue}})
		_, err := p.Compile()
		assert.ErrorIs(t, err, ErrDuplicateStage)
	})

	t.Run("Field Claimed Twice", func(t *testing.T) {
		p := New()
		p.AddStage(&fakeStage{name: "a", outputs: []string{contract.FieldRiskScore}})
		p.AddStage(&fakeStage{name: "b", outputs: []string{contract.FieldRiskScore}})
		_, err := p.Compile()
		assert.ErrorIs(t, err, ErrFieldClaimed)
	})
}

func TestInvokeRejectsEmptyInput(t *testing.T) {
	p := New()
	p.AddStage(&fakeStage{name: "a", outputs: []string{contract.FieldEndDate}})
	r, err := p.Compile()
	require.NoError(t, err)

	_, err = r.Invoke(context.Background(), contract.Record{ContractID: "c-1"})
	assert.ErrorIs(t, err, contract.ErrEmptyDocument)
}

func TestStageOrdering(t *testing.T) {
	// Each stage records exactly what it could see of earlier outputs.
	var sawValueInSecond, sawIssuesInSecond bool

	first := &fakeStage{
		name:    "extract",
		outputs: []string{contract.FieldContractValue},
		run: func(ctx context.Context, rec contract.Record) (contract.Update, error) {
			// First stage sees only the immutable input.
			assert.Empty(t, rec.ContractValue)
			assert.Empty(t, rec.ComplianceIssues)
			return contract.Update{contract.FieldContractValue: "USD 5,000"}, nil
		},
	}
	second := &fakeStage{
		name:    "audit",
		outputs: []string{contract.FieldComplianceIssues},
		run: func(ctx context.Context, rec contract.Record) (contract.Update, error) {
			sawValueInSecond = rec.ContractValue == "USD 5,000"
			sawIssuesInSecond = len(rec.ComplianceIssues) > 0
			return contract.Update{contract.FieldComplianceIssues: []string{"one-sided indemnity"}}, nil
		},
	}
	third := &fakeStage{
		name:    "score",
		outputs: []string{contract.FieldRiskScore},
		run: func(ctx context.Context, rec contract.Record) (contract.Update, error) {
			assert.Equal(t, "USD 5,000", rec.ContractValue)
			assert.Equal(t, []string{"one-sided indemnity"}, rec.ComplianceIssues)
			return contract.Update{contract.FieldRiskScore: 55.0}, nil
		},
	}

	p := New(WithLogger(&logDiscard{}))
	p.AddStage(first)
	p.AddStage(second)
	p.AddStage(third)
	r, err := p.Compile()
	require.NoError(t, err)

	final, err := r.Invoke(context.Background(), newRecord(t))
	require.NoError(t, err)

	assert.True(t, sawValueInSecond, "second stage must see first stage's output")
	assert.False(t, sawIssuesInSecond, "second stage must not see its own or later output")
	assert.Equal(t, 55.0, final.RiskScore)
	assert.Equal(t, "USD 5,000", final.ContractValue)
}

func TestSentinelSubstitution(t *testing.T) {
	failing := &fakeStage{
		name:    "risk",
		outputs: []string{contract.FieldRiskScore, contract.FieldRiskFlags},
		run: func(ctx context.Context, rec contract.Record) (contract.Update, error) {
			return nil, errors.New("upstream 503")
		},
		fallback: contract.Update{
			contract.FieldRiskScore: 100.0,
			contract.FieldRiskFlags: []string{"risk calculation failed"},
		},
	}

	var downstreamRan bool
	downstream := &fakeStage{
		name:    "strategy",
		outputs: []string{contract.FieldCounterProposal},
		run: func(ctx context.Context, rec contract.Record) (contract.Update, error) {
			downstreamRan = true
			// Downstream sees the sentinel, not a hole.
			assert.Equal(t, 100.0, rec.RiskScore)
			return contract.Update{contract.FieldCounterProposal: "renegotiate"}, nil
		},
	}

	p := New(WithLogger(&logDiscard{}))
	p.AddStage(failing)
	p.AddStage(downstream)
	r, err := p.Compile()
	require.NoError(t, err)

	final, err := r.Invoke(context.Background(), newRecord(t))
	require.NoError(t, err)

	assert.True(t, downstreamRan, "pipeline must continue past a failed stage")
	assert.Equal(t, 100.0, final.RiskScore)
	assert.Equal(t, []string{"risk calculation failed"}, final.RiskFlags)
	assert.Equal(t, "renegotiate", final.CounterProposal)
}

func TestStageTimeoutTreatedAsFailure(t *testing.T) {
	slow := &fakeStage{
		name:    "slow",
		outputs: []string{contract.FieldEndDate},
		run: func(ctx context.Context, rec contract.Record) (contract.Update, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(5 * time.Second):
				return contract.Update{contract.FieldEndDate: "never"}, nil
			}
		},
		fallback: contract.Update{contract.FieldEndDate: "Extraction Failed"},
	}

	p := New(WithStageTimeout(20*time.Millisecond), WithLogger(&logDiscard{}))
	p.AddStage(slow)
	r, err := p.Compile()
	require.NoError(t, err)

	final, err := r.Invoke(context.Background(), newRecord(t))
	require.NoError(t, err)
	assert.Equal(t, "Extraction Failed", final.EndDate)
}

func TestUndeclaredFieldRejected(t *testing.T) {
	rogue := &fakeStage{
		name:    "rogue",
		outputs: []string{contract.FieldEndDate},
		run: func(ctx context.Context, rec contract.Record) (contract.Update, error) {
			return contract.Update{contract.FieldRiskScore: 1.0}, nil
		},
	}

	p := New(WithLogger(&logDiscard{}))
	p.AddStage(rogue)
	r, err := p.Compile()
	require.NoError(t, err)

	_, err = r.Invoke(context.Background(), newRecord(t))
	assert.ErrorIs(t, err, ErrUndeclaredField)
}

func TestCancelledContextAborts(t *testing.T) {
	p := New(WithLogger(&logDiscard{}))
	p.AddStage(&fakeStage{
		name:    "a",
		outputs: []string{contract.FieldEndDate},
		run: func(ctx context.Context, rec contract.Record) (contract.Update, error) {
			return contract.Update{}, nil
		},
	})
	r, err := p.Compile()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Invoke(ctx, newRecord(t))
	assert.ErrorIs(t, err, context.Canceled)
}

// logDiscard silences pipeline logging in tests.
type logDiscard struct{}

func (*logDiscard) Debug(string, ...any) {}
func (*logDiscard) Info(string, ...any)  {}
func (*logDiscard) Warn(string, ...any)  {}
func (*logDiscard) Error(string, ...any) {}
