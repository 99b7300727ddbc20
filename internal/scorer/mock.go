package scorer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/memgate/engine/pkg/types"
)

// MockScorer implements Scorer with configurable canned confidences, for
// tests and for dry-running a pipeline without a model dependency.
type MockScorer struct {
	mu sync.Mutex

	ids   []types.LabelID
	hyps  []string

	// Responses cycles per call unless ReplayMode is set, in which case
	// each entry is consumed exactly once. Each entry maps a label id's
	// String() to its raw confidence; missing ids default to 0.
	Responses []map[string]float64
	Errors    []error
	ReplayMode bool
	SimulatedLatency time.Duration
	// MatchFunc, if set, takes priority over index-based selection and is
	// given the input text.
	MatchFunc func(text string) map[string]float64

	CallCount   int
	LastText    string
	TextHistory []string
}

// NewMockScorer creates a MockScorer for the given label ids/hypotheses,
// cycling through responses.
func NewMockScorer(ids []types.LabelID, hyps []string, responses []map[string]float64, errs []error) *MockScorer {
	return &MockScorer{ids: ids, hyps: hyps, Responses: responses, Errors: errs}
}

// NewReplayMockScorer creates a MockScorer that consumes responses exactly
// once, in order, erroring once exhausted.
func NewReplayMockScorer(ids []types.LabelID, hyps []string, responses []map[string]float64) *MockScorer {
	return &MockScorer{ids: ids, hyps: hyps, Responses: responses, ReplayMode: true}
}

func (m *MockScorer) Hypotheses() ([]types.LabelID, []string) {
	return m.ids, m.hyps
}

func (m *MockScorer) Score(ctx context.Context, text string) ([]Score, error) {
	if text == "" {
		return nil, &types.InputError{Reason: "empty text"}
	}

	m.mu.Lock()
	latency := m.SimulatedLatency
	m.mu.Unlock()

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.CallCount
	m.CallCount++
	m.LastText = text
	m.TextHistory = append(m.TextHistory, text)

	if idx < len(m.Errors) && m.Errors[idx] != nil {
		return nil, &types.ModelError{Op: "score", Err: m.Errors[idx]}
	}

	var byID map[string]float64
	switch {
	case m.MatchFunc != nil:
		if resp := m.MatchFunc(text); resp != nil {
			byID = resp
		}
	case m.ReplayMode:
		if idx >= len(m.Responses) {
			return nil, &types.ModelError{Op: "score", Err: fmt.Errorf("mock scorer: all %d responses exhausted at call %d", len(m.Responses), idx)}
		}
		byID = m.Responses[idx]
	case len(m.Responses) > 0:
		byID = m.Responses[idx%len(m.Responses)]
	}

	out := make([]Score, len(m.ids))
	for i, id := range m.ids {
		raw := byID[id.String()]
		out[i] = Score{ID: id, Raw: raw}
	}
	return out, nil
}

func (m *MockScorer) ScoreBatch(ctx context.Context, texts []string) ([][]Score, []error) {
	return ScoreBatchSequential(ctx, m, texts)
}

func (m *MockScorer) Close() error { return nil }
