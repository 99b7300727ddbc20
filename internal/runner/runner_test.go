package runner_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/memgate/engine/internal/emitter"
	"github.com/memgate/engine/internal/evaluator"
	"github.com/memgate/engine/internal/runner"
	"github.com/memgate/engine/internal/scorer"
	"github.com/memgate/engine/pkg/types"
)

func testConfig() types.EvalConfig {
	identity := types.Platt{A: 1, B: 0}
	return types.EvalConfig{
		Modifier:            types.ModifierConfig{BaseThreshold: 0.5, LongLimit: 10000},
		PhaticVetoThreshold: 0.9,
		PhaticLabel:         types.PhaticLabelRef{Category: "Conversational", Name: "Phatic"},
		Categories: []types.Category{
			{Name: "Task", KCap: 1, Labels: []types.Label{
				{Category: "Task", Name: "A", Hypothesis: "task", Weight: 1, Threshold: 0.5, Platt: identity},
			}},
			{Name: "Conversational", KCap: 1, Labels: []types.Label{
				{Category: "Conversational", Name: "Phatic", Hypothesis: "chat", Weight: 1, Threshold: 0, Platt: identity},
			}},
		},
	}
}

func newTestEvaluator(t *testing.T, responses []map[string]float64) *evaluator.Evaluator {
	t.Helper()
	cfg := testConfig()
	ids, hyps := cfg.Hypotheses()
	sc := scorer.NewMockScorer(ids, hyps, responses, nil)
	ev, err := evaluator.New(cfg, sc)
	if err != nil {
		t.Fatalf("evaluator.New: %v", err)
	}
	return ev
}

func dataset(n int) types.SampleDataset {
	samples := make([]types.Sample, n)
	for i := range samples {
		samples[i] = types.Sample{ID: string(rune('a' + i)), Text: "sample text", ExpectedDecision: types.DecisionAccept}
	}
	return types.SampleDataset{Name: "ds", Samples: samples}
}

func TestRunAndCollectProcessesEverySample(t *testing.T) {
	ev := newTestEvaluator(t, []map[string]float64{
		{"Task.A": 0.9, "Conversational.Phatic": 0.1},
	})
	r := runner.New()
	result, err := r.RunAndCollect(context.Background(), dataset(5), ev, runner.RunnerConfig{Concurrency: 3})
	if err != nil {
		t.Fatalf("RunAndCollect: %v", err)
	}
	if len(result.Results) != 5 {
		t.Fatalf("got %d results, want 5", len(result.Results))
	}
	for i, sr := range result.Results {
		if sr.Sample.ID != string(rune('a'+i)) {
			t.Errorf("Results[%d].Sample.ID = %q, want dataset order", i, sr.Sample.ID)
		}
	}
}

func TestRunAndCollectAccumulatesConfusion(t *testing.T) {
	ev := newTestEvaluator(t, []map[string]float64{
		{"Task.A": 0.9, "Conversational.Phatic": 0.1},
	})
	r := runner.New()
	result, err := r.RunAndCollect(context.Background(), dataset(4), ev, runner.RunnerConfig{Concurrency: 2})
	if err != nil {
		t.Fatalf("RunAndCollect: %v", err)
	}
	if result.Confusion.Total() != 4 {
		t.Errorf("Confusion.Total() = %d, want 4", result.Confusion.Total())
	}
}

func TestRunReportsProgress(t *testing.T) {
	ev := newTestEvaluator(t, []map[string]float64{
		{"Task.A": 0.9, "Conversational.Phatic": 0.1},
	})
	r := runner.New()

	var tracker progressTracker
	_, err := r.RunAndCollect(context.Background(), dataset(6), ev, runner.RunnerConfig{
		Concurrency: 2,
		ProgressFn:  tracker.record,
	})
	if err != nil {
		t.Fatalf("RunAndCollect: %v", err)
	}
	if tracker.calls() != 6 {
		t.Errorf("ProgressFn called %d times, want 6", tracker.calls())
	}
}

type progressTracker struct {
	n atomic.Int64
}

func (p *progressTracker) record(completed, total int) { p.n.Add(1) }
func (p *progressTracker) calls() int                  { return int(p.n.Load()) }

func TestRunAndCollectEmitsSampleAndRunSignals(t *testing.T) {
	ev := newTestEvaluator(t, []map[string]float64{
		{"Task.A": 0.9, "Conversational.Phatic": 0.1},
	})
	r := runner.New()
	rec := emitter.NewRecording()

	if _, err := r.RunAndCollect(context.Background(), dataset(3), ev, runner.RunnerConfig{Concurrency: 2, Emit: rec}); err != nil {
		t.Fatalf("RunAndCollect: %v", err)
	}

	sigs := rec.All()
	var sampleCount int
	var sawRunDone bool
	for _, s := range sigs {
		switch s.Name {
		case "eval.sample.completed":
			sampleCount++
		case "eval.run.done":
			sawRunDone = true
		}
	}
	if sampleCount != 3 {
		t.Errorf("eval.sample.completed emitted %d times, want 3", sampleCount)
	}
	if !sawRunDone {
		t.Error("eval.run.done was never emitted")
	}
}

func TestRunRespectsContextCancellation(t *testing.T) {
	ev := newTestEvaluator(t, []map[string]float64{
		{"Task.A": 0.9, "Conversational.Phatic": 0.1},
	})
	r := runner.New()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch, err := r.Run(ctx, dataset(3), ev, runner.RunnerConfig{Concurrency: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	timeout := time.After(2 * time.Second)
	count := 0
	for range ch {
		count++
		select {
		case <-timeout:
			t.Fatal("Run did not close its channel after cancellation")
		default:
		}
	}
	if count == 0 {
		t.Skip("producer exited before any sample entered the work channel; acceptable under cancellation")
	}
}
