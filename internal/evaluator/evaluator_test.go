package evaluator

import (
	"context"
	"math"
	"testing"

	"github.com/memgate/engine/internal/scorer"
	"github.com/memgate/engine/pkg/types"
)

// canonicalConfig matches spec.md's end-to-end scenario config:
// base=0.75, short_delta=long_delta=0.05, short_limit=20, long_limit=200,
// phatic_veto=0.80, k_cap=2, all Platt identity.
func canonicalConfig() types.EvalConfig {
	identity := types.Platt{A: 1, B: 0}
	return types.EvalConfig{
		Modifier: types.ModifierConfig{
			BaseThreshold: 0.75,
			ShortDelta:    0.05,
			LongDelta:     0.05,
			ShortLimit:    20,
			LongLimit:     200,
		},
		PhaticVetoThreshold: 0.80,
		PhaticLabel:         types.PhaticLabelRef{Category: "Conversational", Name: "Phatic"},
		Categories: []types.Category{
			{
				Name: "Task", KCap: 2,
				Labels: []types.Label{
					{Category: "Task", Name: "A", Hypothesis: "hyp a", Weight: 0.8, Threshold: 0.5, Platt: identity},
					{Category: "Task", Name: "B", Hypothesis: "hyp b", Weight: 0.9, Threshold: 0.5, Platt: identity},
				},
			},
			{
				Name: "Conversational", KCap: 2,
				Labels: []types.Label{
					{Category: "Conversational", Name: "Phatic", Hypothesis: "small talk", Weight: 1.0, Threshold: 0.0, Platt: identity},
				},
			},
		},
	}
}

func newEvaluator(t *testing.T, cfg types.EvalConfig, responses map[string]float64) *Evaluator {
	t.Helper()
	ids, hyps := cfg.Hypotheses()
	sc := scorer.NewMockScorer(ids, hyps, []map[string]float64{responses}, nil)
	ev, err := New(cfg, sc)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return ev
}

func TestScorePhaticVeto(t *testing.T) {
	cfg := canonicalConfig()
	ev := newEvaluator(t, cfg, map[string]float64{
		"Task.A": 0.1, "Task.B": 0.1, "Conversational.Phatic": 0.90,
	})

	out, err := ev.Score(context.Background(), "hi how are you?")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if out.Decision != types.DecisionReject || out.Reason != types.ReasonPhatic {
		t.Errorf("decision = %s/%s, want reject/phatic", out.Decision, out.Reason)
	}
}

func TestScoreShortAccept(t *testing.T) {
	cfg := canonicalConfig()
	ev := newEvaluator(t, cfg, map[string]float64{
		"Task.A": 0.9, "Task.B": 0.8, "Conversational.Phatic": 0.1,
	})

	out, err := ev.Score(context.Background(), "short text.") // L=11 <= 20
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if out.Threshold != 0.70 {
		t.Errorf("threshold = %v, want 0.70", out.Threshold)
	}
	// category_score = mean(0.9*0.8, 0.8*0.9) = mean(0.72, 0.72) = 0.72
	if got, _ := out.CategoryScore("Task"); math.Abs(got-0.72) > 1e-9 {
		t.Errorf("Task category score = %v, want 0.72", got)
	}
	if out.Decision != types.DecisionAccept {
		t.Errorf("decision = %s, want accept", out.Decision)
	}
}

func TestScoreLongStricterRejects(t *testing.T) {
	cfg := canonicalConfig()
	ev := newEvaluator(t, cfg, map[string]float64{
		"Task.A": 0.9, "Task.B": 0.8, "Conversational.Phatic": 0.1,
	})

	longText := ""
	for i := 0; i < 250; i++ {
		longText += "a"
	}

	out, err := ev.Score(context.Background(), longText)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if out.Threshold != 0.80 {
		t.Errorf("threshold = %v, want 0.80", out.Threshold)
	}
	// overall = 0.72 < 0.80
	if out.Decision != types.DecisionReject || out.Reason != types.ReasonBelowThreshold {
		t.Errorf("decision = %s/%s, want reject/below_threshold", out.Decision, out.Reason)
	}
}

func TestScoreTopKBoundarySingleNonZero(t *testing.T) {
	cfg := canonicalConfig()
	// Task.B scores below its gate threshold -> 0; Task.A passes with calibrated 1.0.
	ev := newEvaluator(t, cfg, map[string]float64{
		"Task.A": 1.0, "Task.B": 0.0, "Conversational.Phatic": 0.0,
	})

	out, err := ev.Score(context.Background(), "medium length input string")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	got, _ := out.CategoryScore("Task")
	// Task.A score = 1.0*0.8 = 0.8, k = min(2,1) = 1 -> category_score = 0.8, not 0.4.
	if got != 0.8 {
		t.Errorf("category score = %v, want 0.8 (k=1 mean, not averaged with the zero label)", got)
	}
}

func TestScoreEmptyTextRejectsBelowThreshold(t *testing.T) {
	cfg := canonicalConfig()
	ev := newEvaluator(t, cfg, nil)

	out, err := ev.Score(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if out.Decision != types.DecisionReject || out.Reason != types.ReasonBelowThreshold {
		t.Errorf("decision = %s/%s, want reject/below_threshold", out.Decision, out.Reason)
	}
	if out.Overall != 0 {
		t.Errorf("overall = %v, want 0", out.Overall)
	}
}

func TestAppliedThresholdBoundaries(t *testing.T) {
	m := types.ModifierConfig{BaseThreshold: 0.75, ShortDelta: 0.05, LongDelta: 0.05, ShortLimit: 20, LongLimit: 200}

	cases := []struct {
		length int
		want   float64
	}{
		{20, 0.70},
		{21, 0.75},
		{200, 0.75},
		{201, 0.80},
	}
	for _, c := range cases {
		if got := AppliedThreshold(m, c.length); got != c.want {
			t.Errorf("AppliedThreshold(len=%d) = %v, want %v", c.length, got, c.want)
		}
	}
}

func TestOverallMonotonicity(t *testing.T) {
	cfg := canonicalConfig()
	low := newEvaluator(t, cfg, map[string]float64{"Task.A": 0.5, "Task.B": 0.5, "Conversational.Phatic": 0})
	high := newEvaluator(t, cfg, map[string]float64{"Task.A": 0.9, "Task.B": 0.5, "Conversational.Phatic": 0})

	outLow, _ := low.Score(context.Background(), "some text here")
	outHigh, _ := high.Score(context.Background(), "some text here")

	if outHigh.Overall < outLow.Overall {
		t.Errorf("raising a raw label score decreased overall: %v -> %v", outLow.Overall, outHigh.Overall)
	}
}

func TestDecidePurelyFromOutput(t *testing.T) {
	out := types.EvalOutput{Overall: 0.72, PhaticScore: 0.1}
	d1, r1 := Decide(out, 0.8, 0.75)
	if d1 != types.DecisionReject || r1 != types.ReasonBelowThreshold {
		t.Errorf("Decide at T=0.75: got %s/%s", d1, r1)
	}
	d2, r2 := Decide(out, 0.8, 0.70)
	if d2 != types.DecisionAccept {
		t.Errorf("Decide at T=0.70: got %s/%s", d2, r2)
	}
}

func TestNewRejectsUnresolvablePhaticLabel(t *testing.T) {
	cfg := canonicalConfig()
	cfg.PhaticLabel = types.PhaticLabelRef{Category: "Nope", Name: "Missing"}
	ids, hyps := cfg.Hypotheses()
	sc := scorer.NewMockScorer(ids, hyps, nil, nil)

	if _, err := New(cfg, sc); err == nil {
		t.Fatal("expected ConfigError for unresolvable phatic label")
	}
}

func TestNewRejectsOutOfRangeWeight(t *testing.T) {
	cfg := canonicalConfig()
	cfg.Categories[0].Labels[0].Weight = 1.5
	ids, hyps := cfg.Hypotheses()
	sc := scorer.NewMockScorer(ids, hyps, nil, nil)

	if _, err := New(cfg, sc); err == nil {
		t.Fatal("expected ConfigError for out-of-range weight")
	}
}
