package types

import "testing"

func TestPlattIsIdentity(t *testing.T) {
	cases := []struct {
		name string
		p    Platt
		want bool
	}{
		{"identity", Platt{A: 1, B: 0}, true},
		{"scaled", Platt{A: 2, B: 0}, false},
		{"shifted", Platt{A: 1, B: 0.5}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.p.IsIdentity(); got != c.want {
				t.Errorf("IsIdentity() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestEvalConfigLabelByID(t *testing.T) {
	cfg := EvalConfig{
		Categories: []Category{
			{Name: "Task", KCap: 2, Labels: []Label{
				{Category: "Task", Name: "Time"},
				{Category: "Task", Name: "Place"},
			}},
		},
	}

	l, cat, ok := cfg.LabelByID(LabelID{Category: "Task", Name: "Time"})
	if !ok {
		t.Fatalf("expected label to be found")
	}
	if l.Name != "Time" || cat.Name != "Task" {
		t.Errorf("got label %+v in category %+v", l, cat)
	}

	if _, _, ok := cfg.LabelByID(LabelID{Category: "Task", Name: "Missing"}); ok {
		t.Errorf("expected missing label lookup to fail")
	}
}

func TestEvalConfigHypotheses(t *testing.T) {
	cfg := EvalConfig{
		Categories: []Category{
			{Name: "Task", Labels: []Label{
				{Category: "Task", Name: "Time", Hypothesis: "This message is about scheduling."},
			}},
			{Name: "Conversational", Labels: []Label{
				{Category: "Conversational", Name: "Phatic", Hypothesis: "This message is small talk."},
			}},
		},
	}

	ids, hyps := cfg.Hypotheses()
	if len(ids) != 2 || len(hyps) != 2 {
		t.Fatalf("expected 2 hypotheses, got %d/%d", len(ids), len(hyps))
	}
	if ids[0].String() != "Task.Time" {
		t.Errorf("ids[0] = %s, want Task.Time", ids[0].String())
	}
}

func TestConfusionMetrics(t *testing.T) {
	var c Confusion
	c.Record(DecisionAccept, DecisionAccept)
	c.Record(DecisionAccept, DecisionReject)
	c.Record(DecisionReject, DecisionReject)
	c.Record(DecisionReject, DecisionReject)

	if c.Total() != 4 {
		t.Fatalf("Total() = %d, want 4", c.Total())
	}
	if got := c.Accuracy(); got != 0.75 {
		t.Errorf("Accuracy() = %v, want 0.75", got)
	}
	if got := c.Precision(); got != 1.0 {
		t.Errorf("Precision() = %v, want 1.0", got)
	}
	if got := c.Recall(); got != 0.5 {
		t.Errorf("Recall() = %v, want 0.5", got)
	}
}

func TestConfusionZeroDenominators(t *testing.T) {
	var c Confusion
	if got := c.Accuracy(); got != 0 {
		t.Errorf("Accuracy() on empty matrix = %v, want 0", got)
	}
	if got := c.Precision(); got != 0 {
		t.Errorf("Precision() on empty matrix = %v, want 0", got)
	}
	if got := c.F1(); got != 0 {
		t.Errorf("F1() on empty matrix = %v, want 0", got)
	}
}

func TestEvalResultAppend(t *testing.T) {
	var r EvalResult
	r.Append(SampleResult{
		Sample: Sample{ID: "s1", ExpectedDecision: DecisionAccept},
		Output: EvalOutput{Decision: DecisionAccept, DurationMS: 10},
		Cost:   0.01,
	})
	r.Append(SampleResult{
		Sample: Sample{ID: "s2", ExpectedDecision: DecisionReject},
		Output: EvalOutput{Decision: DecisionReject, DurationMS: 5},
	})

	if len(r.Results) != 2 {
		t.Fatalf("len(Results) = %d, want 2", len(r.Results))
	}
	if r.Confusion.Total() != 2 {
		t.Errorf("Confusion.Total() = %d, want 2", r.Confusion.Total())
	}
	if r.TotalDurationMS != 15 {
		t.Errorf("TotalDurationMS = %d, want 15", r.TotalDurationMS)
	}
}

func TestEvalResultAppendPerLabelAndCategory(t *testing.T) {
	var r EvalResult
	r.Append(SampleResult{
		Sample: Sample{ID: "s1", ExpectedDecision: DecisionAccept, ExpectedLabels: []string{"Task.Time"}},
		Output: EvalOutput{
			Decision: DecisionAccept,
			Categories: []CategoryOutput{
				{Name: "Task", Score: 0.9, Labels: []LabelOutput{
					{Category: "Task", Name: "Time", Score: 0.9},
					{Category: "Task", Name: "Place", Score: 0},
				}},
			},
		},
	})
	r.Append(SampleResult{
		Sample: Sample{ID: "s2", ExpectedDecision: DecisionReject},
		Output: EvalOutput{
			Decision: DecisionReject,
			Categories: []CategoryOutput{
				{Name: "Task", Score: 0, Labels: []LabelOutput{
					{Category: "Task", Name: "Time", Score: 0},
					{Category: "Task", Name: "Place", Score: 0},
				}},
			},
		},
	})

	time := r.PerLabel["Task.Time"]
	if time.TruePositive != 1 || time.TrueNegative != 1 {
		t.Errorf("PerLabel[Task.Time] = %+v, want 1 TP and 1 TN", time)
	}
	place := r.PerLabel["Task.Place"]
	if place.TrueNegative != 2 {
		t.Errorf("PerLabel[Task.Place] = %+v, want 2 TN", place)
	}
	task := r.PerCategory["Task"]
	if task.TruePositive != 1 || task.TrueNegative != 1 {
		t.Errorf("PerCategory[Task] = %+v, want 1 TP and 1 TN", task)
	}
}

func TestEvalResultMergeIsAssociativeAndCommutative(t *testing.T) {
	build := func(labelScore float64, expected []string) EvalResult {
		var r EvalResult
		r.Append(SampleResult{
			Sample: Sample{ID: "s", ExpectedDecision: DecisionAccept, ExpectedLabels: expected},
			Output: EvalOutput{
				Decision: DecisionAccept,
				Categories: []CategoryOutput{
					{Name: "Task", Score: labelScore, Labels: []LabelOutput{
						{Category: "Task", Name: "Time", Score: labelScore},
					}},
				},
			},
			Cost: 0.02,
		})
		return r
	}

	a := build(0.9, []string{"Task.Time"})
	b := build(0, nil)
	c := build(0.5, []string{"Task.Time"})

	abThenC := a.Merge(b).Merge(c)
	aThenBC := a.Merge(b.Merge(c))
	if abThenC.Confusion != aThenBC.Confusion {
		t.Errorf("Merge not associative on Confusion: %+v vs %+v", abThenC.Confusion, aThenBC.Confusion)
	}
	if abThenC.PerLabel["Task.Time"] != aThenBC.PerLabel["Task.Time"] {
		t.Errorf("Merge not associative on PerLabel: %+v vs %+v", abThenC.PerLabel, aThenBC.PerLabel)
	}
	if abThenC.TotalCost != aThenBC.TotalCost {
		t.Errorf("Merge not associative on TotalCost: %v vs %v", abThenC.TotalCost, aThenBC.TotalCost)
	}

	ab := a.Merge(b)
	ba := b.Merge(a)
	if ab.Confusion != ba.Confusion {
		t.Errorf("Merge not commutative on Confusion: %+v vs %+v", ab.Confusion, ba.Confusion)
	}
	if ab.PerLabel["Task.Time"] != ba.PerLabel["Task.Time"] {
		t.Errorf("Merge not commutative on PerLabel: %+v vs %+v", ab.PerLabel, ba.PerLabel)
	}
	if ab.TotalCost != ba.TotalCost {
		t.Errorf("Merge not commutative on TotalCost: %v vs %v", ab.TotalCost, ba.TotalCost)
	}
}
