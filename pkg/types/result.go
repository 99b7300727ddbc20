package types

import "sort"

// LabelsMatch reports whether detected label ids equal the expected
// "Category.Name" strings, order-insensitive.
func LabelsMatch(detected []LabelID, expected []string) bool {
	if len(detected) != len(expected) {
		return false
	}
	got := make([]string, len(detected))
	for i, id := range detected {
		got[i] = id.String()
	}
	want := append([]string(nil), expected...)
	sort.Strings(got)
	sort.Strings(want)
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// SampleResult pairs one Sample's ground truth with the Decision the
// Evaluator produced for it, plus the full scoring breakdown for reports.
type SampleResult struct {
	Sample  Sample     `json:"sample"`
	Output  EvalOutput `json:"output"`
	Correct bool       `json:"correct"`
	Cost    float64    `json:"cost,omitempty"`
}

// Confusion holds the four cells of a binary confusion matrix. At the
// decision level it's counted accept/reject against Sample.ExpectedDecision;
// at the label and category level it's counted fired/expected against
// Sample.ExpectedLabels.
type Confusion struct {
	TruePositive  int `json:"true_positive"`
	FalsePositive int `json:"false_positive"`
	TrueNegative  int `json:"true_negative"`
	FalseNegative int `json:"false_negative"`
}

// Record updates the confusion matrix with one (expected, actual) Decision
// pair. "accept" is treated as the positive class.
func (c *Confusion) Record(expected, actual Decision) {
	c.RecordBool(expected == DecisionAccept, actual == DecisionAccept)
}

// RecordBool updates the confusion matrix with one (expected, actual)
// boolean pair, where true is the positive class.
func (c *Confusion) RecordBool(expected, actual bool) {
	switch {
	case expected && actual:
		c.TruePositive++
	case !expected && actual:
		c.FalsePositive++
	case !expected && !actual:
		c.TrueNegative++
	case expected && !actual:
		c.FalseNegative++
	}
}

// Merge returns a new Confusion with c's and other's cells summed. Merge is
// associative and commutative.
func (c Confusion) Merge(other Confusion) Confusion {
	return Confusion{
		TruePositive:  c.TruePositive + other.TruePositive,
		FalsePositive: c.FalsePositive + other.FalsePositive,
		TrueNegative:  c.TrueNegative + other.TrueNegative,
		FalseNegative: c.FalseNegative + other.FalseNegative,
	}
}

// Total returns the number of samples recorded into the matrix.
func (c *Confusion) Total() int {
	return c.TruePositive + c.FalsePositive + c.TrueNegative + c.FalseNegative
}

// Accuracy returns (TP+TN)/Total, or 0 if no samples were recorded.
func (c *Confusion) Accuracy() float64 {
	total := c.Total()
	if total == 0 {
		return 0
	}
	return float64(c.TruePositive+c.TrueNegative) / float64(total)
}

// Precision returns TP/(TP+FP), or 0 if the denominator is 0.
func (c *Confusion) Precision() float64 {
	denom := c.TruePositive + c.FalsePositive
	if denom == 0 {
		return 0
	}
	return float64(c.TruePositive) / float64(denom)
}

// Recall returns TP/(TP+FN), or 0 if the denominator is 0.
func (c *Confusion) Recall() float64 {
	denom := c.TruePositive + c.FalseNegative
	if denom == 0 {
		return 0
	}
	return float64(c.TruePositive) / float64(denom)
}

// F1 returns the harmonic mean of Precision and Recall, or 0 if both are 0.
func (c *Confusion) F1() float64 {
	p, r := c.Precision(), c.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// EvalResult is the aggregate outcome of running an entire SampleDataset
// through an Evaluator: per-sample results plus summary metrics, at the
// decision, label, and category level.
//
// PerLabel and PerCategory are keyed by LabelID.String() ("Category.Name")
// and by bare category name respectively. A label or category counts as
// "fired" when its LabelOutput/CategoryOutput Score is > 0, and as
// "expected" when it (or, for a category, any of its labels) appears in the
// sample's ExpectedLabels.
type EvalResult struct {
	DatasetName     string               `json:"dataset_name"`
	Results         []SampleResult       `json:"results"`
	Confusion       Confusion            `json:"confusion"`
	PerLabel        map[string]Confusion `json:"per_label,omitempty"`
	PerCategory     map[string]Confusion `json:"per_category,omitempty"`
	TotalCost       float64              `json:"total_cost,omitempty"`
	TotalDurationMS int64                `json:"total_duration_ms"`
}

// Append records one SampleResult and updates the running decision-level,
// label-level, and category-level confusion matrices.
func (r *EvalResult) Append(sr SampleResult) {
	r.Results = append(r.Results, sr)
	r.Confusion.Record(sr.Sample.ExpectedDecision, sr.Output.Decision)
	r.TotalCost += sr.Cost
	r.TotalDurationMS += sr.Output.DurationMS
	r.recordLabelsAndCategories(sr)
}

func (r *EvalResult) recordLabelsAndCategories(sr SampleResult) {
	if r.PerLabel == nil {
		r.PerLabel = make(map[string]Confusion)
	}
	if r.PerCategory == nil {
		r.PerCategory = make(map[string]Confusion)
	}

	expectedLabels := make(map[string]bool, len(sr.Sample.ExpectedLabels))
	for _, l := range sr.Sample.ExpectedLabels {
		expectedLabels[l] = true
	}

	for _, cat := range sr.Output.Categories {
		categoryExpected := false
		for _, l := range cat.Labels {
			id := l.ID().String()
			labelExpected := expectedLabels[id]
			if labelExpected {
				categoryExpected = true
			}
			c := r.PerLabel[id]
			c.RecordBool(labelExpected, l.Score > 0)
			r.PerLabel[id] = c
		}

		c := r.PerCategory[cat.Name]
		c.RecordBool(categoryExpected, cat.Score > 0)
		r.PerCategory[cat.Name] = c
	}
}

// Merge returns a new EvalResult combining r and other: Results are
// concatenated and every tally (Confusion, PerLabel, PerCategory, TotalCost,
// TotalDurationMS) is summed. Merge is associative and commutative on the
// tallies.
func (r EvalResult) Merge(other EvalResult) EvalResult {
	name := r.DatasetName
	if name == "" {
		name = other.DatasetName
	}

	results := make([]SampleResult, 0, len(r.Results)+len(other.Results))
	results = append(results, r.Results...)
	results = append(results, other.Results...)

	return EvalResult{
		DatasetName:     name,
		Results:         results,
		Confusion:       r.Confusion.Merge(other.Confusion),
		PerLabel:        mergeConfusionMaps(r.PerLabel, other.PerLabel),
		PerCategory:     mergeConfusionMaps(r.PerCategory, other.PerCategory),
		TotalCost:       r.TotalCost + other.TotalCost,
		TotalDurationMS: r.TotalDurationMS + other.TotalDurationMS,
	}
}

func mergeConfusionMaps(a, b map[string]Confusion) map[string]Confusion {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[string]Confusion, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = out[k].Merge(v)
	}
	return out
}
