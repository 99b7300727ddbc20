package types

// Decision is the final accept/reject verdict for one evaluated sample.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// RejectReason explains a DecisionReject. The zero value is used only
// alongside DecisionAccept, where it carries no meaning.
type RejectReason string

const (
	ReasonNone           RejectReason = ""
	ReasonBelowThreshold RejectReason = "below_threshold"
	ReasonPhatic         RejectReason = "phatic"
)

// LabelOutput is the per-hypothesis scoring result: the raw entailment
// probability from the Scorer, the calibrated score after Platt scaling,
// and the gated score (calibrated * weight, or 0 if below the label's own
// threshold).
type LabelOutput struct {
	Category      string  `json:"category"`
	Name          string  `json:"name"`
	Raw           float64 `json:"raw"`
	Calibrated    float64 `json:"calibrated"`
	Score         float64 `json:"score"`
	SentenceIndex *int    `json:"sentence_index,omitempty"`
}

// ID returns the (category, name) pair identifying this label output.
func (l LabelOutput) ID() LabelID {
	return LabelID{Category: l.Category, Name: l.Name}
}

// CategoryOutput is the aggregated result for one Category: the top-k mean
// of its member LabelOutputs' non-zero scores.
type CategoryOutput struct {
	Name   string        `json:"name"`
	Score  float64       `json:"score"`
	K      int           `json:"k"`
	Labels []LabelOutput `json:"labels"`
}

// EvalOutput is the complete result of evaluating a single input against
// the full label set: per-category aggregates, the phatic veto state, the
// length-adjusted global threshold that was applied, and the resulting
// Decision.
type EvalOutput struct {
	Categories   []CategoryOutput `json:"categories"`
	Overall      float64          `json:"overall"`
	Threshold    float64          `json:"threshold_applied"`
	PhaticScore  float64          `json:"phatic_score"`
	Decision     Decision         `json:"decision"`
	Reason       RejectReason     `json:"reason,omitempty"`
	InputLength  int              `json:"input_length"`
	DurationMS   int64            `json:"duration_ms"`
}

// CategoryScore returns the aggregated score for the named category and
// whether that category exists in the output.
func (o *EvalOutput) CategoryScore(name string) (float64, bool) {
	for _, c := range o.Categories {
		if c.Name == name {
			return c.Score, true
		}
	}
	return 0, false
}

// DetectedLabels returns the label ids of every LabelOutput with Score > 0,
// across all categories, in declaration order.
func (o *EvalOutput) DetectedLabels() []LabelID {
	var out []LabelID
	for _, cat := range o.Categories {
		for _, l := range cat.Labels {
			if l.Score > 0 {
				out = append(out, l.ID())
			}
		}
	}
	return out
}
