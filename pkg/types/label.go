package types

// Label identifies a single zero-shot hypothesis within a Category.
// Labels are keyed by the pair (category, name); the same Name may recur
// across different Categories (e.g. a "Time" label under both Task and
// Conversational) without conflict.
type Label struct {
	Category   string  `json:"category" yaml:"category"`
	Name       string  `json:"name" yaml:"name"`
	Hypothesis string  `json:"hypothesis" yaml:"hypothesis"`
	Weight     float64 `json:"weight" yaml:"weight"`
	Threshold  float64 `json:"threshold" yaml:"threshold"`
	Platt      Platt   `json:"platt" yaml:"platt"`

	// ThresholdMode selects how the label's calibrated score is gated.
	// "" or "static" uses Threshold directly; "dynamic" compares against
	// rolling history when a history store is attached to the Evaluator.
	ThresholdMode string `json:"threshold_mode,omitempty" yaml:"threshold_mode,omitempty"`
}

// Platt holds logistic calibration parameters c' = sigmoid(a*c + b).
// (1, 0) is the identity mapping and must be short-circuited by callers.
type Platt struct {
	A float64 `json:"a" yaml:"a"`
	B float64 `json:"b" yaml:"b"`
}

// IsIdentity reports whether this Platt mapping is the identity (1, 0).
func (p Platt) IsIdentity() bool {
	return p.A == 1 && p.B == 0
}

// ID returns the (category, name) pair as used for map keys and equality.
func (l Label) ID() LabelID {
	return LabelID{Category: l.Category, Name: l.Name}
}

// LabelID is the unique identity of a Label: the (category, name) pair.
type LabelID struct {
	Category string
	Name     string
}

func (id LabelID) String() string {
	return id.Category + "." + id.Name
}

// Category groups Labels and defines the top-k aggregation width for them.
type Category struct {
	Name   string  `json:"name" yaml:"name"`
	KCap   int     `json:"k_cap" yaml:"k_cap"`
	Labels []Label `json:"labels" yaml:"labels"`
}

// ModifierConfig defines the length-sensitive global threshold adjustment.
type ModifierConfig struct {
	BaseThreshold float64 `json:"base_threshold" yaml:"base_threshold"`
	ShortDelta    float64 `json:"short_delta" yaml:"short_delta"`
	LongDelta     float64 `json:"long_delta" yaml:"long_delta"`
	ShortLimit    int     `json:"short_limit" yaml:"short_limit"`
	LongLimit     int     `json:"long_limit" yaml:"long_limit"`
}

// DefaultModifierConfig returns the canonical defaults from the spec.
func DefaultModifierConfig() ModifierConfig {
	return ModifierConfig{
		BaseThreshold: 0.75,
		ShortDelta:    0.05,
		LongDelta:     0.05,
		ShortLimit:    20,
		LongLimit:     200,
	}
}

// PhaticLabelRef names the (category, name) pair that carries the phatic veto.
type PhaticLabelRef struct {
	Category string `json:"category" yaml:"category"`
	Name     string `json:"name" yaml:"name"`
}

// DefaultPhaticLabelRef is the fallback location for the phatic veto label
// when configuration does not specify one (see spec.md Open Questions).
func DefaultPhaticLabelRef() PhaticLabelRef {
	return PhaticLabelRef{Category: "Conversational", Name: "Phatic"}
}

// EvalConfig is the fully-resolved, immutable configuration for an Evaluator.
// It is constructed once at startup and never mutated afterward.
type EvalConfig struct {
	Categories          []Category     `json:"categories" yaml:"categories"`
	Modifier            ModifierConfig `json:"modifier" yaml:"modifier"`
	PhaticVetoThreshold float64        `json:"phatic_veto_threshold" yaml:"phatic_veto_threshold"`
	PhaticLabel         PhaticLabelRef `json:"phatic_label" yaml:"phatic_label"`
}

// LabelByID returns the Label with the given id and the Category it belongs
// to, or false if no such label is configured.
func (c *EvalConfig) LabelByID(id LabelID) (Label, Category, bool) {
	for _, cat := range c.Categories {
		if cat.Name != id.Category {
			continue
		}
		for _, l := range cat.Labels {
			if l.Name == id.Name {
				return l, cat, true
			}
		}
	}
	return Label{}, Category{}, false
}

// AllLabels returns every configured Label across every Category, in
// declaration order.
func (c *EvalConfig) AllLabels() []Label {
	var out []Label
	for _, cat := range c.Categories {
		out = append(out, cat.Labels...)
	}
	return out
}

// Hypotheses returns the label ids and hypothesis strings in declaration
// order, the shape the Scorer contract consumes.
func (c *EvalConfig) Hypotheses() ([]LabelID, []string) {
	labels := c.AllLabels()
	ids := make([]LabelID, len(labels))
	hyps := make([]string, len(labels))
	for i, l := range labels {
		ids[i] = l.ID()
		hyps[i] = l.Hypothesis
	}
	return ids, hyps
}
