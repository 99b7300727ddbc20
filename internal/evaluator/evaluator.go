// Package evaluator turns raw per-label Scorer confidences into a
// calibrated, weighted, thresholded accept/reject decision.
package evaluator

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/memgate/engine/internal/cache"
	"github.com/memgate/engine/internal/scorer"
	"github.com/memgate/engine/pkg/types"
)

// Evaluator holds an immutable EvalConfig and a Scorer. It is not safe for
// concurrent Score calls unless the underlying Scorer is — callers driving
// many evaluations concurrently should serialize access (see
// internal/runner) or construct one Evaluator per worker.
type Evaluator struct {
	cfg     types.EvalConfig
	sc      scorer.Scorer
	history *cache.HistoryStore
	dynCfg  DynamicConfig
}

// Option configures optional Evaluator behavior.
type Option func(*Evaluator)

// WithHistoryStore attaches a HistoryStore, enabling the dynamic-threshold
// supplement for labels configured with threshold_mode "dynamic", and
// causing every evaluation to record its calibrated per-label scores.
func WithHistoryStore(store *cache.HistoryStore) Option {
	return func(e *Evaluator) { e.history = store }
}

// WithDynamicConfig overrides the window size / k-stddev used by the
// dynamic-threshold supplement. No effect without WithHistoryStore.
func WithDynamicConfig(cfg DynamicConfig) Option {
	return func(e *Evaluator) { e.dynCfg = cfg }
}

// New validates cfg and constructs an Evaluator bound to sc. Configuration
// errors (duplicate labels, out-of-range weights/thresholds, an
// unresolvable phatic label, non-positive k_cap, negative length limits or
// a short_limit above long_limit) are surfaced here, never during Score.
func New(cfg types.EvalConfig, sc scorer.Scorer, opts ...Option) (*Evaluator, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	e := &Evaluator{cfg: cfg, sc: sc, dynCfg: DefaultDynamicConfig}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func validateConfig(cfg types.EvalConfig) error {
	seen := make(map[types.LabelID]bool)
	for _, cat := range cfg.Categories {
		if cat.KCap < 1 {
			return &types.ConfigError{Err: fmt.Errorf("category %q: k_cap must be >= 1, got %d", cat.Name, cat.KCap)}
		}
		for _, l := range cat.Labels {
			id := l.ID()
			if seen[id] {
				return &types.ConfigError{Err: fmt.Errorf("duplicate label %s", id)}
			}
			seen[id] = true

			if l.Weight < 0 || l.Weight > 1 {
				return &types.ConfigError{Err: fmt.Errorf("label %s: weight %v out of [0,1]", id, l.Weight)}
			}
			if l.Threshold < 0 || l.Threshold > 1 {
				return &types.ConfigError{Err: fmt.Errorf("label %s: threshold %v out of [0,1]", id, l.Threshold)}
			}
		}
	}

	if cfg.Modifier.ShortLimit < 0 || cfg.Modifier.LongLimit < 0 {
		return &types.ConfigError{Err: fmt.Errorf("modifier length limits must be non-negative")}
	}
	if cfg.Modifier.ShortLimit > cfg.Modifier.LongLimit {
		return &types.ConfigError{Err: fmt.Errorf("short_limit (%d) must be <= long_limit (%d)", cfg.Modifier.ShortLimit, cfg.Modifier.LongLimit)}
	}

	phatic := cfg.PhaticLabel
	if phatic == (types.PhaticLabelRef{}) {
		phatic = types.DefaultPhaticLabelRef()
	}
	if _, _, ok := cfg.LabelByID(types.LabelID{Category: phatic.Category, Name: phatic.Name}); !ok {
		return &types.ConfigError{Err: fmt.Errorf("phatic label %s.%s is not configured", phatic.Category, phatic.Name)}
	}

	return nil
}

// Score runs the full algorithm against text and returns the resulting
// EvalOutput, deterministic given a deterministic Scorer.
func (e *Evaluator) Score(ctx context.Context, text string) (types.EvalOutput, error) {
	start := time.Now()

	normalized := strings.TrimSpace(text)
	length := utf8.RuneCountInString(normalized)
	threshold := AppliedThreshold(e.cfg.Modifier, length)

	if normalized == "" {
		return types.EvalOutput{
			Threshold:   threshold,
			Decision:    types.DecisionReject,
			Reason:      types.ReasonBelowThreshold,
			InputLength: length,
			DurationMS:  time.Since(start).Milliseconds(),
		}, nil
	}

	raw, err := e.sc.Score(ctx, normalized)
	if err != nil {
		return types.EvalOutput{}, err
	}
	rawByID := make(map[types.LabelID]float64, len(raw))
	for _, s := range raw {
		rawByID[s.ID] = s.Raw
	}

	phaticRef := e.cfg.PhaticLabel
	if phaticRef == (types.PhaticLabelRef{}) {
		phaticRef = types.DefaultPhaticLabelRef()
	}
	phaticID := types.LabelID{Category: phaticRef.Category, Name: phaticRef.Name}

	categories := make([]types.CategoryOutput, 0, len(e.cfg.Categories))
	var phaticScore float64

	for _, cat := range e.cfg.Categories {
		labelOutputs := make([]types.LabelOutput, 0, len(cat.Labels))
		for _, l := range cat.Labels {
			rawVal := rawByID[l.ID()]
			calibrated := scorer.Calibrate(rawVal, l.Platt)

			gateThreshold := l.Threshold
			if l.ThresholdMode == "dynamic" {
				gateThreshold = DynamicThreshold(e.history, l.ID().String(), e.dynCfg, l.Threshold)
			}

			score := 0.0
			if calibrated >= gateThreshold {
				score = calibrated * l.Weight
			}

			labelOutputs = append(labelOutputs, types.LabelOutput{
				Category:   l.Category,
				Name:       l.Name,
				Raw:        rawVal,
				Calibrated: calibrated,
				Score:      score,
			})

			if l.ID() == phaticID {
				phaticScore = calibrated
			}

			if e.history != nil {
				_ = e.history.Record(l.ID().String(), calibrated)
			}
		}
		categories = append(categories, AggregateCategory(cat, labelOutputs))
	}

	overall := Overall(categories)

	out := types.EvalOutput{
		Categories:  categories,
		Overall:     overall,
		Threshold:   threshold,
		PhaticScore: phaticScore,
		InputLength: length,
	}

	switch {
	case phaticScore >= e.cfg.PhaticVetoThreshold:
		out.Decision = types.DecisionReject
		out.Reason = types.ReasonPhatic
	case overall >= threshold:
		out.Decision = types.DecisionAccept
		out.Reason = types.ReasonNone
	default:
		out.Decision = types.DecisionReject
		out.Reason = types.ReasonBelowThreshold
	}

	out.DurationMS = time.Since(start).Milliseconds()
	return out, nil
}

// Decide re-derives a Decision from an already-computed EvalOutput at an
// alternate threshold T, without re-scoring. Phatic veto still takes
// precedence.
func Decide(out types.EvalOutput, phaticVetoThreshold, T float64) (types.Decision, types.RejectReason) {
	switch {
	case out.PhaticScore >= phaticVetoThreshold:
		return types.DecisionReject, types.ReasonPhatic
	case out.Overall >= T:
		return types.DecisionAccept, types.ReasonNone
	default:
		return types.DecisionReject, types.ReasonBelowThreshold
	}
}

// DetectedLabels returns the label ids with Score > 0, across every
// category, in declaration order.
func DetectedLabels(out types.EvalOutput) []types.LabelID {
	return out.DetectedLabels()
}

// ToResult compares out's decision and detected labels against sample's
// expectations and produces a SampleResult.
func ToResult(out types.EvalOutput, sample types.Sample) types.SampleResult {
	detected := DetectedLabels(out)
	decisionMatch := out.Decision == sample.ExpectedDecision
	labelsMatch := sample.ExpectedLabels == nil || types.LabelsMatch(detected, sample.ExpectedLabels)

	return types.SampleResult{
		Sample:  sample,
		Output:  out,
		Correct: decisionMatch && labelsMatch,
	}
}
