package config

import "github.com/memgate/engine/pkg/types"

// document mirrors the config shape spec.md §6 describes, decoded from the
// merged JSON bridge (see loader.go). Field names match the document's
// snake_case keys.
type document struct {
	Layers      layersDoc `json:"layers"`
	Concurrency int       `json:"concurrency"`
	BatchSize   int       `json:"batch_size"`
}

type layersDoc struct {
	Eval evalLayerDoc `json:"eval"`
}

type evalLayerDoc struct {
	Modifier            modifierDoc   `json:"modifier"`
	PhaticVetoThreshold *float64      `json:"phatic_veto_threshold"`
	PhaticLabel         *phaticDoc    `json:"phatic_label"`
	Categories          []categoryDoc `json:"categories"`
}

type modifierDoc struct {
	BaseThreshold *float64 `json:"base_threshold"`
	ShortDelta    *float64 `json:"short_delta"`
	LongDelta     *float64 `json:"long_delta"`
	ShortLimit    *int     `json:"short_limit"`
	LongLimit     *int     `json:"long_limit"`
}

type phaticDoc struct {
	Category string `json:"category"`
	Name     string `json:"name"`
}

type categoryDoc struct {
	Name   string     `json:"name"`
	KCap   *int       `json:"k_cap"`
	Labels []labelDoc `json:"labels"`
}

type labelDoc struct {
	Name          string    `json:"name"`
	Hypothesis    string    `json:"hypothesis"`
	Weight        *float64  `json:"weight"`
	Threshold     *float64  `json:"threshold"`
	ThresholdMode string    `json:"threshold_mode"`
	Platt         *plattDoc `json:"platt"`
}

type plattDoc struct {
	A *float64 `json:"a"`
	B *float64 `json:"b"`
}

// toRunConfig converts the decoded document into the core EvalConfig plus
// the runner-facing concurrency/batch_size hints, applying every default
// spec.md §6 specifies.
func (d *document) toRunConfig() (types.EvalConfig, RunHints) {
	m := d.Layers.Eval.Modifier
	modifier := types.ModifierConfig{
		BaseThreshold: orFloat(m.BaseThreshold, 0.75),
		ShortDelta:    orFloat(m.ShortDelta, 0.05),
		LongDelta:     orFloat(m.LongDelta, 0.05),
		ShortLimit:    orInt(m.ShortLimit, 20),
		LongLimit:     orInt(m.LongLimit, 200),
	}

	phaticLabel := types.DefaultPhaticLabelRef()
	if d.Layers.Eval.PhaticLabel != nil {
		phaticLabel = types.PhaticLabelRef{
			Category: d.Layers.Eval.PhaticLabel.Category,
			Name:     d.Layers.Eval.PhaticLabel.Name,
		}
	}

	categories := make([]types.Category, len(d.Layers.Eval.Categories))
	for i, c := range d.Layers.Eval.Categories {
		labels := make([]types.Label, len(c.Labels))
		for j, l := range c.Labels {
			platt := types.Platt{A: 1, B: 0}
			if l.Platt != nil {
				platt = types.Platt{A: orFloat(l.Platt.A, 1), B: orFloat(l.Platt.B, 0)}
			}
			mode := l.ThresholdMode
			if mode == "" {
				mode = "static"
			}
			labels[j] = types.Label{
				Category:      c.Name,
				Name:          l.Name,
				Hypothesis:    l.Hypothesis,
				Weight:        orFloat(l.Weight, 1.0),
				Threshold:     orFloat(l.Threshold, 0.5),
				Platt:         platt,
				ThresholdMode: mode,
			}
		}
		categories[i] = types.Category{
			Name:   c.Name,
			KCap:   orInt(c.KCap, 2),
			Labels: labels,
		}
	}

	cfg := types.EvalConfig{
		Categories:          categories,
		Modifier:            modifier,
		PhaticVetoThreshold: orFloat(d.Layers.Eval.PhaticVetoThreshold, 0.80),
		PhaticLabel:         phaticLabel,
	}

	hints := RunHints{
		Concurrency: d.Concurrency,
		BatchSize:   d.BatchSize,
	}

	return cfg, hints
}

// RunHints carries the runner-facing config sections (concurrency,
// batch_size) that live outside layers.eval.
type RunHints struct {
	Concurrency int
	BatchSize   int
}

func orFloat(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func orInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
