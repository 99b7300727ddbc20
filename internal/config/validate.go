package config

import (
	"fmt"

	"github.com/memgate/engine/pkg/types"
)

// validateSemantics runs the cross-field checks spec.md §6 lists that the
// JSON Schema pass cannot express: unique (category,name) pairs, phatic
// label resolvability, positive length limits (the schema admits 0), and
// range checks already enforced by the schema but re-checked here in case a
// caller builds a Config by hand rather than via Load.
func validateSemantics(cfg types.EvalConfig) error {
	seen := map[types.LabelID]bool{}
	for _, cat := range cfg.Categories {
		if cat.KCap < 1 {
			return fmt.Errorf("category %q: k_cap must be >= 1, got %d", cat.Name, cat.KCap)
		}
		for _, l := range cat.Labels {
			id := types.LabelID{Category: l.Category, Name: l.Name}
			if seen[id] {
				return fmt.Errorf("duplicate label %s", id)
			}
			seen[id] = true
			if l.Weight < 0 || l.Weight > 1 {
				return fmt.Errorf("label %s: weight %v out of [0,1]", id, l.Weight)
			}
			if l.Threshold < 0 || l.Threshold > 1 {
				return fmt.Errorf("label %s: threshold %v out of [0,1]", id, l.Threshold)
			}
		}
	}

	m := cfg.Modifier
	if m.ShortLimit < 1 || m.LongLimit < 1 {
		return fmt.Errorf("modifier limits must be positive")
	}
	if m.ShortLimit > m.LongLimit {
		return fmt.Errorf("modifier short_limit (%d) must be <= long_limit (%d)", m.ShortLimit, m.LongLimit)
	}

	if _, _, ok := cfg.LabelByID(types.LabelID{Category: cfg.PhaticLabel.Category, Name: cfg.PhaticLabel.Name}); !ok {
		return fmt.Errorf("phatic label %s.%s is not declared in any category", cfg.PhaticLabel.Category, cfg.PhaticLabel.Name)
	}

	return nil
}
