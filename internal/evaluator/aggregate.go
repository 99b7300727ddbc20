package evaluator

import (
	"sort"

	"github.com/memgate/engine/pkg/types"
)

// AggregateCategory computes the top-k mean of a category's non-zero label
// scores: k = min(k_cap, max(1, nonzero_count)), mean of the k largest
// scores, 0 if every label score is 0. Ties sort stably by declaration
// order (the incoming slice order), keeping results reproducible across
// runs with identical scores.
func AggregateCategory(cat types.Category, labels []types.LabelOutput) types.CategoryOutput {
	kCap := cat.KCap
	if kCap < 1 {
		kCap = 1
	}

	type indexed struct {
		idx   int
		label types.LabelOutput
	}
	nonzero := make([]indexed, 0, len(labels))
	for i, l := range labels {
		if l.Score > 0 {
			nonzero = append(nonzero, indexed{idx: i, label: l})
		}
	}

	if len(nonzero) == 0 {
		return types.CategoryOutput{Name: cat.Name, Score: 0, K: 0, Labels: labels}
	}

	sort.SliceStable(nonzero, func(i, j int) bool {
		if nonzero[i].label.Score != nonzero[j].label.Score {
			return nonzero[i].label.Score > nonzero[j].label.Score
		}
		return nonzero[i].idx < nonzero[j].idx
	})

	k := kCap
	if k > len(nonzero) {
		k = len(nonzero)
	}
	if k < 1 {
		k = 1
	}

	var sum float64
	for i := 0; i < k; i++ {
		sum += nonzero[i].label.Score
	}

	return types.CategoryOutput{
		Name:   cat.Name,
		Score:  sum / float64(k),
		K:      k,
		Labels: labels,
	}
}

// Overall returns max(category.Score) across categories, or 0 if there are
// none.
func Overall(categories []types.CategoryOutput) float64 {
	var best float64
	for _, c := range categories {
		if c.Score > best {
			best = c.Score
		}
	}
	return best
}
