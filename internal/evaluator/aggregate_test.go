package evaluator

import (
	"testing"

	"github.com/memgate/engine/pkg/types"
)

func TestAggregateCategoryAllZero(t *testing.T) {
	cat := types.Category{Name: "X", KCap: 2}
	labels := []types.LabelOutput{
		{Category: "X", Name: "a", Score: 0},
		{Category: "X", Name: "b", Score: 0},
	}
	out := AggregateCategory(cat, labels)
	if out.Score != 0 || out.K != 0 {
		t.Errorf("all-zero category: got score=%v k=%v, want 0/0", out.Score, out.K)
	}
}

func TestAggregateCategoryKCapClampedToNonzeroCount(t *testing.T) {
	cat := types.Category{Name: "X", KCap: 5}
	labels := []types.LabelOutput{
		{Category: "X", Name: "a", Score: 0.6},
		{Category: "X", Name: "b", Score: 0},
		{Category: "X", Name: "c", Score: 0},
	}
	out := AggregateCategory(cat, labels)
	if out.K != 1 || out.Score != 0.6 {
		t.Errorf("got k=%v score=%v, want k=1 score=0.6", out.K, out.Score)
	}
}

func TestAggregateCategoryTiedScoresDeterministic(t *testing.T) {
	cat := types.Category{Name: "X", KCap: 1}
	labels := []types.LabelOutput{
		{Category: "X", Name: "first", Score: 0.5},
		{Category: "X", Name: "second", Score: 0.5},
	}
	out := AggregateCategory(cat, labels)
	// Both scores equal; top-1 mean is unaffected by which is chosen, but
	// the underlying ordering must be deterministic across repeated calls.
	out2 := AggregateCategory(cat, labels)
	if out.Score != out2.Score {
		t.Errorf("AggregateCategory not deterministic: %v vs %v", out.Score, out2.Score)
	}
}

func TestOverallEmptyCategories(t *testing.T) {
	if got := Overall(nil); got != 0 {
		t.Errorf("Overall(nil) = %v, want 0", got)
	}
}
