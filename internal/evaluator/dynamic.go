package evaluator

import (
	"math"

	"github.com/memgate/engine/internal/cache"
)

// DynamicConfig parameterizes the dynamic per-label threshold supplement: a
// label gates against mean(recent) - KStddev*stddev(recent) over its last
// WindowSize recorded calibrated scores, instead of its static threshold.
type DynamicConfig struct {
	WindowSize int
	KStddev    float64
}

// DefaultDynamicConfig matches the teacher's dynamic-threshold defaults.
var DefaultDynamicConfig = DynamicConfig{WindowSize: 50, KStddev: 1.0}

// DynamicThreshold computes the threshold to gate labelID's calibrated score
// against, using store history. Falls back to staticThreshold when the
// store is nil or history is empty (fewer than 2 samples, since a
// population stddev from one point is degenerate).
func DynamicThreshold(store *cache.HistoryStore, labelID string, cfg DynamicConfig, staticThreshold float64) float64 {
	if store == nil {
		return staticThreshold
	}

	scores, err := store.QueryWindow(labelID, cfg.WindowSize)
	if err != nil || len(scores) < 2 {
		return staticThreshold
	}

	mean, stddev := windowStats(scores)
	return mean - cfg.KStddev*stddev
}

// windowStats computes the mean and population standard deviation of scores
// directly, since QueryWindow returns raw values rather than a SQL aggregate.
func windowStats(scores []float64) (mean float64, stddev float64) {
	var sum, sumSq float64
	for _, s := range scores {
		sum += s
		sumSq += s * s
	}
	n := float64(len(scores))
	mean = sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0 // guard against floating-point rounding
	}
	return mean, math.Sqrt(variance)
}
