package evaluator

import "github.com/memgate/engine/pkg/types"

// AppliedThreshold returns the length-sensitive global threshold for an
// input of length L characters:
//
//	T = base - short_delta   if L <= short_limit
//	T = base + long_delta    if L >  long_limit
//	T = base                 otherwise
func AppliedThreshold(m types.ModifierConfig, length int) float64 {
	switch {
	case length <= m.ShortLimit:
		return m.BaseThreshold - m.ShortDelta
	case length > m.LongLimit:
		return m.BaseThreshold + m.LongDelta
	default:
		return m.BaseThreshold
	}
}
