package scorer

import (
	"math"

	"github.com/memgate/engine/pkg/types"
)

// Calibrate applies Platt scaling c' = sigmoid(a*c + b) to a raw confidence,
// short-circuiting the identity mapping (a=1, b=0) exactly rather than
// routing it through exp/log, and clamping the result to [0,1] so NaN/Inf
// inputs never propagate past calibration.
func Calibrate(raw float64, p types.Platt) float64 {
	if p.IsIdentity() {
		return clamp01(raw)
	}
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0
	}
	z := p.A*raw + p.B
	c := 1 / (1 + math.Exp(-z))
	return clamp01(c)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
