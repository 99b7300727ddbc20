// Package scorer provides zero-shot, multi-label confidence scoring: given
// a text and a fixed set of hypotheses, it returns an independent raw
// confidence per hypothesis.
package scorer

import (
	"context"

	"github.com/memgate/engine/pkg/types"
)

// Score is one hypothesis's raw confidence, keyed by its label id.
type Score struct {
	ID  types.LabelID
	Raw float64
}

// Scorer is a zero-shot, multi-label classifier. Implementations are not
// required to be safe for concurrent use — callers must serialize access to
// a single Scorer instance (see internal/runner) — but must be safely
// movable across worker goroutines.
type Scorer interface {
	// Hypotheses returns the fixed, ordered set of label ids and hypothesis
	// templates this Scorer was constructed against.
	Hypotheses() ([]types.LabelID, []string)

	// Score returns an independent raw confidence in [0,1] for every
	// configured hypothesis against text. Returns *types.InputError if text
	// is empty after normalization, *types.ModelError on inference failure.
	Score(ctx context.Context, text string) ([]Score, error)

	// ScoreBatch scores each text in texts, preserving order. A failure on
	// one text does not abort the others; per-text errors are returned
	// alongside partial results via the returned error slice.
	ScoreBatch(ctx context.Context, texts []string) ([][]Score, []error)

	// Close releases any underlying model resources. Safe to call once.
	Close() error
}

// ScoreBatchSequential is the shared ScoreBatch implementation used by
// Scorers with no internal batching fast path: it calls Score once per
// text, in order, stopping early only on context cancellation.
func ScoreBatchSequential(ctx context.Context, s Scorer, texts []string) ([][]Score, []error) {
	results := make([][]Score, len(texts))
	errs := make([]error, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		scores, err := s.Score(ctx, text)
		results[i] = scores
		errs[i] = err
	}
	return results, errs
}
