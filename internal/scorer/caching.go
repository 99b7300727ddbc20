package scorer

import (
	"context"

	"github.com/memgate/engine/internal/cache"
	"github.com/memgate/engine/pkg/types"
)

// CachingScorer wraps an inner Scorer with a SQLite-backed ScoreCache,
// keyed by (content hash of the input text, label id). Inference is skipped
// only when every label is cached for the text; a single miss re-scores the
// text against all labels — useful when a dataset replays fixtures or
// near-duplicate utterances against a CPU-bound local model.
type CachingScorer struct {
	inner Scorer
	cache *cache.ScoreCache
}

// NewCachingScorer wraps inner with cache. Close on the returned Scorer
// also closes cache.
func NewCachingScorer(inner Scorer, cache *cache.ScoreCache) *CachingScorer {
	return &CachingScorer{inner: inner, cache: cache}
}

func (c *CachingScorer) Hypotheses() ([]types.LabelID, []string) {
	return c.inner.Hypotheses()
}

// Score looks up each hypothesis's raw confidence in the cache before
// falling back to the inner Scorer for a single combined call covering
// every miss, then populates the cache with the fresh results.
func (c *CachingScorer) Score(ctx context.Context, text string) ([]Score, error) {
	ids, _ := c.inner.Hypotheses()
	hash := cache.ContentHash(text)

	out := make([]Score, len(ids))
	missing := false
	for i, id := range ids {
		raw, ok, err := c.cache.Get(hash, id.String())
		if err != nil {
			return nil, &types.ModelError{Op: "score_cache_get", Err: err}
		}
		if !ok {
			missing = true
			break
		}
		out[i] = Score{ID: id, Raw: raw}
	}
	if !missing {
		return out, nil
	}

	fresh, err := c.inner.Score(ctx, text)
	if err != nil {
		return nil, err
	}
	for _, s := range fresh {
		if err := c.cache.Put(hash, s.ID.String(), s.Raw); err != nil {
			return nil, &types.ModelError{Op: "score_cache_put", Err: err}
		}
	}
	return fresh, nil
}

func (c *CachingScorer) ScoreBatch(ctx context.Context, texts []string) ([][]Score, []error) {
	return ScoreBatchSequential(ctx, c, texts)
}

// Close closes the cache and the inner Scorer.
func (c *CachingScorer) Close() error {
	cacheErr := c.cache.Close()
	innerErr := c.inner.Close()
	if cacheErr != nil {
		return cacheErr
	}
	return innerErr
}
