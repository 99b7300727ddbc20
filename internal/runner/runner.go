// Package runner drives a SampleDataset through an Evaluator concurrently,
// streaming per-sample outcomes as they complete.
package runner

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/memgate/engine/internal/emitter"
	"github.com/memgate/engine/internal/evaluator"
	"github.com/memgate/engine/pkg/types"
)

// SampleOutcome is one sample's result as it streams off the Runner. Err is
// set when the sample's Score call failed; per spec.md §7's propagation
// policy this never halts the run — it is tallied as a failure and the run
// continues.
type SampleOutcome struct {
	Sample types.Sample
	Result types.SampleResult
	Err    error
}

// RunnerConfig tunes a single Runner.Run invocation.
type RunnerConfig struct {
	// Concurrency is the number of consumer goroutines holding the shared
	// Evaluator's lock. Defaults to 1 if <= 0.
	Concurrency int
	// BatchSize is the producer->consumer channel's buffer capacity.
	// Defaults to Concurrency*2 if <= 0.
	BatchSize int
	// RateLimit caps Scorer dequeue throughput in operations/second. 0
	// disables limiting.
	RateLimit float64
	// ProgressFn, if set, is called after every completed sample with the
	// running completed count and the dataset total. It may be called
	// concurrently from multiple consumer goroutines and must be safe for
	// that.
	ProgressFn func(completed, total int)
	// CancelFunc, if set, is invoked once if the producer cannot continue
	// (e.g. the input context is already done), letting the caller
	// propagate cancellation outward.
	CancelFunc context.CancelFunc
	// Emit, if set, receives "eval.sample.completed" per sample and
	// "eval.run.done" once the run finishes.
	Emit emitter.Emitter
}

func (c RunnerConfig) emitter() emitter.Emitter {
	if c.Emit == nil {
		return emitter.Noop{}
	}
	return c.Emit
}

func (c RunnerConfig) normalized() RunnerConfig {
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.BatchSize <= 0 {
		c.BatchSize = c.Concurrency * 2
	}
	return c
}

// Runner streams a SampleDataset through an Evaluator.
type Runner struct{}

// New builds a Runner. Runner holds no state of its own; every Run call is
// independent.
func New() *Runner { return &Runner{} }

// Run starts the dataset flowing through ev and returns a channel of
// SampleOutcome delivered in completion order, not dataset order. The
// channel is closed once every sample has been processed or ctx is
// cancelled. Evaluator access is serialized with a mutex held only around
// the synchronous Score call; dataset iteration and result construction run
// lock-free.
func (r *Runner) Run(ctx context.Context, dataset types.SampleDataset, ev *evaluator.Evaluator, cfg RunnerConfig) (<-chan SampleOutcome, error) {
	cfg = cfg.normalized()

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Concurrency
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	work := make(chan types.Sample, cfg.BatchSize)
	out := make(chan SampleOutcome, cfg.BatchSize)
	total := dataset.Len()
	var completed atomic.Int64
	var evalMu sync.Mutex
	emit := cfg.emitter()

	go func() {
		defer close(work)
		for _, s := range dataset.Samples {
			select {
			case work <- s:
			case <-ctx.Done():
				if cfg.CancelFunc != nil {
					cfg.CancelFunc()
				}
				return
			}
		}
	}()

	var wg sync.WaitGroup
	wg.Add(cfg.Concurrency)
	for i := 0; i < cfg.Concurrency; i++ {
		go func() {
			defer wg.Done()
			for s := range work {
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						out <- SampleOutcome{Sample: s, Err: err}
						continue
					}
				}

				select {
				case <-ctx.Done():
					out <- SampleOutcome{Sample: s, Err: ctx.Err()}
					continue
				default:
				}

				start := time.Now()
				evalMu.Lock()
				scored, err := ev.Score(ctx, s.Text)
				evalMu.Unlock()
				elapsed := time.Since(start)

				outcome := SampleOutcome{Sample: s}
				if err != nil {
					outcome.Err = err
				} else {
					outcome.Result = evaluator.ToResult(scored, s)
				}
				out <- outcome

				emit.Emit("eval.sample.completed", map[string]any{
					"id":         s.ID,
					"elapsed_ms": elapsed.Milliseconds(),
				})

				n := completed.Add(1)
				if cfg.ProgressFn != nil {
					cfg.ProgressFn(int(n), total)
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out, nil
}

// RunAndCollect runs the dataset to completion and returns an EvalResult
// with samples restored to dataset order. Samples whose evaluation failed
// are left out of Results; when any failed, the partial EvalResult is
// returned together with a non-nil error that counts the failures.
func (r *Runner) RunAndCollect(ctx context.Context, dataset types.SampleDataset, ev *evaluator.Evaluator, cfg RunnerConfig) (types.EvalResult, error) {
	ch, err := r.Run(ctx, dataset, ev, cfg)
	if err != nil {
		return types.EvalResult{}, err
	}

	result := types.EvalResult{DatasetName: dataset.Name}
	var failed []SampleOutcome
	var ordered []SampleOutcome
	for outcome := range ch {
		if outcome.Err != nil {
			failed = append(failed, outcome)
			continue
		}
		ordered = append(ordered, outcome)
	}

	pos := make(map[string]int, len(dataset.Samples))
	for i, s := range dataset.Samples {
		pos[s.ID] = i
	}
	sort.Slice(ordered, func(i, j int) bool {
		return pos[ordered[i].Sample.ID] < pos[ordered[j].Sample.ID]
	})
	for _, o := range ordered {
		result.Append(o.Result)
	}

	cfg.emitter().Emit("eval.run.done", map[string]any{
		"total":       result.Confusion.Total(),
		"accuracy":    result.Confusion.Accuracy(),
		"precision":   result.Confusion.Precision(),
		"recall":      result.Confusion.Recall(),
		"f1":          result.Confusion.F1(),
		"failed":      len(failed),
		"duration_ms": result.TotalDurationMS,
	})

	return result, newFailureError(failed)
}

// failureError aggregates per-sample runtime errors without halting the
// run; RunAndCollect still returns the (possibly partial) EvalResult
// alongside it.
type failureError struct {
	Outcomes []SampleOutcome
}

func newFailureError(failed []SampleOutcome) error {
	if len(failed) == 0 {
		return nil
	}
	return &failureError{Outcomes: failed}
}

func (e *failureError) Error() string {
	return "runner: " + strconv.Itoa(len(e.Outcomes)) + " sample(s) failed during evaluation"
}
