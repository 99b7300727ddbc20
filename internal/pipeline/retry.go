package pipeline

import (
	"time"

	"github.com/memgate/engine/pkg/types"
)

// RetryConfig controls Retry's exponential backoff between attempts.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig retries twice with a short exponential backoff,
// suitable for transient scorer/model errors.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:     2,
	InitialBackoff: 200 * time.Millisecond,
	MaxBackoff:     2 * time.Second,
}

// Retry re-runs inner up to cfg.MaxRetries additional times after a
// failure, doubling the backoff delay each attempt up to cfg.MaxBackoff.
// The final attempt's error is returned if every attempt fails.
func Retry(name string, inner Layer, cfg RetryConfig) Layer {
	return LayerFunc(name, func(ctx Context) (Value, error) {
		backoff := cfg.InitialBackoff
		var lastErr error
		for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
			v, err := inner.Process(ctx)
			if err == nil {
				return v, nil
			}
			lastErr = err
			if attempt == cfg.MaxRetries {
				break
			}
			time.Sleep(backoff)
			backoff *= 2
			if backoff > cfg.MaxBackoff {
				backoff = cfg.MaxBackoff
			}
		}
		return Value{}, lastErr
	})
}

// Timeout runs inner in a goroutine and fails with a *types.TimeoutError if
// it does not complete within d. The goroutine is allowed to run to
// completion in the background; its result is discarded on timeout.
func Timeout(name string, inner Layer, d time.Duration) Layer {
	return LayerFunc(name, func(ctx Context) (Value, error) {
		type result struct {
			v   Value
			err error
		}
		done := make(chan result, 1)
		go func() {
			v, err := inner.Process(ctx)
			done <- result{v: v, err: err}
		}()

		select {
		case r := <-done:
			return r.v, r.err
		case <-time.After(d):
			return Value{}, &types.TimeoutError{Op: inner.Name(), Timeout: d.String()}
		}
	})
}
