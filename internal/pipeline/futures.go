package pipeline

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// future holds the eventual result of a Spawn'd Layer.
type future struct {
	done chan struct{}
	v    Value
	err  error
}

// FutureRegistry tracks in-flight Spawn results so a later Await stage in
// the same run can collect them. A Pipeline run shares one FutureRegistry
// across all its Layers via RunOpts.Sources.
type FutureRegistry struct {
	mu      sync.Mutex
	next    atomic.Int64
	pending map[int64]*future
}

// NewFutureRegistry builds an empty registry.
func NewFutureRegistry() *FutureRegistry {
	return &FutureRegistry{pending: map[int64]*future{}}
}

func (r *FutureRegistry) register() (int64, *future) {
	id := r.next.Add(1)
	f := &future{done: make(chan struct{})}
	r.mu.Lock()
	r.pending[id] = f
	r.mu.Unlock()
	return id, f
}

func (r *FutureRegistry) lookup(id int64) (*future, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.pending[id]
	return f, ok
}

func (r *FutureRegistry) forget(id int64) {
	r.mu.Lock()
	delete(r.pending, id)
	r.mu.Unlock()
}

const futureRegistrySource = "pipeline.futures"

// futureToken is the Text-encoded handle returned by Spawn and consumed by
// Await, e.g. "future:3".
func futureToken(id int64) string { return fmt.Sprintf("future:%d", id) }

func parseFutureToken(s string) (int64, bool) {
	var id int64
	n, err := fmt.Sscanf(s, "future:%d", &id)
	if err != nil || n != 1 {
		return 0, false
	}
	return id, true
}

// Spawn starts inner asynchronously and immediately returns a Text Value
// holding a future token; a later Await stage blocks until inner finishes.
// The registry must be registered under futureRegistrySource in the run's
// RunOpts.Sources for both Spawn and Await to find it.
func Spawn(name string, inner Layer) Layer {
	return LayerFunc(name, func(ctx Context) (Value, error) {
		h, ok := ctx.DataSource(futureRegistrySource)
		if !ok {
			return Value{}, fmt.Errorf("pipeline: %s: no FutureRegistry registered", name)
		}
		registry := h.(*FutureRegistry)
		id, f := registry.register()

		go func() {
			v, err := inner.Process(ctx)
			f.v, f.err = v, err
			close(f.done)
		}()

		return Text(futureToken(id)), nil
	})
}

// Await blocks until the future named by the input token (as produced by
// Spawn) completes, then returns its result.
func Await(name string) Layer {
	return LayerFunc(name, func(ctx Context) (Value, error) {
		h, ok := ctx.DataSource(futureRegistrySource)
		if !ok {
			return Value{}, fmt.Errorf("pipeline: %s: no FutureRegistry registered", name)
		}
		registry := h.(*FutureRegistry)

		token, ok := ctx.Input().AsText()
		if !ok {
			return Value{}, fmt.Errorf("pipeline: %s: input is not a future token", name)
		}
		id, ok := parseFutureToken(token)
		if !ok {
			return Value{}, fmt.Errorf("pipeline: %s: malformed future token %q", name, token)
		}
		f, ok := registry.lookup(id)
		if !ok {
			return Value{}, fmt.Errorf("pipeline: %s: unknown future %q", name, token)
		}

		<-f.done
		registry.forget(id)
		return f.v, f.err
	})
}

// FutureRegistrySourceKey is the DataSource name a Pipeline run must
// register a *FutureRegistry under for Spawn/Await to cooperate.
const FutureRegistrySourceKey = futureRegistrySource
