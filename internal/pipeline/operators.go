package pipeline

import "sync"

// Map applies fn to the Value flowing through this stage. A returned error
// halts the pipeline (wrapped by Run as a *types.LayerError).
func Map(name string, fn func(ctx Context, v Value) (Value, error)) Layer {
	return LayerFunc(name, func(ctx Context) (Value, error) {
		return fn(ctx, ctx.Input())
	})
}

// Filter halts the pipeline with err whenever pred returns false; otherwise
// the input passes through unchanged.
func Filter(name string, pred func(v Value) bool, err error) Layer {
	return LayerFunc(name, func(ctx Context) (Value, error) {
		v := ctx.Input()
		if !pred(v) {
			return Value{}, err
		}
		return v, nil
	})
}

// TryMap applies fn but never halts the pipeline: a failing fn call yields
// an Err Value instead of propagating, so downstream layers (or a Router)
// can branch on failure as data.
func TryMap(name string, fn func(ctx Context, v Value) (Value, error)) Layer {
	return LayerFunc(name, func(ctx Context) (Value, error) {
		out, err := fn(ctx, ctx.Input())
		if err != nil {
			return Err(err), nil
		}
		return out, nil
	})
}

// Guard replaces the input with onFail whenever cond(ctx) is false; later
// layers of the pipeline still run, with onFail as their input.
func Guard(name string, cond func(ctx Context) bool, onFail Value) Layer {
	return LayerFunc(name, func(ctx Context) (Value, error) {
		if !cond(ctx) {
			return onFail, nil
		}
		return ctx.Input(), nil
	})
}

// Router dispatches to one of several Layers by inspecting the input Value
// with selector, which must return a key present in routes.
func Router(name string, selector func(v Value) string, routes map[string]Layer) Layer {
	return LayerFunc(name, func(ctx Context) (Value, error) {
		key := selector(ctx.Input())
		l, ok := routes[key]
		if !ok {
			return Value{}, &routeNotFoundError{Key: key}
		}
		return l.Process(ctx)
	})
}

type routeNotFoundError struct{ Key string }

func (e *routeNotFoundError) Error() string { return "pipeline: no route for key " + e.Key }

// FanOutLayer runs every branch sequentially against the same input and
// collects their outputs into a Batch, in branch order. The first branch
// error halts the whole stage.
func FanOutLayer(name string, branches []Layer) Layer {
	return LayerFunc(name, func(ctx Context) (Value, error) {
		out := make([]Value, len(branches))
		for i, b := range branches {
			v, err := b.Process(ctx)
			if err != nil {
				return Value{}, err
			}
			out[i] = v
		}
		return Batch(out), nil
	})
}

// Parallel runs every branch concurrently against the same input and
// collects their outputs into a Batch, preserving branch order regardless
// of completion order. The first branch error (by branch index) halts the
// stage once all branches have finished.
func Parallel(name string, branches []Layer) Layer {
	return LayerFunc(name, func(ctx Context) (Value, error) {
		out := make([]Value, len(branches))
		errs := make([]error, len(branches))
		var wg sync.WaitGroup
		wg.Add(len(branches))
		for i, b := range branches {
			go func(i int, b Layer) {
				defer wg.Done()
				v, err := b.Process(ctx)
				out[i] = v
				errs[i] = err
			}(i, b)
		}
		wg.Wait()
		for _, err := range errs {
			if err != nil {
				return Value{}, err
			}
		}
		return Batch(out), nil
	})
}
