package pipeline

import "github.com/memgate/engine/internal/emitter"

// Handle names a named data source a Layer can pull auxiliary input from
// (e.g. a shared HistoryStore or ScoreCache handle threaded through the
// pipeline without widening every Layer's signature).
type Handle any

// Context is the per-item execution environment passed to every Layer. It
// erases the pipeline's plumbing (the emitter, side-channel data sources,
// run-level metadata) behind a narrow interface so a Layer depends only on
// what it actually needs.
type Context interface {
	// Input returns the Value this Layer should process.
	Input() Value
	// Meta returns run-level metadata (e.g. sample id, dataset name).
	Meta() map[string]any
	// DataSource resolves a named side-channel handle, if registered.
	DataSource(name string) (Handle, bool)
	// Emit publishes a signal to the run's Emitter.
	Emit(name string, attrs map[string]any)
}

// baseContext is the concrete Context implementation threaded through a
// Pipeline run. Each Layer receives a derived context with Input() replaced
// by the prior Layer's output; Meta, DataSource and Emit are shared.
type baseContext struct {
	input   Value
	meta    map[string]any
	sources map[string]Handle
	emit    emitter.Emitter
}

// NewContext builds the initial Context for a pipeline run.
func NewContext(input Value, meta map[string]any, sources map[string]Handle, emit emitter.Emitter) Context {
	if meta == nil {
		meta = map[string]any{}
	}
	if sources == nil {
		sources = map[string]Handle{}
	}
	if emit == nil {
		emit = emitter.Noop{}
	}
	return &baseContext{input: input, meta: meta, sources: sources, emit: emit}
}

func (c *baseContext) Input() Value { return c.input }

func (c *baseContext) Meta() map[string]any { return c.meta }

func (c *baseContext) DataSource(name string) (Handle, bool) {
	h, ok := c.sources[name]
	return h, ok
}

func (c *baseContext) Emit(name string, attrs map[string]any) { c.emit.Emit(name, attrs) }

// withInput returns a shallow copy of ctx carrying a new Input value. Meta,
// DataSource and Emit are shared with the parent context. For a Context not
// built by NewContext, only Meta and Emit carry over and DataSource resolves
// nothing.
func withInput(ctx Context, v Value) Context {
	bc, ok := ctx.(*baseContext)
	if !ok {
		return NewContext(v, ctx.Meta(), nil, emitter.Func(func(name string, attrs map[string]any) {
			ctx.Emit(name, attrs)
		}))
	}
	return &baseContext{input: v, meta: bc.meta, sources: bc.sources, emit: bc.emit}
}
