package pipeline

import (
	"fmt"

	"github.com/memgate/engine/internal/emitter"
	"github.com/memgate/engine/pkg/types"
)

// Pipeline holds an ordered, immutable sequence of Layers.
type Pipeline struct {
	layers []Layer
}

// Builder accumulates Layers lazily; no Pipeline is constructed until
// Build() is called, so intermediate Builder values can be passed around
// and extended without committing to a final layer order.
type Builder struct {
	layers []Layer
}

// NewBuilder starts an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

// Then appends a Layer and returns the same Builder for chaining.
func (b *Builder) Then(l Layer) *Builder {
	b.layers = append(b.layers, l)
	return b
}

// Build finalizes the Builder into an immutable Pipeline.
func (b *Builder) Build() *Pipeline {
	return &Pipeline{layers: append([]Layer(nil), b.layers...)}
}

// RunOpts configures a single Pipeline.Run invocation.
type RunOpts struct {
	Meta    map[string]any
	Sources map[string]Handle
	Emit    emitter.Emitter
}

// Run threads input through every Layer in order. A Layer's error halts
// the run and is returned wrapped as a *types.LayerError naming the Layer
// that failed.
func (p *Pipeline) Run(input Value, opts RunOpts) (Value, error) {
	ctx := NewContext(input, opts.Meta, opts.Sources, opts.Emit)
	current := input
	for _, l := range p.layers {
		step := withInput(ctx, current)
		out, err := l.Process(step)
		if err != nil {
			return Value{}, &types.LayerError{Layer: l.Name(), Err: err}
		}
		current = out
		ctx = step
	}
	return current, nil
}

// Layers returns the ordered Layer list, for introspection (e.g. CLI
// --verbose dumping the configured stage names).
func (p *Pipeline) Layers() []Layer { return append([]Layer(nil), p.layers...) }

// Names returns the Name() of every Layer in order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.layers))
	for i, l := range p.layers {
		names[i] = l.Name()
	}
	return names
}

func (p *Pipeline) String() string {
	return fmt.Sprintf("pipeline(%v)", p.Names())
}
