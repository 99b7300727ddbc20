package pipeline

import (
	"context"
	"fmt"

	"github.com/memgate/engine/internal/evaluator"
	"github.com/memgate/engine/pkg/types"
)

// EvalLayer hosts an Evaluator as a pipeline stage: it reads Input() as
// text, runs Evaluator.Score, emits "eval.scored" with the decision and
// overall score, then returns the EvalOutput as a KindEvalOutput Value.
type EvalLayer struct {
	name string
	ev   *evaluator.Evaluator
	ctx  context.Context
}

// NewEvalLayer wraps ev as a named Layer. stdCtx is the standard context
// passed through to every Evaluator.Score call (cancellation/timeout, not
// per-item state).
func NewEvalLayer(name string, ev *evaluator.Evaluator, stdCtx context.Context) *EvalLayer {
	if stdCtx == nil {
		stdCtx = context.Background()
	}
	return &EvalLayer{name: name, ev: ev, ctx: stdCtx}
}

func (l *EvalLayer) Name() string { return l.name }

func (l *EvalLayer) Process(ctx Context) (Value, error) {
	text, ok := ctx.Input().AsText()
	if !ok {
		return Value{}, &types.InputError{Reason: fmt.Sprintf("%s: expected text input, got %s", l.name, ctx.Input().Kind())}
	}

	out, err := l.ev.Score(l.ctx, text)
	if err != nil {
		return Value{}, err
	}

	ctx.Emit("eval.scored", map[string]any{
		"overall":   out.Overall,
		"threshold": out.Threshold,
		"phatic":    out.PhaticScore,
		"accepted":  out.Decision == types.DecisionAccept,
	})

	return EvalOutputValue(out), nil
}
