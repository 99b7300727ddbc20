package pipeline

import "github.com/memgate/engine/pkg/types"

// ValueKind tags which concrete payload a Value carries.
type ValueKind int

const (
	KindText ValueKind = iota
	KindEvalOutput
	KindDecision
	KindBatch
	KindError
)

func (k ValueKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindEvalOutput:
		return "eval_output"
	case KindDecision:
		return "decision"
	case KindBatch:
		return "batch"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Value is the closed, type-erased sum type threaded through a Pipeline.
// Layers with differing concrete input/output shapes are unified at layer
// boundaries by this type; the operators (Map, Filter, TryMap) also take
// and return Value.
type Value struct {
	kind     ValueKind
	text     string
	eval     types.EvalOutput
	decision types.Decision
	batch    []Value
	err      error
}

// Text wraps a plain string as a Value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// EvalOutputValue wraps an EvalOutput as a Value.
func EvalOutputValue(o types.EvalOutput) Value { return Value{kind: KindEvalOutput, eval: o} }

// DecisionValue wraps a Decision as a Value.
func DecisionValue(d types.Decision) Value { return Value{kind: KindDecision, decision: d} }

// Batch wraps an ordered slice of Values as a single Value.
func Batch(vs []Value) Value { return Value{kind: KindBatch, batch: vs} }

// Err wraps an error as a Value, for layers that surface a failure as data
// rather than halting the pipeline (e.g. inside a Router branch).
func Err(err error) Value { return Value{kind: KindError, err: err} }

// Kind reports which payload this Value carries.
func (v Value) Kind() ValueKind { return v.kind }

// AsText returns the wrapped string and true if Kind() == KindText.
func (v Value) AsText() (string, bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.text, true
}

// AsEvalOutput returns the wrapped EvalOutput and true if
// Kind() == KindEvalOutput.
func (v Value) AsEvalOutput() (types.EvalOutput, bool) {
	if v.kind != KindEvalOutput {
		return types.EvalOutput{}, false
	}
	return v.eval, true
}

// AsDecision returns the wrapped Decision and true if Kind() == KindDecision.
func (v Value) AsDecision() (types.Decision, bool) {
	if v.kind != KindDecision {
		return "", false
	}
	return v.decision, true
}

// AsBatch returns the wrapped slice and true if Kind() == KindBatch.
func (v Value) AsBatch() ([]Value, bool) {
	if v.kind != KindBatch {
		return nil, false
	}
	return v.batch, true
}

// AsError returns the wrapped error and true if Kind() == KindError.
func (v Value) AsError() (error, bool) {
	if v.kind != KindError {
		return nil, false
	}
	return v.err, true
}
