//go:build !onnx

package scorer

import (
	"errors"

	"github.com/memgate/engine/pkg/types"
)

// ONNXAvailable indicates that the ONNX-backed scorer is compiled in. This
// build omits the cgo-backed onnxruntime dependency.
const ONNXAvailable = false

var errONNXNotAvailable = errors.New("scorer: built without the onnx tag — rebuild with -tags onnx to enable ONNXScorer")

// NewONNXScorer always fails in builds without the onnx tag.
func NewONNXScorer(ids []types.LabelID, hyps []string, cfg ModelConfig) (Scorer, error) {
	return nil, &types.ModelError{Op: "new_onnx_scorer", Err: errONNXNotAvailable}
}
