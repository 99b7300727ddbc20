//go:build onnx

package scorer

import (
	"context"
	"fmt"
	"math"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/memgate/engine/pkg/types"
)

const (
	onnxModelName   = "gate-nli-cross-encoder"
	onnxMaxTokenLen = 128
	onnxBatchSize   = 1
	// Label2ID layout baked into the distilled gating model: a 3-way
	// sequence-classification head over {contradiction, neutral, entailment}.
	onnxContradictionID = 0
	onnxEntailmentID    = 2
	onnxNumClasses      = 3
)

// ONNXAvailable indicates that the ONNX-backed scorer is compiled in.
const ONNXAvailable = true

// ONNXScorer runs a local NLI cross-encoder: each (text, hypothesis) pair is
// fed through the model as a premise/hypothesis sequence pair, and the raw
// confidence is the softmax of {entailment, contradiction} logits, computed
// independently per hypothesis — never normalized across the hypothesis set.
type ONNXScorer struct {
	mu        sync.Mutex
	modelPath string
	ids       []types.LabelID
	hyps      []string
}

// NewONNXScorer creates a Scorer backed by a local ONNX NLI model, fixed
// against the given label ids and hypothesis templates. At construction it
// locates an installed ONNX Runtime library (it does not download one) and
// downloads the model to cfg.ModelDir (default ~/.gate/models/) if missing.
func NewONNXScorer(ids []types.LabelID, hyps []string, cfg ModelConfig) (Scorer, error) {
	if len(ids) != len(hyps) {
		return nil, &types.ConfigError{Err: fmt.Errorf("onnx scorer: %d ids but %d hypotheses", len(ids), len(hyps))}
	}

	modelDir := cfg.ModelDir
	if modelDir == "" {
		modelDir = defaultModelDir()
	}

	libPath, err := ensureONNXRuntime(modelDir)
	if err != nil {
		return nil, &types.ModelError{Op: "init_runtime", Err: err}
	}
	ort.SetSharedLibraryPath(libPath)

	if err := ort.InitializeEnvironment(); err != nil {
		return nil, &types.ModelError{Op: "init_environment", Err: err}
	}

	modelPath, err := ensureModel(modelDir)
	if err != nil {
		return nil, &types.ModelError{Op: "fetch_model", Err: err}
	}

	return &ONNXScorer{modelPath: modelPath, ids: ids, hyps: hyps}, nil
}

func (s *ONNXScorer) Hypotheses() ([]types.LabelID, []string) {
	return s.ids, s.hyps
}

func (s *ONNXScorer) Score(ctx context.Context, text string) ([]Score, error) {
	if text == "" {
		return nil, &types.InputError{Reason: "empty text"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Score, len(s.ids))
	for i, hyp := range s.hyps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logits, err := s.runPair(text, hyp)
		if err != nil {
			return nil, &types.ModelError{Op: "infer", Err: err}
		}
		out[i] = Score{ID: s.ids[i], Raw: entailmentProb(logits)}
	}
	return out, nil
}

func (s *ONNXScorer) ScoreBatch(ctx context.Context, texts []string) ([][]Score, []error) {
	return ScoreBatchSequential(ctx, s, texts)
}

func (s *ONNXScorer) Close() error {
	return nil
}

// runPair executes one premise/hypothesis pair through the cross-encoder and
// returns the raw 3-way classification logits.
func (s *ONNXScorer) runPair(premise, hypothesis string) ([]float32, error) {
	ids, mask, typeIDs := tokenizePair(premise, hypothesis, onnxMaxTokenLen)

	shape := ort.NewShape(int64(onnxBatchSize), int64(onnxMaxTokenLen))
	outShape := ort.NewShape(int64(onnxBatchSize), int64(onnxNumClasses))

	inputTensor, err := ort.NewTensor(shape, ids)
	if err != nil {
		return nil, fmt.Errorf("create input_ids tensor: %w", err)
	}
	defer inputTensor.Destroy()

	maskTensor, err := ort.NewTensor(shape, mask)
	if err != nil {
		return nil, fmt.Errorf("create attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()

	typeTensor, err := ort.NewTensor(shape, typeIDs)
	if err != nil {
		return nil, fmt.Errorf("create token_type_ids tensor: %w", err)
	}
	defer typeTensor.Destroy()

	outputData := make([]float32, onnxBatchSize*onnxNumClasses)
	outputTensor, err := ort.NewTensor(outShape, outputData)
	if err != nil {
		return nil, fmt.Errorf("create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	session, err := ort.NewAdvancedSession(
		s.modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"logits"},
		[]ort.Value{inputTensor, maskTensor, typeTensor},
		[]ort.Value{outputTensor},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	defer session.Destroy()

	if err := session.Run(); err != nil {
		return nil, fmt.Errorf("run inference: %w", err)
	}

	return outputTensor.GetData(), nil
}

// entailmentProb is the independent per-hypothesis softmax of
// {entailment, contradiction}, discarding the neutral logit — the same
// two-way renormalization a zero-shot NLI classifier uses to turn a 3-way
// head into a binary per-label confidence.
func entailmentProb(logits []float32) float64 {
	e := float64(logits[onnxEntailmentID])
	c := float64(logits[onnxContradictionID])
	maxLogit := math.Max(e, c)
	expE := math.Exp(e - maxLogit)
	expC := math.Exp(c - maxLogit)
	return expE / (expE + expC)
}
