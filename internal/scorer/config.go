package scorer

// ModelConfig configures where an ONNXScorer locates its runtime and model
// file on disk.
type ModelConfig struct {
	ModelDir string
}
