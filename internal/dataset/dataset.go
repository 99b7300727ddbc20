// Package dataset loads and validates SampleDataset documents: the JSON
// shape spec.md §6 describes, decoded with segmentio/encoding/json for
// throughput on large datasets.
package dataset

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"

	"github.com/memgate/engine/pkg/types"
)

// document is the on-disk JSON shape: {"samples": [...]}..
type document struct {
	Name    string         `json:"name,omitempty"`
	Samples []sampleRecord `json:"samples"`
}

type sampleRecord struct {
	ID               string            `json:"id,omitempty"`
	Text             string            `json:"text"`
	ExpectedDecision string            `json:"expected_decision"`
	ExpectedLabels   []string          `json:"expected_labels,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// LoadOptions tunes Load's validation behavior.
type LoadOptions struct {
	// Strict validates expected_labels against a known EvalConfig; if a
	// sample names a label the config doesn't declare, Load fails.
	Strict bool
	// KnownConfig is the EvalConfig to validate expected_labels against
	// when Strict is set.
	KnownConfig *types.EvalConfig
}

// Load reads path and decodes a SampleDataset, synthesizing a uuid for any
// sample that omits "id" and validating id uniqueness always, label names
// only in strict mode.
func Load(path string, opts LoadOptions) (types.SampleDataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return types.SampleDataset{}, &types.ConfigError{Path: path, Err: err}
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return types.SampleDataset{}, &types.ValidationError{Field: "samples", Err: fmt.Errorf("decode %s: %w", path, err)}
	}

	ds := types.SampleDataset{Name: doc.Name, Samples: make([]types.Sample, len(doc.Samples))}
	seenIDs := make(map[string]bool, len(doc.Samples))

	for i, rec := range doc.Samples {
		id := rec.ID
		if id == "" {
			id = uuid.NewString()
		}
		if seenIDs[id] {
			return types.SampleDataset{}, &types.ValidationError{Field: "samples[].id", Err: fmt.Errorf("duplicate sample id %q", id)}
		}
		seenIDs[id] = true

		decision, err := decodeDecision(rec.ExpectedDecision)
		if err != nil {
			return types.SampleDataset{}, &types.ValidationError{Field: fmt.Sprintf("samples[%d].expected_decision", i), Err: err}
		}

		ds.Samples[i] = types.Sample{
			ID:               id,
			Text:             rec.Text,
			ExpectedDecision: decision,
			ExpectedLabels:   rec.ExpectedLabels,
			Metadata:         rec.Metadata,
		}
	}

	if opts.Strict {
		if err := validateKnownLabels(ds, opts.KnownConfig); err != nil {
			return types.SampleDataset{}, err
		}
	}

	return ds, nil
}

func decodeDecision(s string) (types.Decision, error) {
	switch s {
	case "", string(types.DecisionAccept):
		return types.DecisionAccept, nil
	case string(types.DecisionReject):
		return types.DecisionReject, nil
	default:
		return "", fmt.Errorf("expected_decision must be %q or %q, got %q", types.DecisionAccept, types.DecisionReject, s)
	}
}

func validateKnownLabels(ds types.SampleDataset, cfg *types.EvalConfig) error {
	if cfg == nil {
		return &types.ValidationError{Field: "strict", Err: fmt.Errorf("strict mode requires a known EvalConfig")}
	}
	known := make(map[string]bool)
	for _, l := range cfg.AllLabels() {
		known[l.ID().String()] = true
	}
	for i, s := range ds.Samples {
		for _, name := range s.ExpectedLabels {
			if !known[name] {
				return &types.ValidationError{
					Field: fmt.Sprintf("samples[%d].expected_labels", i),
					Err:   fmt.Errorf("unknown label %q", name),
				}
			}
		}
	}
	return nil
}
