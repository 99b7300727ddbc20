package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/memgate/engine/internal/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

const minimalYAML = `
layers:
  eval:
    modifier:
      base_threshold: 0.75
      short_delta: 0.05
      long_delta: 0.05
      short_limit: 20
      long_limit: 200
    phatic_veto_threshold: 0.80
    phatic_label: { category: Conversational, name: Phatic }
    categories:
      - name: Task
        k_cap: 2
        labels:
          - name: A
            hypothesis: "this text is about a task"
            weight: 0.8
            threshold: 0.5
      - name: Conversational
        k_cap: 1
        labels:
          - name: Phatic
            hypothesis: "this is small talk"
            weight: 1.0
            threshold: 0.0
concurrency: 4
batch_size: 8
`

func TestLoadMinimalDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "gate.yaml", minimalYAML)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Eval.Modifier.BaseThreshold != 0.75 {
		t.Errorf("base_threshold = %v, want 0.75", cfg.Eval.Modifier.BaseThreshold)
	}
	if len(cfg.Eval.Categories) != 2 {
		t.Fatalf("got %d categories, want 2", len(cfg.Eval.Categories))
	}
	if cfg.Hints.Concurrency != 4 || cfg.Hints.BatchSize != 8 {
		t.Errorf("hints = %+v, want concurrency=4 batch_size=8", cfg.Hints)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "gate.yaml", `
layers:
  eval:
    categories:
      - name: Conversational
        labels:
          - name: Phatic
            hypothesis: "small talk"
`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Eval.Modifier.BaseThreshold != 0.75 {
		t.Errorf("default base_threshold = %v, want 0.75", cfg.Eval.Modifier.BaseThreshold)
	}
	if cfg.Eval.Categories[0].KCap != 2 {
		t.Errorf("default k_cap = %d, want 2", cfg.Eval.Categories[0].KCap)
	}
	if cfg.Eval.PhaticVetoThreshold != 0.80 {
		t.Errorf("default phatic_veto_threshold = %v, want 0.80", cfg.Eval.PhaticVetoThreshold)
	}
}

func TestLoadResolvesInclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
layers:
  eval:
    modifier:
      base_threshold: 0.6
    categories:
      - name: Conversational
        labels:
          - name: Phatic
            hypothesis: "small talk"
`)
	path := writeFile(t, dir, "gate.yaml", `
$include: base.yaml
layers:
  eval:
    modifier:
      base_threshold: 0.9
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Eval.Modifier.BaseThreshold != 0.9 {
		t.Errorf("base_threshold = %v, want 0.9 (including document wins)", cfg.Eval.Modifier.BaseThreshold)
	}
	if len(cfg.Eval.Categories) != 1 {
		t.Errorf("expected included categories to merge through, got %d", len(cfg.Eval.Categories))
	}
}

func TestLoadRejectsUnresolvablePhaticLabel(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "gate.yaml", `
layers:
  eval:
    phatic_label: { category: Nope, name: Missing }
    categories:
      - name: Task
        labels:
          - name: A
            hypothesis: "task"
`)
	if _, err := config.Load(path); err == nil {
		t.Fatal("expected ConfigError for unresolvable phatic label")
	}
}

func TestLoadRejectsOutOfRangeWeight(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "gate.yaml", `
layers:
  eval:
    categories:
      - name: Conversational
        labels:
          - name: Phatic
            hypothesis: "small talk"
            weight: 1.5
`)
	if _, err := config.Load(path); err == nil {
		t.Fatal("expected ConfigError for out-of-range weight")
	}
}

func TestLoadWithPrefixAppliesEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "gate.yaml", minimalYAML)

	t.Setenv("TESTGATE_LAYERS_EVAL_MODIFIER_BASE__THRESHOLD", "0.42")
	cfg, err := config.LoadWithPrefix(path, "TESTGATE_")
	if err != nil {
		t.Fatalf("LoadWithPrefix: %v", err)
	}
	if cfg.Eval.Modifier.BaseThreshold != 0.42 {
		t.Errorf("base_threshold = %v, want 0.42 from env override", cfg.Eval.Modifier.BaseThreshold)
	}
}
