// Package config loads the gate engine's YAML configuration document:
// $include merging, environment overrides, JSON Schema structural
// validation, and the semantic checks schema validation cannot express.
package config

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/segmentio/encoding/json"

	"github.com/memgate/engine/pkg/types"
)

// EnvPrefix is the default environment variable prefix for config
// overrides (spec.md §6's "PREFIX_" convention).
const EnvPrefix = "GATE_"

// Config is the fully loaded, validated result of Load: the core
// EvalConfig plus the runner-facing hints that live outside layers.eval.
type Config struct {
	Eval  types.EvalConfig
	Hints RunHints
}

// Load reads path, merges any $include directives, applies GATE_-prefixed
// environment overrides, validates the result against the document schema
// and the semantic rules spec.md §6 lists, and returns the decoded Config.
// Every failure is a *types.ConfigError; this is fatal-at-startup by
// contract, never surfaced mid-run.
func Load(path string) (*Config, error) {
	return LoadWithPrefix(path, EnvPrefix)
}

// LoadWithPrefix is Load with an explicit environment variable prefix, for
// callers that need a non-default namespace (e.g. tests).
func LoadWithPrefix(path, envPrefix string) (*Config, error) {
	doc, err := loadMerged(path)
	if err != nil {
		return nil, err
	}
	if envPrefix != "" {
		applyEnvOverrides(doc, envPrefix)
	}

	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return nil, &types.ConfigError{Path: path, Err: fmt.Errorf("re-marshal merged document: %w", err)}
	}

	if err := validateSchema(jsonBytes); err != nil {
		return nil, &types.ConfigError{Path: path, Err: err}
	}

	var typed document
	if err := json.Unmarshal(jsonBytes, &typed); err != nil {
		return nil, &types.ConfigError{Path: path, Err: fmt.Errorf("decode config document: %w", err)}
	}

	evalCfg, hints := typed.toRunConfig()
	if err := validateSemantics(evalCfg); err != nil {
		return nil, &types.ConfigError{Path: path, Err: err}
	}

	return &Config{Eval: evalCfg, Hints: hints}, nil
}

func validateSchema(jsonBytes []byte) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("document.json", mustUnmarshalAny(documentSchema)); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	schema, err := compiler.Compile("document.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	var instance any
	if err := json.Unmarshal(jsonBytes, &instance); err != nil {
		return fmt.Errorf("decode document for schema validation: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}

func mustUnmarshalAny(schemaJSON string) any {
	var v any
	if err := json.Unmarshal([]byte(schemaJSON), &v); err != nil {
		panic("config: embedded schema is not valid JSON: " + err.Error())
	}
	return v
}
