package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/memgate/engine/pkg/types"
)

const includeKey = "$include"

// loadMerged reads the YAML document at path, resolves $include (relative
// to path's directory, later keys in the including document win over the
// included defaults), and returns the fully merged document as a generic
// map.
func loadMerged(path string) (map[string]any, error) {
	return loadMergedDepth(path, 0)
}

const maxIncludeDepth = 8

func loadMergedDepth(path string, depth int) (map[string]any, error) {
	if depth > maxIncludeDepth {
		return nil, &types.ConfigError{Path: path, Err: fmt.Errorf("$include depth exceeds %d (cycle?)", maxIncludeDepth)}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.ConfigError{Path: path, Err: err}
	}

	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, &types.ConfigError{Path: path, Err: err}
	}
	if doc == nil {
		doc = map[string]any{}
	}

	includes, err := includePaths(doc[includeKey])
	if err != nil {
		return nil, &types.ConfigError{Path: path, Err: err}
	}
	delete(doc, includeKey)

	merged := map[string]any{}
	dir := filepath.Dir(path)
	for _, inc := range includes {
		incPath := inc
		if !filepath.IsAbs(incPath) {
			incPath = filepath.Join(dir, incPath)
		}
		included, err := loadMergedDepth(incPath, depth+1)
		if err != nil {
			return nil, err
		}
		merged = deepMerge(merged, included)
	}

	return deepMerge(merged, doc), nil
}

func includePaths(v any) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{t}, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("$include list entries must be strings")
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("$include must be a string or list of strings")
	}
}

// deepMerge merges src into dst, recursing into nested maps and letting
// src's scalar/slice values overwrite dst's. Neither argument is mutated.
func deepMerge(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		if existing, ok := out[k]; ok {
			existingMap, existingIsMap := existing.(map[string]any)
			incomingMap, incomingIsMap := v.(map[string]any)
			if existingIsMap && incomingIsMap {
				out[k] = deepMerge(existingMap, incomingMap)
				continue
			}
		}
		out[k] = v
	}
	return out
}

// applyEnvOverrides walks prefix_-namespaced environment variables and
// writes them into doc as dotted path overrides. A single "_" in the
// suffix separates path components; a doubled "__" is a literal
// underscore within one component, e.g.
// GATE_LAYERS_EVAL_MODIFIER_BASE__THRESHOLD=0.8 overrides
// layers.eval.modifier.base_threshold.
func applyEnvOverrides(doc map[string]any, prefix string) {
	for _, kv := range os.Environ() {
		eq := strings.IndexByte(kv, '=')
		if eq < 0 {
			continue
		}
		key, val := kv[:eq], kv[eq+1:]
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		suffix := strings.TrimPrefix(key, prefix)
		suffix = strings.TrimPrefix(suffix, "_")
		if suffix == "" {
			continue
		}
		path := splitEnvPath(suffix)
		setPath(doc, path, val)
	}
}

// splitEnvPath splits an env var suffix on single underscores into path
// components, treating a doubled underscore as a literal underscore
// within the current component rather than a separator.
func splitEnvPath(suffix string) []string {
	var parts []string
	var cur strings.Builder
	runes := []rune(suffix)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '_' {
			if i+1 < len(runes) && runes[i+1] == '_' {
				cur.WriteByte('_')
				i++
				continue
			}
			parts = append(parts, strings.ToLower(cur.String()))
			cur.Reset()
			continue
		}
		cur.WriteRune(runes[i])
	}
	if cur.Len() > 0 {
		parts = append(parts, strings.ToLower(cur.String()))
	}
	return parts
}

func setPath(doc map[string]any, path []string, val string) {
	if len(path) == 0 {
		return
	}
	if len(path) == 1 {
		doc[path[0]] = parseScalar(val)
		return
	}
	next, ok := doc[path[0]].(map[string]any)
	if !ok {
		next = map[string]any{}
		doc[path[0]] = next
	}
	setPath(next, path[1:], val)
}

// parseScalar coerces an env var's string value into the JSON-compatible
// type (float64, bool, string) the downstream merge/marshal path expects.
func parseScalar(val string) any {
	if f, err := strconv.ParseFloat(val, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	return val
}
