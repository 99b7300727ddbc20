package config

// documentSchema is the JSON Schema (draft 2020-12) validating a decoded
// config document's shape, ahead of the semantic checks in validate.go that
// schema validation cannot express (cross-field uniqueness, phatic label
// resolvability).
const documentSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "layers": {
      "type": "object",
      "properties": {
        "eval": {
          "type": "object",
          "properties": {
            "modifier": {
              "type": "object",
              "properties": {
                "base_threshold": {"type": "number", "minimum": 0, "maximum": 1},
                "short_delta": {"type": "number", "minimum": 0},
                "long_delta": {"type": "number", "minimum": 0},
                "short_limit": {"type": "integer", "minimum": 0},
                "long_limit": {"type": "integer", "minimum": 0}
              }
            },
            "phatic_veto_threshold": {"type": "number", "minimum": 0, "maximum": 1},
            "phatic_label": {
              "type": "object",
              "properties": {
                "category": {"type": "string"},
                "name": {"type": "string"}
              }
            },
            "categories": {
              "type": "array",
              "items": {
                "type": "object",
                "required": ["name"],
                "properties": {
                  "name": {"type": "string"},
                  "k_cap": {"type": "integer", "minimum": 1},
                  "labels": {
                    "type": "array",
                    "items": {
                      "type": "object",
                      "required": ["name", "hypothesis"],
                      "properties": {
                        "name": {"type": "string"},
                        "hypothesis": {"type": "string"},
                        "weight": {"type": "number", "minimum": 0, "maximum": 1},
                        "threshold": {"type": "number", "minimum": 0, "maximum": 1},
                        "threshold_mode": {"type": "string", "enum": ["static", "dynamic"]},
                        "platt": {
                          "type": "object",
                          "properties": {
                            "a": {"type": "number"},
                            "b": {"type": "number"}
                          }
                        }
                      }
                    }
                  }
                }
              }
            }
          }
        }
      }
    },
    "concurrency": {"type": "integer", "minimum": 1},
    "batch_size": {"type": "integer", "minimum": 1},
    "$include": {
      "anyOf": [
        {"type": "string"},
        {"type": "array", "items": {"type": "string"}}
      ]
    }
  }
}`
