package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/vuload/pkg/jsonschema"
)

// documentSchema describes the accepted config file shape. Unknown keys are
// rejected so typos ("durration") fail loudly instead of being ignored.
const documentSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"additionalProperties": false,
	"definitions": {
		"duration": {"type": ["string", "integer"]},
		"expressions": {"type": "array", "items": {"type": "string"}}
	},
	"properties": {
		"name": {"type": "string"},
		"baseUrl": {"type": "string", "minLength": 1},
		"vus": {"type": "integer", "minimum": 1},
		"duration": {"$ref": "#/definitions/duration"},
		"timeout": {"$ref": "#/definitions/duration"},
		"thinkTime": {"$ref": "#/definitions/duration"},
		"rps": {"type": "number", "minimum": 0},
		"gracefulStop": {"$ref": "#/definitions/duration"},
		"http": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"maxIdleConnsPerHost": {"type": "integer", "minimum": 0},
				"maxConnsPerHost": {"type": "integer", "minimum": 0},
				"insecureSkipVerify": {"type": "boolean"},
				"userAgent": {"type": "string"},
				"headers": {"type": "object", "additionalProperties": {"type": "string"}}
			}
		},
		"setup": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"users": {"type": "integer", "minimum": 0},
				"policy": {"enum": ["tolerate", "strict"]},
				"retries": {"type": "integer", "minimum": 0},
				"retryBackoff": {"$ref": "#/definitions/duration"},
				"timeout": {"$ref": "#/definitions/duration"}
			}
		},
		"thresholds": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"http_req_duration": {"$ref": "#/definitions/expressions"},
				"http_req_failed": {"$ref": "#/definitions/expressions"},
				"http_reqs": {"$ref": "#/definitions/expressions"},
				"checks": {"$ref": "#/definitions/expressions"}
			}
		}
	}
}`

var compiledSchema = jsonschema.MustCompile(documentSchema)

// Load builds the effective configuration: defaults, then the optional file
// at path, then environment overrides.
func Load(path string, getenv func(string) string) (*RunConfig, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := ParseInto(cfg, data, path); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnv(getenv)
	return cfg, nil
}

// ParseConfig parses configuration data on top of the defaults.
func ParseConfig(data []byte, path string) (*RunConfig, error) {
	cfg := Default()
	if err := ParseInto(cfg, data, path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseInto overlays configuration data onto cfg. Fields absent from the
// document keep their current values.
//
// The format is determined by the file extension in path (.json, .yaml,
// .yml), defaulting to YAML.
func ParseInto(cfg *RunConfig, data []byte, path string) error {
	isJSON := strings.ToLower(filepath.Ext(path)) == ".json"

	var doc interface{}
	if isJSON {
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("failed to parse JSON config: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	if doc == nil {
		return nil
	}

	if err := validateDocument(doc); err != nil {
		return fmt.Errorf("config %s does not match schema: %w", path, err)
	}

	if isJSON {
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to decode JSON config: %w", err)
		}
		return nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode YAML config: %w", err)
	}
	return nil
}

// validateDocument checks a decoded document against documentSchema. YAML
// documents are normalized through encoding/json first so the validator only
// sees JSON value types.
func validateDocument(doc interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("config is not representable as JSON: %w", err)
	}
	return compiledSchema.ValidateBytes(raw)
}
