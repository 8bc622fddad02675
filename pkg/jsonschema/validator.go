// Package jsonschema validates JSON documents against JSON Schema drafts.
package jsonschema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidationErrors represents a collection of validation errors
type ValidationErrors []error

// Error implements the error interface for ValidationErrors
func (ve ValidationErrors) Error() string {
	parts := make([]string, 0, len(ve))
	for _, err := range ve {
		parts = append(parts, err.Error())
	}
	return strings.Join(parts, "; ")
}

// Schema is a compiled schema. It is safe for concurrent use, so one compiled
// schema can be shared by every goroutine validating responses.
type Schema struct {
	compiled *jsonschema.Schema
}

// Compile parses and compiles a schema document.
func Compile(schemaStr string) (*Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(schemaStr)); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &Schema{compiled: compiled}, nil
}

// MustCompile is Compile for schemas embedded in the binary.
func MustCompile(schemaStr string) *Schema {
	s, err := Compile(schemaStr)
	if err != nil {
		panic(err)
	}
	return s
}

// ValidateBytes validates a raw JSON document. A nil error means the
// document is valid; an invalid document yields ValidationErrors.
func (s *Schema) ValidateBytes(doc []byte) error {
	var value interface{}
	if err := json.Unmarshal(doc, &value); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return s.ValidateValue(value)
}

// ValidateValue validates an already decoded document. The value must use
// the encoding/json shapes: map[string]interface{}, []interface{}, float64,
// string, bool and nil.
func (s *Schema) ValidateValue(value interface{}) error {
	err := s.compiled.Validate(value)
	if err == nil {
		return nil
	}

	var validationErr *jsonschema.ValidationError
	if errors.As(err, &validationErr) {
		return flatten(validationErr)
	}
	return ValidationErrors{err}
}

// Validate validates jsonStr against schemaStr, compiling the schema on the fly.
// Returns false with a nil error when the document simply does not match.
func Validate(jsonStr, schemaStr string) (bool, error) {
	schema, err := Compile(schemaStr)
	if err != nil {
		return false, err
	}

	err = schema.ValidateBytes([]byte(jsonStr))
	var verrs ValidationErrors
	switch {
	case err == nil:
		return true, nil
	case errors.As(err, &verrs):
		return false, nil
	default:
		return false, err
	}
}

// flatten walks the cause tree and keeps the leaf messages.
func flatten(err *jsonschema.ValidationError) ValidationErrors {
	if len(err.Causes) == 0 {
		location := err.InstanceLocation
		if location == "" {
			location = "/"
		}
		return ValidationErrors{fmt.Errorf("%s: %s", location, err.Message)}
	}

	var errs ValidationErrors
	for _, cause := range err.Causes {
		errs = append(errs, flatten(cause)...)
	}
	return errs
}
