// Package schema validates configuration documents against a JSON Schema.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const resourceName = "proctrack.schema.json"

// Issue is one leaf failure of a validation.
type Issue struct {
	// Path is the JSON pointer of the offending value, "/" for the root.
	Path    string
	Message string
}

// Field returns Path in the dotted form used in proctrack.yml, e.g.
// "tracker.exclude.0". The root is "".
func (i Issue) Field() string {
	return strings.ReplaceAll(strings.Trim(i.Path, "/"), "/", ".")
}

// ValidationError lists every leaf failure of a document.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	lines := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		lines = append(lines, fmt.Sprintf("- %s: %s", issue.Path, issue.Message))
	}
	return "schema validation failed:\n" + strings.Join(lines, "\n")
}

// Validator validates documents against a compiled JSON Schema.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles schemaData into a validator.
func NewValidator(schemaData []byte) (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	if err := compiler.AddResource(resourceName, bytes.NewReader(schemaData)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	compiled, err := compiler.Compile(resourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return &Validator{schema: compiled}, nil
}

// Validate checks data against the schema. data may be any value that
// marshals to JSON; YAML and TOML decoders produce such maps. Schema
// failures are returned as *ValidationError.
func (v *Validator) Validate(data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal document for validation: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to normalize document for validation: %w", err)
	}

	err = v.schema.Validate(doc)
	if err == nil {
		return nil
	}
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	result := &ValidationError{}
	collectIssues(verr, &result.Issues)
	return result
}

func collectIssues(err *jsonschema.ValidationError, issues *[]Issue) {
	if len(err.Causes) == 0 {
		path := err.InstanceLocation
		if path == "" {
			path = "/"
		}
		*issues = append(*issues, Issue{Path: path, Message: err.Message})
		return
	}
	for _, cause := range err.Causes {
		collectIssues(cause, issues)
	}
}
