// Package schemas provides JSON Schema validation for the converter's output
// files.
package schemas

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	embedded "github.com/elearning-innovation/learnosity-qti/schemas"
)

// ValidationError lists every schema violation found in one document.
type ValidationError struct {
	Errors []FieldError
}

// FieldError is one violation, located by its JSON field path.
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		fmt.Fprintf(&sb, "  %d. %s: %s\n", i+1, err.Field, err.Message)
	}
	return sb.String()
}

// SchemaLoadError means the schema itself could not be read or compiled.
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

// ValidateJSON validates the JSON file at jsonPath against the schema file at
// schemaPath. Relative $refs in the schema resolve against its directory.
func ValidateJSON(schemaPath, jsonPath string) error {
	schemaAbsPath, err := filepath.Abs(schemaPath)
	if err != nil {
		return fmt.Errorf("failed to resolve schema path: %w", err)
	}
	if _, err := os.Stat(schemaAbsPath); err != nil {
		return fmt.Errorf("schema file not found: %s", schemaAbsPath)
	}

	document, err := os.ReadFile(jsonPath)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("JSON file not found: %s", jsonPath)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", jsonPath, err)
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewReferenceLoader("file://" + filepath.ToSlash(schemaAbsPath)))
	if err != nil {
		return &SchemaLoadError{Path: schemaAbsPath, Message: "invalid schema", Cause: err}
	}
	return validateDocument(schema, document)
}

// ValidateJSONString validates jsonContent against schemaContent.
func ValidateJSONString(schemaContent, jsonContent string) error {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaContent))
	if err != nil {
		return &SchemaLoadError{Path: "(string schema)", Message: "invalid schema", Cause: err}
	}
	return validateDocument(schema, []byte(jsonContent))
}

func validateDocument(schema *gojsonschema.Schema, document []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return fmt.Errorf("failed to read JSON document: %w", err)
	}
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{Errors: make([]FieldError, 0, len(result.Errors()))}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{Field: field, Message: desc.Description()})
	}
	return validationErr
}

var (
	compiledMu sync.Mutex
	compiled   = make(map[string]*gojsonschema.Schema)
)

// embeddedSchema compiles an embedded schema once.
func embeddedSchema(name string) (*gojsonschema.Schema, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()

	if schema, ok := compiled[name]; ok {
		return schema, nil
	}
	data, err := embedded.Read(name)
	if err != nil {
		return nil, &SchemaLoadError{Path: name, Message: "embedded schema not found", Cause: err}
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, &SchemaLoadError{Path: name, Message: "invalid embedded schema", Cause: err}
	}
	compiled[name] = schema
	return schema, nil
}

// ValidateEmbedded validates a JSON document against the named embedded schema.
func ValidateEmbedded(name string, data []byte) error {
	schema, err := embeddedSchema(name)
	if err != nil {
		return err
	}
	return validateDocument(schema, data)
}

// ValidateJobLog validates an encoded job log.
func ValidateJobLog(data []byte) error {
	return ValidateEmbedded(embedded.JobLog, data)
}

// ValidateRawResults validates an encoded per-directory results file.
func ValidateRawResults(data []byte) error {
	return ValidateEmbedded(embedded.RawResults, data)
}
