// Package schemas validates AI-produced JSON against the embedded JSON Schemas
// for resumes, job requirements and enhancement suggestions.
package schemas

import (
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed *.schema.json
var files embed.FS

// Name identifies one of the embedded schemas.
type Name string

const (
	Resume          Name = "resume"
	JobRequirements Name = "job_requirements"
	Enhancement     Name = "enhancement"
)

// ErrUnknownSchema is returned for a Name with no embedded schema file.
var ErrUnknownSchema = errors.New("unknown schema")

// maxReported caps how many violations are kept on a ValidationError, since
// a model that ignores the schema can produce hundreds.
const maxReported = 10

// Violation is one schema rule a document broke.
type Violation struct {
	Field   string // dotted path, "(root)" for the document itself
	Message string
}

// ValidationError lists the violations of one document.
type ValidationError struct {
	Schema     Name
	Violations []Violation
	Omitted    int // violations beyond maxReported
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}
	msg := fmt.Sprintf("%s does not match schema: %s", e.Schema, strings.Join(parts, "; "))
	if e.Omitted > 0 {
		msg += fmt.Sprintf(" (and %d more)", e.Omitted)
	}
	return msg
}

var (
	mu       sync.Mutex
	compiled = make(map[Name]*gojsonschema.Schema)
)

func schema(name Name) (*gojsonschema.Schema, error) {
	mu.Lock()
	defer mu.Unlock()
	if s, ok := compiled[name]; ok {
		return s, nil
	}
	data, err := files.ReadFile(string(name) + ".schema.json")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSchema, name)
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", name, err)
	}
	compiled[name] = s
	return s, nil
}

// Validate checks document against the named schema. It returns a
// *ValidationError when the document parses but breaks the schema, and a
// plain error when it is not JSON at all.
func Validate(name Name, document []byte) error {
	s, err := schema(name)
	if err != nil {
		return err
	}
	result, err := s.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return fmt.Errorf("%s document is not valid JSON: %w", name, err)
	}
	if result.Valid() {
		return nil
	}

	verr := &ValidationError{Schema: name}
	for _, d := range result.Errors() {
		if len(verr.Violations) == maxReported {
			verr.Omitted++
			continue
		}
		field := d.Field()
		if field == "" {
			field = "(root)"
		}
		verr.Violations = append(verr.Violations, Violation{Field: field, Message: d.Description()})
	}
	return verr
}
