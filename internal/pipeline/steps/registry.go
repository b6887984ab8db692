// Package steps names the steps of every pipeline function, in execution order,
// and reports a run's progress from its memoized step outputs.
package steps

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Function ids
const (
	FunctionIngest  = "process-document"
	FunctionEnhance = "enhance-resume"
	FunctionCompile = "compile-document"
	FunctionSearch  = "search-jobs"
)

// Step names
const (
	LoadDocument    = "load-document"
	MarkProcessing  = "mark-processing"
	ExtractText     = "extract-text"
	StructureResume = "structure-resume"
	GenerateMarkup  = "generate-markup"
	SaveResult      = "save-result"

	GetStructuredData = "get-structured-data"
	StructureJob      = "structure-job"
	EnhanceResume     = "enhance-resume"
	SaveJob           = "save-job"

	LoadSource    = "load-source"
	Sanitize      = "sanitize"
	MarkCompiling = "mark-compiling"
	Compile       = "compile"
	StorePDF      = "store-pdf"
	MarkCompiled  = "mark-compiled"

	FetchListings = "fetch-listings"
	SaveToCache   = "save-to-cache"
)

// StepDefinition defines metadata for a pipeline step
type StepDefinition struct {
	Name         string
	Function     string
	Dependencies []string
}

// StepLoader reads memoized step outputs. workflow.Store satisfies it.
type StepLoader interface {
	LoadStep(ctx context.Context, runID uuid.UUID, step string) ([]byte, bool, error)
}

// Order lists each function's steps in the order they run.
var Order = map[string][]string{
	FunctionIngest:  {LoadDocument, MarkProcessing, ExtractText, StructureResume, GenerateMarkup, SaveResult},
	FunctionEnhance: {GetStructuredData, StructureJob, EnhanceResume, SaveJob},
	FunctionCompile: {LoadSource, Sanitize, MarkCompiling, Compile, StorePDF, MarkCompiled},
	FunctionSearch:  {FetchListings, SaveToCache},
}

// StepRegistry holds all step definitions keyed by function id, then step name.
// Each step depends on the step before it.
var StepRegistry = buildRegistry()

func buildRegistry() map[string]map[string]StepDefinition {
	registry := make(map[string]map[string]StepDefinition, len(Order))
	for fn, names := range Order {
		defs := make(map[string]StepDefinition, len(names))
		for i, name := range names {
			def := StepDefinition{Name: name, Function: fn, Dependencies: []string{}}
			if i > 0 {
				def.Dependencies = []string{names[i-1]}
			}
			defs[name] = def
		}
		registry[fn] = defs
	}
	return registry
}

// DependencyError represents a dependency validation error
type DependencyError struct {
	Step                string
	MissingDependencies []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("missing dependencies: %v", e.MissingDependencies)
}

// ValidateDependencies checks that every dependency of a step has a memoized output
func ValidateDependencies(ctx context.Context, loader StepLoader, runID uuid.UUID, functionID, stepName string) error {
	defs, ok := StepRegistry[functionID]
	if !ok {
		return fmt.Errorf("unknown function: %s", functionID)
	}
	def, ok := defs[stepName]
	if !ok {
		return fmt.Errorf("unknown step: %s", stepName)
	}

	var missing []string
	for _, dep := range def.Dependencies {
		_, done, err := loader.LoadStep(ctx, runID, dep)
		if err != nil {
			return fmt.Errorf("failed to check dependency %s: %w", dep, err)
		}
		if !done {
			missing = append(missing, dep)
		}
	}

	if len(missing) > 0 {
		return &DependencyError{
			Step:                stepName,
			MissingDependencies: missing,
		}
	}
	return nil
}

// Progress is the completion state of one run's steps.
type Progress struct {
	Completed []string `json:"completed"`
	Pending   []string `json:"pending"`
	Next      string   `json:"next,omitempty"`
}

// GetProgress splits a run's steps into completed and pending, in execution order.
// Next is the first pending step whose dependencies are met.
func GetProgress(ctx context.Context, loader StepLoader, runID uuid.UUID, functionID string) (*Progress, error) {
	names, ok := Order[functionID]
	if !ok {
		return nil, fmt.Errorf("unknown function: %s", functionID)
	}

	p := &Progress{Completed: []string{}, Pending: []string{}}
	for _, name := range names {
		_, done, err := loader.LoadStep(ctx, runID, name)
		if err != nil {
			return nil, fmt.Errorf("failed to check step %s: %w", name, err)
		}
		if done {
			p.Completed = append(p.Completed, name)
			continue
		}
		p.Pending = append(p.Pending, name)
		if p.Next == "" {
			if err := ValidateDependencies(ctx, loader, runID, functionID, name); err == nil {
				p.Next = name
			}
		}
	}
	return p, nil
}
