// Package lifecycle defines the valid status transitions for documents,
// compiled artifacts and job contexts.
package lifecycle

import (
	"fmt"

	"github.com/jonathan/resume-pipeline/internal/types"
)

// TransitionError reports a status change the state machine does not allow.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition: %s -> %s", e.Entity, e.From, e.To)
}

// NonRetriable marks transition errors as permanent for the workflow engine.
func (e *TransitionError) NonRetriable() bool { return true }

var documentTransitions = map[types.DocumentStatus][]types.DocumentStatus{
	types.DocumentUploaded:   {types.DocumentProcessing},
	types.DocumentProcessing: {types.DocumentUploaded, types.DocumentCompleted, types.DocumentFailed},
	types.DocumentCompleted:  {types.DocumentProcessing},
	types.DocumentFailed:     {types.DocumentProcessing},
}

var artifactTransitions = map[types.ArtifactStatus][]types.ArtifactStatus{
	types.ArtifactQueued:    {types.ArtifactCompiling, types.ArtifactFailed},
	types.ArtifactCompiling: {types.ArtifactCompiling, types.ArtifactCompiled, types.ArtifactFailed},
	types.ArtifactCompiled:  {types.ArtifactQueued},
	types.ArtifactFailed:    {types.ArtifactQueued},
}

// CanTransitionDocument reports whether a document may move from one status to another.
// Staying in the same status is always allowed.
func CanTransitionDocument(from, to types.DocumentStatus) bool {
	if from == to {
		return true
	}
	for _, next := range documentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// DocumentTransition validates a document status change.
func DocumentTransition(from, to types.DocumentStatus) error {
	if !CanTransitionDocument(from, to) {
		return &TransitionError{Entity: "document", From: string(from), To: string(to)}
	}
	return nil
}

// DocumentSources returns every status a document may be in before moving to the target.
func DocumentSources(to types.DocumentStatus) []types.DocumentStatus {
	sources := []types.DocumentStatus{to}
	for from, targets := range documentTransitions {
		for _, t := range targets {
			if t == to && from != to {
				sources = append(sources, from)
			}
		}
	}
	return sources
}

// CanTransitionArtifact reports whether an artifact may move from one status to another.
func CanTransitionArtifact(from, to types.ArtifactStatus) bool {
	if from == to {
		return true
	}
	for _, next := range artifactTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ArtifactTransition validates an artifact status change.
func ArtifactTransition(from, to types.ArtifactStatus) error {
	if !CanTransitionArtifact(from, to) {
		return &TransitionError{Entity: "artifact", From: string(from), To: string(to)}
	}
	return nil
}

// ArtifactSources returns every status an artifact may be in before moving to the target.
func ArtifactSources(to types.ArtifactStatus) []types.ArtifactStatus {
	sources := []types.ArtifactStatus{to}
	for from, targets := range artifactTransitions {
		for _, t := range targets {
			if t == to && from != to {
				sources = append(sources, from)
			}
		}
	}
	return sources
}

// JobPhase is the implicit readiness of a JobContext.
type JobPhase string

// Job context phases
const (
	JobCreated  JobPhase = "created"
	JobEnriched JobPhase = "enriched"
)

// JobContextPhase infers readiness from whether the enhancement fields are populated.
func JobContextPhase(jc *types.JobContext) JobPhase {
	if jc == nil || jc.Enhancement == nil || len(jc.Requirements) == 0 {
		return JobCreated
	}
	return JobEnriched
}
