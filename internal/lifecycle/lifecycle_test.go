package lifecycle

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-pipeline/internal/types"
)

func TestDocumentTransitions(t *testing.T) {
	tests := []struct {
		name string
		from types.DocumentStatus
		to   types.DocumentStatus
		ok   bool
	}{
		{"ingest start", types.DocumentUploaded, types.DocumentProcessing, true},
		{"markup ready", types.DocumentProcessing, types.DocumentUploaded, true},
		{"ingest complete", types.DocumentProcessing, types.DocumentCompleted, true},
		{"ingest failed", types.DocumentProcessing, types.DocumentFailed, true},
		{"retry after failure", types.DocumentFailed, types.DocumentProcessing, true},
		{"idempotent", types.DocumentProcessing, types.DocumentProcessing, true},
		{"skip processing", types.DocumentUploaded, types.DocumentCompleted, false},
		{"uploaded to failed", types.DocumentUploaded, types.DocumentFailed, false},
		{"completed to uploaded", types.DocumentCompleted, types.DocumentUploaded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, CanTransitionDocument(tt.from, tt.to))
			err := DocumentTransition(tt.from, tt.to)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			var transitionErr *TransitionError
			require.ErrorAs(t, err, &transitionErr)
			assert.Equal(t, "document", transitionErr.Entity)
			assert.True(t, transitionErr.NonRetriable())
		})
	}
}

func TestArtifactTransitions(t *testing.T) {
	assert.True(t, CanTransitionArtifact(types.ArtifactQueued, types.ArtifactCompiling))
	assert.True(t, CanTransitionArtifact(types.ArtifactCompiling, types.ArtifactCompiled))
	assert.True(t, CanTransitionArtifact(types.ArtifactCompiling, types.ArtifactFailed))
	assert.True(t, CanTransitionArtifact(types.ArtifactCompiled, types.ArtifactQueued))
	assert.True(t, CanTransitionArtifact(types.ArtifactFailed, types.ArtifactQueued))

	assert.False(t, CanTransitionArtifact(types.ArtifactQueued, types.ArtifactCompiled))
	assert.False(t, CanTransitionArtifact(types.ArtifactCompiled, types.ArtifactCompiling))
	assert.Error(t, ArtifactTransition(types.ArtifactFailed, types.ArtifactCompiled))
}

func TestSources(t *testing.T) {
	assert.ElementsMatch(t,
		[]types.DocumentStatus{types.DocumentProcessing, types.DocumentUploaded, types.DocumentCompleted, types.DocumentFailed},
		DocumentSources(types.DocumentProcessing))
	assert.ElementsMatch(t,
		[]types.ArtifactStatus{types.ArtifactCompiled, types.ArtifactCompiling},
		ArtifactSources(types.ArtifactCompiled))
}

func TestJobContextPhase(t *testing.T) {
	jc := &types.JobContext{Description: "Backend engineer"}
	assert.Equal(t, JobCreated, JobContextPhase(jc))
	assert.Equal(t, JobCreated, JobContextPhase(nil))

	jc.Requirements = json.RawMessage(`{"keywords":["go"]}`)
	jc.Enhancement = &types.Enhancement{OverallVerdict: "good fit"}
	assert.Equal(t, JobEnriched, JobContextPhase(jc))
}
