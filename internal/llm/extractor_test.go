package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildExtractionPrompt(t *testing.T) {
	schema := ExtractionSchema{
		Name:        "Test",
		Description: "Extract things.",
		Fields: []SchemaField{
			{Name: "a", Type: "\"string\"", Description: "first", Required: true},
			{Name: "b"},
		},
	}

	prompt := BuildExtractionPrompt(schema, "input body")

	assert.True(t, strings.HasPrefix(prompt, "Extract things.\n\n"))
	assert.Contains(t, prompt, `"a": "string" (required) // first,`)
	assert.Contains(t, prompt, `"b": string`+"\n}")
	assert.Contains(t, prompt, "Input text:\n\"\"\"\ninput body\n\"\"\"\n")
}

func TestPredefinedSchemas_Fields(t *testing.T) {
	names := func(s ExtractionSchema) []string {
		var out []string
		for _, f := range s.Fields {
			out = append(out, f.Name)
		}
		return out
	}

	assert.Equal(t,
		[]string{"name", "email", "phone", "skills", "experience", "education", "projects"},
		names(ResumeSchema()))
	assert.Equal(t,
		[]string{"required_skills", "preferred_skills", "experience_level", "keywords"},
		names(JobRequirementsSchema()))
	assert.Equal(t,
		[]string{"missing_keywords", "weak_skills", "bullet_rewrites", "section_suggestions", "overall_verdict", "search_queries"},
		names(EnhancementSchema()))
}
