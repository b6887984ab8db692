package schemas

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Resume(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		wantError bool
	}{
		{
			name: "complete resume",
			doc: `{"name":"Ada Lovelace","email":"ada@example.com","phone":null,
				"skills":["Go","SQL"],
				"experience":[{"company":"Analytical Engines","role":"Engineer","duration":"1842-1843","description":"Notes"}],
				"education":[{"institution":"Home","degree":"Mathematics","year":"1835"}],
				"projects":[{"title":"Note G","description":"Bernoulli numbers","tech":["punch cards"]}]}`,
		},
		{
			name: "empty arrays",
			doc:  `{"name":"A","email":null,"phone":null,"skills":[],"experience":[],"education":[],"projects":[]}`,
		},
		{
			name:      "missing skills",
			doc:       `{"name":"A","experience":[],"education":[]}`,
			wantError: true,
		},
		{
			name:      "skills is a string",
			doc:       `{"name":"A","skills":"Go","experience":[],"education":[]}`,
			wantError: true,
		},
		{
			name:      "experience entry without role",
			doc:       `{"name":"A","skills":[],"experience":[{"company":"X"}],"education":[]}`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(Resume, []byte(tt.doc))
			if !tt.wantError {
				assert.NoError(t, err)
				return
			}
			var validationErr *ValidationError
			require.True(t, errors.As(err, &validationErr), "got %T: %v", err, err)
			assert.NotEmpty(t, validationErr.Violations)
			assert.Equal(t, Resume, validationErr.Schema)
		})
	}
}

func TestValidate_JobRequirements(t *testing.T) {
	assert.NoError(t, Validate(JobRequirements, []byte(
		`{"required_skills":["Go"],"preferred_skills":[],"experience_level":"senior","keywords":["backend"]}`)))

	err := Validate(JobRequirements, []byte(`{"preferred_skills":[]}`))
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
}

func TestValidate_Enhancement(t *testing.T) {
	assert.NoError(t, Validate(Enhancement, []byte(`{
		"missing_keywords":["Kubernetes"],
		"weak_skills":[],
		"bullet_rewrites":[{"original":"Did work","improved":"Shipped X","reason":"impact"}],
		"section_suggestions":[],
		"overall_verdict":"Strong fit",
		"search_queries":["go engineer"]}`)))

	err := Validate(Enhancement, []byte(`{"missing_keywords":[],"bullet_rewrites":[{"original":"x"}],"overall_verdict":"ok"}`))
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
}

func TestValidate_MalformedDocument(t *testing.T) {
	err := Validate(Resume, []byte("{ invalid json }"))
	require.Error(t, err)

	var validationErr *ValidationError
	assert.False(t, errors.As(err, &validationErr))
	assert.Contains(t, err.Error(), "not valid JSON")
}

func TestValidate_UnknownSchema(t *testing.T) {
	err := Validate(Name("nope"), []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnknownSchema)
	assert.Contains(t, err.Error(), "nope")
}

func TestValidate_NestedFieldPath(t *testing.T) {
	err := Validate(Resume, []byte(`{"name":"A","skills":[],"experience":[{"company":"X"}],"education":[]}`))
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.NotEmpty(t, validationErr.Violations)
	assert.True(t, strings.HasPrefix(validationErr.Violations[0].Field, "experience.0"),
		"got %q", validationErr.Violations[0].Field)
}

func TestValidate_CapsReportedViolations(t *testing.T) {
	var entries []string
	for i := 0; i < maxReported+5; i++ {
		entries = append(entries, `{"company": 1}`)
	}
	doc := `{"name":"A","skills":[],"education":[],"experience":[` + strings.Join(entries, ",") + `]}`

	err := Validate(Resume, []byte(doc))
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Len(t, validationErr.Violations, maxReported)
	assert.Positive(t, validationErr.Omitted)
	assert.Contains(t, err.Error(), "more)")
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Schema: Enhancement,
		Violations: []Violation{
			{Field: "(root)", Message: "overall_verdict is required"},
			{Field: "bullet_rewrites.0", Message: "improved is required"},
		},
	}
	assert.Equal(t,
		"enhancement does not match schema: (root): overall_verdict is required; bullet_rewrites.0: improved is required",
		err.Error())
}
