package ai

import (
	"context"

	"github.com/jonathan/resume-pipeline/internal/rendering"
	"github.com/jonathan/resume-pipeline/internal/types"
)

// TemplateMarkup generates markup deterministically from the built-in LaTeX
// template instead of calling the model.
type TemplateMarkup struct {
	renderer *rendering.Renderer
}

// NewTemplateMarkup parses the built-in template.
func NewTemplateMarkup() (*TemplateMarkup, error) {
	r, err := rendering.NewRenderer()
	if err != nil {
		return nil, err
	}
	return &TemplateMarkup{renderer: r}, nil
}

// GenerateMarkup renders the resume. The context is unused.
func (t *TemplateMarkup) GenerateMarkup(_ context.Context, data *types.ResumeData) (string, error) {
	source, err := t.renderer.Render(data)
	if err != nil {
		return "", &ParseError{Message: "failed to render template markup", Cause: err}
	}
	return ValidateMarkup(source)
}
