// Package ai wraps the text-generation service behind the four calls the
// pipeline makes: resume structuring, markup generation, job structuring and
// enhancement. Responses are cleaned, schema-validated and decoded here so that
// callers only ever see typed values or an error.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/resume-pipeline/internal/llm"
	"github.com/jonathan/resume-pipeline/internal/logger"
	"github.com/jonathan/resume-pipeline/internal/prompts"
	"github.com/jonathan/resume-pipeline/internal/schemas"
	"github.com/jonathan/resume-pipeline/internal/types"
)

const (
	// DefaultTimeout bounds a single generation call.
	DefaultTimeout = 60 * time.Second
	// MaxResumeChars is how much raw resume text is sent for structuring.
	MaxResumeChars = 12000

	promptFile = "ai.json"
)

// Adapter calls the LLM client on behalf of pipeline steps.
type Adapter struct {
	client  llm.Client
	timeout time.Duration
	log     *logger.Logger
}

// NewAdapter creates an Adapter around a long-lived client.
func NewAdapter(client llm.Client, timeout time.Duration, log *logger.Logger) *Adapter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Adapter{client: client, timeout: timeout, log: log}
}

// StructureResume turns raw resume text into ResumeData.
func (a *Adapter) StructureResume(ctx context.Context, rawText string) (*types.ResumeData, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, &ParseError{Message: "resume text is empty"}
	}
	prompt := llm.BuildExtractionPrompt(llm.ResumeSchema(), llm.Truncate(rawText, MaxResumeChars))

	var data types.ResumeData
	if err := a.generateJSON(ctx, prompt, llm.TierStandard, schemas.Resume, &data); err != nil {
		return nil, err
	}
	normalizeResume(&data)
	return &data, nil
}

// GenerateMarkup asks the model for a complete LaTeX document for the resume.
func (a *Adapter) GenerateMarkup(ctx context.Context, data *types.ResumeData) (string, error) {
	resumeJSON, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode resume data: %w", err)
	}
	prompt, err := prompts.Render(promptFile, "generate-markup", map[string]string{
		"Resume": llm.QuoteExternalContent(string(resumeJSON), "resume data"),
	})
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	text, err := a.client.GenerateContent(ctx, prompt, llm.TierStandard)
	if err != nil {
		return "", &APICallError{Message: "failed to generate markup", Cause: err}
	}
	return ValidateMarkup(llm.CleanMarkupBlock(text))
}

// StructureJob turns a free-text job description into JobRequirements.
func (a *Adapter) StructureJob(ctx context.Context, description string) (*types.JobRequirements, error) {
	if strings.TrimSpace(description) == "" {
		return nil, &ParseError{Message: "job description is empty"}
	}
	prompt := llm.BuildExtractionPrompt(llm.JobRequirementsSchema(), description)

	var req types.JobRequirements
	if err := a.generateJSON(ctx, prompt, llm.TierLite, schemas.JobRequirements, &req); err != nil {
		return nil, err
	}
	req.RequiredSkills = nonNil(req.RequiredSkills)
	req.PreferredSkills = nonNil(req.PreferredSkills)
	req.Keywords = nonNil(req.Keywords)
	return &req, nil
}

// Enhance compares the resume against the structured job and returns suggestions.
func (a *Adapter) Enhance(ctx context.Context, resume json.RawMessage, jobTitle string, req *types.JobRequirements) (*types.Enhancement, error) {
	reqJSON, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode job requirements: %w", err)
	}
	input, err := prompts.Render(promptFile, "enhance-input", map[string]string{
		"JobTitle":     jobTitle,
		"Requirements": string(reqJSON),
		"Resume":       string(resume),
	})
	if err != nil {
		return nil, err
	}
	prompt := llm.BuildExtractionPrompt(llm.EnhancementSchema(), input)

	var enh types.Enhancement
	if err := a.generateJSON(ctx, prompt, llm.TierAdvanced, schemas.Enhancement, &enh); err != nil {
		return nil, err
	}
	enh.MissingKeywords = nonNil(enh.MissingKeywords)
	enh.WeakSkills = nonNil(enh.WeakSkills)
	enh.SectionSuggestions = nonNil(enh.SectionSuggestions)
	enh.SearchQueries = nonNil(enh.SearchQueries)
	if enh.BulletRewrites == nil {
		enh.BulletRewrites = []types.BulletRewrite{}
	}
	return &enh, nil
}

// generateJSON runs one JSON generation, strips wrappers once, validates the
// shape against the named schema and decodes into out.
func (a *Adapter) generateJSON(ctx context.Context, prompt string, tier llm.ModelTier, schema schemas.Name, out any) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	text, err := a.client.GenerateJSON(ctx, prompt, tier)
	if err != nil {
		return &APICallError{Message: fmt.Sprintf("failed to generate %s", schema), Cause: err}
	}

	cleaned := []byte(llm.CleanJSONBlock(text))
	if err := schemas.Validate(schema, cleaned); err != nil {
		a.log.Warn("AI response failed validation", "schema", schema, "error", err)
		return &ParseError{Message: fmt.Sprintf("invalid %s response", schema), Cause: err}
	}
	if err := json.Unmarshal(cleaned, out); err != nil {
		return &ParseError{Message: fmt.Sprintf("failed to decode %s response", schema), Cause: err}
	}
	return nil
}

// ValidateMarkup checks that generated text looks like a complete LaTeX document.
func ValidateMarkup(source string) (string, error) {
	source = strings.TrimSpace(source)
	if !strings.Contains(source, `\documentclass`) || !strings.Contains(source, `\begin{document}`) {
		return "", &ParseError{Message: "generated markup is not a complete LaTeX document"}
	}
	return source, nil
}

func normalizeResume(data *types.ResumeData) {
	data.Skills = nonNil(data.Skills)
	if data.Experience == nil {
		data.Experience = []types.Experience{}
	}
	if data.Education == nil {
		data.Education = []types.Education{}
	}
	if data.Projects == nil {
		data.Projects = []types.Project{}
	}
	for i := range data.Projects {
		data.Projects[i].Tech = nonNil(data.Projects[i].Tech)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
