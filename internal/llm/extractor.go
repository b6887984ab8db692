// extractor.go provides schema-driven prompts for structured extraction.
package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema defines the structure for LLM-based content extraction.
// It provides a reusable way to define what information to extract from text.
type ExtractionSchema struct {
	Name        string        // Schema name (e.g., "JobRequirements", "BrandVoice")
	Description string        // System prompt preamble describing the extraction task
	Fields      []SchemaField // Expected output fields
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint: "string", "[]string", "map[string]string"
	Description string // Description for the LLM
	Required    bool   // Whether this field is required
}

// BuildExtractionPrompt constructs the LLM prompt from schema and input text.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	var sb strings.Builder

	// System description
	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	// Output schema
	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "string"
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s%s", field.Name, typeHint, requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	// Instructions
	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Extract information directly from the text, do not invent or summarize.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n\n")

	// Input text
	sb.WriteString("Input text:\n\"\"\"\n")
	sb.WriteString(inputText)
	sb.WriteString("\n\"\"\"\n")

	return sb.String()
}

// --- Predefined Schemas ---

// ResumeSchema returns the extraction schema for raw resume text.
// Every array field must be present, empty when the resume has no data for it.
func ResumeSchema() ExtractionSchema {
	return ExtractionSchema{
		Name: "ResumeData",
		Description: `You are an ATS resume parser.
Your task is to convert the raw text of a resume into structured data.
Do NOT add extra fields. Use empty arrays if data is missing and null for a missing email or phone.`,
		Fields: []SchemaField{
			{Name: "name", Type: "\"string\"", Description: "Candidate full name", Required: true},
			{Name: "email", Type: "\"string\" | null", Description: "Contact email", Required: true},
			{Name: "phone", Type: "\"string\" | null", Description: "Contact phone number", Required: true},
			{Name: "skills", Type: "[\"string\"]", Description: "Individual skills, one per entry", Required: true},
			{
				Name:        "experience",
				Type:        "[{\"company\": \"string\", \"role\": \"string\", \"duration\": \"string\", \"description\": \"string\"}]",
				Description: "Work history, most recent first",
				Required:    true,
			},
			{
				Name:        "education",
				Type:        "[{\"institution\": \"string\", \"degree\": \"string\", \"year\": \"string\"}]",
				Description: "Degrees and programs",
				Required:    true,
			},
			{
				Name:        "projects",
				Type:        "[{\"title\": \"string\", \"description\": \"string\", \"tech\": [\"string\"]}]",
				Description: "Side or portfolio projects",
				Required:    true,
			},
		},
	}
}

// JobRequirementsSchema returns the extraction schema for job descriptions.
func JobRequirementsSchema() ExtractionSchema {
	return ExtractionSchema{
		Name: "JobRequirements",
		Description: `You are an expert job posting parser.
Your task is to extract the skills and seniority a job description asks for.
EXCLUDE: Application form fields, EEO statements, legal disclaimers, generic "About Company" boilerplate.`,
		Fields: []SchemaField{
			{
				Name:        "required_skills",
				Type:        "[\"string\"]",
				Description: "Skills and qualifications the posting requires",
				Required:    true,
			},
			{
				Name:        "preferred_skills",
				Type:        "[\"string\"]",
				Description: "Nice-to-have skills",
				Required:    true,
			},
			{
				Name:        "experience_level",
				Type:        "\"string\"",
				Description: "Seniority (e.g., 'entry', 'mid', 'senior', 'lead')",
				Required:    true,
			},
			{
				Name:        "keywords",
				Type:        "[\"string\"]",
				Description: "Domain and technology keywords an ATS would match on",
				Required:    true,
			},
		},
	}
}

// EnhancementSchema returns the schema for resume-versus-job improvement suggestions.
// The input text is a combined document holding the resume data, the job title and
// the structured job requirements.
func EnhancementSchema() ExtractionSchema {
	return ExtractionSchema{
		Name: "Enhancement",
		Description: `You are an expert career coach and ATS specialist.
Compare the candidate's structured resume against the target job and suggest concrete improvements.
Only rewrite bullets that exist in the resume. Never invent experience the candidate does not have.`,
		Fields: []SchemaField{
			{
				Name:        "missing_keywords",
				Type:        "[\"string\"]",
				Description: "Job keywords absent from the resume",
				Required:    true,
			},
			{
				Name:        "weak_skills",
				Type:        "[\"string\"]",
				Description: "Skills the resume mentions but does not demonstrate",
				Required:    true,
			},
			{
				Name:        "bullet_rewrites",
				Type:        "[{\"original\": \"string\", \"improved\": \"string\", \"reason\": \"string\"}]",
				Description: "Stronger versions of existing bullets",
				Required:    true,
			},
			{
				Name:        "section_suggestions",
				Type:        "[\"string\"]",
				Description: "Sections to add, remove or reorder",
				Required:    true,
			},
			{
				Name:        "overall_verdict",
				Type:        "\"string\"",
				Description: "One or two sentence fit assessment",
				Required:    true,
			},
			{
				Name:        "search_queries",
				Type:        "[\"string\"]",
				Description: "Up to five short job-search queries for roles this candidate fits",
				Required:    true,
			},
		},
	}
}
