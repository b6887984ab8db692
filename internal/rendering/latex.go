// Package rendering renders structured resume data into LaTeX source.
package rendering

import (
	_ "embed"
	"strings"
	"text/template"

	"github.com/jonathan/resume-pipeline/internal/types"
)

//go:embed templates/resume.tex
var defaultTemplate string

// Template actions use << >> so they never collide with LaTeX braces.
const (
	leftDelim  = "<<"
	rightDelim = ">>"
)

// TemplateData represents the data structure passed to the LaTeX template.
// Every string is already escaped.
type TemplateData struct {
	Name      string
	Contact   string // e.g., "ada@example.com \textbar{} 555-0100"
	Skills    string
	Companies []CompanySection
	Projects  []ProjectSection
	Education []EducationSection
}

// CompanySection represents a company with one or more roles
type CompanySection struct {
	Company string
	Roles   []RoleSection
}

// RoleSection represents a role within a company with merged durations
type RoleSection struct {
	Role       string
	DateRanges string // e.g., "2019 -- 2021, 2023 -- Present"
	Bullets    []string
}

// ProjectSection is a rendered project line.
type ProjectSection struct {
	Title       string
	Description string
	Tech        string
}

// EducationSection is a rendered education line.
type EducationSection struct {
	Institution string
	Degree      string
	Year        string
}

// Renderer renders ResumeData with a parsed template.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the built-in resume template.
func NewRenderer() (*Renderer, error) {
	return NewRendererFromTemplate(defaultTemplate)
}

// NewRendererFromTemplate parses a custom template using << >> action delimiters.
func NewRendererFromTemplate(content string) (*Renderer, error) {
	tmpl, err := parseTemplate(content)
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render produces LaTeX source for the resume.
func (r *Renderer) Render(data *types.ResumeData) (string, error) {
	if data == nil {
		return "", &Error{Stage: StageInput, Message: "resume data is nil"}
	}

	var result strings.Builder
	if err := r.tmpl.Execute(&result, buildTemplateData(data)); err != nil {
		return "", &Error{
			Stage:   StageExecute,
			Message: "failed to execute template",
			Cause:   err,
		}
	}
	return result.String(), nil
}

// RenderLaTeX renders the resume with the built-in template.
func RenderLaTeX(data *types.ResumeData) (string, error) {
	r, err := NewRenderer()
	if err != nil {
		return "", err
	}
	return r.Render(data)
}

func parseTemplate(content string) (*template.Template, error) {
	tmpl, err := template.New("resume").
		Delims(leftDelim, rightDelim).
		Funcs(template.FuncMap{"escape": EscapeLaTeX}).
		Option("missingkey=error").
		Parse(content)
	if err != nil {
		return nil, &Error{
			Stage:   StageParse,
			Message: "failed to parse template",
			Cause:   err,
		}
	}
	return tmpl, nil
}

// buildTemplateData constructs the escaped template data from the resume
func buildTemplateData(data *types.ResumeData) *TemplateData {
	var contact []string
	for _, field := range []*string{data.Email, data.Phone} {
		if field != nil && strings.TrimSpace(*field) != "" {
			contact = append(contact, EscapeLaTeX(strings.TrimSpace(*field)))
		}
	}

	out := &TemplateData{
		Name:      EscapeLaTeX(data.Name),
		Contact:   strings.Join(contact, ` \textbar{} `),
		Skills:    joinEscaped(data.Skills, ", "),
		Companies: groupByCompanyAndRole(data.Experience),
	}

	for _, p := range data.Projects {
		out.Projects = append(out.Projects, ProjectSection{
			Title:       EscapeLaTeX(p.Title),
			Description: EscapeLaTeX(strings.TrimSpace(p.Description)),
			Tech:        joinEscaped(p.Tech, ", "),
		})
	}
	for _, e := range data.Education {
		out.Education = append(out.Education, EducationSection{
			Institution: EscapeLaTeX(e.Institution),
			Degree:      EscapeLaTeX(e.Degree),
			Year:        EscapeLaTeX(e.Year),
		})
	}
	return out
}

// roleKey is used for grouping bullets by company and role
type roleKey struct {
	Company string
	Role    string
}

// groupByCompanyAndRole groups experience entries by Company, then by Role,
// merging durations. Companies and roles keep their first-appearance order.
func groupByCompanyAndRole(experience []types.Experience) []CompanySection {
	companyOrder := []string{}
	companyRoleOrder := make(map[string][]string)
	roleBullets := make(map[roleKey][]string)
	roleDurations := make(map[roleKey][]string)
	seenRoles := make(map[roleKey]bool)
	seenCompanies := make(map[string]bool)

	for _, exp := range experience {
		company := strings.TrimSpace(exp.Company)
		role := strings.TrimSpace(exp.Role)
		key := roleKey{Company: company, Role: role}

		if !seenCompanies[company] {
			seenCompanies[company] = true
			companyOrder = append(companyOrder, company)
		}
		if !seenRoles[key] {
			seenRoles[key] = true
			companyRoleOrder[company] = append(companyRoleOrder[company], role)
		}

		roleBullets[key] = append(roleBullets[key], splitBullets(exp.Description)...)
		if d := strings.TrimSpace(exp.Duration); d != "" {
			roleDurations[key] = append(roleDurations[key], d)
		}
	}

	companies := make([]CompanySection, 0, len(companyOrder))
	for _, company := range companyOrder {
		section := CompanySection{Company: EscapeLaTeX(company)}
		for _, role := range companyRoleOrder[company] {
			key := roleKey{Company: company, Role: role}
			bullets := make([]string, 0, len(roleBullets[key]))
			for _, b := range roleBullets[key] {
				bullets = append(bullets, EscapeLaTeX(b))
			}
			section.Roles = append(section.Roles, RoleSection{
				Role:       EscapeLaTeX(role),
				DateRanges: mergeDurations(roleDurations[key]),
				Bullets:    bullets,
			})
		}
		companies = append(companies, section)
	}
	return companies
}

// mergeDurations collects unique durations and formats them comma-separated.
// A plain hyphen between dates becomes an en-dash.
func mergeDurations(durations []string) string {
	seen := make(map[string]bool)
	parts := []string{}
	for _, d := range durations {
		if seen[d] {
			continue
		}
		seen[d] = true
		parts = append(parts, strings.ReplaceAll(EscapeLaTeX(d), " - ", " -- "))
	}
	return strings.Join(parts, ", ")
}

// splitBullets turns a free-text description into bullet lines, one per
// non-empty line, with leading list markers removed.
func splitBullets(description string) []string {
	var bullets []string
	for _, line := range strings.Split(description, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*•· ")
		line = strings.TrimSpace(line)
		if line != "" {
			bullets = append(bullets, line)
		}
	}
	return bullets
}

func joinEscaped(items []string, sep string) string {
	escaped := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			escaped = append(escaped, EscapeLaTeX(item))
		}
	}
	return strings.Join(escaped, sep)
}
