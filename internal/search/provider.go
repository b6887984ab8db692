// Package search queries external job-search APIs and aggregates their listings.
package search

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/jonathan/resume-pipeline/internal/fetch"
	"github.com/jonathan/resume-pipeline/internal/types"
)

// DefaultTimeout bounds one provider call.
const DefaultTimeout = 10 * time.Second

// Listing sources
const (
	SourceAdzuna   = "adzuna"
	SourceRapidAPI = "rapidapi"
)

// Provider is an external job-search API.
type Provider interface {
	Name() string
	// Enabled reports whether the provider has the credentials it needs.
	Enabled() bool
	Search(ctx context.Context, query, location string) ([]types.JobListing, error)
}

// Adzuna queries the Adzuna jobs API.
type Adzuna struct {
	BaseURL string
	AppID   string
	AppKey  string
	Country string
	Timeout time.Duration
}

// NewAdzuna creates an Adzuna provider for the given country code (default "us").
func NewAdzuna(appID, appKey, country string, timeout time.Duration) *Adzuna {
	if country == "" {
		country = "us"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Adzuna{
		BaseURL: "https://api.adzuna.com/v1/api/jobs",
		AppID:   appID,
		AppKey:  appKey,
		Country: country,
		Timeout: timeout,
	}
}

func (a *Adzuna) Name() string  { return SourceAdzuna }
func (a *Adzuna) Enabled() bool { return a.AppID != "" && a.AppKey != "" }

type adzunaResponse struct {
	Results []struct {
		ID      any    `json:"id"`
		Title   string `json:"title"`
		Company struct {
			DisplayName string `json:"display_name"`
		} `json:"company"`
		Location struct {
			DisplayName string `json:"display_name"`
		} `json:"location"`
		Description string   `json:"description"`
		RedirectURL string   `json:"redirect_url"`
		Created     string   `json:"created"`
		SalaryMin   *float64 `json:"salary_min"`
		SalaryMax   *float64 `json:"salary_max"`
	} `json:"results"`
}

// Search fetches the first page of results, ten per page.
func (a *Adzuna) Search(ctx context.Context, query, location string) ([]types.JobListing, error) {
	params := url.Values{}
	params.Set("app_id", a.AppID)
	params.Set("app_key", a.AppKey)
	params.Set("results_per_page", "10")
	params.Set("what", query)
	params.Set("where", location)
	endpoint := fmt.Sprintf("%s/%s/search/1?%s", a.BaseURL, url.PathEscape(a.Country), params.Encode())

	var resp adzunaResponse
	if err := fetch.JSON(ctx, endpoint, &fetch.Options{Timeout: a.Timeout}, &resp); err != nil {
		return nil, &ProviderError{Provider: SourceAdzuna, Cause: redact(err, a.AppID, a.AppKey)}
	}

	listings := make([]types.JobListing, 0, len(resp.Results))
	for _, r := range resp.Results {
		listings = append(listings, types.JobListing{
			ID:          idString(r.ID),
			Title:       r.Title,
			Company:     r.Company.DisplayName,
			Location:    r.Location.DisplayName,
			Description: fetch.HTMLToText(r.Description),
			URL:         r.RedirectURL,
			Source:      SourceAdzuna,
			PostedAt:    r.Created,
			Salary:      salaryRange(r.SalaryMin, r.SalaryMax),
		})
	}
	return listings, nil
}

// JSearch queries the JSearch API on RapidAPI.
type JSearch struct {
	BaseURL string
	Host    string
	APIKey  string
	Timeout time.Duration
}

// NewJSearch creates a JSearch provider.
func NewJSearch(apiKey string, timeout time.Duration) *JSearch {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &JSearch{
		BaseURL: "https://jsearch.p.rapidapi.com",
		Host:    "jsearch.p.rapidapi.com",
		APIKey:  apiKey,
		Timeout: timeout,
	}
}

func (j *JSearch) Name() string  { return SourceRapidAPI }
func (j *JSearch) Enabled() bool { return j.APIKey != "" }

type jsearchResponse struct {
	Data []struct {
		JobID          string   `json:"job_id"`
		JobTitle       string   `json:"job_title"`
		EmployerName   string   `json:"employer_name"`
		JobCity        string   `json:"job_city"`
		JobCountry     string   `json:"job_country"`
		JobDescription string   `json:"job_description"`
		JobApplyLink   string   `json:"job_apply_link"`
		PostedAt       string   `json:"job_posted_at_datetime_utc"`
		MinSalary      *float64 `json:"job_min_salary"`
		MaxSalary      *float64 `json:"job_max_salary"`
	} `json:"data"`
}

// Search fetches one page of results for "<query> in <location>".
func (j *JSearch) Search(ctx context.Context, query, location string) ([]types.JobListing, error) {
	params := url.Values{}
	params.Set("query", query+" in "+location)
	params.Set("num_pages", "1")
	endpoint := j.BaseURL + "/search?" + params.Encode()

	opts := &fetch.Options{
		Timeout: j.Timeout,
		Headers: map[string]string{
			"x-rapidapi-key":  j.APIKey,
			"x-rapidapi-host": j.Host,
		},
	}
	var resp jsearchResponse
	if err := fetch.JSON(ctx, endpoint, opts, &resp); err != nil {
		return nil, &ProviderError{Provider: SourceRapidAPI, Cause: err}
	}

	listings := make([]types.JobListing, 0, len(resp.Data))
	for _, r := range resp.Data {
		loc := r.JobCountry
		if r.JobCity != "" {
			loc = r.JobCity + ", " + r.JobCountry
		}
		listings = append(listings, types.JobListing{
			ID:          r.JobID,
			Title:       r.JobTitle,
			Company:     r.EmployerName,
			Location:    loc,
			Description: fetch.HTMLToText(r.JobDescription),
			URL:         r.JobApplyLink,
			Source:      SourceRapidAPI,
			PostedAt:    r.PostedAt,
			Salary:      salaryRange(r.MinSalary, r.MaxSalary),
		})
	}
	return listings, nil
}

// idString renders a provider id that may arrive as a string or a number.
func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}

// salaryRange formats "$min - $max" when a minimum is known.
func salaryRange(minSalary, maxSalary *float64) string {
	if minSalary == nil || *minSalary == 0 {
		return ""
	}
	lo := strconv.FormatFloat(*minSalary, 'f', -1, 64)
	if maxSalary == nil {
		return "$" + lo
	}
	return "$" + lo + " - $" + strconv.FormatFloat(*maxSalary, 'f', -1, 64)
}
