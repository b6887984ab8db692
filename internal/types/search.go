package types

import (
	"time"

	"github.com/google/uuid"
)

// JobListing is a single posting returned by an external search provider.
type JobListing struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	PostedAt    string `json:"posted_at,omitempty"`
	Salary      string `json:"salary,omitempty"`
}

// ProviderAggregated marks cache rows that merge results from every provider.
const ProviderAggregated = "aggregated"

// SearchCacheEntry is one stored result set for a (query, location) key.
type SearchCacheEntry struct {
	ID        uuid.UUID    `json:"id"`
	Query     string       `json:"query"`
	Location  string       `json:"location"`
	Provider  string       `json:"provider"`
	Data      []JobListing `json:"data"`
	CreatedAt time.Time    `json:"created_at"`
}
