package search

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/jonathan/resume-pipeline/internal/logger"
	"github.com/jonathan/resume-pipeline/internal/types"
)

// Aggregation defaults
const (
	DefaultMaxQueryVariants = 5
	DefaultCallDelay        = 1500 * time.Millisecond
)

// Aggregator calls every enabled provider for each query variant, one call at
// a time with a fixed delay between calls.
type Aggregator struct {
	providers   []Provider
	maxVariants int
	delay       time.Duration
	log         *logger.Logger
}

// NewAggregator creates an Aggregator. Non-positive limits use the defaults;
// a negative delay disables waiting.
func NewAggregator(providers []Provider, maxVariants int, delay time.Duration, log *logger.Logger) *Aggregator {
	if maxVariants <= 0 {
		maxVariants = DefaultMaxQueryVariants
	}
	if delay == 0 {
		delay = DefaultCallDelay
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Aggregator{providers: providers, maxVariants: maxVariants, delay: delay, log: log}
}

// Fetch returns the listings of every call in call order, without deduplication.
// Any provider error aborts the fetch so the caller can retry it as a whole.
func (a *Aggregator) Fetch(ctx context.Context, queries []string, location string) ([]types.JobListing, error) {
	queries = Variants(queries, a.maxVariants)

	var enabled []Provider
	for _, p := range a.providers {
		if p.Enabled() {
			enabled = append(enabled, p)
		} else {
			a.log.Warn("Search provider disabled, credentials missing", "provider", p.Name())
		}
	}

	all := []types.JobListing{}
	calls := 0
	for _, q := range queries {
		for _, p := range enabled {
			if calls > 0 && a.delay > 0 {
				if err := sleep(ctx, a.delay); err != nil {
					return nil, err
				}
			}
			calls++

			results, err := p.Search(ctx, q, location)
			if err != nil {
				return nil, err
			}
			a.log.Info("Search provider returned results",
				"provider", p.Name(), "query", q, "location", location, "count", len(results))
			all = append(all, results...)
		}
	}
	return all, nil
}

// Variants trims, drops empties and duplicates, and keeps at most max queries
// in their original order.
func Variants(queries []string, max int) []string {
	seen := make(map[string]bool, len(queries))
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}

// Dedupe keeps the first listing for each id, in first-occurrence order.
// Listings without an id are kept as-is.
func Dedupe(listings []types.JobListing) []types.JobListing {
	seen := make(map[string]bool, len(listings))
	out := make([]types.JobListing, 0, len(listings))
	for _, l := range listings {
		if l.ID != "" {
			if seen[l.ID] {
				continue
			}
			seen[l.ID] = true
		}
		out = append(out, l)
	}
	return out
}

// GoogleJobsURL builds a Google Jobs search link for the query and location.
func GoogleJobsURL(query, location string) string {
	q := strings.ReplaceAll(url.QueryEscape(query+" jobs in "+location), "+", "%20")
	return "https://www.google.com/search?q=" + q + "&ibp=htl;jobs"
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
