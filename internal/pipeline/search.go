package pipeline

import (
	"context"

	"github.com/jonathan/resume-pipeline/internal/pipeline/steps"
	"github.com/jonathan/resume-pipeline/internal/search"
	"github.com/jonathan/resume-pipeline/internal/types"
	"github.com/jonathan/resume-pipeline/internal/workflow"
)

// SearchResult is the output of a completed search run.
type SearchResult struct {
	Query    string `json:"query"`
	Location string `json:"location"`
	Count    int    `json:"count"`
}

// search fetches listings for every query variant and writes one cache row.
func (p *pipelines) search(ctx context.Context, run *workflow.Run) (any, error) {
	var in SearchRequested
	if err := decodePayload(run, &in); err != nil {
		return nil, err
	}

	listings, err := workflow.Step(ctx, run, steps.FetchListings, func(ctx context.Context) ([]types.JobListing, error) {
		queries := append([]string{in.Query}, in.Queries...)
		return p.deps.Search.Fetch(ctx, queries, in.Location)
	})
	if err != nil {
		return nil, err
	}

	unique, err := workflow.Step(ctx, run, steps.SaveToCache, func(ctx context.Context) ([]types.JobListing, error) {
		unique := search.Dedupe(listings)
		if err := p.deps.Cache.Put(ctx, in.Query, in.Location, unique); err != nil {
			return nil, err
		}
		return unique, nil
	})
	if err != nil {
		return nil, err
	}

	run.Logger().Info("search results cached",
		"query", in.Query, "location", in.Location, "fetched", len(listings), "unique", len(unique))
	return SearchResult{Query: in.Query, Location: in.Location, Count: len(unique)}, nil
}
