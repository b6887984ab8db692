// Package cache is the time-windowed result cache for job-search aggregation.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-pipeline/internal/types"
)

// DefaultWindow is how long an entry counts as fresh.
const DefaultWindow = time.Hour

// Poll statuses
const (
	StatusComplete = "complete"
	StatusPending  = "pending"
)

// Store persists cache rows. Rows are only ever inserted.
type Store interface {
	InsertSearchCache(ctx context.Context, entry *types.SearchCacheEntry) error
	// LatestSearchCache returns the newest row for the exact key created after since, or nil.
	LatestSearchCache(ctx context.Context, query, location string, since time.Time) (*types.SearchCacheEntry, error)
}

// PollResult is the polling contract returned to clients.
type PollResult struct {
	Status string             `json:"status"`
	Data   []types.JobListing `json:"data"`
}

// Cache reads and writes search results keyed by (query, location).
type Cache struct {
	store  Store
	window time.Duration
	now    func() time.Time
}

// New creates a Cache. A non-positive window falls back to DefaultWindow.
func New(store Store, window time.Duration) *Cache {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Cache{store: store, window: window, now: time.Now}
}

// WithClock replaces the clock used to compute freshness.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Get returns the freshest entry younger than the window.
func (c *Cache) Get(ctx context.Context, query, location string) (*types.SearchCacheEntry, bool, error) {
	since := c.now().Add(-c.window)
	entry, err := c.store.LatestSearchCache(ctx, query, location, since)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read search cache: %w", err)
	}
	if entry == nil {
		return nil, false, nil
	}
	return entry, true, nil
}

// Put inserts a new row; older rows for the same key are left in place.
func (c *Cache) Put(ctx context.Context, query, location string, data []types.JobListing) error {
	if data == nil {
		data = []types.JobListing{}
	}
	entry := &types.SearchCacheEntry{
		ID:        uuid.New(),
		Query:     query,
		Location:  location,
		Provider:  types.ProviderAggregated,
		Data:      data,
		CreatedAt: c.now().UTC(),
	}
	if err := c.store.InsertSearchCache(ctx, entry); err != nil {
		return fmt.Errorf("failed to write search cache: %w", err)
	}
	return nil
}

// Poll reports whether aggregation for the key has finished within the window.
func (c *Cache) Poll(ctx context.Context, query, location string) (PollResult, error) {
	entry, ok, err := c.Get(ctx, query, location)
	if err != nil {
		return PollResult{}, err
	}
	if !ok {
		return PollResult{Status: StatusPending, Data: []types.JobListing{}}, nil
	}
	return PollResult{Status: StatusComplete, Data: entry.Data}, nil
}
