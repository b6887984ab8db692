package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/resume-pipeline/internal/types"
)

// -----------------------------------------------------------------------------
// Search Cache Methods
// -----------------------------------------------------------------------------

// InsertSearchCache appends a cache row. Existing rows for the key are never updated.
func (db *DB) InsertSearchCache(ctx context.Context, entry *types.SearchCacheEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	data := entry.Data
	if data == nil {
		data = []types.JobListing{}
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	err = db.pool.QueryRow(ctx,
		`INSERT INTO search_cache (id, query, location, provider, data)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		entry.ID, entry.Query, entry.Location, entry.Provider, dataJSON,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert search cache: %w", err)
	}
	return nil
}

// LatestSearchCache returns the newest row for (query, location) created after since, or nil.
func (db *DB) LatestSearchCache(ctx context.Context, query, location string, since time.Time) (*types.SearchCacheEntry, error) {
	var entry types.SearchCacheEntry
	var dataJSON []byte

	err := db.pool.QueryRow(ctx,
		`SELECT id, query, location, provider, data, created_at
		 FROM search_cache
		 WHERE query = $1 AND location = $2 AND created_at > $3
		 ORDER BY created_at DESC
		 LIMIT 1`,
		query, location, since,
	).Scan(&entry.ID, &entry.Query, &entry.Location, &entry.Provider, &dataJSON, &entry.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get search cache: %w", err)
	}

	if err := json.Unmarshal(dataJSON, &entry.Data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}
	return &entry, nil
}
