package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/resume-pipeline/internal/types"
)

// -----------------------------------------------------------------------------
// Job Context Methods
// -----------------------------------------------------------------------------

const jobContextColumns = `id, user_id, document_id, title, description, requirements,
	enhancement, search_queries, created_at`

// CreateJobContext inserts a job context in the created phase.
func (db *DB) CreateJobContext(ctx context.Context, jc *types.JobContext) error {
	if jc.ID == uuid.Nil {
		jc.ID = uuid.New()
	}

	err := db.pool.QueryRow(ctx,
		`INSERT INTO job_contexts (id, user_id, document_id, title, description)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		jc.ID, jc.UserID, jc.DocumentID, jc.Title, jc.Description,
	).Scan(&jc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create job context: %w", err)
	}
	return nil
}

// GetJobContext retrieves a job context by ID. Returns nil when it does not exist.
func (db *DB) GetJobContext(ctx context.Context, id uuid.UUID) (*types.JobContext, error) {
	jc, err := scanJobContext(db.pool.QueryRow(ctx,
		`SELECT `+jobContextColumns+` FROM job_contexts WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job context: %w", err)
	}
	return jc, nil
}

// LatestJobContext returns the newest job context for a user, or nil.
func (db *DB) LatestJobContext(ctx context.Context, userID uuid.UUID) (*types.JobContext, error) {
	jc, err := scanJobContext(db.pool.QueryRow(ctx,
		`SELECT `+jobContextColumns+` FROM job_contexts
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT 1`, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest job context: %w", err)
	}
	return jc, nil
}

// SaveJobEnrichment writes requirements, enhancement and search queries together.
func (db *DB) SaveJobEnrichment(ctx context.Context, id uuid.UUID, e types.JobEnrichment) error {
	var enhancementJSON []byte
	if e.Enhancement != nil {
		var err error
		enhancementJSON, err = json.Marshal(e.Enhancement)
		if err != nil {
			return fmt.Errorf("failed to marshal enhancement: %w", err)
		}
	}
	var requirements []byte
	if len(e.Requirements) > 0 {
		requirements = e.Requirements
	}
	queries := e.SearchQueries
	if queries == nil {
		queries = []string{}
	}

	tag, err := db.pool.Exec(ctx,
		`UPDATE job_contexts SET requirements = $2, enhancement = $3, search_queries = $4
		 WHERE id = $1`,
		id, requirements, enhancementJSON, queries,
	)
	if err != nil {
		return fmt.Errorf("failed to save job enrichment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job context %s: %w", id, types.ErrNotFound)
	}
	return nil
}

func scanJobContext(row pgx.Row) (*types.JobContext, error) {
	var jc types.JobContext
	var requirements, enhancementJSON []byte

	err := row.Scan(&jc.ID, &jc.UserID, &jc.DocumentID, &jc.Title, &jc.Description,
		&requirements, &enhancementJSON, &jc.SearchQueries, &jc.CreatedAt)
	if err != nil {
		return nil, err
	}

	if requirements != nil {
		jc.Requirements = requirements
	}
	if enhancementJSON != nil {
		var e types.Enhancement
		if err := json.Unmarshal(enhancementJSON, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal enhancement: %w", err)
		}
		jc.Enhancement = &e
	}
	return &jc, nil
}
