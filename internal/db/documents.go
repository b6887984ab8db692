package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/resume-pipeline/internal/lifecycle"
	"github.com/jonathan/resume-pipeline/internal/types"
)

// -----------------------------------------------------------------------------
// Document Methods
// -----------------------------------------------------------------------------

const documentColumns = `id, user_id, file_url, file_name, file_type, file_size, raw_text,
	structured_data, markup_source, status, created_at, updated_at`

// CreateDocument inserts a document, filling in ID, status and creation time when unset.
func (db *DB) CreateDocument(ctx context.Context, doc *types.Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.Status == "" {
		doc.Status = types.DocumentUploaded
	}

	err := db.pool.QueryRow(ctx,
		`INSERT INTO documents (id, user_id, file_url, file_name, file_type, file_size, raw_text, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at`,
		doc.ID, doc.UserID, doc.FileURL, doc.FileName, doc.FileType, doc.FileSize, doc.RawText, string(doc.Status),
	).Scan(&doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID. Returns nil when it does not exist.
func (db *DB) GetDocument(ctx context.Context, id uuid.UUID) (*types.Document, error) {
	var doc types.Document
	var status string
	var structured []byte

	err := db.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`,
		id,
	).Scan(&doc.ID, &doc.UserID, &doc.FileURL, &doc.FileName, &doc.FileType, &doc.FileSize,
		&doc.RawText, &structured, &doc.MarkupSource, &status, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	doc.Status = types.DocumentStatus(status)
	if structured != nil {
		doc.StructuredData = structured
	}
	return &doc, nil
}

// UpdateDocumentStatus moves a document to a new status if the transition is allowed.
func (db *DB) UpdateDocumentStatus(ctx context.Context, id uuid.UUID, to types.DocumentStatus) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE documents SET status = $2, updated_at = NOW()
		 WHERE id = $1 AND status = ANY($3)`,
		id, string(to), documentSources(to),
	)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.documentTransitionError(ctx, id, to)
	}
	return nil
}

// SaveDocumentResult writes raw text, structured data, markup and status in one update.
func (db *DB) SaveDocumentResult(ctx context.Context, id uuid.UUID, res types.DocumentResult) error {
	var structured []byte
	if len(res.StructuredData) > 0 {
		structured = res.StructuredData
	}

	tag, err := db.pool.Exec(ctx,
		`UPDATE documents
		 SET raw_text = $2, structured_data = $3, markup_source = $4, status = $5, updated_at = NOW()
		 WHERE id = $1 AND status = ANY($6)`,
		id, res.RawText, structured, res.MarkupSource, string(res.Status), documentSources(res.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to save document result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.documentTransitionError(ctx, id, res.Status)
	}
	return nil
}

// UpdateDocumentMarkup replaces the markup source. Status is left untouched.
func (db *DB) UpdateDocumentMarkup(ctx context.Context, id uuid.UUID, markup string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE documents SET markup_source = $2, updated_at = NOW() WHERE id = $1`,
		id, markup,
	)
	if err != nil {
		return fmt.Errorf("failed to update document markup: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, types.ErrNotFound)
	}
	return nil
}

// documentTransitionError explains why a conditional status update matched no row.
func (db *DB) documentTransitionError(ctx context.Context, id uuid.UUID, to types.DocumentStatus) error {
	var current string
	err := db.pool.QueryRow(ctx, `SELECT status FROM documents WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if err == pgx.ErrNoRows {
			return fmt.Errorf("document %s: %w", id, types.ErrNotFound)
		}
		return fmt.Errorf("failed to read document status: %w", err)
	}
	if err := lifecycle.DocumentTransition(types.DocumentStatus(current), to); err != nil {
		return err
	}
	// The row changed between the update and this read; report it as a conflict.
	return &lifecycle.TransitionError{Entity: "document", From: current, To: string(to)}
}

func documentSources(to types.DocumentStatus) []string {
	sources := lifecycle.DocumentSources(to)
	out := make([]string, len(sources))
	for i, s := range sources {
		out[i] = string(s)
	}
	return out
}
