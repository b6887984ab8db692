// Package types defines the entities carried through the document pipeline.
package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DocumentStatus is the pipeline state of an uploaded resume.
type DocumentStatus string

// Document statuses
const (
	DocumentUploaded   DocumentStatus = "uploaded"
	DocumentProcessing DocumentStatus = "processing"
	DocumentCompleted  DocumentStatus = "completed"
	DocumentFailed     DocumentStatus = "failed"
)

// Document is a user-uploaded resume and everything the pipeline derived from it.
type Document struct {
	ID             uuid.UUID       `json:"id"`
	UserID         *uuid.UUID      `json:"user_id,omitempty"`
	FileURL        string          `json:"file_url,omitempty"`
	FileName       string          `json:"file_name"`
	FileType       string          `json:"file_type"` // pdf | doc | docx
	FileSize       int64           `json:"file_size"`
	RawText        *string         `json:"raw_text,omitempty"`
	StructuredData json.RawMessage `json:"structured_data,omitempty"`
	MarkupSource   *string         `json:"markup_source,omitempty"`
	Status         DocumentStatus  `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      *time.Time      `json:"updated_at,omitempty"`
}

// NewDocument holds the upload metadata used to create a Document.
type NewDocument struct {
	UserID   *uuid.UUID `json:"user_id,omitempty"`
	FileURL  string     `json:"file_url" validate:"omitempty,url"`
	FileName string     `json:"file_name" validate:"required"`
	FileType string     `json:"file_type" validate:"required,oneof=pdf doc docx"`
	FileSize int64      `json:"file_size" validate:"gte=0"`
	RawText  string     `json:"raw_text,omitempty"`
}

// DocumentResult is the set of fields the ingestion pipeline writes in its final step.
type DocumentResult struct {
	RawText        string
	StructuredData json.RawMessage
	MarkupSource   string
	Status         DocumentStatus
}
