package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobContext is a target-role description attached to a Document.
// Requirements, Enhancement and SearchQueries are only ever set together.
type JobContext struct {
	ID            uuid.UUID       `json:"id"`
	UserID        *uuid.UUID      `json:"user_id,omitempty"`
	DocumentID    uuid.UUID       `json:"document_id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Requirements  json.RawMessage `json:"requirements,omitempty"`
	Enhancement   *Enhancement    `json:"enhancement,omitempty"`
	SearchQueries []string        `json:"search_queries,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewJobContext holds the user input used to create a JobContext.
type NewJobContext struct {
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	DocumentID  uuid.UUID  `json:"document_id" validate:"required"`
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description" validate:"required"`
}

// JobRequirements is the AI-structured form of a job description.
type JobRequirements struct {
	RequiredSkills  []string `json:"required_skills"`
	PreferredSkills []string `json:"preferred_skills"`
	ExperienceLevel string   `json:"experience_level"`
	Keywords        []string `json:"keywords"`
}

// BulletRewrite suggests a stronger version of an existing resume bullet.
type BulletRewrite struct {
	Original string `json:"original"`
	Improved string `json:"improved"`
	Reason   string `json:"reason,omitempty"`
}

// Enhancement holds the AI suggestions produced for one JobContext and one Document.
type Enhancement struct {
	MissingKeywords    []string        `json:"missing_keywords"`
	WeakSkills         []string        `json:"weak_skills"`
	BulletRewrites     []BulletRewrite `json:"bullet_rewrites"`
	SectionSuggestions []string        `json:"section_suggestions"`
	OverallVerdict     string          `json:"overall_verdict"`
	SearchQueries      []string        `json:"search_queries"`
}

// JobEnrichment is the complete set of fields the enhancement pipeline writes at once.
type JobEnrichment struct {
	Requirements  json.RawMessage
	Enhancement   *Enhancement
	SearchQueries []string
}
