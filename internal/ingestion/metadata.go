package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"
)

// Metadata describes one extraction: where the file came from, what it was
// and a fingerprint of the cleaned text.
type Metadata struct {
	Source      string    `json:"source,omitempty"` // URL or file path
	ContentType string    `json:"content_type,omitempty"`
	Format      string    `json:"format,omitempty"`
	Bytes       int       `json:"bytes"`
	Chars       int       `json:"chars"`
	Lines       int       `json:"lines"`
	ExtractedAt time.Time `json:"extracted_at"`
	Hash        string    `json:"hash"` // SHA-256 of the cleaned text
}

// NewMetadata describes cleaned text taken from source.
func NewMetadata(cleaned, source string) *Metadata {
	return &Metadata{
		Source:      source,
		Chars:       utf8.RuneCountInString(cleaned),
		Lines:       countLines(cleaned),
		ExtractedAt: time.Now().UTC().Truncate(time.Second),
		Hash:        Fingerprint(cleaned),
	}
}

// Fingerprint returns the hex SHA-256 of text. Re-uploads of the same resume
// produce the same fingerprint because CleanText is deterministic.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// JSON renders the metadata for the extract command.
func (m *Metadata) JSON() ([]byte, error) {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return b, nil
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := 1
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			n++
		}
	}
	return n
}
