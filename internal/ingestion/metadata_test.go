package ingestion

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetadata(t *testing.T) {
	before := time.Now().UTC().Add(-time.Second)
	meta := NewMetadata("Zoë Doe\n\nEngineer", "resume.pdf")

	assert.Equal(t, "resume.pdf", meta.Source)
	assert.Equal(t, 17, meta.Chars, "chars count runes, not bytes")
	assert.Equal(t, 3, meta.Lines)
	assert.Len(t, meta.Hash, 64)
	assert.True(t, meta.ExtractedAt.After(before))
}

func TestNewMetadata_Empty(t *testing.T) {
	meta := NewMetadata("", "")
	assert.Zero(t, meta.Chars)
	assert.Zero(t, meta.Lines)
	assert.Equal(t, Fingerprint(""), meta.Hash)
}

func TestFingerprint(t *testing.T) {
	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", Fingerprint("abc"))
	assert.NotEqual(t, Fingerprint("Jane Doe"), Fingerprint("Jane  Doe"))
	assert.Equal(t, Fingerprint(CleanText("Jane   Doe\r\n")), Fingerprint(CleanText("Jane Doe")))
}

func TestMetadata_JSON(t *testing.T) {
	meta := &Metadata{
		Source:      "https://files.example.com/resume.docx",
		Format:      FormatDOCX,
		Bytes:       2048,
		Chars:       900,
		ExtractedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Hash:        "abcd1234",
	}

	b, err := meta.JSON()
	require.NoError(t, err)
	assert.Contains(t, string(b), `"extracted_at": "2024-01-01T00:00:00Z"`)
	assert.NotContains(t, string(b), "content_type", "empty optional fields are omitted")

	var back Metadata
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, *meta, back)
}
