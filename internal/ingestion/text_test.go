package ingestion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"only whitespace", "   \n \t \n  ", ""},
		{"collapses inner spaces", "Senior    Go   Engineer", "Senior Go Engineer"},
		{"trailing whitespace", "Jane Doe   \t\nEngineer  ", "Jane Doe\nEngineer"},
		{"line endings", "a\r\nb\rc\nd", "a\nb\nc\nd"},
		{"at most one blank line", "Experience\n\n\n\n\nEducation", "Experience\n\nEducation"},
		{"leading blank lines dropped", "\n\n\nJane", "Jane"},
		{"headings kept", "# Jane Doe\n## Experience\nAcme", "# Jane Doe\n## Experience\nAcme"},
		{"bullets kept", "- Built APIs\n* Ran oncall\n• Cut costs", "- Built APIs\n* Ran oncall\n• Cut costs"},
		{"indentation kept", "Acme\n  • Built   APIs", "Acme\n  • Built APIs"},
		{"tabs indent as spaces", "\tNested", "    Nested"},
		{"page break", "Page one\fPage two", "Page one\n\nPage two"},
		{"invisible characters", "Jane\u00a0Doe\u200b\ufeff co\u00adoperative", "Jane Doe cooperative"},
		{"unicode kept", "Zoë Müller 🚀 naïve", "Zoë Müller 🚀 naïve"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.input))
		})
	}
}

func TestCleanText_Idempotent(t *testing.T) {
	input := "Jane   Doe\r\n\r\n\r\n  - Go,   SQL\f Projects"
	once := CleanText(input)
	assert.Equal(t, once, CleanText(once))
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestIngestFromFile_Text(t *testing.T) {
	path := writeFile(t, "resume.txt", "Jane   Doe\n\n\n\nGo Engineer\n")

	text, meta, err := IngestFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\n\nGo Engineer", text)
	assert.Equal(t, FormatText, meta.Format)
	assert.Equal(t, path, meta.Source)
	assert.Equal(t, len("Jane   Doe\n\n\n\nGo Engineer\n"), meta.Bytes)
	assert.Equal(t, Fingerprint(text), meta.Hash)
}

func TestIngestFromFile_SameTextSameHash(t *testing.T) {
	_, a, err := IngestFromFile(writeFile(t, "a.txt", "Jane Doe\r\nEngineer"))
	require.NoError(t, err)
	_, b, err := IngestFromFile(writeFile(t, "b.txt", "Jane   Doe\nEngineer\n\n"))
	require.NoError(t, err)
	_, c, err := IngestFromFile(writeFile(t, "c.txt", "John Doe\nEngineer"))
	require.NoError(t, err)

	assert.Equal(t, a.Hash, b.Hash)
	assert.NotEqual(t, a.Hash, c.Hash)
}

func TestIngestFromFile_Errors(t *testing.T) {
	_, meta, err := IngestFromFile(filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
	assert.Nil(t, meta)
	assert.Contains(t, err.Error(), "file not found")

	_, _, err = IngestFromFile(writeFile(t, "blank.txt", " \n\t\n"))
	var extractErr *ExtractionError
	assert.ErrorAs(t, err, &extractErr)
}

func TestIngestFromFile_DOCX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.docx")
	require.NoError(t, os.WriteFile(path, buildDOCX(t, "Jane Doe", "Senior   Engineer"), 0644))

	text, meta, err := IngestFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nSenior Engineer", text)
	assert.Equal(t, FormatDOCX, meta.Format)
	assert.Equal(t, path, meta.Source)
}
