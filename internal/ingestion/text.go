// Package ingestion turns uploaded resume files into clean plain text.
package ingestion

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// invisible maps characters that PDF and Word exports leave behind to their
// plain equivalents. Form feeds mark page breaks.
var invisible = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
	"\f", "\n\n",
	"\u00a0", " ", // no-break space
	"\u200b", "", // zero-width space
	"\u200c", "",
	"\u200d", "",
	"\ufeff", "", // byte order mark
	"\u00ad", "", // soft hyphen
)

// CleanText normalizes extracted resume text. Leading indentation is kept,
// runs of inner whitespace collapse to one space, trailing whitespace is
// dropped and paragraphs are separated by at most one blank line.
// The output is deterministic so it can be hashed.
func CleanText(content string) string {
	content = invisible.Replace(content)

	var sb strings.Builder
	sb.Grow(len(content))
	blank := 0
	for _, line := range strings.Split(content, "\n") {
		line = cleanLine(line)
		if line == "" {
			blank++
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(strings.Repeat("\n", min(blank, 1)+1))
		}
		sb.WriteString(line)
		blank = 0
	}
	return sb.String()
}

// cleanLine keeps the line's indentation and collapses everything after it.
func cleanLine(line string) string {
	body := strings.TrimLeft(line, " \t")
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return ""
	}
	indent := strings.ReplaceAll(line[:len(line)-len(body)], "\t", "    ")
	return indent + strings.Join(fields, " ")
}

// IngestFromFile reads a local file, extracts its text and cleans it.
func IngestFromFile(path string) (string, *Metadata, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil, fmt.Errorf("file not found: %w", err)
		}
		return "", nil, fmt.Errorf("failed to read file: %w", err)
	}

	text, format, err := Extract(filepath.Base(path), "", content)
	if err != nil {
		return "", nil, err
	}

	cleaned := CleanText(text)
	if cleaned == "" {
		return "", nil, &ExtractionError{Format: format, Message: "no text found in document"}
	}
	meta := NewMetadata(cleaned, path)
	meta.Format = format
	meta.Bytes = len(content)
	return cleaned, meta, nil
}
