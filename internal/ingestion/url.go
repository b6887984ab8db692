package ingestion

import (
	"context"
	"fmt"

	"github.com/jonathan/resume-pipeline/internal/fetch"
)

// IngestFromURL downloads an uploaded file, extracts its text and cleans it.
// fileName is used as a format hint when the bytes are ambiguous.
func IngestFromURL(ctx context.Context, fileURL, fileName string, opts *fetch.Options) (string, *Metadata, error) {
	result, err := fetch.URL(ctx, fileURL, opts)
	if err != nil {
		return "", nil, fmt.Errorf("failed to download %s: %w", fileName, err)
	}

	text, format, err := Extract(fileName, result.ContentType, result.Body)
	if err != nil {
		return "", nil, err
	}

	cleaned := CleanText(text)
	if cleaned == "" {
		return "", nil, &ExtractionError{Format: format, Message: "no text found in document"}
	}

	metadata := NewMetadata(cleaned, fileURL)
	metadata.ContentType = result.ContentType
	metadata.Format = format
	metadata.Bytes = len(result.Body)
	return cleaned, metadata, nil
}
