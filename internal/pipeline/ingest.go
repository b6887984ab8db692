package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/resume-pipeline/internal/ingestion"
	"github.com/jonathan/resume-pipeline/internal/lifecycle"
	"github.com/jonathan/resume-pipeline/internal/pipeline/steps"
	"github.com/jonathan/resume-pipeline/internal/types"
	"github.com/jonathan/resume-pipeline/internal/workflow"
)

// documentSnapshot is the part of a document the ingestion steps need.
type documentSnapshot struct {
	FileURL  string `json:"file_url"`
	FileName string `json:"file_name"`
	RawText  string `json:"raw_text"`
}

// IngestResult is the output of a completed ingestion run.
type IngestResult struct {
	DocumentID uuid.UUID `json:"documentId"`
	Chars      int       `json:"chars"`
	MarkupSize int       `json:"markupSize"`
}

// ingest carries an uploaded document from raw text to editable markup.
func (p *pipelines) ingest(ctx context.Context, run *workflow.Run) (any, error) {
	var in DocumentUploaded
	if err := decodePayload(run, &in); err != nil {
		return nil, err
	}
	store := p.deps.Store

	doc, err := workflow.Step(ctx, run, steps.LoadDocument, func(ctx context.Context) (documentSnapshot, error) {
		d, err := store.GetDocument(ctx, in.DocumentID)
		if err != nil {
			return documentSnapshot{}, err
		}
		if d == nil {
			return documentSnapshot{}, workflow.NonRetriable(fmt.Errorf("document %s: %w", in.DocumentID, types.ErrNotFound))
		}
		snap := documentSnapshot{FileURL: d.FileURL, FileName: d.FileName}
		if d.RawText != nil {
			snap.RawText = *d.RawText
		}
		return snap, nil
	})
	if err != nil {
		return nil, err
	}

	if err := workflow.Do(ctx, run, steps.MarkProcessing, func(ctx context.Context) error {
		return store.UpdateDocumentStatus(ctx, in.DocumentID, types.DocumentProcessing)
	}); err != nil {
		return nil, err
	}

	rawText, err := workflow.Step(ctx, run, steps.ExtractText, func(ctx context.Context) (string, error) {
		return p.extractText(ctx, run, in, doc)
	})
	if err != nil {
		return nil, err
	}

	structured, err := workflow.Step(ctx, run, steps.StructureResume, func(ctx context.Context) (*types.ResumeData, error) {
		return p.deps.Structurer.StructureResume(ctx, rawText)
	})
	if err != nil {
		return nil, err
	}

	markup, err := workflow.Step(ctx, run, steps.GenerateMarkup, func(ctx context.Context) (string, error) {
		return p.deps.Markup.GenerateMarkup(ctx, structured)
	})
	if err != nil {
		return nil, err
	}

	if err := workflow.Do(ctx, run, steps.SaveResult, func(ctx context.Context) error {
		data, err := json.Marshal(structured)
		if err != nil {
			return workflow.NonRetriable(fmt.Errorf("failed to encode structured data: %w", err))
		}
		return store.SaveDocumentResult(ctx, in.DocumentID, types.DocumentResult{
			RawText:        rawText,
			StructuredData: data,
			MarkupSource:   markup,
			Status:         types.DocumentUploaded,
		})
	}); err != nil {
		return nil, err
	}

	return IngestResult{DocumentID: in.DocumentID, Chars: len(rawText), MarkupSize: len(markup)}, nil
}

// extractText prefers text carried by the event, then text already on the
// document, and only then downloads and extracts the uploaded file.
func (p *pipelines) extractText(ctx context.Context, run *workflow.Run, in DocumentUploaded, doc documentSnapshot) (string, error) {
	if text := strings.TrimSpace(in.RawText); text != "" {
		return ingestion.CleanText(text), nil
	}
	if text := strings.TrimSpace(doc.RawText); text != "" {
		return ingestion.CleanText(text), nil
	}

	fileURL := in.FileURL
	if fileURL == "" {
		fileURL = doc.FileURL
	}
	if fileURL == "" {
		return "", &ValidationError{Field: "rawText", Message: "no raw text and no file URL to extract from"}
	}

	text, meta, err := ingestion.IngestFromURL(ctx, fileURL, doc.FileName, p.deps.Download)
	if err != nil {
		return "", err
	}
	run.Logger().Info("extracted document text",
		"document_id", in.DocumentID, "format", meta.Format, "bytes", meta.Bytes, "chars", meta.Chars)
	return text, nil
}

// ingestFailed marks the document failed once the run gives up.
func (p *pipelines) ingestFailed(ctx context.Context, run *workflow.Run, cause error) error {
	var in DocumentUploaded
	if err := run.Event.Decode(&in); err != nil || in.DocumentID == uuid.Nil {
		return nil
	}
	err := p.deps.Store.UpdateDocumentStatus(ctx, in.DocumentID, types.DocumentFailed)
	var terr *lifecycle.TransitionError
	if errors.As(err, &terr) || errors.Is(err, types.ErrNotFound) {
		// Failed before mark-processing; nothing was started.
		run.Logger().Warn("document left unchanged after failed ingestion",
			"document_id", in.DocumentID, "status_error", err, "cause", cause)
		return nil
	}
	return err
}
