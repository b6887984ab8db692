package ingestion

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	pdf "github.com/ledongthuc/pdf"

	"github.com/jonathan/resume-pipeline/internal/fetch"
)

// Document formats recognised by Extract
const (
	FormatPDF  = "pdf"
	FormatDOCX = "docx"
	FormatHTML = "html"
	FormatText = "text"
)

// Extract sniffs the real format of data, falling back to the file name and
// content type, and returns its plain text.
func Extract(fileName, contentType string, data []byte) (string, string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	mt := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}

	if len(data) == 0 {
		return "", "", &ExtractionError{Message: "empty file"}
	}

	// Magic bytes first
	switch {
	case isPDF(data):
		text, err := extractPDF(data)
		return text, FormatPDF, err
	case isZip(data):
		text, err := extractDOCX(data)
		return text, FormatDOCX, err
	case looksLikeHTML(data) || mt == "text/html" || ext == ".html" || ext == ".htm":
		text, err := fetch.ExtractMainText(string(data), fetch.DefaultTextSelectors())
		if err != nil {
			return "", FormatHTML, &ExtractionError{Format: FormatHTML, Message: "failed to parse HTML", Cause: err}
		}
		return text, FormatHTML, nil
	case isProbablyText(data):
		return string(data), FormatText, nil
	}

	if mt == "application/pdf" || ext == ".pdf" {
		return "", FormatPDF, &ExtractionError{Format: FormatPDF, Message: "file claims pdf but is missing the %PDF header"}
	}
	return "", "", &UnsupportedFormatError{FileName: fileName, ContentType: contentType}
}

func isPDF(b []byte) bool {
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}

func isZip(b []byte) bool {
	return len(b) >= 4 && b[0] == 'P' && b[1] == 'K' && b[2] == 3 && b[3] == 4
}

func looksLikeHTML(b []byte) bool {
	s := strings.ToLower(strings.TrimSpace(string(b[:min(len(b), 2048)])))
	return strings.HasPrefix(s, "<!doctype") || strings.HasPrefix(s, "<html")
}

// isProbablyText accepts data with no NUL bytes in which at least 95% of the
// sampled bytes are printable or whitespace.
func isProbablyText(b []byte) bool {
	sample := b[:min(len(b), 4096)]
	good := 0
	for _, c := range sample {
		if c == 0x00 {
			return false
		}
		if c == '\n' || c == '\r' || c == '\t' || (c >= 0x20 && c <= 0x7E) || c >= 0x80 {
			good++
		}
	}
	return good*100 >= len(sample)*95
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &ExtractionError{Format: FormatPDF, Message: "failed to open PDF", Cause: err}
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", &ExtractionError{Format: FormatPDF, Message: "failed to read PDF text", Cause: err}
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", &ExtractionError{Format: FormatPDF, Message: "failed to read PDF text", Cause: err}
	}
	return string(b), nil
}

// extractDOCX gathers the <w:t> runs of word/document.xml, one paragraph per line.
func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &ExtractionError{Format: FormatDOCX, Message: "invalid zip container", Cause: err}
	}
	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", &ExtractionError{Format: FormatDOCX, Message: "zip does not contain word/document.xml"}
	}

	rc, err := doc.Open()
	if err != nil {
		return "", &ExtractionError{Format: FormatDOCX, Message: "failed to open document.xml", Cause: err}
	}
	defer func() { _ = rc.Close() }()

	var out strings.Builder
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", &ExtractionError{Format: FormatDOCX, Message: "malformed document.xml", Cause: err}
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "t" {
				var v string
				if err := dec.DecodeElement(&v, &el); err == nil {
					out.WriteString(v)
				}
			}
		case xml.EndElement:
			if el.Name.Local == "p" {
				out.WriteString("\n")
			}
		}
	}
	return out.String(), nil
}

// ExtractionError reports a document whose text could not be read.
// The same bytes will fail again, so it is not retried.
type ExtractionError struct {
	Format  string
	Message string
	Cause   error
}

func (e *ExtractionError) Error() string {
	prefix := "extraction failed"
	if e.Format != "" {
		prefix = e.Format + " extraction failed"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

// NonRetriable marks extraction failures as permanent.
func (e *ExtractionError) NonRetriable() bool { return true }

// UnsupportedFormatError reports a file type with no text extractor (such as legacy .doc).
type UnsupportedFormatError struct {
	FileName    string
	ContentType string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file type: name=%s content-type=%s", e.FileName, e.ContentType)
}

// NonRetriable marks unsupported formats as permanent.
func (e *UnsupportedFormatError) NonRetriable() bool { return true }
