package textextract

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// #region errors
var (
	// ErrUnsupportedFormat marks a MIME type no extractor handles.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrExtractionError marks a document that matched a supported format
	// but yielded no usable text.
	ErrExtractionError = errors.New("text extraction error")
)

// #endregion errors

// #region interface
// Extractor is the injected text-extraction capability. PDF, DOCX and OCR
// extraction live behind this interface in external collaborators; the core
// only ever consumes plain text.
type Extractor interface {
	Extract(fileBytes []byte, mimeType string) (string, error)
}

// #endregion interface

// #region plain-text
// PlainText extracts text/plain and text/markdown payloads.
type PlainText struct{}

// NewPlainText returns the plain-text extractor.
func NewPlainText() *PlainText {
	return &PlainText{}
}

// Extract validates the MIME type and returns the payload as a string.
func (p *PlainText) Extract(fileBytes []byte, mimeType string) (string, error) {
	base := mimeType
	if i := strings.Index(base, ";"); i >= 0 {
		base = base[:i]
	}
	base = strings.TrimSpace(strings.ToLower(base))

	switch base {
	case "text/plain", "text/markdown", "":
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
	}

	if !utf8.Valid(fileBytes) {
		return "", fmt.Errorf("%w: payload is not valid UTF-8", ErrExtractionError)
	}
	text := string(fileBytes)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no text content", ErrExtractionError)
	}
	return text, nil
}

// #endregion plain-text
