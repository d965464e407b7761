// Package extract turns uploaded files into UTF-8 text for ingestion.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"github.com/seanblong/kbsearch/pkg/models"
)

// ExtractionError reports that a file of the declared type could not be
// decoded.
type ExtractionError struct {
	Type models.DocType
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s extraction failed: %v", strings.ToUpper(string(e.Type)), e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Placeholder is the diagnostic text stored in place of the document body
// when extraction fails, so the upload still produces one searchable chunk.
func (e *ExtractionError) Placeholder() string {
	return "[" + e.Error() + "]"
}

var extTypes = map[string]models.DocType{
	".pdf":      models.DocTypePDF,
	".md":       models.DocTypeMarkdown,
	".markdown": models.DocTypeMarkdown,
	".txt":      models.DocTypeText,
	".html":     models.DocTypeHTML,
	".htm":      models.DocTypeHTML,
	".docx":     models.DocTypeDOCX,
}

// TypeFromFilename maps a file extension to a document type. ok is false
// for unknown extensions.
func TypeFromFilename(name string) (models.DocType, bool) {
	t, ok := extTypes[strings.ToLower(filepath.Ext(name))]
	return t, ok
}

// Supported reports whether files with this name are ingested by the
// directory indexer.
func Supported(name string) bool {
	_, ok := TypeFromFilename(name)
	return ok
}

// DetectType uses the file extension when it is known and falls back to
// sniffing the content. Anything unrecognised is treated as plain text.
func DetectType(filename string, data []byte) models.DocType {
	if t, ok := TypeFromFilename(filename); ok {
		return t
	}
	mt := mimetype.Detect(data)
	switch {
	case mt.Is("application/pdf"):
		return models.DocTypePDF
	case mt.Is("text/html"):
		return models.DocTypeHTML
	case mt.Is("application/vnd.openxmlformats-officedocument.wordprocessingml.document"):
		return models.DocTypeDOCX
	default:
		return models.DocTypeText
	}
}

// Text decodes data according to t. Failures are returned as
// *ExtractionError.
func Text(data []byte, t models.DocType) (string, error) {
	var (
		out string
		err error
	)
	switch t {
	case models.DocTypePDF:
		out, err = pdfText(data)
	case models.DocTypeHTML:
		out, err = htmlText(data)
	case models.DocTypeMarkdown:
		out, err = markdownText(data)
	case models.DocTypeDOCX:
		out, err = docxText(data)
	default:
		out, err = plainText(data)
	}
	if err != nil {
		return "", &ExtractionError{Type: t, Err: err}
	}
	return out, nil
}

// TextOrPlaceholder is Text, except that an extraction failure yields the
// error's placeholder text alongside the error.
func TextOrPlaceholder(data []byte, t models.DocType) (string, error) {
	out, err := Text(data, t)
	if err != nil {
		var ee *ExtractionError
		if errors.As(err, &ee) {
			return ee.Placeholder(), err
		}
		return "", err
	}
	return out, nil
}

func plainText(data []byte) (string, error) {
	if bytes.IndexByte(data, 0) >= 0 {
		return "", errors.New("binary content")
	}
	if !utf8.Valid(data) {
		return strings.ToValidUTF8(string(data), "\uFFFD"), nil
	}
	return string(data), nil
}
