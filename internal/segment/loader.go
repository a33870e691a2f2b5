// Package segment turns uploaded documents into clean text segments ready
// for the correction pipeline.
//
// A format-specific [Loader] extracts raw text units (paragraphs, lines,
// cells, slides) from the file, then [Prepare] cleans them up, merges short
// neighbours under a character budget, and filters near-duplicates. The
// resulting segments are what the corrector fans out to the model.
package segment

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned by [ForFile] for file extensions no loader
// handles.
var ErrUnsupportedFormat = errors.New("segment: unsupported file format")

// ErrNoText is returned by loaders when the document contains no extractable
// text at all.
var ErrNoText = errors.New("segment: no text content found")

// Loader extracts raw text units from a document on disk. Units are returned
// in document order and may still contain noise; run them through [Prepare]
// before handing them to the corrector.
type Loader interface {
	LoadSegments(ctx context.Context, path string) ([]string, error)
}

// ForFile returns the [Loader] responsible for path's extension.
func ForFile(path string) (Loader, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".docx", ".docm", ".dotm":
		return DocxLoader{}, nil
	case ".pdf":
		return PDFLoader{}, nil
	case ".txt", ".text":
		return TextLoader{}, nil
	case ".md", ".markdown":
		return MarkdownLoader{}, nil
	case ".csv":
		return CSVLoader{}, nil
	// Legacy .xls (OLE2 compound document) is deliberately absent: excelize
	// reads only zip-based OOXML workbooks.
	case ".xlsx", ".xlsm":
		return ExcelLoader{}, nil
	case ".pptx", ".pptm":
		return SlidesLoader{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Supported reports whether a loader exists for path's extension.
func Supported(path string) bool {
	_, err := ForFile(path)
	return err == nil
}

// Load extracts and prepares segments from the document at path in one step.
// maxChars is the advisory per-segment character budget; zero uses
// [DefaultMaxChars].
func Load(ctx context.Context, path string, maxChars int) ([]string, error) {
	loader, err := ForFile(path)
	if err != nil {
		return nil, err
	}
	units, err := loader.LoadSegments(ctx, path)
	if err != nil {
		return nil, err
	}
	return Prepare(units, maxChars), nil
}
