// Package document extracts plain text from uploaded files.
//
// Supported formats: .pdf (per page), .docx (per paragraph), .csv and .xlsx
// (rendered as aligned tables). A PDF without a text layer fails with
// ErrImageOnlyPDF. Extraction consults a checkpoint before it
// starts and before each page, paragraph or sheet; a checkpoint error aborts
// extraction and is returned unchanged.
package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrUnsupportedFormat is returned for file extensions the extractor cannot read.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrImageOnlyPDF is returned for a PDF none of whose pages carry text.
	ErrImageOnlyPDF = errors.New("scanned PDF, no extractable text")
)

// SupportedExtensions lists the extensions Extract accepts, lower-case.
var SupportedExtensions = []string{".pdf", ".docx", ".csv", ".xlsx"}

// Extractor reads document text.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates an Extractor. A nil logger discards output.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Extractor{logger: logger}
}

// Supported reports whether path has an extension Extract can read.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Extract returns the text of the document at path. checkpoint may be nil.
func (e *Extractor) Extract(ctx context.Context, path string, checkpoint func() error) (string, error) {
	check := func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if checkpoint != nil {
			return checkpoint()
		}
		return nil
	}

	start := time.Now()
	log := e.logger.With("file", filepath.Base(path))
	log.Info("extraction started")
	if err := check(); err != nil {
		log.Info("extraction cancelled before start")
		return "", err
	}

	var (
		parts []string
		err   error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		if parts, err = e.pdfPages(path, check, log); err == nil && imageOnly(parts) {
			log.Warn("pdf has no text layer", "pages", len(parts))
			return "", ErrImageOnlyPDF
		}
	case ".docx":
		parts, err = docxParagraphs(path, check, log)
	case ".csv":
		var t Table
		if t, err = LoadCSV(path); err == nil {
			parts = []string{t.String()}
		}
	case ".xlsx":
		parts, err = xlsxSheets(path, check)
	default:
		log.Warn("unsupported format", "ext", ext)
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		log.Warn("extraction stopped", "error", err)
		return "", err
	}

	log.Info("extraction finished", "parts", len(parts), "elapsed", time.Since(start).Round(time.Millisecond))
	return strings.Join(parts, "\n"), nil
}

func xlsxSheets(path string, check func() error) ([]string, error) {
	sheets, err := LoadXLSXSheets(path)
	if err != nil {
		return nil, err
	}
	parts := make([]string, 0, len(sheets))
	for _, s := range sheets {
		if err := check(); err != nil {
			return nil, err
		}
		text := s.Table.String()
		if len(sheets) > 1 {
			text = "[" + s.Name + "]\n" + text
		}
		parts = append(parts, text)
	}
	return parts, nil
}
