package document

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

func (e *Extractor) pdfPages(path string, check func() error, log *slog.Logger) ([]string, error) {
	f, r, err := openPDF(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	n := r.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := check(); err != nil {
			return nil, err
		}
		text, err := pageText(r, i)
		if err != nil {
			return nil, fmt.Errorf("pdf %s page %d: %w", path, i, err)
		}
		pages = append(pages, text)
		log.Debug("page extracted", "page", i, "of", n)
	}
	return pages, nil
}

// imageOnly reports whether no page carries extractable text, which usually
// means a scanned document.
func imageOnly(pages []string) bool {
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			return false
		}
	}
	return true
}

// openPDF wraps pdf.Open, which panics on some malformed cross-reference tables.
func openPDF(path string) (f *os.File, r *pdf.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			if f != nil {
				f.Close() //nolint:errcheck
			}
			f, r, err = nil, nil, fmt.Errorf("open pdf %s: malformed file: %v", path, p)
		}
	}()
	f, r, err = pdf.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	return f, r, nil
}

func pageText(r *pdf.Reader, i int) (string, error) {
	p := r.Page(i)
	if p.V.IsNull() {
		return "", nil
	}
	return p.GetPlainText(nil)
}
