package document

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const docxBody = "word/document.xml"

// docxParagraphs returns the text of each w:p element of the main document
// part, in order. Runs are concatenated; w:tab and w:br become whitespace.
func docxParagraphs(path string, check func() error, log *slog.Logger) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open docx %s: %w", path, err)
	}
	defer zr.Close() //nolint:errcheck

	part, err := zr.Open(docxBody)
	if err != nil {
		return nil, fmt.Errorf("docx %s: %w", path, err)
	}
	defer part.Close() //nolint:errcheck

	var (
		paras  []string
		cur    strings.Builder
		inText bool
	)
	dec := xml.NewDecoder(part)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("docx %s: %w", path, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				if err := check(); err != nil {
					return nil, err
				}
				cur.Reset()
			case "t":
				inText = true
			case "tab":
				cur.WriteByte('\t')
			case "br", "cr":
				cur.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				paras = append(paras, cur.String())
				log.Debug("paragraph extracted", "paragraph", len(paras))
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	return paras, nil
}
