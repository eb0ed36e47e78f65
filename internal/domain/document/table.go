package document

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// csvSeparators are the candidates considered when sniffing a CSV header.
var csvSeparators = []rune{',', ';', '\t', '|'}

// Table is a header plus string rows, as read from a CSV file or a sheet.
type Table struct {
	Header []string
	Rows   [][]string
}

// Records returns one map per row keyed by header name. Short rows leave
// trailing keys empty.
func (t Table) Records() []map[string]string {
	out := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]string, len(t.Header))
		for i, h := range t.Header {
			if i < len(row) {
				rec[h] = row[i]
			} else {
				rec[h] = ""
			}
		}
		out = append(out, rec)
	}
	return out
}

// String renders the table with aligned columns and a leading row number.
func (t Table) String() string {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "\t%s\n", strings.Join(t.Header, "\t"))
	for i, row := range t.Rows {
		fmt.Fprintf(tw, "%d\t%s\n", i, strings.Join(row, "\t"))
	}
	tw.Flush() //nolint:errcheck
	return strings.TrimRight(buf.String(), "\n")
}

// SniffSeparator picks the candidate separator that occurs most often in the
// header line. Ties go to the earlier candidate; a header with none of them
// yields ','.
func SniffSeparator(header string) rune {
	best, bestCount := csvSeparators[0], 0
	for _, sep := range csvSeparators {
		if n := strings.Count(header, string(sep)); n > bestCount {
			best, bestCount = sep, n
		}
	}
	return best
}

// LoadCSV reads a CSV file, sniffing the separator from its first line.
// Files that are not valid UTF-8 are decoded as ISO-8859-1. Ragged rows are
// accepted.
func LoadCSV(path string) (Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read csv %s: %w", path, err)
	}
	if !utf8.Valid(raw) {
		raw, err = charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if err != nil {
			return Table{}, fmt.Errorf("decode csv %s: %w", path, err)
		}
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))

	header, _, _ := strings.Cut(string(raw), "\n")
	r := csv.NewReader(bytes.NewReader(raw))
	r.Comma = SniffSeparator(header)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("parse csv %s: %w", path, err)
	}
	return newTable(rows), nil
}

// LoadXLSX reads the first sheet of a workbook.
func LoadXLSX(path string) (Table, error) {
	sheets, err := LoadXLSXSheets(path)
	if err != nil {
		return Table{}, err
	}
	if len(sheets) == 0 {
		return Table{}, nil
	}
	return sheets[0].Table, nil
}

// Sheet is one named worksheet.
type Sheet struct {
	Name  string
	Table Table
}

// LoadXLSXSheets reads every sheet of a workbook in workbook order.
func LoadXLSXSheets(path string) ([]Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	var sheets []Sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q of %s: %w", name, path, err)
		}
		sheets = append(sheets, Sheet{Name: name, Table: newTable(rows)})
	}
	return sheets, nil
}

func newTable(rows [][]string) Table {
	if len(rows) == 0 {
		return Table{}
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	return Table{Header: header, Rows: rows[1:]}
}
