// Package imports reads lead spreadsheets. The first row is a header; its
// columns are matched to lead fields by name, case-insensitively.
package imports

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// MaxRows bounds a single import.
const MaxRows = 5000

var (
	ErrUnsupportedFormat = errors.New("unsupported file format, expected .csv or .xlsx")
	ErrNoHeader          = errors.New("file has no header row")
	ErrNoNameColumn      = errors.New("header has no name column")
	ErrTooManyRows       = fmt.Errorf("file has more than %d rows", MaxRows)
)

type Row struct {
	Line    int
	Name    string
	Email   string
	Phone   string
	Company string
	Source  string
	Notes   string
	Value   float64
}

var aliases = map[string]string{
	"name":      "name",
	"nome":      "name",
	"full name": "name",
	"email":     "email",
	"e-mail":    "email",
	"phone":     "phone",
	"telefone":  "phone",
	"mobile":    "phone",
	"whatsapp":  "phone",
	"company":   "company",
	"empresa":   "company",
	"source":    "source",
	"origem":    "source",
	"notes":     "notes",
	"notas":     "notes",
	"value":     "value",
	"valor":     "value",
}

// Parse reads a .csv or .xlsx file, chosen by the file name's extension.
func Parse(filename string, r io.Reader) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return ParseCSV(r)
	case ".xlsx":
		return ParseXLSX(r)
	default:
		return nil, ErrUnsupportedFormat
	}
}

func ParseCSV(r io.Reader) ([]Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	if semicolonSeparated(data) {
		cr.Comma = ';'
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing csv: %w", err)
	}
	return fromRecords(records)
}

// semicolonSeparated guesses the delimiter from the header line, as
// spreadsheets exported with a comma decimal separator use ';'.
func semicolonSeparated(data []byte) bool {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	return bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(","))
}

// ParseXLSX reads the first sheet of a workbook.
func ParseXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoHeader
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}
	return fromRecords(records)
}

func fromRecords(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, ErrNoHeader
	}
	if len(records)-1 > MaxRows {
		return nil, ErrTooManyRows
	}

	columns := make(map[string]int)
	for i, h := range records[0] {
		if field, ok := aliases[strings.ToLower(strings.TrimSpace(h))]; ok {
			if _, dup := columns[field]; !dup {
				columns[field] = i
			}
		}
	}
	if _, ok := columns["name"]; !ok {
		return nil, ErrNoNameColumn
	}

	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		get := func(field string) string {
			idx, ok := columns[field]
			if !ok || idx >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[idx])
		}
		if blank(rec) {
			continue
		}
		row := Row{
			Line:    i + 2,
			Name:    get("name"),
			Email:   get("email"),
			Phone:   get("phone"),
			Company: get("company"),
			Source:  get("source"),
			Notes:   get("notes"),
		}
		if v := get("value"); v != "" {
			row.Value, _ = strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
