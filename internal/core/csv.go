package core

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// csvRow is one person of an import file: name, dept, role, email and an
// optional currency.
type csvRow struct {
	line     int
	name     string
	dept     string
	role     string
	email    string
	currency string
}

// decodeText returns raw as UTF-8. A byte order mark selects the encoding;
// without one, content that is not valid UTF-8 is read as Latin-1, as
// spreadsheets often export.
func decodeText(raw []byte) ([]byte, error) {
	var fallback transform.Transformer = transform.Nop
	if !utf8.Valid(raw) {
		fallback = charmap.ISO8859_1.NewDecoder()
	}
	out, _, err := transform.Bytes(unicode.BOMOverride(fallback), raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode: %w", err)
	}
	return norm.NFC.Bytes(out), nil
}

// parseCSV reads people rows. A first row naming an "email" column is taken
// as a header and skipped.
func parseCSV(r io.Reader) ([]csvRow, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	text, err := decodeText(raw)
	if err != nil {
		return nil, err
	}
	cr := csv.NewReader(bytes.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	var rows []csvRow
	for first := true; ; first = false {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if len(rec) < 4 || len(rec) > 5 {
			return nil, fmt.Errorf("line %d: want name, dept, role, email[, currency]; got %d columns", line, len(rec))
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		if first && strings.EqualFold(rec[3], "email") {
			continue
		}
		row := csvRow{line: line, name: rec[0], dept: rec[1], role: rec[2], email: rec[3]}
		if len(rec) == 5 {
			row.currency = rec[4]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
