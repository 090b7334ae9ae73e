package normalizer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const pricePrecision = 4

// table is a delimited file split into a header index and data rows.
type table struct {
	format  Format
	columns map[string]int
	width   int
	rows    []row
}

type row struct {
	line   int
	fields []string
}

func readTable(content []byte, format Format, delimiter rune) (*table, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, &MalformedError{Format: format, Line: 1, Reason: err.Error()}
	}

	t := &table{format: format, columns: make(map[string]int, len(header)), width: len(header)}
	for i, name := range header {
		t.columns[strings.TrimSpace(name)] = i
	}

	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				line = parseErr.Line
			}
			return nil, &MalformedError{Format: format, Line: line, Reason: err.Error()}
		}
		line, _ := reader.FieldPos(0)
		if isBlank(fields) {
			continue
		}
		if len(fields) > t.width {
			return nil, &MalformedError{Format: format, Line: line, Reason: "more fields than header columns"}
		}
		t.rows = append(t.rows, row{line: line, fields: fields})
	}

	if len(t.rows) == 0 {
		return nil, ErrEmpty
	}
	return t, nil
}

// require checks that every named column is present in the header.
func (t *table) require(names ...string) error {
	for _, name := range names {
		if _, ok := t.columns[name]; !ok {
			return &MalformedError{Format: t.format, Column: name, Reason: "missing column"}
		}
	}
	return nil
}

// value returns the trimmed, non-empty cell of column name in r.
func (t *table) value(r row, name string) (string, error) {
	idx := t.columns[name]
	if idx >= len(r.fields) {
		return "", &MalformedError{Format: t.format, Line: r.line, Column: name, Reason: "missing value"}
	}
	v := strings.TrimSpace(r.fields[idx])
	if v == "" {
		return "", &MalformedError{Format: t.format, Line: r.line, Column: name, Reason: "empty value"}
	}
	return v, nil
}

func (t *table) malformed(r row, column, reason string) error {
	return &MalformedError{Format: t.format, Line: r.line, Column: column, Reason: reason}
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// parseQuantity accepts integers, and decimals with no fractional part ("100.0").
func parseQuantity(s string) (int64, error) {
	if q, err := strconv.ParseInt(s, 10, 64); err == nil {
		return q, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, errors.New("quantity is not a whole number")
	}
	return d.IntPart(), nil
}

var isoDateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// parseISODate parses an ISO-8601 date or timestamp and keeps only its calendar date.
func parseISODate(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range isoDateLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// parseCompactDate parses an 8-digit YYYYMMDD date.
func parseCompactDate(s string) (time.Time, error) {
	if len(s) != 8 {
		return time.Time{}, errors.New("expected 8-digit YYYYMMDD")
	}
	return time.ParseInLocation("20060102", s, time.UTC)
}
