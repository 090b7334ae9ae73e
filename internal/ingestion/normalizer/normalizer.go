package normalizer

import (
	"bytes"
	"errors"
	"fmt"

	"golang-trade-clearinghouse/internal/ingestion/dto"
	"golang-trade-clearinghouse/pkg/logger"
)

// Format identifies a supported wire format.
type Format string

const (
	FormatComma Format = "COMMA"
	FormatPipe  Format = "PIPE"
)

// Status is the outcome class of a normalization.
type Status string

const (
	StatusParsed    Status = "PARSED"
	StatusEmpty     Status = "EMPTY"
	StatusMalformed Status = "MALFORMED"
)

// ErrEmpty is reported when a file carries no data rows.
var ErrEmpty = errors.New("no data rows")

// MalformedError describes why a file could not be mapped to records.
type MalformedError struct {
	Format Format
	Line   int
	Column string
	Reason string
}

func (e *MalformedError) Error() string {
	switch {
	case e.Line > 0 && e.Column != "":
		return fmt.Sprintf("%s format: line %d, column %s: %s", e.Format, e.Line, e.Column, e.Reason)
	case e.Line > 0:
		return fmt.Sprintf("%s format: line %d: %s", e.Format, e.Line, e.Reason)
	case e.Column != "":
		return fmt.Sprintf("%s format: column %s: %s", e.Format, e.Column, e.Reason)
	default:
		return fmt.Sprintf("%s format: %s", e.Format, e.Reason)
	}
}

// Result is the variant outcome of Normalize: records, empty, or malformed.
type Result struct {
	Status  Status
	Format  Format
	Records []dto.Record
	Err     error
}

// HasData reports whether the result carries records to ingest. Anything else is "no data".
func (r Result) HasData() bool {
	return r.Status == StatusParsed && len(r.Records) > 0
}

// FormatParser maps one wire format to records.
type FormatParser interface {
	Parse(content []byte) ([]dto.Record, error)
	GetFormat() Format
}

// Normalizer detects the format of a file and maps it to records.
type Normalizer struct {
	parsers map[Format]FormatParser
	logger  *logger.Logger
}

// New creates a Normalizer with the comma and pipe parsers registered.
func New(log *logger.Logger, extra ...FormatParser) *Normalizer {
	parsers := []FormatParser{NewCommaParser(), NewPipeParser()}
	parsers = append(parsers, extra...)

	parserMap := make(map[Format]FormatParser, len(parsers))
	for _, p := range parsers {
		parserMap[p.GetFormat()] = p
	}
	return &Normalizer{parsers: parserMap, logger: log}
}

// Detect classifies content by its first line only: a pipe means the pipe format,
// anything else is treated as comma-delimited. Headers are not checked.
func Detect(content []byte) Format {
	firstLine := content
	if i := bytes.IndexByte(content, '\n'); i >= 0 {
		firstLine = content[:i]
	}
	if bytes.IndexByte(firstLine, '|') >= 0 {
		return FormatPipe
	}
	return FormatComma
}

// Normalize maps raw file content to records. It never returns a partial result:
// any bad row turns the whole file into StatusMalformed.
func (n *Normalizer) Normalize(content []byte, filename string) Result {
	content = bytes.TrimPrefix(content, []byte("\ufeff"))
	if len(bytes.TrimSpace(content)) == 0 {
		return Result{Status: StatusEmpty, Err: ErrEmpty}
	}

	format := Detect(content)
	n.logger.Debug("Detected file format", logger.StringField("filename", filename), logger.StringField("format", string(format)))

	parser, ok := n.parsers[format]
	if !ok {
		return Result{Status: StatusMalformed, Format: format, Err: &MalformedError{Format: format, Reason: "no parser registered"}}
	}

	records, err := parser.Parse(content)
	if err != nil {
		if errors.Is(err, ErrEmpty) {
			return Result{Status: StatusEmpty, Format: format, Err: err}
		}
		return Result{Status: StatusMalformed, Format: format, Err: err}
	}
	if len(records) == 0 {
		return Result{Status: StatusEmpty, Format: format, Err: ErrEmpty}
	}

	return Result{Status: StatusParsed, Format: format, Records: records}
}
