// Package parsers turns ledger and statement exports into typed rows.
//
// Both sources are delimited text produced by spreadsheet tools, so the
// parsers tolerate the usual variations:
//   - ';' or ',' delimiters (a header that splits into a single column is
//     re-read with the fallback delimiter)
//   - a UTF-8 byte order mark, or Windows-1252 text instead of UTF-8
//   - surrounding whitespace in column names
//   - day-first dates with or without a time of day
//   - comma decimal separators in ledger amounts
//
// Missing optional columns are reported as schema gap warnings and the
// dependent value is left empty. A cell that cannot be converted fails the
// whole parse with a ParseError naming the file.
//
// Example usage:
//
//	parser := parsers.NewLedgerParser(nil)
//	result, err := parser.ParseFile("178-D17-31-01-2026.csv")
//	for _, row := range result.Rows { ... }
package parsers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"card-reconciliation/internal/models"
	"card-reconciliation/pkg/errors"
	"card-reconciliation/pkg/logger"

	"golang.org/x/text/encoding/charmap"
)

const utf8BOM = "\ufeff"

// ParseConfig holds configuration for delimited text parsing
type ParseConfig struct {
	Delimiter         rune
	FallbackDelimiter rune
	SkipEmptyRows     bool
	DecodeLegacy      bool
}

// Validate checks the configuration
func (c *ParseConfig) Validate() error {
	if c.Delimiter == 0 {
		return fmt.Errorf("delimiter cannot be empty")
	}
	if c.Delimiter == c.FallbackDelimiter {
		return fmt.Errorf("fallback delimiter must differ from delimiter %q", c.Delimiter)
	}
	return nil
}

// table is the untyped content of a source: trimmed headers plus records
type table struct {
	headers   []string
	headerMap map[string]int
	records   []record
	delimiter rune
}

type record struct {
	line   int
	fields []string
}

// column looks a header up exactly, then case-insensitively
func (t *table) column(name string) int {
	if index, ok := t.headerMap[name]; ok {
		return index
	}
	for header, index := range t.headerMap {
		if strings.EqualFold(header, name) {
			return index
		}
	}
	return -1
}

func (r record) field(index int) string {
	if index < 0 || index >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[index])
}

// BaseParser provides the delimiter detection and reading shared by the
// ledger and statement parsers
type BaseParser struct {
	config *ParseConfig
	logger logger.Logger
}

// NewBaseParser creates a new BaseParser with the given configuration
func NewBaseParser(config *ParseConfig, component string) *BaseParser {
	log := logger.GetGlobalLogger().WithComponent(component)
	log.WithFields(logger.Fields{
		"delimiter":          string(config.Delimiter),
		"fallback_delimiter": string(config.FallbackDelimiter),
	}).Debug("Created parser")

	return &BaseParser{
		config: config,
		logger: log,
	}
}

// readFile loads a whole file; uploads are small closed batches
func (bp *BaseParser) readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		bp.logger.WithError(err).WithField("file_path", path).Error("Failed to read file")
		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, path, err)
		}
		if os.IsPermission(err) {
			return nil, errors.FileError(errors.CodeFilePermission, path, err)
		}
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	return data, nil
}

// readTable decodes and splits the source, retrying with the fallback
// delimiter when the header row does not split on the primary one
func (bp *BaseParser) readTable(name string, r io.Reader) (*table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, name, err)
	}

	data, err = bp.decode(name, data)
	if err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.ParseError(errors.CodeInvalidFormat, name, 1, "headers", "", fmt.Errorf("source is empty"))
	}

	t, err := bp.split(data, bp.config.Delimiter)
	if (err != nil || len(t.headers) <= 1) && bp.config.FallbackDelimiter != 0 {
		bp.logger.WithFields(logger.Fields{
			"file":     name,
			"fallback": string(bp.config.FallbackDelimiter),
		}).Debug("Primary delimiter did not split header, retrying")

		fallback, ferr := bp.split(data, bp.config.FallbackDelimiter)
		if ferr == nil {
			t, err = fallback, nil
		} else if err == nil {
			err = ferr
		}
	}
	if err != nil {
		return nil, errors.ParseError(errors.CodeInvalidFormat, name, csvErrorLine(err), "", "", err)
	}

	bp.logger.WithFields(logger.Fields{
		"file":      name,
		"delimiter": string(t.delimiter),
		"columns":   len(t.headers),
		"records":   len(t.records),
	}).Debug("Read table")

	return t, nil
}

// decode strips a BOM and converts Windows-1252 text when the source is
// not valid UTF-8
func (bp *BaseParser) decode(name string, data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, []byte(utf8BOM))
	if utf8.Valid(data) {
		return data, nil
	}

	if !bp.config.DecodeLegacy {
		return nil, errors.ParseError(errors.CodeEncodingError, name, firstInvalidLine(data), "", "", nil)
	}

	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return nil, errors.ParseError(errors.CodeEncodingError, name, firstInvalidLine(data), "", "", err)
	}
	bp.logger.WithField("file", name).Debug("Decoded source as Windows-1252")
	return decoded, nil
}

func (bp *BaseParser) split(data []byte, delimiter rune) (*table, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	t := &table{headerMap: make(map[string]int), delimiter: delimiter}

	headers, err := reader.Read()
	if err != nil {
		return nil, err
	}
	for i, h := range headers {
		h = strings.TrimSpace(h)
		t.headers = append(t.headers, h)
		if _, dup := t.headerMap[h]; !dup {
			t.headerMap[h] = i
		}
	}

	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := reader.FieldPos(0)
		if bp.config.SkipEmptyRows && isEmptyRecord(fields) {
			continue
		}
		t.records = append(t.records, record{line: line, fields: fields})
	}

	return t, nil
}

func isEmptyRecord(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func csvErrorLine(err error) int {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return perr.Line
	}
	return 1
}

func firstInvalidLine(data []byte) int {
	for i, line := range bytes.Split(data, []byte("\n")) {
		if !utf8.Valid(line) {
			return i + 1
		}
	}
	return 1
}

// ParseStats holds statistics about one parse call
type ParseStats struct {
	File      string                    `json:"file"`
	Delimiter string                    `json:"delimiter"`
	Columns   []string                  `json:"columns"`
	Rows      int                       `json:"rows"`
	Warnings  []errors.SchemaGapWarning `json:"warnings,omitempty"`
}

// Result is the output of a parse call
type Result struct {
	Source models.Source
	Rows   []models.RawRow
	Stats  *ParseStats
}

// HasColumn reports whether the parsed source carried the column
func (r *Result) HasColumn(name string) bool {
	for _, c := range r.Stats.Columns {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// String returns a human-readable summary of parsing statistics
func (ps *ParseStats) String() string {
	return fmt.Sprintf("Parsed %s: %d rows, %d columns, %d warnings",
		filepath.Base(ps.File), ps.Rows, len(ps.Columns), len(ps.Warnings))
}

func newStats(name string, t *table) *ParseStats {
	return &ParseStats{
		File:      name,
		Delimiter: string(t.delimiter),
		Columns:   t.headers,
		Rows:      len(t.records),
	}
}

// requireColumns returns a ParseError for the first missing required column
func requireColumns(name string, t *table, required ...string) error {
	for _, col := range required {
		if t.column(col) == -1 {
			return errors.ParseError(errors.CodeMissingColumn, name, 1, col, "", nil).
				WithContext("available_columns", t.headers)
		}
	}
	return nil
}

// optionalColumn resolves an optional column, recording a warning when absent
func optionalColumn(stats *ParseStats, t *table, column, feature string) int {
	index := t.column(column)
	if index == -1 {
		stats.Warnings = append(stats.Warnings, errors.SchemaGapWarning{
			File:    stats.File,
			Column:  column,
			Feature: feature,
		})
	}
	return index
}

// Parse dispatches on the source kind
func Parse(name string, source models.Source, r io.Reader) (*Result, error) {
	switch source {
	case models.SourceLedger:
		return NewLedgerParser(nil).Parse(name, r)
	case models.SourceStatement:
		return NewStatementParser(nil).Parse(name, r)
	default:
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "source", source, nil)
	}
}
