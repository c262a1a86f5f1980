package parsers

import (
	"bytes"
	"io"
	"path/filepath"
	"regexp"

	"card-reconciliation/internal/models"
	"card-reconciliation/pkg/errors"
	"card-reconciliation/pkg/logger"
)

// trailingAuthCode matches a run of exactly six digits closing the label
var trailingAuthCode = regexp.MustCompile(`(?:^|\D)(\d{6})$`)

// ExtractAuthCode returns the six-digit auth code ending a ledger label,
// or "" when the label carries none
func ExtractAuthCode(label string) string {
	m := trailingAuthCode.FindStringSubmatch(label)
	if m == nil {
		return ""
	}
	return m[1]
}

// LedgerParser parses card journal exports
type LedgerParser struct {
	*BaseParser
	config *LedgerConfig
}

// NewLedgerParser creates a ledger parser; nil selects the default layout
func NewLedgerParser(config *LedgerConfig) *LedgerParser {
	if config == nil {
		config = DefaultLedgerConfig()
	}
	return &LedgerParser{
		BaseParser: NewBaseParser(&config.Parse, "ledger_parser"),
		config:     config,
	}
}

// ParseFile reads and parses a ledger file from disk
func (lp *LedgerParser) ParseFile(path string) (*Result, error) {
	data, err := lp.readFile(path)
	if err != nil {
		return nil, err
	}
	return lp.Parse(filepath.Base(path), bytes.NewReader(data))
}

// Parse converts a ledger source into rows keyed by the ledger column
// names. The derived auth code is stored under models.LedgerAuth.
func (lp *LedgerParser) Parse(name string, r io.Reader) (*Result, error) {
	if err := lp.config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "ledger_config", lp.config, err)
	}

	t, err := lp.readTable(name, r)
	if err != nil {
		return nil, err
	}

	if err := requireColumns(name, t, lp.config.DateColumn, lp.config.AmountColumn); err != nil {
		lp.logger.WithError(err).WithField("file", name).Error("Ledger is missing required columns")
		return nil, err
	}

	stats := newStats(name, t)
	dateIdx := t.column(lp.config.DateColumn)
	amountIdx := t.column(lp.config.AmountColumn)
	labelIdx := optionalColumn(stats, t, lp.config.LabelColumn, "direction classification and auth code extraction")
	timeIdx := optionalColumn(stats, t, lp.config.TimeColumn, "time of day display")

	rows := make([]models.RawRow, 0, len(t.records))
	for _, rec := range t.records {
		row := models.NewRawRow(rec.line)
		copyExtraColumns(row, t, rec)

		dateStr := rec.field(dateIdx)
		date, err := models.ParseDayFirstDate(dateStr)
		if err != nil {
			return nil, errors.ParseError(errors.CodeInvalidDate, name, rec.line, lp.config.DateColumn, dateStr, err)
		}
		row.Set(models.LedgerDate, models.DateCell(date))

		amountStr := rec.field(amountIdx)
		if models.IsMissingMarker(amountStr) {
			row.Set(models.LedgerAmount, models.TextCell(""))
		} else {
			amount, err := models.ParseAmount(amountStr)
			if err != nil {
				return nil, errors.ParseError(errors.CodeInvalidAmount, name, rec.line, lp.config.AmountColumn, amountStr, err)
			}
			row.Set(models.LedgerAmount, models.AmountCell(amount))
		}

		if labelIdx != -1 {
			label := rec.field(labelIdx)
			row.Set(models.LedgerLabel, models.TextCell(label))
			row.Set(models.LedgerAuth, models.TextCell(ExtractAuthCode(label)))
		}

		if timeIdx != -1 {
			row.Set(models.LedgerTime, models.TextCell(rec.field(timeIdx)))
		}

		rows = append(rows, row)
	}

	lp.logger.WithFields(logger.Fields{
		"file":      name,
		"rows":      len(rows),
		"delimiter": stats.Delimiter,
		"warnings":  len(stats.Warnings),
	}).Debug("Parsed ledger")

	return &Result{Source: models.SourceLedger, Rows: rows, Stats: stats}, nil
}

// copyExtraColumns keeps columns the engine does not interpret as text so
// the row still carries everything the source had
func copyExtraColumns(row models.RawRow, t *table, rec record) {
	for i, h := range t.headers {
		if h == "" {
			continue
		}
		row.Set(h, models.TextCell(rec.field(i)))
	}
}
