package parsers

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"

	"card-reconciliation/internal/models"
	"card-reconciliation/pkg/errors"
	"card-reconciliation/pkg/logger"
)

// StatementParser parses settlement provider statements
type StatementParser struct {
	*BaseParser
	config *StatementConfig
}

// NewStatementParser creates a statement parser; nil selects the default layout
func NewStatementParser(config *StatementConfig) *StatementParser {
	if config == nil {
		config = DefaultStatementConfig()
	}
	return &StatementParser{
		BaseParser: NewBaseParser(&config.Parse, "statement_parser"),
		config:     config,
	}
}

// ParseFile reads and parses a statement file from disk
func (sp *StatementParser) ParseFile(path string) (*Result, error) {
	data, err := sp.readFile(path)
	if err != nil {
		return nil, err
	}
	return sp.Parse(filepath.Base(path), bytes.NewReader(data))
}

// Parse converts a statement source into rows keyed by the statement
// column names. Auth codes lose a trailing ".0"; destination accounts are
// rendered as integers.
func (sp *StatementParser) Parse(name string, r io.Reader) (*Result, error) {
	if err := sp.config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "statement_config", sp.config, err)
	}

	t, err := sp.readTable(name, r)
	if err != nil {
		return nil, err
	}

	if err := requireColumns(name, t, sp.config.DateColumn, sp.config.AmountColumn); err != nil {
		sp.logger.WithError(err).WithField("file", name).Error("Statement is missing required columns")
		return nil, err
	}

	stats := newStats(name, t)
	dateIdx := t.column(sp.config.DateColumn)
	amountIdx := t.column(sp.config.AmountColumn)
	typeIdx := optionalColumn(stats, t, sp.config.TypeColumn, "direction classification (all rows treated as deposits)")
	authIdx := optionalColumn(stats, t, sp.config.AuthColumn, "incoming matching")
	accountIdx := optionalColumn(stats, t, sp.config.ToAccountColumn, "outgoing counterparty")
	timeIdx := optionalColumn(stats, t, sp.config.TimeColumn, "time of day display")

	rows := make([]models.RawRow, 0, len(t.records))
	for _, rec := range t.records {
		row := models.NewRawRow(rec.line)
		copyExtraColumns(row, t, rec)

		dateStr := rec.field(dateIdx)
		date, err := models.ParseDayFirstDate(dateStr)
		if err != nil {
			return nil, errors.ParseError(errors.CodeInvalidDate, name, rec.line, sp.config.DateColumn, dateStr, err)
		}
		row.Set(models.StatementDate, models.DateCell(date))

		amountStr := rec.field(amountIdx)
		if models.IsMissingMarker(amountStr) {
			row.Set(models.StatementAmount, models.TextCell(""))
		} else {
			amount, err := models.ParseAmount(amountStr)
			if err != nil {
				return nil, errors.ParseError(errors.CodeInvalidAmount, name, rec.line, sp.config.AmountColumn, amountStr, err)
			}
			row.Set(models.StatementAmount, models.AmountCell(amount))
		}

		if typeIdx != -1 {
			row.Set(models.StatementType, models.TextCell(strings.ToUpper(rec.field(typeIdx))))
		}
		if authIdx != -1 {
			row.Set(models.StatementAuth, models.TextCell(models.NormalizeAuthCode(rec.field(authIdx))))
		}
		if accountIdx != -1 {
			row.Set(models.StatementToAccount, models.TextCell(models.NormalizeAccount(rec.field(accountIdx))))
		}
		if timeIdx != -1 {
			row.Set(models.StatementTime, models.TextCell(rec.field(timeIdx)))
		}

		rows = append(rows, row)
	}

	sp.logger.WithFields(logger.Fields{
		"file":      name,
		"rows":      len(rows),
		"delimiter": stats.Delimiter,
		"warnings":  len(stats.Warnings),
	}).Debug("Parsed statement")

	return &Result{Source: models.SourceStatement, Rows: rows, Stats: stats}, nil
}
