// Package reporter renders a batch reconciliation report.
//
// Supported output formats:
//   - Console: per-instrument IN/OUT tables, discrepancies and missing rows
//   - JSON: the full BatchReport
//   - CSV: one record per matched pair and per missing transaction
//   - XLSX: a workbook with a summary sheet and one sheet per instrument
//
// Example usage:
//
//	generator, err := reporter.NewReportGenerator(&reporter.ReportConfig{Format: reporter.FormatJSON})
//	err = generator.GenerateReport(batch, os.Stdout)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"card-reconciliation/internal/reconciler"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
	FormatXLSX    OutputFormat = "xlsx"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV, FormatXLSX:
		return true
	default:
		return false
	}
}

// IsBinary reports whether the format must not be written to a terminal
func (f OutputFormat) IsBinary() bool {
	return f == FormatXLSX
}

// ParseOutputFormat parses a format name, case-insensitively
func ParseOutputFormat(s string) (OutputFormat, error) {
	f := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	if !f.IsValid() {
		return "", fmt.Errorf("invalid output format: %s (expected console, json, csv or xlsx)", s)
	}
	return f, nil
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	IncludeMatched    bool `json:"include_matched"`
	IncludeDuplicates bool `json:"include_duplicates"`
	IncludeWarnings   bool `json:"include_warnings"`

	// MaxListItems caps console lists; 0 means no cap
	MaxListItems int `json:"max_list_items"`

	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:            FormatConsole,
		IncludeMatched:    true,
		IncludeDuplicates: true,
		IncludeWarnings:   true,
		MaxListItems:      0,
		CSVDelimiter:      ',',
		CSVHeaders:        true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if c.MaxListItems < 0 {
		return fmt.Errorf("max list items cannot be negative, got %d", c.MaxListItems)
	}
	if c.Format == FormatCSV && (c.CSVDelimiter == 0 || c.CSVDelimiter == '"' || c.CSVDelimiter == '\n') {
		return fmt.Errorf("invalid CSV delimiter %q", c.CSVDelimiter)
	}
	return nil
}

// ReportGenerator renders batch reports in various formats
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if config.CSVDelimiter == 0 {
		config.CSVDelimiter = ','
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{config: config}, nil
}

// GenerateReport renders the batch report to the writer
func (rg *ReportGenerator) GenerateReport(batch *reconciler.BatchReport, writer io.Writer) error {
	if batch == nil {
		return fmt.Errorf("batch report cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(batch, writer)
	case FormatJSON:
		return rg.generateJSONReport(batch, writer)
	case FormatCSV:
		return rg.generateCSVReport(batch, writer)
	case FormatXLSX:
		return rg.generateWorkbook(batch, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

func (rg *ReportGenerator) generateConsoleReport(batch *reconciler.BatchReport, writer io.Writer) error {
	meta := batch.Metadata
	fmt.Fprintf(writer, "CARD RECONCILIATION REPORT\n")
	fmt.Fprintf(writer, "Run:       %s\n", meta.RunID)
	fmt.Fprintf(writer, "Generated: %s\n", meta.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(writer, "Cutoff:    %s\n", formatDate(meta.Cutoff))
	fmt.Fprintf(writer, "Outgoing:  transfers=%s disbursement orders=%s cashout=%s\n",
		onOff(meta.IncludeOutgoingTransfer), onOff(meta.IncludeDisbursementOrder), onOff(meta.IncludeCashout))
	fmt.Fprintf(writer, "Fee:       x%s above %s\n\n", meta.Fee.Rate.String(), meta.Fee.Threshold.StringFixed(2))

	fmt.Fprintf(writer, "=== SUMMARY ===\n")
	rg.printSummary(batch.Summary, writer)
	fmt.Fprintf(writer, "\n")

	for _, report := range batch.Reports() {
		fmt.Fprintf(writer, "=== INSTRUMENT %s [%s] ===\n", report.Instrument, report.Status())
		fmt.Fprintf(writer, "Ledger:    %s\n", report.LedgerFile)
		fmt.Fprintf(writer, "Statement: %s\n", report.StatementFile)
		for _, result := range []*reconciler.ReconciliationResult{report.In, report.Out} {
			rg.printDirection(result, writer)
		}
		if rg.config.IncludeWarnings {
			for _, w := range report.Warnings {
				fmt.Fprintf(writer, "  warning: %s\n", w.String())
			}
		}
		fmt.Fprintf(writer, "\n")
	}

	if len(batch.MissingRows) > 0 {
		fmt.Fprintf(writer, "=== MISSING TRANSACTIONS ===\n")
		rg.printMissingRows(batch.MissingRows, writer)
		fmt.Fprintf(writer, "\n")
	}

	if len(batch.Skipped) > 0 {
		fmt.Fprintf(writer, "=== SKIPPED INSTRUMENTS ===\n")
		for _, s := range batch.Skipped {
			fmt.Fprintf(writer, "  - %s: %s\n", s.Instrument, s.Error)
		}
		fmt.Fprintf(writer, "\n")
	}

	if len(batch.Unpaired) > 0 {
		fmt.Fprintf(writer, "=== UNPAIRED FILES ===\n")
		for _, u := range batch.Unpaired {
			fmt.Fprintf(writer, "  - %s\n", u.Error())
		}
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeWarnings && len(batch.Warnings) > 0 {
		fmt.Fprintf(writer, "=== WARNINGS ===\n")
		for _, w := range batch.Warnings {
			fmt.Fprintf(writer, "  - %s\n", w)
		}
	}

	return nil
}

func (rg *ReportGenerator) printSummary(s reconciler.Summary, writer io.Writer) {
	fmt.Fprintf(writer, "Instruments: %d (OK: %d, with issues: %d, skipped: %d, unpaired: %d)\n",
		s.Instruments, s.InstrumentsOK, s.Instruments-s.InstrumentsOK, s.Skipped, s.Unpaired)

	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Direction\tMatched\tDiscrepancies\tMissing in statement\tMissing in ledger\tWithout auth\tMissing amount")
	for _, row := range []struct {
		name string
		d    reconciler.DirectionSummary
	}{{"IN", s.In}, {"OUT", s.Out}} {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%s\n", row.name, row.d.Matched, row.d.Discrepancies,
			row.d.MissingInStatement, row.d.MissingInLedger, row.d.Unkeyed, row.d.MissingAmount.StringFixed(2))
	}
	tw.Flush()

	fmt.Fprintf(writer, "Total matched:        %d\n", s.TotalMatched)
	fmt.Fprintf(writer, "Total missing amount: %s\n", s.TotalMissingAmount.StringFixed(2))
	if s.AllMatched {
		fmt.Fprintf(writer, "All instruments reconciled\n")
	}
}

func (rg *ReportGenerator) printDirection(result *reconciler.ReconciliationResult, writer io.Writer) {
	c := result.Counts
	fmt.Fprintf(writer, "  %s: ledger %d, statement %d, matched %d, missing in statement %d, missing in ledger %d\n",
		result.Direction, c.Ledger, c.Statement, c.Matched, c.MissingInStatement, c.MissingInLedger)

	if rg.config.IncludeMatched && len(result.Matched) > 0 {
		tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "    Reference\tDate\tCard\tStatement\tAdjusted\tDifference\tStatus\t")
		for i, p := range result.Matched {
			if rg.truncated(i, len(result.Matched), tw) {
				break
			}
			fmt.Fprintf(tw, "    %s\t%s\t%s\t%s\t%s\t%s\t%s\t\n", p.Reference, formatDate(p.Date),
				p.CardAmount.StringFixed(2), p.StatementAmount.StringFixed(2), p.AdjustedAmount.StringFixed(2),
				p.Difference.StringFixed(2), p.Status)
		}
		tw.Flush()
	}

	if len(result.Matched) > 0 {
		t := result.Totals
		fmt.Fprintf(writer, "    Totals: card %s, statement %s, adjusted %s, difference %s\n",
			t.Card.StringFixed(2), t.Statement.StringFixed(2), t.Adjusted.StringFixed(2), t.Difference.StringFixed(2))
	}
	if result.HasMissing() {
		fmt.Fprintf(writer, "    Missing amount: %s\n", result.MissingAmount.StringFixed(2))
	}
	if len(result.Unkeyed) > 0 {
		fmt.Fprintf(writer, "    %d ledger rows without auth code\n", len(result.Unkeyed))
	}
	if rg.config.IncludeDuplicates {
		for _, d := range result.Duplicates {
			fmt.Fprintf(writer, "    duplicate %s key %s: %d rows, first one compared\n", strings.ToLower(d.Source.String()), d.Key, d.Count)
		}
	}
}

func (rg *ReportGenerator) printMissingRows(rows []reconciler.MissingRow, writer io.Writer) {
	fmt.Fprintf(writer, "Total: %d\n", len(rows))

	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Instrument\tDirection\tMissing in\tReference\tDate\tTime\tAmount\tDescription")
	for i, r := range rows {
		if rg.truncated(i, len(rows), tw) {
			break
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n", r.Instrument, r.Direction, sideLabel(r.Side),
			r.Reference, formatDate(r.Date), r.Time, r.Amount.StringFixed(2), r.Description)
	}
	tw.Flush()
}

// truncated writes the "and N more" line once the cap is reached
func (rg *ReportGenerator) truncated(i, total int, writer io.Writer) bool {
	if rg.config.MaxListItems == 0 || i < rg.config.MaxListItems {
		return false
	}
	fmt.Fprintf(writer, "    ... and %d more\n", total-i)
	return true
}

func (rg *ReportGenerator) generateJSONReport(batch *reconciler.BatchReport, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(batch)
}

// CSVColumns are the columns of the CSV report
var CSVColumns = []string{
	"Record",
	"Instrument",
	"Direction",
	"Key",
	"Reference",
	"Date",
	"Time",
	"Card_Amount",
	"Statement_Amount",
	"Adjusted_Amount",
	"Difference",
	"Status",
	"Description",
	"Line",
}

func (rg *ReportGenerator) generateCSVReport(batch *reconciler.BatchReport, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter

	if rg.config.CSVHeaders {
		if err := csvWriter.Write(CSVColumns); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	if rg.config.IncludeMatched {
		if err := rg.writeMatchedRecords(csvWriter, batch); err != nil {
			return err
		}
	}

	for _, r := range batch.MissingRows {
		card, statement := r.Amount.StringFixed(2), ""
		if r.Side == reconciler.MissingInLedger {
			card, statement = "", r.Amount.StringFixed(2)
		}
		record := []string{
			string(r.Side),
			r.Instrument,
			r.Direction.String(),
			r.Key,
			r.Reference,
			formatDate(r.Date),
			r.Time,
			card,
			statement,
			"",
			"",
			"",
			r.Description,
			strconv.Itoa(r.Line),
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write missing record: %w", err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

func (rg *ReportGenerator) writeMatchedRecords(csvWriter *csv.Writer, batch *reconciler.BatchReport) error {
	for _, report := range batch.Reports() {
		for _, result := range []*reconciler.ReconciliationResult{report.In, report.Out} {
			for _, p := range result.Matched {
				record := []string{
					"matched",
					report.Instrument,
					result.Direction.String(),
					p.Key,
					p.Reference,
					formatDate(p.Date),
					"",
					p.CardAmount.StringFixed(2),
					p.StatementAmount.StringFixed(2),
					p.AdjustedAmount.StringFixed(2),
					p.Difference.StringFixed(2),
					string(p.Status),
					"",
					strconv.Itoa(p.LedgerLine),
				}
				if err := csvWriter.Write(record); err != nil {
					return fmt.Errorf("failed to write matched record: %w", err)
				}
			}
		}
	}
	return nil
}

// UpdateConfiguration updates the report generator configuration
func (rg *ReportGenerator) UpdateConfiguration(config *ReportConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid report configuration: %w", err)
	}

	rg.config = config
	return nil
}

// GetConfiguration returns the current configuration
func (rg *ReportGenerator) GetConfiguration() *ReportConfig {
	return rg.config
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func sideLabel(side reconciler.Side) string {
	if side == reconciler.MissingInLedger {
		return "ledger"
	}
	return "statement"
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
