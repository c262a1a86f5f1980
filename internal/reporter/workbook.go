package reporter

import (
	"fmt"
	"io"

	"card-reconciliation/internal/models"
	"card-reconciliation/internal/reconciler"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// SummarySheet is the name of the first workbook sheet
const SummarySheet = "Reconciliation Report"

const (
	colorTitle      = "1F4E79"
	colorHeaderIn   = "4472C4"
	colorHeaderOut  = "548235"
	colorHeaderMiss = "C00000"
	colorOK         = "C6EFCE"
	colorError      = "FFC7CE"
)

// workbookStyles holds style ids registered on one file
type workbookStyles struct {
	title     int
	headerIn  int
	headerOut int
	headerBad int
	ok        int
	bad       int
	amount    int
	bold      int
}

func newWorkbookStyles(f *excelize.File) (*workbookStyles, error) {
	amountFormat := "#,##0.00"
	fill := func(color string) excelize.Fill {
		return excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
	}
	header := func(color string) *excelize.Style {
		return &excelize.Style{Font: &excelize.Font{Bold: true, Color: "FFFFFF"}, Fill: fill(color)}
	}

	definitions := []*excelize.Style{
		{Font: &excelize.Font{Bold: true, Size: 14, Color: "FFFFFF"}, Fill: fill(colorTitle)},
		header(colorHeaderIn),
		header(colorHeaderOut),
		header(colorHeaderMiss),
		{Fill: fill(colorOK)},
		{Fill: fill(colorError)},
		{CustomNumFmt: &amountFormat},
		{Font: &excelize.Font{Bold: true}},
	}

	s := &workbookStyles{}
	ids := []*int{&s.title, &s.headerIn, &s.headerOut, &s.headerBad, &s.ok, &s.bad, &s.amount, &s.bold}
	for i, definition := range definitions {
		id, err := f.NewStyle(definition)
		if err != nil {
			return nil, fmt.Errorf("failed to register workbook style: %w", err)
		}
		*ids[i] = id
	}
	return s, nil
}

// sheetWriter appends rows to one sheet
type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
}

func (w *sheetWriter) cell(col int) string {
	name, _ := excelize.CoordinatesToCellName(col, w.row)
	return name
}

// write puts values on the current row and moves to the next one
func (w *sheetWriter) write(style int, values ...interface{}) error {
	w.row++
	if err := w.f.SetSheetRow(w.sheet, w.cell(1), &values); err != nil {
		return err
	}
	if style != 0 && len(values) > 0 {
		return w.f.SetCellStyle(w.sheet, w.cell(1), w.cell(len(values)), style)
	}
	return nil
}

func (w *sheetWriter) styleCell(col, style int) error {
	return w.f.SetCellStyle(w.sheet, w.cell(col), w.cell(col), style)
}

func (w *sheetWriter) blank() {
	w.row++
}

func (rg *ReportGenerator) generateWorkbook(batch *reconciler.BatchReport, writer io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	styles, err := newWorkbookStyles(f)
	if err != nil {
		return err
	}

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}
	if err := writeSummarySheet(f, styles, batch); err != nil {
		return fmt.Errorf("failed to write summary sheet: %w", err)
	}

	for _, report := range batch.Reports() {
		if err := rg.writeInstrumentSheet(f, styles, report); err != nil {
			return fmt.Errorf("failed to write sheet for instrument %s: %w", report.Instrument, err)
		}
	}

	f.SetActiveSheet(0)
	return f.Write(writer)
}

// InstrumentSheet names the detail sheet of an instrument
func InstrumentSheet(instrument string) string {
	return "Card " + instrument
}

func writeSummarySheet(f *excelize.File, styles *workbookStyles, batch *reconciler.BatchReport) error {
	w := &sheetWriter{f: f, sheet: SummarySheet}
	meta := batch.Metadata

	if err := w.write(styles.title, "CARD RECONCILIATION REPORT"); err != nil {
		return err
	}
	if err := f.MergeCell(SummarySheet, "A1", "H1"); err != nil {
		return err
	}
	if err := w.write(0, "Generated", meta.GeneratedAt.Format("2006-01-02 15:04:05")); err != nil {
		return err
	}
	if err := w.write(0, "Cutoff", formatDate(meta.Cutoff)); err != nil {
		return err
	}
	if err := w.write(0, "Options", fmt.Sprintf("Withdrawal %s, Mandat %s, Cashout %s",
		onOff(meta.IncludeOutgoingTransfer), onOff(meta.IncludeDisbursementOrder), onOff(meta.IncludeCashout))); err != nil {
		return err
	}
	if err := w.write(0, "Run", meta.RunID); err != nil {
		return err
	}

	total := decimal.Zero
	for _, direction := range []models.Direction{models.DirectionIn, models.DirectionOut} {
		w.blank()
		header := styles.headerIn
		if direction == models.DirectionOut {
			header = styles.headerOut
		}
		if err := w.write(styles.bold, directionTitle(direction)); err != nil {
			return err
		}
		if err := w.write(header, "Card", "Ledger", "Statement", "Matched", "Missing in statement", "Missing in ledger", "Missing amount", "Status"); err != nil {
			return err
		}

		missing := decimal.Zero
		for _, report := range batch.Reports() {
			r := report.Result(direction)
			status, style := "OK", styles.ok
			if r.HasMissing() {
				status, style = "Issues", styles.bad
			}
			if err := w.write(0, report.Instrument, r.Counts.Ledger, r.Counts.Statement, r.Counts.Matched,
				r.Counts.MissingInStatement+r.Counts.Unkeyed, r.Counts.MissingInLedger, amountFloat(r.MissingAmount), status); err != nil {
				return err
			}
			if err := w.styleCell(7, styles.amount); err != nil {
				return err
			}
			if err := w.styleCell(8, style); err != nil {
				return err
			}
			missing = missing.Add(r.MissingAmount)
		}

		if err := w.write(styles.bold, "TOTAL "+direction.String(), "", "", "", "", "", amountFloat(missing)); err != nil {
			return err
		}
		total = total.Add(missing)
	}

	w.blank()
	if err := w.write(styles.bold, "TOTAL MISSING AMOUNT", "", "", "", "", "", amountFloat(total)); err != nil {
		return err
	}
	if !total.IsZero() {
		if err := w.styleCell(7, styles.bad); err != nil {
			return err
		}
	}

	if len(batch.Skipped) > 0 || len(batch.Unpaired) > 0 {
		w.blank()
		if err := w.write(styles.headerBad, "Not reconciled", "Reason"); err != nil {
			return err
		}
		for _, s := range batch.Skipped {
			if err := w.write(0, s.Instrument, s.Error); err != nil {
				return err
			}
		}
		for _, u := range batch.Unpaired {
			if err := w.write(0, u.Instrument, u.Error()); err != nil {
				return err
			}
		}
	}

	return f.SetColWidth(SummarySheet, "A", "H", 16)
}

func (rg *ReportGenerator) writeInstrumentSheet(f *excelize.File, styles *workbookStyles, report *reconciler.InstrumentReport) error {
	sheet := InstrumentSheet(report.Instrument)
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	w := &sheetWriter{f: f, sheet: sheet}

	if err := w.write(styles.title, fmt.Sprintf("CARD %s - %s", report.Instrument, report.Status())); err != nil {
		return err
	}

	for _, direction := range []models.Direction{models.DirectionIn, models.DirectionOut} {
		r := report.Result(direction)
		refHeader := "Auth"
		if direction == models.DirectionOut {
			refHeader = "Account"
		}

		w.blank()
		if err := w.write(styles.bold, directionTitle(direction)); err != nil {
			return err
		}

		sections := []struct {
			title   string
			entries []reconciler.MissingEntry
			last    string
		}{
			{"Missing in statement", r.LedgerOnly(), "Description"},
			{"Missing in ledger", r.MissingInLedger, "Type"},
		}
		for _, section := range sections {
			if len(section.entries) == 0 {
				continue
			}
			if err := w.write(styles.headerBad, refHeader, "Date", "Time", "Amount", section.last); err != nil {
				return err
			}
			for _, e := range section.entries {
				if err := w.write(0, e.Reference, formatDate(e.Date), e.Time, amountFloat(e.Amount), e.Description); err != nil {
					return err
				}
				if err := w.styleCell(4, styles.amount); err != nil {
					return err
				}
			}
			if err := w.write(styles.bold, section.title, "", "", amountFloat(sumEntries(section.entries))); err != nil {
				return err
			}
		}

		if !rg.config.IncludeMatched || len(r.Matched) == 0 {
			continue
		}
		header := styles.headerIn
		if direction == models.DirectionOut {
			header = styles.headerOut
		}
		if err := w.write(header, refHeader, "Date", "Statement Amount", "Adjusted", "Card Amount", "Diff", "Status", "Fee"); err != nil {
			return err
		}
		for _, p := range r.Matched {
			fee := "No"
			if p.FeeApplied {
				fee = "Yes"
			}
			if err := w.write(0, p.Reference, formatDate(p.Date), amountFloat(p.StatementAmount), amountFloat(p.AdjustedAmount),
				amountFloat(p.CardAmount), amountFloat(p.Difference), string(p.Status), fee); err != nil {
				return err
			}
			style := styles.ok
			if p.Status == reconciler.StatusDiff {
				style = styles.bad
			}
			if err := w.styleCell(7, style); err != nil {
				return err
			}
		}
		t := r.Totals
		if err := w.write(styles.bold, "TOTAL", "", amountFloat(t.Statement), amountFloat(t.Adjusted),
			amountFloat(t.Card), amountFloat(t.Difference)); err != nil {
			return err
		}
	}

	return f.SetColWidth(sheet, "A", "H", 16)
}

func sumEntries(entries []reconciler.MissingEntry) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Amount)
	}
	return sum
}

func amountFloat(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

func directionTitle(d models.Direction) string {
	if d == models.DirectionOut {
		return "Outgoing (OUT)"
	}
	return "Incoming (IN)"
}
