package reconciler

import (
	"sort"
	"time"

	"card-reconciliation/internal/models"
	"card-reconciliation/pkg/errors"

	"github.com/shopspring/decimal"
)

// Side names where a missing transaction is absent from
type Side string

const (
	MissingInStatement Side = "missing_in_statement"
	MissingInLedger    Side = "missing_in_ledger"
)

// InstrumentStatus is the per-instrument verdict
type InstrumentStatus string

const (
	InstrumentOK     InstrumentStatus = "OK"
	InstrumentIssues InstrumentStatus = "ISSUES"
)

// InstrumentReport pairs an instrument with its two directional results
type InstrumentReport struct {
	Instrument    string                    `json:"instrument"`
	LedgerFile    string                    `json:"ledger_file"`
	StatementFile string                    `json:"statement_file"`
	In            *ReconciliationResult     `json:"in"`
	Out           *ReconciliationResult     `json:"out"`
	Warnings      []errors.SchemaGapWarning `json:"warnings,omitempty"`
}

// Status is OK iff neither direction has a missing entry on either side
func (r *InstrumentReport) Status() InstrumentStatus {
	if r.In.HasMissing() || r.Out.HasMissing() {
		return InstrumentIssues
	}
	return InstrumentOK
}

// Result returns the result of a direction
func (r *InstrumentReport) Result(direction models.Direction) *ReconciliationResult {
	if direction == models.DirectionOut {
		return r.Out
	}
	return r.In
}

// SkippedInstrument is an instrument whose pipeline failed
type SkippedInstrument struct {
	Instrument string           `json:"instrument"`
	Code       errors.ErrorCode `json:"code,omitempty"`
	Error      string           `json:"error"`
}

// Metadata describes the run that produced a report
type Metadata struct {
	RunID                    string    `json:"run_id"`
	GeneratedAt              time.Time `json:"generated_at"`
	Cutoff                   time.Time `json:"cutoff_date"`
	IncludeOutgoingTransfer  bool      `json:"include_outgoing_transfer"`
	IncludeDisbursementOrder bool      `json:"include_disbursement_order"`
	IncludeCashout           bool      `json:"include_cashout"`
	Fee                      FeeRule   `json:"fee"`
}

// MissingRow is a missing entry tagged with where it belongs
type MissingRow struct {
	Instrument string           `json:"instrument"`
	Direction  models.Direction `json:"direction"`
	Side       Side             `json:"side"`
	MissingEntry
}

// DirectionSummary totals one direction across instruments
type DirectionSummary struct {
	Matched            int             `json:"matched"`
	Discrepancies      int             `json:"discrepancies"`
	MissingInStatement int             `json:"missing_in_statement"`
	MissingInLedger    int             `json:"missing_in_ledger"`
	Unkeyed            int             `json:"unkeyed"`
	MissingAmount      decimal.Decimal `json:"missing_amount"`
}

func (d *DirectionSummary) add(r *ReconciliationResult) {
	d.Matched += r.Counts.Matched
	d.Discrepancies += len(r.Discrepancies)
	d.MissingInStatement += r.Counts.MissingInStatement
	d.MissingInLedger += r.Counts.MissingInLedger
	d.Unkeyed += r.Counts.Unkeyed
	d.MissingAmount = d.MissingAmount.Add(r.MissingAmount)
}

// Summary holds the cross-instrument totals
type Summary struct {
	Instruments        int              `json:"instruments"`
	InstrumentsOK      int              `json:"instruments_ok"`
	Skipped            int              `json:"skipped"`
	Unpaired           int              `json:"unpaired"`
	In                 DirectionSummary `json:"in"`
	Out                DirectionSummary `json:"out"`
	TotalMatched       int              `json:"total_matched"`
	TotalMissingAmount decimal.Decimal  `json:"total_missing_amount"`
	AllMatched         bool             `json:"all_matched"`
}

// BatchReport is the whole outcome of a run. It is built once by Assemble
// and not modified afterwards. Order lists instrument ids in numeric order.
type BatchReport struct {
	Metadata    Metadata                     `json:"metadata"`
	Instruments map[string]*InstrumentReport `json:"instruments"`
	Order       []string                     `json:"order"`
	Skipped     []SkippedInstrument          `json:"skipped,omitempty"`
	Unpaired    []*errors.NoPairingError     `json:"unpaired,omitempty"`
	Warnings    []string                     `json:"warnings,omitempty"`
	Summary     Summary                      `json:"summary"`
	MissingRows []MissingRow                 `json:"missing_rows"`
}

// Reports returns the instrument reports in Order
func (b *BatchReport) Reports() []*InstrumentReport {
	reports := make([]*InstrumentReport, 0, len(b.Order))
	for _, id := range b.Order {
		reports = append(reports, b.Instruments[id])
	}
	return reports
}

// Assemble folds instrument reports into a BatchReport. It applies no
// business rule beyond "an instrument is OK iff nothing is missing".
func Assemble(meta Metadata, reports []*InstrumentReport, skipped []SkippedInstrument, unpaired []*errors.NoPairingError, warnings []string) *BatchReport {
	batch := &BatchReport{
		Metadata:    meta,
		Instruments: make(map[string]*InstrumentReport, len(reports)),
		Skipped:     skipped,
		Unpaired:    unpaired,
		Warnings:    warnings,
		MissingRows: []MissingRow{},
	}
	batch.Summary.In.MissingAmount = decimal.Zero
	batch.Summary.Out.MissingAmount = decimal.Zero

	for _, r := range reports {
		batch.Instruments[r.Instrument] = r
		batch.Order = append(batch.Order, r.Instrument)
	}
	sort.Slice(batch.Order, func(i, j int) bool { return lessID(batch.Order[i], batch.Order[j]) })

	for _, id := range batch.Order {
		r := batch.Instruments[id]
		if r.Status() == InstrumentOK {
			batch.Summary.InstrumentsOK++
		}
		batch.Summary.In.add(r.In)
		batch.Summary.Out.add(r.Out)

		for _, result := range []*ReconciliationResult{r.In, r.Out} {
			for _, e := range result.LedgerOnly() {
				batch.MissingRows = append(batch.MissingRows, MissingRow{Instrument: id, Direction: result.Direction, Side: MissingInStatement, MissingEntry: e})
			}
			for _, e := range result.MissingInLedger {
				batch.MissingRows = append(batch.MissingRows, MissingRow{Instrument: id, Direction: result.Direction, Side: MissingInLedger, MissingEntry: e})
			}
		}
	}

	batch.Summary.Instruments = len(reports)
	batch.Summary.Skipped = len(skipped)
	batch.Summary.Unpaired = len(unpaired)
	batch.Summary.TotalMatched = batch.Summary.In.Matched + batch.Summary.Out.Matched
	batch.Summary.TotalMissingAmount = batch.Summary.In.MissingAmount.Add(batch.Summary.Out.MissingAmount)
	batch.Summary.AllMatched = batch.Summary.InstrumentsOK == len(reports) && len(skipped) == 0

	return batch
}
