// Package reconciler pairs ledger and statement transactions, compares them
// and assembles the batch report.
//
// The package has three layers:
//   - Reconcile compares one direction of one instrument. It is a pure
//     function over classified transactions and never fails.
//   - ReconciliationOrchestrator runs the parse, classify and reconcile
//     pipeline per instrument. A failing instrument is recorded as skipped
//     and the others continue.
//   - Assemble folds the instrument reports into a BatchReport.
//
// Example usage:
//
//	options := reconciler.DefaultOptions(cutoff)
//	orchestrator, err := reconciler.NewReconciliationOrchestrator(options)
//	report, err := orchestrator.Run(ctx, files)
//	for _, instrument := range report.Reports() { ... }
package reconciler

import (
	"context"
	"fmt"
	"io"
	"time"

	"card-reconciliation/internal/classifier"
	"card-reconciliation/internal/models"
	"card-reconciliation/internal/parsers"
	"card-reconciliation/pkg/errors"
	"card-reconciliation/pkg/logger"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
)

// Options configure a reconciliation run
type Options struct {
	Classifier classifier.Options
	Fee        FeeRule
	// Workers bounds how many instruments are processed at once
	Workers int

	Ledger    *parsers.LedgerConfig
	Statement *parsers.StatementConfig
}

// DefaultOptions returns options for a serial run with every outgoing kind
// enabled and the default fee
func DefaultOptions(cutoff time.Time) *Options {
	return &Options{
		Classifier: classifier.DefaultOptions(cutoff),
		Fee:        DefaultFeeRule(),
		Workers:    1,
		Ledger:     parsers.DefaultLedgerConfig(),
		Statement:  parsers.DefaultStatementConfig(),
	}
}

// Validate validates the options
func (o *Options) Validate() error {
	if o.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", o.Workers)
	}
	if err := o.Fee.Validate(); err != nil {
		return err
	}
	if o.Ledger != nil {
		if err := o.Ledger.Validate(); err != nil {
			return fmt.Errorf("ledger layout: %w", err)
		}
	}
	if o.Statement != nil {
		if err := o.Statement.Validate(); err != nil {
			return fmt.Errorf("statement layout: %w", err)
		}
	}
	return nil
}

// Source is an already loaded file: a name plus its content
type Source struct {
	Name   string
	Reader io.Reader
}

// ReconciliationOrchestrator runs instrument pipelines and assembles the
// batch report. It keeps no state between runs.
type ReconciliationOrchestrator struct {
	options *Options
	logger  logger.Logger
	now     func() time.Time
}

// NewReconciliationOrchestrator creates an orchestrator
func NewReconciliationOrchestrator(options *Options) (*ReconciliationOrchestrator, error) {
	if options == nil {
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, "options", nil, nil)
	}
	if err := options.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryConfiguration, errors.CodeInvalidConfig, "invalid reconciliation options")
	}

	log := logger.GetGlobalLogger().WithComponent("batch")
	log.WithFields(logger.Fields{
		"cutoff":  options.Classifier.Cutoff.Format("2006-01-02"),
		"workers": options.Workers,
	}).Debug("Created reconciliation orchestrator")

	return &ReconciliationOrchestrator{
		options: options,
		logger:  log,
		now:     time.Now,
	}, nil
}

// ReconcileSources reconciles one instrument from loaded sources
func (ro *ReconciliationOrchestrator) ReconcileSources(instrument string, ledger, statement Source) (*InstrumentReport, error) {
	ledgerResult, err := parsers.NewLedgerParser(ro.options.Ledger).Parse(ledger.Name, ledger.Reader)
	if err != nil {
		return nil, errors.WrapIfNeeded(err, errors.CategoryParse, errors.CodeInvalidFormat, "ledger could not be parsed").
			WithContext("instrument", instrument)
	}

	statementResult, err := parsers.NewStatementParser(ro.options.Statement).Parse(statement.Name, statement.Reader)
	if err != nil {
		return nil, errors.WrapIfNeeded(err, errors.CategoryParse, errors.CodeInvalidFormat, "statement could not be parsed").
			WithContext("instrument", instrument)
	}

	return ro.reconcileParsed(instrument, ledgerResult, statementResult), nil
}

// ReconcileInstrument reads both files of an instrument and reconciles them
func (ro *ReconciliationOrchestrator) ReconcileInstrument(inst Instrument) (*InstrumentReport, error) {
	ledgerResult, err := parsers.NewLedgerParser(ro.options.Ledger).ParseFile(inst.LedgerFile)
	if err != nil {
		return nil, errors.WrapIfNeeded(err, errors.CategoryParse, errors.CodeInvalidFormat, "ledger could not be parsed").
			WithContext("instrument", inst.ID)
	}

	statementResult, err := parsers.NewStatementParser(ro.options.Statement).ParseFile(inst.StatementFile)
	if err != nil {
		return nil, errors.WrapIfNeeded(err, errors.CategoryParse, errors.CodeInvalidFormat, "statement could not be parsed").
			WithContext("instrument", inst.ID)
	}

	report := ro.reconcileParsed(inst.ID, ledgerResult, statementResult)
	report.LedgerFile = inst.LedgerFile
	report.StatementFile = inst.StatementFile
	return report, nil
}

func (ro *ReconciliationOrchestrator) reconcileParsed(instrument string, ledger, statement *parsers.Result) *InstrumentReport {
	ledgerSplit := classifier.ClassifyLedger(ledger.Rows, ro.options.Classifier)
	statementSplit := classifier.ClassifyStatement(statement.Rows, ro.options.Classifier)

	report := &InstrumentReport{
		Instrument:    instrument,
		LedgerFile:    ledger.Stats.File,
		StatementFile: statement.Stats.File,
		In:            Reconcile(ledgerSplit.In, statementSplit.In, models.DirectionIn, ro.options.Fee),
		Out:           Reconcile(ledgerSplit.Out, statementSplit.Out, models.DirectionOut, ro.options.Fee),
	}
	report.Warnings = append(report.Warnings, ledger.Stats.Warnings...)
	report.Warnings = append(report.Warnings, statement.Stats.Warnings...)

	ro.logger.WithFields(logger.Fields{
		"instrument":  instrument,
		"in_matched":  report.In.Counts.Matched,
		"in_missing":  report.In.Counts.MissingInStatement + report.In.Counts.MissingInLedger,
		"out_matched": report.Out.Counts.Matched,
		"out_missing": report.Out.Counts.MissingInStatement + report.Out.Counts.MissingInLedger,
		"duplicates":  len(report.In.Duplicates) + len(report.Out.Duplicates),
		"schema_gaps": len(report.Warnings),
		"status":      report.Status(),
	}).Info("Reconciled instrument")

	return report
}

type outcome struct {
	report  *InstrumentReport
	skipped *SkippedInstrument
}

// Run pairs the files, reconciles every instrument and assembles the
// report. Per-instrument failures are recorded as skipped instruments; the
// returned error is reserved for a cancelled context.
func (ro *ReconciliationOrchestrator) Run(ctx context.Context, files []string) (*BatchReport, error) {
	pairing := PairFiles(files)
	for _, path := range pairing.Ignored {
		ro.logger.WithField("file", path).Warn("File name matches neither ledger nor statement naming, ignored")
	}
	for _, np := range pairing.Unpaired {
		ro.logger.WithField("instrument", np.Instrument).Warn(np.Error())
	}

	warnings := append([]string(nil), pairing.Warnings...)
	for _, path := range pairing.Ignored {
		warnings = append(warnings, fmt.Sprintf("%s: not recognized as a ledger or statement file", path))
	}

	outcomes := make([]outcome, len(pairing.Instruments))
	progress := logger.NewProgressTracker("reconcile instruments", len(pairing.Instruments), ro.logger)

	p := pool.New().WithMaxGoroutines(ro.options.Workers)
	for i, inst := range pairing.Instruments {
		i, inst := i, inst
		p.Go(func() {
			outcomes[i] = ro.runInstrument(ctx, inst)
			var err error
			if outcomes[i].skipped != nil {
				err = fmt.Errorf("%s", outcomes[i].skipped.Error)
			}
			progress.Done(inst.ID, err)
		})
	}
	p.Wait()
	progress.Complete()

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryReconciliation, errors.CodeInstrumentsSkipped, "reconciliation run cancelled")
	}

	var reports []*InstrumentReport
	var skipped []SkippedInstrument
	for _, o := range outcomes {
		if o.skipped != nil {
			skipped = append(skipped, *o.skipped)
			continue
		}
		reports = append(reports, o.report)
	}

	return Assemble(ro.metadata(), reports, skipped, pairing.Unpaired, warnings), nil
}

// runInstrument isolates one instrument: errors and panics become a skip
func (ro *ReconciliationOrchestrator) runInstrument(ctx context.Context, inst Instrument) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.InternalError(errors.CodeUnexpectedError, "instrument "+inst.ID, fmt.Errorf("panic: %v", r))
			ro.logger.WithError(err).WithField("instrument", inst.ID).Error("Instrument pipeline panicked")
			out = outcome{skipped: skip(inst.ID, err)}
		}
	}()

	if err := ctx.Err(); err != nil {
		return outcome{skipped: skip(inst.ID, err)}
	}

	report, err := ro.ReconcileInstrument(inst)
	if err != nil {
		ro.logger.WithError(err).WithField("instrument", inst.ID).Error("Instrument skipped")
		return outcome{skipped: skip(inst.ID, err)}
	}
	return outcome{report: report}
}

func skip(instrument string, err error) *SkippedInstrument {
	s := &SkippedInstrument{Instrument: instrument, Error: err.Error()}
	if rerr, ok := errors.AsReconcilerError(err); ok {
		s.Code = rerr.Code
	}
	return s
}

func (ro *ReconciliationOrchestrator) metadata() Metadata {
	c := ro.options.Classifier
	return Metadata{
		RunID:                    uuid.NewString(),
		GeneratedAt:              ro.now().UTC(),
		Cutoff:                   c.Cutoff,
		IncludeOutgoingTransfer:  c.IncludeOutgoingTransfer,
		IncludeDisbursementOrder: c.IncludeDisbursementOrder,
		IncludeCashout:           c.IncludeCashout,
		Fee:                      ro.options.Fee,
	}
}
