package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"card-reconciliation/cmd/reconciler/config"
	"card-reconciliation/internal/reconciler"
	"card-reconciliation/internal/reporter"
	"card-reconciliation/pkg/errors"
	"card-reconciliation/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile [files...]",
	Short: "Reconcile card ledgers with settlement statements",
	Long: `Reconcile pairs every card ledger export with the settlement statement of
the same card and compares them in both directions.

Ledger files are recognized by a leading card number (178-D17-31-01-2026.csv),
statement files by the word "statement" and a d17-<card>- segment
(statement-d17-178-2026.csv). Files are taken from --input-dir, --files and
the positional arguments.

Incoming rows are matched by 6-digit authorization code. Statement amounts
above the fee threshold are multiplied by the fee rate before comparison.
Outgoing rows are matched by date, amount and counterparty account.

Examples:
  # Every CSV file of a directory
  reconciler reconcile --cutoff-date 2026-01-31 --input-dir ./exports

  # Explicit files, incoming transfers only
  reconciler reconcile --cutoff-date 31/01/2026 \
    --include-outgoing-transfer=false --include-disbursement-order=false --include-cashout=false \
    178-D17-31-01-2026.csv statement-d17-178-2026.csv

  # Workbook report, four cards at a time
  reconciler reconcile --cutoff-date 2026-01-31 -d ./exports --workers 4 -f xlsx -o report.xlsx

  # Fail when any card could not be reconciled
  reconciler reconcile --cutoff-date 2026-01-31 -d ./exports --strict`,

	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	flags := reconcileCmd.Flags()

	// Required flags
	flags.String(config.KeyCutoffDate, "", "keep rows dated on or after this day (YYYY-MM-DD or DD/MM/YYYY, required)")

	// Input flags
	flags.StringP(config.KeyInputDir, "d", "", "directory holding ledger and statement CSV files")
	flags.StringSlice(config.KeyFiles, []string{}, "comma-separated ledger and statement files")

	// Classification flags
	flags.Bool(config.KeyIncludeOutgoingTransfer, true, "reconcile outgoing transfers (ledger \"Transfert vers\", statement WITHDRAWAL)")
	flags.Bool(config.KeyIncludeDisbursementOrder, true, "reconcile disbursement orders (ledger \"Mandat\")")
	flags.Bool(config.KeyIncludeCashout, true, "reconcile statement CASHOUT rows")

	// Fee flags
	flags.String(config.KeyFeeThreshold, "40", "statement amounts strictly above this are fee-adjusted")
	flags.String(config.KeyFeeRate, "0.99", "multiplier applied to fee-adjusted statement amounts")

	// Execution flags
	flags.Int(config.KeyWorkers, 1, "cards reconciled concurrently")
	flags.Bool(config.KeyStrict, false, "exit with an error when a card is skipped or nothing could be paired")

	// Output flags
	flags.StringP(config.KeyOutputFormat, "f", "console", "output format: console, json, csv, xlsx")
	flags.StringP(config.KeyOutputFile, "o", "", "output file path (default: stdout)")

	// Bind flags to viper
	for _, key := range []string{
		config.KeyCutoffDate,
		config.KeyInputDir,
		config.KeyFiles,
		config.KeyIncludeOutgoingTransfer,
		config.KeyIncludeDisbursementOrder,
		config.KeyIncludeCashout,
		config.KeyFeeThreshold,
		config.KeyFeeRate,
		config.KeyWorkers,
		config.KeyStrict,
		config.KeyOutputFormat,
		config.KeyOutputFile,
	} {
		viper.BindPFlag(key, flags.Lookup(key))
	}
}

func runReconcile(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		viper.Set(config.KeyFiles, append(viper.GetStringSlice(config.KeyFiles), args...))
	}

	settings, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	_, err = executeReconcile(ctx, settings, cmd.OutOrStdout())
	return err
}

// executeReconcile runs the batch and renders it. The report is rendered
// before a strict-mode failure is returned.
func executeReconcile(ctx context.Context, settings *config.Settings, out io.Writer) (*reconciler.BatchReport, error) {
	log := logger.GetGlobalLogger().WithComponent("cli")

	files, err := config.DiscoverFiles(settings.InputDir, settings.Files)
	if err != nil {
		return nil, err
	}
	log.WithFields(logger.Fields{
		"files":   len(files),
		"cutoff":  settings.Cutoff.Format("2006-01-02"),
		"workers": settings.Workers,
		"format":  settings.OutputFormat,
	}).Info("Starting reconciliation")

	orchestrator, err := reconciler.NewReconciliationOrchestrator(settings.ReconcilerOptions())
	if err != nil {
		return nil, err
	}

	batch, err := orchestrator.Run(ctx, files)
	if err != nil {
		return nil, err
	}

	if err := renderReport(batch, settings, out); err != nil {
		return batch, err
	}

	s := batch.Summary
	log.WithFields(logger.Fields{
		"instruments":    s.Instruments,
		"instruments_ok": s.InstrumentsOK,
		"skipped":        s.Skipped,
		"unpaired":       s.Unpaired,
		"matched":        s.TotalMatched,
		"missing_amount": s.TotalMissingAmount.StringFixed(2),
	}).Info("Reconciliation completed")

	return batch, checkOutcome(batch, settings.Strict, log)
}

func renderReport(batch *reconciler.BatchReport, settings *config.Settings, out io.Writer) error {
	generator, err := reporter.NewSafeReportGenerator(config.CreateReportConfig(settings.OutputFormat), nil)
	if err != nil {
		return err
	}

	if settings.OutputFile == "" {
		return generator.GenerateReportSafely(batch, out)
	}

	written, err := generator.WriteReportFile(batch, settings.OutputFile)
	if err != nil {
		return err
	}
	if written != settings.OutputFile {
		fmt.Fprintf(os.Stderr, "Warning: could not write to %s, report saved to %s\n", settings.OutputFile, written)
	}
	return nil
}

// checkOutcome turns an incomplete batch into an error in strict mode
func checkOutcome(batch *reconciler.BatchReport, strict bool, log logger.Logger) error {
	s := batch.Summary

	if s.Instruments == 0 && s.Skipped == 0 {
		var detail []string
		for _, u := range batch.Unpaired {
			detail = append(detail, u.Error())
		}
		log.Warn("No card has both a ledger and a statement file")
		if strict {
			return errors.PairingError(errors.CodeNoInstruments, errors.Join(detail))
		}
		return nil
	}

	if strict && s.Skipped > 0 {
		var ids []string
		for _, skipped := range batch.Skipped {
			ids = append(ids, skipped.Instrument)
		}
		return errors.ReconciliationError(errors.CodeInstrumentsSkipped, strings.Join(ids, ", "), nil).
			WithSuggestion("Run without --strict to see the report of the other cards, or fix the files listed above")
	}

	return nil
}
