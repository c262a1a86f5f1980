package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"card-reconciliation/cmd/reconciler/config"
	"card-reconciliation/internal/reporter"
	"card-reconciliation/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	testLedger = "DATE;HEURE;LIBELLE;MONTANT\n" +
		"31/01/2026;10:15;Transfert du 0661 AUT 654321;100,00\n" +
		"31/01/2026;11:00;Transfert du 0662 AUT 111111;20,00\n"

	testStatement = "Date,Time,Type,Amount,Auth,To Account\n" +
		"31/01/2026,10:16,DEPOSIT,100.00,654321.0,\n" +
		"31/01/2026,11:01,DEPOSIT,20.00,111111,\n"
)

func writeInputs(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return dir
}

func testSettings(dir string) *config.Settings {
	return &config.Settings{
		Cutoff:                   time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
		IncludeOutgoingTransfer:  true,
		IncludeDisbursementOrder: true,
		IncludeCashout:           true,
		FeeThreshold:             decimal.NewFromInt(40),
		FeeRate:                  decimal.RequireFromString("0.99"),
		Workers:                  2,
		OutputFormat:             reporter.FormatConsole,
		InputDir:                 dir,
	}
}

func TestReconcileCommandFlags(t *testing.T) {
	for _, name := range []string{
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
		if reconcileCmd.Flags().Lookup(name) == nil {
			t.Errorf("flag '%s' not found", name)
		}
	}

	var helpOutput bytes.Buffer
	reconcileCmd.SetOut(&helpOutput)
	defer reconcileCmd.SetOut(nil)
	reconcileCmd.Help()

	for _, section := range []string{"Usage:", "Examples:", "Flags:", "--cutoff-date", "--fee-rate", "--strict"} {
		if !strings.Contains(helpOutput.String(), section) {
			t.Errorf("help text should contain '%s'", section)
		}
	}
}

func TestExecuteReconcile_Console(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		"178-D17-31-01-2026.csv":   testLedger,
		"statement-d17-178-01.csv": testStatement,
		"9-D17-31-01-2026.csv":     testLedger,
	})

	var out bytes.Buffer
	batch, err := executeReconcile(context.Background(), testSettings(dir), &out)
	if err != nil {
		t.Fatalf("executeReconcile() error = %v", err)
	}

	if batch.Summary.Instruments != 1 || batch.Summary.InstrumentsOK != 1 || batch.Summary.Unpaired != 1 {
		t.Errorf("Summary = %+v", batch.Summary)
	}

	for _, want := range []string{"=== SUMMARY ===", "=== INSTRUMENT 178 [OK] ===", "=== UNPAIRED FILES ==="} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestExecuteReconcile_WorkbookFile(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		"178-D17-31-01-2026.csv":   testLedger,
		"statement-d17-178-01.csv": testStatement,
	})
	settings := testSettings(dir)
	settings.OutputFormat = reporter.FormatXLSX
	settings.OutputFile = filepath.Join(t.TempDir(), "report.xlsx")

	var out bytes.Buffer
	if _, err := executeReconcile(context.Background(), settings, &out); err != nil {
		t.Fatalf("executeReconcile() error = %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("nothing should be written to the terminal, got %q", out.String())
	}

	f, err := excelize.OpenFile(settings.OutputFile)
	if err != nil {
		t.Fatalf("failed to open workbook: %v", err)
	}
	defer f.Close()

	sheets := strings.Join(f.GetSheetList(), ",")
	if !strings.Contains(sheets, reporter.SummarySheet) || !strings.Contains(sheets, reporter.InstrumentSheet("178")) {
		t.Errorf("sheets = %s", sheets)
	}
}

func TestExecuteReconcile_Strict(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		strict   bool
		wantExit int
	}{
		{
			name: "skipped instrument",
			files: map[string]string{
				"178-D17-31-01-2026.csv":   testLedger,
				"statement-d17-178-01.csv": testStatement,
				"55-D17-31-01-2026.csv":    "DATE;MONTANT\n31/13/2026;10\n",
				"statement-d17-55-01.csv":  testStatement,
			},
			strict:   true,
			wantExit: 5,
		},
		{
			name:     "nothing paired",
			files:    map[string]string{"178-D17-31-01-2026.csv": testLedger},
			strict:   true,
			wantExit: 6,
		},
		{
			name:     "nothing paired without strict",
			files:    map[string]string{"178-D17-31-01-2026.csv": testLedger},
			wantExit: 0,
		},
		{
			name: "skipped instrument without strict",
			files: map[string]string{
				"55-D17-31-01-2026.csv":   "DATE;MONTANT\n31/13/2026;10\n",
				"statement-d17-55-01.csv": testStatement,
			},
			wantExit: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := testSettings(writeInputs(t, tt.files))
			settings.Strict = tt.strict

			var out bytes.Buffer
			batch, err := executeReconcile(context.Background(), settings, &out)
			if got := errors.GetExitCode(err); got != tt.wantExit {
				t.Errorf("exit code = %d, want %d (err: %v)", got, tt.wantExit, err)
			}
			if batch == nil || out.Len() == 0 {
				t.Error("report should be rendered before a strict failure")
			}
		})
	}
}

func TestExecuteReconcile_MissingInput(t *testing.T) {
	settings := testSettings(filepath.Join(t.TempDir(), "nope"))

	_, err := executeReconcile(context.Background(), settings, &bytes.Buffer{})
	if got := errors.GetExitCode(err); got != 2 {
		t.Errorf("exit code = %d, want 2 (err: %v)", got, err)
	}
}

func TestRootCommand_Reconcile(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		"178-D17-31-01-2026.csv":   testLedger,
		"statement-d17-178-01.csv": testStatement,
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	defer rootCmd.SetOut(nil)
	rootCmd.SetArgs([]string{
		"reconcile",
		"--cutoff-date", "31/01/2026",
		"--output-format", "json",
		filepath.Join(dir, "178-D17-31-01-2026.csv"),
		filepath.Join(dir, "statement-d17-178-01.csv"),
	})
	defer rootCmd.SetArgs(nil)

	if err := Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), `"all_matched": true`) {
		t.Errorf("unexpected JSON output:\n%s", out.String())
	}
}

func TestCLIErrorHandler(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantExit int
		wantText string
	}{
		{"nil", nil, 0, ""},
		{"file", errors.FileError(errors.CodeFileNotFound, "a.csv", os.ErrNotExist), 2, "File error help"},
		{"parse", errors.ParseError(errors.CodeInvalidDate, "a.csv", 2, "Date", "x", nil), 3, "Parse error help"},
		{"config", errors.ConfigurationError(errors.CodeMissingConfig, config.KeyCutoffDate, nil, nil), 4, "--cutoff-date is required"},
		{"skipped", errors.ReconciliationError(errors.CodeInstrumentsSkipped, "55", nil), 5, "Reconciliation error help"},
		{"pairing", errors.PairingError(errors.CodeNoInstruments, ""), 6, "Pairing error help"},
		{"wrapped not found", fmt.Errorf("open: %w", os.ErrNotExist), 2, "File not found"},
		{"wrapped permission", fmt.Errorf("open: %w", os.ErrPermission), 2, "Permission denied"},
		{"generic", fmt.Errorf("boom"), 1, "Error: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			h := NewCLIErrorHandler()
			h.out = &out

			if got := h.HandleError(tt.err); got != tt.wantExit {
				t.Errorf("HandleError() = %d, want %d", got, tt.wantExit)
			}
			if !strings.Contains(out.String(), tt.wantText) {
				t.Errorf("output %q should contain %q", out.String(), tt.wantText)
			}
		})
	}
}

func TestCLIErrorHandler_ParseHelpNamesColumns(t *testing.T) {
	help := NewCLIErrorHandler().getCategoryHelp(errors.CategoryParse)

	for _, want := range []string{"DATE", "MONTANT", "LIBELLE", "Date and Amount", "day-first"} {
		if !strings.Contains(help, want) {
			t.Errorf("parse help should mention %q:\n%s", want, help)
		}
	}
	for _, stale := range []string{"Created at", "Libellé", "MM/DD/YYYY"} {
		if strings.Contains(help, stale) {
			t.Errorf("parse help should not mention %q:\n%s", stale, help)
		}
	}
}
