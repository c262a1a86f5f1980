package reporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"card-reconciliation/internal/reconciler"
	"card-reconciliation/pkg/errors"
	"card-reconciliation/pkg/logger"
)

// SafeReportGenerator wraps ReportGenerator with logging and fallbacks
type SafeReportGenerator struct {
	*ReportGenerator
	logger logger.Logger
}

// NewSafeReportGenerator creates a new safe report generator with error handling
func NewSafeReportGenerator(config *ReportConfig, log logger.Logger) (*SafeReportGenerator, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	generator, err := NewReportGenerator(config)
	if err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"output-format",
			config,
			err,
		).WithSuggestion("Use one of console, json, csv or xlsx")
	}

	return &SafeReportGenerator{
		ReportGenerator: generator,
		logger:          log.WithComponent("reporter"),
	}, nil
}

// GenerateReportSafely renders the report, falling back to the console
// format when a structured format fails
func (srg *SafeReportGenerator) GenerateReportSafely(batch *reconciler.BatchReport, writer io.Writer) error {
	srg.logger.WithFields(logger.Fields{
		"format": srg.config.Format,
		"output": getWriterDescription(writer),
	}).Info("Starting report generation")

	if err := srg.validateInputs(batch, writer); err != nil {
		srg.logger.WithError(err).Error("Report generation failed: input validation")
		return err
	}

	if err := srg.generateWithFallback(batch, writer); err != nil {
		srg.logger.WithError(err).Error("Report generation failed")
		return err
	}

	srg.logger.WithField("instruments", len(batch.Order)).Info("Report generation completed")
	return nil
}

// WriteReportFile renders the report into path. When path cannot be
// created the report goes to a backup file next to it.
func (srg *SafeReportGenerator) WriteReportFile(batch *reconciler.BatchReport, path string) (string, error) {
	file, err := os.Create(path)
	if err != nil {
		srg.logger.WithError(err).WithField("file", path).Warn("Cannot create report file, attempting backup location")
		return srg.writeBackup(batch, path, err)
	}
	defer file.Close()

	if err := srg.GenerateReportSafely(batch, file); err != nil {
		return "", err
	}
	return path, nil
}

func (srg *SafeReportGenerator) validateInputs(batch *reconciler.BatchReport, writer io.Writer) error {
	if batch == nil {
		return errors.New(errors.CategoryValidation, errors.CodeMissingField, "batch report is missing").
			WithSuggestion("Run a reconciliation before rendering a report")
	}

	if writer == nil {
		return errors.New(errors.CategoryValidation, errors.CodeMissingField, "output writer is missing").
			WithSuggestion("Provide a valid output writer")
	}

	return nil
}

func (srg *SafeReportGenerator) generateWithFallback(batch *reconciler.BatchReport, writer io.Writer) error {
	err := srg.GenerateReport(batch, writer)
	if err == nil {
		return nil
	}

	srg.logger.WithError(err).Warn("Primary report generation failed, attempting fallback")

	// a partly written workbook cannot be followed by text
	if srg.config.Format == FormatConsole || srg.config.Format.IsBinary() {
		return srg.wrapGenerationError(err)
	}
	return srg.generateWithFormatFallback(batch, writer, err)
}

func (srg *SafeReportGenerator) generateWithFormatFallback(batch *reconciler.BatchReport, writer io.Writer, originalErr error) error {
	fallbackConfig := *srg.config
	fallbackConfig.Format = FormatConsole

	srg.logger.WithField("fallback_format", FormatConsole).Info("Attempting format fallback")

	fallbackGenerator, err := NewReportGenerator(&fallbackConfig)
	if err != nil {
		return srg.wrapGenerationError(originalErr)
	}

	fmt.Fprintf(writer, "NOTE: Report generated in fallback format due to error with requested format\n")
	fmt.Fprintf(writer, "Original error: %v\n\n", originalErr)

	if err := fallbackGenerator.GenerateReport(batch, writer); err != nil {
		return errors.InternalError(
			errors.CodeUnexpectedError,
			"report_fallback",
			fmt.Errorf("both primary and fallback generation failed: primary=%v, fallback=%v", originalErr, err),
		)
	}

	srg.logger.Info("Report generated using format fallback")
	return nil
}

func (srg *SafeReportGenerator) writeBackup(batch *reconciler.BatchReport, originalPath string, originalErr error) (string, error) {
	if !isFileError(originalErr) {
		return "", srg.wrapGenerationError(originalErr)
	}

	backupPath := generateBackupPath(originalPath)
	srg.logger.WithFields(logger.Fields{
		"original_file": originalPath,
		"backup_file":   backupPath,
	}).Info("Attempting output fallback")

	backupFile, err := os.Create(backupPath)
	if err != nil {
		return "", errors.FileError(errors.CodeFilePermission, originalPath, originalErr).
			WithSuggestion("Check that the output directory exists and is writable")
	}
	defer backupFile.Close()

	if err := srg.GenerateReportSafely(batch, backupFile); err != nil {
		return "", err
	}

	srg.logger.WithField("backup_file", backupPath).Warn("Report written to backup location")
	return backupPath, nil
}

func (srg *SafeReportGenerator) wrapGenerationError(err error) error {
	if reconcilerErr, ok := errors.AsReconcilerError(err); ok {
		return reconcilerErr
	}

	return errors.InternalError(
		errors.CodeUnexpectedError,
		"report_generation",
		err,
	).WithSuggestion("Check the output destination and report format settings")
}

func isFileError(err error) bool {
	return os.IsPermission(err) || os.IsNotExist(err) || os.IsExist(err) || isSpaceError(err)
}

// generateBackupPath puts the backup in the working directory when the
// original directory is the problem
func generateBackupPath(originalPath string) string {
	base := filepath.Base(originalPath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)

	dir := filepath.Dir(originalPath)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		dir = "."
	}
	return filepath.Join(dir, fmt.Sprintf("%s_backup%s", name, ext))
}

func getWriterDescription(writer io.Writer) string {
	switch w := writer.(type) {
	case *os.File:
		if w.Name() != "" {
			return fmt.Sprintf("file:%s", w.Name())
		}
		return "file:unnamed"
	default:
		return fmt.Sprintf("writer:%T", writer)
	}
}

func isSpaceError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "no space left") ||
		strings.Contains(msg, "disk full") ||
		strings.Contains(msg, "device full")
}
