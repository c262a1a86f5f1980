package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"card-reconciliation/internal/classifier"
	"card-reconciliation/internal/parsers"
	"card-reconciliation/internal/reconciler"
	"card-reconciliation/internal/reporter"
	"card-reconciliation/pkg/errors"
	"card-reconciliation/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Configuration keys, shared by flags, config files and RECONCILER_* env vars
const (
	KeyCutoffDate               = "cutoff-date"
	KeyIncludeOutgoingTransfer  = "include-outgoing-transfer"
	KeyIncludeDisbursementOrder = "include-disbursement-order"
	KeyIncludeCashout           = "include-cashout"
	KeyFeeThreshold             = "fee-threshold"
	KeyFeeRate                  = "fee-rate"
	KeyWorkers                  = "workers"
	KeyOutputFormat             = "output-format"
	KeyOutputFile               = "output-file"
	KeyInputDir                 = "input-dir"
	KeyFiles                    = "files"
	KeyStrict                   = "strict"
	KeyVerbose                  = "verbose"
	KeyLogFormat                = "log-format"
)

// cutoffLayouts are the accepted cutoff date forms
var cutoffLayouts = []string{"2006-01-02", "02/01/2006", "2/1/2006"}

// Settings is the validated configuration of a reconcile run
type Settings struct {
	Cutoff                   time.Time
	IncludeOutgoingTransfer  bool
	IncludeDisbursementOrder bool
	IncludeCashout           bool
	FeeThreshold             decimal.Decimal
	FeeRate                  decimal.Decimal
	Workers                  int
	OutputFormat             reporter.OutputFormat
	OutputFile               string
	InputDir                 string
	Files                    []string
	Strict                   bool
}

// SetDefaults registers the default value of every optional key
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyIncludeOutgoingTransfer, true)
	v.SetDefault(KeyIncludeDisbursementOrder, true)
	v.SetDefault(KeyIncludeCashout, true)
	v.SetDefault(KeyFeeThreshold, "40")
	v.SetDefault(KeyFeeRate, "0.99")
	v.SetDefault(KeyWorkers, 1)
	v.SetDefault(KeyOutputFormat, string(reporter.FormatConsole))
	v.SetDefault(KeyLogFormat, string(logger.TextFormat))
}

// ParseCutoffDate accepts YYYY-MM-DD or DD/MM/YYYY
func ParseCutoffDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range cutoffLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse cutoff date '%s'", s)
}

// Load reads and validates the settings held by v
func Load(v *viper.Viper) (*Settings, error) {
	raw := strings.TrimSpace(v.GetString(KeyCutoffDate))
	if raw == "" {
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, KeyCutoffDate, nil, nil).
			WithSuggestion("Pass --cutoff-date YYYY-MM-DD or set RECONCILER_CUTOFF_DATE")
	}
	cutoff, err := ParseCutoffDate(raw)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyCutoffDate, raw, err).
			WithSuggestion("Use YYYY-MM-DD or DD/MM/YYYY")
	}

	threshold, err := decimal.NewFromString(strings.TrimSpace(v.GetString(KeyFeeThreshold)))
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyFeeThreshold, v.GetString(KeyFeeThreshold), err)
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(v.GetString(KeyFeeRate)))
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyFeeRate, v.GetString(KeyFeeRate), err)
	}

	format, err := reporter.ParseOutputFormat(v.GetString(KeyOutputFormat))
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyOutputFormat, v.GetString(KeyOutputFormat), err)
	}

	settings := &Settings{
		Cutoff:                   cutoff,
		IncludeOutgoingTransfer:  v.GetBool(KeyIncludeOutgoingTransfer),
		IncludeDisbursementOrder: v.GetBool(KeyIncludeDisbursementOrder),
		IncludeCashout:           v.GetBool(KeyIncludeCashout),
		FeeThreshold:             threshold,
		FeeRate:                  rate,
		Workers:                  v.GetInt(KeyWorkers),
		OutputFormat:             format,
		OutputFile:               strings.TrimSpace(v.GetString(KeyOutputFile)),
		InputDir:                 strings.TrimSpace(v.GetString(KeyInputDir)),
		Files:                    v.GetStringSlice(KeyFiles),
		Strict:                   v.GetBool(KeyStrict),
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Validate checks the settings that do not depend on the file system
func (s *Settings) Validate() error {
	if s.Workers < 1 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, KeyWorkers, s.Workers, fmt.Errorf("workers must be at least 1"))
	}
	if err := s.Fee().Validate(); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "fee", s.Fee(), err)
	}
	if s.OutputFormat.IsBinary() && s.OutputFile == "" {
		return errors.ConfigurationError(errors.CodeConfigConflict, KeyOutputFile, nil,
			fmt.Errorf("%s output cannot be written to the terminal", s.OutputFormat)).
			WithSuggestion("Pass --output-file report.xlsx")
	}
	if s.InputDir == "" && len(s.Files) == 0 {
		return errors.ConfigurationError(errors.CodeMissingConfig, KeyFiles, nil, nil).
			WithSuggestion("Pass --input-dir or list the ledger and statement files")
	}
	return nil
}

// Fee returns the configured fee rule
func (s *Settings) Fee() reconciler.FeeRule {
	return reconciler.FeeRule{Threshold: s.FeeThreshold, Rate: s.FeeRate}
}

// ReconcilerOptions builds the engine options
func (s *Settings) ReconcilerOptions() *reconciler.Options {
	return &reconciler.Options{
		Classifier: classifier.Options{
			Cutoff:                   s.Cutoff,
			IncludeOutgoingTransfer:  s.IncludeOutgoingTransfer,
			IncludeDisbursementOrder: s.IncludeDisbursementOrder,
			IncludeCashout:           s.IncludeCashout,
		},
		Fee:       s.Fee(),
		Workers:   s.Workers,
		Ledger:    parsers.DefaultLedgerConfig(),
		Statement: parsers.DefaultStatementConfig(),
	}
}

// CreateReportConfig creates a report configuration for the specified output format
func CreateReportConfig(format reporter.OutputFormat) *reporter.ReportConfig {
	config := reporter.DefaultReportConfig()
	config.Format = format

	switch format {
	case reporter.FormatCSV:
		config.CSVHeaders = true
		config.CSVDelimiter = ','
		config.IncludeWarnings = false
	case reporter.FormatConsole:
		config.MaxListItems = 50
	}

	return config
}

// LoggerConfig maps the verbosity and log format flags to a logger config
func LoggerConfig(verbose bool, format string) (*logger.Config, error) {
	config := logger.DefaultConfig()
	if verbose {
		config = logger.DebugConfig()
	}

	switch logger.Format(strings.ToLower(strings.TrimSpace(format))) {
	case logger.JSONFormat:
		config.Format = logger.JSONFormat
	case logger.TextFormat, "":
		config.Format = logger.TextFormat
	default:
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyLogFormat, format, fmt.Errorf("expected text or json"))
	}
	return config, nil
}

// DiscoverFiles returns the explicit files plus every CSV file directly
// inside dir, deduplicated and sorted
func DiscoverFiles(dir string, files []string) ([]string, error) {
	seen := make(map[string]bool)
	var found []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			found = append(found, path)
		}
	}

	for _, f := range files {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		info, err := os.Stat(f)
		if err != nil {
			code := errors.CodeFileNotFound
			if os.IsPermission(err) {
				code = errors.CodeFilePermission
			}
			return nil, errors.FileError(code, f, err)
		}
		if info.IsDir() {
			return nil, errors.FileError(errors.CodeDirectoryError, f, fmt.Errorf("expected a file, got a directory"))
		}
		add(f)
	}

	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, errors.FileError(errors.CodeDirectoryError, dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
				continue
			}
			add(filepath.Join(dir, entry.Name()))
		}
	}

	sort.Strings(found)
	return found, nil
}
