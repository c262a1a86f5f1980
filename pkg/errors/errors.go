package errors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryFile           ErrorCategory = "file"
	CategoryParse          ErrorCategory = "parse"
	CategoryValidation     ErrorCategory = "validation"
	CategoryConfiguration  ErrorCategory = "configuration"
	CategoryReconciliation ErrorCategory = "reconciliation"
	CategoryPairing        ErrorCategory = "pairing"
	CategoryInternal       ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// File errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"
	CodeFileCorrupted  ErrorCode = "file_corrupted"
	CodeDirectoryError ErrorCode = "directory_error"

	// Parse errors
	CodeInvalidFormat ErrorCode = "invalid_format"
	CodeMissingColumn ErrorCode = "missing_column"
	CodeInvalidData   ErrorCode = "invalid_data"
	CodeInvalidDate   ErrorCode = "invalid_date"
	CodeInvalidAmount ErrorCode = "invalid_amount"
	CodeEncodingError ErrorCode = "encoding_error"

	// Validation and configuration errors
	CodeMissingField   ErrorCode = "missing_field"
	CodeInvalidConfig  ErrorCode = "invalid_config"
	CodeMissingConfig  ErrorCode = "missing_config"
	CodeConfigConflict ErrorCode = "config_conflict"

	// Reconciliation errors
	CodeInstrumentFailed   ErrorCode = "instrument_failed"
	CodeInstrumentsSkipped ErrorCode = "instruments_skipped"

	// Pairing errors
	CodeNoPairing     ErrorCode = "no_pairing"
	CodeNoInstruments ErrorCode = "no_instruments"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// ReconcilerError is the base error type for all application errors
type ReconcilerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *ReconcilerError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", msg, e.Suggestion)
	}
	return msg
}

// Unwrap returns the underlying cause error
func (e *ReconcilerError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *ReconcilerError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryReconciliation, CategoryInternal:
		return 5
	case CategoryPairing:
		return 6
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *ReconcilerError) WithContext(key string, value interface{}) *ReconcilerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *ReconcilerError) WithSuggestion(suggestion string) *ReconcilerError {
	e.Suggestion = suggestion
	return e
}

// ContextKeys returns the context keys in sorted order so callers can print
// the context deterministically.
func (e *ReconcilerError) ContextKeys() []string {
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// New creates a new ReconcilerError
func New(category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ReconcilerError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func build(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err != nil {
		return Wrap(err, category, code, message)
	}
	return New(category, code, message)
}

// FileError creates a file-related error
func FileError(code ErrorCode, path string, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check if the file path is correct and the file exists"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", path)
		suggestion = "check file permissions and ensure you have read access"
	case CodeFileCorrupted:
		message = fmt.Sprintf("file could not be read: %s", path)
		suggestion = "export the file again from the source system"
	case CodeDirectoryError:
		message = fmt.Sprintf("directory error: %s", path)
		suggestion = "ensure the directory exists and is accessible"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	return build(err, CategoryFile, code, message).
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// ParseError creates a parsing-related error. The file name is always part
// of the message so the failing source can be identified in a batch.
func ParseError(code ErrorCode, file string, line int, column string, value string, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeInvalidFormat:
		message = fmt.Sprintf("%s is not readable as delimited text (line %d)", file, line)
		suggestion = "export the file as CSV with ';' or ',' delimiters"
	case CodeMissingColumn:
		message = fmt.Sprintf("missing required column '%s' in file %s", column, file)
		suggestion = "verify the file has all required columns with correct headers"
	case CodeInvalidDate:
		message = fmt.Sprintf("invalid date in file %s at line %d, column '%s': '%s'", file, line, column, value)
		suggestion = "dates must be day-first, e.g. 31/01/2026"
	case CodeInvalidAmount:
		message = fmt.Sprintf("invalid amount in file %s at line %d, column '%s': '%s'", file, line, column, value)
		suggestion = "amounts must be decimal numbers using '.' or ',' as decimal separator"
	case CodeEncodingError:
		message = fmt.Sprintf("encoding error in file %s at line %d", file, line)
		suggestion = "ensure the file is saved in UTF-8 encoding"
	default:
		message = fmt.Sprintf("parse error in file %s at line %d", file, line)
		suggestion = "check the file format and data integrity"
	}

	return build(err, CategoryParse, code, message).
		WithSuggestion(suggestion).
		WithContext("file", file).
		WithContext("line", line).
		WithContext("column", column).
		WithContext("value", value)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this setting as a flag, in the config file or as RECONCILER_ environment variable"
	case CodeConfigConflict:
		message = fmt.Sprintf("configuration conflict with setting '%s': %v", setting, value)
		suggestion = "resolve the conflicting settings"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	return build(err, CategoryConfiguration, code, message).
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// ReconciliationError creates an error scoped to one instrument's pipeline
func ReconciliationError(code ErrorCode, instrument string, err error) *ReconcilerError {
	var message string

	switch code {
	case CodeInstrumentFailed:
		message = fmt.Sprintf("instrument %s could not be reconciled", instrument)
	case CodeInstrumentsSkipped:
		message = fmt.Sprintf("instruments skipped: %s", instrument)
	default:
		message = fmt.Sprintf("reconciliation error for instrument %s", instrument)
	}

	return build(err, CategoryReconciliation, code, message).
		WithContext("instrument", instrument)
}

// PairingError creates an error about ledger/statement file pairing
func PairingError(code ErrorCode, detail string) *ReconcilerError {
	switch code {
	case CodeNoInstruments:
		return New(CategoryPairing, code, "no instrument has both a ledger and a statement file").
			WithSuggestion("ledger files start with the card number (e.g. 178-D17-...), statement files contain 'statement' and d17-<card>-").
			WithContext("detail", detail)
	default:
		return New(CategoryPairing, code, fmt.Sprintf("pairing error: %s", detail))
	}
}

// InternalError creates an internal error
func InternalError(code ErrorCode, operation string, err error) *ReconcilerError {
	return build(err, CategoryInternal, code, fmt.Sprintf("unexpected error during %s", operation)).
		WithSuggestion("this is likely a bug - please report it with the error details").
		WithContext("operation", operation)
}

// SchemaGapWarning records an optional column that is absent from a source.
// It is not an error: the dependent feature degrades to an empty value.
type SchemaGapWarning struct {
	File    string `json:"file"`
	Column  string `json:"column"`
	Feature string `json:"feature"`
}

func (w SchemaGapWarning) String() string {
	return fmt.Sprintf("%s: column '%s' not found, %s disabled", w.File, w.Column, w.Feature)
}

// NoPairingError reports an instrument that has files of one kind only.
// It is carried in the batch report, never returned from a run.
type NoPairingError struct {
	Instrument string `json:"instrument"`
	HaveKind   string `json:"have_kind"`
	File       string `json:"file"`
}

func (e *NoPairingError) Error() string {
	missing := "statement"
	if e.HaveKind == "statement" {
		missing = "ledger"
	}
	return fmt.Sprintf("instrument %s has a %s file (%s) but no %s file", e.Instrument, e.HaveKind, e.File, missing)
}

// AsReconcilerError extracts a ReconcilerError from an error chain
func AsReconcilerError(err error) (*ReconcilerError, bool) {
	var reconcilerErr *ReconcilerError
	if errors.As(err, &reconcilerErr) {
		return reconcilerErr, true
	}
	return nil, false
}

// WrapIfNeeded wraps an error if it's not already a ReconcilerError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	if reconcilerErr, ok := AsReconcilerError(err); ok {
		return reconcilerErr
	}

	return Wrap(err, category, code, message)
}

// As is errors.As, re-exported so callers need a single errors import
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Is is errors.Is, re-exported so callers need a single errors import
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Join renders several messages as one line, used for summaries of skipped work
func Join(msgs []string) string {
	return strings.Join(msgs, "; ")
}

// GetExitCode maps any error to a process exit code: 0 for nil, the
// category code for a ReconcilerError in the chain, 1 otherwise
func GetExitCode(err error) int {
	if err == nil {
		return 0
	}
	if reconcilerErr, ok := AsReconcilerError(err); ok {
		return reconcilerErr.GetExitCode()
	}
	return 1
}
