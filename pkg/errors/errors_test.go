package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestReconcilerError(t *testing.T) {
	tests := []struct {
		name       string
		category   ErrorCategory
		code       ErrorCode
		message    string
		cause      error
		expectCode int
	}{
		{
			name:       "file error",
			category:   CategoryFile,
			code:       CodeFileNotFound,
			message:    "file not found",
			cause:      errors.New("no such file"),
			expectCode: 2,
		},
		{
			name:       "parse error",
			category:   CategoryParse,
			code:       CodeInvalidFormat,
			message:    "invalid format",
			expectCode: 3,
		},
		{
			name:       "configuration error",
			category:   CategoryConfiguration,
			code:       CodeInvalidConfig,
			message:    "invalid config",
			cause:      errors.New("missing field"),
			expectCode: 4,
		},
		{
			name:       "pairing error",
			category:   CategoryPairing,
			code:       CodeNoInstruments,
			message:    "nothing to pair",
			expectCode: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err *ReconcilerError
			if tt.cause != nil {
				err = Wrap(tt.cause, tt.category, tt.code, tt.message)
			} else {
				err = New(tt.category, tt.code, tt.message)
			}

			if err.Category != tt.category {
				t.Errorf("expected category %s, got %s", tt.category, err.Category)
			}
			if err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, err.Code)
			}
			if got := err.GetExitCode(); got != tt.expectCode {
				t.Errorf("expected exit code %d, got %d", tt.expectCode, got)
			}
			if tt.cause != nil && !errors.Is(err, tt.cause) {
				t.Errorf("expected error chain to contain cause")
			}
			if len(err.StackTrace) == 0 {
				t.Errorf("expected a captured stack trace")
			}
		})
	}
}

func TestParseErrorNamesSource(t *testing.T) {
	err := ParseError(CodeInvalidDate, "178-D17-31-01-2026.csv", 4, "DATE", "31/13/2026", nil)

	if !strings.Contains(err.Error(), "178-D17-31-01-2026.csv") {
		t.Errorf("expected file name in message, got %q", err.Error())
	}
	if err.Context["line"] != 4 {
		t.Errorf("expected line context 4, got %v", err.Context["line"])
	}
	if err.Suggestion == "" {
		t.Errorf("expected a suggestion")
	}
}

func TestAsReconcilerErrorThroughWrapping(t *testing.T) {
	base := ParseError(CodeMissingColumn, "ledger.csv", 1, "MONTANT", "", nil)
	wrapped := fmt.Errorf("loading ledger: %w", base)

	got, ok := AsReconcilerError(wrapped)
	if !ok {
		t.Fatal("expected to find ReconcilerError in chain")
	}
	if got.Code != CodeMissingColumn {
		t.Errorf("expected code %s, got %s", CodeMissingColumn, got.Code)
	}

	if WrapIfNeeded(wrapped, CategoryInternal, CodeUnexpectedError, "x") != base {
		t.Errorf("expected WrapIfNeeded to return the existing error")
	}
	if WrapIfNeeded(nil, CategoryInternal, CodeUnexpectedError, "x") != nil {
		t.Errorf("expected nil for nil error")
	}
}

func TestContextKeysSorted(t *testing.T) {
	err := New(CategoryInternal, CodeUnexpectedError, "boom").
		WithContext("zeta", 1).
		WithContext("alpha", 2)

	keys := err.ContextKeys()
	if len(keys) != 2 || keys[0] != "alpha" || keys[1] != "zeta" {
		t.Errorf("unexpected key order: %v", keys)
	}
}

func TestNoPairingError(t *testing.T) {
	err := &NoPairingError{Instrument: "178", HaveKind: "ledger", File: "178-D17-x.csv"}
	if !strings.Contains(err.Error(), "no statement file") {
		t.Errorf("unexpected message: %s", err.Error())
	}

	err = &NoPairingError{Instrument: "75", HaveKind: "statement", File: "statement-d17-075-x.csv"}
	if !strings.Contains(err.Error(), "no ledger file") {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestSchemaGapWarningString(t *testing.T) {
	w := SchemaGapWarning{File: "s.csv", Column: "Auth", Feature: "auth code matching"}
	if got := w.String(); got != "s.csv: column 'Auth' not found, auth code matching disabled" {
		t.Errorf("unexpected string: %s", got)
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain error", fmt.Errorf("boom"), 1},
		{"pairing", PairingError(CodeNoInstruments, "none"), 6},
		{"wrapped config", fmt.Errorf("outer: %w", ConfigurationError(CodeInvalidConfig, "workers", 0, nil)), 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.want {
				t.Errorf("GetExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
