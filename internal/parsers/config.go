package parsers

import (
	"fmt"
	"strings"

	"card-reconciliation/internal/models"
)

// LedgerConfig describes the card journal export
type LedgerConfig struct {
	DateColumn   string      `json:"date_column"`
	AmountColumn string      `json:"amount_column"`
	LabelColumn  string      `json:"label_column"`
	TimeColumn   string      `json:"time_column"`
	Parse        ParseConfig `json:"-"`
}

// DefaultLedgerConfig returns the journal layout: ';' preferred, ',' fallback
func DefaultLedgerConfig() *LedgerConfig {
	return &LedgerConfig{
		DateColumn:   models.LedgerDate,
		AmountColumn: models.LedgerAmount,
		LabelColumn:  models.LedgerLabel,
		TimeColumn:   models.LedgerTime,
		Parse: ParseConfig{
			Delimiter:         ';',
			FallbackDelimiter: ',',
			SkipEmptyRows:     true,
			DecodeLegacy:      true,
		},
	}
}

// Validate checks if the ledger configuration is valid
func (c *LedgerConfig) Validate() error {
	if strings.TrimSpace(c.DateColumn) == "" {
		return fmt.Errorf("date column cannot be empty")
	}
	if strings.TrimSpace(c.AmountColumn) == "" {
		return fmt.Errorf("amount column cannot be empty")
	}
	if strings.TrimSpace(c.LabelColumn) == "" {
		return fmt.Errorf("label column cannot be empty")
	}
	return c.Parse.Validate()
}

// StatementConfig describes the settlement provider export
type StatementConfig struct {
	DateColumn      string      `json:"date_column"`
	TypeColumn      string      `json:"type_column"`
	AmountColumn    string      `json:"amount_column"`
	AuthColumn      string      `json:"auth_column"`
	ToAccountColumn string      `json:"to_account_column"`
	TimeColumn      string      `json:"time_column"`
	Parse           ParseConfig `json:"-"`
}

// DefaultStatementConfig returns the statement layout: ',' delimited
func DefaultStatementConfig() *StatementConfig {
	return &StatementConfig{
		DateColumn:      models.StatementDate,
		TypeColumn:      models.StatementType,
		AmountColumn:    models.StatementAmount,
		AuthColumn:      models.StatementAuth,
		ToAccountColumn: models.StatementToAccount,
		TimeColumn:      models.StatementTime,
		Parse: ParseConfig{
			Delimiter:         ',',
			FallbackDelimiter: ';',
			SkipEmptyRows:     true,
			DecodeLegacy:      true,
		},
	}
}

// Validate checks if the statement configuration is valid
func (c *StatementConfig) Validate() error {
	if strings.TrimSpace(c.DateColumn) == "" {
		return fmt.Errorf("date column cannot be empty")
	}
	if strings.TrimSpace(c.AmountColumn) == "" {
		return fmt.Errorf("amount column cannot be empty")
	}
	return c.Parse.Validate()
}
