package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Source identifies which side of a reconciliation a record comes from
type Source string

const (
	// SourceLedger is the card issuer journal
	SourceLedger Source = "LEDGER"
	// SourceStatement is the peer-to-peer settlement statement
	SourceStatement Source = "STATEMENT"
)

// String returns the string representation of Source
func (s Source) String() string {
	return string(s)
}

// IsValid checks if the source is known
func (s Source) IsValid() bool {
	return s == SourceLedger || s == SourceStatement
}

// Direction is the money flow of a transaction relative to the card
type Direction string

const (
	// DirectionIn covers incoming transfers / deposits
	DirectionIn Direction = "IN"
	// DirectionOut covers outgoing transfers, disbursement orders, withdrawals and cash-outs
	DirectionOut Direction = "OUT"
)

// String returns the string representation of Direction
func (d Direction) String() string {
	return string(d)
}

// IsValid checks if the direction is known
func (d Direction) IsValid() bool {
	return d == DirectionIn || d == DirectionOut
}

// Transaction is the normalized record the engine reasons about. Direction is
// set once by the classifier and MatchKey once by the key deriver.
type Transaction struct {
	Source       Source          `json:"source"`
	Direction    Direction       `json:"direction"`
	Line         int             `json:"line"`
	Date         time.Time       `json:"date"`
	Time         string          `json:"time,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	AuthCode     string          `json:"auth_code,omitempty"`
	Counterparty string          `json:"counterparty,omitempty"`
	Description  string          `json:"description,omitempty"`
	Type         string          `json:"type,omitempty"`
	MatchKey     string          `json:"-"`
}

// Day returns the calendar date of the transaction at midnight UTC
func (t *Transaction) Day() time.Time {
	return DateOnly(t.Date)
}

// Reference returns what identifies the transaction to a person: the auth
// code for IN, the counterparty account for OUT.
func (t *Transaction) Reference() string {
	if t.Direction == DirectionIn {
		return t.AuthCode
	}
	return t.Counterparty
}

// String returns a string representation of the Transaction
func (t *Transaction) String() string {
	return fmt.Sprintf("Transaction{%s/%s line %d, Date: %s, Amount: %s, Ref: %s}",
		t.Source, t.Direction, t.Line, t.Date.Format("2006-01-02"), t.Amount.StringFixed(2), t.Reference())
}

// DateOnly drops the time of day, keeping the calendar date
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
