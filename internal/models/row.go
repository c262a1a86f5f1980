package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CellKind is the type a parsed cell was converted to
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellAmount
	CellDate
)

// Cell holds one typed value of a RawRow
type Cell struct {
	Kind   CellKind
	Text   string
	Amount decimal.Decimal
	Date   time.Time
}

// TextCell builds a text cell, or an empty cell for blank input
func TextCell(s string) Cell {
	if s == "" {
		return Cell{Kind: CellEmpty}
	}
	return Cell{Kind: CellText, Text: s}
}

// AmountCell builds a decimal cell
func AmountCell(d decimal.Decimal) Cell {
	return Cell{Kind: CellAmount, Amount: d}
}

// DateCell builds a date cell
func DateCell(t time.Time) Cell {
	return Cell{Kind: CellDate, Date: t}
}

// IsEmpty reports whether the cell carries no value
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty
}

// RawRow is one parsed line: trimmed column name to typed value. Columns
// absent from the source are absent from Values.
type RawRow struct {
	Line   int
	Values map[string]Cell
}

// NewRawRow creates an empty row for the given source line
func NewRawRow(line int) RawRow {
	return RawRow{Line: line, Values: make(map[string]Cell)}
}

// Set stores a cell under a column name
func (r RawRow) Set(column string, cell Cell) {
	r.Values[column] = cell
}

// Get returns the cell for a column and whether the column exists
func (r RawRow) Get(column string) (Cell, bool) {
	c, ok := r.Values[column]
	return c, ok
}

// Text returns the text of a column, or "" when absent or not text
func (r RawRow) Text(column string) string {
	if c, ok := r.Values[column]; ok && c.Kind == CellText {
		return c.Text
	}
	return ""
}

// Amount returns the decimal of a column and whether one was present
func (r RawRow) Amount(column string) (decimal.Decimal, bool) {
	if c, ok := r.Values[column]; ok && c.Kind == CellAmount {
		return c.Amount, true
	}
	return decimal.Zero, false
}

// Date returns the date of a column and whether one was present
func (r RawRow) Date(column string) (time.Time, bool) {
	if c, ok := r.Values[column]; ok && c.Kind == CellDate {
		return c.Date, true
	}
	return time.Time{}, false
}
