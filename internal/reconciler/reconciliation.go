package reconciler

import (
	"fmt"
	"time"

	"card-reconciliation/internal/matcher"
	"card-reconciliation/internal/models"

	"github.com/shopspring/decimal"
)

// Status classifies a matched pair
type Status string

const (
	StatusOK   Status = "OK"
	StatusDiff Status = "DIFF"
)

// StatusThreshold is the exclusive bound under which a difference is OK
var StatusThreshold = decimal.New(1, -2)

// StatusFor classifies a difference: OK iff |diff| < 0.01
func StatusFor(diff decimal.Decimal) Status {
	if diff.Abs().LessThan(StatusThreshold) {
		return StatusOK
	}
	return StatusDiff
}

// FeeRule is the settlement fee deducted from incoming statement amounts
// strictly above Threshold. Outgoing amounts are never adjusted.
type FeeRule struct {
	Threshold decimal.Decimal `json:"threshold"`
	Rate      decimal.Decimal `json:"rate"`
}

// DefaultFeeRule returns the 1% fee above 40
func DefaultFeeRule() FeeRule {
	return FeeRule{
		Threshold: decimal.NewFromInt(40),
		Rate:      decimal.RequireFromString("0.99"),
	}
}

// Validate checks the fee rule
func (f FeeRule) Validate() error {
	if f.Threshold.IsNegative() {
		return fmt.Errorf("fee threshold cannot be negative, got %s", f.Threshold)
	}
	if !f.Rate.IsPositive() || f.Rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("fee rate must be in (0, 1], got %s", f.Rate)
	}
	return nil
}

// Applies reports whether the fee is deducted from a raw statement amount
func (f FeeRule) Applies(direction models.Direction, raw decimal.Decimal) bool {
	return direction == models.DirectionIn && raw.GreaterThan(f.Threshold)
}

// Adjust returns the fee-adjusted amount
func (f FeeRule) Adjust(direction models.Direction, raw decimal.Decimal) decimal.Decimal {
	if f.Applies(direction, raw) {
		return raw.Mul(f.Rate)
	}
	return raw
}

// MissingEntry is a transaction present on one side only
type MissingEntry struct {
	Key         string          `json:"key"`
	Reference   string          `json:"reference"`
	Date        time.Time       `json:"date"`
	Time        string          `json:"time,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	Line        int             `json:"line"`
}

// MatchedPair is the comparison of the representative rows of a key
type MatchedPair struct {
	Key             string          `json:"key"`
	Reference       string          `json:"reference"`
	Date            time.Time       `json:"date"`
	CardAmount      decimal.Decimal `json:"card_amount"`
	StatementAmount decimal.Decimal `json:"statement_amount"`
	AdjustedAmount  decimal.Decimal `json:"adjusted_amount"`
	Difference      decimal.Decimal `json:"difference"`
	Status          Status          `json:"status"`
	FeeApplied      bool            `json:"fee_applied"`
	LedgerLine      int             `json:"ledger_line"`
	StatementLine   int             `json:"statement_line"`
}

// Counts summarizes a result
type Counts struct {
	Ledger             int `json:"ledger"`
	Statement          int `json:"statement"`
	Matched            int `json:"matched"`
	MissingInStatement int `json:"missing_in_statement"`
	MissingInLedger    int `json:"missing_in_ledger"`
	Unkeyed            int `json:"unkeyed"`
}

// Totals aggregate matched pairs only
type Totals struct {
	Card       decimal.Decimal `json:"card"`
	Statement  decimal.Decimal `json:"statement"`
	Adjusted   decimal.Decimal `json:"adjusted"`
	Difference decimal.Decimal `json:"difference"`
}

// ReconciliationResult is the outcome of one direction of one instrument
type ReconciliationResult struct {
	Direction models.Direction `json:"direction"`
	Counts    Counts           `json:"counts"`

	MissingInStatement []MissingEntry `json:"missing_in_statement"`
	MissingInLedger    []MissingEntry `json:"missing_in_ledger"`
	Matched            []MatchedPair  `json:"matched"`
	Discrepancies      []MatchedPair  `json:"discrepancies"`

	// Duplicates lists keys carried by several rows of one side
	Duplicates []matcher.DuplicateGroup `json:"duplicates,omitempty"`
	// Unkeyed lists ledger rows no key could be derived for. They have no
	// statement counterpart, so they count as missing in statement without
	// being listed in MissingInStatement under a shared key.
	Unkeyed []MissingEntry `json:"unkeyed,omitempty"`

	Totals        Totals          `json:"totals"`
	MissingAmount decimal.Decimal `json:"missing_amount"`
}

// HasMissing reports whether either side lacks a transaction of the other
func (r *ReconciliationResult) HasMissing() bool {
	return r.Counts.MissingInStatement > 0 || r.Counts.MissingInLedger > 0 || r.Counts.Unkeyed > 0
}

// LedgerOnly returns the ledger rows absent from the statement: keyed
// entries first, then unkeyed ones
func (r *ReconciliationResult) LedgerOnly() []MissingEntry {
	entries := make([]MissingEntry, 0, len(r.MissingInStatement)+len(r.Unkeyed))
	entries = append(entries, r.MissingInStatement...)
	return append(entries, r.Unkeyed...)
}

// Reconcile pairs ledger and statement transactions of one direction by
// match key. Keys present on one side only become missing entries; keys on
// both sides are compared through their first stored rows, visited in key
// order. It never fails: empty input yields a zero result.
func Reconcile(ledger, statement []models.Transaction, direction models.Direction, fee FeeRule) *ReconciliationResult {
	ledgerIndex := matcher.NewKeyIndex(models.SourceLedger, direction, ledger)
	statementIndex := matcher.NewKeyIndex(models.SourceStatement, direction, statement)

	result := &ReconciliationResult{
		Direction: direction,
		Counts: Counts{
			Ledger:    len(ledger),
			Statement: len(statement),
		},
		MissingInStatement: []MissingEntry{},
		MissingInLedger:    []MissingEntry{},
		Matched:            []MatchedPair{},
		Discrepancies:      []MatchedPair{},
		Totals: Totals{
			Card:       decimal.Zero,
			Statement:  decimal.Zero,
			Adjusted:   decimal.Zero,
			Difference: decimal.Zero,
		},
		MissingAmount: decimal.Zero,
	}

	totalCard, totalStatement, totalAdjusted := decimal.Zero, decimal.Zero, decimal.Zero

	for _, key := range ledgerIndex.Keys() {
		card := ledgerIndex.First(key)
		if !statementIndex.Has(key) {
			entry := missingEntry(key, card)
			result.MissingInStatement = append(result.MissingInStatement, entry)
			result.MissingAmount = result.MissingAmount.Add(entry.Amount)
			continue
		}

		pair := compare(key, card, statementIndex.First(key), direction, fee)
		result.Matched = append(result.Matched, pair)
		if pair.Status == StatusDiff {
			result.Discrepancies = append(result.Discrepancies, pair)
		}

		totalCard = totalCard.Add(pair.CardAmount)
		totalStatement = totalStatement.Add(pair.StatementAmount)
		totalAdjusted = totalAdjusted.Add(fee.Adjust(direction, pair.StatementAmount))
	}

	for _, key := range statementIndex.Keys() {
		if !ledgerIndex.Has(key) {
			result.MissingInLedger = append(result.MissingInLedger, missingEntry(key, statementIndex.First(key)))
		}
	}

	for _, tx := range ledgerIndex.Unkeyed {
		entry := missingEntry("", tx)
		result.Unkeyed = append(result.Unkeyed, entry)
		result.MissingAmount = result.MissingAmount.Add(entry.Amount)
	}
	result.Duplicates = append(ledgerIndex.Duplicates(), statementIndex.Duplicates()...)

	result.Counts.Matched = len(result.Matched)
	result.Counts.MissingInStatement = len(result.MissingInStatement)
	result.Counts.MissingInLedger = len(result.MissingInLedger)
	result.Counts.Unkeyed = len(result.Unkeyed)

	result.Totals = Totals{
		Card:       totalCard.Round(2),
		Statement:  totalStatement.Round(2),
		Adjusted:   totalAdjusted.Round(2),
		Difference: totalCard.Sub(totalAdjusted).Round(2),
	}

	return result
}

func compare(key string, card, stmt *models.Transaction, direction models.Direction, fee FeeRule) MatchedPair {
	cardAmount := card.Amount.Abs()
	raw := stmt.Amount.Abs()
	adjusted := fee.Adjust(direction, raw)
	diff := cardAmount.Sub(adjusted).Round(2)

	return MatchedPair{
		Key:             key,
		Reference:       reference(card),
		Date:            card.Date,
		CardAmount:      cardAmount,
		StatementAmount: raw,
		AdjustedAmount:  adjusted.Round(2),
		Difference:      diff,
		Status:          StatusFor(diff),
		FeeApplied:      fee.Applies(direction, raw),
		LedgerLine:      card.Line,
		StatementLine:   stmt.Line,
	}
}

func missingEntry(key string, tx *models.Transaction) MissingEntry {
	description := tx.Description
	if tx.Source == models.SourceStatement && tx.Type != "" {
		description = tx.Type
	}
	return MissingEntry{
		Key:         key,
		Reference:   reference(tx),
		Date:        tx.Date,
		Time:        tx.Time,
		Amount:      tx.Amount.Abs(),
		Description: description,
		Line:        tx.Line,
	}
}

// reference is the auth code or counterparty, "-" when there is none
func reference(tx *models.Transaction) string {
	if ref := tx.Reference(); ref != "" {
		return ref
	}
	return "-"
}
