// Package matcher derives the keys used to pair ledger and statement
// transactions and indexes transactions by key.
//
// Two key schemes exist, one per direction:
//   - IN: the auth code as written. Date and amount play no part; an amount
//     difference is a discrepancy found after pairing.
//   - OUT: "YYYY-MM-DD_<amount with 2 decimals>_<counterparty>", with the
//     MANDAT sentinel in place of a missing counterparty.
//
// The OUT key approximates an identifier. Two same-day transfers of the same
// amount to the same account share a key; the index keeps both and reports
// the key as a duplicate.
package matcher

import (
	"fmt"

	"card-reconciliation/internal/models"
)

// NoCounterpartySentinel stands in for the counterparty of disbursement
// orders and cash-outs
const NoCounterpartySentinel = "MANDAT"

const keyDateLayout = "2006-01-02"

// DeriveKey returns the match key of a classified transaction. The boolean
// is false when no key can be derived (an incoming transaction without an
// auth code).
func DeriveKey(tx *models.Transaction) (string, bool) {
	switch tx.Direction {
	case models.DirectionIn:
		if tx.AuthCode == "" {
			return "", false
		}
		return tx.AuthCode, true
	case models.DirectionOut:
		return OutgoingKey(tx), true
	default:
		return "", false
	}
}

// OutgoingKey builds the composite date/amount/counterparty key
func OutgoingKey(tx *models.Transaction) string {
	counterparty := tx.Counterparty
	if counterparty == "" {
		counterparty = NoCounterpartySentinel
	}
	return fmt.Sprintf("%s_%s_%s",
		tx.Day().Format(keyDateLayout),
		tx.Amount.Abs().StringFixed(2),
		counterparty)
}

// AssignKeys returns copies of the transactions with MatchKey set. Rows
// without a derivable key keep an empty MatchKey.
func AssignKeys(txs []models.Transaction) []models.Transaction {
	keyed := make([]models.Transaction, len(txs))
	for i := range txs {
		keyed[i] = txs[i]
		if key, ok := DeriveKey(&keyed[i]); ok {
			keyed[i].MatchKey = key
		}
	}
	return keyed
}
