package classifier

import (
	"regexp"
	"strings"
)

// Ledger label markers. All are matched as case-insensitive substrings.
const (
	IncomingTransferMarker  = "transfert du"
	OutgoingTransferMarker  = "transfert vers"
	DisbursementOrderMarker = "mandat"
)

// Statement type markers. The statement parser upper-cases the type column,
// so these are compared for equality.
const (
	DepositType    = "DEPOSIT"
	WithdrawalType = "WITHDRAWAL"
	CashoutType    = "CASHOUT"
)

var counterpartyPattern = regexp.MustCompile(`(?i)transfert vers\s+(\d+)`)

func containsFold(label, marker string) bool {
	return strings.Contains(strings.ToLower(label), marker)
}

// IsIncomingTransfer reports a ledger label containing "transfert du"
func IsIncomingTransfer(label string) bool {
	return containsFold(label, IncomingTransferMarker)
}

// IsOutgoingTransfer reports a ledger label containing "transfert vers"
func IsOutgoingTransfer(label string) bool {
	return containsFold(label, OutgoingTransferMarker)
}

// IsDisbursementOrder reports a ledger label containing "mandat"
func IsDisbursementOrder(label string) bool {
	return containsFold(label, DisbursementOrderMarker)
}

// IsDeposit reports the statement DEPOSIT type
func IsDeposit(kind string) bool {
	return kind == DepositType
}

// IsWithdrawal reports the statement WITHDRAWAL type
func IsWithdrawal(kind string) bool {
	return kind == WithdrawalType
}

// IsCashout reports the statement CASHOUT type
func IsCashout(kind string) bool {
	return kind == CashoutType
}

// ExtractCounterparty returns the account number following "transfert vers"
// in a ledger label, or "" for labels without one (disbursement orders).
//
//	"Transfert vers 29526566 230314" -> "29526566"
func ExtractCounterparty(label string) string {
	m := counterpartyPattern.FindStringSubmatch(label)
	if m == nil {
		return ""
	}
	return m[1]
}
