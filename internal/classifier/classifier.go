// Package classifier splits parsed ledger and statement rows into incoming
// and outgoing transactions.
//
// The cutoff date is applied first and once; rows dated before it are
// dropped whatever their label. A row lands in at most one direction.
// Amounts of classified transactions are positive magnitudes.
package classifier

import (
	"time"

	"card-reconciliation/internal/models"
	"card-reconciliation/pkg/logger"
)

// Options select which rows qualify. Only outgoing classification is
// configurable.
type Options struct {
	// Cutoff is the inclusive lower bound on the calendar date. The zero
	// value keeps every row.
	Cutoff time.Time

	IncludeOutgoingTransfer  bool
	IncludeDisbursementOrder bool
	IncludeCashout           bool
}

// DefaultOptions returns options with every outgoing kind enabled
func DefaultOptions(cutoff time.Time) Options {
	return Options{
		Cutoff:                   cutoff,
		IncludeOutgoingTransfer:  true,
		IncludeDisbursementOrder: true,
		IncludeCashout:           true,
	}
}

// Split is the outcome of classifying one side
type Split struct {
	In  []models.Transaction
	Out []models.Transaction

	BeforeCutoff int
	NoAmount     int
	// NoAuthCode counts statement deposits dropped for lacking an auth code
	NoAuthCode int
	Ignored    int
}

func (o Options) keeps(date time.Time) bool {
	if o.Cutoff.IsZero() {
		return true
	}
	return !models.DateOnly(date).Before(models.DateOnly(o.Cutoff))
}

// ClassifyLedger classifies card journal rows.
//
// IN: label contains "transfert du" and the amount is positive.
// OUT: label contains "transfert vers" or "mandat", for whichever of the two
// is enabled; the counterparty is the account after "transfert vers".
func ClassifyLedger(rows []models.RawRow, opts Options) Split {
	var split Split
	log := logger.WithComponent("classifier")

	for _, row := range rows {
		date, _ := row.Date(models.LedgerDate)
		if !opts.keeps(date) {
			split.BeforeCutoff++
			continue
		}

		amount, ok := row.Amount(models.LedgerAmount)
		if !ok {
			split.NoAmount++
			continue
		}

		label := row.Text(models.LedgerLabel)
		tx := models.Transaction{
			Source:      models.SourceLedger,
			Line:        row.Line,
			Date:        date,
			Time:        row.Text(models.LedgerTime),
			Amount:      amount.Abs(),
			AuthCode:    row.Text(models.LedgerAuth),
			Description: label,
		}

		switch {
		case IsIncomingTransfer(label) && amount.IsPositive():
			tx.Direction = models.DirectionIn
			split.In = append(split.In, tx)
		case opts.IncludeOutgoingTransfer && IsOutgoingTransfer(label),
			opts.IncludeDisbursementOrder && IsDisbursementOrder(label):
			tx.Direction = models.DirectionOut
			tx.AuthCode = ""
			tx.Counterparty = ExtractCounterparty(label)
			split.Out = append(split.Out, tx)
		default:
			split.Ignored++
		}
	}

	log.WithFields(logger.Fields{
		"in":            len(split.In),
		"out":           len(split.Out),
		"before_cutoff": split.BeforeCutoff,
		"ignored":       split.Ignored,
	}).Debug("Classified ledger rows")

	return split
}

// ClassifyStatement classifies settlement statement rows.
//
// IN: type DEPOSIT with a non-empty auth code. A row without a type column
// is taken as a deposit candidate.
// OUT: type WITHDRAWAL (enabled with outgoing transfers) or CASHOUT; the
// counterparty is the destination account.
func ClassifyStatement(rows []models.RawRow, opts Options) Split {
	var split Split
	log := logger.WithComponent("classifier")

	for _, row := range rows {
		date, _ := row.Date(models.StatementDate)
		if !opts.keeps(date) {
			split.BeforeCutoff++
			continue
		}

		amount, ok := row.Amount(models.StatementAmount)
		if !ok {
			split.NoAmount++
			continue
		}

		_, typed := row.Get(models.StatementType)
		kind := row.Text(models.StatementType)
		tx := models.Transaction{
			Source:      models.SourceStatement,
			Line:        row.Line,
			Date:        date,
			Time:        row.Text(models.StatementTime),
			Amount:      amount.Abs(),
			Type:        kind,
			Description: kind,
		}

		switch {
		case !typed || IsDeposit(kind):
			auth := row.Text(models.StatementAuth)
			if auth == "" {
				split.NoAuthCode++
				continue
			}
			tx.Direction = models.DirectionIn
			tx.AuthCode = auth
			split.In = append(split.In, tx)
		case opts.IncludeOutgoingTransfer && IsWithdrawal(kind),
			opts.IncludeCashout && IsCashout(kind):
			tx.Direction = models.DirectionOut
			tx.Counterparty = row.Text(models.StatementToAccount)
			split.Out = append(split.Out, tx)
		default:
			split.Ignored++
		}
	}

	log.WithFields(logger.Fields{
		"in":            len(split.In),
		"out":           len(split.Out),
		"before_cutoff": split.BeforeCutoff,
		"no_auth_code":  split.NoAuthCode,
		"ignored":       split.Ignored,
	}).Debug("Classified statement rows")

	return split
}
