package models

// Ledger (card journal) column names, as they appear after trimming
const (
	LedgerDate   = "DATE"
	LedgerAmount = "MONTANT"
	LedgerLabel  = "LIBELLE"
	LedgerTime   = "HEURE"
	// LedgerAuth is derived from the label, never read from the file
	LedgerAuth = "Auth"
)

// Statement (settlement provider) column names
const (
	StatementDate      = "Date"
	StatementType      = "Type"
	StatementAmount    = "Amount"
	StatementAuth      = "Auth"
	StatementToAccount = "To Account"
	StatementTime      = "Time"
)
