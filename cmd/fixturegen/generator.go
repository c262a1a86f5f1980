package main

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"card-reconciliation/pkg/errors"

	"github.com/shopspring/decimal"
)

// Generator writes synthetic ledger and statement exports for a set of cards
type Generator struct {
	Cards       int
	Rows        int // incoming and outgoing rows per card, each
	StartDate   time.Time
	Days        int
	MissingRate float64
	DiffRate    float64
	Seed        int64
}

// Expected is what reconciling the generated files must report
type Expected struct {
	Instruments        int
	InMatched          int
	InDiscrepancies    int
	InMissingStatement int
	InMissingLedger    int
	OutMatched         int
	OutMissingLedger   int
}

// CardFiles holds the generated rows of one card
type CardFiles struct {
	Instrument string
	Ledger     [][]string
	Statement  [][]string
}

var (
	ledgerHeader    = []string{"DATE", "HEURE", "LIBELLE", "MONTANT"}
	statementHeader = []string{"Date", "Time", "Type", "Amount", "Auth", "To Account"}
	feeThreshold    = decimal.NewFromInt(40)
	feeRate         = decimal.RequireFromString("0.99")
)

// Validate checks the generator settings
func (g *Generator) Validate() error {
	switch {
	case g.Cards < 1:
		return errors.ConfigurationError(errors.CodeInvalidConfig, "cards", g.Cards, fmt.Errorf("at least one card is required"))
	case g.Rows < 0:
		return errors.ConfigurationError(errors.CodeInvalidConfig, "rows", g.Rows, fmt.Errorf("rows cannot be negative"))
	case g.Days < 1:
		return errors.ConfigurationError(errors.CodeInvalidConfig, "days", g.Days, fmt.Errorf("at least one day is required"))
	case g.MissingRate < 0 || g.MissingRate > 1 || g.DiffRate < 0 || g.DiffRate > 1:
		return errors.ConfigurationError(errors.CodeInvalidConfig, "rates", nil, fmt.Errorf("rates must be between 0 and 1"))
	}
	return nil
}

// Generate builds the rows of every card. The same seed always yields the
// same files.
func (g *Generator) Generate() ([]CardFiles, Expected) {
	rng := rand.New(rand.NewSource(g.Seed))
	expected := Expected{Instruments: g.Cards}
	cards := make([]CardFiles, 0, g.Cards)

	for c := 0; c < g.Cards; c++ {
		card := CardFiles{
			Instrument: fmt.Sprintf("%d", 100+c*7),
			Ledger:     [][]string{ledgerHeader},
			Statement:  [][]string{statementHeader},
		}

		for i := 0; i < g.Rows; i++ {
			g.incoming(rng, &card, c*g.Rows+i, &expected)
		}
		for i := 0; i < g.Rows; i++ {
			g.outgoing(rng, &card, c*g.Rows+i, &expected)
		}

		cards = append(cards, card)
	}

	return cards, expected
}

// incoming writes a deposit. Amounts above the fee threshold are whole units
// so the fee-adjusted amount has no more than two decimals.
func (g *Generator) incoming(rng *rand.Rand, card *CardFiles, seq int, expected *Expected) {
	date, clock := g.timestamp(rng)
	auth := fmt.Sprintf("%06d", 100000+seq)

	var gross decimal.Decimal
	if rng.Intn(3) == 0 {
		gross = decimal.New(int64(100+rng.Intn(3900)), -2)
	} else {
		gross = decimal.NewFromInt(int64(41 + rng.Intn(960)))
	}
	net := gross
	if gross.GreaterThan(feeThreshold) {
		net = gross.Mul(feeRate)
	}

	ledger := []string{date, clock, fmt.Sprintf("Transfert du 06%08d AUT %s", rng.Intn(1e8), auth), frenchAmount(net)}
	authCell := auth
	if rng.Intn(2) == 0 {
		authCell += ".0"
	}
	statement := []string{date, clock, "DEPOSIT", gross.StringFixed(2), authCell, ""}

	switch {
	case rng.Float64() < g.MissingRate:
		if rng.Intn(2) == 0 {
			card.Ledger = append(card.Ledger, ledger)
			expected.InMissingStatement++
		} else {
			card.Statement = append(card.Statement, statement)
			expected.InMissingLedger++
		}
		return
	case rng.Float64() < g.DiffRate:
		ledger[3] = frenchAmount(net.Add(decimal.NewFromInt(1)))
		expected.InDiscrepancies++
	}

	card.Ledger = append(card.Ledger, ledger)
	card.Statement = append(card.Statement, statement)
	expected.InMatched++
}

// outgoing writes a transfer. Each row has its own counterparty so keys
// never collide.
func (g *Generator) outgoing(rng *rand.Rand, card *CardFiles, seq int, expected *Expected) {
	date, clock := g.timestamp(rng)
	account := fmt.Sprintf("%08d", 20000000+seq)
	amount := decimal.NewFromInt(int64(10 + rng.Intn(2000)))

	ledger := []string{date, clock, fmt.Sprintf("Transfert vers %s loyer", account), "-" + frenchAmount(amount)}
	statement := []string{date, clock, "WITHDRAWAL", amount.Neg().StringFixed(2), "nan", account + ".0"}

	card.Statement = append(card.Statement, statement)
	if rng.Float64() < g.MissingRate {
		expected.OutMissingLedger++
		return
	}
	card.Ledger = append(card.Ledger, ledger)
	expected.OutMatched++
}

func (g *Generator) timestamp(rng *rand.Rand) (string, string) {
	day := g.StartDate.AddDate(0, 0, rng.Intn(g.Days))
	return day.Format("02/01/2006"), fmt.Sprintf("%02d:%02d", 7+rng.Intn(14), rng.Intn(60))
}

// Write stores every card as a ledger export and a statement in dir and
// returns the written paths
func (g *Generator) Write(dir string, cards []CardFiles) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.FileError(errors.CodeDirectoryError, dir, err)
	}

	stamp := g.StartDate.Format("02-01-2006")
	var paths []string
	for _, card := range cards {
		ledgerPath := filepath.Join(dir, fmt.Sprintf("%s-D17-%s.csv", card.Instrument, stamp))
		if err := writeCSV(ledgerPath, ';', card.Ledger); err != nil {
			return nil, err
		}
		statementPath := filepath.Join(dir, fmt.Sprintf("statement-d17-%s-%s.csv", card.Instrument, stamp))
		if err := writeCSV(statementPath, ',', card.Statement); err != nil {
			return nil, err
		}
		paths = append(paths, ledgerPath, statementPath)
	}
	return paths, nil
}

func writeCSV(path string, comma rune, records [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	writer.Comma = comma
	if err := writer.WriteAll(records); err != nil {
		return errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	return nil
}

// frenchAmount renders 1234.5 as "1234,50"
func frenchAmount(d decimal.Decimal) string {
	return strings.Replace(d.Round(2).StringFixed(2), ".", ",", 1)
}
