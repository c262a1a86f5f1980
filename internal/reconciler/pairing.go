package reconciler

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"card-reconciliation/internal/models"
	"card-reconciliation/pkg/errors"
)

// FileKind tells which side a file holds, judged by its name
type FileKind string

const (
	KindLedger    FileKind = "ledger"
	KindStatement FileKind = "statement"
)

const statementNameMarker = "statement"

var (
	statementNamePattern = regexp.MustCompile(`(?i)d17-(\d+)-`)
	strictLedgerPattern  = regexp.MustCompile(`(?i)^(\d+)-d17-`)
	leadingDigitsPattern = regexp.MustCompile(`^(\d+)`)
)

// ClassifyFileName extracts the file kind and canonical instrument id from
// a file name:
//
//	statement-d17-178-2026.csv -> statement, 178
//	178-D17-31-01-2026.csv     -> ledger, 178
//	075_journal.csv            -> ledger, 75
func ClassifyFileName(path string) (FileKind, string, bool) {
	name := filepath.Base(path)

	if strings.Contains(strings.ToLower(name), statementNameMarker) {
		if m := statementNamePattern.FindStringSubmatch(name); m != nil {
			return KindStatement, models.CanonicalID(m[1]), true
		}
		return "", "", false
	}

	if m := strictLedgerPattern.FindStringSubmatch(name); m != nil {
		return KindLedger, models.CanonicalID(m[1]), true
	}
	if m := leadingDigitsPattern.FindStringSubmatch(name); m != nil {
		return KindLedger, models.CanonicalID(m[1]), true
	}
	return "", "", false
}

// Instrument is one card with both of its files
type Instrument struct {
	ID            string `json:"id"`
	LedgerFile    string `json:"ledger_file"`
	StatementFile string `json:"statement_file"`
}

// Pairing is the outcome of matching ledger files to statement files
type Pairing struct {
	Instruments []Instrument             `json:"instruments"`
	Unpaired    []*errors.NoPairingError `json:"unpaired,omitempty"`
	Ignored     []string                 `json:"ignored,omitempty"`
	Warnings    []string                 `json:"warnings,omitempty"`
}

// PairFiles groups files by instrument id. Files are considered in name
// order; when two files of one kind claim an instrument the first wins.
func PairFiles(paths []string) *Pairing {
	sorted := append([]string(nil), paths...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return filepath.Base(sorted[i]) < filepath.Base(sorted[j])
	})

	ledgers := make(map[string]string)
	statements := make(map[string]string)
	pairing := &Pairing{}

	for _, path := range sorted {
		kind, id, ok := ClassifyFileName(path)
		if !ok {
			pairing.Ignored = append(pairing.Ignored, path)
			continue
		}

		files := ledgers
		if kind == KindStatement {
			files = statements
		}
		if first, dup := files[id]; dup {
			pairing.Warnings = append(pairing.Warnings,
				fmt.Sprintf("instrument %s: %s file %s ignored, %s already used", id, kind, filepath.Base(path), filepath.Base(first)))
			continue
		}
		files[id] = path
	}

	for id, ledger := range ledgers {
		statement, ok := statements[id]
		if !ok {
			pairing.Unpaired = append(pairing.Unpaired, &errors.NoPairingError{
				Instrument: id, HaveKind: string(KindLedger), File: filepath.Base(ledger),
			})
			continue
		}
		pairing.Instruments = append(pairing.Instruments, Instrument{ID: id, LedgerFile: ledger, StatementFile: statement})
	}
	for id, statement := range statements {
		if _, ok := ledgers[id]; !ok {
			pairing.Unpaired = append(pairing.Unpaired, &errors.NoPairingError{
				Instrument: id, HaveKind: string(KindStatement), File: filepath.Base(statement),
			})
		}
	}

	sort.Slice(pairing.Instruments, func(i, j int) bool {
		return lessID(pairing.Instruments[i].ID, pairing.Instruments[j].ID)
	})
	sort.Slice(pairing.Unpaired, func(i, j int) bool {
		return lessID(pairing.Unpaired[i].Instrument, pairing.Unpaired[j].Instrument)
	})

	return pairing
}

// lessID orders canonical numeric ids numerically
func lessID(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
