package reconciler

import (
	"testing"
)

func TestClassifyFileName(t *testing.T) {
	tests := []struct {
		path     string
		wantKind FileKind
		wantID   string
		wantOK   bool
	}{
		{"statement-d17-178-2026.csv", KindStatement, "178", true},
		{"/data/in/Statement_D17-0075-jan.csv", KindStatement, "75", true},
		{"statement-without-id.csv", "", "", false},
		{"178-D17-31-01-2026.csv", KindLedger, "178", true},
		{"075_journal.csv", KindLedger, "75", true},
		{"000-d17.csv", KindLedger, "0", true},
		{"journal.csv", "", "", false},
		{"README.md", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			kind, id, ok := ClassifyFileName(tt.path)
			if kind != tt.wantKind || id != tt.wantID || ok != tt.wantOK {
				t.Errorf("ClassifyFileName(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.path, kind, id, ok, tt.wantKind, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestPairFiles(t *testing.T) {
	files := []string{
		"in/statement-d17-1000-01.csv",
		"in/178-D17-31-01-2026.csv",
		"in/statement-d17-178-01.csv",
		"in/1000-D17-31-01-2026.csv",
		"in/0178-D17-copy.csv",
		"in/99-D17-31-01-2026.csv",
		"in/statement-d17-42-01.csv",
		"in/notes.txt",
	}

	pairing := PairFiles(files)

	if len(pairing.Instruments) != 2 {
		t.Fatalf("Instruments = %+v, want 2", pairing.Instruments)
	}
	// numeric order, not lexicographic
	if pairing.Instruments[0].ID != "178" || pairing.Instruments[1].ID != "1000" {
		t.Errorf("order = %s, %s; want 178, 1000", pairing.Instruments[0].ID, pairing.Instruments[1].ID)
	}
	// 0178-D17-copy.csv sorts first by name and wins
	if pairing.Instruments[0].LedgerFile != "in/0178-D17-copy.csv" {
		t.Errorf("LedgerFile = %s, want in/0178-D17-copy.csv", pairing.Instruments[0].LedgerFile)
	}
	if len(pairing.Warnings) != 1 {
		t.Errorf("Warnings = %v, want one duplicate warning", pairing.Warnings)
	}

	if len(pairing.Unpaired) != 2 {
		t.Fatalf("Unpaired = %+v, want 2", pairing.Unpaired)
	}
	if pairing.Unpaired[0].Instrument != "42" || pairing.Unpaired[0].HaveKind != string(KindStatement) {
		t.Errorf("Unpaired[0] = %+v", pairing.Unpaired[0])
	}
	if pairing.Unpaired[1].Instrument != "99" || pairing.Unpaired[1].HaveKind != string(KindLedger) {
		t.Errorf("Unpaired[1] = %+v", pairing.Unpaired[1])
	}

	if len(pairing.Ignored) != 1 || pairing.Ignored[0] != "in/notes.txt" {
		t.Errorf("Ignored = %v", pairing.Ignored)
	}
}

func TestPairFiles_Empty(t *testing.T) {
	pairing := PairFiles(nil)
	if len(pairing.Instruments) != 0 || len(pairing.Unpaired) != 0 || len(pairing.Ignored) != 0 {
		t.Errorf("PairFiles(nil) = %+v, want empty", pairing)
	}
}

func TestLessID(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"9", "10", true},
		{"10", "9", false},
		{"178", "1000", true},
		{"178", "179", true},
		{"178", "178", false},
	}

	for _, tt := range tests {
		if got := lessID(tt.a, tt.b); got != tt.want {
			t.Errorf("lessID(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
