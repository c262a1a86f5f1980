package parsers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"card-reconciliation/internal/models"
	"card-reconciliation/pkg/errors"
)

// Helper function to create a temporary CSV file with a given name
func createTempCSVFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	return path
}

func TestDefaultConfigs(t *testing.T) {
	ledger := DefaultLedgerConfig()
	if ledger.Parse.Delimiter != ';' || ledger.Parse.FallbackDelimiter != ',' {
		t.Errorf("ledger delimiters = %q/%q, want ';'/','", ledger.Parse.Delimiter, ledger.Parse.FallbackDelimiter)
	}
	if err := ledger.Validate(); err != nil {
		t.Errorf("default ledger config invalid: %v", err)
	}

	statement := DefaultStatementConfig()
	if statement.Parse.Delimiter != ',' {
		t.Errorf("statement delimiter = %q, want ','", statement.Parse.Delimiter)
	}
	if err := statement.Validate(); err != nil {
		t.Errorf("default statement config invalid: %v", err)
	}
}

func TestLedgerConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *LedgerConfig)
		wantError bool
	}{
		{"Valid config", func(c *LedgerConfig) {}, false},
		{"Empty date column", func(c *LedgerConfig) { c.DateColumn = "" }, true},
		{"Empty amount column", func(c *LedgerConfig) { c.AmountColumn = " " }, true},
		{"Same delimiters", func(c *LedgerConfig) { c.Parse.FallbackDelimiter = ';' }, true},
		{"No delimiter", func(c *LedgerConfig) { c.Parse.Delimiter = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultLedgerConfig()
			tt.mutate(config)
			err := config.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestExtractAuthCode(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"Transfert du 0661234567 AUT 654321", "654321"},
		{"654321", "654321"},
		{"Transfert du client 1234567", ""},
		{"Transfert du client 12345", ""},
		{"Transfert du client 654321 ref", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			if got := ExtractAuthCode(tt.label); got != tt.want {
				t.Errorf("ExtractAuthCode(%q) = %q, want %q", tt.label, got, tt.want)
			}
		})
	}
}

func TestLedgerParser_Parse(t *testing.T) {
	content := " DATE ; HEURE ;LIBELLE;MONTANT\n" +
		"31/01/2026;10:15;Transfert du 0661 AUT 654321;100,50\n" +
		"\n" +
		"01/02/2026;11:00;Transfert vers 29526566 loyer;-500\n"

	result, err := NewLedgerParser(nil).Parse("178-D17-31-01-2026.csv", strings.NewReader(content))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if result.Source != models.SourceLedger {
		t.Errorf("Source = %s, want LEDGER", result.Source)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(result.Rows))
	}
	if result.Stats.Delimiter != ";" {
		t.Errorf("Delimiter = %q, want ';'", result.Stats.Delimiter)
	}
	if len(result.Stats.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", result.Stats.Warnings)
	}

	first := result.Rows[0]
	date, ok := first.Date(models.LedgerDate)
	if !ok || !date.Equal(time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("DATE = %v (%v), want 2026-01-31", date, ok)
	}
	amount, ok := first.Amount(models.LedgerAmount)
	if !ok || amount.StringFixed(2) != "100.50" {
		t.Errorf("MONTANT = %s (%v), want 100.50", amount, ok)
	}
	if got := first.Text(models.LedgerAuth); got != "654321" {
		t.Errorf("Auth = %q, want 654321", got)
	}
	if got := first.Text(models.LedgerTime); got != "10:15" {
		t.Errorf("HEURE = %q, want 10:15", got)
	}

	second := result.Rows[1]
	if got := second.Text(models.LedgerAuth); got != "" {
		t.Errorf("Auth = %q, want empty", got)
	}
	if second.Line != 4 {
		t.Errorf("Line = %d, want 4", second.Line)
	}
}

func TestLedgerParser_DelimiterFallback(t *testing.T) {
	content := "DATE,LIBELLE,MONTANT\n31/01/2026,Transfert du AUT 111111,40.00\n"

	result, err := NewLedgerParser(nil).Parse("075-D17.csv", strings.NewReader(content))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if result.Stats.Delimiter != "," {
		t.Errorf("Delimiter = %q, want ','", result.Stats.Delimiter)
	}
	if !result.HasColumn("libelle") {
		t.Error("Expected LIBELLE column to be found case-insensitively")
	}
	if got := result.Rows[0].Text(models.LedgerAuth); got != "111111" {
		t.Errorf("Auth = %q, want 111111", got)
	}
}

func TestLedgerParser_SchemaGaps(t *testing.T) {
	content := "DATE;MONTANT\n31/01/2026;12,00\n"

	result, err := NewLedgerParser(nil).Parse("178-D17.csv", strings.NewReader(content))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	columns := map[string]bool{}
	for _, w := range result.Stats.Warnings {
		columns[w.Column] = true
		if w.File != "178-D17.csv" {
			t.Errorf("warning file = %q", w.File)
		}
	}
	if !columns[models.LedgerLabel] || !columns[models.LedgerTime] {
		t.Errorf("Expected LIBELLE and HEURE warnings, got %v", result.Stats.Warnings)
	}
	if _, ok := result.Rows[0].Get(models.LedgerAuth); ok {
		t.Error("Auth should be absent when LIBELLE is missing")
	}
}

func TestLedgerParser_Errors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantCode errors.ErrorCode
	}{
		{"Empty source", "", errors.CodeInvalidFormat},
		{"Missing amount column", "DATE;LIBELLE\n31/01/2026;x\n", errors.CodeMissingColumn},
		{"Bad date", "DATE;MONTANT\n2026-31-01x;1\n", errors.CodeInvalidDate},
		{"Bad amount", "DATE;MONTANT\n31/01/2026;abc\n", errors.CodeInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLedgerParser(nil).Parse("bad-ledger.csv", strings.NewReader(tt.content))
			if err == nil {
				t.Fatal("Expected an error")
			}
			rerr, ok := errors.AsReconcilerError(err)
			if !ok {
				t.Fatalf("Expected ReconcilerError, got %T", err)
			}
			if rerr.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", rerr.Code, tt.wantCode)
			}
			if !strings.Contains(err.Error(), "bad-ledger.csv") {
				t.Errorf("error should name the file: %v", err)
			}
		})
	}
}

func TestLedgerParser_EmptyAmountCell(t *testing.T) {
	content := "DATE;LIBELLE;MONTANT\n31/01/2026;Transfert du AUT 123456;\n"

	result, err := NewLedgerParser(nil).Parse("178-D17.csv", strings.NewReader(content))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	cell, ok := result.Rows[0].Get(models.LedgerAmount)
	if !ok || !cell.IsEmpty() {
		t.Errorf("Expected an empty MONTANT cell, got %+v", cell)
	}
}

func TestLedgerParser_Windows1252(t *testing.T) {
	// "Crédit" with é as the single byte 0xE9
	content := []byte("DATE;LIBELLE;MONTANT\n31/01/2026;Cr\xe9dit;5,00\n")

	result, err := NewLedgerParser(nil).Parse("178-D17.csv", strings.NewReader(string(content)))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := result.Rows[0].Text(models.LedgerLabel); got != "Crédit" {
		t.Errorf("LIBELLE = %q, want Crédit", got)
	}
}

func TestLedgerParser_ByteOrderMark(t *testing.T) {
	content := "\ufeffDATE;MONTANT\n31/01/2026;5\n"

	result, err := NewLedgerParser(nil).Parse("178-D17.csv", strings.NewReader(content))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if _, ok := result.Rows[0].Date(models.LedgerDate); !ok {
		t.Error("Expected DATE to be read after the byte order mark")
	}
}

func TestStatementParser_Parse(t *testing.T) {
	content := "Date,Time,Type,Amount,Auth,To Account\n" +
		"31/01/2026,09:00,deposit,100.00,123456.0,\n" +
		"01/02/2026,10:00,WITHDRAWAL,-500.00,nan,29526566.0\n"

	result, err := NewStatementParser(nil).Parse("statement-d17-178-01.csv", strings.NewReader(content))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if result.Source != models.SourceStatement {
		t.Errorf("Source = %s, want STATEMENT", result.Source)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(result.Rows))
	}

	deposit := result.Rows[0]
	if got := deposit.Text(models.StatementAuth); got != "123456" {
		t.Errorf("Auth = %q, want 123456", got)
	}
	if got := deposit.Text(models.StatementType); got != "DEPOSIT" {
		t.Errorf("Type = %q, want DEPOSIT", got)
	}
	if got := deposit.Text(models.StatementToAccount); got != "" {
		t.Errorf("To Account = %q, want empty", got)
	}

	withdrawal := result.Rows[1]
	if got := withdrawal.Text(models.StatementAuth); got != "" {
		t.Errorf("Auth = %q, want empty (never \"nan\")", got)
	}
	if got := withdrawal.Text(models.StatementToAccount); got != "29526566" {
		t.Errorf("To Account = %q, want 29526566", got)
	}
	amount, _ := withdrawal.Amount(models.StatementAmount)
	if amount.StringFixed(2) != "-500.00" {
		t.Errorf("Amount = %s, want -500.00", amount)
	}
}

func TestStatementParser_MissingOptionalColumns(t *testing.T) {
	content := "Date,Amount\n31/01/2026,12.00\n"

	result, err := NewStatementParser(nil).Parse("statement-d17-178-01.csv", strings.NewReader(content))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(result.Stats.Warnings) != 4 {
		t.Errorf("Expected 4 warnings, got %d: %v", len(result.Stats.Warnings), result.Stats.Warnings)
	}
	if result.HasColumn(models.StatementType) {
		t.Error("Type column should be reported absent")
	}
}

func TestStatementParser_ParseFile(t *testing.T) {
	path := createTempCSVFile(t, "statement-d17-178-01.csv", "Date;Type;Amount\n31/01/2026;DEPOSIT;1\n")

	result, err := NewStatementParser(nil).ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if result.Stats.File != "statement-d17-178-01.csv" {
		t.Errorf("File = %q", result.Stats.File)
	}
	if result.Stats.Delimiter != ";" {
		t.Errorf("Delimiter = %q, want ';' after fallback", result.Stats.Delimiter)
	}
}

func TestParseFile_NotFound(t *testing.T) {
	_, err := NewLedgerParser(nil).ParseFile(filepath.Join(t.TempDir(), "missing.csv"))
	rerr, ok := errors.AsReconcilerError(err)
	if !ok || rerr.Code != errors.CodeFileNotFound {
		t.Errorf("Expected file_not_found, got %v", err)
	}
}

func TestParseDispatch(t *testing.T) {
	if _, err := Parse("x.csv", models.Source("OTHER"), strings.NewReader("a")); err == nil {
		t.Error("Expected an error for an unknown source")
	}
	result, err := Parse("x.csv", models.SourceStatement, strings.NewReader("Date,Amount\n31/01/2026,1\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if result.Source != models.SourceStatement {
		t.Errorf("Source = %s", result.Source)
	}
}

func BenchmarkLedgerParser_Parse(b *testing.B) {
	var sb strings.Builder
	sb.WriteString("DATE;HEURE;LIBELLE;MONTANT\n")
	for i := 0; i < 1000; i++ {
		sb.WriteString("31/01/2026;10:00;Transfert du 0661 AUT 654321;100,50\n")
	}
	content := sb.String()
	parser := NewLedgerParser(nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := parser.Parse("bench.csv", strings.NewReader(content)); err != nil {
			b.Fatal(err)
		}
	}
}
