package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ExactDateLayout is tried before the lenient day-first layouts
const ExactDateLayout = "02/01/2006"

// lenientDateLayouts are day-first; ISO forms are unambiguous and accepted too
var lenientDateLayouts = []string{
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006",
	"2-1-2006 15:04:05",
	"2-1-2006",
	"2.1.2006",
	"2/1/06",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	time.RFC3339,
}

// ParseDayFirstDate parses a date written day-first. There is no default:
// a value no layout accepts is an error.
func ParseDayFirstDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	if t, err := time.Parse(ExactDateLayout, s); err == nil {
		return t, nil
	}

	for _, layout := range lenientDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse day-first date '%s'", s)
}

// ParseAmount parses a decimal amount. Comma is read as the decimal
// separator; spaces (including non-breaking ones) are dropped.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	s = strings.NewReplacer(",", ".", " ", "", "\u00a0", "", "\u202f", "").Replace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	return d, nil
}

// IsMissingMarker reports values that upstream spreadsheet tooling writes
// for an absent number.
func IsMissingMarker(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nan", "none", "null":
		return true
	}
	return false
}

// NormalizeAuthCode strips the ".0" left behind when an auth code went
// through a float column. A missing value becomes "".
func NormalizeAuthCode(s string) string {
	if IsMissingMarker(s) {
		return ""
	}
	return strings.TrimSuffix(strings.TrimSpace(s), ".0")
}

// NormalizeAccount renders a destination account as an integer string
// ("29526566.0" -> "29526566"). Non-numeric values are kept as written.
func NormalizeAccount(s string) string {
	if IsMissingMarker(s) {
		return ""
	}
	s = strings.TrimSpace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	return d.Truncate(0).String()
}

// CanonicalID drops leading zeros so "075" and "75" name the same instrument
func CanonicalID(digits string) string {
	trimmed := strings.TrimLeft(digits, "0")
	if trimmed == "" && digits != "" {
		return "0"
	}
	return trimmed
}
