package importer

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	currencyStripper = strings.NewReplacer("€", "", "$", "", "£", "", "¥", "", " ", "", "\u00a0", "", "\t", "")
	decimalComma     = regexp.MustCompile(`,\d{1,2}$`)
)

// ParseAmount converts a statement amount such as "1,250.50", "1.250,50",
// "-€12,30" or "(125.50)" into a decimal. Anything that is not a number
// yields zero, which callers treat as "drop this row".
func ParseAmount(s string) decimal.Decimal {
	s = currencyStripper.Replace(strings.TrimSpace(s))
	if s == "" {
		return decimal.Zero
	}

	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + strings.Trim(s, "()")
	}
	// Some banks print debits with a trailing sign: "125.50-".
	if strings.HasSuffix(s, "-") && !strings.HasPrefix(s, "-") {
		s = "-" + strings.TrimSuffix(s, "-")
	}
	s = strings.TrimPrefix(s, "+")

	s = normalizeSeparators(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// normalizeSeparators rewrites s so that '.' is the only decimal separator and
// no thousands separators remain.
func normalizeSeparators(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		// Whichever separator comes last is the decimal point.
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if decimalComma.MatchString(s) {
			whole := strings.ReplaceAll(s[:lastComma], ",", "")
			return whole + "." + s[lastComma+1:]
		}
		return strings.ReplaceAll(s, ",", "")
	default:
		return s
	}
}
