package importer

import (
	"fmt"
	"io"
	"strings"

	"github.com/tally-dev/tally/internal/category"
	"github.com/tally-dev/tally/internal/id"
	"github.com/tally-dev/tally/internal/model"
)

// Header synonyms per column role, most specific first within each role.
var (
	dateHeaders        = []string{"date", "transaction date", "posting date", "value date", "datum"}
	descriptionHeaders = []string{"description", "memo", "details", "transaction details", "payee", "beschreibung", "verwendungszweck"}
	amountHeaders      = []string{"amount", "debit", "credit", "transaction amount", "value", "betrag", "umsatz"}
	categoryHeaders    = []string{"category", "type", "transaction type", "kategorie"}
)

const (
	defaultColDate        = 0
	defaultColDescription = 1
	defaultColAmount      = 2
	noColumn              = -1

	fallbackDescription = "Transaction"
)

// columns maps column roles to field indexes. category is noColumn when the
// file carries no category column.
type columns struct {
	date        int
	description int
	amount      int
	category    int
}

// minFields is the number of fields a row needs to cover every required column.
func (c columns) minFields() int {
	return max(c.date, c.description, c.amount) + 1
}

// CSVParser parses bank CSV exports with loosely named headers.
type CSVParser struct {
	// Categories guesses a category when the file has none. Nil uses category.Default().
	Categories *category.Table
	// NewID assigns placeholder IDs. Nil uses id.NewTransactionID.
	NewID func() string
	// DateOrder resolves ambiguous dates. The zero value is DayFirst.
	DateOrder DateOrder
}

// Format returns the parser name.
func (p *CSVParser) Format() string { return "csv" }

// Parse reads r fully and parses it as CSV text.
func (p *CSVParser) Parse(r io.Reader, userTag string) ([]model.Transaction, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	return p.ParseText(string(data), userTag), nil
}

// ParseText converts CSV content into transactions. Rows with too few fields,
// an unreadable date, or a zero/unreadable amount are dropped; the rest keep
// their input order.
func (p *CSVParser) ParseText(content, userTag string) []model.Transaction {
	lines := splitLines(content)
	if len(lines) < 2 {
		return nil
	}

	header := strings.TrimPrefix(lines[0], "\ufeff")
	sep := detectSeparator(header)
	cols := detectColumns(splitQuoted(header, sep))
	need := cols.minFields()

	categories := p.Categories
	if categories == nil {
		categories = category.Default()
	}
	newID := p.NewID
	if newID == nil {
		newID = id.NewTransactionID
	}

	var txns []model.Transaction
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := splitQuoted(line, sep)
		if len(fields) < need {
			continue
		}

		date, ok := p.DateOrder.Parse(cleanField(fields[cols.date]))
		if !ok {
			continue
		}
		amount := ParseAmount(cleanField(fields[cols.amount]))
		if amount.IsZero() {
			continue
		}

		desc := cleanField(fields[cols.description])
		if desc == "" {
			desc = fallbackDescription
		}

		cat := ""
		if cols.category != noColumn && cols.category < len(fields) {
			cat = cleanField(fields[cols.category])
		}
		if cat == "" {
			cat = categories.Categorize(desc)
		}

		txns = append(txns, model.Transaction{
			ID:          newID(),
			Date:        date,
			Description: desc,
			Amount:      amount,
			Category:    cat,
			UserName:    userTag,
		})
	}
	return txns
}

// ParseCSV parses CSV content with the default category table.
func ParseCSV(content, userTag string) []model.Transaction {
	return (&CSVParser{}).ParseText(content, userTag)
}

// detectColumns assigns each role the first header matching one of its
// synonyms. Exact matches win over substring matches, and a column claimed by
// an earlier role is not reused.
func detectColumns(header []string) columns {
	lower := make([]string, len(header))
	for i, h := range header {
		lower[i] = strings.ToLower(cleanField(h))
	}

	claimed := make(map[int]bool)
	find := func(synonyms []string, fallback int) int {
		for _, exact := range []bool{true, false} {
			for _, syn := range synonyms {
				for i, h := range lower {
					if claimed[i] {
						continue
					}
					if (exact && h == syn) || (!exact && strings.Contains(h, syn)) {
						claimed[i] = true
						return i
					}
				}
			}
		}
		return fallback
	}

	return columns{
		date:        find(dateHeaders, defaultColDate),
		description: find(descriptionHeaders, defaultColDescription),
		amount:      find(amountHeaders, defaultColAmount),
		category:    find(categoryHeaders, noColumn),
	}
}

// detectSeparator returns ';' for semicolon-delimited exports and ',' otherwise.
func detectSeparator(header string) rune {
	if !strings.Contains(header, ",") && strings.Contains(header, ";") {
		return ';'
	}
	return ','
}

// splitQuoted splits line on sep, ignoring separators inside double quotes.
// Quote characters toggle the quoted state and are not kept.
func splitQuoted(line string, sep rune) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == sep && !inQuotes:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	fields = append(fields, cur.String())
	return fields
}

func cleanField(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"`))
}

func splitLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimRight(content, "\n")
	if strings.TrimSpace(content) == "" {
		return nil
	}
	return strings.Split(content, "\n")
}
