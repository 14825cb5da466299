package importer

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/tally-dev/tally/internal/category"
	"github.com/tally-dev/tally/internal/id"
	"github.com/tally-dev/tally/internal/model"
)

// pdfLine matches a single-line statement entry: date, description, amount.
// Descriptions that wrap onto a following line are not reassembled.
var pdfLine = regexp.MustCompile(`^\s*(\d{1,2}/\d{1,2}/\d{4})\s+(.+?)\s+([-+]?\$?[-+]?[\d,]*\d\.\d{2})(?:\s|$)`)

// PDFTextParser parses plain text previously extracted from a PDF statement.
type PDFTextParser struct {
	// Categories guesses each row's category. Nil uses category.Default().
	Categories *category.Table
	// NewID assigns placeholder IDs. Nil uses id.NewTransactionID.
	NewID func() string
	// DateOrder resolves ambiguous dates. The zero value is DayFirst.
	DateOrder DateOrder
	// Now supplies the date used when a matched date token is not a real
	// calendar date. Nil uses time.Now.
	Now func() time.Time
}

// Format returns the parser name.
func (p *PDFTextParser) Format() string { return "pdf" }

// Parse reads r fully and parses it as statement text.
func (p *PDFTextParser) Parse(r io.Reader, userTag string) ([]model.Transaction, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading statement text: %w", err)
	}
	return p.ParseText(string(data), userTag), nil
}

// ParseText extracts one transaction per line shaped like
// "01/15/2024 GROCERY OUTLET 45.67". Other lines are ignored.
func (p *PDFTextParser) ParseText(content, userTag string) []model.Transaction {
	categories := p.Categories
	if categories == nil {
		categories = category.Default()
	}
	newID := p.NewID
	if newID == nil {
		newID = id.NewTransactionID
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}

	var txns []model.Transaction
	for _, line := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		m := pdfLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		desc := strings.TrimSpace(m[2])
		if desc == "" {
			continue
		}

		amount := ParseAmount(strings.NewReplacer("$", "", ",", "").Replace(m[3]))
		if amount.IsZero() {
			continue
		}

		date, ok := p.DateOrder.Parse(m[1])
		if !ok {
			date = model.DateOnly(now())
		}

		txns = append(txns, model.Transaction{
			ID:          newID(),
			Date:        date,
			Description: desc,
			Amount:      amount,
			Category:    categories.Categorize(desc),
			UserName:    userTag,
		})
	}
	return txns
}

// ParsePDF parses PDF-extracted text with the default category table.
func ParsePDF(content, userTag string) []model.Transaction {
	return (&PDFTextParser{}).ParseText(content, userTag)
}
