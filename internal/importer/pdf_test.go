package importer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tally-dev/tally/internal/category"
)

func TestParsePDF_Statement(t *testing.T) {
	txns := ParsePDF(readFixture(t, "statement.txt"), "sam")
	require.Len(t, txns, 4)

	assert.Equal(t, "KROGER #512", txns[0].Description)
	assert.Equal(t, "-56.78", txns[0].Amount.StringFixed(2))
	assert.True(t, date(2024, 1, 13).Equal(txns[0].Date))
	assert.Equal(t, category.Groceries, txns[0].Category)
	assert.Equal(t, "sam", txns[0].UserName)

	assert.Equal(t, "CITY ELECTRIC UTILITY", txns[1].Description)
	assert.Equal(t, "-120.00", txns[1].Amount.StringFixed(2))
	assert.Equal(t, category.Bills, txns[1].Category)

	assert.Equal(t, "PAYROLL DEPOSIT ACME", txns[2].Description)
	assert.Equal(t, "2400.00", txns[2].Amount.StringFixed(2))
	assert.Equal(t, category.Other, txns[2].Category)

	assert.Equal(t, "NETFLIX.COM", txns[3].Description)
	assert.Equal(t, category.Entertainment, txns[3].Category)
	assert.True(t, date(2024, 1, 28).Equal(txns[3].Date))
}

func TestParsePDF_WrappedDescriptionIgnored(t *testing.T) {
	txns := ParsePDF("01/22/2024 AMAZON MARKETPLACE ORDER\n  114-1234567 -23.99 4,199.23\n", "")
	assert.Empty(t, txns)
}

func TestParsePDF_ZeroAmountDropped(t *testing.T) {
	txns := ParsePDF("01/20/2024 Adjustment 0.00\n01/21/2024 Pizza Hut 18.50\n", "")
	require.Len(t, txns, 1)
	assert.Equal(t, "Pizza Hut", txns[0].Description)
	assert.Equal(t, category.Dining, txns[0].Category)
}

func TestPDFTextParser_InvalidDateUsesNow(t *testing.T) {
	p := &PDFTextParser{Now: func() time.Time {
		return time.Date(2024, 3, 9, 17, 45, 0, 0, time.UTC)
	}}
	txns := p.ParseText("02/30/2024 Corner Shop 10.00\n", "")
	require.Len(t, txns, 1)
	assert.True(t, date(2024, 3, 9).Equal(txns[0].Date))
	assert.Equal(t, category.Shopping, txns[0].Category)
}

func TestPDFTextParser_MonthFirst(t *testing.T) {
	p := &PDFTextParser{DateOrder: MonthFirst}
	txns, err := p.Parse(strings.NewReader("03/04/2024 Uber trip -22.10\n"), "")
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.True(t, date(2024, 3, 4).Equal(txns[0].Date))
	assert.Equal(t, category.Transportation, txns[0].Category)
}

func TestParsePDF_NoMatches(t *testing.T) {
	assert.Empty(t, ParsePDF("", ""))
	assert.Empty(t, ParsePDF("Opening balance 1,000.00\nThank you for banking with us\n", ""))
}
