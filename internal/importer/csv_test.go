package importer

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tally-dev/tally/internal/category"
)

func readFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("../../testdata/" + name)
	require.NoError(t, err)
	return string(data)
}

func TestParseCSV_Statement(t *testing.T) {
	txns := ParseCSV(readFixture(t, "statement.csv"), "alex")
	require.Len(t, txns, 6)

	assert.Equal(t, "Walmart Supercenter", txns[0].Description)
	assert.Equal(t, "-45.67", txns[0].Amount.StringFixed(2))
	assert.Equal(t, category.Groceries, txns[0].Category)
	assert.True(t, date(2024, 1, 15).Equal(txns[0].Date))
	assert.Equal(t, "alex", txns[0].UserName)
	assert.True(t, strings.HasPrefix(txns[0].ID, "txn_"))

	// Quoted comma stays in the description; European decimal comma.
	assert.Equal(t, "Starbucks, Main St", txns[1].Description)
	assert.Equal(t, "-4.50", txns[1].Amount.StringFixed(2))
	assert.Equal(t, category.Dining, txns[1].Category)

	// Parenthesized negative.
	assert.Equal(t, "-38.20", txns[2].Amount.StringFixed(2))
	assert.Equal(t, category.Transportation, txns[2].Category)

	// Thousands separator.
	assert.Equal(t, "2500.00", txns[3].Amount.StringFixed(2))
	assert.Equal(t, category.Other, txns[3].Category)

	// Blank description falls back.
	assert.Equal(t, "Transaction", txns[4].Description)

	assert.Equal(t, "Netflix.com", txns[5].Description)
	assert.Equal(t, "15.99", txns[5].Amount.StringFixed(2))
	assert.Equal(t, category.Entertainment, txns[5].Category)
}

func TestParseCSV_EmptyInput(t *testing.T) {
	assert.Empty(t, ParseCSV("", ""))
	assert.Empty(t, ParseCSV("Date,Description,Amount", ""))
	assert.Empty(t, ParseCSV("Date,Description,Amount\n", ""))
	assert.Empty(t, ParseCSV("Date,Description,Amount\n\n\n", ""))
}

func TestParseCSV_ZeroAmountExcluded(t *testing.T) {
	csv := "Date,Description,Amount\n2024-01-15,Coffee,-3.00\n2024-01-16,,\n2024-01-17,Gas Station,\n2024-01-18,Refund,0\n"
	txns := ParseCSV(csv, "")
	require.Len(t, txns, 1)
	assert.Equal(t, "Coffee", txns[0].Description)
	for _, txn := range txns {
		assert.False(t, txn.Amount.IsZero())
	}
}

func TestParseCSV_MalformedLineResilience(t *testing.T) {
	csv := "Date,Description,Amount\n15/01/2024,Groceries,-20.00\nthis line is garbage\n"
	txns := ParseCSV(csv, "")
	require.Len(t, txns, 1)
	assert.Equal(t, "-20.00", txns[0].Amount.StringFixed(2))
}

func TestParseCSV_ExplicitCategoryWins(t *testing.T) {
	csv := "Date,Description,Amount,Category\n15/01/2024,Walmart groceries,-20.00,Gifts\n16/01/2024,Walmart groceries,-21.00,\n"
	txns := ParseCSV(csv, "")
	require.Len(t, txns, 2)
	assert.Equal(t, "Gifts", txns[0].Category)
	assert.Equal(t, category.Groceries, txns[1].Category)
}

func TestParseCSV_Idempotent(t *testing.T) {
	content := readFixture(t, "statement.csv")
	a := ParseCSV(content, "")
	b := ParseCSV(content, "")
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.True(t, a[i].Date.Equal(b[i].Date))
		assert.True(t, a[i].Amount.Equal(b[i].Amount))
		assert.Equal(t, a[i].Description, b[i].Description)
		assert.Equal(t, a[i].Category, b[i].Category)
		assert.NotEqual(t, a[i].ID, b[i].ID)
	}
}

func TestParseCSV_HeaderDetection(t *testing.T) {
	csv := "Reference,Amount,Memo,Transaction Date\nR1,-9.99,Spotify,2024-02-01\n"
	txns := ParseCSV(csv, "")
	require.Len(t, txns, 1)
	assert.Equal(t, "Spotify", txns[0].Description)
	assert.Equal(t, "-9.99", txns[0].Amount.StringFixed(2))
	assert.True(t, date(2024, 2, 1).Equal(txns[0].Date))
	assert.Equal(t, category.Entertainment, txns[0].Category)
}

func TestParseCSV_PositionalFallback(t *testing.T) {
	csv := "col1,col2,col3\n15/01/2024,Pharmacy run,-12.00\n"
	txns := ParseCSV(csv, "")
	require.Len(t, txns, 1)
	assert.Equal(t, "Pharmacy run", txns[0].Description)
	assert.Equal(t, category.Healthcare, txns[0].Category)
}

func TestParseCSV_SemicolonGerman(t *testing.T) {
	txns := ParseCSV(readFixture(t, "statement_de.csv"), "")
	require.Len(t, txns, 3)

	assert.True(t, date(2024, 1, 2).Equal(txns[0].Date))
	assert.Equal(t, "REWE Markt", txns[0].Description)
	assert.Equal(t, "-23.45", txns[0].Amount.StringFixed(2))
	assert.Equal(t, "Lebensmittel", txns[0].Category)

	assert.Equal(t, "-1250.00", txns[1].Amount.StringFixed(2))
	assert.Equal(t, category.Other, txns[1].Category)

	assert.Equal(t, "3100.00", txns[2].Amount.StringFixed(2))
	assert.Equal(t, "Einkommen", txns[2].Category)
}

func TestParseCSV_CRLFAndBOM(t *testing.T) {
	csv := "\ufeffDate,Description,Amount\r\n15/01/2024,Taxi,-18.00\r\n"
	txns := ParseCSV(csv, "")
	require.Len(t, txns, 1)
	assert.Equal(t, "Taxi", txns[0].Description)
	assert.Equal(t, category.Transportation, txns[0].Category)
}

func TestCSVParser_Chase(t *testing.T) {
	p := &CSVParser{DateOrder: MonthFirst}
	txns, err := p.Parse(strings.NewReader(readFixture(t, "chase_checking.csv")), "")
	require.NoError(t, err)
	require.Len(t, txns, 6)

	assert.Equal(t, "GITHUB *PRO SUBSCRIPTION", txns[0].Description)
	assert.Equal(t, "-4.00", txns[0].Amount.StringFixed(2))
	// The Type column is treated as the category column.
	assert.Equal(t, "ACH_DEBIT", txns[0].Category)
	assert.True(t, date(2025, 1, 3).Equal(txns[0].Date))

	assert.Equal(t, "ACME CONSULTING INVOICE 1042", txns[3].Description)
	assert.True(t, txns[3].Amount.IsPositive())
	assert.True(t, date(2025, 1, 22).Equal(txns[5].Date))
}

func TestCSVParser_ChaseDayFirstDefault(t *testing.T) {
	txns := ParseCSV(readFixture(t, "chase_checking.csv"), "")
	require.Len(t, txns, 6)
	// 01/03/2025 is ambiguous and read day-first.
	assert.True(t, date(2025, 3, 1).Equal(txns[0].Date))
	// 01/15/2025 is not.
	assert.True(t, date(2025, 1, 15).Equal(txns[3].Date))
}

func TestCSVParser_CustomTableAndIDs(t *testing.T) {
	n := 0
	p := &CSVParser{
		Categories: &category.Table{Rules: []category.Rule{{Name: "Pets", Keywords: []string{"vet"}}}, Fallback: "Misc"},
		NewID: func() string {
			n++
			return fmt.Sprintf("fixed-%d", n)
		},
	}
	txns := p.ParseText("Date,Description,Amount\n15/01/2024,Vet visit,-80\n16/01/2024,Walmart,-5\n", "")
	require.Len(t, txns, 2)
	assert.Equal(t, "Pets", txns[0].Category)
	assert.Equal(t, "Misc", txns[1].Category)
	assert.Equal(t, "fixed-1", txns[0].ID)
	assert.Equal(t, "fixed-2", txns[1].ID)
}

func TestSplitQuoted(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{`a,b,c`, []string{"a", "b", "c"}},
		{`"a,b",c`, []string{"a,b", "c"}},
		{`a,,c`, []string{"a", "", "c"}},
		{`a,b,`, []string{"a", "b", ""}},
		{``, []string{""}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, splitQuoted(tt.line, ','), "splitQuoted(%q)", tt.line)
	}
}

func TestDetectColumns(t *testing.T) {
	cols := detectColumns([]string{"Posting Date", "Payee", "Transaction Amount", "Transaction Type"})
	assert.Equal(t, columns{date: 0, description: 1, amount: 2, category: 3}, cols)

	cols = detectColumns([]string{"foo", "bar", "baz"})
	assert.Equal(t, columns{date: 0, description: 1, amount: 2, category: noColumn}, cols)
}

func TestParseCSV_RowOrderPreserved(t *testing.T) {
	csv := "Date,Description,Amount\n03/01/2024,c,-3\nbad,x,-1\n01/01/2024,a,-1\n02/01/2024,b,-2\n"
	txns := ParseCSV(csv, "")
	require.Len(t, txns, 3)
	got := make([]string, len(txns))
	for i, txn := range txns {
		got[i] = txn.Description
	}
	assert.Equal(t, []string{"c", "a", "b"}, got)
	assert.Equal(t, time.January, txns[0].Date.Month())
}
