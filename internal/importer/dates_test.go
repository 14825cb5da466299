package importer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		// Day-first by default.
		{"15/01/2024", date(2024, 1, 15)},
		{"03/04/2024", date(2024, 4, 3)},
		// Second component > 12 forces month-first.
		{"01/15/2024", date(2024, 1, 15)},
		// Two-digit years.
		{"01/15/24", date(2024, 1, 15)},
		{"01/15/99", date(1999, 1, 15)},
		{"5/6/49", date(2049, 6, 5)},
		{"5/6/50", date(1950, 6, 5)},
		// Dots.
		{"02.01.2024", date(2024, 1, 2)},
		{"31.12.23", date(2023, 12, 31)},
		// ISO, with and without time.
		{"2024-01-16", date(2024, 1, 16)},
		{"2024-1-6", date(2024, 1, 6)},
		{"2024-01-16T10:30:00Z", date(2024, 1, 16)},
		{"2024-01-16 10:30", date(2024, 1, 16)},
		// Dashes are month-first.
		{"01-15-2024", date(2024, 1, 15)},
		{"03-04-2024", date(2024, 3, 4)},
		{"15-01-2024", date(2024, 1, 15)},
		{"03-04-24", date(2024, 3, 4)},
		// Month names.
		{"15 Jan 2024", date(2024, 1, 15)},
		{"1 September 2023", date(2023, 9, 1)},
		{"7 sept. 2023", date(2023, 9, 7)},
		{"  15/01/2024  ", date(2024, 1, 15)},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			require.True(t, ok, "ParseDate(%q) failed", tt.input)
			assert.True(t, tt.want.Equal(got), "ParseDate(%q) = %s, want %s", tt.input, got, tt.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseDate_Invalid(t *testing.T) {
	bad := []string{
		"",
		"not-a-date",
		"31/02/2024",
		"13/13/2024",
		"2024-13-01",
		"15 Foo 2024",
		"15/01",
		"Jan 15",
		"0/1/2024",
	}
	for _, input := range bad {
		_, ok := ParseDate(input)
		assert.False(t, ok, "expected ParseDate(%q) to fail", input)
	}
}

func TestParseDate_LeapDay(t *testing.T) {
	got, ok := ParseDate("29/02/2024")
	require.True(t, ok)
	assert.True(t, date(2024, 2, 29).Equal(got))

	_, ok = ParseDate("29/02/2023")
	assert.False(t, ok)
}

func TestDateOrder_MonthFirst(t *testing.T) {
	got, ok := MonthFirst.Parse("03/04/2024")
	require.True(t, ok)
	assert.True(t, date(2024, 3, 4).Equal(got))

	// Unambiguous dates ignore the order.
	got, ok = MonthFirst.Parse("15/01/2024")
	require.True(t, ok)
	assert.True(t, date(2024, 1, 15).Equal(got))
}

func TestParseDateOrder(t *testing.T) {
	tests := []struct {
		input string
		want  DateOrder
	}{
		{"", DayFirst},
		{"day-first", DayFirst},
		{"Month-First", MonthFirst},
		{"mdy", MonthFirst},
	}
	for _, tt := range tests {
		got, err := ParseDateOrder(tt.input)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseDateOrder("year-first")
	assert.Error(t, err)
	assert.Equal(t, "month-first", MonthFirst.String())
}
