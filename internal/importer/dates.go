package importer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Date patterns, tried in order. Each captures three components.
var (
	dateSlashYY   = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2})$`)
	dateSlashYYYY = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	dateDotYYYY   = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})$`)
	dateDotYY     = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{2})$`)
	dateISO       = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})(?:[T ].*)?$`)
	dateDashYYYY  = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})$`)
	dateDashYY    = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{2})$`)
	dateMonthName = regexp.MustCompile(`(?i)^(\d{1,2})\s+([a-z]+)\.?,?\s+(\d{4}|\d{2})$`)
)

var monthNames = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

// DateOrder decides how an ambiguous date like 03/04/2024 is read.
type DateOrder int

const (
	// DayFirst reads 03/04/2024 as 3 April (European).
	DayFirst DateOrder = iota
	// MonthFirst reads 03/04/2024 as 4 March (US).
	MonthFirst
)

// ParseDateOrder maps a config value ("day-first", "month-first") to a DateOrder.
// Empty means DayFirst.
func ParseDateOrder(s string) (DateOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "day-first", "dmy":
		return DayFirst, nil
	case "month-first", "mdy":
		return MonthFirst, nil
	default:
		return DayFirst, fmt.Errorf("unknown date order %q", s)
	}
}

func (o DateOrder) String() string {
	if o == MonthFirst {
		return "month-first"
	}
	return "day-first"
}

// ParseDate parses a free-text statement date into UTC midnight, reading
// ambiguous dates day-first. Returns false when s is not a calendar date.
func ParseDate(s string) (time.Time, bool) {
	return DayFirst.Parse(s)
}

// Parse parses a free-text statement date into UTC midnight. A slash or dot
// date whose first component is above 12 is always day-first, one whose second
// component is above 12 is always month-first, and anything else follows o.
func (o DateOrder) Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, re := range []*regexp.Regexp{dateSlashYY, dateSlashYYYY, dateDotYYYY, dateDotYY} {
		if m := re.FindStringSubmatch(s); m != nil {
			day, month := o.resolve(atoi(m[1]), atoi(m[2]))
			return makeDate(expandYear(m[3]), month, day)
		}
	}

	if m := dateISO.FindStringSubmatch(s); m != nil {
		return makeDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}

	for _, re := range []*regexp.Regexp{dateDashYYYY, dateDashYY} {
		if m := re.FindStringSubmatch(s); m != nil {
			day, month := monthFirst(atoi(m[1]), atoi(m[2]))
			return makeDate(expandYear(m[3]), month, day)
		}
	}

	if m := dateMonthName.FindStringSubmatch(s); m != nil {
		month, ok := monthNames[strings.ToLower(m[2])]
		if !ok {
			return time.Time{}, false
		}
		return makeDate(expandYear(m[3]), int(month), atoi(m[1]))
	}

	return time.Time{}, false
}

// resolve splits the first two components of a slash or dot date.
func (o DateOrder) resolve(a, b int) (day, month int) {
	switch {
	case a > 12:
		return a, b
	case b > 12:
		return b, a
	case o == MonthFirst:
		return b, a
	default:
		return a, b
	}
}

// monthFirst resolves a/b as month/day, unless a is too large to be a month.
func monthFirst(a, b int) (day, month int) {
	if a > 12 && b <= 12 {
		return a, b
	}
	return b, a
}

// expandYear maps two-digit years 00-49 to 20xx and 50-99 to 19xx.
func expandYear(s string) int {
	y := atoi(s)
	if len(s) != 2 {
		return y
	}
	if y < 50 {
		return 2000 + y
	}
	return 1900 + y
}

func makeDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	if day > daysIn(year, time.Month(month)) {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
