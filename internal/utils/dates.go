package utils

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultDisplayYearOffset is how far in the future dates are shown relative
// to the stored value. Stored instants never carry the offset.
const DefaultDisplayYearOffset = 100

const (
	DatePlaceholder     = "-"
	DateTimePlaceholder = "—"

	usDateLayout     = "01/02/2006"
	usDateTimeLayout = "01/02/2006 15:04:05"
)

var usDateSeparators = regexp.MustCompile(`[/\-.]`)

// DisplayOptions controls how stored instants are rendered.
type DisplayOptions struct {
	YearOffset int
	Location   *time.Location
}

// DefaultDisplayOptions uses the standard year offset and the host time zone.
func DefaultDisplayOptions() DisplayOptions {
	return DisplayOptions{YearOffset: DefaultDisplayYearOffset, Location: time.Local}
}

// Loc returns the configured location, falling back to time.Local.
func (o DisplayOptions) Loc() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

// ShiftDisplayYear returns t moved offsetYears calendar years forward.
// Feb 29 shifted onto a non-leap year lands on Mar 1.
func ShiftDisplayYear(t time.Time, offsetYears int) time.Time {
	return t.AddDate(offsetYears, 0, 0)
}

// ParseUSDate parses M/D/Y text (separators '/', '-' or '.') into a whole-second
// epoch at local midnight in loc. Dates that do not exist on the calendar are
// rejected instead of rolling over into the next month.
func ParseUSDate(text string, loc *time.Location) (int64, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, false
	}
	parts := usDateSeparators.Split(s, -1)
	if len(parts) < 3 {
		return 0, false
	}

	m, ok := ParseLeadingInt(parts[0])
	if !ok {
		return 0, false
	}
	d, ok := ParseLeadingInt(parts[1])
	if !ok {
		return 0, false
	}
	y, ok := ParseLeadingInt(parts[2])
	if !ok {
		return 0, false
	}
	if m < 1 || m > 12 || d < 1 || d > 31 || y < 1900 {
		return 0, false
	}

	if loc == nil {
		loc = time.Local
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, loc)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return 0, false
	}
	return t.Unix(), true
}

// FormatUSDate renders v as MM/DD/YYYY with the display year offset applied.
func FormatUSDate(v interface{}, opts DisplayOptions) string {
	t, ok := ToInstant(v)
	if !ok {
		return DatePlaceholder
	}
	return ShiftDisplayYear(t.In(opts.Loc()), opts.YearOffset).Format(usDateLayout)
}

// FormatDateTime renders v as MM/DD/YYYY HH:MM:SS with the display year offset applied.
func FormatDateTime(v interface{}, opts DisplayOptions) string {
	t, ok := ToInstant(v)
	if !ok {
		return DateTimePlaceholder
	}
	return ShiftDisplayYear(t.In(opts.Loc()), opts.YearOffset).Format(usDateTimeLayout)
}

// AddMonthsClamped adds n calendar months to t. When the target month is
// shorter than t's day of month the day is clamped to the month's last day,
// so Jan 31 + 1 month is Feb 28 (or 29).
func AddMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := daysInMonth(first); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// StartOfDay zeroes the time-of-day of t in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func daysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// ParseLeadingInt reads an optionally signed run of digits at the start of s,
// ignoring anything after it ("12abc" is 12). It fails when no digit is found.
func ParseLeadingInt(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t\r\n")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
