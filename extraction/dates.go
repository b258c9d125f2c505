package extraction

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	monthDayYear = regexp.MustCompile(`(?i)^([a-z]+)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})$`)
	dayOfMonth   = regexp.MustCompile(`(?i)^(\d{1,2})(?:st|nd|rd|th)?\s+day\s+of\s+([a-z]+)\.?,?\s+(\d{4})$`)
	numericDate  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// ParseDate parses the date forms that appear in hearing decisions:
// "March 5, 2024", "Mar. 5th 2024", "5th day of March, 2024" and "3/5/2024".
// The second return is false for anything it cannot parse or for impossible dates.
func ParseDate(s string) (time.Time, bool) {
	s = strings.Join(strings.Fields(s), " ")

	if m := monthDayYear.FindStringSubmatch(s); m != nil {
		return buildDate(m[3], m[1], m[2])
	}
	if m := dayOfMonth.FindStringSubmatch(s); m != nil {
		return buildDate(m[3], m[2], m[1])
	}
	if m := numericDate.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[1])
		if month < 1 || month > 12 {
			return time.Time{}, false
		}
		return buildDateNumeric(m[3], time.Month(month), m[2])
	}
	return time.Time{}, false
}

func buildDate(year, monthName, day string) (time.Time, bool) {
	name := strings.ToLower(monthName)
	if len(name) < 3 {
		return time.Time{}, false
	}
	month, ok := months[name[:3]]
	if !ok {
		return time.Time{}, false
	}
	return buildDateNumeric(year, month, day)
}

func buildDateNumeric(year string, month time.Month, day string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return time.Time{}, false
	}
	t := time.Date(y, month, d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow, so Feb 30 comes back as March
	if t.Year() != y || t.Month() != month || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}
