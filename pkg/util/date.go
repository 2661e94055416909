package util

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format of PricePoint dates.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05-07:00",
	time.RFC3339,
	time.RFC3339Nano,
	"02-01-2006",
	"2006/01/02",
}

// ParseTime tries the known date layouts and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// PeriodStart returns the first instant covered by a period such as "5y",
// "6mo", "2wk", "30d" or "ytd", counted back from now. "max" and "" cover
// everything and yield the zero time.
func PeriodStart(period string, now time.Time) (time.Time, bool) {
	p := strings.ToLower(strings.TrimSpace(period))
	switch p {
	case "", "max":
		return time.Time{}, true
	case "ytd":
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location()), true
	}

	unit := strings.TrimLeft(p, "0123456789")
	n, err := strconv.Atoi(strings.TrimSuffix(p, unit))
	if err != nil || n <= 0 {
		return time.Time{}, false
	}
	switch unit {
	case "d":
		return now.AddDate(0, 0, -n), true
	case "wk":
		return now.AddDate(0, 0, -7*n), true
	case "mo":
		return now.AddDate(0, -n, 0), true
	case "y":
		return now.AddDate(-n, 0, 0), true
	}
	return time.Time{}, false
}

var yahooRanges = []string{"1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "5y", "10y"}

// YahooRange maps a period onto the smallest range the Yahoo chart API
// accepts that still covers it. Unknown periods map to "max".
func YahooRange(period string, now time.Time) string {
	p := strings.ToLower(strings.TrimSpace(period))
	if p == "ytd" || p == "max" {
		return p
	}
	start, ok := PeriodStart(p, now)
	if !ok || start.IsZero() {
		return "max"
	}
	for _, r := range yahooRanges {
		rs, _ := PeriodStart(r, now)
		if !rs.After(start) {
			return r
		}
	}
	return "max"
}
