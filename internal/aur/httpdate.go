package aur

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// sentinelDate replaces HTTP dates whose month cannot be parsed. It lies
// well in the past so that no cache can be older than it.
var sentinelDate = time.Date(2020, time.November, 24, 21, 0, 0, 0, time.UTC)

var months = map[string]time.Month{
	"jan": time.January,
	"feb": time.February,
	"mar": time.March,
	"apr": time.April,
	"may": time.May,
	"jun": time.June,
	"jul": time.July,
	"aug": time.August,
	"sep": time.September,
	"oct": time.October,
	"nov": time.November,
	"dec": time.December,
}

// ParseHTTPDate parses "Wkd, DD Mon YYYY HH:MM:SS GMT".
//
// An unknown month name yields the sentinel date with ok == false rather
// than an error. Any other malformed input is an error.
func ParseHTTPDate(value string) (t time.Time, ok bool, err error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false, fmt.Errorf("empty date")
	}

	// Drop the weekday.
	if i := strings.IndexByte(value, ','); i >= 0 {
		value = value[i+1:]
	}

	parts := strings.Fields(value)
	if len(parts) != 5 || !strings.EqualFold(parts[4], "GMT") {
		return time.Time{}, false, fmt.Errorf("malformed date %q", value)
	}

	month, known := months[strings.ToLower(parts[1])]
	if !known {
		return sentinelDate, false, nil
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, false, fmt.Errorf("malformed day %q: %w", parts[0], err)
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, false, fmt.Errorf("malformed year %q: %w", parts[2], err)
	}
	clock, err := time.Parse("15:04:05", parts[3])
	if err != nil {
		return time.Time{}, false, fmt.Errorf("malformed time %q: %w", parts[3], err)
	}

	return time.Date(year, month, day, clock.Hour(), clock.Minute(), clock.Second(), 0, time.UTC), true, nil
}

// FormatHTTPDate formats t in the HTTP-date form used by If-Modified-Since.
func FormatHTTPDate(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}
