package search

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var relativeDateRE = regexp.MustCompile(`^(\d+)([hdwmy])$`)

// DateParser turns date query values into unix times.
type DateParser struct {
	Now      func() time.Time // time source, mockable for tests
	Location *time.Location   // zone for calendar dates; nil means time.Local
}

func (dp DateParser) now() time.Time {
	if dp.Now != nil {
		return dp.Now()
	}
	return time.Now()
}

func (dp DateParser) loc() *time.Location {
	if dp.Location != nil {
		return dp.Location
	}
	return time.Local
}

// calendarFormats are tried for non-numeric values; granularity is the span
// a value covers, so an upper bound includes all of it.
var calendarFormats = []struct {
	layout      string
	granularity func(time.Time) time.Time
}{
	{"2006-01-02", func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }},
	{"2006/01/02", func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }},
	{"2006-01-02T15:04", func(t time.Time) time.Time { return t.Add(time.Minute) }},
	{"2006-01", func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }},
}

// digitFormats are the all-digit calendar forms, keyed by length. Any other
// all-digit value is unix seconds.
var digitFormats = map[int]struct {
	layout string
	step   func(time.Time) time.Time
}{
	8:  {"20060102", func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }},
	12: {"200601021504", func(t time.Time) time.Time { return t.Add(time.Minute) }},
	14: {"20060102150405", func(t time.Time) time.Time { return t.Add(time.Second) }},
}

// Bounds returns the span of unix seconds [lo, hi] a single date value
// covers: a whole day for YYYY-MM-DD, one minute for YYYYMMDDHHMM, and a
// single instant for unix seconds and "now". A relative value such as "7d"
// covers the time from then until now.
func (dp DateParser) Bounds(value string) (lo, hi int64, err error) {
	raw := strings.TrimSpace(value)
	v := strings.ToLower(raw)
	now := dp.now()

	switch v {
	case "now":
		return now.Unix(), now.Unix(), nil
	case "today":
		start := startOfDay(now.In(dp.loc()))
		return start.Unix(), start.AddDate(0, 0, 1).Unix() - 1, nil
	}

	if t, ok := parseRelativeDate(v, now); ok {
		return t.Unix(), now.Unix(), nil
	}

	if isDigits(v) {
		if f, ok := digitFormats[len(v)]; ok {
			t, err := time.ParseInLocation(f.layout, v, dp.loc())
			if err != nil {
				return 0, 0, fmt.Errorf("invalid date %q: %w", value, err)
			}
			return t.Unix(), f.step(t).Unix() - 1, nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid date %q: %w", value, err)
		}
		return n, n, nil
	}

	for _, f := range calendarFormats {
		if t, err := time.ParseInLocation(f.layout, raw, dp.loc()); err == nil {
			return t.Unix(), f.granularity(t).Unix() - 1, nil
		}
	}
	return 0, 0, fmt.Errorf("invalid date %q", value)
}

// Lower returns the first second covered by value.
func (dp DateParser) Lower(value string) (int64, error) {
	lo, _, err := dp.Bounds(value)
	return lo, err
}

// Upper returns the last second covered by value. For a relative value the
// upper bound is the point in time it names, so "date:..7d" means older than
// seven days.
func (dp DateParser) Upper(value string) (int64, error) {
	v := strings.TrimSpace(strings.ToLower(value))
	if t, ok := parseRelativeDate(v, dp.now()); ok {
		return t.Unix(), nil
	}
	_, hi, err := dp.Bounds(value)
	return hi, err
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// parseRelativeDate parses relative dates like 12h, 7d, 2w, 1m, 1y counting
// back from now.
func parseRelativeDate(value string, now time.Time) (time.Time, bool) {
	match := relativeDateRE.FindStringSubmatch(value)
	if match == nil {
		return time.Time{}, false
	}
	amount, err := strconv.Atoi(match[1])
	if err != nil {
		return time.Time{}, false
	}

	switch match[2] {
	case "h":
		return now.Add(-time.Duration(amount) * time.Hour), true
	case "d":
		return now.AddDate(0, 0, -amount), true
	case "w":
		return now.AddDate(0, 0, -amount*7), true
	case "m":
		return now.AddDate(0, -amount, 0), true
	case "y":
		return now.AddDate(-amount, 0, 0), true
	}
	return time.Time{}, false
}

var sizeSuffixes = []struct {
	suffix string
	mult   int64
}{
	{"KB", 1 << 10}, {"MB", 1 << 20}, {"GB", 1 << 30},
	{"K", 1 << 10}, {"M", 1 << 20}, {"G", 1 << 30},
	{"B", 1},
}

// ParseSize parses sizes like 5M, 100k, 1.5G or a plain byte count.
func ParseSize(value string) (int64, error) {
	v := strings.TrimSpace(strings.ToUpper(value))
	for _, s := range sizeSuffixes {
		if num, ok := strings.CutSuffix(v, s.suffix); ok {
			f, err := strconv.ParseFloat(num, 64)
			if err != nil || f < 0 {
				return 0, fmt.Errorf("invalid size %q", value)
			}
			return int64(f * float64(s.mult)), nil
		}
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid size %q", value)
	}
	return n, nil
}
