// Package timeparsing turns user-supplied time expressions into instants.
//
// Expressions are tried in layers, first match wins:
//  1. compact durations (+6h, -1d, 2w)
//  2. absolute dates (2025-01-20, RFC 3339)
//  3. natural language (yesterday, last monday, 3 days ago)
package timeparsing

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// compactRe matches [+-]?N<unit> with unit one of h d w m y.
var compactRe = regexp.MustCompile(`^([+-]?)(\d+)([hdwmy])$`)

// ParseCompactDuration offsets now by a compact duration such as "+6h",
// "-1d" or "3m". An unsigned amount moves forward.
func ParseCompactDuration(s string, now time.Time) (time.Time, error) {
	m := compactRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, fmt.Errorf("not a compact duration: %q", s)
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid duration amount %q: %w", m[2], err)
	}
	if m[1] == "-" {
		n = -n
	}
	return shift(now, n, m[3]), nil
}

func shift(base time.Time, n int, unit string) time.Time {
	switch unit {
	case "h":
		return base.Add(time.Duration(n) * time.Hour)
	case "d":
		return base.AddDate(0, 0, n)
	case "w":
		return base.AddDate(0, 0, 7*n)
	case "m":
		return base.AddDate(0, n, 0)
	case "y":
		return base.AddDate(n, 0, 0)
	}
	return base
}

// IsCompactDuration reports whether s uses compact duration syntax.
func IsCompactDuration(s string) bool {
	return compactRe.MatchString(s)
}

// absoluteLayouts are tried in order by ParseAbsolute.
var absoluteLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	time.DateOnly,
}

// ParseAbsolute parses a timestamp or a bare date. Values without a zone
// are read in loc.
func ParseAbsolute(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("not an absolute date: %q", s)
}
