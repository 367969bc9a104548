package timeparsing

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var (
	parserOnce sync.Once
	nlParser   *when.Parser
)

func naturalParser() *when.Parser {
	parserOnce.Do(func() {
		nlParser = when.New(nil)
		nlParser.Add(en.All...)
		nlParser.Add(common.All...)
	})
	return nlParser
}

// ParseNaturalLanguage resolves English expressions like "tomorrow",
// "next monday at 2pm" or "3 days ago" relative to now.
func ParseNaturalLanguage(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time expression")
	}
	r, err := naturalParser().Parse(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", s, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("no date found in %q", s)
	}
	return r.Time, nil
}

// ParseRelativeTime runs every layer in order and returns the first hit.
func ParseRelativeTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := ParseCompactDuration(s, now); err == nil {
		return t, nil
	}
	if t, err := ParseAbsolute(s, now.Location()); err == nil {
		return t, nil
	}
	if t, err := ParseNaturalLanguage(s, now); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("cannot parse time %q (try -7d, 2025-01-20, or \"last monday\")", s)
}

// ParseSince is ParseRelativeTime for lower bounds: an unsigned compact
// duration looks back, so "7d" means seven days ago. Results in the future
// are rejected.
func ParseSince(s string, now time.Time) (time.Time, error) {
	expr := strings.TrimSpace(s)
	if IsCompactDuration(expr) && expr[0] != '+' && expr[0] != '-' {
		expr = "-" + expr
	}
	t, err := ParseRelativeTime(expr, now)
	if err != nil {
		return time.Time{}, err
	}
	if t.After(now) {
		return time.Time{}, fmt.Errorf("%q is in the future", s)
	}
	return t, nil
}
