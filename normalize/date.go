package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/araddon/dateparse"
)

// DateLayout is the canonical rendering of a review date.
const DateLayout = "01/02/06"

// ErrUnparseableDate is returned when no strategy understands the expression.
var ErrUnparseableDate = errors.New("normalize: unparseable date")

// DateParser turns a free-form human date into a calendar date. now anchors
// relative expressions such as "2 days ago".
type DateParser interface {
	ParseHumanDate(s string, now time.Time) (time.Time, error)
}

// HumanDateParser understands relative expressions ("today", "yesterday",
// "3 weeks ago", "2 hours ago", "last month"), month-year forms ("March 2020") and the absolute formats
// recognised by dateparse ("March 3, 2020", "2020-03-03", ...).
type HumanDateParser struct {
	// Location is used for absolute dates without a zone. Nil means now's
	// location.
	Location *time.Location
}

var (
	relativeRe = regexp.MustCompile(`^(\d+|an?|one)\s+(second|minute|hour|day|week|month|year)s?\s+ago$`)
	lastRe     = regexp.MustCompile(`^last\s+(week|month|year)$`)
	septRe     = regexp.MustCompile(`(?i)\bsept\b`)
)

var monthYearLayouts = []string{"January 2006", "Jan 2006"}

func (p HumanDateParser) ParseHumanDate(s string, now time.Time) (time.Time, error) {
	loc := p.Location
	if loc == nil {
		loc = now.Location()
	}
	now = now.In(loc)

	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)

	switch lower {
	case "":
		return time.Time{}, fmt.Errorf("%w: empty", ErrUnparseableDate)
	case "today":
		return now, nil
	case "yesterday":
		return now.AddDate(0, 0, -1), nil
	}

	if m := relativeRe.FindStringSubmatch(lower); m != nil {
		n := 1
		if v, err := strconv.Atoi(m[1]); err == nil {
			n = v
		}
		return shift(now, m[2], n), nil
	}
	if m := lastRe.FindStringSubmatch(lower); m != nil {
		return shift(now, m[1], 1), nil
	}

	// dateparse knows "Sep" but not "Sept".
	s = septRe.ReplaceAllString(s, "Sep")

	for _, layout := range monthYearLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}

	if !plausibleDate(s) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseableDate, s)
	}
	t, err := dateparse.ParseIn(s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrUnparseableDate, s, err)
	}
	return t, nil
}

// shift moves now back n units.
func shift(now time.Time, unit string, n int) time.Time {
	switch unit {
	case "second":
		return now.Add(-time.Duration(n) * time.Second)
	case "minute":
		return now.Add(-time.Duration(n) * time.Minute)
	case "hour":
		return now.Add(-time.Duration(n) * time.Hour)
	case "week":
		return now.AddDate(0, 0, -7*n)
	case "month":
		return now.AddDate(0, -n, 0)
	case "year":
		return now.AddDate(-n, 0, 0)
	default:
		return now.AddDate(0, 0, -n)
	}
}

// plausibleDate rejects fragments such as "12." or "0000" that dateparse
// would otherwise read as a date. A numeric date needs a month name or at
// least six digits.
func plausibleDate(s string) bool {
	digits := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return digits >= 6
}

// Date parses human with parser and renders it as MM/DD/YY.
func Date(parser DateParser, human string, now time.Time) (string, error) {
	t, err := parser.ParseHumanDate(human, now)
	if err != nil {
		return "", err
	}
	return t.Format(DateLayout), nil
}
