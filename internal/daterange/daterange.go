// Package daterange turns user range choices into a validated [start, end]
// pair for the period sequencer.
package daterange

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jfmyers9/toptracks/internal/period"
)

// Mode selects how the range is derived.
type Mode string

const (
	// Last covers the last N weeks, months or years ending today.
	Last Mode = "last"
	// All covers everything from registration to today.
	All Mode = "all"
	// Custom takes explicit From and To values.
	Custom Mode = "custom"
)

// ParseMode accepts the mode names plus the numbered menu choices 1-3.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "last", "1", "today", "from-today":
		return Last, nil
	case "all", "2", "all-time":
		return All, nil
	case "custom", "3":
		return Custom, nil
	default:
		return "", fmt.Errorf("unknown range %q (want last, all or custom)", s)
	}
}

// Options describes a requested range.
type Options struct {
	Mode        Mode
	Granularity period.Granularity
	Count       int    // Units to go back for Last
	From        string // Custom start, see Layouts
	To          string // Custom end, see Layouts
}

// Range is a resolved [Start, End] at day precision.
type Range struct {
	Start time.Time
	End   time.Time
}

// Validation errors.
var (
	ErrEndBeforeStart = errors.New("end date is before start date")
	ErrBadCount       = errors.New("count must be at least 1")
)

// Layouts returns the accepted custom formats for g, preferred first.
// The ISO day layout is always accepted.
func Layouts(g period.Granularity) []string {
	switch g {
	case period.Weekly:
		return []string{"02-01-2006", period.DayLayout}
	case period.Monthly:
		return []string{"01-2006", period.DayLayout}
	case period.Yearly:
		return []string{"2006", period.DayLayout}
	default:
		return []string{period.DayLayout}
	}
}

// Hint returns the human description of the preferred custom format.
func Hint(g period.Granularity) string {
	switch g {
	case period.Weekly:
		return "DD-MM-YYYY"
	case period.Monthly:
		return "MM-YYYY"
	case period.Yearly:
		return "YYYY"
	default:
		return "YYYY-MM-DD"
	}
}

// Resolve computes the range for opts. registered is the user's first
// possible activity and now the current time; both bound the result, and
// the returned dates are midnights in now's location.
func Resolve(opts Options, registered, now time.Time) (Range, error) {
	if !opts.Granularity.Valid() {
		return Range{}, fmt.Errorf("invalid granularity %v", opts.Granularity)
	}

	loc := now.Location()
	today := midnight(now)
	firstDay := midnight(registered.In(loc))

	var r Range
	switch opts.Mode {
	case Last:
		if opts.Count < 1 {
			return Range{}, ErrBadCount
		}
		r = Range{Start: goBack(today, opts.Granularity, opts.Count), End: today}
	case All:
		r = Range{Start: firstDay, End: today}
	case Custom:
		start, err := parse(opts.From, opts.Granularity, loc)
		if err != nil {
			return Range{}, fmt.Errorf("invalid start date: %w", err)
		}
		end, err := parse(opts.To, opts.Granularity, loc)
		if err != nil {
			return Range{}, fmt.Errorf("invalid end date: %w", err)
		}
		// A bare year as the end means the whole year.
		if opts.Granularity == period.Yearly && isYear(opts.To) {
			end = time.Date(end.Year(), time.December, 31, 0, 0, 0, 0, loc)
		}
		if end.Before(start) {
			return Range{}, fmt.Errorf("%w: %s > %s", ErrEndBeforeStart,
				start.Format(period.DayLayout), end.Format(period.DayLayout))
		}
		r = Range{Start: start, End: end}
	default:
		return Range{}, fmt.Errorf("unknown range mode %q", opts.Mode)
	}

	if r.Start.Before(firstDay) {
		r.Start = firstDay
	}
	if r.End.After(today) {
		r.End = today
	}
	if r.End.Before(r.Start) {
		return Range{}, fmt.Errorf("%w: range %s to %s lies outside %s to %s", ErrEndBeforeStart,
			r.Start.Format(period.DayLayout), r.End.Format(period.DayLayout),
			firstDay.Format(period.DayLayout), today.Format(period.DayLayout))
	}

	return r, nil
}

func parse(s string, g period.Granularity, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range Layouts(g) {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q does not match %s or YYYY-MM-DD", s, Hint(g))
}

func isYear(s string) bool {
	s = strings.TrimSpace(s)
	_, err := strconv.Atoi(s)
	return len(s) == 4 && err == nil
}

func goBack(t time.Time, g period.Granularity, n int) time.Time {
	switch g {
	case period.Weekly:
		return t.AddDate(0, 0, -7*n)
	case period.Monthly:
		return addMonths(t, -n)
	default:
		return addMonths(t, -12*n)
	}
}

// addMonths moves t by n months, clamping the day to the last day of the
// target month instead of overflowing into the next one.
func addMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1).Day()
	return time.Date(first.Year(), first.Month(), min(t.Day(), last), 0, 0, 0, 0, t.Location())
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
