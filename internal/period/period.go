// Package period splits a date range into calendar-aligned reporting buckets.
package period

import (
	"fmt"
	"iter"
	"strings"
	"time"
)

// Granularity is the bucketing unit of a report.
type Granularity int

const (
	Weekly Granularity = iota + 1
	Monthly
	Yearly
)

// String returns the lower-case name used in flags, config and file names.
func (g Granularity) String() string {
	switch g {
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	case Yearly:
		return "yearly"
	default:
		return fmt.Sprintf("Granularity(%d)", int(g))
	}
}

// Unit returns the singular display noun: "Week", "Month" or "Year".
func (g Granularity) Unit() string {
	switch g {
	case Weekly:
		return "Week"
	case Monthly:
		return "Month"
	case Yearly:
		return "Year"
	default:
		return ""
	}
}

// Valid reports whether g is one of the three supported granularities.
func (g Granularity) Valid() bool {
	return g >= Weekly && g <= Yearly
}

// ParseGranularity accepts "weekly", "monthly", "yearly" and the short
// forms "week"/"w", "month"/"m", "year"/"y", case-insensitively.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weekly", "week", "w":
		return Weekly, nil
	case "monthly", "month", "m":
		return Monthly, nil
	case "yearly", "year", "y":
		return Yearly, nil
	default:
		return 0, fmt.Errorf("unknown period %q (want weekly, monthly or yearly)", s)
	}
}

// Label formats.
const (
	DayLayout   = "2006-01-02"
	MonthLayout = "Jan 2006"
	YearLayout  = "2006"
)

// Label holds the display strings of a bucket. Weekly buckets set Start and
// End; monthly and yearly buckets set Period only.
type Label struct {
	Start  string
	End    string
	Period string
}

// Bucket is one reporting period. Start and End are inclusive; End is the
// last second before the next bucket's Start.
type Bucket struct {
	Ordinal     int
	Start       time.Time
	End         time.Time
	Granularity Granularity
	Label       Label
}

// String renders the bucket for logs.
func (b Bucket) String() string {
	return fmt.Sprintf("%s #%d [%s, %s]", b.Granularity.Unit(), b.Ordinal,
		b.Start.Format(time.DateTime), b.End.Format(time.DateTime))
}

const week = 7 * 24 * time.Hour

// Sequence returns the buckets covering [start, end] in order.
//
// The caller guarantees start <= end and reference <= start; Sequence does
// not clamp. Ordinals are relative to reference (the bucket containing
// reference is ordinal 1). The final bucket is emitted whole even when it
// extends past end. Weekly buckets begin exactly at start; monthly and
// yearly buckets align to the first day of the month or year in start's
// location.
//
// The returned sequence holds no state between iterations, so ranging over
// it twice yields identical buckets.
func Sequence(start, end time.Time, g Granularity, reference time.Time) iter.Seq[Bucket] {
	return func(yield func(Bucket) bool) {
		if !g.Valid() {
			return
		}

		ref := reference.In(start.Location())
		cursor := start
		ordinal := 0

		for !cursor.After(end) {
			b := bucketAt(cursor, g)
			if ordinal == 0 {
				ordinal = firstOrdinal(b.Start, g, ref)
			} else {
				ordinal++
			}
			b.Ordinal = ordinal

			if !yield(b) {
				return
			}
			cursor = b.End.Add(time.Second)
		}
	}
}

// Buckets collects Sequence into a slice.
func Buckets(start, end time.Time, g Granularity, reference time.Time) []Bucket {
	var out []Bucket
	for b := range Sequence(start, end, g, reference) {
		out = append(out, b)
	}
	return out
}

// Count returns the number of buckets Sequence yields for the same inputs.
// It is used to size progress output before any bucket is fetched.
func Count(start, end time.Time, g Granularity) int {
	n := 0
	for range Sequence(start, end, g, start) {
		n++
	}
	return n
}

// bucketAt builds the bucket that begins at (weekly) or contains (monthly,
// yearly) cursor. Ordinal is left for the caller.
func bucketAt(cursor time.Time, g Granularity) Bucket {
	loc := cursor.Location()
	b := Bucket{Granularity: g}

	switch g {
	case Weekly:
		b.Start = cursor
		b.End = cursor.AddDate(0, 0, 7).Add(-time.Second)
		b.Label = Label{
			Start: b.Start.Format(DayLayout),
			End:   b.End.Format(DayLayout),
		}
	case Monthly:
		b.Start = time.Date(cursor.Year(), cursor.Month(), 1, 0, 0, 0, 0, loc)
		// time.Date normalises month 13 into January of the next year.
		next := time.Date(cursor.Year(), cursor.Month()+1, 1, 0, 0, 0, 0, loc)
		b.End = next.Add(-time.Second)
		b.Label = Label{Period: b.Start.Format(MonthLayout)}
	case Yearly:
		b.Start = time.Date(cursor.Year(), time.January, 1, 0, 0, 0, 0, loc)
		next := time.Date(cursor.Year()+1, time.January, 1, 0, 0, 0, 0, loc)
		b.End = next.Add(-time.Second)
		b.Label = Label{Period: b.Start.Format(YearLayout)}
	}

	return b
}

// firstOrdinal numbers the first bucket relative to ref. Later buckets step
// by one so DST shifts in weekly spans cannot skip or repeat an ordinal.
func firstOrdinal(start time.Time, g Granularity, ref time.Time) int {
	switch g {
	case Weekly:
		return floorDiv(int64(wallClock(start).Sub(wallClock(ref))), int64(week)) + 1
	case Monthly:
		return (start.Year()-ref.Year())*12 + int(start.Month()-ref.Month()) + 1
	case Yearly:
		return start.Year() - ref.Year() + 1
	default:
		return 0
	}
}

// wallClock reads t's clock fields as UTC, so differences count civil days
// and ignore DST offset changes between the two times.
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func floorDiv(a, b int64) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return int(q)
}

// AlignToWeekday moves t back to the most recent occurrence of day at
// midnight, or to midnight of t itself when it already falls on day.
func AlignToWeekday(t time.Time, day time.Weekday) time.Time {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	back := (int(midnight.Weekday()) - int(day) + 7) % 7
	return midnight.AddDate(0, 0, -back)
}

// ParseWeekday accepts English weekday names and three-letter abbreviations.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
