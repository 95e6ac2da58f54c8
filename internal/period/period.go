// Package period resolves abstract reporting periods into concrete UTC date ranges.
//
// A Descriptor names a calendar period relative to an injected reference
// instant ("now"). Resolution is a pure function: the same descriptor and
// the same instant always produce the same range, which keeps every caller
// testable without touching the system clock.
package period

import (
	"errors"
	"fmt"
	"time"
)

// Descriptor names one of the supported reporting periods.
type Descriptor string

const (
	ThisYear  Descriptor = "this_year"
	LastYear  Descriptor = "last_year"
	ThisMonth Descriptor = "this_month"
	LastMonth Descriptor = "last_month"
	ThisWeek  Descriptor = "this_week"
	LastWeek  Descriptor = "last_week"
	Q1        Descriptor = "q1"
	Q2        Descriptor = "q2"
	Q3        Descriptor = "q3"
	Q4        Descriptor = "q4"
	Custom    Descriptor = "custom"
)

var (
	// ErrMissingBounds is returned when a custom period lacks a start or end date.
	ErrMissingBounds = errors.New("custom period requires both start and end dates")
	// ErrInvalidRange is returned when a custom period's end date precedes its start date.
	ErrInvalidRange = errors.New("period end date precedes start date")
)

// Request carries a descriptor plus the optional calendar dates consumed
// only when the descriptor is Custom. Dates for any other descriptor are
// ignored.
type Request struct {
	Descriptor Descriptor
	StartDate  *time.Time
	EndDate    *time.Time
}

// Range is a concrete [Start, End) pair of UTC timestamps with Start <= End.
// It is computed once per request and never persisted.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns the length of the range.
func (r Range) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Resolve turns a period request into a concrete date range relative to now.
// All arithmetic happens in UTC regardless of now's location.
//
// An unrecognized descriptor falls back to this_month semantics rather than
// failing; callers that want strict validation should check the descriptor
// before calling.
func Resolve(req Request, now time.Time) (Range, error) {
	now = now.UTC()
	year := now.Year()

	switch req.Descriptor {
	case ThisYear:
		return Range{Start: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), End: now}, nil

	case LastYear:
		return Range{
			Start: time.Date(year-1, time.January, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(year-1, time.December, 31, 23, 59, 59, 0, time.UTC),
		}, nil

	case LastMonth:
		thisMonthStart := time.Date(year, now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Range{
			Start: thisMonthStart.AddDate(0, -1, 0),
			End:   thisMonthStart.Add(-time.Second),
		}, nil

	case ThisWeek:
		return Range{Start: startOfWeek(now), End: now}, nil

	case LastWeek:
		monday := startOfWeek(now).AddDate(0, 0, -7)
		return Range{
			Start: monday,
			End:   monday.AddDate(0, 0, 7).Add(-time.Second),
		}, nil

	case Q1, Q2, Q3, Q4:
		return quarterRange(req.Descriptor, year), nil

	case Custom:
		if req.StartDate == nil || req.EndDate == nil {
			return Range{}, ErrMissingBounds
		}
		start := startOfDay(req.StartDate.UTC())
		end := endOfDay(req.EndDate.UTC())
		if end.Before(start) {
			return Range{}, fmt.Errorf("%w: %s > %s", ErrInvalidRange,
				start.Format("2006-01-02"), end.Format("2006-01-02"))
		}
		return Range{Start: start, End: end}, nil

	case ThisMonth:
		return thisMonthRange(now), nil

	default:
		// Unknown descriptors resolve like this_month for compatibility with
		// existing callers. See DESIGN.md for the decision record.
		return thisMonthRange(now), nil
	}
}

func thisMonthRange(now time.Time) Range {
	return Range{
		Start: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC),
		End:   now,
	}
}

// startOfWeek returns the most recent Monday at 00:00:00 UTC.
func startOfWeek(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 { // Sunday
		weekday = 7
	}
	return time.Date(t.Year(), t.Month(), t.Day()-(weekday-1), 0, 0, 0, 0, time.UTC)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// endOfDay returns the last representable instant of the day at microsecond
// precision, matching the store's timestamp resolution.
func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999000, time.UTC)
}

func quarterRange(d Descriptor, year int) Range {
	var startMonth time.Month
	switch d {
	case Q1:
		startMonth = time.January
	case Q2:
		startMonth = time.April
	case Q3:
		startMonth = time.July
	case Q4:
		startMonth = time.October
	}
	start := time.Date(year, startMonth, 1, 0, 0, 0, 0, time.UTC)
	return Range{
		Start: start,
		End:   start.AddDate(0, 3, 0).Add(-time.Second),
	}
}

// ParseDescriptor validates a raw descriptor string. It accepts every known
// descriptor and returns false for anything else so callers can decide
// whether to rely on the this_month fallback or reject the request.
func ParseDescriptor(raw string) (Descriptor, bool) {
	switch d := Descriptor(raw); d {
	case ThisYear, LastYear, ThisMonth, LastMonth, ThisWeek, LastWeek, Q1, Q2, Q3, Q4, Custom:
		return d, true
	default:
		return "", false
	}
}
