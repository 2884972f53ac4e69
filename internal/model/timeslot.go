package model

import (
    "fmt"
    "strconv"
    "strings"
)

// MinutesPerDay is the exclusive upper bound for a slot's end minute.  A
// slot ending at exactly MinutesPerDay runs to the end of the calendar
// day.
const MinutesPerDay = 1440

// TimeSlot is a half-open interval [Start, End) of minutes within a single
// calendar day.  Minute-of-day integers keep intraday arithmetic free of
// timezone concerns; all comparisons are on the raw minute values.
//
// Fields:
//  Start – first minute of the slot, 0 <= Start < MinutesPerDay.
//  End   – minute after the last minute of the slot, Start < End <= MinutesPerDay.
type TimeSlot struct {
    Start int // room_books.start_minute
    End   int // room_books.end_minute
}

// NewTimeSlot validates the given minute pair and returns a TimeSlot.
// The start must lie strictly before the end and both must fall within a
// single day.
func NewTimeSlot(start, end int) (TimeSlot, error) {
    if start < 0 || start >= MinutesPerDay {
        return TimeSlot{}, fmt.Errorf("start minute %d out of range", start)
    }
    if end <= 0 || end > MinutesPerDay {
        return TimeSlot{}, fmt.Errorf("end minute %d out of range", end)
    }
    if start >= end {
        return TimeSlot{}, fmt.Errorf("slot start %d is not before end %d", start, end)
    }
    return TimeSlot{Start: start, End: end}, nil
}

// ParseTimeSlot builds a TimeSlot from two "HH:MM" clock strings.
func ParseTimeSlot(start, end string) (TimeSlot, error) {
    s, err := ParseClock(start)
    if err != nil {
        return TimeSlot{}, err
    }
    e, err := ParseClock(end)
    if err != nil {
        return TimeSlot{}, err
    }
    return NewTimeSlot(s, e)
}

// ParseClock converts an ISO "HH:MM" (or "HH:MM:SS", seconds ignored)
// time-of-day string into a minute-of-day integer.
func ParseClock(clock string) (int, error) {
    parts := strings.Split(clock, ":")
    if len(parts) < 2 || len(parts) > 3 {
        return 0, fmt.Errorf("time %q is not in HH:MM format", clock)
    }
    h, err := strconv.Atoi(parts[0])
    if err != nil || h < 0 || h > 23 {
        return 0, fmt.Errorf("time %q has an invalid hour", clock)
    }
    m, err := strconv.Atoi(parts[1])
    if err != nil || m < 0 || m > 59 {
        return 0, fmt.Errorf("time %q has an invalid minute", clock)
    }
    return h*60 + m, nil
}

// Overlaps reports whether two half-open slots intersect.  Adjacent slots
// (a.End == b.Start) do not overlap.
func (t TimeSlot) Overlaps(o TimeSlot) bool {
    return o.End > t.Start && o.Start < t.End
}

// Contains reports whether o lies entirely within t.
func (t TimeSlot) Contains(o TimeSlot) bool {
    return t.Start <= o.Start && o.End <= t.End
}

// Minutes returns the slot length in minutes.
func (t TimeSlot) Minutes() int { return t.End - t.Start }

// StartClock renders the start minute as "HH:MM".
func (t TimeSlot) StartClock() string { return Clock(t.Start) }

// EndClock renders the end minute as "HH:MM".  An end of MinutesPerDay is
// shown as "23:59": the sentinel marks "until close of day" and must never
// leak into clock arithmetic as a 24th hour.
func (t TimeSlot) EndClock() string {
    if t.End == MinutesPerDay {
        return "23:59"
    }
    return Clock(t.End)
}

// Clock renders a minute-of-day as "HH:MM".
func Clock(minute int) string {
    return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// String renders the slot as "HH:MM-HH:MM" for messages and audit rows.
func (t TimeSlot) String() string {
    return t.StartClock() + "-" + t.EndClock()
}
