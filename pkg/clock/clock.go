// Package clock provides the calendar collaborator used by the engine.
//
// Streak and duplicate semantics are defined in terms of the consumer's
// local calendar day, so every component that reasons about days takes a
// Clock instead of calling time.Now directly. Tests pin time with Fixed.
package clock

import (
	"fmt"
	"time"
)

const hoursPerDay = 24

// Day identifies one calendar day. The zero value means "no day".
type Day struct {
	Year  int
	Month time.Month
	Dom   int
}

// DayOf truncates t to its calendar day in the given location.
func DayOf(t time.Time, loc *time.Location) Day {
	y, m, d := t.In(loc).Date()
	return Day{Year: y, Month: m, Dom: d}
}

// IsZero reports whether d is the "no day" value.
func (d Day) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Dom == 0
}

// Time returns the day at midnight UTC, used for day arithmetic.
func (d Day) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Dom, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the day n days after d (n may be negative).
func (d Day) AddDays(n int) Day {
	t := d.Time().AddDate(0, 0, n)
	y, m, dom := t.Date()
	return Day{Year: y, Month: m, Dom: dom}
}

// Before reports whether d is strictly earlier than o.
func (d Day) Before(o Day) bool {
	return d.Time().Before(o.Time())
}

// String formats the day as YYYY-MM-DD.
func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Dom)
}

// Clock is the clock/calendar contract consumed by the engine.
type Clock interface {
	// Now returns the current instant.
	Now() time.Time

	// StartOfDay maps an instant to its calendar day.
	StartOfDay(t time.Time) Day

	// DaysBetween returns b - a in whole days (negative when b is earlier).
	DaysBetween(a, b Day) int
}

// System implements Clock against the real wall clock.
type System struct {
	loc *time.Location
}

// NewSystem creates a system clock using the given location.
// A nil location falls back to time.Local.
func NewSystem(loc *time.Location) *System {
	if loc == nil {
		loc = time.Local
	}
	return &System{loc: loc}
}

// Now returns the current wall-clock time.
func (s *System) Now() time.Time {
	return time.Now().In(s.loc)
}

// StartOfDay maps t to its calendar day in the clock's location.
func (s *System) StartOfDay(t time.Time) Day {
	return DayOf(t, s.loc)
}

// DaysBetween returns the whole-day distance from a to b.
func (s *System) DaysBetween(a, b Day) int {
	return daysBetween(a, b)
}

// Fixed implements Clock with a settable current time, for tests.
type Fixed struct {
	current time.Time
	loc     *time.Location
}

// NewFixed creates a fixed clock pinned at t. Day boundaries use t's location.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{current: t, loc: t.Location()}
}

// Now returns the pinned instant.
func (f *Fixed) Now() time.Time {
	return f.current
}

// Set moves the pinned instant.
func (f *Fixed) Set(t time.Time) {
	f.current = t
}

// Advance moves the pinned instant forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.current = f.current.Add(d)
}

// StartOfDay maps t to its calendar day in the pinned location.
func (f *Fixed) StartOfDay(t time.Time) Day {
	return DayOf(t, f.loc)
}

// DaysBetween returns the whole-day distance from a to b.
func (f *Fixed) DaysBetween(a, b Day) int {
	return daysBetween(a, b)
}

func daysBetween(a, b Day) int {
	return int(b.Time().Sub(a.Time()).Hours() / hoursPerDay)
}
