package offer

import "time"

const (
	msPerSecond = int64(1000)
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
	msPerDay    = 24 * msPerHour
)

// Remaining is the whole-unit breakdown of the time left before a deadline.
type Remaining struct {
	Days    int64 `json:"days"`
	Hours   int64 `json:"hours"`
	Minutes int64 `json:"minutes"`
	Seconds int64 `json:"seconds"`
}

// Milliseconds reconstitutes the breakdown as a millisecond count.
func (r Remaining) Milliseconds() int64 {
	return (((r.Days*24+r.Hours)*60+r.Minutes)*60 + r.Seconds) * msPerSecond
}

// Result is the outcome of one evaluation.
type Result struct {
	Remaining Remaining `json:"remaining"`
	Expired   bool      `json:"expired"`
}

// Evaluate compares now against deadline. It is pure: identical inputs give
// identical results.
func Evaluate(now, deadline time.Time) Result {
	if !now.Before(deadline) {
		return Result{Expired: true}
	}
	return Result{Remaining: Decompose(deadline.Sub(now).Milliseconds())}
}

// Decompose splits a non-negative millisecond difference into days, hours,
// minutes and seconds, truncating the sub-second remainder.
func Decompose(diff int64) Remaining {
	if diff <= 0 {
		return Remaining{}
	}
	return Remaining{
		Days:    diff / msPerDay,
		Hours:   (diff % msPerDay) / msPerHour,
		Minutes: (diff % msPerHour) / msPerMinute,
		Seconds: (diff % msPerMinute) / msPerSecond,
	}
}

// Clock reads the current instant. Implementations may fail; a failed read
// skips one poll.
type Clock interface {
	Now() (time.Time, error)
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() (time.Time, error)

// Now implements Clock.
func (f ClockFunc) Now() (time.Time, error) { return f() }

// SystemClock reads the process wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() (time.Time, error) { return time.Now(), nil }

// NowInZone reads clock and expresses the instant in loc. The instant itself
// is unchanged; only its presentation zone differs, so subtraction against a
// deadline never depends on the host zone.
func NowInZone(clock Clock, loc *time.Location) (time.Time, error) {
	if clock == nil {
		clock = SystemClock{}
	}
	now, err := clock.Now()
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		return now.UTC(), nil
	}
	return now.In(loc), nil
}
