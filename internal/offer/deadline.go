package offer

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnknownZone indicates the configured timezone could not be loaded.
	ErrUnknownZone = errors.New("offer: unknown timezone")
	// ErrInvalidDeadline indicates a malformed deadline template or civil time.
	ErrInvalidDeadline = errors.New("offer: invalid deadline")
)

// deadlineLayout is the month-day-time template accepted by ParseDeadline.
const deadlineLayout = "01-02T15:04:05"

// CivilTime is a calendar date and wall-clock time without an offset.
type CivilTime struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
	Second int
}

// String renders the civil time as YYYY-MM-DDTHH:MM:SS.
func (c CivilTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d", c.Year, int(c.Month), c.Day, c.Hour, c.Minute, c.Second)
}

// CivilTimeInZoneToInstant converts a civil time in loc to an absolute instant.
//
// The conversion is zone-aware: the offset in effect at that civil time is
// applied, daylight-saving included. Civil times that fall into a spring-forward
// gap resolve the way time.Date does; fields that would be normalised (Feb 30,
// hour 24) are rejected.
func CivilTimeInZoneToInstant(civil CivilTime, loc *time.Location) (time.Time, error) {
	if loc == nil {
		return time.Time{}, fmt.Errorf("%w: nil location", ErrUnknownZone)
	}
	if civil.Month < time.January || civil.Month > time.December ||
		civil.Hour < 0 || civil.Hour > 23 ||
		civil.Minute < 0 || civil.Minute > 59 ||
		civil.Second < 0 || civil.Second > 59 {
		return time.Time{}, fmt.Errorf("%w: %s out of range", ErrInvalidDeadline, civil)
	}
	t := time.Date(civil.Year, civil.Month, civil.Day, civil.Hour, civil.Minute, civil.Second, 0, loc)
	if t.Year() != civil.Year || t.Month() != civil.Month || t.Day() != civil.Day {
		return time.Time{}, fmt.Errorf("%w: %s is not a calendar date", ErrInvalidDeadline, civil)
	}
	return t, nil
}

// LoadZone resolves an IANA zone name. An empty name is rejected rather than
// falling back to UTC.
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty zone name", ErrUnknownZone)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnknownZone, name, err)
	}
	return loc, nil
}

// Deadline is a yearly civil cut-off evaluated in a fixed zone.
type Deadline struct {
	Month  time.Month
	Day    int
	Hour   int
	Minute int
	Second int
	Zone   *time.Location
}

// ParseDeadline builds a Deadline from a "MM-DDTHH:MM:SS" template and a zone name.
func ParseDeadline(template, zone string) (Deadline, error) {
	loc, err := LoadZone(zone)
	if err != nil {
		return Deadline{}, err
	}
	parsed, err := time.Parse(deadlineLayout, template)
	if err != nil {
		return Deadline{}, fmt.Errorf("%w: %q: %v", ErrInvalidDeadline, template, err)
	}
	return Deadline{
		Month:  parsed.Month(),
		Day:    parsed.Day(),
		Hour:   parsed.Hour(),
		Minute: parsed.Minute(),
		Second: parsed.Second(),
		Zone:   loc,
	}, nil
}

// Civil returns the deadline's civil time for year.
func (d Deadline) Civil(year int) CivilTime {
	return CivilTime{Year: year, Month: d.Month, Day: d.Day, Hour: d.Hour, Minute: d.Minute, Second: d.Second}
}

// Instant returns the absolute instant of the deadline in the given year.
func (d Deadline) Instant(year int) (time.Time, error) {
	return CivilTimeInZoneToInstant(d.Civil(year), d.Zone)
}

// YearAt reports the calendar year in the deadline's zone at instant t.
func (d Deadline) YearAt(t time.Time) int {
	if d.Zone == nil {
		return t.UTC().Year()
	}
	return t.In(d.Zone).Year()
}
