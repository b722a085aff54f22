package availability

import (
	"fmt"
	"iter"
	"time"
)

// Zone converts between instants and the civil calendar of one operating timezone.
type Zone struct {
	loc *time.Location
}

func NewZone(loc *time.Location) Zone {
	if loc == nil {
		loc = time.UTC
	}
	return Zone{loc: loc}
}

func LoadZone(name string) (Zone, error) {
	const op = "availability.LoadZone"

	loc, err := time.LoadLocation(name)
	if err != nil {
		return Zone{}, fmt.Errorf("%s: %w", op, err)
	}

	return NewZone(loc), nil
}

func (z Zone) Location() *time.Location {
	if z.loc == nil {
		return time.UTC
	}
	return z.loc
}

// DateOf returns the civil date the instant falls on in this zone.
func (z Zone) DateOf(t time.Time) Date {
	return DateOf(t.In(z.Location()))
}

// At returns the instant of a civil date and time of day.
// Wall times skipped by a DST jump are normalized forward by time.Date.
func (z Zone) At(d Date, tod TimeOfDay) time.Time {
	return time.Date(d.Year, d.Month, d.Day, tod.Hour, tod.Minute, 0, 0, z.Location())
}

// StartOfDay is the first instant of d.
func (z Zone) StartOfDay(d Date) time.Time {
	return z.At(d, TimeOfDay{})
}

// Dates yields every civil date from date-of(from) through date-of(to), inclusive.
func (z Zone) Dates(from, to time.Time) iter.Seq[Date] {
	first, last := z.DateOf(from), z.DateOf(to)

	return func(yield func(Date) bool) {
		for d := first; !d.After(last); d = d.AddDays(1) {
			if !yield(d) {
				return
			}
		}
	}
}
