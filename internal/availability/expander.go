package availability

import (
	"iter"
	"time"
)

// Window is a half-open interval of absolute instants.
type Window struct {
	Start time.Time
	End   time.Time
}

// Overlaps uses half-open semantics: windows that only touch do not overlap.
func (w Window) Overlaps(start, end time.Time) bool {
	return w.Start.Before(end) && w.End.After(start)
}

// Expand yields consecutive slots of length duration separated by buffer, starting at start,
// for as long as a slot ends at or before end.
//
// A range too short to hold a single slot has its end pushed forward by one duration, so a
// nearly fitting slot is still offered instead of dropping the range.
//
// The sequence is finite and can be ranged over any number of times.
func Expand(start, end time.Time, duration, buffer time.Duration) iter.Seq[Window] {
	return func(yield func(Window) bool) {
		if duration <= 0 || buffer < 0 || !end.After(start) {
			return
		}

		end = extendTrailing(start, end, duration)
		step := duration + buffer

		for cur := start; !cur.Add(duration).After(end); cur = cur.Add(step) {
			if !yield(Window{Start: cur, End: cur.Add(duration)}) {
				return
			}
		}
	}
}

// extendTrailing applies the trailing-remainder rule: when the range is not a multiple of
// duration and the leftover is shorter than the one slot it would need, end moves forward by
// one duration. Ranges that already hold a slot keep their end.
func extendTrailing(start, end time.Time, duration time.Duration) time.Time {
	span := end.Sub(start)
	if span%duration == 0 {
		return end
	}
	if span < duration {
		return end.Add(duration)
	}
	return end
}
