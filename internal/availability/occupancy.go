package availability

import (
	"time"

	"booking-service/internal/models"
)

// IsBookable reports whether w starts strictly after now and does not overlap any
// pending or confirmed booking, or any active hold.
func IsBookable(w Window, bookings []models.Booking, holds []models.Hold, now time.Time) bool {
	if !w.Start.After(now) {
		return false
	}

	for _, b := range bookings {
		if b.Status.Occupies() && w.Overlaps(b.Start, b.End) {
			return false
		}
	}

	for _, h := range holds {
		if h.Status.Occupies() && w.Overlaps(h.Start, h.End) {
			return false
		}
	}

	return true
}
