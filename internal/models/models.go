package models

import "time"

type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING_CONFIRMATION"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// Occupies reports whether a booking in this status blocks its window.
func (s BookingStatus) Occupies() bool {
	return s == BookingPending || s == BookingConfirmed
}

type HoldStatus string

const (
	HoldActive    HoldStatus = "HOLD"
	HoldConverted HoldStatus = "CONVERTED"
	HoldReleased  HoldStatus = "RELEASED"
)

func (s HoldStatus) Occupies() bool {
	return s == HoldActive
}

type Practitioner struct {
	PractitionerID string `db:"practitioner_id"`
	Name           string `db:"name"`
	IsActive       bool   `db:"is_active"`
}

// WeeklyRule times are civil "15:04" strings in the operating timezone.
type WeeklyRule struct {
	ID                  string  `db:"id"`
	PractitionerID      string  `db:"practitioner_id"`
	DayOfWeek           int     `db:"day_of_week"`
	StartTime           string  `db:"start_time"`
	EndTime             string  `db:"end_time"`
	SlotDurationMinutes int     `db:"slot_duration_minutes"`
	BufferMinutes       int     `db:"buffer_minutes"`
	Modality            *string `db:"modality"`
	LocationLabel       *string `db:"location_label"`
}

type ExceptionDate struct {
	ID             string    `db:"id"`
	PractitionerID string    `db:"practitioner_id"`
	Date           time.Time `db:"exception_date"`
	IsUnavailable  bool      `db:"is_unavailable"`
	BlockStart     *string   `db:"block_start"`
	BlockEnd       *string   `db:"block_end"`
	Note           *string   `db:"note"`
}

// HasPartialBlock is true when the exception blocks only part of the day.
func (e *ExceptionDate) HasPartialBlock() bool {
	return !e.IsUnavailable && e.BlockStart != nil && e.BlockEnd != nil
}

type DateOverride struct {
	ID                  string    `db:"id"`
	PractitionerID      string    `db:"practitioner_id"`
	Date                time.Time `db:"override_date"`
	IsUnavailable       bool      `db:"is_unavailable"`
	SlotDurationMinutes int       `db:"slot_duration_minutes"`
	BufferMinutes       int       `db:"buffer_minutes"`
	Ranges              []OverrideRange
}

type OverrideRange struct {
	ID            string  `db:"id"`
	OverrideID    string  `db:"override_id"`
	StartTime     string  `db:"start_time"`
	EndTime       string  `db:"end_time"`
	Modality      *string `db:"modality"`
	LocationLabel *string `db:"location_label"`
}

type Booking struct {
	ID             string        `db:"id"`
	PractitionerID string        `db:"practitioner_id"`
	ClientID       string        `db:"client_id"`
	Start          time.Time     `db:"start_at"`
	End            time.Time     `db:"end_at"`
	Modality       *string       `db:"modality"`
	Status         BookingStatus `db:"status"`
	CreatedAt      time.Time     `db:"created_at"`
}

type Hold struct {
	ID             string     `db:"id"`
	PractitionerID string     `db:"practitioner_id"`
	Start          time.Time  `db:"start_at"`
	End            time.Time  `db:"end_at"`
	Reason         *string    `db:"reason"`
	Status         HoldStatus `db:"status"`
	CreatedAt      time.Time  `db:"created_at"`
}
