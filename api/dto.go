package api

import "time"

// Weekly rules

type WeeklyRuleRequest struct {
	DayOfWeek           *int    `json:"day_of_week" validate:"required,min=0,max=6"`
	StartTime           string  `json:"start_time" validate:"required,datetime=15:04"`
	EndTime             string  `json:"end_time" validate:"required,datetime=15:04"`
	SlotDurationMinutes int     `json:"slot_duration_minutes" validate:"required,min=1,max=1440"`
	BufferMinutes       int     `json:"buffer_minutes" validate:"min=0,max=1440"`
	Modality            *string `json:"modality,omitempty" validate:"omitempty,max=64"`
	LocationLabel       *string `json:"location_label,omitempty" validate:"omitempty,max=255"`
}

type WeeklyRuleResponse struct {
	ID                  string  `json:"id"`
	PractitionerID      string  `json:"practitioner_id"`
	DayOfWeek           int     `json:"day_of_week"`
	StartTime           string  `json:"start_time"`
	EndTime             string  `json:"end_time"`
	SlotDurationMinutes int     `json:"slot_duration_minutes"`
	BufferMinutes       int     `json:"buffer_minutes"`
	Modality            *string `json:"modality,omitempty"`
	LocationLabel       *string `json:"location_label,omitempty"`
}

// Exceptions

type ExceptionRequest struct {
	Date          string  `json:"date" validate:"required,datetime=2006-01-02"`
	IsUnavailable bool    `json:"is_unavailable"`
	BlockStart    *string `json:"block_start,omitempty" validate:"omitempty,datetime=15:04"`
	BlockEnd      *string `json:"block_end,omitempty" validate:"omitempty,datetime=15:04"`
	Note          *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

type ExceptionResponse struct {
	ID             string  `json:"id"`
	PractitionerID string  `json:"practitioner_id"`
	Date           string  `json:"date"`
	IsUnavailable  bool    `json:"is_unavailable"`
	BlockStart     *string `json:"block_start,omitempty"`
	BlockEnd       *string `json:"block_end,omitempty"`
	Note           *string `json:"note,omitempty"`
}

// Overrides

type OverrideRangeRequest struct {
	StartTime     string  `json:"start_time" validate:"required,datetime=15:04"`
	EndTime       string  `json:"end_time" validate:"required,datetime=15:04"`
	Modality      *string `json:"modality,omitempty" validate:"omitempty,max=64"`
	LocationLabel *string `json:"location_label,omitempty" validate:"omitempty,max=255"`
}

type OverrideRequest struct {
	Date                string                 `json:"date" validate:"required,datetime=2006-01-02"`
	IsUnavailable       bool                   `json:"is_unavailable"`
	SlotDurationMinutes int                    `json:"slot_duration_minutes" validate:"min=0,max=1440"`
	BufferMinutes       int                    `json:"buffer_minutes" validate:"min=0,max=1440"`
	Ranges              []OverrideRangeRequest `json:"ranges" validate:"dive"`
}

type OverrideRangeResponse struct {
	ID            string  `json:"id"`
	StartTime     string  `json:"start_time"`
	EndTime       string  `json:"end_time"`
	Modality      *string `json:"modality,omitempty"`
	LocationLabel *string `json:"location_label,omitempty"`
}

type OverrideResponse struct {
	ID                  string                  `json:"id"`
	PractitionerID      string                  `json:"practitioner_id"`
	Date                string                  `json:"date"`
	IsUnavailable       bool                    `json:"is_unavailable"`
	SlotDurationMinutes int                     `json:"slot_duration_minutes"`
	BufferMinutes       int                     `json:"buffer_minutes"`
	Ranges              []OverrideRangeResponse `json:"ranges"`
}

// Slots

type SlotResponse struct {
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Modality      string    `json:"modality,omitempty"`
	LocationLabel string    `json:"location_label,omitempty"`
}

// Bookings

type BookingRequest struct {
	PractitionerID string    `json:"practitioner_id" validate:"required"`
	ClientID       string    `json:"client_id" validate:"required"`
	Start          time.Time `json:"start" validate:"required"`
	Modality       *string   `json:"modality,omitempty" validate:"omitempty,max=64"`
}

type BookingRescheduleRequest struct {
	Start    time.Time `json:"start" validate:"required"`
	Modality *string   `json:"modality,omitempty" validate:"omitempty,max=64"`
}

type BookingResponse struct {
	ID             string    `json:"id"`
	PractitionerID string    `json:"practitioner_id"`
	ClientID       string    `json:"client_id"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Modality       *string   `json:"modality,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// Holds

type HoldRequest struct {
	PractitionerID string    `json:"practitioner_id" validate:"required"`
	Start          time.Time `json:"start" validate:"required"`
	End            time.Time `json:"end" validate:"required,gtfield=Start"`
	Reason         *string   `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type HoldConvertRequest struct {
	ClientID string  `json:"client_id" validate:"required"`
	Modality *string `json:"modality,omitempty" validate:"omitempty,max=64"`
}

type HoldResponse struct {
	ID             string    `json:"id"`
	PractitionerID string    `json:"practitioner_id"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Reason         *string   `json:"reason,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

type HoldConvertResponse struct {
	Hold    HoldResponse    `json:"hold"`
	Booking BookingResponse `json:"booking"`
}
