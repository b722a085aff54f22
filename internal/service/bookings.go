package service

import (
	"booking-service/api"
	"booking-service/internal/availability"
	"booking-service/internal/models"
	"booking-service/pkg/response"
	"context"
	"fmt"
	"log/slog"
)

// Bookings

// CreateBooking books the available slot starting at req.Start. The practitioner lock, a fresh
// availability check and the unique index on active bookings all guard the same slot; losing
// at any of them is ErrSlotNotAvailable (or ErrLocked while another write is in flight).
func (s *Service) CreateBooking(ctx context.Context, req *api.BookingRequest) (*api.BookingResponse, error) {
	const op = "service.CreateBooking"

	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	unlock, err := s.acquire(ctx, op, req.PractitionerID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	slot, ok, err := s.engine.FindSlot(ctx, req.PractitionerID, req.Start.UTC(), deref(req.Modality))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, response.ErrSlotNotAvailable)
	}

	booking := &models.Booking{
		ID:             newID(),
		PractitionerID: req.PractitionerID,
		ClientID:       req.ClientID,
		Start:          slot.Start,
		End:            slot.End,
		Modality:       optional(slot.Modality),
		Status:         models.BookingPending,
	}

	if err := s.store.CreateBooking(ctx, booking); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("booking created",
		slog.String("op", op),
		slog.String("booking_id", booking.ID),
		slog.String("practitioner_id", booking.PractitionerID),
		slog.Time("start", booking.Start),
	)

	return toBookingResponse(booking), nil
}

func (s *Service) GetBooking(ctx context.Context, id string) (*api.BookingResponse, error) {
	const op = "service.GetBooking"

	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return toBookingResponse(booking), nil
}

func (s *Service) ConfirmBooking(ctx context.Context, id string) (*api.BookingResponse, error) {
	const op = "service.ConfirmBooking"

	err := s.store.UpdateBookingStatus(ctx, id,
		[]models.BookingStatus{models.BookingPending},
		models.BookingConfirmed,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.GetBooking(ctx, id)
}

func (s *Service) CancelBooking(ctx context.Context, id string) (*api.BookingResponse, error) {
	const op = "service.CancelBooking"

	err := s.store.UpdateBookingStatus(ctx, id,
		[]models.BookingStatus{models.BookingPending, models.BookingConfirmed},
		models.BookingCancelled,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("booking cancelled", slog.String("op", op), slog.String("booking_id", id))

	return s.GetBooking(ctx, id)
}

// RescheduleBooking moves an active booking to the available slot starting at req.Start. The old
// booking is cancelled and a new one with the same client and status takes its place.
func (s *Service) RescheduleBooking(ctx context.Context, id string, req *api.BookingRescheduleRequest) (*api.BookingResponse, error) {
	const op = "service.RescheduleBooking"

	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	current, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !current.Status.Occupies() {
		return nil, fmt.Errorf("%s: %w", op, response.ErrInvalidState)
	}

	unlock, err := s.acquire(ctx, op, current.PractitionerID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	slot, ok, err := s.engine.FindSlot(ctx, current.PractitionerID, req.Start.UTC(), deref(req.Modality))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, response.ErrSlotNotAvailable)
	}

	booking := &models.Booking{
		ID:       newID(),
		Start:    slot.Start,
		End:      slot.End,
		Modality: optional(slot.Modality),
	}

	if err := s.store.RescheduleBooking(ctx, id, booking); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("booking rescheduled",
		slog.String("op", op),
		slog.String("from_booking_id", id),
		slog.String("booking_id", booking.ID),
		slog.Time("start", booking.Start),
	)

	return toBookingResponse(booking), nil
}

func toBookingResponse(b *models.Booking) *api.BookingResponse {
	return &api.BookingResponse{
		ID:             b.ID,
		PractitionerID: b.PractitionerID,
		ClientID:       b.ClientID,
		Start:          b.Start,
		End:            b.End,
		Modality:       b.Modality,
		Status:         string(b.Status),
		CreatedAt:      b.CreatedAt,
	}
}

// Holds

// CreateHold reserves [req.Start, req.End) for an active practitioner. The window must lie in
// the future and must not overlap an active booking or hold.
func (s *Service) CreateHold(ctx context.Context, req *api.HoldRequest) (*api.HoldResponse, error) {
	const op = "service.CreateHold"

	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	window := availability.Window{Start: req.Start.UTC(), End: req.End.UTC()}
	if !window.Start.After(s.now()) {
		return nil, badRequest(op, "hold must start in the future")
	}

	practitioner, err := s.store.GetPractitioner(ctx, req.PractitionerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !practitioner.IsActive {
		return nil, fmt.Errorf("%s: %w", op, response.ErrSlotNotAvailable)
	}

	unlock, err := s.acquire(ctx, op, req.PractitionerID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	bookings, err := s.store.ListActiveBookings(ctx, req.PractitionerID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	holds, err := s.store.ListActiveHolds(ctx, req.PractitionerID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for _, b := range bookings {
		if b.Status.Occupies() && window.Overlaps(b.Start, b.End) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrSlotNotAvailable)
		}
	}
	for _, h := range holds {
		if h.Status.Occupies() && window.Overlaps(h.Start, h.End) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrSlotNotAvailable)
		}
	}

	hold := &models.Hold{
		ID:             newID(),
		PractitionerID: req.PractitionerID,
		Start:          window.Start,
		End:            window.End,
		Reason:         req.Reason,
		Status:         models.HoldActive,
	}

	if err := s.store.CreateHold(ctx, hold); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("hold created",
		slog.String("op", op),
		slog.String("hold_id", hold.ID),
		slog.String("practitioner_id", hold.PractitionerID),
	)

	return toHoldResponse(hold), nil
}

func (s *Service) GetHold(ctx context.Context, id string) (*api.HoldResponse, error) {
	const op = "service.GetHold"

	hold, err := s.store.GetHold(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return toHoldResponse(hold), nil
}

func (s *Service) ReleaseHold(ctx context.Context, id string) (*api.HoldResponse, error) {
	const op = "service.ReleaseHold"

	if err := s.store.ReleaseHold(ctx, id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.GetHold(ctx, id)
}

// ConvertHold turns an active hold into a confirmed booking over the same window.
func (s *Service) ConvertHold(ctx context.Context, id string, req *api.HoldConvertRequest) (*api.HoldConvertResponse, error) {
	const op = "service.ConvertHold"

	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hold, err := s.store.GetHold(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if hold.Status != models.HoldActive {
		return nil, fmt.Errorf("%s: %w", op, response.ErrInvalidState)
	}

	unlock, err := s.acquire(ctx, op, hold.PractitionerID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	booking := &models.Booking{
		ID:       newID(),
		ClientID: req.ClientID,
		Modality: req.Modality,
		Status:   models.BookingConfirmed,
	}

	if err := s.store.ConvertHold(ctx, id, booking); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	converted, err := s.store.GetHold(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("hold converted",
		slog.String("op", op),
		slog.String("hold_id", id),
		slog.String("booking_id", booking.ID),
	)

	return &api.HoldConvertResponse{
		Hold:    *toHoldResponse(converted),
		Booking: *toBookingResponse(booking),
	}, nil
}

func toHoldResponse(h *models.Hold) *api.HoldResponse {
	return &api.HoldResponse{
		ID:             h.ID,
		PractitionerID: h.PractitionerID,
		Start:          h.Start,
		End:            h.End,
		Reason:         h.Reason,
		Status:         string(h.Status),
		CreatedAt:      h.CreatedAt,
	}
}
