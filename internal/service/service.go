package service

import (
	"booking-service/internal/availability"
	"booking-service/internal/lock"
	"booking-service/internal/models"
	"booking-service/pkg/response"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Service struct {
	log      *slog.Logger
	store    Store
	locker   lock.Locker
	engine   SlotEngine
	validate *validator.Validate
	lockTTL  time.Duration
	now      func() time.Time
}

func NewService(log *slog.Logger, store Store, locker lock.Locker, engine SlotEngine, lockTTL time.Duration) *Service {
	return &Service{
		log:      log,
		store:    store,
		locker:   locker,
		engine:   engine,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		lockTTL:  lockTTL,
		now:      time.Now,
	}
}

type SlotEngine interface {
	GetAvailableSlots(ctx context.Context, practitionerID string, from, to time.Time, modality string) ([]availability.Slot, error)
	FindSlot(ctx context.Context, practitionerID string, start time.Time, modality string) (availability.Slot, bool, error)
}

type Store interface {
	availability.Source

	// Weekly rules
	GetWeeklyRule(ctx context.Context, id string) (*models.WeeklyRule, error)
	CreateWeeklyRule(ctx context.Context, r *models.WeeklyRule) error
	UpdateWeeklyRule(ctx context.Context, r *models.WeeklyRule) error
	DeleteWeeklyRule(ctx context.Context, id string) error

	// Exceptions
	CreateException(ctx context.Context, e *models.ExceptionDate) error
	DeleteException(ctx context.Context, id string) error

	// Overrides
	CreateOverride(ctx context.Context, o *models.DateOverride) error
	DeleteOverride(ctx context.Context, id string) error

	// Bookings
	CreateBooking(ctx context.Context, b *models.Booking) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id string, from []models.BookingStatus, status models.BookingStatus) error
	RescheduleBooking(ctx context.Context, oldID string, b *models.Booking) error

	// Holds
	CreateHold(ctx context.Context, h *models.Hold) error
	GetHold(ctx context.Context, id string) (*models.Hold, error)
	ReleaseHold(ctx context.Context, id string) error
	ConvertHold(ctx context.Context, holdID string, b *models.Booking) error
}

func newID() string {
	return uuid.NewString()
}

func badRequest(op, msg string) error {
	return fmt.Errorf("%s: %w: %s", op, response.ErrBadRequest, msg)
}

// acquire takes the practitioner write lock. The returned func releases it.
func (s *Service) acquire(ctx context.Context, op, practitionerID string) (func(), error) {
	key := lock.PractitionerKey(practitionerID)

	token, locked, err := s.locker.Lock(ctx, key, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: lock error: %w", op, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", op, response.ErrLocked)
	}

	return func() {
		if err := s.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			s.log.Warn("failed to release lock",
				slog.String("op", op),
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
