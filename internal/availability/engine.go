package availability

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"time"

	"booking-service/internal/models"
	"booking-service/pkg/response"
)

var ErrInvalidRange = errors.New("to is before from")

// Source is the read side of the data store. Date arguments are midnight UTC of civil dates;
// instant arguments bound an overlap query.
type Source interface {
	GetPractitioner(ctx context.Context, practitionerID string) (*models.Practitioner, error)
	ListWeeklyRules(ctx context.Context, practitionerID string) ([]models.WeeklyRule, error)
	ListExceptions(ctx context.Context, practitionerID string, fromDate, toDate time.Time) ([]models.ExceptionDate, error)
	ListOverrides(ctx context.Context, practitionerID string, fromDate, toDate time.Time) ([]models.DateOverride, error)
	ListActiveBookings(ctx context.Context, practitionerID string, from, to time.Time) ([]models.Booking, error)
	ListActiveHolds(ctx context.Context, practitionerID string, from, to time.Time) ([]models.Hold, error)
}

// Slot is a computed bookable window. It is never stored.
type Slot struct {
	Start         time.Time
	End           time.Time
	Modality      string
	LocationLabel string
}

// Snapshot holds everything one computation reads.
type Snapshot struct {
	Rules    RuleSet
	Bookings []models.Booking
	Holds    []models.Hold
}

type Engine struct {
	log    *slog.Logger
	source Source
	zone   Zone
	now    func() time.Time
}

type Option func(*Engine)

// WithClock replaces time.Now as the cutoff for past slots.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(log *slog.Logger, source Source, zone Zone, opts ...Option) *Engine {
	e := &Engine{
		log:    log,
		source: source,
		zone:   zone,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Zone() Zone {
	return e.zone
}

// GetAvailableSlots returns the bookable slots of a practitioner on every civil date from
// date-of(from) to date-of(to), sorted by start. A missing or inactive practitioner has no slots.
func (e *Engine) GetAvailableSlots(ctx context.Context, practitionerID string, from, to time.Time, modality string) ([]Slot, error) {
	const op = "availability.Engine.GetAvailableSlots"

	if to.Before(from) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidRange)
	}

	now := e.now()

	p, err := e.source.GetPractitioner(ctx, practitionerID)
	if errors.Is(err, response.ErrNotFound) {
		return []Slot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !p.IsActive {
		return []Slot{}, nil
	}

	snap, err := e.load(ctx, practitionerID, e.zone.DateOf(from), e.zone.DateOf(to))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	slots, err := Compute(e.zone, snap, e.zone.Dates(from, to), modality, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	e.log.Debug("availability computed",
		slog.String("op", op),
		slog.String("practitioner_id", practitionerID),
		slog.String("modality", modality),
		slog.Int("bookings", len(snap.Bookings)),
		slog.Int("holds", len(snap.Holds)),
		slog.Int("slots", len(slots)),
	)

	return slots, nil
}

// FindSlot returns the available slot starting exactly at start, if any.
func (e *Engine) FindSlot(ctx context.Context, practitionerID string, start time.Time, modality string) (Slot, bool, error) {
	const op = "availability.Engine.FindSlot"

	slots, err := e.GetAvailableSlots(ctx, practitionerID, start, start, modality)
	if err != nil {
		return Slot{}, false, fmt.Errorf("%s: %w", op, err)
	}

	for _, s := range slots {
		if s.Start.Equal(start) {
			return s, true, nil
		}
	}

	return Slot{}, false, nil
}

func (e *Engine) load(ctx context.Context, practitionerID string, first, last Date) (Snapshot, error) {
	// Expanded slots may run past midnight of the last day, so occupancy covers one extra day.
	windowStart := e.zone.StartOfDay(first)
	windowEnd := e.zone.StartOfDay(last.AddDays(2))

	weekly, err := e.source.ListWeeklyRules(ctx, practitionerID)
	if err != nil {
		return Snapshot{}, err
	}

	exceptions, err := e.source.ListExceptions(ctx, practitionerID, first.Time(), last.Time())
	if err != nil {
		return Snapshot{}, err
	}

	overrides, err := e.source.ListOverrides(ctx, practitionerID, first.Time(), last.Time())
	if err != nil {
		return Snapshot{}, err
	}

	bookings, err := e.source.ListActiveBookings(ctx, practitionerID, windowStart, windowEnd)
	if err != nil {
		return Snapshot{}, err
	}

	holds, err := e.source.ListActiveHolds(ctx, practitionerID, windowStart, windowEnd)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		Rules:    NewRuleSet(weekly, exceptions, overrides),
		Bookings: bookings,
		Holds:    holds,
	}, nil
}

// Compute is the pure part of the engine: resolve, expand and filter every day, then sort.
func Compute(zone Zone, snap Snapshot, days iter.Seq[Date], modality string, now time.Time) ([]Slot, error) {
	slots := []Slot{}

	for day := range days {
		sched, err := Resolve(day, snap.Rules, modality)
		if err != nil {
			return nil, err
		}

		for _, c := range candidates(zone, day, sched) {
			for w := range Expand(c.start, c.end, c.duration, c.buffer) {
				if !IsBookable(w, snap.Bookings, snap.Holds, now) {
					continue
				}

				slotModality := c.modality
				if slotModality == "" {
					slotModality = modality
				}

				slots = append(slots, Slot{
					Start:         w.Start.UTC(),
					End:           w.End.UTC(),
					Modality:      slotModality,
					LocationLabel: c.location,
				})
			}
		}
	}

	slices.SortStableFunc(slots, compareSlots)

	return dropOverlapping(slots), nil
}

// compareSlots orders by start, then modality, then location label.
func compareSlots(a, b Slot) int {
	return cmp.Or(
		a.Start.Compare(b.Start),
		cmp.Compare(a.Modality, b.Modality),
		cmp.Compare(a.LocationLabel, b.LocationLabel),
	)
}

// candidate is one absolute range ready for expansion.
type candidate struct {
	start    time.Time
	end      time.Time
	duration time.Duration
	buffer   time.Duration
	modality string
	location string
}

func candidates(zone Zone, day Date, sched DaySchedule) []candidate {
	switch s := sched.(type) {
	case OverrideSchedule:
		out := make([]candidate, 0, len(s.Ranges))
		for _, r := range s.Ranges {
			out = append(out, candidate{
				start:    zone.At(day, r.Start),
				end:      zone.At(day, r.End),
				duration: s.SlotDuration,
				buffer:   s.Buffer,
				modality: r.Modality,
				location: r.LocationLabel,
			})
		}
		return out

	case WeeklySchedule:
		out := make([]candidate, 0, len(s.Rules))
		applied := s.PartialBlock == nil
		for _, r := range s.Rules {
			start := r.Start

			// The block only moves the start of the first range it touches to the block end.
			if !applied && s.PartialBlock.Start.Before(r.End) && r.Start.Before(s.PartialBlock.End) {
				applied = true
				if !s.PartialBlock.End.Before(r.End) {
					continue
				}
				start = s.PartialBlock.End
			}

			out = append(out, candidate{
				start:    zone.At(day, start),
				end:      zone.At(day, r.End),
				duration: r.SlotDuration,
				buffer:   r.Buffer,
				modality: r.Modality,
				location: r.LocationLabel,
			})
		}
		return out
	}

	return nil
}

// dropOverlapping keeps the first of any slots that overlap, so rules sharing hours on one
// weekday never offer the same time twice. slots must be sorted by start.
func dropOverlapping(slots []Slot) []Slot {
	out := slots[:0]
	var lastEnd time.Time

	for _, s := range slots {
		if len(out) > 0 && s.Start.Before(lastEnd) {
			continue
		}
		out = append(out, s)
		lastEnd = s.End
	}

	return out
}
