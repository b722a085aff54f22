package availability

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"booking-service/internal/models"
	"booking-service/pkg/response"
)

var brt = time.FixedZone("BRT", -3*60*60)

// Monday.
var testDay = Date{Year: 2030, Month: time.January, Day: 7}

type fakeSource struct {
	practitioner *models.Practitioner
	rules        []models.WeeklyRule
	exceptions   []models.ExceptionDate
	overrides    []models.DateOverride
	bookings     []models.Booking
	holds        []models.Hold
	err          error
	loads        int
}

func (f *fakeSource) GetPractitioner(_ context.Context, id string) (*models.Practitioner, error) {
	f.loads++
	if f.err != nil {
		return nil, f.err
	}
	if f.practitioner == nil || f.practitioner.PractitionerID != id {
		return nil, response.ErrNotFound
	}
	return f.practitioner, nil
}

func (f *fakeSource) ListWeeklyRules(context.Context, string) ([]models.WeeklyRule, error) {
	return f.rules, nil
}

func (f *fakeSource) ListExceptions(context.Context, string, time.Time, time.Time) ([]models.ExceptionDate, error) {
	return f.exceptions, nil
}

func (f *fakeSource) ListOverrides(context.Context, string, time.Time, time.Time) ([]models.DateOverride, error) {
	return f.overrides, nil
}

func (f *fakeSource) ListActiveBookings(context.Context, string, time.Time, time.Time) ([]models.Booking, error) {
	return f.bookings, nil
}

func (f *fakeSource) ListActiveHolds(context.Context, string, time.Time, time.Time) ([]models.Hold, error) {
	return f.holds, nil
}

func strPtr(s string) *string { return &s }

func at(hour, minute int) time.Time {
	return time.Date(testDay.Year, testDay.Month, testDay.Day, hour, minute, 0, 0, brt)
}

func mondayRule(start, end string, slot, buffer int) models.WeeklyRule {
	return models.WeeklyRule{
		ID:                  "rule-" + start,
		PractitionerID:      "p1",
		DayOfWeek:           int(time.Monday),
		StartTime:           start,
		EndTime:             end,
		SlotDurationMinutes: slot,
		BufferMinutes:       buffer,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(src *fakeSource, now time.Time) *Engine {
	return NewEngine(discardLogger(), src, NewZone(brt), WithClock(func() time.Time { return now }))
}

func activePractitioner() *models.Practitioner {
	return &models.Practitioner{PractitionerID: "p1", Name: "Dr. Ana", IsActive: true}
}

func slotsForTestDay(t *testing.T, src *fakeSource, modality string) []Slot {
	t.Helper()
	e := newTestEngine(src, at(0, 0).AddDate(0, 0, -7))
	slots, err := e.GetAvailableSlots(context.Background(), "p1", at(0, 0), at(23, 59), modality)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return slots
}

func assertStarts(t *testing.T, slots []Slot, want ...time.Time) {
	t.Helper()
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %d: %v", len(want), len(slots), slots)
	}
	for i, w := range want {
		if !slots[i].Start.Equal(w) {
			t.Errorf("slot %d: expected start %v, got %v", i, w, slots[i].Start.In(brt))
		}
	}
}

func TestGetAvailableSlots_WeeklyRule(t *testing.T) {
	src := &fakeSource{
		practitioner: activePractitioner(),
		rules:        []models.WeeklyRule{mondayRule("09:00", "18:00", 50, 10)},
	}

	slots := slotsForTestDay(t, src, "")

	if len(slots) != 9 {
		t.Fatalf("expected 9 slots, got %d", len(slots))
	}
	if !slots[0].Start.Equal(at(9, 0)) || !slots[0].End.Equal(at(9, 50)) {
		t.Errorf("expected first slot 09:00-09:50, got %v-%v", slots[0].Start.In(brt), slots[0].End.In(brt))
	}
	if !slots[1].Start.Equal(at(10, 0)) || !slots[1].End.Equal(at(10, 50)) {
		t.Errorf("expected second slot 10:00-10:50, got %v-%v", slots[1].Start.In(brt), slots[1].End.In(brt))
	}
	last := slots[len(slots)-1]
	if !last.Start.Equal(at(17, 0)) || !last.End.Equal(at(17, 50)) {
		t.Errorf("expected last slot 17:00-17:50, got %v-%v", last.Start.In(brt), last.End.In(brt))
	}
	for _, s := range slots {
		if s.Start.Location() != time.UTC {
			t.Errorf("expected UTC output, got %v", s.Start.Location())
		}
	}
}

func TestGetAvailableSlots_ConfirmedBookingExcluded(t *testing.T) {
	src := &fakeSource{
		practitioner: activePractitioner(),
		rules:        []models.WeeklyRule{mondayRule("09:00", "18:00", 50, 10)},
		bookings: []models.Booking{
			{ID: "b1", PractitionerID: "p1", Start: at(10, 0), End: at(10, 50), Status: models.BookingConfirmed},
		},
	}

	slots := slotsForTestDay(t, src, "")

	if len(slots) != 8 {
		t.Fatalf("expected 8 slots, got %d", len(slots))
	}
	if !slots[0].Start.Equal(at(9, 0)) || !slots[1].Start.Equal(at(11, 0)) {
		t.Errorf("expected 09:00 then 11:00, got %v then %v", slots[0].Start.In(brt), slots[1].Start.In(brt))
	}
	for _, s := range slots {
		if s.Start.Equal(at(10, 0)) {
			t.Fatal("10:00 slot should be booked")
		}
	}
}

func TestGetAvailableSlots_CancelledBookingIgnored(t *testing.T) {
	src := &fakeSource{
		practitioner: activePractitioner(),
		rules:        []models.WeeklyRule{mondayRule("09:00", "11:00", 60, 0)},
		bookings: []models.Booking{
			{ID: "b1", Start: at(9, 0), End: at(10, 0), Status: models.BookingCancelled},
			{ID: "b2", Start: at(10, 0), End: at(11, 0), Status: models.BookingPending},
		},
	}

	assertStarts(t, slotsForTestDay(t, src, ""), at(9, 0))
}

func TestGetAvailableSlots_OverrideUnavailable(t *testing.T) {
	src := &fakeSource{
		practitioner: activePractitioner(),
		rules:        []models.WeeklyRule{mondayRule("09:00", "18:00", 50, 10)},
		overrides: []models.DateOverride{
			{ID: "o1", Date: testDay.Time(), IsUnavailable: true, SlotDurationMinutes: 30},
		},
	}

	if slots := slotsForTestDay(t, src, ""); len(slots) != 0 {
		t.Fatalf("expected no slots, got %d", len(slots))
	}
}

func TestGetAvailableSlots_OverrideReplacesWeeklyAndException(t *testing.T) {
	src := &fakeSource{
		practitioner: activePractitioner(),
		rules:        []models.WeeklyRule{mondayRule("09:00", "18:00", 50, 10)},
		exceptions: []models.ExceptionDate{
			{ID: "e1", Date: testDay.Time(), IsUnavailable: true},
		},
		overrides: []models.DateOverride{{
			ID:                  "o1",
			Date:                testDay.Time(),
			SlotDurationMinutes: 30,
			BufferMinutes:       15,
			Ranges: []models.OverrideRange{
				{ID: "r2", StartTime: "14:00", EndTime: "15:00", Modality: strPtr("online")},
				{ID: "r1", StartTime: "08:00", EndTime: "09:00", LocationLabel: strPtr("Clinic A")},
			},
		}},
	}

	slots := slotsForTestDay(t, src, "")

	assertStarts(t, slots, at(8, 0), at(14, 0))
	if slots[0].LocationLabel != "Clinic A" {
		t.Errorf("expected location Clinic A, got %q", slots[0].LocationLabel)
	}
	if slots[1].Modality != "online" {
		t.Errorf("expected modality online, got %q", slots[1].Modality)
	}
	for _, s := range slots {
		if s.End.Sub(s.Start) != 30*time.Minute {
			t.Errorf("expected 30 minute slot, got %v", s.End.Sub(s.Start))
		}
	}
}

func TestGetAvailableSlots_FullDayException(t *testing.T) {
	src := &fakeSource{
		practitioner: activePractitioner(),
		rules:        []models.WeeklyRule{mondayRule("09:00", "18:00", 50, 10)},
		exceptions: []models.ExceptionDate{
			{ID: "e1", Date: testDay.Time(), IsUnavailable: true, Note: strPtr("holiday")},
		},
	}

	if slots := slotsForTestDay(t, src, ""); len(slots) != 0 {
		t.Fatalf("expected no slots, got %d", len(slots))
	}
}

func TestGetAvailableSlots_FullDayExceptionWinsOverPartialOnSameDate(t *testing.T) {
	closed := models.ExceptionDate{ID: "e1", Date: testDay.Time(), IsUnavailable: true}
	partial := models.ExceptionDate{ID: "e2", Date: testDay.Time(), BlockStart: strPtr("12:00"), BlockEnd: strPtr("13:00")}

	orders := map[string][]models.ExceptionDate{
		"closure first": {closed, partial},
		"closure last":  {partial, closed},
	}

	for name, exceptions := range orders {
		t.Run(name, func(t *testing.T) {
			src := &fakeSource{
				practitioner: activePractitioner(),
				rules:        []models.WeeklyRule{mondayRule("09:00", "18:00", 50, 10)},
				exceptions:   exceptions,
			}

			if slots := slotsForTestDay(t, src, ""); len(slots) != 0 {
				t.Fatalf("expected no slots, got %d starting %v", len(slots), slots[0].Start.In(brt))
			}
		})
	}
}

func TestGetAvailableSlots_PartialExceptionMovesRangeStart(t *testing.T) {
	src := &fakeSource{
		practitioner: activePractitioner(),
		rules: []models.WeeklyRule{
			mondayRule("09:00", "12:00", 60, 0),
			mondayRule("14:00", "16:00", 60, 0),
		},
		exceptions: []models.ExceptionDate{
			{ID: "e1", Date: testDay.Time(), BlockStart: strPtr("08:00"), BlockEnd: strPtr("10:00")},
		},
	}

	assertStarts(t, slotsForTestDay(t, src, ""), at(10, 0), at(11, 0), at(14, 0), at(15, 0))
}

func TestGetAvailableSlots_PartialExceptionDoesNotFragmentRange(t *testing.T) {
	src := &fakeSource{
		practitioner: activePractitioner(),
		rules:        []models.WeeklyRule{mondayRule("09:00", "13:00", 60, 0)},
		exceptions: []models.ExceptionDate{
			{ID: "e1", Date: testDay.Time(), BlockStart: strPtr("10:00"), BlockEnd: strPtr("11:00")},
		},
	}

	// The range restarts at the block end; the 09:00 slot is not kept.
	assertStarts(t, slotsForTestDay(t, src, ""), at(11, 0), at(12, 0))
}

func TestGetAvailableSlots_ModalityFilter(t *testing.T) {
	src := &fakeSource{
		practitioner: activePractitioner(),
		rules: []models.WeeklyRule{
			{ID: "a", DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00", SlotDurationMinutes: 60, Modality: strPtr("online")},
			{ID: "b", DayOfWeek: 1, StartTime: "10:00", EndTime: "11:00", SlotDurationMinutes: 60, Modality: strPtr("in_person")},
			{ID: "c", DayOfWeek: 1, StartTime: "11:00", EndTime: "12:00", SlotDurationMinutes: 60},
		},
	}

	slots := slotsForTestDay(t, src, "online")

	assertStarts(t, slots, at(9, 0), at(11, 0))
	for _, s := range slots {
		if s.Modality != "online" {
			t.Errorf("expected modality online, got %q", s.Modality)
		}
	}

	all := slotsForTestDay(t, src, "")
	assertStarts(t, all, at(9, 0), at(10, 0), at(11, 0))
	if all[2].Modality != "" {
		t.Errorf("expected untagged slot, got %q", all[2].Modality)
	}
}

func TestGetAvailableSlots_HoldStatuses(t *testing.T) {
	src := &fakeSource{
		practitioner: activePractitioner(),
		rules:        []models.WeeklyRule{mondayRule("13:00", "16:00", 50, 10)},
		holds: []models.Hold{
			{ID: "h1", Start: at(14, 0), End: at(14, 50), Status: models.HoldActive},
			{ID: "h2", Start: at(15, 0), End: at(15, 50), Status: models.HoldReleased},
			{ID: "h3", Start: at(13, 0), End: at(13, 50), Status: models.HoldConverted},
		},
	}

	assertStarts(t, slotsForTestDay(t, src, ""), at(13, 0), at(15, 0))
}

func TestGetAvailableSlots_ShortRangeExtension(t *testing.T) {
	src := &fakeSource{
		practitioner: activePractitioner(),
		rules:        []models.WeeklyRule{mondayRule("09:00", "09:40", 30, 0)},
	}

	slots := slotsForTestDay(t, src, "")

	assertStarts(t, slots, at(9, 0))
	if !slots[0].End.Equal(at(9, 30)) {
		t.Errorf("expected end 09:30, got %v", slots[0].End.In(brt))
	}
}

func TestGetAvailableSlots_PastSlotsExcluded(t *testing.T) {
	src := &fakeSource{
		practitioner: activePractitioner(),
		rules:        []models.WeeklyRule{mondayRule("09:00", "12:00", 60, 0)},
	}

	// A slot starting exactly at now is excluded.
	e := newTestEngine(src, at(10, 0))
	slots, err := e.GetAvailableSlots(context.Background(), "p1", at(0, 0), at(23, 0), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertStarts(t, slots, at(11, 0))
}

func TestGetAvailableSlots_UnknownOrInactivePractitioner(t *testing.T) {
	rules := []models.WeeklyRule{mondayRule("09:00", "12:00", 60, 0)}

	tests := []struct {
		name string
		src  *fakeSource
	}{
		{name: "not found", src: &fakeSource{rules: rules}},
		{name: "inactive", src: &fakeSource{practitioner: &models.Practitioner{PractitionerID: "p1"}, rules: rules}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots := slotsForTestDay(t, tt.src, "")
			if slots == nil || len(slots) != 0 {
				t.Fatalf("expected empty non-nil list, got %v", slots)
			}
		})
	}
}

func TestGetAvailableSlots_PropagatesSourceError(t *testing.T) {
	boom := errors.New("connection refused")
	e := newTestEngine(&fakeSource{err: boom}, at(0, 0))

	_, err := e.GetAvailableSlots(context.Background(), "p1", at(0, 0), at(23, 0), "")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped source error, got %v", err)
	}
}

func TestGetAvailableSlots_MalformedRule(t *testing.T) {
	tests := []struct {
		name string
		rule models.WeeklyRule
	}{
		{name: "end before start", rule: mondayRule("12:00", "09:00", 60, 0)},
		{name: "end equals start", rule: mondayRule("09:00", "09:00", 60, 0)},
		{name: "bad time", rule: mondayRule("9am", "12:00", 60, 0)},
		{name: "zero duration", rule: mondayRule("09:00", "12:00", 0, 0)},
		{name: "negative buffer", rule: mondayRule("09:00", "12:00", 30, -5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{practitioner: activePractitioner(), rules: []models.WeeklyRule{tt.rule}}
			e := newTestEngine(src, at(0, 0))

			_, err := e.GetAvailableSlots(context.Background(), "p1", at(0, 0), at(23, 0), "")
			if !errors.Is(err, ErrMalformedRule) {
				t.Fatalf("expected ErrMalformedRule, got %v", err)
			}
		})
	}
}

func TestGetAvailableSlots_InvalidRange(t *testing.T) {
	e := newTestEngine(&fakeSource{practitioner: activePractitioner()}, at(0, 0))

	_, err := e.GetAvailableSlots(context.Background(), "p1", at(12, 0), at(9, 0), "")
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestGetAvailableSlots_MultiDayIsSortedAndIdempotent(t *testing.T) {
	src := &fakeSource{
		practitioner: activePractitioner(),
		rules: []models.WeeklyRule{
			{ID: "tue", DayOfWeek: int(time.Tuesday), StartTime: "08:00", EndTime: "10:00", SlotDurationMinutes: 45, BufferMinutes: 15},
			{ID: "mon-pm", DayOfWeek: int(time.Monday), StartTime: "14:00", EndTime: "16:00", SlotDurationMinutes: 30, BufferMinutes: 0},
			{ID: "mon-am", DayOfWeek: int(time.Monday), StartTime: "09:00", EndTime: "10:00", SlotDurationMinutes: 30, BufferMinutes: 0},
		},
		bookings: []models.Booking{
			{ID: "b1", Start: at(14, 15), End: at(14, 45), Status: models.BookingConfirmed},
		},
	}
	e := newTestEngine(src, at(0, 0))
	from, to := at(0, 0), at(0, 0).AddDate(0, 0, 6)

	first, err := e.GetAvailableSlots(context.Background(), "p1", from, to, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := e.GetAvailableSlots(context.Background(), "p1", from, to, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("expected identical results, got %d and %d slots", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("slot %d differs: %v vs %v", i, first[i], second[i])
		}
	}

	tuesday := at(0, 0).AddDate(0, 0, 1)
	assertStarts(t, first,
		at(9, 0), at(9, 30), at(15, 0), at(15, 30),
		tuesday.Add(8*time.Hour), tuesday.Add(9*time.Hour),
	)

	for i := 1; i < len(first); i++ {
		if first[i].Start.Before(first[i-1].End) {
			t.Errorf("slots %d and %d overlap", i-1, i)
		}
	}
}

func TestGetAvailableSlots_OverlappingRulesNeverOverlapInOutput(t *testing.T) {
	src := &fakeSource{
		practitioner: activePractitioner(),
		rules: []models.WeeklyRule{
			{ID: "a", DayOfWeek: 1, StartTime: "09:00", EndTime: "11:00", SlotDurationMinutes: 60, Modality: strPtr("online")},
			{ID: "b", DayOfWeek: 1, StartTime: "09:30", EndTime: "11:30", SlotDurationMinutes: 60, Modality: strPtr("in_person")},
		},
	}

	slots := slotsForTestDay(t, src, "")

	for i := 1; i < len(slots); i++ {
		if slots[i].Start.Before(slots[i-1].End) {
			t.Errorf("slots %d and %d overlap: %v", i-1, i, slots)
		}
	}
}

func TestGetAvailableSlots_SameStartTieBreakIgnoresLoadOrder(t *testing.T) {
	online := models.WeeklyRule{ID: "a", DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00", SlotDurationMinutes: 60,
		Modality: strPtr("online"), LocationLabel: strPtr("Room 2")}
	inPerson := models.WeeklyRule{ID: "b", DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00", SlotDurationMinutes: 60,
		Modality: strPtr("in_person"), LocationLabel: strPtr("Room 1")}

	for name, rules := range map[string][]models.WeeklyRule{
		"online first":    {online, inPerson},
		"in person first": {inPerson, online},
	} {
		t.Run(name, func(t *testing.T) {
			src := &fakeSource{practitioner: activePractitioner(), rules: rules}

			slots := slotsForTestDay(t, src, "")

			assertStarts(t, slots, at(9, 0))
			if slots[0].Modality != "in_person" || slots[0].LocationLabel != "Room 1" {
				t.Errorf("expected in_person at Room 1, got %s at %s", slots[0].Modality, slots[0].LocationLabel)
			}
		})
	}
}

func TestCompareSlots(t *testing.T) {
	base := Slot{Start: at(9, 0), End: at(10, 0), Modality: "online", LocationLabel: "B"}

	tests := []struct {
		name  string
		other Slot
		want  int
	}{
		{name: "later start", other: Slot{Start: at(9, 30), Modality: "a"}, want: -1},
		{name: "same start, greater modality", other: Slot{Start: at(9, 0), Modality: "video"}, want: -1},
		{name: "same start and modality, smaller location", other: Slot{Start: at(9, 0), Modality: "online", LocationLabel: "A"}, want: 1},
		{name: "equal", other: base, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := compareSlots(base, tt.other); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestFindSlot(t *testing.T) {
	src := &fakeSource{
		practitioner: activePractitioner(),
		rules:        []models.WeeklyRule{mondayRule("09:00", "12:00", 60, 0)},
	}
	e := newTestEngine(src, at(0, 0))

	slot, ok, err := e.FindSlot(context.Background(), "p1", at(10, 0), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || !slot.End.Equal(at(11, 0)) {
		t.Fatalf("expected 10:00-11:00 slot, got %v (found=%v)", slot, ok)
	}

	_, ok, err = e.FindSlot(context.Background(), "p1", at(10, 30), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected no slot at 10:30")
	}
}
