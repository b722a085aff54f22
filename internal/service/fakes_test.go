package service

import (
	"booking-service/internal/availability"
	"booking-service/internal/lock"
	"booking-service/internal/models"
	"booking-service/pkg/response"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"
)

// memStore is an in-memory Store. Inserts honour the same uniqueness the database enforces.
type memStore struct {
	mu            sync.Mutex
	practitioners map[string]models.Practitioner
	rules         map[string]models.WeeklyRule
	exceptions    map[string]models.ExceptionDate
	overrides     map[string]models.DateOverride
	bookings      map[string]models.Booking
	holds         map[string]models.Hold
}

func newMemStore() *memStore {
	return &memStore{
		practitioners: map[string]models.Practitioner{
			"p1":       {PractitionerID: "p1", Name: "Dr. One", IsActive: true},
			"inactive": {PractitionerID: "inactive", Name: "Dr. Away", IsActive: false},
		},
		rules:      map[string]models.WeeklyRule{},
		exceptions: map[string]models.ExceptionDate{},
		overrides:  map[string]models.DateOverride{},
		bookings:   map[string]models.Booking{},
		holds:      map[string]models.Hold{},
	}
}

func (m *memStore) GetPractitioner(_ context.Context, id string) (*models.Practitioner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.practitioners[id]
	if !ok {
		return nil, response.ErrNotFound
	}
	return &p, nil
}

func (m *memStore) ListWeeklyRules(_ context.Context, practitionerID string) ([]models.WeeklyRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.WeeklyRule{}
	for _, r := range m.rules {
		if r.PractitionerID == practitionerID {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b models.WeeklyRule) int {
		if a.DayOfWeek != b.DayOfWeek {
			return a.DayOfWeek - b.DayOfWeek
		}
		if a.StartTime < b.StartTime {
			return -1
		}
		if a.StartTime > b.StartTime {
			return 1
		}
		return 0
	})
	return out, nil
}

func inDateRange(d, from, to time.Time) bool {
	return !d.Before(from) && !d.After(to)
}

func (m *memStore) ListExceptions(_ context.Context, practitionerID string, from, to time.Time) ([]models.ExceptionDate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.ExceptionDate{}
	for _, e := range m.exceptions {
		if e.PractitionerID == practitionerID && inDateRange(e.Date, from, to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) ListOverrides(_ context.Context, practitionerID string, from, to time.Time) ([]models.DateOverride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.DateOverride{}
	for _, o := range m.overrides {
		if o.PractitionerID == practitionerID && inDateRange(o.Date, from, to) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memStore) ListActiveBookings(_ context.Context, practitionerID string, from, to time.Time) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.Booking{}
	for _, b := range m.bookings {
		if b.PractitionerID == practitionerID && b.Status.Occupies() && b.Start.Before(to) && b.End.After(from) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memStore) ListActiveHolds(_ context.Context, practitionerID string, from, to time.Time) ([]models.Hold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.Hold{}
	for _, h := range m.holds {
		if h.PractitionerID == practitionerID && h.Status.Occupies() && h.Start.Before(to) && h.End.After(from) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *memStore) GetWeeklyRule(_ context.Context, id string) (*models.WeeklyRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rules[id]
	if !ok {
		return nil, response.ErrNotFound
	}
	return &r, nil
}

func (m *memStore) CreateWeeklyRule(_ context.Context, r *models.WeeklyRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rules[r.ID] = *r
	return nil
}

func (m *memStore) UpdateWeeklyRule(_ context.Context, r *models.WeeklyRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rules[r.ID]; !ok {
		return response.ErrNotFound
	}
	m.rules[r.ID] = *r
	return nil
}

func (m *memStore) DeleteWeeklyRule(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rules[id]; !ok {
		return response.ErrNotFound
	}
	delete(m.rules, id)
	return nil
}

func (m *memStore) CreateException(_ context.Context, e *models.ExceptionDate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.exceptions {
		if existing.PractitionerID == e.PractitionerID && existing.Date.Equal(e.Date) {
			return response.ErrConflict
		}
	}
	m.exceptions[e.ID] = *e
	return nil
}

func (m *memStore) DeleteException(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.exceptions[id]; !ok {
		return response.ErrNotFound
	}
	delete(m.exceptions, id)
	return nil
}

func (m *memStore) CreateOverride(_ context.Context, o *models.DateOverride) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.overrides {
		if existing.PractitionerID == o.PractitionerID && existing.Date.Equal(o.Date) {
			return response.ErrConflict
		}
	}
	m.overrides[o.ID] = *o
	return nil
}

func (m *memStore) DeleteOverride(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.overrides[id]; !ok {
		return response.ErrNotFound
	}
	delete(m.overrides, id)
	return nil
}

func (m *memStore) insertBooking(b *models.Booking) error {
	for _, existing := range m.bookings {
		if existing.PractitionerID == b.PractitionerID && existing.Status.Occupies() && existing.Start.Equal(b.Start) {
			return response.ErrSlotNotAvailable
		}
	}
	b.CreatedAt = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	m.bookings[b.ID] = *b
	return nil
}

func (m *memStore) CreateBooking(_ context.Context, b *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.insertBooking(b)
}

func (m *memStore) GetBooking(_ context.Context, id string) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[id]
	if !ok {
		return nil, response.ErrNotFound
	}
	return &b, nil
}

func (m *memStore) UpdateBookingStatus(_ context.Context, id string, from []models.BookingStatus, status models.BookingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[id]
	if !ok {
		return response.ErrNotFound
	}
	if !slices.Contains(from, b.Status) {
		return response.ErrInvalidState
	}
	b.Status = status
	m.bookings[id] = b
	return nil
}

func (m *memStore) RescheduleBooking(_ context.Context, oldID string, b *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.bookings[oldID]
	if !ok {
		return response.ErrNotFound
	}
	if !old.Status.Occupies() {
		return response.ErrInvalidState
	}

	previous := old.Status
	old.Status = models.BookingCancelled
	m.bookings[oldID] = old

	b.PractitionerID = old.PractitionerID
	b.ClientID = old.ClientID
	b.Status = previous
	if err := m.insertBooking(b); err != nil {
		old.Status = previous
		m.bookings[oldID] = old
		return err
	}
	return nil
}

func (m *memStore) CreateHold(_ context.Context, h *models.Hold) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.holds {
		if existing.PractitionerID == h.PractitionerID && existing.Status.Occupies() && existing.Start.Equal(h.Start) {
			return response.ErrSlotNotAvailable
		}
	}
	h.CreatedAt = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	m.holds[h.ID] = *h
	return nil
}

func (m *memStore) GetHold(_ context.Context, id string) (*models.Hold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.holds[id]
	if !ok {
		return nil, response.ErrNotFound
	}
	return &h, nil
}

func (m *memStore) ReleaseHold(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.holds[id]
	if !ok {
		return response.ErrNotFound
	}
	if h.Status != models.HoldActive {
		return response.ErrInvalidState
	}
	h.Status = models.HoldReleased
	m.holds[id] = h
	return nil
}

func (m *memStore) ConvertHold(_ context.Context, holdID string, b *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.holds[holdID]
	if !ok {
		return response.ErrNotFound
	}
	if h.Status != models.HoldActive {
		return response.ErrInvalidState
	}

	b.PractitionerID = h.PractitionerID
	b.Start = h.Start
	b.End = h.End
	if err := m.insertBooking(b); err != nil {
		return err
	}

	h.Status = models.HoldConverted
	m.holds[holdID] = h
	return nil
}

// fakeLocker grants a key to one token at a time. expireOnLock simulates the TTL running out
// and another writer taking the key right after it is granted.
type fakeLocker struct {
	mu           sync.Mutex
	held         map[string]string
	unlocked     []string
	tokens       int
	expireOnLock bool
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]string{}}
}

func (l *fakeLocker) Lock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return "", false, nil
	}
	l.tokens++
	token := fmt.Sprintf("token-%d", l.tokens)
	l.held[key] = token
	if l.expireOnLock {
		l.held[key] = "other-writer"
	}
	return token, true, nil
}

func (l *fakeLocker) Unlock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[key] != token {
		return lock.ErrNotHeld
	}
	delete(l.held, key)
	l.unlocked = append(l.unlocked, key)
	return nil
}

// Monday 2030-01-07; the clock sits a week earlier so every slot is in the future.
var (
	testMonday = time.Date(2030, 1, 7, 0, 0, 0, 0, time.UTC)
	testNow    = testMonday.AddDate(0, 0, -7)
)

func at(hour, minute int) time.Time {
	return testMonday.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	svc    *Service
	store  *memStore
	locker *fakeLocker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newMemStore()
	locker := newFakeLocker()
	engine := availability.NewEngine(discardLogger(), store, availability.NewZone(time.UTC),
		availability.WithClock(func() time.Time { return testNow }))

	svc := NewService(discardLogger(), store, locker, engine, 10*time.Second)
	svc.now = func() time.Time { return testNow }

	return &fixture{svc: svc, store: store, locker: locker}
}

// withMondayHours adds a 09:00-12:00 Monday rule with 30 minute slots.
func (f *fixture) withMondayHours(t *testing.T) {
	t.Helper()

	f.store.rules["r1"] = models.WeeklyRule{
		ID:                  "r1",
		PractitionerID:      "p1",
		DayOfWeek:           int(time.Monday),
		StartTime:           "09:00",
		EndTime:             "12:00",
		SlotDurationMinutes: 30,
	}
}

func (f *fixture) mondaySlots(t *testing.T) []time.Time {
	t.Helper()

	slots, err := f.svc.GetAvailableSlots(t.Context(), "p1", testMonday, testMonday, "")
	if err != nil {
		t.Fatalf("get slots: %v", err)
	}

	starts := make([]time.Time, 0, len(slots))
	for _, s := range slots {
		starts = append(starts, s.Start)
	}
	return starts
}

func containsTime(ts []time.Time, want time.Time) bool {
	return slices.ContainsFunc(ts, want.Equal)
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }
