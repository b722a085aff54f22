package postgres

import (
	"booking-service/internal/models"
	"booking-service/pkg/response"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

type Storage struct {
	db *sql.DB
}

func New(storagePath string) (*Storage, error) {
	const op = "storage.postgres.New"

	db, err := sql.Open("postgres", storagePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

// mapError turns driver errors into response sentinels. onUnique is returned for unique violations.
func mapError(err error, onUnique error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return onUnique
		case pqForeignKeyViolation:
			return response.ErrNotFound
		}
	}

	return err
}

func dateArg(t time.Time) string {
	return t.Format(time.DateOnly)
}

// #### practitioners ####

func (s *Storage) GetPractitioner(ctx context.Context, practitionerID string) (*models.Practitioner, error) {
	const op = "storage.postgres.GetPractitioner"

	var p models.Practitioner

	err := s.db.QueryRowContext(ctx,
		`SELECT practitioner_id, name, is_active FROM practitioners WHERE practitioner_id=$1`,
		practitionerID,
	).Scan(&p.PractitionerID, &p.Name, &p.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &p, nil
}

// #### weekly rules ####

const weeklyRuleColumns = `id, practitioner_id, day_of_week,
	to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'),
	slot_duration_minutes, buffer_minutes, modality, location_label`

type scanner interface {
	Scan(dest ...any) error
}

func scanWeeklyRule(row scanner) (models.WeeklyRule, error) {
	var r models.WeeklyRule
	err := row.Scan(
		&r.ID,
		&r.PractitionerID,
		&r.DayOfWeek,
		&r.StartTime,
		&r.EndTime,
		&r.SlotDurationMinutes,
		&r.BufferMinutes,
		&r.Modality,
		&r.LocationLabel,
	)
	return r, err
}

func (s *Storage) ListWeeklyRules(ctx context.Context, practitionerID string) ([]models.WeeklyRule, error) {
	const op = "storage.postgres.ListWeeklyRules"

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+weeklyRuleColumns+` FROM weekly_rules
		WHERE practitioner_id=$1
		ORDER BY day_of_week, start_time`,
		practitionerID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer rows.Close()

	rules := []models.WeeklyRule{}
	for rows.Next() {
		r, err := scanWeeklyRule(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return rules, nil
}

func (s *Storage) GetWeeklyRule(ctx context.Context, id string) (*models.WeeklyRule, error) {
	const op = "storage.postgres.GetWeeklyRule"

	r, err := scanWeeklyRule(s.db.QueryRowContext(ctx,
		`SELECT `+weeklyRuleColumns+` FROM weekly_rules WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &r, nil
}

func (s *Storage) CreateWeeklyRule(ctx context.Context, r *models.WeeklyRule) error {
	const op = "storage.postgres.CreateWeeklyRule"

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO weekly_rules
		(id, practitioner_id, day_of_week, start_time, end_time, slot_duration_minutes, buffer_minutes, modality, location_label)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID,
		r.PractitionerID,
		r.DayOfWeek,
		r.StartTime,
		r.EndTime,
		r.SlotDurationMinutes,
		r.BufferMinutes,
		r.Modality,
		r.LocationLabel,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err, response.ErrConflict))
	}

	return nil
}

func (s *Storage) UpdateWeeklyRule(ctx context.Context, r *models.WeeklyRule) error {
	const op = "storage.postgres.UpdateWeeklyRule"

	res, err := s.db.ExecContext(ctx,
		`UPDATE weekly_rules SET
		day_of_week=$2, start_time=$3, end_time=$4, slot_duration_minutes=$5,
		buffer_minutes=$6, modality=$7, location_label=$8
		WHERE id=$1`,
		r.ID,
		r.DayOfWeek,
		r.StartTime,
		r.EndTime,
		r.SlotDurationMinutes,
		r.BufferMinutes,
		r.Modality,
		r.LocationLabel,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return expectAffected(op, res)
}

func (s *Storage) DeleteWeeklyRule(ctx context.Context, id string) error {
	const op = "storage.postgres.DeleteWeeklyRule"

	res, err := s.db.ExecContext(ctx, `DELETE FROM weekly_rules WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return expectAffected(op, res)
}

func expectAffected(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	return nil
}

// #### exceptions ####

func (s *Storage) ListExceptions(ctx context.Context, practitionerID string, fromDate, toDate time.Time) ([]models.ExceptionDate, error) {
	const op = "storage.postgres.ListExceptions"

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, practitioner_id, exception_date, is_unavailable,
		to_char(block_start, 'HH24:MI'), to_char(block_end, 'HH24:MI'), note
		FROM exception_dates
		WHERE practitioner_id=$1 AND exception_date BETWEEN $2::date AND $3::date
		ORDER BY exception_date`,
		practitionerID,
		dateArg(fromDate),
		dateArg(toDate),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer rows.Close()

	exceptions := []models.ExceptionDate{}
	for rows.Next() {
		var e models.ExceptionDate
		err := rows.Scan(
			&e.ID,
			&e.PractitionerID,
			&e.Date,
			&e.IsUnavailable,
			&e.BlockStart,
			&e.BlockEnd,
			&e.Note,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		exceptions = append(exceptions, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return exceptions, nil
}

func (s *Storage) CreateException(ctx context.Context, e *models.ExceptionDate) error {
	const op = "storage.postgres.CreateException"

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exception_dates
		(id, practitioner_id, exception_date, is_unavailable, block_start, block_end, note)
		VALUES ($1, $2, $3::date, $4, $5, $6, $7)`,
		e.ID,
		e.PractitionerID,
		dateArg(e.Date),
		e.IsUnavailable,
		e.BlockStart,
		e.BlockEnd,
		e.Note,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err, response.ErrConflict))
	}

	return nil
}

func (s *Storage) DeleteException(ctx context.Context, id string) error {
	const op = "storage.postgres.DeleteException"

	res, err := s.db.ExecContext(ctx, `DELETE FROM exception_dates WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return expectAffected(op, res)
}

// #### overrides ####

func (s *Storage) ListOverrides(ctx context.Context, practitionerID string, fromDate, toDate time.Time) ([]models.DateOverride, error) {
	const op = "storage.postgres.ListOverrides"

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, practitioner_id, override_date, is_unavailable, slot_duration_minutes, buffer_minutes
		FROM date_overrides
		WHERE practitioner_id=$1 AND override_date BETWEEN $2::date AND $3::date
		ORDER BY override_date`,
		practitionerID,
		dateArg(fromDate),
		dateArg(toDate),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	overrides := []models.DateOverride{}
	index := make(map[string]int)
	var ids []string

	for rows.Next() {
		var o models.DateOverride
		err := rows.Scan(
			&o.ID,
			&o.PractitionerID,
			&o.Date,
			&o.IsUnavailable,
			&o.SlotDurationMinutes,
			&o.BufferMinutes,
		)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		o.Ranges = []models.OverrideRange{}
		index[o.ID] = len(overrides)
		ids = append(ids, o.ID)
		overrides = append(overrides, o)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rows.Close()

	if len(ids) == 0 {
		return overrides, nil
	}

	rangeRows, err := s.db.QueryContext(ctx,
		`SELECT id, override_id, to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), modality, location_label
		FROM override_ranges
		WHERE override_id = ANY($1::uuid[])
		ORDER BY start_time`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer rangeRows.Close()

	for rangeRows.Next() {
		var r models.OverrideRange
		err := rangeRows.Scan(
			&r.ID,
			&r.OverrideID,
			&r.StartTime,
			&r.EndTime,
			&r.Modality,
			&r.LocationLabel,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		i, ok := index[r.OverrideID]
		if !ok {
			continue
		}
		overrides[i].Ranges = append(overrides[i].Ranges, r)
	}
	if err := rangeRows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return overrides, nil
}

// CreateOverride stores the override and its ranges in one transaction. A second override for
// the same date is ErrConflict.
func (s *Storage) CreateOverride(ctx context.Context, o *models.DateOverride) error {
	const op = "storage.postgres.CreateOverride"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", op, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO date_overrides
		(id, practitioner_id, override_date, is_unavailable, slot_duration_minutes, buffer_minutes)
		VALUES ($1, $2, $3::date, $4, $5, $6)`,
		o.ID,
		o.PractitionerID,
		dateArg(o.Date),
		o.IsUnavailable,
		o.SlotDurationMinutes,
		o.BufferMinutes,
	)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%s: %w", op, mapError(err, response.ErrConflict))
	}

	for _, r := range o.Ranges {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO override_ranges
			(id, override_id, start_time, end_time, modality, location_label)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			r.ID,
			o.ID,
			r.StartTime,
			r.EndTime,
			r.Modality,
			r.LocationLabel,
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%s: range: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	return nil
}

func (s *Storage) DeleteOverride(ctx context.Context, id string) error {
	const op = "storage.postgres.DeleteOverride"

	res, err := s.db.ExecContext(ctx, `DELETE FROM date_overrides WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return expectAffected(op, res)
}

// #### bookings ####

const bookingColumns = `id, practitioner_id, client_id, start_at, end_at, modality, status, created_at`

func scanBooking(row scanner) (models.Booking, error) {
	var b models.Booking
	err := row.Scan(
		&b.ID,
		&b.PractitionerID,
		&b.ClientID,
		&b.Start,
		&b.End,
		&b.Modality,
		&b.Status,
		&b.CreatedAt,
	)
	b.Start = b.Start.UTC()
	b.End = b.End.UTC()
	return b, err
}

// ListActiveBookings returns pending and confirmed bookings overlapping [from, to).
func (s *Storage) ListActiveBookings(ctx context.Context, practitionerID string, from, to time.Time) ([]models.Booking, error) {
	const op = "storage.postgres.ListActiveBookings"

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		WHERE practitioner_id=$1 AND start_at < $3 AND end_at > $2 AND status = ANY($4)
		ORDER BY start_at`,
		practitionerID,
		from,
		to,
		pq.Array([]string{string(models.BookingPending), string(models.BookingConfirmed)}),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer rows.Close()

	bookings := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return bookings, nil
}

// CreateBooking inserts b. An active booking at the same start is ErrSlotNotAvailable.
func (s *Storage) CreateBooking(ctx context.Context, b *models.Booking) error {
	const op = "storage.postgres.CreateBooking"

	if err := insertBooking(ctx, s.db, b); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertBooking(ctx context.Context, db rowQuerier, b *models.Booking) error {
	err := db.QueryRowContext(ctx,
		`INSERT INTO bookings
		(id, practitioner_id, client_id, start_at, end_at, modality, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		b.ID,
		b.PractitionerID,
		b.ClientID,
		b.Start,
		b.End,
		b.Modality,
		b.Status,
	).Scan(&b.CreatedAt)
	if err != nil {
		return mapError(err, response.ErrSlotNotAvailable)
	}

	return nil
}

func (s *Storage) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	const op = "storage.postgres.GetBooking"

	b, err := scanBooking(s.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &b, nil
}

// UpdateBookingStatus moves a booking to status if it is currently in one of from.
// A booking in any other state is ErrInvalidState.
func (s *Storage) UpdateBookingStatus(ctx context.Context, id string, from []models.BookingStatus, status models.BookingStatus) error {
	const op = "storage.postgres.UpdateBookingStatus"

	allowed := make([]string, 0, len(from))
	for _, st := range from {
		allowed = append(allowed, string(st))
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE bookings SET status=$2 WHERE id=$1 AND status = ANY($3)`,
		id,
		status,
		pq.Array(allowed),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err, response.ErrSlotNotAvailable))
	}

	return s.checkTransition(ctx, op, res, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id=$1)`, id)
}

func (s *Storage) checkTransition(ctx context.Context, op string, res sql.Result, existsQuery, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n > 0 {
		return nil
	}

	return s.missingOrInvalid(ctx, op, existsQuery, id)
}

// missingOrInvalid explains a guarded update that matched no row.
func (s *Storage) missingOrInvalid(ctx context.Context, op, existsQuery, id string) error {
	var exists bool
	if err := s.db.QueryRowContext(ctx, existsQuery, id).Scan(&exists); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	return fmt.Errorf("%s: %w", op, response.ErrInvalidState)
}

// RescheduleBooking cancels the active booking oldID and inserts b in its place in one
// transaction. b inherits the old booking's practitioner, client and status.
func (s *Storage) RescheduleBooking(ctx context.Context, oldID string, b *models.Booking) error {
	const op = "storage.postgres.RescheduleBooking"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", op, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	err = tx.QueryRowContext(ctx,
		`WITH prev AS (SELECT id, status FROM bookings WHERE id=$1 FOR UPDATE)
		UPDATE bookings b SET status=$2 FROM prev
		WHERE b.id=prev.id AND prev.status = ANY($3)
		RETURNING b.practitioner_id, b.client_id, prev.status`,
		oldID,
		models.BookingCancelled,
		pq.Array([]string{string(models.BookingPending), string(models.BookingConfirmed)}),
	).Scan(&b.PractitionerID, &b.ClientID, &b.Status)
	if err != nil {
		_ = tx.Rollback()

		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: %w", op, err)
		}
		return s.missingOrInvalid(ctx, op, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id=$1)`, oldID)
	}

	if err := insertBooking(ctx, tx, b); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	return nil
}

// #### holds ####

const holdColumns = `id, practitioner_id, start_at, end_at, reason, status, created_at`

func scanHold(row scanner) (models.Hold, error) {
	var h models.Hold
	err := row.Scan(
		&h.ID,
		&h.PractitionerID,
		&h.Start,
		&h.End,
		&h.Reason,
		&h.Status,
		&h.CreatedAt,
	)
	h.Start = h.Start.UTC()
	h.End = h.End.UTC()
	return h, err
}

// ListActiveHolds returns holds in HOLD status overlapping [from, to).
func (s *Storage) ListActiveHolds(ctx context.Context, practitionerID string, from, to time.Time) ([]models.Hold, error) {
	const op = "storage.postgres.ListActiveHolds"

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+holdColumns+` FROM holds
		WHERE practitioner_id=$1 AND start_at < $3 AND end_at > $2 AND status=$4
		ORDER BY start_at`,
		practitionerID,
		from,
		to,
		models.HoldActive,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer rows.Close()

	holds := []models.Hold{}
	for rows.Next() {
		h, err := scanHold(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		holds = append(holds, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return holds, nil
}

// CreateHold inserts h. An active hold at the same start is ErrSlotNotAvailable.
func (s *Storage) CreateHold(ctx context.Context, h *models.Hold) error {
	const op = "storage.postgres.CreateHold"

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO holds
		(id, practitioner_id, start_at, end_at, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		h.ID,
		h.PractitionerID,
		h.Start,
		h.End,
		h.Reason,
		h.Status,
	).Scan(&h.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err, response.ErrSlotNotAvailable))
	}

	return nil
}

func (s *Storage) GetHold(ctx context.Context, id string) (*models.Hold, error) {
	const op = "storage.postgres.GetHold"

	h, err := scanHold(s.db.QueryRowContext(ctx,
		`SELECT `+holdColumns+` FROM holds WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &h, nil
}

// ReleaseHold moves an active hold to RELEASED.
func (s *Storage) ReleaseHold(ctx context.Context, id string) error {
	const op = "storage.postgres.ReleaseHold"

	res, err := s.db.ExecContext(ctx,
		`UPDATE holds SET status=$2 WHERE id=$1 AND status=$3`,
		id,
		models.HoldReleased,
		models.HoldActive,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return s.checkTransition(ctx, op, res, `SELECT EXISTS (SELECT 1 FROM holds WHERE id=$1)`, id)
}

// ConvertHold marks an active hold CONVERTED and inserts b over the hold's window in one
// transaction. b's practitioner and times are taken from the hold.
func (s *Storage) ConvertHold(ctx context.Context, holdID string, b *models.Booking) error {
	const op = "storage.postgres.ConvertHold"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", op, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	err = tx.QueryRowContext(ctx,
		`UPDATE holds SET status=$2 WHERE id=$1 AND status=$3
		RETURNING practitioner_id, start_at, end_at`,
		holdID,
		models.HoldConverted,
		models.HoldActive,
	).Scan(&b.PractitionerID, &b.Start, &b.End)
	if err != nil {
		_ = tx.Rollback()

		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: %w", op, err)
		}

		return s.missingOrInvalid(ctx, op, `SELECT EXISTS (SELECT 1 FROM holds WHERE id=$1)`, holdID)
	}

	b.Start = b.Start.UTC()
	b.End = b.End.UTC()

	if err := insertBooking(ctx, tx, b); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	return nil
}
