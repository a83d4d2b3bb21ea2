package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"carebook/scheduler/internal/domain"
	"carebook/scheduler/internal/store"
)

const (
	pgExclusionViolation = "23P01"
	pgUniqueViolation    = "23505"

	bookingsNoOverlapConstraint = "bookings_no_overlap"
)

type BookingRepo struct {
	db *bun.DB
}

func NewBookingRepo(db *bun.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

type calendarTx struct {
	tx bun.Tx
}

func (r *BookingRepo) GetBooking(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error) {
	var b domain.Booking
	err := r.db.NewSelect().
		Model(&b).
		Where("id = ?", bookingID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Booking{}, mapNoRows(err)
	}
	return b, nil
}

func (r *BookingRepo) GetBookings(ctx context.Context, practitionerID string, dates domain.DateRange) ([]domain.Booking, error) {
	var rows []domain.Booking
	err := r.db.NewSelect().
		Model(&rows).
		Where("practitioner_id = ?", practitionerID).
		Where("date >= ?", dates.From).
		Where("date <= ?", dates.To).
		OrderExpr("date ASC, start_minute ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BookingRepo) ListHistory(ctx context.Context, bookingID uuid.UUID) ([]domain.BookingHistoryEntry, error) {
	var rows []domain.BookingHistoryEntry
	err := r.db.NewSelect().
		Model(&rows).
		Where("booking_id = ?", bookingID).
		OrderExpr("created_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BookingRepo) TryInsert(ctx context.Context, booking domain.Booking) (domain.Booking, error) {
	var out domain.Booking
	err := r.InPractitionerTransaction(ctx, booking.PractitionerID, func(ctx context.Context, tx store.CalendarTx) error {
		b, err := insertBooking(ctx, tx, booking)
		if err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return out, nil
}

func (r *BookingRepo) TryUpdateSlot(ctx context.Context, change store.SlotChange) (domain.Booking, error) {
	current, err := r.GetBooking(ctx, change.BookingID)
	if err != nil {
		return domain.Booking{}, err
	}

	var out domain.Booking
	err = r.InPractitionerTransaction(ctx, current.PractitionerID, func(ctx context.Context, tx store.CalendarTx) error {
		b, err := moveBooking(ctx, tx, change)
		if err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return out, nil
}

func (r *BookingRepo) UpdateStatus(ctx context.Context, change store.StatusChange) (domain.Booking, error) {
	current, err := r.GetBooking(ctx, change.BookingID)
	if err != nil {
		return domain.Booking{}, err
	}

	var out domain.Booking
	err = r.InPractitionerTransaction(ctx, current.PractitionerID, func(ctx context.Context, tx store.CalendarTx) error {
		b, err := changeStatus(ctx, tx, change)
		if err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return out, nil
}

// InPractitionerTransaction runs fn holding the practitioner's calendar lock for the whole
// transaction, so every booking write for one practitioner is serialized.
func (r *BookingRepo) InPractitionerTransaction(ctx context.Context, practitionerID string, fn func(ctx context.Context, tx store.CalendarTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockPractitionerCalendar(ctx, tx, practitionerID); err != nil {
			return err
		}
		return fn(ctx, calendarTx{tx: tx})
	})
}

func lockPractitionerCalendar(ctx context.Context, tx bun.Tx, practitionerID string) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", practitionerID).Exec(ctx)
	return err
}

func insertBooking(ctx context.Context, tx store.CalendarTx, booking domain.Booking) (domain.Booking, error) {
	b, created, err := tx.InsertBooking(ctx, booking)
	if err != nil {
		return domain.Booking{}, err
	}
	if !created {
		if !b.SameSlot(booking) {
			return domain.Booking{}, store.ErrIdempotencyConflict
		}
		return b, nil
	}
	if err := tx.InsertHistory(ctx, domain.CreatedEntry(b)); err != nil {
		return domain.Booking{}, err
	}
	return b, nil
}

func moveBooking(ctx context.Context, tx store.CalendarTx, change store.SlotChange) (domain.Booking, error) {
	current, err := tx.GetBookingForUpdate(ctx, change.BookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	if current.Status.Terminal() {
		return domain.Booking{}, store.ErrPreconditionFailed
	}

	updated, err := tx.UpdateBookingSlot(ctx, change.BookingID, change.Date, change.Window)
	if err != nil {
		return domain.Booking{}, err
	}
	if err := tx.InsertHistory(ctx, domain.RescheduledEntry(current, change.Reason)); err != nil {
		return domain.Booking{}, err
	}
	return updated, nil
}

func changeStatus(ctx context.Context, tx store.CalendarTx, change store.StatusChange) (domain.Booking, error) {
	current, err := tx.GetBookingForUpdate(ctx, change.BookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	if current.Status != change.From {
		return domain.Booking{}, store.ErrPreconditionFailed
	}

	updated, err := tx.UpdateBookingStatus(ctx, change.BookingID, change.From, change.To)
	if err != nil {
		return domain.Booking{}, err
	}
	if err := tx.InsertHistory(ctx, domain.StatusChangedEntry(change.BookingID, change.From, change.To, change.Reason)); err != nil {
		return domain.Booking{}, err
	}
	return updated, nil
}

// InsertBooking never raises a unique violation on the primary key: a replayed ID is read back
// instead so the surrounding transaction stays usable.
func (r calendarTx) InsertBooking(ctx context.Context, booking domain.Booking) (domain.Booking, bool, error) {
	m := domain.Booking{
		ID:             booking.ID,
		PractitionerID: booking.PractitionerID,
		PatientID:      booking.PatientID,
		Date:           booking.Date,
		StartTime:      booking.StartTime,
		EndTime:        booking.EndTime,
		Status:         booking.Status,
		CreatedAt:      booking.CreatedAt,
		UpdatedAt:      booking.UpdatedAt,
	}

	res, err := r.tx.NewInsert().
		Model(&m).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return domain.Booking{}, false, mapWriteError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Booking{}, false, err
	}
	if affected == 0 {
		var existing domain.Booking
		err := r.tx.NewSelect().
			Model(&existing).
			Where("id = ?", m.ID).
			Limit(1).
			Scan(ctx)
		if err != nil {
			return domain.Booking{}, false, mapNoRows(err)
		}
		return existing, false, nil
	}
	return m, true, nil
}

func (r calendarTx) GetBookingForUpdate(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error) {
	var b domain.Booking
	err := r.tx.NewSelect().
		Model(&b).
		Where("id = ?", bookingID).
		For("UPDATE").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Booking{}, mapNoRows(err)
	}
	return b, nil
}

func (r calendarTx) UpdateBookingSlot(ctx context.Context, bookingID uuid.UUID, date domain.Date, window domain.TimeWindow) (domain.Booking, error) {
	m := domain.Booking{
		ID:        bookingID,
		Date:      date,
		StartTime: window.Start,
		EndTime:   window.End,
	}
	err := r.tx.NewUpdate().
		Model(&m).
		Column("date", "start_minute", "end_minute", "updated_at").
		WherePK().
		Returning("*").
		Scan(ctx)
	if err != nil {
		return domain.Booking{}, mapNoRows(mapWriteError(err))
	}
	return m, nil
}

func (r calendarTx) UpdateBookingStatus(ctx context.Context, bookingID uuid.UUID, from, to domain.BookingStatus) (domain.Booking, error) {
	m := domain.Booking{ID: bookingID, Status: to}
	err := r.tx.NewUpdate().
		Model(&m).
		Column("status", "updated_at").
		WherePK().
		Where("status = ?", from).
		Returning("*").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Booking{}, store.ErrPreconditionFailed
		}
		return domain.Booking{}, mapWriteError(err)
	}
	return m, nil
}

func (r calendarTx) InsertHistory(ctx context.Context, entry domain.BookingHistoryEntry) error {
	_, err := r.tx.NewInsert().Model(&entry).Exec(ctx)
	return err
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case pgErr.Code == pgExclusionViolation && pgErr.ConstraintName == bookingsNoOverlapConstraint:
		return store.ErrConflict
	case pgErr.Code == pgUniqueViolation:
		return store.ErrIdempotencyConflict
	}
	return err
}

func mapNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}
