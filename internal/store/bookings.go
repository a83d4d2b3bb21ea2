package store

import (
	"context"

	"github.com/google/uuid"

	"carebook/scheduler/internal/domain"
)

type SlotChange struct {
	BookingID uuid.UUID
	Date      domain.Date
	Window    domain.TimeWindow
	Reason    string
}

type StatusChange struct {
	BookingID uuid.UUID
	From      domain.BookingStatus
	To        domain.BookingStatus
	Reason    string
}

type BookingRepository interface {
	GetBooking(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error)
	// GetBookings returns bookings of every status whose date falls in dates.
	GetBookings(ctx context.Context, practitionerID string, dates domain.DateRange) ([]domain.Booking, error)
	ListHistory(ctx context.Context, bookingID uuid.UUID) ([]domain.BookingHistoryEntry, error)

	// TryInsert atomically inserts the booking unless a non-cancelled booking of the same
	// practitioner overlaps it on the same date (ErrConflict). Re-inserting an existing ID returns
	// the stored booking when it holds the same slot and ErrIdempotencyConflict otherwise.
	TryInsert(ctx context.Context, booking domain.Booking) (domain.Booking, error)

	// TryUpdateSlot atomically moves a non-terminal booking. It returns ErrNotFound,
	// ErrPreconditionFailed when the booking became terminal, or ErrConflict on overlap.
	TryUpdateSlot(ctx context.Context, change SlotChange) (domain.Booking, error)

	// UpdateStatus applies change only while the booking is still in change.From.
	UpdateStatus(ctx context.Context, change StatusChange) (domain.Booking, error)
}
