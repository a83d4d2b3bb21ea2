package store

import (
	"context"

	"github.com/google/uuid"

	"carebook/scheduler/internal/domain"
)

type CalendarTx interface {
	// InsertBooking reports created=false when a booking with the same ID already existed.
	InsertBooking(ctx context.Context, booking domain.Booking) (out domain.Booking, created bool, err error)
	GetBookingForUpdate(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error)
	UpdateBookingSlot(ctx context.Context, bookingID uuid.UUID, date domain.Date, window domain.TimeWindow) (domain.Booking, error)
	UpdateBookingStatus(ctx context.Context, bookingID uuid.UUID, from, to domain.BookingStatus) (domain.Booking, error)
	InsertHistory(ctx context.Context, entry domain.BookingHistoryEntry) error
}
