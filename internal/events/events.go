package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"carebook/scheduler/internal/domain"
)

const (
	RoutingBookingCreated       = "booking.created"
	RoutingBookingRescheduled   = "booking.rescheduled"
	RoutingBookingStatusChanged = "booking.status_changed"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }

type BookingSnapshot struct {
	ID             uuid.UUID            `json:"id"`
	PractitionerID string               `json:"practitioner_id"`
	PatientID      string               `json:"patient_id"`
	Date           domain.Date          `json:"date"`
	StartTime      domain.TimeOfDay     `json:"start_time"`
	EndTime        domain.TimeOfDay     `json:"end_time"`
	Status         domain.BookingStatus `json:"status"`
}

func Snapshot(b domain.Booking) BookingSnapshot {
	return BookingSnapshot{
		ID:             b.ID,
		PractitionerID: b.PractitionerID,
		PatientID:      b.PatientID,
		Date:           b.Date,
		StartTime:      b.StartTime,
		EndTime:        b.EndTime,
		Status:         b.Status,
	}
}

type BookingCreated struct {
	Booking    BookingSnapshot `json:"booking"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type BookingRescheduled struct {
	Booking       BookingSnapshot  `json:"booking"`
	PreviousDate  domain.Date      `json:"previous_date"`
	PreviousStart domain.TimeOfDay `json:"previous_start_time"`
	PreviousEnd   domain.TimeOfDay `json:"previous_end_time"`
	Reason        string           `json:"reason,omitempty"`
	OccurredAt    time.Time        `json:"occurred_at"`
}

type BookingStatusChanged struct {
	Booking    BookingSnapshot      `json:"booking"`
	From       domain.BookingStatus `json:"from"`
	To         domain.BookingStatus `json:"to"`
	Reason     string               `json:"reason,omitempty"`
	OccurredAt time.Time            `json:"occurred_at"`
}
