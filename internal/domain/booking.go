package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusInProgress, BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

func (s BookingStatus) Occupies() bool {
	return s != BookingStatusCancelled
}

type BookingAction string

const (
	BookingActionAccept   BookingAction = "accept"
	BookingActionReject   BookingAction = "reject"
	BookingActionStart    BookingAction = "start"
	BookingActionComplete BookingAction = "complete"
	BookingActionCancel   BookingAction = "cancel"
)

func ParseBookingAction(s string) (BookingAction, error) {
	a := BookingAction(s)
	switch a {
	case BookingActionAccept, BookingActionReject, BookingActionStart, BookingActionComplete, BookingActionCancel:
		return a, nil
	}
	return "", fmt.Errorf("unknown booking action %q", s)
}

// NextStatus applies action to from following the booking state machine.
//
//	pending --accept--> confirmed --start--> in_progress --complete--> completed
//	pending --reject--> cancelled
//	any non-terminal --cancel--> cancelled
func NextStatus(from BookingStatus, action BookingAction) (BookingStatus, error) {
	var to BookingStatus
	switch {
	case action == BookingActionAccept && from == BookingStatusPending:
		to = BookingStatusConfirmed
	case action == BookingActionReject && from == BookingStatusPending:
		to = BookingStatusCancelled
	case action == BookingActionStart && from == BookingStatusConfirmed:
		to = BookingStatusInProgress
	case action == BookingActionComplete && from == BookingStatusInProgress:
		to = BookingStatusCompleted
	case action == BookingActionCancel && !from.Terminal():
		to = BookingStatusCancelled
	default:
		return "", fmt.Errorf("%w: cannot %s a %s booking", ErrInvalidState, action, from)
	}
	return to, nil
}

type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID             uuid.UUID     `bun:"id,pk,type:uuid" json:"id"`
	PractitionerID string        `bun:"practitioner_id,notnull" json:"practitioner_id"`
	PatientID      string        `bun:"patient_id,notnull" json:"patient_id"`
	Date           Date          `bun:"date,notnull,type:date" json:"date"`
	StartTime      TimeOfDay     `bun:"start_minute,notnull" json:"start_time"`
	EndTime        TimeOfDay     `bun:"end_minute,notnull" json:"end_time"`
	Status         BookingStatus `bun:"status,notnull" json:"status"`
	CreatedAt      time.Time     `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt      time.Time     `bun:"updated_at,notnull" json:"updated_at"`
}

func (b Booking) Window() TimeWindow {
	return TimeWindow{Start: b.StartTime, End: b.EndTime}
}

func (b Booking) SameSlot(o Booking) bool {
	return b.PractitionerID == o.PractitionerID &&
		b.PatientID == o.PatientID &&
		b.Date == o.Date &&
		b.StartTime == o.StartTime &&
		b.EndTime == o.EndTime
}

func (b Booking) Blocks(d Date, w TimeWindow) bool {
	return b.Status.Occupies() && b.Date == d && b.Window().Overlaps(w)
}

func (b *Booking) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if b.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			b.ID = id
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		if b.UpdatedAt.IsZero() {
			b.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		b.UpdatedAt = now
	}
	return nil
}

type BookingHistoryKind string

const (
	BookingHistoryCreated       BookingHistoryKind = "created"
	BookingHistoryStatusChanged BookingHistoryKind = "status_changed"
	BookingHistoryRescheduled   BookingHistoryKind = "rescheduled"
)

type BookingHistoryEntry struct {
	bun.BaseModel `bun:"table:booking_history"`

	ID            uuid.UUID          `bun:"id,pk,type:uuid" json:"id"`
	BookingID     uuid.UUID          `bun:"booking_id,notnull,type:uuid" json:"booking_id"`
	Kind          BookingHistoryKind `bun:"kind,notnull" json:"kind"`
	FromStatus    *BookingStatus     `bun:"from_status" json:"from_status,omitempty"`
	ToStatus      *BookingStatus     `bun:"to_status" json:"to_status,omitempty"`
	PreviousDate  *Date              `bun:"previous_date,type:date" json:"previous_date,omitempty"`
	PreviousStart *TimeOfDay         `bun:"previous_start_minute" json:"previous_start_time,omitempty"`
	PreviousEnd   *TimeOfDay         `bun:"previous_end_minute" json:"previous_end_time,omitempty"`
	Reason        string             `bun:"reason" json:"reason,omitempty"`
	CreatedAt     time.Time          `bun:"created_at,notnull" json:"created_at"`
}

func (e *BookingHistoryEntry) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if e.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		e.ID = id
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return nil
}

func CreatedEntry(b Booking) BookingHistoryEntry {
	status := b.Status
	return BookingHistoryEntry{
		BookingID: b.ID,
		Kind:      BookingHistoryCreated,
		ToStatus:  &status,
	}
}

func StatusChangedEntry(bookingID uuid.UUID, from, to BookingStatus, reason string) BookingHistoryEntry {
	return BookingHistoryEntry{
		BookingID:  bookingID,
		Kind:       BookingHistoryStatusChanged,
		FromStatus: &from,
		ToStatus:   &to,
		Reason:     reason,
	}
}

func RescheduledEntry(previous Booking, reason string) BookingHistoryEntry {
	date := previous.Date
	start := previous.StartTime
	end := previous.EndTime
	return BookingHistoryEntry{
		BookingID:     previous.ID,
		Kind:          BookingHistoryRescheduled,
		PreviousDate:  &date,
		PreviousStart: &start,
		PreviousEnd:   &end,
		Reason:        reason,
	}
}
