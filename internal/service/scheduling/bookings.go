package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"carebook/scheduler/internal/domain"
	"carebook/scheduler/internal/events"
	"carebook/scheduler/internal/store"
)

const (
	maxIdempotencyKeyLen = 256
	maxReasonLen         = 500
)

type CommitBookingInput struct {
	PractitionerID string
	PatientID      string
	Date           domain.Date
	Window         domain.TimeWindow
	IdempotencyKey string
}

type RescheduleInput struct {
	BookingID uuid.UUID
	Date      domain.Date
	Window    domain.TimeWindow
	Reason    string
}

func validateSlotRequest(date domain.Date, window domain.TimeWindow) error {
	if date.IsZero() {
		return validationError("date is required")
	}
	if _, err := domain.NewTimeWindow(window.Start, window.End); err != nil {
		return invalid(err)
	}
	return nil
}

// checkSlot requires window to be a generated, unoccupied slot on date that has not started yet
// in the practitioner's timezone.
func (s *Service) checkSlot(in scheduleInputs, date domain.Date, window domain.TimeWindow) error {
	slot, ok := domain.FindSlot(in.slots(date), window)
	if !ok {
		return fmt.Errorf("%w: %s on %s is not a slot of this practitioner", domain.ErrSlotUnavailable, window, date)
	}
	if !slot.IsAvailable {
		return fmt.Errorf("%w: %s on %s is already booked", domain.ErrSlotUnavailable, window, date)
	}
	start := date.At(window.Start, in.settings.Location())
	if !start.After(s.now()) {
		return fmt.Errorf("%w: %s on %s has already started", domain.ErrSlotUnavailable, window, date)
	}
	return nil
}

func idempotentBookingID(practitionerID, key string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("carebook:commit_booking:"+practitionerID+":"+key))
}

// CommitBooking books window on date for the patient. Validation reads are lock-free; the only
// atomic step is the conditional insert, so losing a race reports ErrSlotConflict.
func (s *Service) CommitBooking(ctx context.Context, in CommitBookingInput) (domain.Booking, error) {
	if in.PractitionerID == "" {
		return domain.Booking{}, validationError("practitioner_id is required")
	}
	patientID := strings.TrimSpace(in.PatientID)
	if patientID == "" {
		return domain.Booking{}, validationError("patient_id is required")
	}
	if err := validateSlotRequest(in.Date, in.Window); err != nil {
		return domain.Booking{}, err
	}

	booking := domain.Booking{
		PractitionerID: in.PractitionerID,
		PatientID:      patientID,
		Date:           in.Date,
		StartTime:      in.Window.Start,
		EndTime:        in.Window.End,
		Status:         domain.BookingStatusPending,
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		if len(key) > maxIdempotencyKeyLen {
			return domain.Booking{}, validationError("idempotency_key too long")
		}
		booking.ID = idempotentBookingID(in.PractitionerID, key)

		existing, found, err := s.replay(ctx, booking)
		if err != nil || found {
			return existing, err
		}
	}

	inputs, err := s.loadInputs(ctx, in.PractitionerID, domain.SingleDay(in.Date))
	if err != nil {
		return domain.Booking{}, err
	}
	if err := s.checkSlot(inputs, in.Date, in.Window); err != nil {
		// A retry racing its own first attempt sees the slot taken by that attempt.
		if key != "" {
			if existing, found, rerr := s.replay(ctx, booking); rerr != nil || found {
				return existing, rerr
			}
		}
		return domain.Booking{}, err
	}

	created, err := s.bookings.TryInsert(ctx, booking)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return domain.Booking{}, fmt.Errorf("%w: %s on %s was taken concurrently", domain.ErrSlotConflict, in.Window, in.Date)
		}
		return domain.Booking{}, err
	}

	s.publish(ctx, events.RoutingBookingCreated, events.BookingCreated{
		Booking:    events.Snapshot(created),
		OccurredAt: s.now().UTC(),
	})
	return created, nil
}

func (s *Service) replay(ctx context.Context, booking domain.Booking) (domain.Booking, bool, error) {
	existing, err := s.bookings.GetBooking(ctx, booking.ID)
	switch {
	case err == nil:
		if !existing.SameSlot(booking) {
			return domain.Booking{}, true, store.ErrIdempotencyConflict
		}
		return existing, true, nil
	case errors.Is(err, store.ErrNotFound):
		return domain.Booking{}, false, nil
	}
	return domain.Booking{}, false, fmt.Errorf("load booking for idempotency key: %w", err)
}

func (s *Service) Reschedule(ctx context.Context, in RescheduleInput) (domain.Booking, error) {
	if in.BookingID == uuid.Nil {
		return domain.Booking{}, validationError("booking_id is required")
	}
	if err := validateSlotRequest(in.Date, in.Window); err != nil {
		return domain.Booking{}, err
	}
	reason := strings.TrimSpace(in.Reason)
	if len(reason) > maxReasonLen {
		return domain.Booking{}, validationError("reason too long")
	}

	current, err := s.bookings.GetBooking(ctx, in.BookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	if current.Status.Terminal() {
		return domain.Booking{}, fmt.Errorf("%w: cannot reschedule a %s booking", domain.ErrInvalidState, current.Status)
	}
	if current.Date == in.Date && current.Window() == in.Window {
		return domain.Booking{}, validationError("booking already holds this slot")
	}

	inputs, err := s.loadInputs(ctx, current.PractitionerID, domain.SingleDay(in.Date))
	if err != nil {
		return domain.Booking{}, err
	}
	if err := s.checkSlot(inputs.without(current.ID), in.Date, in.Window); err != nil {
		return domain.Booking{}, err
	}

	moved, err := s.bookings.TryUpdateSlot(ctx, store.SlotChange{
		BookingID: current.ID,
		Date:      in.Date,
		Window:    in.Window,
		Reason:    reason,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			return domain.Booking{}, fmt.Errorf("%w: %s on %s was taken concurrently", domain.ErrSlotConflict, in.Window, in.Date)
		case errors.Is(err, store.ErrPreconditionFailed):
			return domain.Booking{}, fmt.Errorf("%w: booking changed status concurrently", domain.ErrInvalidState)
		}
		return domain.Booking{}, err
	}

	s.publish(ctx, events.RoutingBookingRescheduled, events.BookingRescheduled{
		Booking:       events.Snapshot(moved),
		PreviousDate:  current.Date,
		PreviousStart: current.StartTime,
		PreviousEnd:   current.EndTime,
		Reason:        reason,
		OccurredAt:    s.now().UTC(),
	})
	return moved, nil
}

// TransitionStatus applies action to the booking's current status. The write is a
// compare-and-swap, so a concurrent transition makes this one fail with ErrInvalidState.
func (s *Service) TransitionStatus(ctx context.Context, bookingID uuid.UUID, action domain.BookingAction, reason string) (domain.Booking, error) {
	if bookingID == uuid.Nil {
		return domain.Booking{}, validationError("booking_id is required")
	}
	reason = strings.TrimSpace(reason)
	if len(reason) > maxReasonLen {
		return domain.Booking{}, validationError("reason too long")
	}

	current, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	to, err := domain.NextStatus(current.Status, action)
	if err != nil {
		return domain.Booking{}, err
	}

	updated, err := s.bookings.UpdateStatus(ctx, store.StatusChange{
		BookingID: bookingID,
		From:      current.Status,
		To:        to,
		Reason:    reason,
	})
	if err != nil {
		if errors.Is(err, store.ErrPreconditionFailed) {
			return domain.Booking{}, fmt.Errorf("%w: booking changed status concurrently", domain.ErrInvalidState)
		}
		return domain.Booking{}, err
	}

	s.log.Debug("booking status changed",
		slog.String("booking_id", bookingID.String()),
		slog.String("from", string(current.Status)),
		slog.String("to", string(to)),
	)
	s.publish(ctx, events.RoutingBookingStatusChanged, events.BookingStatusChanged{
		Booking:    events.Snapshot(updated),
		From:       current.Status,
		To:         to,
		Reason:     reason,
		OccurredAt: s.now().UTC(),
	})
	return updated, nil
}

func (s *Service) Accept(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error) {
	return s.TransitionStatus(ctx, bookingID, domain.BookingActionAccept, "")
}

func (s *Service) Reject(ctx context.Context, bookingID uuid.UUID, reason string) (domain.Booking, error) {
	return s.TransitionStatus(ctx, bookingID, domain.BookingActionReject, reason)
}

func (s *Service) Start(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error) {
	return s.TransitionStatus(ctx, bookingID, domain.BookingActionStart, "")
}

func (s *Service) Complete(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error) {
	return s.TransitionStatus(ctx, bookingID, domain.BookingActionComplete, "")
}

func (s *Service) Cancel(ctx context.Context, bookingID uuid.UUID, reason string) (domain.Booking, error) {
	return s.TransitionStatus(ctx, bookingID, domain.BookingActionCancel, reason)
}

func (s *Service) GetBooking(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error) {
	if bookingID == uuid.Nil {
		return domain.Booking{}, validationError("booking_id is required")
	}
	return s.bookings.GetBooking(ctx, bookingID)
}

func (s *Service) ListBookingHistory(ctx context.Context, bookingID uuid.UUID) ([]domain.BookingHistoryEntry, error) {
	if _, err := s.GetBooking(ctx, bookingID); err != nil {
		return nil, err
	}
	return s.bookings.ListHistory(ctx, bookingID)
}

func (s *Service) ListBookings(ctx context.Context, practitionerID string, dates domain.DateRange) ([]domain.Booking, error) {
	if practitionerID == "" {
		return nil, validationError("practitioner_id is required")
	}
	if err := s.validateRange(dates); err != nil {
		return nil, err
	}
	return s.bookings.GetBookings(ctx, practitionerID, dates)
}
