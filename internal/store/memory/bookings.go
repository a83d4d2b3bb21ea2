package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"carebook/scheduler/internal/domain"
	"carebook/scheduler/internal/store"
)

func (s *Store) GetBooking(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[bookingID]
	if !ok {
		return domain.Booking{}, store.ErrNotFound
	}
	return b, nil
}

func (s *Store) GetBookings(ctx context.Context, practitionerID string, dates domain.DateRange) ([]domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Booking, 0)
	for _, b := range s.bookings {
		if b.PractitionerID == practitionerID && dates.Contains(b.Date) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) ListHistory(ctx context.Context, bookingID uuid.UUID) ([]domain.BookingHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.history[bookingID]
	out := make([]domain.BookingHistoryEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (s *Store) TryInsert(ctx context.Context, booking domain.Booking) (domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if booking.ID == uuid.Nil {
		id, err := newID()
		if err != nil {
			return domain.Booking{}, err
		}
		booking.ID = id
	}
	if existing, ok := s.bookings[booking.ID]; ok {
		if !existing.SameSlot(booking) {
			return domain.Booking{}, store.ErrIdempotencyConflict
		}
		return existing, nil
	}
	if s.overlapsLocked(booking.PractitionerID, booking.Date, booking.Window(), uuid.Nil) {
		return domain.Booking{}, store.ErrConflict
	}

	now := s.now()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	s.bookings[booking.ID] = booking
	if err := s.appendHistoryLocked(domain.CreatedEntry(booking)); err != nil {
		delete(s.bookings, booking.ID)
		return domain.Booking{}, err
	}
	return booking, nil
}

func (s *Store) TryUpdateSlot(ctx context.Context, change store.SlotChange) (domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.bookings[change.BookingID]
	if !ok {
		return domain.Booking{}, store.ErrNotFound
	}
	if current.Status.Terminal() {
		return domain.Booking{}, store.ErrPreconditionFailed
	}
	if s.overlapsLocked(current.PractitionerID, change.Date, change.Window, current.ID) {
		return domain.Booking{}, store.ErrConflict
	}

	updated := current
	updated.Date = change.Date
	updated.StartTime = change.Window.Start
	updated.EndTime = change.Window.End
	updated.UpdatedAt = s.now()
	if err := s.appendHistoryLocked(domain.RescheduledEntry(current, change.Reason)); err != nil {
		return domain.Booking{}, err
	}
	s.bookings[updated.ID] = updated
	return updated, nil
}

func (s *Store) UpdateStatus(ctx context.Context, change store.StatusChange) (domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.bookings[change.BookingID]
	if !ok {
		return domain.Booking{}, store.ErrNotFound
	}
	if current.Status != change.From {
		return domain.Booking{}, store.ErrPreconditionFailed
	}

	updated := current
	updated.Status = change.To
	updated.UpdatedAt = s.now()
	if err := s.appendHistoryLocked(domain.StatusChangedEntry(current.ID, change.From, change.To, change.Reason)); err != nil {
		return domain.Booking{}, err
	}
	s.bookings[updated.ID] = updated
	return updated, nil
}

func (s *Store) overlapsLocked(practitionerID string, date domain.Date, w domain.TimeWindow, ignore uuid.UUID) bool {
	for id, b := range s.bookings {
		if id == ignore || b.PractitionerID != practitionerID {
			continue
		}
		if b.Blocks(date, w) {
			return true
		}
	}
	return false
}

func (s *Store) appendHistoryLocked(entry domain.BookingHistoryEntry) error {
	id, err := newID()
	if err != nil {
		return err
	}
	entry.ID = id
	entry.CreatedAt = s.now()
	s.history[entry.BookingID] = append(s.history[entry.BookingID], entry)
	return nil
}
