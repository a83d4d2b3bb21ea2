package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"carebook/scheduler/internal/domain"
	"carebook/scheduler/internal/store"
)

var monday = domain.NewDate(2026, time.January, 5)

func booking(patient, start, end string) domain.Booking {
	w := domain.MustTimeWindow(start, end)
	return domain.Booking{
		PractitionerID: "p1",
		PatientID:      patient,
		Date:           monday,
		StartTime:      w.Start,
		EndTime:        w.End,
		Status:         domain.BookingStatusPending,
	}
}

func TestTryInsert_ConcurrentSameSlot(t *testing.T) {
	s := New()
	ctx := context.Background()

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := s.TryInsert(ctx, booking("pat", "09:00", "09:30"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, store.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	if successes != 1 || conflicts != workers-1 {
		t.Fatalf("successes = %d, conflicts = %d", successes, conflicts)
	}
	rows, _ := s.GetBookings(ctx, "p1", domain.SingleDay(monday))
	if len(rows) != 1 {
		t.Fatalf("len(bookings) = %d, want 1", len(rows))
	}
}

func TestTryInsert_Idempotent(t *testing.T) {
	s := New()
	ctx := context.Background()

	b := booking("pat", "09:00", "09:30")
	b.ID = uuid.MustParse("00000000-0000-0000-0000-000000000501")

	first, err := s.TryInsert(ctx, b)
	if err != nil {
		t.Fatalf("TryInsert error: %v", err)
	}
	again, err := s.TryInsert(ctx, b)
	if err != nil {
		t.Fatalf("replay error: %v", err)
	}
	if again.ID != first.ID || !again.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("replay returned %+v, want %+v", again, first)
	}

	other := b
	other.StartTime = domain.MustTimeOfDay("10:00")
	other.EndTime = domain.MustTimeOfDay("10:30")
	if _, err := s.TryInsert(ctx, other); !errors.Is(err, store.ErrIdempotencyConflict) {
		t.Fatalf("err = %v, want %v", err, store.ErrIdempotencyConflict)
	}

	history, _ := s.ListHistory(ctx, b.ID)
	if len(history) != 1 {
		t.Fatalf("len(history) = %d, want 1", len(history))
	}
}

func TestTryUpdateSlot(t *testing.T) {
	ctx := context.Background()

	t.Run("overlapping own window is allowed", func(t *testing.T) {
		s := New()
		b, err := s.TryInsert(ctx, booking("pat", "09:00", "10:00"))
		if err != nil {
			t.Fatalf("TryInsert error: %v", err)
		}
		moved, err := s.TryUpdateSlot(ctx, store.SlotChange{BookingID: b.ID, Date: monday, Window: domain.MustTimeWindow("09:30", "10:30")})
		if err != nil {
			t.Fatalf("TryUpdateSlot error: %v", err)
		}
		if moved.ID != b.ID || moved.PatientID != b.PatientID || moved.Status != b.Status {
			t.Fatalf("identity not preserved: %+v", moved)
		}
		history, _ := s.ListHistory(ctx, b.ID)
		if len(history) != 2 || history[1].Kind != domain.BookingHistoryRescheduled {
			t.Fatalf("history = %+v", history)
		}
	})

	t.Run("other booking conflicts", func(t *testing.T) {
		s := New()
		b, _ := s.TryInsert(ctx, booking("a", "09:00", "09:30"))
		if _, err := s.TryInsert(ctx, booking("b", "10:00", "10:30")); err != nil {
			t.Fatalf("TryInsert error: %v", err)
		}
		_, err := s.TryUpdateSlot(ctx, store.SlotChange{BookingID: b.ID, Date: monday, Window: domain.MustTimeWindow("10:00", "10:30")})
		if !errors.Is(err, store.ErrConflict) {
			t.Fatalf("err = %v, want %v", err, store.ErrConflict)
		}
		got, _ := s.GetBooking(ctx, b.ID)
		if got.StartTime != domain.MustTimeOfDay("09:00") {
			t.Fatalf("failed move changed the booking: %+v", got)
		}
	})

	t.Run("terminal booking", func(t *testing.T) {
		s := New()
		b, _ := s.TryInsert(ctx, booking("a", "09:00", "09:30"))
		if _, err := s.UpdateStatus(ctx, store.StatusChange{BookingID: b.ID, From: domain.BookingStatusPending, To: domain.BookingStatusCancelled}); err != nil {
			t.Fatalf("UpdateStatus error: %v", err)
		}
		_, err := s.TryUpdateSlot(ctx, store.SlotChange{BookingID: b.ID, Date: monday, Window: domain.MustTimeWindow("10:00", "10:30")})
		if !errors.Is(err, store.ErrPreconditionFailed) {
			t.Fatalf("err = %v, want %v", err, store.ErrPreconditionFailed)
		}
	})

	t.Run("missing booking", func(t *testing.T) {
		s := New()
		_, err := s.TryUpdateSlot(ctx, store.SlotChange{BookingID: uuid.New(), Date: monday, Window: domain.MustTimeWindow("10:00", "10:30")})
		if !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("err = %v, want %v", err, store.ErrNotFound)
		}
	})
}

func TestUpdateStatus_CancelReleasesWindow(t *testing.T) {
	s := New()
	ctx := context.Background()

	b, _ := s.TryInsert(ctx, booking("a", "09:00", "09:30"))
	if _, err := s.UpdateStatus(ctx, store.StatusChange{BookingID: b.ID, From: domain.BookingStatusPending, To: domain.BookingStatusCancelled}); err != nil {
		t.Fatalf("UpdateStatus error: %v", err)
	}
	if _, err := s.UpdateStatus(ctx, store.StatusChange{BookingID: b.ID, From: domain.BookingStatusPending, To: domain.BookingStatusConfirmed}); !errors.Is(err, store.ErrPreconditionFailed) {
		t.Fatalf("stale transition err = %v, want %v", err, store.ErrPreconditionFailed)
	}
	if _, err := s.TryInsert(ctx, booking("b", "09:00", "09:30")); err != nil {
		t.Fatalf("insert over cancelled booking: %v", err)
	}
}

func TestAvailabilityCRUD(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.GetSettings(ctx, "p1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want %v", err, store.ErrNotFound)
	}
	if _, err := s.UpsertSettings(ctx, domain.DefaultSettings("p1", "UTC")); err != nil {
		t.Fatalf("UpsertSettings error: %v", err)
	}

	w := domain.MustTimeWindow("09:00", "12:00")
	rule, err := s.CreateWeeklyRule(ctx, domain.WeeklyAvailabilityRule{PractitionerID: "p1", DayOfWeek: domain.Monday, StartTime: w.Start, EndTime: w.End, Active: true})
	if err != nil {
		t.Fatalf("CreateWeeklyRule error: %v", err)
	}
	if rule.ID == uuid.Nil {
		t.Fatalf("expected generated id")
	}

	rule.Active = false
	updated, err := s.UpdateWeeklyRule(ctx, rule)
	if err != nil {
		t.Fatalf("UpdateWeeklyRule error: %v", err)
	}
	if updated.Active {
		t.Fatalf("rule still active")
	}

	if err := s.DeleteWeeklyRule(ctx, "other", rule.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("delete by other practitioner err = %v, want %v", err, store.ErrNotFound)
	}
	if err := s.DeleteWeeklyRule(ctx, "p1", rule.ID); err != nil {
		t.Fatalf("DeleteWeeklyRule error: %v", err)
	}

	if _, err := s.CreateBlackout(ctx, domain.Blackout{PractitionerID: "p1", Date: monday}); err != nil {
		t.Fatalf("CreateBlackout error: %v", err)
	}
	if _, err := s.CreateBlackout(ctx, domain.Blackout{PractitionerID: "p1", Date: monday.AddDays(40)}); err != nil {
		t.Fatalf("CreateBlackout error: %v", err)
	}
	got, _ := s.GetBlackouts(ctx, "p1", domain.MonthRange(2026, time.January))
	if len(got) != 1 {
		t.Fatalf("len(blackouts) = %d, want 1", len(got))
	}
}
