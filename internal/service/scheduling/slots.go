package scheduling

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"carebook/scheduler/internal/domain"
)

// scheduleInputs holds everything slot generation reads for one practitioner and date range,
// fetched once per request.
type scheduleInputs struct {
	settings  domain.SchedulingSettings
	rules     []domain.WeeklyAvailabilityRule
	blackouts map[domain.Date][]domain.Blackout
	bookings  map[domain.Date][]domain.Booking
}

func (s *Service) loadInputs(ctx context.Context, practitionerID string, dates domain.DateRange) (scheduleInputs, error) {
	settings, err := s.settingsFor(ctx, practitionerID)
	if err != nil {
		return scheduleInputs{}, err
	}
	rules, err := s.availability.GetWeeklyRules(ctx, practitionerID)
	if err != nil {
		return scheduleInputs{}, fmt.Errorf("load weekly rules: %w", err)
	}
	blackouts, err := s.availability.GetBlackouts(ctx, practitionerID, dates)
	if err != nil {
		return scheduleInputs{}, fmt.Errorf("load blackouts: %w", err)
	}
	bookings, err := s.bookings.GetBookings(ctx, practitionerID, dates)
	if err != nil {
		return scheduleInputs{}, fmt.Errorf("load bookings: %w", err)
	}

	in := scheduleInputs{
		settings:  settings,
		rules:     rules,
		blackouts: make(map[domain.Date][]domain.Blackout),
		bookings:  make(map[domain.Date][]domain.Booking),
	}
	for _, b := range blackouts {
		in.blackouts[b.Date] = append(in.blackouts[b.Date], b)
	}
	for _, b := range bookings {
		if b.Status.Occupies() {
			in.bookings[b.Date] = append(in.bookings[b.Date], b)
		}
	}
	return in, nil
}

func (in scheduleInputs) slots(date domain.Date) []domain.Slot {
	return domain.GenerateSlots(date, in.rules, in.blackouts[date], in.bookings[date], in.settings)
}

func (in scheduleInputs) without(bookingID uuid.UUID) scheduleInputs {
	out := in
	out.bookings = make(map[domain.Date][]domain.Booking, len(in.bookings))
	for d, list := range in.bookings {
		kept := make([]domain.Booking, 0, len(list))
		for _, b := range list {
			if b.ID != bookingID {
				kept = append(kept, b)
			}
		}
		out.bookings[d] = kept
	}
	return out
}

func (s *Service) validateRange(dates domain.DateRange) error {
	if dates.From.IsZero() || dates.To.IsZero() {
		return validationError("from and to dates are required")
	}
	if dates.To.Before(dates.From) {
		return validationError("to must not be before from")
	}
	if dates.Days() > s.maxRangeDays {
		return validationError(fmt.Sprintf("date range must not exceed %d days", s.maxRangeDays))
	}
	return nil
}

func (s *Service) GenerateSlots(ctx context.Context, practitionerID string, date domain.Date) ([]domain.Slot, error) {
	if date.IsZero() {
		return nil, validationError("date is required")
	}
	in, err := s.loadInputs(ctx, practitionerID, domain.SingleDay(date))
	if err != nil {
		return nil, err
	}
	return in.slots(date), nil
}

func (s *Service) ListSlots(ctx context.Context, practitionerID string, dates domain.DateRange) ([]domain.DaySlots, error) {
	if err := s.validateRange(dates); err != nil {
		return nil, err
	}
	in, err := s.loadInputs(ctx, practitionerID, dates)
	if err != nil {
		return nil, err
	}

	out := make([]domain.DaySlots, 0, dates.Days())
	for _, d := range dates.Dates() {
		out = append(out, domain.DaySlots{Date: d, Slots: in.slots(d)})
	}
	return out, nil
}
