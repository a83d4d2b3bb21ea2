package scheduling

import (
	"context"
	"time"

	"carebook/scheduler/internal/domain"
)

// GetCalendar summarizes one month: per date, the number of bookable slots and whether a
// full-day blackout applies. Counts come from the same pipeline as GenerateSlots.
func (s *Service) GetCalendar(ctx context.Context, practitionerID string, year, month int) (domain.Calendar, error) {
	if month < 1 || month > 12 {
		return domain.Calendar{}, validationError("month must be between 1 and 12")
	}
	if year < 1 || year > 9999 {
		return domain.Calendar{}, validationError("year is out of range")
	}

	dates := domain.MonthRange(year, time.Month(month))
	in, err := s.loadInputs(ctx, practitionerID, dates)
	if err != nil {
		return domain.Calendar{}, err
	}

	cal := domain.Calendar{
		PractitionerID: practitionerID,
		Year:           year,
		Month:          month,
		Days:           make([]domain.CalendarDay, 0, dates.Days()),
	}
	for _, d := range dates.Dates() {
		day := domain.CalendarDay{
			Date:       d,
			IsBlackout: domain.HasFullDayBlackout(d, in.blackouts[d]),
		}
		if !day.IsBlackout {
			day.AvailableSlotCount = domain.CountAvailable(in.slots(d))
		}
		cal.Days = append(cal.Days, day)
	}
	return cal, nil
}
