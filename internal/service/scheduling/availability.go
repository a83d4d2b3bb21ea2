package scheduling

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"carebook/scheduler/internal/domain"
)

const maxBlackoutReasonLen = 500

type WeeklyRuleInput struct {
	PractitionerID string
	DayOfWeek      domain.Weekday
	Window         domain.TimeWindow
	// Active defaults to true when nil.
	Active *bool
}

type BlackoutInput struct {
	PractitionerID string
	Date           domain.Date
	StartTime      *domain.TimeOfDay
	EndTime        *domain.TimeOfDay
	Reason         string
}

// SettingsInput leaves fields that are nil unchanged, or at their defaults for a new practitioner.
type SettingsInput struct {
	PractitionerID      string
	SlotDurationMinutes *int
	BufferMinutes       *int
	Timezone            *string
}

func (in WeeklyRuleInput) rule() (domain.WeeklyAvailabilityRule, error) {
	if in.PractitionerID == "" {
		return domain.WeeklyAvailabilityRule{}, validationError("practitioner_id is required")
	}
	if !in.DayOfWeek.Valid() {
		return domain.WeeklyAvailabilityRule{}, validationError("day_of_week is invalid")
	}
	w, err := domain.NewTimeWindow(in.Window.Start, in.Window.End)
	if err != nil {
		return domain.WeeklyAvailabilityRule{}, invalid(err)
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	return domain.WeeklyAvailabilityRule{
		PractitionerID: in.PractitionerID,
		DayOfWeek:      in.DayOfWeek,
		StartTime:      w.Start,
		EndTime:        w.End,
		Active:         active,
	}, nil
}

func (s *Service) ListWeeklyRules(ctx context.Context, practitionerID string) ([]domain.WeeklyAvailabilityRule, error) {
	if practitionerID == "" {
		return nil, validationError("practitioner_id is required")
	}
	return s.availability.GetWeeklyRules(ctx, practitionerID)
}

func (s *Service) CreateWeeklyRule(ctx context.Context, in WeeklyRuleInput) (domain.WeeklyAvailabilityRule, error) {
	rule, err := in.rule()
	if err != nil {
		return domain.WeeklyAvailabilityRule{}, err
	}
	if _, err := s.ensureSettings(ctx, rule.PractitionerID); err != nil {
		return domain.WeeklyAvailabilityRule{}, err
	}
	return s.availability.CreateWeeklyRule(ctx, rule)
}

func (s *Service) UpdateWeeklyRule(ctx context.Context, ruleID uuid.UUID, in WeeklyRuleInput) (domain.WeeklyAvailabilityRule, error) {
	if ruleID == uuid.Nil {
		return domain.WeeklyAvailabilityRule{}, validationError("rule_id is required")
	}
	rule, err := in.rule()
	if err != nil {
		return domain.WeeklyAvailabilityRule{}, err
	}
	rule.ID = ruleID
	return s.availability.UpdateWeeklyRule(ctx, rule)
}

func (s *Service) DeleteWeeklyRule(ctx context.Context, practitionerID string, ruleID uuid.UUID) error {
	if practitionerID == "" {
		return validationError("practitioner_id is required")
	}
	if ruleID == uuid.Nil {
		return validationError("rule_id is required")
	}
	return s.availability.DeleteWeeklyRule(ctx, practitionerID, ruleID)
}

func (s *Service) ListBlackouts(ctx context.Context, practitionerID string, dates domain.DateRange) ([]domain.Blackout, error) {
	if practitionerID == "" {
		return nil, validationError("practitioner_id is required")
	}
	if dates.From.IsZero() || dates.To.IsZero() || dates.To.Before(dates.From) {
		return nil, validationError("a valid from/to date range is required")
	}
	return s.availability.GetBlackouts(ctx, practitionerID, dates)
}

func (s *Service) CreateBlackout(ctx context.Context, in BlackoutInput) (domain.Blackout, error) {
	if in.PractitionerID == "" {
		return domain.Blackout{}, validationError("practitioner_id is required")
	}
	if in.Date.IsZero() {
		return domain.Blackout{}, validationError("date is required")
	}
	reason := strings.TrimSpace(in.Reason)
	if len(reason) > maxBlackoutReasonLen {
		return domain.Blackout{}, validationError("reason too long")
	}

	b := domain.Blackout{
		PractitionerID: in.PractitionerID,
		Date:           in.Date,
		StartTime:      in.StartTime,
		EndTime:        in.EndTime,
		Reason:         reason,
	}
	if err := b.Validate(); err != nil {
		return domain.Blackout{}, invalid(err)
	}
	if _, err := s.ensureSettings(ctx, in.PractitionerID); err != nil {
		return domain.Blackout{}, err
	}
	return s.availability.CreateBlackout(ctx, b)
}

func (s *Service) DeleteBlackout(ctx context.Context, practitionerID string, blackoutID uuid.UUID) error {
	if practitionerID == "" {
		return validationError("practitioner_id is required")
	}
	if blackoutID == uuid.Nil {
		return validationError("blackout_id is required")
	}
	return s.availability.DeleteBlackout(ctx, practitionerID, blackoutID)
}

func (s *Service) GetSettings(ctx context.Context, practitionerID string) (domain.SchedulingSettings, error) {
	return s.settingsFor(ctx, practitionerID)
}

func (s *Service) UpdateSettings(ctx context.Context, in SettingsInput) (domain.SchedulingSettings, error) {
	if in.PractitionerID == "" {
		return domain.SchedulingSettings{}, validationError("practitioner_id is required")
	}

	settings, err := s.availability.GetSettings(ctx, in.PractitionerID)
	if err != nil {
		if !isNotFound(err) {
			return domain.SchedulingSettings{}, err
		}
		settings = domain.DefaultSettings(in.PractitionerID, s.defaultTimezone)
	}

	if in.SlotDurationMinutes != nil {
		settings.SlotDurationMinutes = *in.SlotDurationMinutes
	}
	if in.BufferMinutes != nil {
		settings.BufferMinutes = *in.BufferMinutes
	}
	if in.Timezone != nil {
		settings.Timezone = strings.TrimSpace(*in.Timezone)
	}
	if err := settings.Validate(); err != nil {
		return domain.SchedulingSettings{}, invalid(err)
	}
	return s.availability.UpsertSettings(ctx, settings)
}
