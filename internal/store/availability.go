package store

import (
	"context"

	"github.com/google/uuid"

	"carebook/scheduler/internal/domain"
)

type AvailabilityReader interface {
	GetWeeklyRules(ctx context.Context, practitionerID string) ([]domain.WeeklyAvailabilityRule, error)
	GetBlackouts(ctx context.Context, practitionerID string, dates domain.DateRange) ([]domain.Blackout, error)
	// GetSettings returns ErrNotFound when the practitioner has no scheduling settings.
	GetSettings(ctx context.Context, practitionerID string) (domain.SchedulingSettings, error)
}

type AvailabilityRepository interface {
	AvailabilityReader

	CreateWeeklyRule(ctx context.Context, rule domain.WeeklyAvailabilityRule) (domain.WeeklyAvailabilityRule, error)
	UpdateWeeklyRule(ctx context.Context, rule domain.WeeklyAvailabilityRule) (domain.WeeklyAvailabilityRule, error)
	DeleteWeeklyRule(ctx context.Context, practitionerID string, ruleID uuid.UUID) error

	CreateBlackout(ctx context.Context, blackout domain.Blackout) (domain.Blackout, error)
	DeleteBlackout(ctx context.Context, practitionerID string, blackoutID uuid.UUID) error

	UpsertSettings(ctx context.Context, settings domain.SchedulingSettings) (domain.SchedulingSettings, error)
}
