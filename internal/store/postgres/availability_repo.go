package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"carebook/scheduler/internal/domain"
	"carebook/scheduler/internal/store"
)

type AvailabilityRepo struct {
	db *bun.DB
}

func NewAvailabilityRepo(db *bun.DB) *AvailabilityRepo {
	return &AvailabilityRepo{db: db}
}

func (r *AvailabilityRepo) GetWeeklyRules(ctx context.Context, practitionerID string) ([]domain.WeeklyAvailabilityRule, error) {
	var rows []domain.WeeklyAvailabilityRule
	err := r.db.NewSelect().
		Model(&rows).
		Where("practitioner_id = ?", practitionerID).
		OrderExpr("day_of_week ASC, start_minute ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AvailabilityRepo) GetBlackouts(ctx context.Context, practitionerID string, dates domain.DateRange) ([]domain.Blackout, error) {
	var rows []domain.Blackout
	err := r.db.NewSelect().
		Model(&rows).
		Where("practitioner_id = ?", practitionerID).
		Where("date >= ?", dates.From).
		Where("date <= ?", dates.To).
		OrderExpr("date ASC, start_minute ASC NULLS FIRST").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AvailabilityRepo) GetSettings(ctx context.Context, practitionerID string) (domain.SchedulingSettings, error) {
	var s domain.SchedulingSettings
	err := r.db.NewSelect().
		Model(&s).
		Where("practitioner_id = ?", practitionerID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.SchedulingSettings{}, mapNoRows(err)
	}
	return s, nil
}

func (r *AvailabilityRepo) CreateWeeklyRule(ctx context.Context, rule domain.WeeklyAvailabilityRule) (domain.WeeklyAvailabilityRule, error) {
	m := rule
	if _, err := r.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.WeeklyAvailabilityRule{}, err
	}
	return m, nil
}

func (r *AvailabilityRepo) UpdateWeeklyRule(ctx context.Context, rule domain.WeeklyAvailabilityRule) (domain.WeeklyAvailabilityRule, error) {
	m := rule
	err := r.db.NewUpdate().
		Model(&m).
		Column("day_of_week", "start_minute", "end_minute", "active", "updated_at").
		WherePK().
		Where("practitioner_id = ?", rule.PractitionerID).
		Returning("*").
		Scan(ctx)
	if err != nil {
		return domain.WeeklyAvailabilityRule{}, mapNoRows(err)
	}
	return m, nil
}

func (r *AvailabilityRepo) DeleteWeeklyRule(ctx context.Context, practitionerID string, ruleID uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*domain.WeeklyAvailabilityRule)(nil)).
		Where("practitioner_id = ?", practitionerID).
		Where("id = ?", ruleID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *AvailabilityRepo) CreateBlackout(ctx context.Context, blackout domain.Blackout) (domain.Blackout, error) {
	m := blackout
	if _, err := r.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Blackout{}, err
	}
	return m, nil
}

func (r *AvailabilityRepo) DeleteBlackout(ctx context.Context, practitionerID string, blackoutID uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*domain.Blackout)(nil)).
		Where("practitioner_id = ?", practitionerID).
		Where("id = ?", blackoutID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *AvailabilityRepo) UpsertSettings(ctx context.Context, settings domain.SchedulingSettings) (domain.SchedulingSettings, error) {
	m := settings
	m.UpdatedAt = time.Now().UTC()
	_, err := r.db.NewInsert().
		Model(&m).
		On("CONFLICT (practitioner_id) DO UPDATE").
		Set("slot_duration_minutes = EXCLUDED.slot_duration_minutes").
		Set("buffer_minutes = EXCLUDED.buffer_minutes").
		Set("timezone = EXCLUDED.timezone").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return domain.SchedulingSettings{}, err
	}
	return m, nil
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

func requireAffected(res rowsAffecter) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

var (
	_ store.AvailabilityRepository = (*AvailabilityRepo)(nil)
	_ store.BookingRepository      = (*BookingRepo)(nil)
	_ store.CalendarTx             = calendarTx{}
)
