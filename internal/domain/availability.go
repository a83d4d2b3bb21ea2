package domain

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	DefaultSlotDurationMinutes = 30
	DefaultBufferMinutes       = 0

	MinSlotDurationMinutes = 5
	MaxSlotDurationMinutes = 8 * 60
	MaxBufferMinutes       = 4 * 60
)

type WeeklyAvailabilityRule struct {
	bun.BaseModel `bun:"table:weekly_availability_rules"`

	ID             uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	PractitionerID string    `bun:"practitioner_id,notnull" json:"practitioner_id"`
	DayOfWeek      Weekday   `bun:"day_of_week,notnull" json:"day_of_week"`
	StartTime      TimeOfDay `bun:"start_minute,notnull" json:"start_time"`
	EndTime        TimeOfDay `bun:"end_minute,notnull" json:"end_time"`
	Active         bool      `bun:"active,notnull" json:"active"`
	CreatedAt      time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt      time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

func (r WeeklyAvailabilityRule) Window() TimeWindow {
	return TimeWindow{Start: r.StartTime, End: r.EndTime}
}

func (r *WeeklyAvailabilityRule) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if r.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			r.ID = id
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		r.UpdatedAt = now
	}
	return nil
}

// Blackout removes availability on one date. Without times it covers the whole date.
type Blackout struct {
	bun.BaseModel `bun:"table:blackouts"`

	ID             uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	PractitionerID string     `bun:"practitioner_id,notnull" json:"practitioner_id"`
	Date           Date       `bun:"date,notnull,type:date" json:"date"`
	StartTime      *TimeOfDay `bun:"start_minute" json:"start_time,omitempty"`
	EndTime        *TimeOfDay `bun:"end_minute" json:"end_time,omitempty"`
	Reason         string     `bun:"reason" json:"reason,omitempty"`
	CreatedAt      time.Time  `bun:"created_at,notnull" json:"created_at"`
}

func (b Blackout) FullDay() bool {
	return b.StartTime == nil && b.EndTime == nil
}

func (b Blackout) Window() (w TimeWindow, ok bool) {
	if b.StartTime == nil || b.EndTime == nil {
		return TimeWindow{}, false
	}
	return TimeWindow{Start: *b.StartTime, End: *b.EndTime}, true
}

func (b Blackout) Validate() error {
	if (b.StartTime == nil) != (b.EndTime == nil) {
		return fmt.Errorf("%w: blackout needs both start_time and end_time or neither", ErrInvalidWindow)
	}
	if w, ok := b.Window(); ok {
		if _, err := NewTimeWindow(w.Start, w.End); err != nil {
			return err
		}
	}
	return nil
}

func (b *Blackout) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if b.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		b.ID = id
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	return nil
}

type SchedulingSettings struct {
	bun.BaseModel `bun:"table:scheduling_settings"`

	PractitionerID      string    `bun:"practitioner_id,pk" json:"practitioner_id"`
	SlotDurationMinutes int       `bun:"slot_duration_minutes,notnull" json:"slot_duration_minutes"`
	BufferMinutes       int       `bun:"buffer_minutes,notnull" json:"buffer_minutes"`
	Timezone            string    `bun:"timezone,notnull" json:"timezone"`
	UpdatedAt           time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

func DefaultSettings(practitionerID, timezone string) SchedulingSettings {
	if timezone == "" {
		timezone = "UTC"
	}
	return SchedulingSettings{
		PractitionerID:      practitionerID,
		SlotDurationMinutes: DefaultSlotDurationMinutes,
		BufferMinutes:       DefaultBufferMinutes,
		Timezone:            timezone,
	}
}

func (s SchedulingSettings) Validate() error {
	if s.SlotDurationMinutes < MinSlotDurationMinutes || s.SlotDurationMinutes > MaxSlotDurationMinutes {
		return fmt.Errorf("%w: slot_duration_minutes must be between %d and %d", ErrInvalidWindow, MinSlotDurationMinutes, MaxSlotDurationMinutes)
	}
	if s.BufferMinutes < 0 || s.BufferMinutes > MaxBufferMinutes {
		return fmt.Errorf("%w: buffer_minutes must be between 0 and %d", ErrInvalidWindow, MaxBufferMinutes)
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q", s.Timezone)
	}
	return nil
}

// Location falls back to UTC when the stored timezone cannot be loaded.
func (s SchedulingSettings) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
