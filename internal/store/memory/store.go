package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"carebook/scheduler/internal/domain"
	"carebook/scheduler/internal/store"
)

type Store struct {
	mu sync.RWMutex

	rules     map[uuid.UUID]domain.WeeklyAvailabilityRule
	blackouts map[uuid.UUID]domain.Blackout
	settings  map[string]domain.SchedulingSettings
	bookings  map[uuid.UUID]domain.Booking
	history   map[uuid.UUID][]domain.BookingHistoryEntry

	now func() time.Time
}

func New() *Store {
	return &Store{
		rules:     make(map[uuid.UUID]domain.WeeklyAvailabilityRule),
		blackouts: make(map[uuid.UUID]domain.Blackout),
		settings:  make(map[string]domain.SchedulingSettings),
		bookings:  make(map[uuid.UUID]domain.Booking),
		history:   make(map[uuid.UUID][]domain.BookingHistoryEntry),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

var (
	_ store.AvailabilityRepository = (*Store)(nil)
	_ store.BookingRepository      = (*Store)(nil)
)

func newID() (uuid.UUID, error) {
	return uuid.NewV7()
}

func (s *Store) GetWeeklyRules(ctx context.Context, practitionerID string) ([]domain.WeeklyAvailabilityRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.WeeklyAvailabilityRule, 0)
	for _, r := range s.rules {
		if r.PractitionerID == practitionerID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return out[i].DayOfWeek < out[j].DayOfWeek
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (s *Store) GetBlackouts(ctx context.Context, practitionerID string, dates domain.DateRange) ([]domain.Blackout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Blackout, 0)
	for _, b := range s.blackouts {
		if b.PractitionerID == practitionerID && dates.Contains(b.Date) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) GetSettings(ctx context.Context, practitionerID string) (domain.SchedulingSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.settings[practitionerID]
	if !ok {
		return domain.SchedulingSettings{}, store.ErrNotFound
	}
	return v, nil
}

func (s *Store) CreateWeeklyRule(ctx context.Context, rule domain.WeeklyAvailabilityRule) (domain.WeeklyAvailabilityRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rule.ID == uuid.Nil {
		id, err := newID()
		if err != nil {
			return domain.WeeklyAvailabilityRule{}, err
		}
		rule.ID = id
	}
	if _, exists := s.rules[rule.ID]; exists {
		return domain.WeeklyAvailabilityRule{}, store.ErrConflict
	}
	now := s.now()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	s.rules[rule.ID] = rule
	return rule, nil
}

func (s *Store) UpdateWeeklyRule(ctx context.Context, rule domain.WeeklyAvailabilityRule) (domain.WeeklyAvailabilityRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.rules[rule.ID]
	if !ok || existing.PractitionerID != rule.PractitionerID {
		return domain.WeeklyAvailabilityRule{}, store.ErrNotFound
	}
	existing.DayOfWeek = rule.DayOfWeek
	existing.StartTime = rule.StartTime
	existing.EndTime = rule.EndTime
	existing.Active = rule.Active
	existing.UpdatedAt = s.now()
	s.rules[rule.ID] = existing
	return existing, nil
}

func (s *Store) DeleteWeeklyRule(ctx context.Context, practitionerID string, ruleID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.rules[ruleID]
	if !ok || existing.PractitionerID != practitionerID {
		return store.ErrNotFound
	}
	delete(s.rules, ruleID)
	return nil
}

func (s *Store) CreateBlackout(ctx context.Context, blackout domain.Blackout) (domain.Blackout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if blackout.ID == uuid.Nil {
		id, err := newID()
		if err != nil {
			return domain.Blackout{}, err
		}
		blackout.ID = id
	}
	if _, exists := s.blackouts[blackout.ID]; exists {
		return domain.Blackout{}, store.ErrConflict
	}
	blackout.CreatedAt = s.now()
	s.blackouts[blackout.ID] = blackout
	return blackout, nil
}

func (s *Store) DeleteBlackout(ctx context.Context, practitionerID string, blackoutID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.blackouts[blackoutID]
	if !ok || existing.PractitionerID != practitionerID {
		return store.ErrNotFound
	}
	delete(s.blackouts, blackoutID)
	return nil
}

func (s *Store) UpsertSettings(ctx context.Context, settings domain.SchedulingSettings) (domain.SchedulingSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings.UpdatedAt = s.now()
	s.settings[settings.PractitionerID] = settings
	return settings, nil
}
