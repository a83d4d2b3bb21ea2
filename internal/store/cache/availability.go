package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"carebook/scheduler/internal/domain"
	"carebook/scheduler/internal/store"
)

const (
	DefaultSize = 1024
	DefaultTTL  = 30 * time.Second
)

// Availability caches weekly rules and settings per practitioner. Writes made outside the
// decorator become visible once the TTL expires.
type Availability struct {
	store.AvailabilityRepository

	rules    *expirable.LRU[string, []domain.WeeklyAvailabilityRule]
	settings *expirable.LRU[string, domain.SchedulingSettings]

	// generations counts writes per practitioner; a read that overlapped a write is not cached.
	mu          sync.Mutex
	generations map[string]uint64
}

var _ store.AvailabilityRepository = (*Availability)(nil)

func NewAvailability(next store.AvailabilityRepository, size int, ttl time.Duration) *Availability {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Availability{
		AvailabilityRepository: next,
		rules:                  expirable.NewLRU[string, []domain.WeeklyAvailabilityRule](size, nil, ttl),
		settings:               expirable.NewLRU[string, domain.SchedulingSettings](size, nil, ttl),
		generations:            make(map[string]uint64),
	}
}

func (c *Availability) GetWeeklyRules(ctx context.Context, practitionerID string) ([]domain.WeeklyAvailabilityRule, error) {
	if rules, ok := c.rules.Get(practitionerID); ok {
		return cloneRules(rules), nil
	}
	gen := c.generation(practitionerID)
	rules, err := c.AvailabilityRepository.GetWeeklyRules(ctx, practitionerID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	if c.generations[practitionerID] == gen {
		c.rules.Add(practitionerID, cloneRules(rules))
	}
	c.mu.Unlock()
	return rules, nil
}

// GetSettings does not cache ErrNotFound so a newly configured practitioner is visible at once.
func (c *Availability) GetSettings(ctx context.Context, practitionerID string) (domain.SchedulingSettings, error) {
	if s, ok := c.settings.Get(practitionerID); ok {
		return s, nil
	}
	gen := c.generation(practitionerID)
	s, err := c.AvailabilityRepository.GetSettings(ctx, practitionerID)
	if err != nil {
		return domain.SchedulingSettings{}, err
	}
	c.mu.Lock()
	if c.generations[practitionerID] == gen {
		c.settings.Add(practitionerID, s)
	}
	c.mu.Unlock()
	return s, nil
}

func (c *Availability) CreateWeeklyRule(ctx context.Context, rule domain.WeeklyAvailabilityRule) (domain.WeeklyAvailabilityRule, error) {
	defer c.invalidate(rule.PractitionerID)
	return c.AvailabilityRepository.CreateWeeklyRule(ctx, rule)
}

func (c *Availability) UpdateWeeklyRule(ctx context.Context, rule domain.WeeklyAvailabilityRule) (domain.WeeklyAvailabilityRule, error) {
	defer c.invalidate(rule.PractitionerID)
	return c.AvailabilityRepository.UpdateWeeklyRule(ctx, rule)
}

func (c *Availability) DeleteWeeklyRule(ctx context.Context, practitionerID string, ruleID uuid.UUID) error {
	defer c.invalidate(practitionerID)
	return c.AvailabilityRepository.DeleteWeeklyRule(ctx, practitionerID, ruleID)
}

func (c *Availability) UpsertSettings(ctx context.Context, settings domain.SchedulingSettings) (domain.SchedulingSettings, error) {
	defer c.invalidate(settings.PractitionerID)
	return c.AvailabilityRepository.UpsertSettings(ctx, settings)
}

func (c *Availability) generation(practitionerID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[practitionerID]
}

func (c *Availability) invalidate(practitionerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[practitionerID]++
	c.rules.Remove(practitionerID)
	c.settings.Remove(practitionerID)
}

func (c *Availability) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.generations {
		c.generations[id]++
	}
	c.rules.Purge()
	c.settings.Purge()
}

func cloneRules(in []domain.WeeklyAvailabilityRule) []domain.WeeklyAvailabilityRule {
	out := make([]domain.WeeklyAvailabilityRule, len(in))
	copy(out, in)
	return out
}
