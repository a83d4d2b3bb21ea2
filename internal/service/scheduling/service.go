package scheduling

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"carebook/scheduler/internal/domain"
	"carebook/scheduler/internal/events"
	"carebook/scheduler/internal/store"
)

const DefaultMaxRangeDays = 62

type ValidationError struct {
	msg string
	err error
}

func (e *ValidationError) Error() string {
	return e.msg
}

func (e *ValidationError) Unwrap() error {
	return e.err
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// invalid turns a domain validation failure into a ValidationError that still matches the
// original sentinel through errors.Is.
func invalid(err error) error {
	return &ValidationError{msg: err.Error(), err: err}
}

type Service struct {
	availability store.AvailabilityRepository
	bookings     store.BookingRepository
	publisher    events.Publisher
	log          *slog.Logger
	now          func() time.Time

	maxRangeDays    int
	defaultTimezone string
}

type Option func(*Service)

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithMaxRangeDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.maxRangeDays = days
		}
	}
}

func WithDefaultTimezone(tz string) Option {
	return func(s *Service) {
		if tz != "" {
			s.defaultTimezone = tz
		}
	}
}

func NewService(availability store.AvailabilityRepository, bookings store.BookingRepository, opts ...Option) *Service {
	s := &Service{
		availability:    availability,
		bookings:        bookings,
		publisher:       events.Nop{},
		log:             slog.Default(),
		now:             time.Now,
		maxRangeDays:    DefaultMaxRangeDays,
		defaultTimezone: "UTC",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(slog.String("component", "service.scheduling"))
	return s
}

func (s *Service) settingsFor(ctx context.Context, practitionerID string) (domain.SchedulingSettings, error) {
	if practitionerID == "" {
		return domain.SchedulingSettings{}, validationError("practitioner_id is required")
	}
	return s.availability.GetSettings(ctx, practitionerID)
}

func (s *Service) ensureSettings(ctx context.Context, practitionerID string) (domain.SchedulingSettings, error) {
	settings, err := s.availability.GetSettings(ctx, practitionerID)
	if err == nil {
		return settings, nil
	}
	if !isNotFound(err) {
		return domain.SchedulingSettings{}, err
	}
	return s.availability.UpsertSettings(ctx, domain.DefaultSettings(practitionerID, s.defaultTimezone))
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

func (s *Service) publish(ctx context.Context, routingKey string, payload any) {
	if err := s.publisher.Publish(ctx, routingKey, payload); err != nil {
		s.log.Warn("booking event not published", slog.String("routing_key", routingKey), slog.Any("err", err))
	}
}
