package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"carebook/scheduler/internal/domain"
	"carebook/scheduler/internal/service/scheduling"
)

type schedulingService interface {
	ListSlots(ctx context.Context, practitionerID string, dates domain.DateRange) ([]domain.DaySlots, error)
	GetCalendar(ctx context.Context, practitionerID string, year, month int) (domain.Calendar, error)

	GetSettings(ctx context.Context, practitionerID string) (domain.SchedulingSettings, error)
	UpdateSettings(ctx context.Context, in scheduling.SettingsInput) (domain.SchedulingSettings, error)
	ListWeeklyRules(ctx context.Context, practitionerID string) ([]domain.WeeklyAvailabilityRule, error)
	CreateWeeklyRule(ctx context.Context, in scheduling.WeeklyRuleInput) (domain.WeeklyAvailabilityRule, error)
	UpdateWeeklyRule(ctx context.Context, ruleID uuid.UUID, in scheduling.WeeklyRuleInput) (domain.WeeklyAvailabilityRule, error)
	DeleteWeeklyRule(ctx context.Context, practitionerID string, ruleID uuid.UUID) error
	ListBlackouts(ctx context.Context, practitionerID string, dates domain.DateRange) ([]domain.Blackout, error)
	CreateBlackout(ctx context.Context, in scheduling.BlackoutInput) (domain.Blackout, error)
	DeleteBlackout(ctx context.Context, practitionerID string, blackoutID uuid.UUID) error

	CommitBooking(ctx context.Context, in scheduling.CommitBookingInput) (domain.Booking, error)
	Reschedule(ctx context.Context, in scheduling.RescheduleInput) (domain.Booking, error)
	TransitionStatus(ctx context.Context, bookingID uuid.UUID, action domain.BookingAction, reason string) (domain.Booking, error)
	GetBooking(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error)
	ListBookingHistory(ctx context.Context, bookingID uuid.UUID) ([]domain.BookingHistoryEntry, error)
	ListBookings(ctx context.Context, practitionerID string, dates domain.DateRange) ([]domain.Booking, error)
}

type Options struct {
	// CORSOrigins lists allowed origins; empty or "*" allows any origin.
	CORSOrigins []string
	// RateLimitRPS is the per-client request rate; zero disables limiting.
	RateLimitRPS   float64
	RateLimitBurst int
}

type Handler struct {
	svc schedulingService
	log *slog.Logger
}

func NewHandler(svc schedulingService, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		svc: svc,
		log: log.With(slog.String("component", "http.scheduling")),
	}
}

func NewRouter(svc schedulingService, log *slog.Logger, opts Options) *gin.Engine {
	h := NewHandler(svc, log)

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.log), corsMiddleware(opts.CORSOrigins))
	if opts.RateLimitRPS > 0 {
		r.Use(newRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst).middleware(h.log))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")

	practitioners := api.Group("/practitioners/:id")
	{
		practitioners.GET("/slots", h.listSlots)
		practitioners.GET("/calendar", h.getCalendar)
		practitioners.GET("/bookings", h.listBookings)

		practitioners.GET("/settings", h.getSettings)
		practitioners.PUT("/settings", h.updateSettings)

		practitioners.GET("/availability", h.listWeeklyRules)
		practitioners.POST("/availability", h.createWeeklyRule)
		practitioners.PUT("/availability/:ruleID", h.updateWeeklyRule)
		practitioners.DELETE("/availability/:ruleID", h.deleteWeeklyRule)

		practitioners.GET("/blackouts", h.listBlackouts)
		practitioners.POST("/blackouts", h.createBlackout)
		practitioners.DELETE("/blackouts/:blackoutID", h.deleteBlackout)
	}

	bookings := api.Group("/bookings")
	{
		bookings.POST("", h.createBooking)
		bookings.GET("/:id", h.getBooking)
		bookings.GET("/:id/history", h.getBookingHistory)
		bookings.POST("/:id/reschedule", h.rescheduleBooking)
		for _, action := range []domain.BookingAction{
			domain.BookingActionAccept,
			domain.BookingActionReject,
			domain.BookingActionStart,
			domain.BookingActionComplete,
			domain.BookingActionCancel,
		} {
			bookings.POST("/:id/"+string(action), h.transitionBooking(action))
		}
	}
}
