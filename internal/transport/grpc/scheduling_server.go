package grpc

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"carebook/scheduler/internal/domain"
	"carebook/scheduler/internal/service/scheduling"
	"carebook/scheduler/internal/store"
)

type SchedulingServer struct {
	svc schedulingService
	log *slog.Logger
}

type schedulingService interface {
	ListSlots(ctx context.Context, practitionerID string, dates domain.DateRange) ([]domain.DaySlots, error)
	GetCalendar(ctx context.Context, practitionerID string, year, month int) (domain.Calendar, error)
	CommitBooking(ctx context.Context, in scheduling.CommitBookingInput) (domain.Booking, error)
	Reschedule(ctx context.Context, in scheduling.RescheduleInput) (domain.Booking, error)
	TransitionStatus(ctx context.Context, bookingID uuid.UUID, action domain.BookingAction, reason string) (domain.Booking, error)
	GetBooking(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error)
}

var _ SchedulingServiceServer = (*SchedulingServer)(nil)

func NewSchedulingServer(svc schedulingService, log *slog.Logger) *SchedulingServer {
	if log == nil {
		log = slog.Default()
	}
	return &SchedulingServer{
		svc: svc,
		log: log.With(slog.String("component", "grpc.scheduling")),
	}
}

func (s *SchedulingServer) GetSlots(ctx context.Context, req *GetSlotsRequest) (*GetSlotsResponse, error) {
	log := s.log.With(slog.String("rpc", "GetSlots"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	from, err := domain.ParseDate(req.From)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_from"), slog.String("practitioner_id", req.PractitionerID))
		return nil, status.Error(codes.InvalidArgument, "from must be a YYYY-MM-DD date")
	}
	to := from
	if req.To != "" {
		if to, err = domain.ParseDate(req.To); err != nil {
			log.Warn("invalid request", slog.String("reason", "invalid_to"), slog.String("practitioner_id", req.PractitionerID))
			return nil, status.Error(codes.InvalidArgument, "to must be a YYYY-MM-DD date")
		}
	}

	days, err := s.svc.ListSlots(ctx, req.PractitionerID, domain.DateRange{From: from, To: to})
	if err != nil {
		return nil, toStatus(log, "slots list failed", err, slog.String("practitioner_id", req.PractitionerID))
	}

	log.Debug(
		"slots listed",
		slog.String("practitioner_id", req.PractitionerID),
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.Int("days", len(days)),
	)
	return &GetSlotsResponse{Days: days}, nil
}

func (s *SchedulingServer) GetCalendar(ctx context.Context, req *GetCalendarRequest) (*GetCalendarResponse, error) {
	log := s.log.With(slog.String("rpc", "GetCalendar"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	cal, err := s.svc.GetCalendar(ctx, req.PractitionerID, req.Year, req.Month)
	if err != nil {
		return nil, toStatus(log, "calendar build failed", err, slog.String("practitioner_id", req.PractitionerID))
	}

	log.Debug("calendar built", slog.String("practitioner_id", req.PractitionerID), slog.Int("year", req.Year), slog.Int("month", req.Month))
	return &GetCalendarResponse{Calendar: cal}, nil
}

func (s *SchedulingServer) CreateBooking(ctx context.Context, req *CreateBookingRequest) (*BookingResponse, error) {
	log := s.log.With(slog.String("rpc", "CreateBooking"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	date, window, err := parseSlot(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		log.Warn("invalid request", slog.Any("err", err), slog.String("practitioner_id", req.PractitionerID))
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	booking, err := s.svc.CommitBooking(ctx, scheduling.CommitBookingInput{
		PractitionerID: req.PractitionerID,
		PatientID:      req.PatientID,
		Date:           date,
		Window:         window,
		IdempotencyKey: idempotencyKey(ctx),
	})
	if err != nil {
		return nil, toStatus(log, "booking create failed", err,
			slog.String("practitioner_id", req.PractitionerID),
			slog.String("date", date.String()),
			slog.String("window", window.String()),
		)
	}

	log.Info(
		"booking created",
		slog.String("booking_id", booking.ID.String()),
		slog.String("practitioner_id", booking.PractitionerID),
		slog.String("date", booking.Date.String()),
		slog.String("window", booking.Window().String()),
	)
	return &BookingResponse{Booking: booking}, nil
}

func (s *SchedulingServer) RescheduleBooking(ctx context.Context, req *RescheduleBookingRequest) (*BookingResponse, error) {
	log := s.log.With(slog.String("rpc", "RescheduleBooking"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, err := uuid.Parse(req.BookingID)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"))
		return nil, status.Error(codes.InvalidArgument, "booking_id must be a UUID")
	}
	date, window, err := parseSlot(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		log.Warn("invalid request", slog.Any("err", err), slog.String("booking_id", id.String()))
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	booking, err := s.svc.Reschedule(ctx, scheduling.RescheduleInput{
		BookingID: id,
		Date:      date,
		Window:    window,
		Reason:    req.Reason,
	})
	if err != nil {
		return nil, toStatus(log, "booking reschedule failed", err, slog.String("booking_id", id.String()))
	}

	log.Info(
		"booking rescheduled",
		slog.String("booking_id", booking.ID.String()),
		slog.String("date", booking.Date.String()),
		slog.String("window", booking.Window().String()),
	)
	return &BookingResponse{Booking: booking}, nil
}

func (s *SchedulingServer) UpdateBookingStatus(ctx context.Context, req *UpdateBookingStatusRequest) (*BookingResponse, error) {
	log := s.log.With(slog.String("rpc", "UpdateBookingStatus"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, err := uuid.Parse(req.BookingID)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"))
		return nil, status.Error(codes.InvalidArgument, "booking_id must be a UUID")
	}
	action, err := domain.ParseBookingAction(strings.ToLower(strings.TrimSpace(req.Action)))
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_action"), slog.String("booking_id", id.String()))
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	booking, err := s.svc.TransitionStatus(ctx, id, action, req.Reason)
	if err != nil {
		return nil, toStatus(log, "booking status update failed", err,
			slog.String("booking_id", id.String()),
			slog.String("action", string(action)),
		)
	}

	log.Info("booking status updated", slog.String("booking_id", id.String()), slog.String("status", string(booking.Status)))
	return &BookingResponse{Booking: booking}, nil
}

func (s *SchedulingServer) GetBooking(ctx context.Context, req *GetBookingRequest) (*BookingResponse, error) {
	log := s.log.With(slog.String("rpc", "GetBooking"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, err := uuid.Parse(req.BookingID)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"))
		return nil, status.Error(codes.InvalidArgument, "booking_id must be a UUID")
	}

	booking, err := s.svc.GetBooking(ctx, id)
	if err != nil {
		return nil, toStatus(log, "booking get failed", err, slog.String("booking_id", id.String()))
	}
	return &BookingResponse{Booking: booking}, nil
}

func parseSlot(date, start, end string) (domain.Date, domain.TimeWindow, error) {
	d, err := domain.ParseDate(date)
	if err != nil {
		return domain.Date{}, domain.TimeWindow{}, errors.New("date must be a YYYY-MM-DD date")
	}
	w, err := domain.ParseTimeWindow(start, end)
	if err != nil {
		return domain.Date{}, domain.TimeWindow{}, errors.New("start_time and end_time must be HH:MM with start before end")
	}
	return d, w, nil
}

// toStatus logs err at the level its kind deserves and converts it to a gRPC status.
// Unknown errors never leak their message to the caller.
func toStatus(log *slog.Logger, msg string, err error, attrs ...any) error {
	args := append([]any{slog.Any("err", err)}, attrs...)

	var vErr *scheduling.ValidationError
	switch {
	case errors.As(err, &vErr):
		log.Warn("invalid request", args...)
		return status.Error(codes.InvalidArgument, vErr.Error())
	case errors.Is(err, domain.ErrInvalidWindow):
		log.Warn("invalid request", args...)
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrSlotConflict):
		log.Info("slot taken concurrently", args...)
		return status.Error(codes.Aborted, "That slot was just booked by someone else. Pick a different slot.")
	case errors.Is(err, domain.ErrSlotUnavailable):
		log.Info("slot unavailable", args...)
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		log.Info("invalid booking state", args...)
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, store.ErrIdempotencyConflict):
		log.Info("idempotency conflict", args...)
		return status.Error(codes.FailedPrecondition, "This request key was already used for a different booking. Try again.")
	case errors.Is(err, store.ErrNotFound):
		log.Info("not found", args...)
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn(msg, args...)
		return status.Error(codes.DeadlineExceeded, "request timed out")
	case errors.Is(err, context.Canceled):
		log.Info(msg, args...)
		return status.Error(codes.Canceled, "request canceled")
	}
	log.Error(msg, args...)
	return status.Error(codes.Internal, "internal error")
}

func idempotencyKey(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get("idempotency-key")
	if len(values) == 0 {
		values = md.Get("x-idempotency-key")
	}
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}
