package grpc

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"carebook/scheduler/internal/domain"
	"carebook/scheduler/internal/service/scheduling"
	"carebook/scheduler/internal/store"
)

type fakeSchedulingService struct {
	listSlotsFn        func(ctx context.Context, practitionerID string, dates domain.DateRange) ([]domain.DaySlots, error)
	getCalendarFn      func(ctx context.Context, practitionerID string, year, month int) (domain.Calendar, error)
	commitBookingFn    func(ctx context.Context, in scheduling.CommitBookingInput) (domain.Booking, error)
	rescheduleFn       func(ctx context.Context, in scheduling.RescheduleInput) (domain.Booking, error)
	transitionStatusFn func(ctx context.Context, bookingID uuid.UUID, action domain.BookingAction, reason string) (domain.Booking, error)
	getBookingFn       func(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error)
}

func (f *fakeSchedulingService) ListSlots(ctx context.Context, practitionerID string, dates domain.DateRange) ([]domain.DaySlots, error) {
	if f.listSlotsFn == nil {
		panic("ListSlots not configured")
	}
	return f.listSlotsFn(ctx, practitionerID, dates)
}

func (f *fakeSchedulingService) GetCalendar(ctx context.Context, practitionerID string, year, month int) (domain.Calendar, error) {
	if f.getCalendarFn == nil {
		panic("GetCalendar not configured")
	}
	return f.getCalendarFn(ctx, practitionerID, year, month)
}

func (f *fakeSchedulingService) CommitBooking(ctx context.Context, in scheduling.CommitBookingInput) (domain.Booking, error) {
	if f.commitBookingFn == nil {
		panic("CommitBooking not configured")
	}
	return f.commitBookingFn(ctx, in)
}

func (f *fakeSchedulingService) Reschedule(ctx context.Context, in scheduling.RescheduleInput) (domain.Booking, error) {
	if f.rescheduleFn == nil {
		panic("Reschedule not configured")
	}
	return f.rescheduleFn(ctx, in)
}

func (f *fakeSchedulingService) TransitionStatus(ctx context.Context, bookingID uuid.UUID, action domain.BookingAction, reason string) (domain.Booking, error) {
	if f.transitionStatusFn == nil {
		panic("TransitionStatus not configured")
	}
	return f.transitionStatusFn(ctx, bookingID, action, reason)
}

func (f *fakeSchedulingService) GetBooking(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error) {
	if f.getBookingFn == nil {
		panic("GetBooking not configured")
	}
	return f.getBookingFn(ctx, bookingID)
}

var bookingID = uuid.MustParse("00000000-0000-0000-0000-000000000010")

func TestIdempotencyKey_ReadsHeadersAndTrims(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("idempotency-key", "  abc  "))
	if got := idempotencyKey(ctx); got != "abc" {
		t.Fatalf("idempotencyKey = %q, want %q", got, "abc")
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-idempotency-key", "xyz"))
	if got := idempotencyKey(ctx); got != "xyz" {
		t.Fatalf("idempotencyKey = %q, want %q", got, "xyz")
	}

	if got := idempotencyKey(context.Background()); got != "" {
		t.Fatalf("idempotencyKey = %q, want empty", got)
	}
}

func TestCreateBooking_RejectsMalformedSlot(t *testing.T) {
	srv := NewSchedulingServer(&fakeSchedulingService{}, slog.Default())

	tests := []struct {
		name string
		req  *CreateBookingRequest
	}{
		{name: "nil", req: nil},
		{name: "bad date", req: &CreateBookingRequest{PractitionerID: "p1", Date: "05/01/2026", StartTime: "09:00", EndTime: "09:30"}},
		{name: "reversed window", req: &CreateBookingRequest{PractitionerID: "p1", Date: "2026-01-05", StartTime: "10:00", EndTime: "09:30"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := srv.CreateBooking(context.Background(), tt.req)
			if status.Code(err) != codes.InvalidArgument {
				t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
			}
		})
	}
}

func TestCreateBooking_PassesIdempotencyKeyToService(t *testing.T) {
	var got scheduling.CommitBookingInput

	srv := NewSchedulingServer(&fakeSchedulingService{
		commitBookingFn: func(ctx context.Context, in scheduling.CommitBookingInput) (domain.Booking, error) {
			got = in
			return domain.Booking{ID: bookingID, PractitionerID: in.PractitionerID, Date: in.Date, StartTime: in.Window.Start, EndTime: in.Window.End}, nil
		},
	}, slog.Default())

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("idempotency-key", "k1"))
	resp, err := srv.CreateBooking(ctx, &CreateBookingRequest{
		PractitionerID: "p1",
		PatientID:      "pat1",
		Date:           "2026-01-05",
		StartTime:      "09:00",
		EndTime:        "09:30",
	})
	if err != nil {
		t.Fatalf("CreateBooking error: %v", err)
	}
	if got.IdempotencyKey != "k1" {
		t.Fatalf("idempotency_key = %q, want %q", got.IdempotencyKey, "k1")
	}
	if got.Window != domain.MustTimeWindow("09:00", "09:30") || got.Date != domain.MustDate("2026-01-05") {
		t.Fatalf("slot = %s %s", got.Date, got.Window)
	}
	if resp.Booking.ID != bookingID {
		t.Fatalf("booking id = %s, want %s", resp.Booking.ID, bookingID)
	}
}

func TestToStatus_MapsServiceErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{name: "validation", err: &scheduling.ValidationError{}, want: codes.InvalidArgument},
		{name: "invalid window", err: domain.ErrInvalidWindow, want: codes.InvalidArgument},
		{name: "slot unavailable", err: domain.ErrSlotUnavailable, want: codes.FailedPrecondition},
		{name: "slot conflict", err: domain.ErrSlotConflict, want: codes.Aborted},
		{name: "invalid state", err: domain.ErrInvalidState, want: codes.FailedPrecondition},
		{name: "idempotency conflict", err: store.ErrIdempotencyConflict, want: codes.FailedPrecondition},
		{name: "not found", err: store.ErrNotFound, want: codes.NotFound},
		{name: "deadline", err: context.DeadlineExceeded, want: codes.DeadlineExceeded},
		{name: "unknown", err: errors.New("db down"), want: codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := toStatus(slog.Default(), "failed", tt.err)
			if status.Code(err) != tt.want {
				t.Fatalf("code = %s, want %s", status.Code(err), tt.want)
			}
		})
	}

	err := toStatus(slog.Default(), "failed", errors.New("password=secret"))
	if status.Convert(err).Message() != "internal error" {
		t.Fatalf("internal error message leaked: %q", status.Convert(err).Message())
	}
}

func TestUpdateBookingStatus_ParsesAction(t *testing.T) {
	var gotAction domain.BookingAction

	srv := NewSchedulingServer(&fakeSchedulingService{
		transitionStatusFn: func(ctx context.Context, id uuid.UUID, action domain.BookingAction, reason string) (domain.Booking, error) {
			gotAction = action
			return domain.Booking{ID: id, Status: domain.BookingStatusConfirmed}, nil
		},
	}, slog.Default())

	resp, err := srv.UpdateBookingStatus(context.Background(), &UpdateBookingStatusRequest{BookingID: bookingID.String(), Action: " Accept "})
	if err != nil {
		t.Fatalf("UpdateBookingStatus error: %v", err)
	}
	if gotAction != domain.BookingActionAccept {
		t.Fatalf("action = %q, want %q", gotAction, domain.BookingActionAccept)
	}
	if resp.Booking.Status != domain.BookingStatusConfirmed {
		t.Fatalf("status = %s, want confirmed", resp.Booking.Status)
	}

	_, err = srv.UpdateBookingStatus(context.Background(), &UpdateBookingStatusRequest{BookingID: bookingID.String(), Action: "archive"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
}

func TestGetSlots_DefaultsToSingleDay(t *testing.T) {
	var got domain.DateRange

	srv := NewSchedulingServer(&fakeSchedulingService{
		listSlotsFn: func(ctx context.Context, practitionerID string, dates domain.DateRange) ([]domain.DaySlots, error) {
			got = dates
			return []domain.DaySlots{{Date: dates.From}}, nil
		},
	}, slog.Default())

	resp, err := srv.GetSlots(context.Background(), &GetSlotsRequest{PractitionerID: "p1", From: "2026-01-05"})
	if err != nil {
		t.Fatalf("GetSlots error: %v", err)
	}
	day := domain.MustDate("2026-01-05")
	if got.From != day || got.To != day {
		t.Fatalf("range = %s..%s, want single day %s", got.From, got.To, day)
	}
	if len(resp.Days) != 1 {
		t.Fatalf("len(days) = %d, want 1", len(resp.Days))
	}
}

func TestDefaultRequestTimeoutInterceptor_AddsDeadline(t *testing.T) {
	interceptor := DefaultRequestTimeoutInterceptor(time.Second)

	var hadDeadline bool
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{}, func(ctx context.Context, req any) (any, error) {
		_, hadDeadline = ctx.Deadline()
		return nil, nil
	})
	if err != nil {
		t.Fatalf("interceptor error: %v", err)
	}
	if !hadDeadline {
		t.Fatalf("expected handler context to carry a deadline")
	}
}

func dialBufconn(t *testing.T, svc schedulingService) *SchedulingServiceClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(
		DefaultRequestTimeoutInterceptor(time.Second),
		LoggingInterceptor(slog.Default()),
	))
	RegisterSchedulingServiceServer(server, NewSchedulingServer(svc, slog.Default()))
	go func() {
		_ = server.Serve(lis)
	}()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient error: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return NewSchedulingServiceClient(conn)
}

func TestSchedulingService_OverBufconn(t *testing.T) {
	day := domain.MustDate("2026-01-05")
	svc := &fakeSchedulingService{
		commitBookingFn: func(ctx context.Context, in scheduling.CommitBookingInput) (domain.Booking, error) {
			if in.IdempotencyKey != "retry-1" {
				return domain.Booking{}, errors.New("missing idempotency key")
			}
			return domain.Booking{
				ID:             bookingID,
				PractitionerID: in.PractitionerID,
				PatientID:      in.PatientID,
				Date:           in.Date,
				StartTime:      in.Window.Start,
				EndTime:        in.Window.End,
				Status:         domain.BookingStatusPending,
			}, nil
		},
		getBookingFn: func(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
			return domain.Booking{}, store.ErrNotFound
		},
		listSlotsFn: func(ctx context.Context, practitionerID string, dates domain.DateRange) ([]domain.DaySlots, error) {
			return []domain.DaySlots{{
				Date:  dates.From,
				Slots: []domain.Slot{{StartTime: domain.MustTimeOfDay("09:00"), EndTime: domain.MustTimeOfDay("09:30"), IsAvailable: true}},
			}}, nil
		},
	}
	client := dialBufconn(t, svc)

	ctx := metadata.AppendToOutgoingContext(context.Background(), "idempotency-key", "retry-1")
	resp, err := client.CreateBooking(ctx, &CreateBookingRequest{
		PractitionerID: "p1",
		PatientID:      "pat1",
		Date:           day.String(),
		StartTime:      "09:00",
		EndTime:        "09:30",
	})
	if err != nil {
		t.Fatalf("CreateBooking error: %v", err)
	}
	b := resp.Booking
	if b.ID != bookingID || b.Date != day || b.Window() != domain.MustTimeWindow("09:00", "09:30") || b.Status != domain.BookingStatusPending {
		t.Fatalf("booking = %+v", b)
	}

	slots, err := client.GetSlots(context.Background(), &GetSlotsRequest{PractitionerID: "p1", From: day.String(), To: day.String()})
	if err != nil {
		t.Fatalf("GetSlots error: %v", err)
	}
	if len(slots.Days) != 1 || len(slots.Days[0].Slots) != 1 || !slots.Days[0].Slots[0].IsAvailable {
		t.Fatalf("slots = %+v", slots.Days)
	}

	_, err = client.GetBooking(context.Background(), &GetBookingRequest{BookingID: uuid.NewString()})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.NotFound)
	}
}
