package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const (
	SchedulingServiceName = "carebook.scheduling.v1.SchedulingService"

	getSlotsMethod            = "/" + SchedulingServiceName + "/GetSlots"
	getCalendarMethod         = "/" + SchedulingServiceName + "/GetCalendar"
	createBookingMethod       = "/" + SchedulingServiceName + "/CreateBooking"
	rescheduleBookingMethod   = "/" + SchedulingServiceName + "/RescheduleBooking"
	updateBookingStatusMethod = "/" + SchedulingServiceName + "/UpdateBookingStatus"
	getBookingMethod          = "/" + SchedulingServiceName + "/GetBooking"
)

type SchedulingServiceServer interface {
	GetSlots(ctx context.Context, req *GetSlotsRequest) (*GetSlotsResponse, error)
	GetCalendar(ctx context.Context, req *GetCalendarRequest) (*GetCalendarResponse, error)
	CreateBooking(ctx context.Context, req *CreateBookingRequest) (*BookingResponse, error)
	RescheduleBooking(ctx context.Context, req *RescheduleBookingRequest) (*BookingResponse, error)
	UpdateBookingStatus(ctx context.Context, req *UpdateBookingStatusRequest) (*BookingResponse, error)
	GetBooking(ctx context.Context, req *GetBookingRequest) (*BookingResponse, error)
}

func RegisterSchedulingServiceServer(s grpc.ServiceRegistrar, srv SchedulingServiceServer) {
	s.RegisterService(&schedulingServiceDesc, srv)
}

var schedulingServiceDesc = grpc.ServiceDesc{
	ServiceName: SchedulingServiceName,
	HandlerType: (*SchedulingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetSlots", Handler: unaryHandler(getSlotsMethod, SchedulingServiceServer.GetSlots)},
		{MethodName: "GetCalendar", Handler: unaryHandler(getCalendarMethod, SchedulingServiceServer.GetCalendar)},
		{MethodName: "CreateBooking", Handler: unaryHandler(createBookingMethod, SchedulingServiceServer.CreateBooking)},
		{MethodName: "RescheduleBooking", Handler: unaryHandler(rescheduleBookingMethod, SchedulingServiceServer.RescheduleBooking)},
		{MethodName: "UpdateBookingStatus", Handler: unaryHandler(updateBookingStatusMethod, SchedulingServiceServer.UpdateBookingStatus)},
		{MethodName: "GetBooking", Handler: unaryHandler(getBookingMethod, SchedulingServiceServer.GetBooking)},
	},
	Streams:     []grpc.StreamDesc{},
}

func unaryHandler[Req, Resp any](fullMethod string, call func(SchedulingServiceServer, context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SchedulingServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SchedulingServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

type SchedulingServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSchedulingServiceClient(cc grpc.ClientConnInterface) *SchedulingServiceClient {
	return &SchedulingServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, req any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SchedulingServiceClient) GetSlots(ctx context.Context, req *GetSlotsRequest, opts ...grpc.CallOption) (*GetSlotsResponse, error) {
	return invoke[GetSlotsResponse](ctx, c.cc, getSlotsMethod, req, opts)
}

func (c *SchedulingServiceClient) GetCalendar(ctx context.Context, req *GetCalendarRequest, opts ...grpc.CallOption) (*GetCalendarResponse, error) {
	return invoke[GetCalendarResponse](ctx, c.cc, getCalendarMethod, req, opts)
}

func (c *SchedulingServiceClient) CreateBooking(ctx context.Context, req *CreateBookingRequest, opts ...grpc.CallOption) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, createBookingMethod, req, opts)
}

func (c *SchedulingServiceClient) RescheduleBooking(ctx context.Context, req *RescheduleBookingRequest, opts ...grpc.CallOption) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, rescheduleBookingMethod, req, opts)
}

func (c *SchedulingServiceClient) UpdateBookingStatus(ctx context.Context, req *UpdateBookingStatusRequest, opts ...grpc.CallOption) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, updateBookingStatusMethod, req, opts)
}

func (c *SchedulingServiceClient) GetBooking(ctx context.Context, req *GetBookingRequest, opts ...grpc.CallOption) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, getBookingMethod, req, opts)
}
