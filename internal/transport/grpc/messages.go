package grpc

import "carebook/scheduler/internal/domain"

type GetSlotsRequest struct {
	PractitionerID string `json:"practitioner_id"`
	From           string `json:"from"`
	To             string `json:"to"`
}

type GetSlotsResponse struct {
	Days []domain.DaySlots `json:"days"`
}

type GetCalendarRequest struct {
	PractitionerID string `json:"practitioner_id"`
	Year           int    `json:"year"`
	Month          int    `json:"month"`
}

type GetCalendarResponse struct {
	Calendar domain.Calendar `json:"calendar"`
}

type CreateBookingRequest struct {
	PractitionerID string `json:"practitioner_id"`
	PatientID      string `json:"patient_id"`
	Date           string `json:"date"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
}

type RescheduleBookingRequest struct {
	BookingID string `json:"booking_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Reason    string `json:"reason"`
}

type UpdateBookingStatusRequest struct {
	BookingID string `json:"booking_id"`
	Action    string `json:"action"`
	Reason    string `json:"reason"`
}

type GetBookingRequest struct {
	BookingID string `json:"booking_id"`
}

type BookingResponse struct {
	Booking domain.Booking `json:"booking"`
}
