package domain

import (
	"errors"
	"testing"
)

func TestNextStatus(t *testing.T) {
	tests := []struct {
		from    BookingStatus
		action  BookingAction
		want    BookingStatus
		wantErr bool
	}{
		{from: BookingStatusPending, action: BookingActionAccept, want: BookingStatusConfirmed},
		{from: BookingStatusPending, action: BookingActionReject, want: BookingStatusCancelled},
		{from: BookingStatusPending, action: BookingActionCancel, want: BookingStatusCancelled},
		{from: BookingStatusConfirmed, action: BookingActionStart, want: BookingStatusInProgress},
		{from: BookingStatusConfirmed, action: BookingActionCancel, want: BookingStatusCancelled},
		{from: BookingStatusInProgress, action: BookingActionComplete, want: BookingStatusCompleted},
		{from: BookingStatusInProgress, action: BookingActionCancel, want: BookingStatusCancelled},
		{from: BookingStatusPending, action: BookingActionStart, wantErr: true},
		{from: BookingStatusConfirmed, action: BookingActionReject, wantErr: true},
		{from: BookingStatusCompleted, action: BookingActionCancel, wantErr: true},
		{from: BookingStatusCancelled, action: BookingActionAccept, wantErr: true},
		{from: BookingStatusCancelled, action: BookingActionCancel, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.action), func(t *testing.T) {
			got, err := NextStatus(tt.from, tt.action)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidState) {
					t.Fatalf("err = %v, want %v", err, ErrInvalidState)
				}
				return
			}
			if err != nil {
				t.Fatalf("NextStatus error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("status = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBlackoutValidate(t *testing.T) {
	start := MustTimeOfDay("10:00")
	end := MustTimeOfDay("09:00")

	if err := (Blackout{Date: monday}).Validate(); err != nil {
		t.Fatalf("full-day blackout should be valid: %v", err)
	}
	if err := (Blackout{Date: monday, StartTime: &start}).Validate(); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("err = %v, want %v", err, ErrInvalidWindow)
	}
	if err := (Blackout{Date: monday, StartTime: &start, EndTime: &end}).Validate(); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("err = %v, want %v", err, ErrInvalidWindow)
	}
}

func TestSchedulingSettingsValidate(t *testing.T) {
	s := DefaultSettings("p1", "Europe/Berlin")
	if err := s.Validate(); err != nil {
		t.Fatalf("default settings invalid: %v", err)
	}

	s.SlotDurationMinutes = 0
	if err := s.Validate(); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("err = %v, want %v", err, ErrInvalidWindow)
	}

	s = DefaultSettings("p1", "Not/AZone")
	if err := s.Validate(); err == nil {
		t.Fatalf("expected invalid timezone error")
	}
}
