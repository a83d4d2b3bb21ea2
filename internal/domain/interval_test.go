package domain

import (
	"errors"
	"reflect"
	"testing"
)

func w(start, end string) TimeWindow {
	return MustTimeWindow(start, end)
}

func TestNewTimeWindow_RejectsMalformed(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
	}{
		{name: "equal", start: "09:00", end: "09:00"},
		{name: "reversed", start: "10:00", end: "09:00"},
		{name: "past midnight", start: "23:00", end: "24:30"},
		{name: "bad minutes", start: "09:60", end: "10:00"},
		{name: "not HH:MM", start: "9:00", end: "10:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTimeWindow(tt.start, tt.end)
			if !errors.Is(err, ErrInvalidWindow) {
				t.Fatalf("err = %v, want %v", err, ErrInvalidWindow)
			}
		})
	}
}

func TestParseTimeWindow_AllowsEndOfDay(t *testing.T) {
	got, err := ParseTimeWindow("22:00", "24:00")
	if err != nil {
		t.Fatalf("ParseTimeWindow error: %v", err)
	}
	if got.Minutes() != 120 {
		t.Fatalf("minutes = %d, want 120", got.Minutes())
	}
	if got.String() != "22:00-24:00" {
		t.Fatalf("String() = %q, want %q", got.String(), "22:00-24:00")
	}
}

func TestTimeWindow_Overlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b TimeWindow
		want bool
	}{
		{name: "disjoint", a: w("09:00", "10:00"), b: w("11:00", "12:00"), want: false},
		{name: "touching", a: w("09:00", "10:00"), b: w("10:00", "11:00"), want: false},
		{name: "partial", a: w("09:00", "10:00"), b: w("09:30", "10:30"), want: true},
		{name: "nested", a: w("09:00", "12:00"), b: w("10:00", "11:00"), want: true},
		{name: "identical", a: w("09:00", "10:00"), b: w("09:00", "10:00"), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Fatalf("Overlaps = %v, want %v", got, tt.want)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Fatalf("reverse Overlaps = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTimeWindow_Contains(t *testing.T) {
	outer := w("09:00", "12:00")
	if !outer.Contains(w("09:00", "12:00")) {
		t.Fatalf("window must contain itself")
	}
	if !outer.Contains(w("10:00", "11:00")) {
		t.Fatalf("expected nested window to be contained")
	}
	if outer.Contains(w("11:30", "12:30")) {
		t.Fatalf("window spilling past end must not be contained")
	}
}

func TestTimeWindow_Subtract(t *testing.T) {
	base := w("09:00", "12:00")
	tests := []struct {
		name string
		cut  TimeWindow
		want []TimeWindow
	}{
		{name: "no overlap", cut: w("13:00", "14:00"), want: []TimeWindow{base}},
		{name: "touching", cut: w("12:00", "13:00"), want: []TimeWindow{base}},
		{name: "middle", cut: w("10:00", "11:00"), want: []TimeWindow{w("09:00", "10:00"), w("11:00", "12:00")}},
		{name: "head", cut: w("08:00", "10:00"), want: []TimeWindow{w("10:00", "12:00")}},
		{name: "tail", cut: w("11:00", "13:00"), want: []TimeWindow{w("09:00", "11:00")}},
		{name: "covering", cut: w("08:00", "13:00"), want: []TimeWindow{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := base.Subtract(tt.cut)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Subtract = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMergeWindows(t *testing.T) {
	got := MergeWindows([]TimeWindow{
		w("13:00", "15:00"),
		w("09:00", "10:00"),
		w("09:30", "11:00"),
		w("11:00", "12:00"),
		w("14:00", "14:30"),
	})
	want := []TimeWindow{w("09:00", "12:00"), w("13:00", "15:00")}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MergeWindows = %v, want %v", got, want)
	}

	if got := MergeWindows(nil); got != nil {
		t.Fatalf("MergeWindows(nil) = %v, want nil", got)
	}
}

func TestTimeOfDay_TextRoundTrip(t *testing.T) {
	var tod TimeOfDay
	if err := tod.UnmarshalText([]byte("07:05")); err != nil {
		t.Fatalf("UnmarshalText error: %v", err)
	}
	if tod != 7*60+5 {
		t.Fatalf("tod = %d, want %d", tod, 7*60+5)
	}
	b, _ := tod.MarshalText()
	if string(b) != "07:05" {
		t.Fatalf("MarshalText = %q, want %q", b, "07:05")
	}
}
