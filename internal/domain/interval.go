package domain

import (
	"database/sql/driver"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const MinutesPerDay = 24 * 60

// TimeOfDay is a wall-clock time in the practitioner's timezone, stored as minutes since midnight.
// The value MinutesPerDay ("24:00") is only meaningful as the end of a window.
type TimeOfDay int

func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || minute < 0 || minute > 59 || hour > 24 || (hour == 24 && minute != 0) {
		return 0, fmt.Errorf("%w: time %02d:%02d out of range", ErrInvalidWindow, hour, minute)
	}
	return TimeOfDay(hour*60 + minute), nil
}

func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, fmt.Errorf("%w: time %q must be HH:MM", ErrInvalidWindow, s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("%w: time %q must be HH:MM", ErrInvalidWindow, s)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("%w: time %q must be HH:MM", ErrInvalidWindow, s)
	}
	return NewTimeOfDay(hour, minute)
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) Add(minutes int) TimeOfDay { return t + TimeOfDay(minutes) }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	v, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (t TimeOfDay) Value() (driver.Value, error) {
	return int64(t), nil
}

func (t *TimeOfDay) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*t = TimeOfDay(v)
	case int32:
		*t = TimeOfDay(v)
	case []byte:
		n, err := strconv.Atoi(string(v))
		if err != nil {
			return err
		}
		*t = TimeOfDay(n)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*t = TimeOfDay(n)
	default:
		return fmt.Errorf("cannot scan %T into TimeOfDay", src)
	}
	return nil
}

// TimeWindow is a half-open interval [Start, End) within one day.
type TimeWindow struct {
	Start TimeOfDay `json:"start_time"`
	End   TimeOfDay `json:"end_time"`
}

func NewTimeWindow(start, end TimeOfDay) (TimeWindow, error) {
	if start < 0 || end > MinutesPerDay {
		return TimeWindow{}, fmt.Errorf("%w: %s-%s out of day bounds", ErrInvalidWindow, start, end)
	}
	if start >= end {
		return TimeWindow{}, fmt.Errorf("%w: start %s must be before end %s", ErrInvalidWindow, start, end)
	}
	return TimeWindow{Start: start, End: end}, nil
}

func ParseTimeWindow(start, end string) (TimeWindow, error) {
	s, err := ParseTimeOfDay(start)
	if err != nil {
		return TimeWindow{}, err
	}
	e, err := ParseTimeOfDay(end)
	if err != nil {
		return TimeWindow{}, err
	}
	return NewTimeWindow(s, e)
}

func MustTimeWindow(start, end string) TimeWindow {
	w, err := ParseTimeWindow(start, end)
	if err != nil {
		panic(err)
	}
	return w
}

func (w TimeWindow) Minutes() int { return int(w.End - w.Start) }

func (w TimeWindow) String() string { return w.Start.String() + "-" + w.End.String() }

func (w TimeWindow) Overlaps(o TimeWindow) bool {
	return w.Start < o.End && o.Start < w.End
}

func (w TimeWindow) Contains(inner TimeWindow) bool {
	return w.Start <= inner.Start && inner.End <= w.End
}

func (w TimeWindow) Subtract(cut TimeWindow) []TimeWindow {
	if !w.Overlaps(cut) {
		return []TimeWindow{w}
	}
	out := make([]TimeWindow, 0, 2)
	if w.Start < cut.Start {
		out = append(out, TimeWindow{Start: w.Start, End: cut.Start})
	}
	if cut.End < w.End {
		out = append(out, TimeWindow{Start: cut.End, End: w.End})
	}
	return out
}

// MergeWindows returns the minimal ordered set of windows covering the input.
// Overlapping and touching windows are joined.
func MergeWindows(windows []TimeWindow) []TimeWindow {
	if len(windows) == 0 {
		return nil
	}
	sorted := make([]TimeWindow, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start == sorted[j].Start {
			return sorted[i].End < sorted[j].End
		}
		return sorted[i].Start < sorted[j].Start
	})

	out := make([]TimeWindow, 0, len(sorted))
	cur := sorted[0]
	for _, w := range sorted[1:] {
		if w.Start <= cur.End {
			if w.End > cur.End {
				cur.End = w.End
			}
			continue
		}
		out = append(out, cur)
		cur = w
	}
	return append(out, cur)
}

func SubtractAll(windows []TimeWindow, cut TimeWindow) []TimeWindow {
	out := make([]TimeWindow, 0, len(windows)+1)
	for _, w := range windows {
		out = append(out, w.Subtract(cut)...)
	}
	return out
}
