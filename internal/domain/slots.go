package domain

import "sort"

type Slot struct {
	StartTime   TimeOfDay `json:"start_time"`
	EndTime     TimeOfDay `json:"end_time"`
	IsAvailable bool      `json:"is_available"`
}

func (s Slot) Window() TimeWindow {
	return TimeWindow{Start: s.StartTime, End: s.EndTime}
}

type DaySlots struct {
	Date  Date   `json:"date"`
	Slots []Slot `json:"slots"`
}

type CalendarDay struct {
	Date               Date `json:"date"`
	AvailableSlotCount int  `json:"available_slot_count"`
	IsBlackout         bool `json:"is_blackout"`
}

type Calendar struct {
	PractitionerID string        `json:"practitioner_id"`
	Year           int           `json:"year"`
	Month          int           `json:"month"`
	Days           []CalendarDay `json:"days"`
}

func (c Calendar) Day(d Date) (CalendarDay, bool) {
	for _, day := range c.Days {
		if day.Date == d {
			return day, true
		}
	}
	return CalendarDay{}, false
}

func HasFullDayBlackout(date Date, blackouts []Blackout) bool {
	for _, b := range blackouts {
		if b.Date == date && b.FullDay() {
			return true
		}
	}
	return false
}

// AvailableWindows merges the active weekly rules for date and carves out its partial blackouts.
// A full-day blackout yields no windows.
func AvailableWindows(date Date, rules []WeeklyAvailabilityRule, blackouts []Blackout) []TimeWindow {
	weekday := date.Weekday()
	windows := make([]TimeWindow, 0, len(rules))
	for _, r := range rules {
		if !r.Active || r.DayOfWeek != weekday || r.StartTime >= r.EndTime {
			continue
		}
		windows = append(windows, r.Window())
	}
	windows = MergeWindows(windows)
	if len(windows) == 0 {
		return nil
	}

	for _, b := range blackouts {
		if b.Date != date {
			continue
		}
		cut, ok := b.Window()
		if !ok {
			if b.FullDay() {
				return nil
			}
			continue
		}
		windows = SubtractAll(windows, cut)
	}
	return windows
}

// CutSlots walks each window in steps of duration+buffer. The buffer only separates slots and is
// never part of one; a trailing remainder shorter than duration is dropped.
func CutSlots(windows []TimeWindow, durationMinutes, bufferMinutes int) []Slot {
	if durationMinutes <= 0 || bufferMinutes < 0 {
		return nil
	}
	step := durationMinutes + bufferMinutes
	out := make([]Slot, 0)
	for _, w := range windows {
		for start := w.Start; start.Add(durationMinutes) <= w.End; start = start.Add(step) {
			out = append(out, Slot{
				StartTime:   start,
				EndTime:     start.Add(durationMinutes),
				IsAvailable: true,
			})
		}
	}
	return out
}

// Occupied slots stay in the result with IsAvailable=false.
func GenerateSlots(date Date, rules []WeeklyAvailabilityRule, blackouts []Blackout, bookings []Booking, settings SchedulingSettings) []Slot {
	windows := AvailableWindows(date, rules, blackouts)
	slots := CutSlots(windows, settings.SlotDurationMinutes, settings.BufferMinutes)

	for i := range slots {
		w := slots[i].Window()
		for _, b := range bookings {
			if b.Blocks(date, w) {
				slots[i].IsAvailable = false
				break
			}
		}
	}

	sort.SliceStable(slots, func(i, j int) bool { return slots[i].StartTime < slots[j].StartTime })
	return slots
}

func FindSlot(slots []Slot, w TimeWindow) (Slot, bool) {
	for _, s := range slots {
		if s.StartTime == w.Start && s.EndTime == w.End {
			return s, true
		}
	}
	return Slot{}, false
}

func CountAvailable(slots []Slot) int {
	n := 0
	for _, s := range slots {
		if s.IsAvailable {
			n++
		}
	}
	return n
}
