package domain

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a civil calendar date without a timezone. Dates are comparable with ==.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate normalizes out-of-range values the way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return DateOf(t), nil
}

func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) IsZero() bool { return d == Date{} }

func (d Date) Midnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) At(t TimeOfDay, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, int(t), 0, 0, loc)
}

func (d Date) AddDays(n int) Date {
	return NewDate(d.Year, d.Month, d.Day+n)
}

func (d Date) Weekday() Weekday {
	return WeekdayOf(d.Midnight().Weekday())
}

func (d Date) Before(o Date) bool { return d.Midnight().Before(o.Midnight()) }
func (d Date) After(o Date) bool  { return d.Midnight().After(o.Midnight()) }

func (d Date) DaysUntil(o Date) int {
	return int(o.Midnight().Sub(d.Midnight()) / (24 * time.Hour))
}

func (d Date) String() string {
	return d.Midnight().Format(dateLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	v, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		p, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = p
		return nil
	case []byte:
		p, err := ParseDate(string(v))
		if err != nil {
			return err
		}
		*d = p
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func MonthDates(year int, month time.Month) []Date {
	first := NewDate(year, month, 1)
	out := make([]Date, 0, 31)
	for d := first; d.Month == first.Month; d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

type DateRange struct {
	From Date
	To   Date
}

func SingleDay(d Date) DateRange { return DateRange{From: d, To: d} }

func MonthRange(year int, month time.Month) DateRange {
	first := NewDate(year, month, 1)
	return DateRange{From: first, To: NewDate(year, month+1, 0)}
}

func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.From) && !d.After(r.To)
}

func (r DateRange) Days() int {
	n := r.From.DaysUntil(r.To) + 1
	if n < 0 {
		return 0
	}
	return n
}

func (r DateRange) Dates() []Date {
	out := make([]Date, 0, r.Days())
	for d := r.From; !d.After(r.To); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

// Weekday uses ISO numbering: Monday is 1 and Sunday is 7.
type Weekday int16

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"", "MON", "TUE", "WED", "THU", "FRI", "SAT", "SUN"}

func WeekdayOf(wd time.Weekday) Weekday {
	if wd == time.Sunday {
		return Sunday
	}
	return Weekday(wd)
}

func ParseWeekday(s string) (Weekday, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i := Monday; i <= Sunday; i++ {
		if weekdayNames[i] == s || strings.ToUpper(i.Std().String()) == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("invalid day_of_week %q", s)
}

func (w Weekday) Valid() bool { return w >= Monday && w <= Sunday }

func (w Weekday) Std() time.Weekday {
	if w == Sunday {
		return time.Sunday
	}
	return time.Weekday(w)
}

func (w Weekday) String() string {
	if !w.Valid() {
		return fmt.Sprintf("Weekday(%d)", int16(w))
	}
	return weekdayNames[w]
}

func (w Weekday) MarshalText() ([]byte, error) {
	if !w.Valid() {
		return nil, fmt.Errorf("invalid weekday %d", int16(w))
	}
	return []byte(w.String()), nil
}

func (w *Weekday) UnmarshalText(b []byte) error {
	v, err := ParseWeekday(string(b))
	if err != nil {
		return err
	}
	*w = v
	return nil
}

func (w Weekday) Value() (driver.Value, error) {
	return int64(w), nil
}

func (w *Weekday) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*w = Weekday(v)
	case int32:
		*w = Weekday(v)
	case int16:
		*w = Weekday(v)
	default:
		return fmt.Errorf("cannot scan %T into Weekday", src)
	}
	return nil
}
