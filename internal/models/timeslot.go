package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DayOfWeek names a teaching day.
type DayOfWeek string

const (
	Monday    DayOfWeek = "MONDAY"
	Tuesday   DayOfWeek = "TUESDAY"
	Wednesday DayOfWeek = "WEDNESDAY"
	Thursday  DayOfWeek = "THURSDAY"
	Friday    DayOfWeek = "FRIDAY"
	Saturday  DayOfWeek = "SATURDAY"
	Sunday    DayOfWeek = "SUNDAY"
)

// SchoolDays is the default teaching week.
var SchoolDays = []DayOfWeek{Monday, Tuesday, Wednesday, Thursday, Friday}

var dayOrder = map[DayOfWeek]int{
	Monday: 1, Tuesday: 2, Wednesday: 3, Thursday: 4, Friday: 5, Saturday: 6, Sunday: 7,
}

// Valid reports whether d is a known day.
func (d DayOfWeek) Valid() bool {
	_, ok := dayOrder[d]
	return ok
}

// Index returns 1 for Monday through 7 for Sunday, 0 when unknown.
func (d DayOfWeek) Index() int {
	return dayOrder[d]
}

// ClockTime is a wall clock time expressed in minutes since midnight.
type ClockTime int

// NewClockTime builds a ClockTime from hour and minute.
func NewClockTime(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

// ParseClockTime accepts HH:MM or HH:MM:SS.
func ParseClockTime(raw string) (ClockTime, error) {
	raw = strings.TrimSpace(raw)
	var h, m, s int
	n, err := fmt.Sscanf(raw, "%d:%d:%d", &h, &m, &s)
	if err != nil && n < 2 {
		return 0, fmt.Errorf("invalid clock time %q", raw)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid clock time %q", raw)
	}
	return NewClockTime(h, m), nil
}

// MustClockTime parses raw and panics on malformed input. Intended for literals.
func MustClockTime(raw string) ClockTime {
	t, err := ParseClockTime(raw)
	if err != nil {
		panic(err)
	}
	return t
}

func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// MarshalJSON renders HH:MM.
func (t ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts HH:MM strings.
func (t *ClockTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseClockTime(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value stores the time as a TIME literal.
func (t ClockTime) Value() (driver.Value, error) {
	return t.String() + ":00", nil
}

// Scan reads TIME columns.
func (t *ClockTime) Scan(value interface{}) error {
	var raw string
	switch v := value.(type) {
	case []byte:
		raw = string(v)
	case string:
		raw = v
	case time.Time:
		*t = NewClockTime(v.Hour(), v.Minute())
		return nil
	case nil:
		return fmt.Errorf("scan clock time: null value")
	default:
		return fmt.Errorf("unsupported type %T for ClockTime", value)
	}
	if len(raw) > 8 {
		raw = raw[:8]
	}
	parsed, err := ParseClockTime(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TimeSlot is a weekday and time range, optionally tied to a numbered period.
type TimeSlot struct {
	Day    DayOfWeek `json:"day_of_week"`
	Start  ClockTime `json:"start_time"`
	End    ClockTime `json:"end_time"`
	Period *int      `json:"period,omitempty"`
}

// Valid reports whether the slot has a known day and a non-empty range.
func (ts TimeSlot) Valid() bool {
	return ts.Day.Valid() && ts.End > ts.Start
}

// Overlaps is true when both slots share a day and their ranges intersect.
func (ts TimeSlot) Overlaps(other TimeSlot) bool {
	return ts.Day == other.Day && ts.Start < other.End && other.Start < ts.End
}

// Duration returns the slot length in minutes.
func (ts TimeSlot) Duration() int {
	return int(ts.End - ts.Start)
}

// Gap returns the minutes between two same-day slots that do not overlap, or -1.
func (ts TimeSlot) Gap(other TimeSlot) int {
	if ts.Day != other.Day || ts.Overlaps(other) {
		return -1
	}
	if ts.End <= other.Start {
		return int(other.Start - ts.End)
	}
	return int(ts.Start - other.End)
}

func (ts TimeSlot) String() string {
	return fmt.Sprintf("%s %s-%s", ts.Day, ts.Start, ts.End)
}
