package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// ScheduleStatus represents lifecycle phases for a generated timetable.
type ScheduleStatus string

const (
	ScheduleStatusDraft     ScheduleStatus = "DRAFT"
	ScheduleStatusPublished ScheduleStatus = "PUBLISHED"
	ScheduleStatusArchived  ScheduleStatus = "ARCHIVED"
)

// CanTransition allows only the one-way DRAFT -> PUBLISHED -> ARCHIVED progression.
func (s ScheduleStatus) CanTransition(to ScheduleStatus) bool {
	switch s {
	case ScheduleStatusDraft:
		return to == ScheduleStatusPublished
	case ScheduleStatusPublished:
		return to == ScheduleStatusArchived
	default:
		return false
	}
}

// Schedule owns a set of slots for a school term.
type Schedule struct {
	ID        string         `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	StartDate *time.Time     `db:"start_date" json:"start_date,omitempty"`
	EndDate   *time.Time     `db:"end_date" json:"end_date,omitempty"`
	Status    ScheduleStatus `db:"status" json:"status"`
	Meta      types.JSONText `db:"meta" json:"meta,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// SlotStatus marks whether a slot takes part in the timetable.
type SlotStatus string

const (
	SlotStatusActive    SlotStatus = "ACTIVE"
	SlotStatusTentative SlotStatus = "TENTATIVE"
	SlotStatusCancelled SlotStatus = "CANCELLED"
)

// DayType describes which block days a slot meets.
type DayType string

const (
	DayTypeDaily DayType = "DAILY"
	DayTypeOdd   DayType = "ODD"
	DayTypeEven  DayType = "EVEN"
)

// ScheduleSlot is the atomic course/teacher/room/time assignment.
type ScheduleSlot struct {
	ID                      string         `db:"id" json:"id"`
	ScheduleID              string         `db:"schedule_id" json:"schedule_id"`
	CourseID                string         `db:"course_id" json:"course_id"`
	TeacherID               *string        `db:"teacher_id" json:"teacher_id,omitempty"`
	RoomID                  *string        `db:"room_id" json:"room_id,omitempty"`
	Day                     *DayOfWeek     `db:"day_of_week" json:"day_of_week,omitempty"`
	StartTime               *ClockTime     `db:"start_time" json:"start_time,omitempty"`
	EndTime                 *ClockTime     `db:"end_time" json:"end_time,omitempty"`
	Period                  *int           `db:"period_number" json:"period,omitempty"`
	StudentIDs              pq.StringArray `db:"student_ids" json:"student_ids"`
	CoTeacherIDs            pq.StringArray `db:"co_teacher_ids" json:"co_teacher_ids"`
	Pinned                  bool           `db:"is_pinned" json:"pinned"`
	PinnedBy                *string        `db:"pinned_by" json:"pinned_by,omitempty"`
	PinnedAt                *time.Time     `db:"pinned_at" json:"pinned_at,omitempty"`
	HasConflict             bool           `db:"has_conflict" json:"has_conflict"`
	ConflictReason          *string        `db:"conflict_reason" json:"conflict_reason,omitempty"`
	Status                  SlotStatus     `db:"status" json:"status"`
	DayType                 DayType        `db:"day_type" json:"day_type"`
	SpecialEvent            bool           `db:"is_special_event" json:"special_event"`
	SpecialEventType        *string        `db:"special_event_type" json:"special_event_type,omitempty"`
	SpecialEventDescription *string        `db:"special_event_description" json:"special_event_description,omitempty"`
	LunchPeriod             bool           `db:"is_lunch_period" json:"lunch_period"`
	LunchWave               *int           `db:"lunch_wave" json:"lunch_wave,omitempty"`
	Notes                   *string        `db:"notes" json:"notes,omitempty"`
	CreatedAt               time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time      `db:"updated_at" json:"updated_at"`
}

// IsCancelled reports whether the slot is excluded from the timetable.
func (s *ScheduleSlot) IsCancelled() bool {
	return s.Status == SlotStatusCancelled
}

// HasTime reports whether day, start and end are all set.
func (s *ScheduleSlot) HasTime() bool {
	return s.Day != nil && s.StartTime != nil && s.EndTime != nil
}

// IsComplete is true iff teacher, room, course, day, start and end are set.
func (s *ScheduleSlot) IsComplete() bool {
	return s.CourseID != "" && s.TeacherID != nil && s.RoomID != nil && s.HasTime()
}

// IsOvercapacity is true when the room has a capacity and the roster exceeds it.
func (s *ScheduleSlot) IsOvercapacity(room *Room) bool {
	if room == nil || room.Capacity == nil {
		return false
	}
	return len(s.StudentIDs) > *room.Capacity
}

// TimeSlot returns the slot's time value when all time fields are present.
func (s *ScheduleSlot) TimeSlot() (TimeSlot, bool) {
	if !s.HasTime() {
		return TimeSlot{}, false
	}
	ts := TimeSlot{Day: *s.Day, Start: *s.StartTime, End: *s.EndTime}
	if s.Period != nil {
		p := *s.Period
		ts.Period = &p
	}
	return ts, true
}

// SetTimeSlot assigns the time value and keeps the flattened fields in sync.
func (s *ScheduleSlot) SetTimeSlot(ts *TimeSlot) {
	if ts == nil {
		s.Day, s.StartTime, s.EndTime, s.Period = nil, nil, nil, nil
		return
	}
	day, start, end := ts.Day, ts.Start, ts.End
	s.Day, s.StartTime, s.EndTime = &day, &start, &end
	s.Period = nil
	if ts.Period != nil {
		p := *ts.Period
		s.Period = &p
	}
}

// Pin locks the slot's assignable variables.
func (s *ScheduleSlot) Pin(by string, at time.Time) {
	s.Pinned = true
	s.PinnedBy = &by
	s.PinnedAt = &at
}

// Unpin releases the lock.
func (s *ScheduleSlot) Unpin() {
	s.Pinned = false
	s.PinnedBy = nil
	s.PinnedAt = nil
}

// MarkConflict records a conflict annotation. An empty reason clears it.
func (s *ScheduleSlot) MarkConflict(reason string) {
	if reason == "" {
		s.HasConflict = false
		s.ConflictReason = nil
		return
	}
	s.HasConflict = true
	s.ConflictReason = &reason
}

// Clone returns a deep copy safe to mutate independently.
func (s ScheduleSlot) Clone() ScheduleSlot {
	out := s
	out.TeacherID = cloneString(s.TeacherID)
	out.RoomID = cloneString(s.RoomID)
	if s.Day != nil {
		d := *s.Day
		out.Day = &d
	}
	if s.StartTime != nil {
		t := *s.StartTime
		out.StartTime = &t
	}
	if s.EndTime != nil {
		t := *s.EndTime
		out.EndTime = &t
	}
	if s.Period != nil {
		p := *s.Period
		out.Period = &p
	}
	out.StudentIDs = append(pq.StringArray(nil), s.StudentIDs...)
	out.CoTeacherIDs = append(pq.StringArray(nil), s.CoTeacherIDs...)
	out.PinnedBy = cloneString(s.PinnedBy)
	out.ConflictReason = cloneString(s.ConflictReason)
	return out
}

// ScheduleSlotFilter narrows slot listings.
type ScheduleSlotFilter struct {
	ScheduleID string
	TeacherID  string
	RoomID     string
	Day        DayOfWeek
	OnlyPinned bool
	Conflicted *bool
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
