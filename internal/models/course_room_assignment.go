package models

import "time"

// RoomAssignmentType classifies a room's role for a course.
type RoomAssignmentType string

const (
	RoomAssignmentPrimary   RoomAssignmentType = "PRIMARY"
	RoomAssignmentSecondary RoomAssignmentType = "SECONDARY"
	RoomAssignmentOverflow  RoomAssignmentType = "OVERFLOW"
	RoomAssignmentBreakout  RoomAssignmentType = "BREAKOUT"
	RoomAssignmentRotating  RoomAssignmentType = "ROTATING"
)

// Valid reports whether t is a known assignment type.
func (t RoomAssignmentType) Valid() bool {
	switch t {
	case RoomAssignmentPrimary, RoomAssignmentSecondary, RoomAssignmentOverflow, RoomAssignmentBreakout, RoomAssignmentRotating:
		return true
	}
	return false
}

// UsagePattern governs when a course uses one of its rooms.
type UsagePattern string

const (
	UsageAlways          UsagePattern = "ALWAYS"
	UsageAlternatingDays UsagePattern = "ALTERNATING_DAYS"
	UsageOddDays         UsagePattern = "ODD_DAYS"
	UsageEvenDays        UsagePattern = "EVEN_DAYS"
	UsageFirstHalf       UsagePattern = "FIRST_HALF"
	UsageSecondHalf      UsagePattern = "SECOND_HALF"
	UsageTimeBased       UsagePattern = "TIME_BASED"
	UsageSpecificDays    UsagePattern = "SPECIFIC_DAYS"
	UsageWeeklyRotation  UsagePattern = "WEEKLY_ROTATION"
)

// Valid reports whether p is a known usage pattern.
func (p UsagePattern) Valid() bool {
	switch p {
	case UsageAlways, UsageAlternatingDays, UsageOddDays, UsageEvenDays, UsageFirstHalf,
		UsageSecondHalf, UsageTimeBased, UsageSpecificDays, UsageWeeklyRotation:
		return true
	}
	return false
}

// CourseRoomAssignment links a course to one of the rooms it may use.
type CourseRoomAssignment struct {
	ID           string             `db:"id" json:"id"`
	CourseID     string             `db:"course_id" json:"course_id"`
	RoomID       *string            `db:"room_id" json:"room_id,omitempty"`
	Type         RoomAssignmentType `db:"assignment_type" json:"assignment_type"`
	UsagePattern UsagePattern       `db:"usage_pattern" json:"usage_pattern"`
	Priority     int                `db:"priority" json:"priority"`
	Active       bool               `db:"active" json:"active"`
	Notes        *string            `db:"notes" json:"notes,omitempty"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `db:"updated_at" json:"updated_at"`
}
