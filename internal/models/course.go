package models

import (
	"time"

	"github.com/lib/pq"
)

// CourseCategory distinguishes core subjects from electives.
type CourseCategory string

const (
	CourseCore     CourseCategory = "CORE"
	CourseElective CourseCategory = "ELECTIVE"
)

// MeetingPattern controls whether a course meets every day or on alternating days.
type MeetingPattern string

const (
	MeetingDaily       MeetingPattern = "DAILY"
	MeetingAlternating MeetingPattern = "ALTERNATING"
)

// Course is a teachable course section template.
type Course struct {
	ID                     string         `db:"id" json:"id"`
	Code                   string         `db:"code" json:"code"`
	Name                   string         `db:"name" json:"name"`
	Subject                string         `db:"subject" json:"subject"`
	RequiredQualification  *string        `db:"required_qualification" json:"required_qualification,omitempty"`
	PreferredQualification *string        `db:"preferred_qualification" json:"preferred_qualification,omitempty"`
	Category               CourseCategory `db:"category" json:"category"`
	MeetingPattern         MeetingPattern `db:"meeting_pattern" json:"meeting_pattern"`
	SessionsPerWeek        int            `db:"sessions_per_week" json:"sessions_per_week"`
	RequiredRoomType       *string        `db:"required_room_type" json:"required_room_type,omitempty"`
	MaxStudents            *int           `db:"max_students" json:"max_students,omitempty"`
	Active                 bool           `db:"active" json:"active"`
	UsesMultipleRooms      bool           `db:"uses_multiple_rooms" json:"uses_multiple_rooms"`
	MaxTravelMinutes       *int           `db:"max_travel_minutes" json:"max_travel_minutes,omitempty"`
	PrerequisiteIDs        pq.StringArray `db:"prerequisite_ids" json:"prerequisite_ids"`
	CreatedAt              time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time      `db:"updated_at" json:"updated_at"`
}

// IsCore reports whether the course is a core subject.
func (c Course) IsCore() bool {
	return c.Category == CourseCore
}
