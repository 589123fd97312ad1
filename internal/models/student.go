package models

import (
	"database/sql/driver"
	"time"

	"github.com/lib/pq"
)

// CourseRequest is a student's request for a course, optionally with a teacher.
type CourseRequest struct {
	CourseID           string  `json:"course_id"`
	PreferredTeacherID *string `json:"preferred_teacher_id,omitempty"`
}

// CourseRequests is persisted as JSONB.
type CourseRequests []CourseRequest

// Value marshals requests to JSON.
func (r CourseRequests) Value() (driver.Value, error) {
	if r == nil {
		r = CourseRequests{}
	}
	return jsonValue([]CourseRequest(r), "course requests")
}

// Scan unmarshals JSON requests.
func (r *CourseRequests) Scan(value interface{}) error {
	*r = nil
	return scanJSON(value, r, "course requests")
}

// Student is an enrolled learner.
type Student struct {
	ID                 string         `db:"id" json:"id"`
	Name               string         `db:"name" json:"name"`
	GradeLevel         *int           `db:"grade_level" json:"grade_level,omitempty"`
	Active             bool           `db:"active" json:"active"`
	HasIEP             bool           `db:"has_iep" json:"has_iep"`
	Has504             bool           `db:"has_504" json:"has_504"`
	CourseRequests     CourseRequests `db:"course_requests" json:"course_requests"`
	CompletedCourseIDs pq.StringArray `db:"completed_course_ids" json:"completed_course_ids"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// NeedsAccommodation reports whether the student has an IEP or 504 plan.
func (s Student) NeedsAccommodation() bool {
	return s.HasIEP || s.Has504
}

// HasCompleted reports whether courseID appears in the student's history.
func (s Student) HasCompleted(courseID string) bool {
	for _, id := range s.CompletedCourseIDs {
		if id == courseID {
			return true
		}
	}
	return false
}
