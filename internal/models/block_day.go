package models

import "time"

// StudentDayAssignment stores a student's odd/even placement for a course.
type StudentDayAssignment struct {
	StudentID string    `db:"student_id" json:"student_id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	DayType   DayType   `db:"day_type" json:"day_type"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
