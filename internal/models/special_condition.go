package models

import "time"

// ConditionType enumerates ad-hoc rule kinds.
type ConditionType string

const (
	ConditionUnavailableTime          ConditionType = "UNAVAILABLE_TIME"
	ConditionAvoidTime                ConditionType = "AVOID_TIME"
	ConditionPreferredTime            ConditionType = "PREFERRED_TIME"
	ConditionRoomRequired             ConditionType = "ROOM_REQUIRED"
	ConditionNoFirstPeriod            ConditionType = "NO_FIRST_PERIOD"
	ConditionNoLastPeriod             ConditionType = "NO_LAST_PERIOD"
	ConditionAccessibilityRequirement ConditionType = "ACCESSIBILITY_REQUIREMENT"
	ConditionSmallGroup               ConditionType = "SMALL_GROUP"
	ConditionCustom                   ConditionType = "CUSTOM"
)

// ConditionTarget names the entity kind a condition applies to.
type ConditionTarget string

const (
	TargetTeacher ConditionTarget = "TEACHER"
	TargetRoom    ConditionTarget = "ROOM"
	TargetCourse  ConditionTarget = "COURSE"
	TargetStudent ConditionTarget = "STUDENT"
	TargetTime    ConditionTarget = "TIME"
)

// Severity ranks how a violated condition is penalised.
type Severity string

const (
	SeverityHard       Severity = "HARD"
	SeverityMedium     Severity = "MEDIUM"
	SeveritySoft       Severity = "SOFT"
	SeverityPreference Severity = "PREFERENCE"
)

// DefaultMediumPenalty applies when a MEDIUM condition has no explicit weight.
const DefaultMediumPenalty = 100

// SpecialCondition is an administrator defined rule scoped to one target.
type SpecialCondition struct {
	ID            string          `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	Type          ConditionType   `db:"condition_type" json:"condition_type"`
	TargetType    ConditionTarget `db:"target_type" json:"target_type"`
	TargetID      *string         `db:"target_id" json:"target_id,omitempty"`
	Day           *DayOfWeek      `db:"day_of_week" json:"day_of_week,omitempty"`
	StartTime     *ClockTime      `db:"start_time" json:"start_time,omitempty"`
	EndTime       *ClockTime      `db:"end_time" json:"end_time,omitempty"`
	RoomID        *string         `db:"room_id" json:"room_id,omitempty"`
	Severity      Severity        `db:"severity" json:"severity"`
	PenaltyWeight *int            `db:"penalty_weight" json:"penalty_weight,omitempty"`
	Description   *string         `db:"description" json:"description,omitempty"`
	Active        bool            `db:"active" json:"active"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// Window returns the condition's time window if one is declared.
func (c SpecialCondition) Window() (TimeSlot, bool) {
	if c.Day == nil || c.StartTime == nil || c.EndTime == nil {
		return TimeSlot{}, false
	}
	return TimeSlot{Day: *c.Day, Start: *c.StartTime, End: *c.EndTime}, true
}

// Matches reports whether the condition targets the given kind and id.
func (c SpecialCondition) Matches(kind ConditionTarget, id string) bool {
	if c.TargetType != kind {
		return false
	}
	return c.TargetID == nil || *c.TargetID == id
}
