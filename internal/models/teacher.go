package models

import (
	"database/sql/driver"
	"time"

	"github.com/lib/pq"
)

// UnavailableBlock is a window in which a teacher cannot teach.
type UnavailableBlock struct {
	Day    DayOfWeek `json:"day_of_week"`
	Start  ClockTime `json:"start_time"`
	End    ClockTime `json:"end_time"`
	Reason string    `json:"reason,omitempty"`
}

// TimeSlot returns the block as a TimeSlot.
func (b UnavailableBlock) TimeSlot() TimeSlot {
	return TimeSlot{Day: b.Day, Start: b.Start, End: b.End}
}

// UnavailableBlocks is persisted as JSONB.
type UnavailableBlocks []UnavailableBlock

// Value marshals blocks to JSON.
func (b UnavailableBlocks) Value() (driver.Value, error) {
	if b == nil {
		b = UnavailableBlocks{}
	}
	return jsonValue([]UnavailableBlock(b), "unavailable blocks")
}

// Scan unmarshals JSON blocks.
func (b *UnavailableBlocks) Scan(value interface{}) error {
	*b = nil
	return scanJSON(value, b, "unavailable blocks")
}

// RoomPreferenceMode selects soft or hard teacher-room semantics.
type RoomPreferenceMode string

const (
	RoomModeNone        RoomPreferenceMode = ""
	RoomModePreference  RoomPreferenceMode = "PREFERENCE"
	RoomModeRestriction RoomPreferenceMode = "RESTRICTION"
)

// PreferenceStrength ranks how strongly a preference should be honoured.
type PreferenceStrength string

const (
	StrengthLow    PreferenceStrength = "LOW"
	StrengthMedium PreferenceStrength = "MEDIUM"
	StrengthHigh   PreferenceStrength = "HIGH"
)

// Penalty is the soft penalty applied when a preference of this strength is missed.
func (s PreferenceStrength) Penalty() int64 {
	switch s {
	case StrengthHigh:
		return 5
	case StrengthMedium:
		return 3
	default:
		return 1
	}
}

// TeacherRoomPreferences holds the teacher's room list and how to treat it.
type TeacherRoomPreferences struct {
	Mode     RoomPreferenceMode `json:"mode"`
	RoomIDs  []string           `json:"room_ids"`
	Strength PreferenceStrength `json:"strength,omitempty"`
}

// Contains reports whether roomID is on the list.
func (p TeacherRoomPreferences) Contains(roomID string) bool {
	for _, id := range p.RoomIDs {
		if id == roomID {
			return true
		}
	}
	return false
}

// Value marshals preferences to JSON.
func (p TeacherRoomPreferences) Value() (driver.Value, error) {
	if p.RoomIDs == nil {
		p.RoomIDs = []string{}
	}
	return jsonValue(p, "room preferences")
}

// Scan unmarshals JSON preferences.
func (p *TeacherRoomPreferences) Scan(value interface{}) error {
	*p = TeacherRoomPreferences{}
	return scanJSON(value, p, "room preferences")
}

// Teacher represents an instructor and their scheduling limits.
type Teacher struct {
	ID                 string                 `db:"id" json:"id"`
	Name               string                 `db:"name" json:"name"`
	Department         string                 `db:"department" json:"department"`
	Building           string                 `db:"home_building" json:"home_building"`
	Qualifications     pq.StringArray         `db:"qualifications" json:"qualifications"`
	Unavailable        UnavailableBlocks      `db:"unavailable" json:"unavailable"`
	RoomPreferences    TeacherRoomPreferences `db:"room_preferences" json:"room_preferences"`
	MinPeriods         *int                   `db:"min_periods" json:"min_periods,omitempty"`
	MaxPeriods         *int                   `db:"max_periods" json:"max_periods,omitempty"`
	MaxConsecutive     *int                   `db:"max_consecutive" json:"max_consecutive,omitempty"`
	MaxPreps           *int                   `db:"max_preps" json:"max_preps,omitempty"`
	MinPlanningPeriods *int                   `db:"min_planning_periods" json:"min_planning_periods,omitempty"`
	Active             bool                   `db:"active" json:"active"`
	CreatedAt          time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time              `db:"updated_at" json:"updated_at"`
}

// HasQualification reports whether the teacher holds qualification q.
func (t Teacher) HasQualification(q string) bool {
	for _, item := range t.Qualifications {
		if item == q {
			return true
		}
	}
	return false
}

// IsUnavailable reports whether slot touches any declared unavailable block.
func (t Teacher) IsUnavailable(slot TimeSlot) bool {
	for _, block := range t.Unavailable {
		if block.TimeSlot().Overlaps(slot) {
			return true
		}
	}
	return false
}
