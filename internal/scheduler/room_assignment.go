package scheduler

import (
	"fmt"

	"github.com/noah-isme/sma-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/sma-scheduler-api/pkg/errors"
)

// ValidateRoomAssignments checks a course's room assignment set before it is persisted.
// Courses that do not use multiple rooms are not validated; their assignments are cleared by the caller.
func ValidateRoomAssignments(course models.Course, rows []models.CourseRoomAssignment) error {
	if !course.UsesMultipleRooms {
		return nil
	}

	hasPrimary := false
	seen := make(map[string]bool, len(rows))
	for idx, row := range rows {
		if row.CourseID != "" && row.CourseID != course.ID {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("assignment %d belongs to another course", idx))
		}
		if !row.Type.Valid() {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("assignment %d has unknown type %q", idx, row.Type))
		}
		if row.UsagePattern != "" && !row.UsagePattern.Valid() {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("assignment %d has unknown usage pattern %q", idx, row.UsagePattern))
		}
		if !row.Active {
			continue
		}
		if row.RoomID == nil || *row.RoomID == "" {
			return appErrors.Clone(appErrors.ErrMissingRoomReference, fmt.Sprintf("active assignment %d has no room", idx))
		}
		if seen[*row.RoomID] {
			return appErrors.Clone(appErrors.ErrDuplicateRoom, fmt.Sprintf("room %s is assigned more than once", *row.RoomID))
		}
		seen[*row.RoomID] = true
		if row.Type == models.RoomAssignmentPrimary {
			hasPrimary = true
		}
	}
	if !hasPrimary {
		return appErrors.Clone(appErrors.ErrMissingPrimaryRoom, "")
	}
	return nil
}

// ValidateTeacherRoomPreferences checks the two-mode teacher room list.
func ValidateTeacherRoomPreferences(prefs models.TeacherRoomPreferences) error {
	switch prefs.Mode {
	case models.RoomModeNone:
		return nil
	case models.RoomModeRestriction:
		if len(prefs.RoomIDs) == 0 {
			return appErrors.Clone(appErrors.ErrEmptyRestrictionList, "")
		}
	case models.RoomModePreference:
		switch prefs.Strength {
		case "", models.StrengthLow, models.StrengthMedium, models.StrengthHigh:
		default:
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown preference strength %q", prefs.Strength))
		}
	default:
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown room preference mode %q", prefs.Mode))
	}
	seen := make(map[string]bool, len(prefs.RoomIDs))
	for _, id := range prefs.RoomIDs {
		if id == "" {
			return appErrors.Clone(appErrors.ErrValidation, "room id must not be empty")
		}
		if seen[id] {
			return appErrors.Clone(appErrors.ErrDuplicateRoom, fmt.Sprintf("room %s listed more than once", id))
		}
		seen[id] = true
	}
	return nil
}
