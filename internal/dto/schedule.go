package dto

import (
	"github.com/noah-isme/sma-scheduler-api/internal/models"
	"github.com/noah-isme/sma-scheduler-api/internal/scheduler"
)

// UpdateScheduleSlotRequest applies a manual edit to one slot. Nil fields are left unchanged.
type UpdateScheduleSlotRequest struct {
	TeacherID  *string            `json:"teacherId" validate:"omitempty,min=1"`
	RoomID     *string            `json:"roomId" validate:"omitempty,min=1"`
	Day        *models.DayOfWeek  `json:"dayOfWeek" validate:"omitempty,oneof=MONDAY TUESDAY WEDNESDAY THURSDAY FRIDAY SATURDAY SUNDAY"`
	StartTime  *models.ClockTime  `json:"startTime"`
	EndTime    *models.ClockTime  `json:"endTime"`
	Period     *int               `json:"period" validate:"omitempty,min=1"`
	Status     *models.SlotStatus `json:"status" validate:"omitempty,oneof=ACTIVE TENTATIVE CANCELLED"`
	DayType    *models.DayType    `json:"dayType" validate:"omitempty,oneof=DAILY ODD EVEN"`
	StudentIDs []string           `json:"studentIds" validate:"omitempty,dive,required"`
	Notes      *string            `json:"notes" validate:"omitempty,max=1000"`
	// Clear flags unassign the variable and win over any value sent for it.
	ClearTeacher bool `json:"clearTeacher"`
	ClearRoom    bool `json:"clearRoom"`
	ClearTime    bool `json:"clearTime"`
}

// PinSlotRequest names who locks a slot.
type PinSlotRequest struct {
	PinnedBy string `json:"pinnedBy" validate:"required,max=128"`
}

// ScheduleAnalysis explains a stored schedule's score.
type ScheduleAnalysis struct {
	ScheduleID string                   `json:"scheduleId"`
	Score      string                   `json:"score"`
	HardScore  int64                    `json:"hardScore"`
	SoftScore  int64                    `json:"softScore"`
	Feasible   bool                     `json:"feasible"`
	ByRule     map[string]int64         `json:"byRule"`
	Violations []scheduler.Violation    `json:"violations"`
	Summary    models.ValidationSummary `json:"summary"`
}

// ReplaceRoomAssignmentsRequest replaces every room row of a course.
type ReplaceRoomAssignmentsRequest struct {
	Assignments []RoomAssignmentItem `json:"assignments" validate:"dive"`
}

// RoomAssignmentItem is one course room row.
type RoomAssignmentItem struct {
	RoomID       *string                   `json:"roomId"`
	Type         models.RoomAssignmentType `json:"assignmentType" validate:"required"`
	UsagePattern models.UsagePattern       `json:"usagePattern"`
	Priority     int                       `json:"priority" validate:"min=0"`
	Active       *bool                     `json:"active"`
	Notes        *string                   `json:"notes" validate:"omitempty,max=500"`
}

// TeacherRoomPreferencesRequest replaces a teacher's room preferences.
type TeacherRoomPreferencesRequest struct {
	Mode     models.RoomPreferenceMode `json:"mode" validate:"omitempty,oneof=PREFERENCE RESTRICTION"`
	RoomIDs  []string                  `json:"roomIds" validate:"omitempty,dive,required"`
	Strength models.PreferenceStrength `json:"strength" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
}

// BlockDayMoveRequest moves courses between a student's block-day buckets.
type BlockDayMoveRequest struct {
	Action    string   `json:"action" validate:"required,oneof=MOVE_TO_ODD MOVE_TO_EVEN REMOVE_FROM_ODD REMOVE_FROM_EVEN"`
	CourseIDs []string `json:"courseIds" validate:"required,min=1,dive,required"`
}

// BlockDayPlanRequest stores a complete plan.
type BlockDayPlanRequest struct {
	Odd  []string `json:"odd" validate:"dive,required"`
	Even []string `json:"even" validate:"dive,required"`
}

// BlockDayPlanResponse shows a student's buckets.
type BlockDayPlanResponse struct {
	StudentID string   `json:"studentId"`
	Odd       []string `json:"odd"`
	Even      []string `json:"even"`
	Available []string `json:"available"`
	Warnings  []string `json:"warnings"`
}

// NewBlockDayPlanResponse snapshots a plan.
func NewBlockDayPlanResponse(plan *scheduler.BlockDayPlan) BlockDayPlanResponse {
	return BlockDayPlanResponse{
		StudentID: plan.StudentID,
		Odd:       nonNil(plan.Odd()),
		Even:      nonNil(plan.Even()),
		Available: nonNil(plan.Available()),
		Warnings:  nonNil(plan.Warnings()),
	}
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
