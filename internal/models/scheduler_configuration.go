package models

import "time"

// SchedulerConfiguration is a named, versioned set of solver parameters and weights.
type SchedulerConfiguration struct {
	ID          string  `db:"id" json:"id"`
	Name        string  `db:"name" json:"name" validate:"required"`
	Description *string `db:"description" json:"description,omitempty"`
	Version     int     `db:"version" json:"version"`
	Active      bool    `db:"active" json:"active"`

	MaxSolverMinutes             int `db:"max_solver_minutes" json:"max_solver_minutes" validate:"gte=0"`
	UnimprovedSecondsTermination int `db:"unimproved_seconds_termination" json:"unimproved_seconds_termination" validate:"gte=0"`

	MinPeriodsPerTeacher   int  `db:"min_periods_per_teacher" json:"min_periods_per_teacher" validate:"gte=0"`
	MaxPeriodsPerTeacher   int  `db:"max_periods_per_teacher" json:"max_periods_per_teacher" validate:"gte=0"`
	MaxConsecutivePeriods  int  `db:"max_consecutive_periods" json:"max_consecutive_periods" validate:"gte=0"`
	MinPlanningPeriods     int  `db:"min_planning_periods" json:"min_planning_periods" validate:"gte=0"`
	MaxPrepsPerTeacher     int  `db:"max_preps_per_teacher" json:"max_preps_per_teacher" validate:"gte=0"`
	AllowBackToBackClasses bool `db:"allow_back_to_back_classes" json:"allow_back_to_back_classes"`
	MinimizeTeacherMoves   bool `db:"minimize_teacher_moves" json:"minimize_teacher_moves"`

	RespectTeacherAvailability bool `db:"respect_teacher_availability" json:"respect_teacher_availability"`
	RespectTeacherPreferences  bool `db:"respect_teacher_preferences" json:"respect_teacher_preferences"`

	MaxStudentsPerClass    int  `db:"max_students_per_class" json:"max_students_per_class" validate:"gte=0"`
	MinStudentsPerClass    int  `db:"min_students_per_class" json:"min_students_per_class" validate:"gte=0"`
	MaxBuildingTransitions int  `db:"max_building_transitions" json:"max_building_transitions" validate:"gte=0"`
	BalanceClassSizes      bool `db:"balance_class_sizes" json:"balance_class_sizes"`

	HonorStudentRequests     bool `db:"honor_student_requests" json:"honor_student_requests"`
	EnforcePrerequisiteOrder bool `db:"enforce_prerequisite_order" json:"enforce_prerequisite_order"`
	MinimizeStudentMoves     bool `db:"minimize_student_moves" json:"minimize_student_moves"`

	HonorIEPAccommodations    bool `db:"honor_iep_accommodations" json:"honor_iep_accommodations"`
	Honor504Accommodations    bool `db:"honor_504_accommodations" json:"honor_504_accommodations"`
	SmallClassForSpecialNeeds bool `db:"small_class_for_special_needs" json:"small_class_for_special_needs"`
	ResourceRoomProximity     bool `db:"resource_room_proximity" json:"resource_room_proximity"`

	PreferMorningCoreSubjects bool      `db:"prefer_morning_core_subjects" json:"prefer_morning_core_subjects"`
	PreferAfternoonElectives  bool      `db:"prefer_afternoon_electives" json:"prefer_afternoon_electives"`
	EarliestStartTime         ClockTime `db:"earliest_start_time" json:"earliest_start_time"`
	LatestEndTime             ClockTime `db:"latest_end_time" json:"latest_end_time"`
	MinPassingTimeMinutes     int       `db:"min_passing_time_minutes" json:"min_passing_time_minutes" validate:"gte=0"`

	WeightTeacherConflict      int `db:"weight_teacher_conflict" json:"weight_teacher_conflict" validate:"gte=0"`
	WeightRoomConflict         int `db:"weight_room_conflict" json:"weight_room_conflict" validate:"gte=0"`
	WeightCapacity             int `db:"weight_capacity" json:"weight_capacity" validate:"gte=0"`
	WeightWorkloadBalance      int `db:"weight_workload_balance" json:"weight_workload_balance" validate:"gte=0"`
	WeightTeacherQualification int `db:"weight_teacher_qualification" json:"weight_teacher_qualification" validate:"gte=0"`
	WeightStudentPreference    int `db:"weight_student_preference" json:"weight_student_preference" validate:"gte=0"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultSchedulerConfiguration returns the out-of-the-box parameter set.
func DefaultSchedulerConfiguration() SchedulerConfiguration {
	return SchedulerConfiguration{
		Name:                         "Default",
		Version:                      1,
		MaxSolverMinutes:             5,
		UnimprovedSecondsTermination: 30,
		MinPeriodsPerTeacher:         4,
		MaxPeriodsPerTeacher:         7,
		MaxConsecutivePeriods:        3,
		MinPlanningPeriods:           1,
		MaxPrepsPerTeacher:           3,
		AllowBackToBackClasses:       true,
		MinimizeTeacherMoves:         true,
		RespectTeacherAvailability:   true,
		RespectTeacherPreferences:    true,
		MaxStudentsPerClass:          30,
		MinStudentsPerClass:          10,
		MaxBuildingTransitions:       2,
		BalanceClassSizes:            true,
		HonorStudentRequests:         true,
		EnforcePrerequisiteOrder:     true,
		MinimizeStudentMoves:         false,
		HonorIEPAccommodations:       true,
		Honor504Accommodations:       true,
		SmallClassForSpecialNeeds:    true,
		ResourceRoomProximity:        true,
		PreferMorningCoreSubjects:    true,
		PreferAfternoonElectives:     false,
		EarliestStartTime:            NewClockTime(7, 30),
		LatestEndTime:                NewClockTime(15, 30),
		MinPassingTimeMinutes:        5,
		WeightTeacherConflict:        1000,
		WeightRoomConflict:           1000,
		WeightCapacity:               800,
		WeightWorkloadBalance:        50,
		WeightTeacherQualification:   100,
		WeightStudentPreference:      75,
	}
}

// SolverTimeLimit is the total wall clock budget for a run.
func (c SchedulerConfiguration) SolverTimeLimit() time.Duration {
	return time.Duration(c.MaxSolverMinutes) * time.Minute
}

// UnimprovedLimit is how long the search may go without finding a better score.
func (c SchedulerConfiguration) UnimprovedLimit() time.Duration {
	return time.Duration(c.UnimprovedSecondsTermination) * time.Second
}
