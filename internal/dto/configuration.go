package dto

import "github.com/noah-isme/sma-scheduler-api/internal/models"

// SchedulerConfigurationRequest creates or replaces a configuration.
// Unset fields fall back to the built-in defaults on create.
type SchedulerConfigurationRequest struct {
	Name        string  `json:"name" validate:"required,max=128"`
	Description *string `json:"description"`

	MaxSolverMinutes             *int `json:"maxSolverMinutes" validate:"omitempty,min=0,max=120"`
	UnimprovedSecondsTermination *int `json:"unimprovedSecondsTermination" validate:"omitempty,min=0"`

	MinPeriodsPerTeacher   *int  `json:"minPeriodsPerTeacher" validate:"omitempty,min=0"`
	MaxPeriodsPerTeacher   *int  `json:"maxPeriodsPerTeacher" validate:"omitempty,min=0"`
	MaxConsecutivePeriods  *int  `json:"maxConsecutivePeriods" validate:"omitempty,min=0"`
	MinPlanningPeriods     *int  `json:"minPlanningPeriods" validate:"omitempty,min=0"`
	MaxPrepsPerTeacher     *int  `json:"maxPrepsPerTeacher" validate:"omitempty,min=0"`
	AllowBackToBackClasses *bool `json:"allowBackToBackClasses"`
	MinimizeTeacherMoves   *bool `json:"minimizeTeacherMoves"`

	RespectTeacherAvailability *bool `json:"respectTeacherAvailability"`
	RespectTeacherPreferences  *bool `json:"respectTeacherPreferences"`

	MaxStudentsPerClass    *int  `json:"maxStudentsPerClass" validate:"omitempty,min=0"`
	MinStudentsPerClass    *int  `json:"minStudentsPerClass" validate:"omitempty,min=0"`
	MaxBuildingTransitions *int  `json:"maxBuildingTransitions" validate:"omitempty,min=0"`
	BalanceClassSizes      *bool `json:"balanceClassSizes"`

	HonorStudentRequests     *bool `json:"honorStudentRequests"`
	EnforcePrerequisiteOrder *bool `json:"enforcePrerequisiteOrder"`
	MinimizeStudentMoves     *bool `json:"minimizeStudentMoves"`

	HonorIEPAccommodations    *bool `json:"honorIepAccommodations"`
	Honor504Accommodations    *bool `json:"honor504Accommodations"`
	SmallClassForSpecialNeeds *bool `json:"smallClassForSpecialNeeds"`
	ResourceRoomProximity     *bool `json:"resourceRoomProximity"`

	PreferMorningCoreSubjects *bool             `json:"preferMorningCoreSubjects"`
	PreferAfternoonElectives  *bool             `json:"preferAfternoonElectives"`
	EarliestStartTime         *models.ClockTime `json:"earliestStartTime"`
	LatestEndTime             *models.ClockTime `json:"latestEndTime"`
	MinPassingTimeMinutes     *int              `json:"minPassingTimeMinutes" validate:"omitempty,min=0"`

	WeightTeacherConflict      *int `json:"weightTeacherConflict" validate:"omitempty,min=0"`
	WeightRoomConflict         *int `json:"weightRoomConflict" validate:"omitempty,min=0"`
	WeightCapacity             *int `json:"weightCapacity" validate:"omitempty,min=0"`
	WeightWorkloadBalance      *int `json:"weightWorkloadBalance" validate:"omitempty,min=0"`
	WeightTeacherQualification *int `json:"weightTeacherQualification" validate:"omitempty,min=0"`
	WeightStudentPreference    *int `json:"weightStudentPreference" validate:"omitempty,min=0"`
}

// ApplyTo copies every set field onto cfg.
func (r SchedulerConfigurationRequest) ApplyTo(cfg *models.SchedulerConfiguration) {
	cfg.Name = r.Name
	if r.Description != nil {
		cfg.Description = r.Description
	}
	setInt(&cfg.MaxSolverMinutes, r.MaxSolverMinutes)
	setInt(&cfg.UnimprovedSecondsTermination, r.UnimprovedSecondsTermination)
	setInt(&cfg.MinPeriodsPerTeacher, r.MinPeriodsPerTeacher)
	setInt(&cfg.MaxPeriodsPerTeacher, r.MaxPeriodsPerTeacher)
	setInt(&cfg.MaxConsecutivePeriods, r.MaxConsecutivePeriods)
	setInt(&cfg.MinPlanningPeriods, r.MinPlanningPeriods)
	setInt(&cfg.MaxPrepsPerTeacher, r.MaxPrepsPerTeacher)
	setBool(&cfg.AllowBackToBackClasses, r.AllowBackToBackClasses)
	setBool(&cfg.MinimizeTeacherMoves, r.MinimizeTeacherMoves)
	setBool(&cfg.RespectTeacherAvailability, r.RespectTeacherAvailability)
	setBool(&cfg.RespectTeacherPreferences, r.RespectTeacherPreferences)
	setInt(&cfg.MaxStudentsPerClass, r.MaxStudentsPerClass)
	setInt(&cfg.MinStudentsPerClass, r.MinStudentsPerClass)
	setInt(&cfg.MaxBuildingTransitions, r.MaxBuildingTransitions)
	setBool(&cfg.BalanceClassSizes, r.BalanceClassSizes)
	setBool(&cfg.HonorStudentRequests, r.HonorStudentRequests)
	setBool(&cfg.EnforcePrerequisiteOrder, r.EnforcePrerequisiteOrder)
	setBool(&cfg.MinimizeStudentMoves, r.MinimizeStudentMoves)
	setBool(&cfg.HonorIEPAccommodations, r.HonorIEPAccommodations)
	setBool(&cfg.Honor504Accommodations, r.Honor504Accommodations)
	setBool(&cfg.SmallClassForSpecialNeeds, r.SmallClassForSpecialNeeds)
	setBool(&cfg.ResourceRoomProximity, r.ResourceRoomProximity)
	setBool(&cfg.PreferMorningCoreSubjects, r.PreferMorningCoreSubjects)
	setBool(&cfg.PreferAfternoonElectives, r.PreferAfternoonElectives)
	if r.EarliestStartTime != nil {
		cfg.EarliestStartTime = *r.EarliestStartTime
	}
	if r.LatestEndTime != nil {
		cfg.LatestEndTime = *r.LatestEndTime
	}
	setInt(&cfg.MinPassingTimeMinutes, r.MinPassingTimeMinutes)
	setInt(&cfg.WeightTeacherConflict, r.WeightTeacherConflict)
	setInt(&cfg.WeightRoomConflict, r.WeightRoomConflict)
	setInt(&cfg.WeightCapacity, r.WeightCapacity)
	setInt(&cfg.WeightWorkloadBalance, r.WeightWorkloadBalance)
	setInt(&cfg.WeightTeacherQualification, r.WeightTeacherQualification)
	setInt(&cfg.WeightStudentPreference, r.WeightStudentPreference)
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
