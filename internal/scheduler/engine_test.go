package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-scheduler-api/internal/models"
)

func rulesOf(violations []Violation) []string {
	out := make([]string, 0, len(violations))
	for _, v := range violations {
		out = append(out, v.Rule)
	}
	return out
}

func TestEngineCleanScheduleScoresZero(t *testing.T) {
	p := NewProblem(baseInput(
		slotAt("s1", "c1", "t1", "r1", at(models.Monday, "09:00", "09:50")),
		slotAt("s2", "c2", "t2", "r2", at(models.Monday, "09:00", "09:50")),
	))

	score := NewEngine().Score(p)
	assert.Equal(t, Score{}, score)
	assert.Empty(t, NewEngine().Explain(p))
}

func TestEngineTeacherDoubleBooking(t *testing.T) {
	p := NewProblem(baseInput(
		slotAt("s1", "c1", "t2", "r1", at(models.Monday, "09:00", "09:50")),
		slotAt("s2", "c2", "t2", "r2", at(models.Monday, "09:30", "10:20")),
	))

	score := NewEngine().Score(p)
	assert.Equal(t, int64(-1), score.Hard)

	violations := NewEngine().Explain(p)
	require.Len(t, violations, 1)
	assert.Equal(t, RuleTeacherConflict, violations[0].Rule)
	assert.ElementsMatch(t, []string{"s1", "s2"}, violations[0].SlotIDs)
}

func TestEngineIgnoresCancelledSlots(t *testing.T) {
	cancelled := slotAt("s2", "c2", "t1", "r1", at(models.Monday, "09:00", "09:50"))
	cancelled.Status = models.SlotStatusCancelled
	p := NewProblem(baseInput(
		slotAt("s1", "c1", "t1", "r1", at(models.Monday, "09:00", "09:50")),
		cancelled,
	))

	assert.Equal(t, Score{}, NewEngine().Score(p))
}

func TestEngineRoomDoubleBookingDayTypeException(t *testing.T) {
	odd := slotAt("s1", "c1", "t1", "r1", at(models.Monday, "09:00", "09:50"))
	odd.DayType = models.DayTypeOdd
	even := slotAt("s2", "c2", "t2", "r1", at(models.Monday, "09:00", "09:50"))
	even.DayType = models.DayTypeEven

	in := baseInput(odd, even)
	p := NewProblem(in)
	assert.Equal(t, int64(-1), NewEngine().Score(p).Hard, "no declared assignments means a hard conflict")

	in.RoomAssignments = []models.CourseRoomAssignment{
		{ID: "a1", CourseID: "c1", RoomID: sp("r1"), Type: models.RoomAssignmentPrimary, UsagePattern: models.UsageOddDays, Active: true},
		{ID: "a2", CourseID: "c2", RoomID: sp("r1"), Type: models.RoomAssignmentPrimary, UsagePattern: models.UsageAlternatingDays, Active: true},
	}
	p = NewProblem(in)
	assert.Equal(t, int64(0), NewEngine().Score(p).Hard)

	in.RoomAssignments[1].UsagePattern = models.UsageAlways
	p = NewProblem(in)
	assert.Equal(t, int64(-1), NewEngine().Score(p).Hard, "ALWAYS overlaps every day type")

	in.RoomAssignments[1].UsagePattern = models.UsageEvenDays
	in.RoomAssignments[1].Active = false
	p = NewProblem(in)
	assert.Equal(t, int64(-1), NewEngine().Score(p).Hard, "inactive assignments declare nothing")
}

func TestEngineCapacityPenalisesOverage(t *testing.T) {
	slot := slotAt("s1", "c1", "t1", "r2", at(models.Tuesday, "10:00", "10:50"))
	slot.StudentIDs = roster(30)
	p := NewProblem(baseInput(slot))

	assert.Equal(t, int64(-5), NewEngine().Score(p).Hard)
}

func TestEngineTeacherUnavailabilityIsGated(t *testing.T) {
	in := baseInput(slotAt("s1", "c1", "t1", "r1", at(models.Wednesday, "13:00", "13:50")))
	in.Teachers[0].Unavailable = models.UnavailableBlocks{{Day: models.Wednesday, Start: models.MustClockTime("12:30"), End: models.MustClockTime("14:00")}}

	assert.Equal(t, int64(0), NewEngine().Score(NewProblem(in)).Hard)

	in.Config.RespectTeacherAvailability = true
	assert.Equal(t, int64(-1), NewEngine().Score(NewProblem(in)).Hard)
}

func TestEngineRestrictionAndPreference(t *testing.T) {
	in := baseInput(slotAt("s1", "c1", "t1", "r2", at(models.Monday, "08:00", "08:50")))
	in.Teachers[0].RoomPreferences = models.TeacherRoomPreferences{Mode: models.RoomModeRestriction, RoomIDs: []string{"r1"}}
	assert.Equal(t, Score{Hard: -1}, NewEngine().Score(NewProblem(in)))

	in.Teachers[0].RoomPreferences = models.TeacherRoomPreferences{Mode: models.RoomModePreference, RoomIDs: []string{"r1"}, Strength: models.StrengthMedium}
	assert.Equal(t, Score{}, NewEngine().Score(NewProblem(in)), "preferences are ignored unless respected")

	in.Config.RespectTeacherPreferences = true
	assert.Equal(t, Score{Soft: -3}, NewEngine().Score(NewProblem(in)))

	in.Teachers[0].RoomPreferences.Strength = models.StrengthHigh
	assert.Equal(t, Score{Soft: -5}, NewEngine().Score(NewProblem(in)))
}

func TestEngineQualificationAndUnassigned(t *testing.T) {
	in := baseInput(
		slotAt("s1", "c2", "t1", "r1", at(models.Monday, "08:00", "08:50")),
		slotAt("s2", "c3", "", "", nil),
	)
	in.Courses[1].RequiredQualification = sp("science")

	violations := NewEngine().Explain(NewProblem(in))
	assert.ElementsMatch(t, []string{RuleQualification, RuleUnassigned}, rulesOf(violations))
	assert.Equal(t, int64(-4), NewEngine().Score(NewProblem(in)).Hard)
}

func TestEngineSpecialConditions(t *testing.T) {
	in := baseInput(slotAt("s1", "c1", "t1", "r1", at(models.Friday, "14:00", "14:50")))
	in.Conditions = []models.SpecialCondition{
		{ID: "sc1", Type: models.ConditionUnavailableTime, TargetType: models.TargetTeacher, TargetID: sp("t1"),
			Day: dayPtr(models.Friday), StartTime: clockPtr("14:00"), EndTime: clockPtr("16:00"), Severity: models.SeverityHard, Active: true},
		{ID: "sc2", Type: models.ConditionRoomRequired, TargetType: models.TargetCourse, TargetID: sp("c1"),
			RoomID: sp("r2"), Severity: models.SeverityMedium, Active: true},
		{ID: "sc3", Type: models.ConditionAvoidTime, TargetType: models.TargetTime,
			Day: dayPtr(models.Friday), StartTime: clockPtr("14:30"), EndTime: clockPtr("15:00"), Severity: models.SeverityPreference, Active: true},
		{ID: "sc4", Type: models.ConditionAvoidTime, TargetType: models.TargetTime,
			Day: dayPtr(models.Friday), StartTime: clockPtr("14:00"), EndTime: clockPtr("15:00"), Severity: models.SeverityHard, Active: false},
	}

	score := NewEngine().Score(NewProblem(in))
	assert.Equal(t, Score{Hard: -1, Soft: -(models.DefaultMediumPenalty + 1)}, score)
}

func TestEngineSoftWeights(t *testing.T) {
	in := baseInput(
		slotAt("s1", "c1", "t1", "r1", at(models.Monday, "09:00", "09:50")),
		slotAt("s2", "c2", "t1", "r2", at(models.Monday, "09:52", "10:40")),
	)
	in.Config.MinPassingTimeMinutes = 5
	in.Config.WeightTeacherConflict = 1000

	violations := NewEngine().Explain(NewProblem(in))
	require.Len(t, violations, 1)
	assert.Equal(t, RuleTeacherPassingTime, violations[0].Rule)
	assert.Equal(t, Score{Soft: -10}, NewEngine().Score(NewProblem(in)))

	in.Config.AllowBackToBackClasses = false
	in.Config.WeightWorkloadBalance = 50
	assert.Contains(t, rulesOf(NewEngine().Explain(NewProblem(in))), RuleBackToBack)
}

func TestEngineSoftRulesCoverWeekendDays(t *testing.T) {
	in := baseInput(
		slotAt("s1", "c1", "t1", "r1", at(models.Saturday, "09:00", "09:50")),
		slotAt("s2", "c2", "t1", "r2", at(models.Saturday, "09:52", "10:40")),
		slotAt("s3", "c3", "t1", "r1", at(models.Saturday, "10:42", "11:30")),
	)
	in.Config.MinPassingTimeMinutes = 5
	in.Config.WeightTeacherConflict = 1000
	in.Config.MaxPeriodsPerTeacher = 2
	in.Config.WeightWorkloadBalance = 50

	rules := rulesOf(NewEngine().Explain(NewProblem(in)))
	assert.Contains(t, rules, RuleTeacherPassingTime)
	assert.Contains(t, rules, RuleWorkloadDaily)
}

func TestEngineMorningCorePreference(t *testing.T) {
	in := baseInput(slotAt("s1", "c1", "t1", "r1", at(models.Monday, "13:00", "13:50")))
	in.Courses[0].Category = models.CourseCore
	in.Config.PreferMorningCoreSubjects = true

	assert.Equal(t, Score{Soft: -5}, NewEngine().Score(NewProblem(in)))
}

func TestNewProblemIsolatesInput(t *testing.T) {
	in := baseInput(slotAt("s1", "c1", "t1", "r1", at(models.Monday, "09:00", "09:50")))
	p := NewProblem(in)

	p.Apply(0, Candidate{TeacherID: sp("t2"), RoomID: sp("r2"), TimeSlot: at(models.Tuesday, "10:00", "10:50")})
	p.Teachers["t1"].Qualifications[0] = "changed"

	assert.Equal(t, "t1", *in.Slots[0].TeacherID)
	assert.Equal(t, models.Monday, *in.Slots[0].Day)
	assert.Equal(t, "math", in.Teachers[0].Qualifications[0])
}

func dayPtr(d models.DayOfWeek) *models.DayOfWeek { return &d }

func clockPtr(raw string) *models.ClockTime {
	t := models.MustClockTime(raw)
	return &t
}
