package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(v string) *string { return &v }
func intPtr(v int) *int       { return &v }

func TestTimeSlotOverlaps(t *testing.T) {
	a := TimeSlot{Day: Monday, Start: MustClockTime("09:00"), End: MustClockTime("09:50")}
	b := TimeSlot{Day: Monday, Start: MustClockTime("09:30"), End: MustClockTime("10:20")}
	c := TimeSlot{Day: Monday, Start: MustClockTime("09:50"), End: MustClockTime("10:40")}
	d := TimeSlot{Day: Tuesday, Start: MustClockTime("09:00"), End: MustClockTime("09:50")}

	assert.True(t, a.Overlaps(b))
	assert.True(t, b.Overlaps(a))
	assert.False(t, a.Overlaps(c), "touching ranges do not overlap")
	assert.False(t, a.Overlaps(d))
	assert.Equal(t, 0, a.Gap(c))
	assert.Equal(t, -1, a.Gap(b))
}

func TestClockTimeJSONAndScan(t *testing.T) {
	ct := NewClockTime(7, 30)
	raw, err := json.Marshal(ct)
	require.NoError(t, err)
	assert.Equal(t, `"07:30"`, string(raw))

	var parsed ClockTime
	require.NoError(t, json.Unmarshal([]byte(`"15:05"`), &parsed))
	assert.Equal(t, NewClockTime(15, 5), parsed)

	require.NoError(t, parsed.Scan([]byte("09:45:00")))
	assert.Equal(t, "09:45", parsed.String())

	_, err = ParseClockTime("25:00")
	assert.Error(t, err)
}

func TestScheduleSlotIsComplete(t *testing.T) {
	slot := ScheduleSlot{ID: "s1", CourseID: "c1"}
	assert.False(t, slot.IsComplete())

	slot.TeacherID = strPtr("t1")
	slot.RoomID = strPtr("r1")
	assert.False(t, slot.IsComplete())

	slot.SetTimeSlot(&TimeSlot{Day: Monday, Start: MustClockTime("09:00"), End: MustClockTime("10:00"), Period: intPtr(2)})
	assert.True(t, slot.IsComplete())
	require.NotNil(t, slot.Period)
	assert.Equal(t, 2, *slot.Period)

	ts, ok := slot.TimeSlot()
	require.True(t, ok)
	assert.Equal(t, Monday, ts.Day)

	slot.SetTimeSlot(nil)
	assert.False(t, slot.IsComplete())
	assert.Nil(t, slot.Day)
}

func TestScheduleSlotIsOvercapacity(t *testing.T) {
	roster := make([]string, 30)
	for i := range roster {
		roster[i] = "stu"
	}
	slot := ScheduleSlot{StudentIDs: roster}

	assert.True(t, slot.IsOvercapacity(&Room{Capacity: intPtr(25)}))
	assert.False(t, slot.IsOvercapacity(&Room{Capacity: intPtr(30)}))
	assert.False(t, slot.IsOvercapacity(&Room{}))
	assert.False(t, slot.IsOvercapacity(nil))
}

func TestScheduleSlotCloneIsIndependent(t *testing.T) {
	slot := ScheduleSlot{ID: "s1", TeacherID: strPtr("t1"), StudentIDs: []string{"a"}}
	slot.Pin("admin", time.Now())

	clone := slot.Clone()
	*clone.TeacherID = "t2"
	clone.StudentIDs[0] = "b"

	assert.Equal(t, "t1", *slot.TeacherID)
	assert.Equal(t, "a", slot.StudentIDs[0])
	assert.True(t, clone.Pinned)
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, ScheduleStatusDraft.CanTransition(ScheduleStatusPublished))
	assert.False(t, ScheduleStatusDraft.CanTransition(ScheduleStatusArchived))
	assert.True(t, ScheduleStatusPublished.CanTransition(ScheduleStatusArchived))
	assert.False(t, ScheduleStatusArchived.CanTransition(ScheduleStatusDraft))

	assert.True(t, JobStatusQueued.CanTransition(JobStatusRunning))
	assert.False(t, JobStatusQueued.CanTransition(JobStatusCompleted))
	assert.True(t, JobStatusRunning.CanTransition(JobStatusFailed))
	for _, terminal := range []JobStatus{JobStatusCompleted, JobStatusFailed} {
		for _, to := range []JobStatus{JobStatusQueued, JobStatusRunning, JobStatusCompleted, JobStatusFailed} {
			assert.False(t, terminal.CanTransition(to))
		}
	}
}

func TestTeacherRoomPreferencesScan(t *testing.T) {
	var prefs TeacherRoomPreferences
	require.NoError(t, prefs.Scan([]byte(`{"mode":"RESTRICTION","room_ids":["r1"],"strength":"HIGH"}`)))
	assert.Equal(t, RoomModeRestriction, prefs.Mode)
	assert.True(t, prefs.Contains("r1"))
	assert.Equal(t, int64(5), prefs.Strength.Penalty())
	assert.Equal(t, int64(1), StrengthLow.Penalty())
	assert.Equal(t, int64(3), StrengthMedium.Penalty())
}
