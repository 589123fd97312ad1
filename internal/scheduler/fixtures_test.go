package scheduler

import (
	"github.com/noah-isme/sma-scheduler-api/internal/models"
)

func sp(v string) *string { return &v }
func ip(v int) *int       { return &v }

func neutralConfig() models.SchedulerConfiguration {
	return models.SchedulerConfiguration{AllowBackToBackClasses: true}
}

func at(day models.DayOfWeek, start, end string) *models.TimeSlot {
	return &models.TimeSlot{Day: day, Start: models.MustClockTime(start), End: models.MustClockTime(end)}
}

func slotAt(id, course, teacher, room string, ts *models.TimeSlot) models.ScheduleSlot {
	slot := models.ScheduleSlot{ID: id, ScheduleID: "sch-1", CourseID: course, Status: models.SlotStatusActive, DayType: models.DayTypeDaily}
	if teacher != "" {
		slot.TeacherID = sp(teacher)
	}
	if room != "" {
		slot.RoomID = sp(room)
	}
	slot.SetTimeSlot(ts)
	return slot
}

func roster(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "stu-" + string(rune('a'+i%26)) + string(rune('a'+i/26))
	}
	return out
}

func baseInput(slots ...models.ScheduleSlot) Input {
	return Input{
		Slots: slots,
		Teachers: []models.Teacher{
			{ID: "t1", Name: "Ada", Active: true, Qualifications: []string{"math"}},
			{ID: "t2", Name: "Grace", Active: true, Qualifications: []string{"science"}},
		},
		Rooms: []models.Room{
			{ID: "r1", Number: "101", Building: "A", Capacity: ip(30), Active: true, Accessible: true},
			{ID: "r2", Number: "102", Building: "A", Capacity: ip(25), Active: true, Accessible: true},
		},
		Courses: []models.Course{
			{ID: "c1", Code: "MATH1", Name: "Algebra", Active: true},
			{ID: "c2", Code: "SCI1", Name: "Biology", Active: true},
			{ID: "c3", Code: "ART1", Name: "Drawing", Active: true},
		},
		Config: neutralConfig(),
	}
}
