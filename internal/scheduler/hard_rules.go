package scheduler

import (
	"fmt"

	"github.com/noah-isme/sma-scheduler-api/internal/models"
)

func hardRules() []rule {
	return []rule{
		teacherDoubleBooking,
		roomDoubleBooking,
		roomCapacity,
		teacherUnavailability,
		roomRestriction,
		teacherQualification,
		unassignedVariables,
	}
}

func teacherDoubleBooking(ev *evaluation, out sink) {
	for _, teacherID := range sortedKeys(ev.teachers) {
		ev.overlappingPairs(ev.teachers[teacherID], func(a, b int) {
			out.add(Violation{
				Rule: RuleTeacherConflict, Hard: true, Penalty: 1,
				SlotIDs: ids(ev, a, b),
				Detail:  fmt.Sprintf("teacher %s", teacherID),
			})
		})
	}
}

func roomDoubleBooking(ev *evaluation, out sink) {
	for _, roomID := range sortedKeys(ev.rooms) {
		ev.overlappingPairs(ev.rooms[roomID], func(a, b int) {
			if concurrentUseAllowed(ev.p, ev.slot(a), ev.slot(b), roomID) {
				return
			}
			out.add(Violation{
				Rule: RuleRoomConflict, Hard: true, Penalty: 1,
				SlotIDs: ids(ev, a, b),
				Detail:  fmt.Sprintf("room %s", roomID),
			})
		})
	}
}

func roomCapacity(ev *evaluation, out sink) {
	for _, i := range ev.active {
		slot := ev.slot(i)
		room, ok := ev.p.room(slot.RoomID)
		if !ok || !slot.IsOvercapacity(&room) {
			continue
		}
		out.add(Violation{
			Rule: RuleRoomCapacity, Hard: true,
			Penalty: int64(len(slot.StudentIDs) - *room.Capacity),
			SlotIDs: ids(ev, i),
		})
	}
}

func teacherUnavailability(ev *evaluation, out sink) {
	if !ev.cfg.RespectTeacherAvailability {
		return
	}
	for _, i := range ev.active {
		ts, ok := ev.times[i]
		if !ok {
			continue
		}
		for _, teacherID := range occupants(ev.slot(i)) {
			teacher, ok := ev.p.Teachers[teacherID]
			if ok && teacher.IsUnavailable(ts) {
				out.add(Violation{Rule: RuleTeacherUnavailable, Hard: true, Penalty: 1, SlotIDs: ids(ev, i), Detail: teacherID})
			}
		}
	}
}

func roomRestriction(ev *evaluation, out sink) {
	for _, i := range ev.active {
		slot := ev.slot(i)
		if slot.RoomID == nil {
			continue
		}
		teacher, ok := ev.p.teacher(slot.TeacherID)
		if !ok || !restrictedFrom(teacher, *slot.RoomID) {
			continue
		}
		out.add(Violation{Rule: RuleRoomRestriction, Hard: true, Penalty: 1, SlotIDs: ids(ev, i), Detail: teacher.ID})
	}
}

func teacherQualification(ev *evaluation, out sink) {
	for _, i := range ev.active {
		slot := ev.slot(i)
		teacher, ok := ev.p.teacher(slot.TeacherID)
		if !ok {
			continue
		}
		course, ok := ev.p.Courses[slot.CourseID]
		if !ok || course.RequiredQualification == nil || *course.RequiredQualification == "" {
			continue
		}
		if !teacher.HasQualification(*course.RequiredQualification) {
			out.add(Violation{Rule: RuleQualification, Hard: true, Penalty: 1, SlotIDs: ids(ev, i), Detail: teacher.ID})
		}
	}
}

func unassignedVariables(ev *evaluation, out sink) {
	for _, i := range ev.active {
		slot := ev.slot(i)
		missing := int64(0)
		if slot.TeacherID == nil {
			missing++
		}
		if slot.RoomID == nil {
			missing++
		}
		if !slot.HasTime() {
			missing++
		}
		if missing > 0 {
			out.add(Violation{Rule: RuleUnassigned, Hard: true, Penalty: missing, SlotIDs: ids(ev, i)})
		}
	}
}

// restrictedFrom reports whether a teacher's RESTRICTION list excludes roomID.
func restrictedFrom(t models.Teacher, roomID string) bool {
	prefs := t.RoomPreferences
	return prefs.Mode == models.RoomModeRestriction && len(prefs.RoomIDs) > 0 && !prefs.Contains(roomID)
}

// concurrentUseAllowed is true only when both slots hold active room assignments
// for roomID whose declared day types do not intersect.
func concurrentUseAllowed(p *Problem, a, b *models.ScheduleSlot, roomID string) bool {
	da, ok := declaredDayTypes(p, a, roomID)
	if !ok {
		return false
	}
	db, ok := declaredDayTypes(p, b, roomID)
	if !ok {
		return false
	}
	for dt := range da {
		if db[dt] {
			return false
		}
	}
	return true
}

func declaredDayTypes(p *Problem, slot *models.ScheduleSlot, roomID string) (map[models.DayType]bool, bool) {
	out := map[models.DayType]bool{}
	declared := false
	for _, a := range p.RoomAssignments[slot.CourseID] {
		if !a.Active || a.RoomID == nil || *a.RoomID != roomID {
			continue
		}
		declared = true
		switch a.UsagePattern {
		case models.UsageOddDays:
			out[models.DayTypeOdd] = true
		case models.UsageEvenDays:
			out[models.DayTypeEven] = true
		case models.UsageAlternatingDays:
			if slot.DayType == models.DayTypeOdd || slot.DayType == models.DayTypeEven {
				out[slot.DayType] = true
			} else {
				out[models.DayTypeOdd] = true
				out[models.DayTypeEven] = true
			}
		default:
			out[models.DayTypeOdd] = true
			out[models.DayTypeEven] = true
		}
	}
	return out, declared
}
