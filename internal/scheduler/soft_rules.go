package scheduler

import (
	"github.com/noah-isme/sma-scheduler-api/internal/models"
)

var noon = models.NewClockTime(12, 0)

func softRules() []rule {
	return []rule{
		passingTime,
		classSize,
		balanceClassSizes,
		teacherWorkload,
		teacherDayShape,
		teacherPreps,
		preferredQualification,
		roomPreference,
		teacherMoves,
		studentMoves,
		studentRequests,
		prerequisiteOrder,
		accommodations,
		timeOfDay,
		dayWindow,
	}
}

// passingTime penalises same-day neighbours that leave less than the configured passing time.
func passingTime(ev *evaluation, out sink) {
	minGap := ev.cfg.MinPassingTimeMinutes
	if minGap <= 0 {
		return
	}
	teacherPenalty := scaled(ev.cfg.WeightTeacherConflict, 100)
	roomPenalty := scaled(ev.cfg.WeightRoomConflict, 100)

	schedule := ev.teacherSchedule()
	for _, teacherID := range sortedKeys(schedule) {
		for _, day := range sortedDays(schedule[teacherID]) {
			run := schedule[teacherID][day]
			for k := 1; k < len(run); k++ {
				a, b := run[k-1], run[k]
				gap := ev.times[a].Gap(ev.times[b])
				if gap < 0 || gap >= minGap || sameRoom(ev, a, b) {
					continue
				}
				out.add(Violation{Rule: RuleTeacherPassingTime, Penalty: teacherPenalty, SlotIDs: ids(ev, a, b), Detail: teacherID})
			}
		}
	}
	for _, roomID := range sortedKeys(ev.rooms) {
		group := ev.rooms[roomID]
		for k := 1; k < len(group); k++ {
			a, b := group[k-1], group[k]
			gap := ev.times[a].Gap(ev.times[b])
			if gap < 0 || gap >= minGap {
				continue
			}
			out.add(Violation{Rule: RuleRoomTurnover, Penalty: roomPenalty, SlotIDs: ids(ev, a, b), Detail: roomID})
		}
	}
}

func sameRoom(ev *evaluation, a, b int) bool {
	ra, rb := ev.slot(a).RoomID, ev.slot(b).RoomID
	return ra != nil && rb != nil && *ra == *rb
}

func classSize(ev *evaluation, out sink) {
	perStudent := scaled(ev.cfg.WeightCapacity, 100)
	for _, i := range ev.active {
		slot := ev.slot(i)
		size := len(slot.StudentIDs)
		limit := ev.cfg.MaxStudentsPerClass
		if course, ok := ev.p.Courses[slot.CourseID]; ok && course.MaxStudents != nil {
			limit = *course.MaxStudents
		}
		if limit > 0 && size > limit {
			out.add(Violation{Rule: RuleClassSize, Penalty: int64(size-limit) * perStudent, SlotIDs: ids(ev, i)})
		}
		if min := ev.cfg.MinStudentsPerClass; min > 0 && size > 0 && size < min {
			out.add(Violation{Rule: RuleMinClassSize, Penalty: int64(min - size), SlotIDs: ids(ev, i)})
		}
	}
}

func balanceClassSizes(ev *evaluation, out sink) {
	if !ev.cfg.BalanceClassSizes {
		return
	}
	type bounds struct{ min, max int }
	byCourse := map[string]*bounds{}
	members := map[string][]int{}
	for _, i := range ev.active {
		slot := ev.slot(i)
		size := len(slot.StudentIDs)
		b, ok := byCourse[slot.CourseID]
		if !ok {
			byCourse[slot.CourseID] = &bounds{min: size, max: size}
		} else {
			if size < b.min {
				b.min = size
			}
			if size > b.max {
				b.max = size
			}
		}
		members[slot.CourseID] = append(members[slot.CourseID], i)
	}
	for _, courseID := range sortedKeys(byCourse) {
		b := byCourse[courseID]
		if spread := b.max - b.min; spread > 0 {
			out.add(Violation{Rule: RuleBalanceClassSizes, Penalty: int64(spread), SlotIDs: ids(ev, members[courseID]...), Detail: courseID})
		}
	}
}

func (ev *evaluation) teacherLimit(teacherID string, override func(models.Teacher) *int, fallback int) int {
	if teacher, ok := ev.p.Teachers[teacherID]; ok {
		if v := override(teacher); v != nil {
			return *v
		}
	}
	return fallback
}

// teacherWorkload checks per-day period limits and spread of weekly load across teachers.
func teacherWorkload(ev *evaluation, out sink) {
	weight := int64(ev.cfg.WeightWorkloadBalance)
	if weight <= 0 {
		return
	}
	schedule := ev.teacherSchedule()
	keys := sortedKeys(schedule)
	total := 0
	loads := make(map[string]int, len(keys))
	for _, teacherID := range keys {
		max := ev.teacherLimit(teacherID, func(t models.Teacher) *int { return t.MaxPeriods }, ev.cfg.MaxPeriodsPerTeacher)
		min := ev.teacherLimit(teacherID, func(t models.Teacher) *int { return t.MinPeriods }, ev.cfg.MinPeriodsPerTeacher)
		for _, day := range sortedDays(schedule[teacherID]) {
			run := schedule[teacherID][day]
			n := len(run)
			loads[teacherID] += n
			if n == 0 {
				continue
			}
			if max > 0 && n > max {
				out.add(Violation{Rule: RuleWorkloadDaily, Penalty: int64(n-max) * weight, SlotIDs: ids(ev, run...), Detail: teacherID})
			}
			if min > 0 && n < min {
				out.add(Violation{Rule: RuleWorkloadDaily, Penalty: int64(min-n) * scaled(int(weight), 10), SlotIDs: ids(ev, run...), Detail: teacherID})
			}
		}
		total += loads[teacherID]
	}
	if len(keys) < 2 {
		return
	}
	mean := float64(total) / float64(len(keys))
	deviation := 0.0
	for _, teacherID := range keys {
		d := float64(loads[teacherID]) - mean
		if d < 0 {
			d = -d
		}
		deviation += d
	}
	if penalty := int64(deviation) * scaled(int(weight), 10); penalty > 0 {
		out.add(Violation{Rule: RuleWorkloadBalance, Penalty: penalty})
	}
}

// teacherDayShape covers consecutive runs, back-to-back classes and planning periods.
func teacherDayShape(ev *evaluation, out sink) {
	weight := scaled(ev.cfg.WeightWorkloadBalance, 1)
	if weight == 0 {
		weight = 1
	}
	schedule := ev.teacherSchedule()
	passing := ev.cfg.MinPassingTimeMinutes
	for _, teacherID := range sortedKeys(schedule) {
		maxRun := ev.teacherLimit(teacherID, func(t models.Teacher) *int { return t.MaxConsecutive }, ev.cfg.MaxConsecutivePeriods)
		minPlanning := ev.teacherLimit(teacherID, func(t models.Teacher) *int { return t.MinPlanningPeriods }, ev.cfg.MinPlanningPeriods)
		for _, day := range sortedDays(schedule[teacherID]) {
			run := schedule[teacherID][day]
			if len(run) == 0 {
				continue
			}
			streak := 1
			for k := 1; k < len(run); k++ {
				gap := ev.times[run[k-1]].Gap(ev.times[run[k]])
				adjacent := gap >= 0 && gap <= passing
				if adjacent && !ev.cfg.AllowBackToBackClasses {
					out.add(Violation{Rule: RuleBackToBack, Penalty: scaled(int(weight), 5), SlotIDs: ids(ev, run[k-1], run[k]), Detail: teacherID})
				}
				if adjacent {
					streak++
				} else {
					streak = 1
				}
				if maxRun > 0 && streak > maxRun {
					out.add(Violation{Rule: RuleConsecutivePeriods, Penalty: weight, SlotIDs: ids(ev, run[k]), Detail: teacherID})
				}
			}
			if periods := ev.gridDay[day]; minPlanning > 0 && periods > 0 {
				if free := periods - len(run); free < minPlanning {
					out.add(Violation{Rule: RulePlanningPeriods, Penalty: int64(minPlanning-free) * weight, SlotIDs: ids(ev, run...), Detail: teacherID})
				}
			}
		}
	}
}

func teacherPreps(ev *evaluation, out sink) {
	weight := scaled(ev.cfg.WeightWorkloadBalance, 1)
	if weight == 0 {
		weight = 1
	}
	courses := map[string]map[string]bool{}
	for _, i := range ev.active {
		slot := ev.slot(i)
		if slot.TeacherID == nil {
			continue
		}
		if courses[*slot.TeacherID] == nil {
			courses[*slot.TeacherID] = map[string]bool{}
		}
		courses[*slot.TeacherID][slot.CourseID] = true
	}
	for _, teacherID := range sortedKeys(courses) {
		max := ev.teacherLimit(teacherID, func(t models.Teacher) *int { return t.MaxPreps }, ev.cfg.MaxPrepsPerTeacher)
		if n := len(courses[teacherID]); max > 0 && n > max {
			out.add(Violation{Rule: RulePreps, Penalty: int64(n-max) * weight, Detail: teacherID})
		}
	}
}

func preferredQualification(ev *evaluation, out sink) {
	penalty := scaled(ev.cfg.WeightTeacherQualification, 1)
	if penalty == 0 {
		return
	}
	for _, i := range ev.active {
		slot := ev.slot(i)
		teacher, ok := ev.p.teacher(slot.TeacherID)
		if !ok {
			continue
		}
		course := ev.p.Courses[slot.CourseID]
		if course.PreferredQualification != nil && *course.PreferredQualification != "" &&
			!teacher.HasQualification(*course.PreferredQualification) {
			out.add(Violation{Rule: RulePreferredQualification, Penalty: penalty, SlotIDs: ids(ev, i), Detail: teacher.ID})
		}
	}
}

func roomPreference(ev *evaluation, out sink) {
	if !ev.cfg.RespectTeacherPreferences {
		return
	}
	for _, i := range ev.active {
		slot := ev.slot(i)
		teacher, ok := ev.p.teacher(slot.TeacherID)
		if !ok || slot.RoomID == nil {
			continue
		}
		prefs := teacher.RoomPreferences
		if prefs.Mode != models.RoomModePreference || len(prefs.RoomIDs) == 0 || prefs.Contains(*slot.RoomID) {
			continue
		}
		out.add(Violation{Rule: RuleRoomPreference, Penalty: prefs.Strength.Penalty(), SlotIDs: ids(ev, i), Detail: teacher.ID})
	}
}

func teacherMoves(ev *evaluation, out sink) {
	if !ev.cfg.MinimizeTeacherMoves {
		return
	}
	schedule := ev.teacherSchedule()
	for _, teacherID := range sortedKeys(schedule) {
		for _, day := range sortedDays(schedule[teacherID]) {
			run := schedule[teacherID][day]
			transitions := 0
			for k := 1; k < len(run); k++ {
				if !sameRoom(ev, run[k-1], run[k]) {
					out.add(Violation{Rule: RuleTeacherMoves, Penalty: 1, SlotIDs: ids(ev, run[k-1], run[k]), Detail: teacherID})
				}
				if ba, bb := ev.building(run[k-1]), ev.building(run[k]); ba != "" && bb != "" && ba != bb {
					transitions++
				}
			}
			if limit := ev.cfg.MaxBuildingTransitions; transitions > limit {
				out.add(Violation{Rule: RuleBuildingTransitions, Penalty: int64(transitions-limit) * 5, SlotIDs: ids(ev, run...), Detail: teacherID})
			}
		}
	}
}

func studentMoves(ev *evaluation, out sink) {
	if !ev.cfg.MinimizeStudentMoves {
		return
	}
	schedule := ev.studentSchedule()
	for _, studentID := range sortedKeys(schedule) {
		for _, day := range sortedDays(schedule[studentID]) {
			run := schedule[studentID][day]
			for k := 1; k < len(run); k++ {
				if ba, bb := ev.building(run[k-1]), ev.building(run[k]); ba != "" && bb != "" && ba != bb {
					out.add(Violation{Rule: RuleStudentMoves, Penalty: 1, SlotIDs: ids(ev, run[k-1], run[k]), Detail: studentID})
				}
			}
		}
	}
}

func studentRequests(ev *evaluation, out sink) {
	if !ev.cfg.HonorStudentRequests {
		return
	}
	penalty := scaled(ev.cfg.WeightStudentPreference, 25)
	if penalty == 0 {
		return
	}
	for _, i := range ev.active {
		slot := ev.slot(i)
		if slot.TeacherID == nil {
			continue
		}
		for _, studentID := range slot.StudentIDs {
			student, ok := ev.p.Students[studentID]
			if !ok {
				continue
			}
			for _, req := range student.CourseRequests {
				if req.CourseID == slot.CourseID && req.PreferredTeacherID != nil && *req.PreferredTeacherID != *slot.TeacherID {
					out.add(Violation{Rule: RuleStudentRequest, Penalty: penalty, SlotIDs: ids(ev, i), Detail: studentID})
				}
			}
		}
	}
}

func prerequisiteOrder(ev *evaluation, out sink) {
	if !ev.cfg.EnforcePrerequisiteOrder {
		return
	}
	for _, i := range ev.active {
		slot := ev.slot(i)
		if missing := missingPrerequisites(ev.p, slot); len(missing) > 0 {
			out.add(Violation{Rule: RulePrerequisite, Penalty: int64(len(missing)) * 10, SlotIDs: ids(ev, i)})
		}
	}
}

// missingPrerequisites lists student ids on the roster lacking a prerequisite of the slot's course.
func missingPrerequisites(p *Problem, slot *models.ScheduleSlot) []string {
	course, ok := p.Courses[slot.CourseID]
	if !ok || len(course.PrerequisiteIDs) == 0 {
		return nil
	}
	var out []string
	for _, studentID := range slot.StudentIDs {
		student, ok := p.Students[studentID]
		if !ok {
			continue
		}
		for _, prereq := range course.PrerequisiteIDs {
			if !student.HasCompleted(prereq) {
				out = append(out, studentID)
				break
			}
		}
	}
	return out
}

func accommodations(ev *evaluation, out sink) {
	cfg := ev.cfg
	if !cfg.HonorIEPAccommodations && !cfg.Honor504Accommodations {
		return
	}
	resourceBuildings := map[string]bool{}
	for _, room := range ev.p.Rooms {
		if room.ResourceRoom && room.Active {
			resourceBuildings[room.Building] = true
		}
	}
	for _, i := range ev.active {
		slot := ev.slot(i)
		needs := 0
		for _, studentID := range slot.StudentIDs {
			student, ok := ev.p.Students[studentID]
			if !ok {
				continue
			}
			if (cfg.HonorIEPAccommodations && student.HasIEP) || (cfg.Honor504Accommodations && student.Has504) {
				needs++
			}
		}
		if needs == 0 {
			continue
		}
		room, hasRoom := ev.p.room(slot.RoomID)
		if hasRoom && !room.Accessible {
			out.add(Violation{Rule: RuleAccessibility, Penalty: 20, SlotIDs: ids(ev, i)})
		}
		if cfg.SmallClassForSpecialNeeds && cfg.MaxStudentsPerClass > 0 && len(slot.StudentIDs) > cfg.MaxStudentsPerClass*2/3 {
			out.add(Violation{Rule: RuleSmallClass, Penalty: 5, SlotIDs: ids(ev, i)})
		}
		if cfg.ResourceRoomProximity && hasRoom && len(resourceBuildings) > 0 && !resourceBuildings[room.Building] {
			out.add(Violation{Rule: RuleResourceRoom, Penalty: 2, SlotIDs: ids(ev, i)})
		}
	}
}

func timeOfDay(ev *evaluation, out sink) {
	if !ev.cfg.PreferMorningCoreSubjects && !ev.cfg.PreferAfternoonElectives {
		return
	}
	for _, i := range ev.active {
		ts, ok := ev.times[i]
		if !ok {
			continue
		}
		course, ok := ev.p.Courses[ev.slot(i).CourseID]
		if !ok {
			continue
		}
		if ev.cfg.PreferMorningCoreSubjects && course.Category == models.CourseCore && ts.Start >= noon {
			out.add(Violation{Rule: RuleMorningCore, Penalty: 5, SlotIDs: ids(ev, i)})
		}
		if ev.cfg.PreferAfternoonElectives && course.Category == models.CourseElective && ts.Start < noon {
			out.add(Violation{Rule: RuleAfternoonElective, Penalty: 5, SlotIDs: ids(ev, i)})
		}
	}
}

func dayWindow(ev *evaluation, out sink) {
	earliest, latest := ev.cfg.EarliestStartTime, ev.cfg.LatestEndTime
	if latest <= earliest {
		return
	}
	for _, i := range ev.active {
		ts, ok := ev.times[i]
		if ok && (ts.Start < earliest || ts.End > latest) {
			out.add(Violation{Rule: RuleDayWindow, Penalty: 10, SlotIDs: ids(ev, i)})
		}
	}
}
