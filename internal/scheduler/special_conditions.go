package scheduler

import (
	"github.com/noah-isme/sma-scheduler-api/internal/models"
)

// conditionPenalty maps a condition's severity to a hard flag and magnitude.
func conditionPenalty(c models.SpecialCondition) (bool, int64) {
	if c.PenaltyWeight != nil && *c.PenaltyWeight > 0 && c.Severity != models.SeverityHard {
		return false, int64(*c.PenaltyWeight)
	}
	switch c.Severity {
	case models.SeverityHard:
		return true, 1
	case models.SeverityMedium:
		return false, models.DefaultMediumPenalty
	case models.SeveritySoft:
		return false, 10
	default:
		return false, 1
	}
}

func specialConditionRule(ev *evaluation, out sink) {
	if len(ev.p.Conditions) == 0 {
		return
	}
	firstStart, lastEnd := ev.dayBounds()
	for _, cond := range ev.p.Conditions {
		hard, penalty := conditionPenalty(cond)
		for _, i := range ev.active {
			slot := ev.slot(i)
			if !conditionTargets(cond, slot) {
				continue
			}
			if conditionViolated(ev, cond, i, firstStart, lastEnd) {
				out.add(Violation{Rule: RuleSpecialCondition, Hard: hard, Penalty: penalty, SlotIDs: ids(ev, i), Detail: cond.ID})
			}
		}
	}
}

func conditionTargets(c models.SpecialCondition, slot *models.ScheduleSlot) bool {
	switch c.TargetType {
	case models.TargetTeacher:
		for _, id := range occupants(slot) {
			if c.Matches(models.TargetTeacher, id) {
				return true
			}
		}
		return false
	case models.TargetRoom:
		return slot.RoomID != nil && c.Matches(models.TargetRoom, *slot.RoomID)
	case models.TargetCourse:
		return c.Matches(models.TargetCourse, slot.CourseID)
	case models.TargetStudent:
		for _, id := range slot.StudentIDs {
			if c.Matches(models.TargetStudent, id) {
				return true
			}
		}
		return false
	case models.TargetTime:
		return true
	default:
		return false
	}
}

func conditionViolated(ev *evaluation, c models.SpecialCondition, i int, firstStart, lastEnd map[models.DayOfWeek]models.ClockTime) bool {
	slot := ev.slot(i)
	ts, timed := ev.times[i]
	window, hasWindow := c.Window()

	switch c.Type {
	case models.ConditionUnavailableTime, models.ConditionAvoidTime:
		return timed && hasWindow && ts.Overlaps(window)
	case models.ConditionPreferredTime:
		return timed && hasWindow && !ts.Overlaps(window)
	case models.ConditionRoomRequired:
		return c.RoomID != nil && (slot.RoomID == nil || *slot.RoomID != *c.RoomID)
	case models.ConditionNoFirstPeriod:
		if !timed {
			return false
		}
		if ts.Period != nil {
			return *ts.Period == 1
		}
		start, ok := firstStart[ts.Day]
		return ok && ts.Start == start
	case models.ConditionNoLastPeriod:
		if !timed {
			return false
		}
		end, ok := lastEnd[ts.Day]
		return ok && ts.End == end
	case models.ConditionAccessibilityRequirement:
		room, ok := ev.p.room(slot.RoomID)
		return ok && !room.Accessible
	case models.ConditionSmallGroup:
		limit := ev.cfg.MaxStudentsPerClass / 2
		return limit > 0 && len(slot.StudentIDs) > limit
	default:
		return false
	}
}

// dayBounds returns the first start and last end per day from the time grid,
// falling back to the slots themselves when no grid was supplied.
func (ev *evaluation) dayBounds() (map[models.DayOfWeek]models.ClockTime, map[models.DayOfWeek]models.ClockTime) {
	first := map[models.DayOfWeek]models.ClockTime{}
	last := map[models.DayOfWeek]models.ClockTime{}
	track := func(ts models.TimeSlot) {
		if cur, ok := first[ts.Day]; !ok || ts.Start < cur {
			first[ts.Day] = ts.Start
		}
		if cur, ok := last[ts.Day]; !ok || ts.End > cur {
			last[ts.Day] = ts.End
		}
	}
	if len(ev.p.TimeGrid) > 0 {
		for _, ts := range ev.p.TimeGrid {
			track(ts)
		}
		return first, last
	}
	for _, ts := range ev.times {
		track(ts)
	}
	return first, last
}
