package scheduler

import (
	"sort"

	"github.com/noah-isme/sma-scheduler-api/internal/models"
)

// Rule names reported in violations.
const (
	RuleTeacherConflict        = "teacher_conflict"
	RuleRoomConflict           = "room_conflict"
	RuleRoomCapacity           = "room_capacity"
	RuleTeacherUnavailable     = "teacher_unavailable"
	RuleRoomRestriction        = "room_restriction"
	RuleQualification          = "teacher_qualification"
	RuleUnassigned             = "unassigned_variable"
	RuleTeacherPassingTime     = "teacher_passing_time"
	RuleRoomTurnover           = "room_turnover"
	RuleClassSize              = "class_size"
	RuleMinClassSize           = "min_class_size"
	RuleBalanceClassSizes      = "balance_class_sizes"
	RuleWorkloadDaily          = "workload_daily"
	RuleWorkloadBalance        = "workload_balance"
	RuleConsecutivePeriods     = "consecutive_periods"
	RuleBackToBack             = "back_to_back"
	RulePlanningPeriods        = "planning_periods"
	RulePreps                  = "preps"
	RulePreferredQualification = "preferred_qualification"
	RuleRoomPreference         = "room_preference"
	RuleTeacherMoves           = "teacher_moves"
	RuleBuildingTransitions    = "building_transitions"
	RuleStudentMoves           = "student_moves"
	RuleStudentRequest         = "student_request"
	RulePrerequisite           = "prerequisite_order"
	RuleAccessibility          = "accessibility"
	RuleSmallClass             = "small_class"
	RuleResourceRoom           = "resource_room_proximity"
	RuleMorningCore            = "morning_core"
	RuleAfternoonElective      = "afternoon_elective"
	RuleDayWindow              = "day_window"
	RuleSpecialCondition       = "special_condition"
)

// Violation is one penalised rule occurrence.
type Violation struct {
	Rule    string   `json:"rule"`
	Hard    bool     `json:"hard"`
	Penalty int64    `json:"penalty"`
	SlotIDs []string `json:"slot_ids"`
	Detail  string   `json:"detail,omitempty"`
}

type sink interface {
	add(v Violation)
}

type scoreSink struct{ score Score }

func (s *scoreSink) add(v Violation) {
	if v.Penalty <= 0 {
		return
	}
	if v.Hard {
		s.score.Hard -= v.Penalty
		return
	}
	s.score.Soft -= v.Penalty
}

type explainSink struct{ items []Violation }

func (s *explainSink) add(v Violation) {
	if v.Penalty > 0 {
		s.items = append(s.items, v)
	}
}

type rule func(ev *evaluation, out sink)

// Engine scores candidate schedules. It never fails: an unsatisfiable
// constraint only lowers the score.
type Engine struct {
	rules []rule
}

// NewEngine returns an engine with every hard and soft rule registered.
func NewEngine() *Engine {
	rules := append([]rule{}, hardRules()...)
	rules = append(rules, softRules()...)
	rules = append(rules, specialConditionRule)
	return &Engine{rules: rules}
}

// Score evaluates the problem's current assignment.
func (e *Engine) Score(p *Problem) Score {
	ev := newEvaluation(p)
	out := &scoreSink{}
	for _, r := range e.rules {
		r(ev, out)
	}
	return out.score
}

// Explain lists every violation behind the score, hard ones first.
func (e *Engine) Explain(p *Problem) []Violation {
	ev := newEvaluation(p)
	out := &explainSink{}
	for _, r := range e.rules {
		r(ev, out)
	}
	sort.SliceStable(out.items, func(i, j int) bool {
		return out.items[i].Hard && !out.items[j].Hard
	})
	return out.items
}

// evaluation holds per-pass indexes over the active slots.
type evaluation struct {
	p        *Problem
	cfg      models.SchedulerConfiguration
	active   []int
	times    map[int]models.TimeSlot
	teachers map[string][]int
	rooms    map[string][]int
	gridDay  map[models.DayOfWeek]int

	teacherDays map[string]map[models.DayOfWeek][]int
	studentDays map[string]map[models.DayOfWeek][]int
}

func newEvaluation(p *Problem) *evaluation {
	ev := &evaluation{
		p:        p,
		cfg:      p.Config,
		times:    make(map[int]models.TimeSlot),
		teachers: make(map[string][]int),
		rooms:    make(map[string][]int),
		gridDay:  make(map[models.DayOfWeek]int),
	}
	for i := range p.Slots {
		slot := &p.Slots[i]
		if slot.IsCancelled() {
			continue
		}
		ev.active = append(ev.active, i)
		ts, ok := slot.TimeSlot()
		if !ok {
			continue
		}
		ev.times[i] = ts
		for _, teacherID := range occupants(slot) {
			ev.teachers[teacherID] = append(ev.teachers[teacherID], i)
		}
		if slot.RoomID != nil {
			ev.rooms[*slot.RoomID] = append(ev.rooms[*slot.RoomID], i)
		}
	}
	for key := range ev.teachers {
		ev.sortByTime(ev.teachers[key])
	}
	for key := range ev.rooms {
		ev.sortByTime(ev.rooms[key])
	}
	for _, ts := range p.TimeGrid {
		ev.gridDay[ts.Day]++
	}
	return ev
}

func (ev *evaluation) slot(i int) *models.ScheduleSlot {
	return &ev.p.Slots[i]
}

func (ev *evaluation) sortByTime(idx []int) {
	sort.Slice(idx, func(a, b int) bool {
		ta, tb := ev.times[idx[a]], ev.times[idx[b]]
		if ta.Day != tb.Day {
			return ta.Day.Index() < tb.Day.Index()
		}
		if ta.Start != tb.Start {
			return ta.Start < tb.Start
		}
		return ev.p.Slots[idx[a]].ID < ev.p.Slots[idx[b]].ID
	})
}

// overlappingPairs calls fn for every pair in a time sorted group whose slots overlap.
func (ev *evaluation) overlappingPairs(group []int, fn func(a, b int)) {
	for x := 0; x < len(group); x++ {
		tx := ev.times[group[x]]
		for y := x + 1; y < len(group); y++ {
			ty := ev.times[group[y]]
			if ty.Day != tx.Day || ty.Start >= tx.End {
				break
			}
			fn(group[x], group[y])
		}
	}
}

// byDay splits a time sorted group into per-day runs.
func (ev *evaluation) byDay(group []int) map[models.DayOfWeek][]int {
	out := make(map[models.DayOfWeek][]int)
	for _, i := range group {
		day := ev.times[i].Day
		out[day] = append(out[day], i)
	}
	return out
}

func (ev *evaluation) teacherSchedule() map[string]map[models.DayOfWeek][]int {
	if ev.teacherDays == nil {
		ev.teacherDays = make(map[string]map[models.DayOfWeek][]int, len(ev.teachers))
		for teacherID, group := range ev.teachers {
			ev.teacherDays[teacherID] = ev.byDay(group)
		}
	}
	return ev.teacherDays
}

func (ev *evaluation) studentSchedule() map[string]map[models.DayOfWeek][]int {
	if ev.studentDays == nil {
		groups := make(map[string][]int)
		for i := range ev.times {
			for _, studentID := range ev.slot(i).StudentIDs {
				groups[studentID] = append(groups[studentID], i)
			}
		}
		ev.studentDays = make(map[string]map[models.DayOfWeek][]int, len(groups))
		for studentID, group := range groups {
			ev.sortByTime(group)
			ev.studentDays[studentID] = ev.byDay(group)
		}
	}
	return ev.studentDays
}

func (ev *evaluation) building(i int) string {
	room, ok := ev.p.room(ev.slot(i).RoomID)
	if !ok {
		return ""
	}
	return room.Building
}

// occupants returns the primary teacher followed by distinct co-teachers.
func occupants(slot *models.ScheduleSlot) []string {
	var out []string
	seen := map[string]bool{}
	if slot.TeacherID != nil {
		out = append(out, *slot.TeacherID)
		seen[*slot.TeacherID] = true
	}
	for _, id := range slot.CoTeacherIDs {
		if !seen[id] {
			out = append(out, id)
			seen[id] = true
		}
	}
	return out
}

// scaled divides a configured weight, never rounding an enabled weight down to zero.
func scaled(weight, div int) int64 {
	if weight <= 0 {
		return 0
	}
	v := int64(weight / div)
	if v < 1 {
		v = 1
	}
	return v
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sortedDays returns the days present in m, Monday first.
func sortedDays(m map[models.DayOfWeek][]int) []models.DayOfWeek {
	days := make([]models.DayOfWeek, 0, len(m))
	for d := range m {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool {
		if days[i].Index() != days[j].Index() {
			return days[i].Index() < days[j].Index()
		}
		return days[i] < days[j]
	})
	return days
}

func ids(ev *evaluation, idx ...int) []string {
	out := make([]string, 0, len(idx))
	for _, i := range idx {
		out = append(out, ev.slot(i).ID)
	}
	return out
}
