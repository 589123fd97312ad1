package scheduler

import (
	"sort"

	"github.com/noah-isme/sma-scheduler-api/internal/models"
)

// Input is the raw data a scheduling run is built from.
type Input struct {
	Slots           []models.ScheduleSlot
	Teachers        []models.Teacher
	Rooms           []models.Room
	Courses         []models.Course
	Students        []models.Student
	RoomAssignments []models.CourseRoomAssignment
	Conditions      []models.SpecialCondition
	Config          models.SchedulerConfiguration
	TimeGrid        []models.TimeSlot
}

// Problem is an isolated working copy of everything a run reads.
// Mutating a Problem never touches the Input it was built from.
type Problem struct {
	Slots           []models.ScheduleSlot
	Teachers        map[string]models.Teacher
	Rooms           map[string]models.Room
	Courses         map[string]models.Course
	Students        map[string]models.Student
	RoomAssignments map[string][]models.CourseRoomAssignment
	Conditions      []models.SpecialCondition
	Config          models.SchedulerConfiguration
	TimeGrid        []models.TimeSlot
}

// NewProblem deep copies in. Slots are ordered by id so every pass over them is deterministic.
func NewProblem(in Input) *Problem {
	p := &Problem{
		Slots:           make([]models.ScheduleSlot, 0, len(in.Slots)),
		Teachers:        make(map[string]models.Teacher, len(in.Teachers)),
		Rooms:           make(map[string]models.Room, len(in.Rooms)),
		Courses:         make(map[string]models.Course, len(in.Courses)),
		Students:        make(map[string]models.Student, len(in.Students)),
		RoomAssignments: make(map[string][]models.CourseRoomAssignment),
		Config:          in.Config,
	}
	for _, slot := range in.Slots {
		p.Slots = append(p.Slots, slot.Clone())
	}
	sort.SliceStable(p.Slots, func(i, j int) bool { return p.Slots[i].ID < p.Slots[j].ID })

	for _, t := range in.Teachers {
		t.Qualifications = append(t.Qualifications[:0:0], t.Qualifications...)
		t.Unavailable = append(t.Unavailable[:0:0], t.Unavailable...)
		t.RoomPreferences.RoomIDs = append([]string(nil), t.RoomPreferences.RoomIDs...)
		p.Teachers[t.ID] = t
	}
	for _, r := range in.Rooms {
		r.Equipment = append(r.Equipment[:0:0], r.Equipment...)
		p.Rooms[r.ID] = r
	}
	for _, c := range in.Courses {
		c.PrerequisiteIDs = append(c.PrerequisiteIDs[:0:0], c.PrerequisiteIDs...)
		p.Courses[c.ID] = c
	}
	for _, s := range in.Students {
		s.CourseRequests = append(s.CourseRequests[:0:0], s.CourseRequests...)
		s.CompletedCourseIDs = append(s.CompletedCourseIDs[:0:0], s.CompletedCourseIDs...)
		p.Students[s.ID] = s
	}
	for _, a := range in.RoomAssignments {
		p.RoomAssignments[a.CourseID] = append(p.RoomAssignments[a.CourseID], a)
	}
	for _, c := range in.Conditions {
		if c.Active {
			p.Conditions = append(p.Conditions, c)
		}
	}
	p.TimeGrid = append([]models.TimeSlot(nil), in.TimeGrid...)
	return p
}

// Candidate is one proposed value for a slot's assignable variables.
type Candidate struct {
	TeacherID *string
	RoomID    *string
	TimeSlot  *models.TimeSlot
}

// Apply writes c into slot i and returns the previous values.
func (p *Problem) Apply(i int, c Candidate) Candidate {
	slot := &p.Slots[i]
	prev := p.Current(i)
	slot.TeacherID = copyString(c.TeacherID)
	slot.RoomID = copyString(c.RoomID)
	slot.SetTimeSlot(c.TimeSlot)
	return prev
}

// Current returns the assignment currently held by slot i.
func (p *Problem) Current(i int) Candidate {
	slot := &p.Slots[i]
	c := Candidate{TeacherID: slot.TeacherID, RoomID: slot.RoomID}
	if ts, ok := slot.TimeSlot(); ok {
		c.TimeSlot = &ts
	}
	return c
}

// Movable lists indexes of slots the search may change.
func (p *Problem) Movable() []int {
	out := make([]int, 0, len(p.Slots))
	for i := range p.Slots {
		if p.Slots[i].Pinned || p.Slots[i].IsCancelled() {
			continue
		}
		out = append(out, i)
	}
	return out
}

// PinnedIDs returns the exclusion set handed to the search.
func (p *Problem) PinnedIDs() map[string]struct{} {
	out := make(map[string]struct{})
	for _, slot := range p.Slots {
		if slot.Pinned {
			out[slot.ID] = struct{}{}
		}
	}
	return out
}

func (p *Problem) teacher(id *string) (models.Teacher, bool) {
	if id == nil {
		return models.Teacher{}, false
	}
	t, ok := p.Teachers[*id]
	return t, ok
}

func (p *Problem) room(id *string) (models.Room, bool) {
	if id == nil {
		return models.Room{}, false
	}
	r, ok := p.Rooms[*id]
	return r, ok
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
