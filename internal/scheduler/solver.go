package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/noah-isme/sma-scheduler-api/internal/models"
)

// ProgressFunc receives one-way progress notifications from a running search.
type ProgressFunc func(percent int, message string)

// Stop reasons reported on a Solution.
const (
	StopOptimal     = "optimal"
	StopIterations  = "max_iterations"
	StopTimeLimit   = "time_limit"
	StopUnimproved  = "unimproved_limit"
	StopCancelled   = "cancelled"
	StopNothingToDo = "nothing_to_move"
)

// SolverOptions bound the search.
type SolverOptions struct {
	MaxIterations   int
	Seed            int64
	TimeLimit       time.Duration
	UnimprovedLimit time.Duration
	SampleSize      int
	Clock           func() time.Time
}

// Solution is the best assignment found.
type Solution struct {
	Slots      []models.ScheduleSlot
	Score      Score
	Iterations int
	Duration   time.Duration
	StopReason string
}

// Solver runs a greedy construction followed by seeded local search.
// It only proposes candidates; all scoring goes through the Engine and pinned slots are never touched.
type Solver struct {
	engine *Engine
	opts   SolverOptions
}

// NewSolver fills unset options with defaults.
func NewSolver(engine *Engine, opts SolverOptions) *Solver {
	if engine == nil {
		engine = NewEngine()
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 5000
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = 48
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Solver{engine: engine, opts: opts}
}

type domain struct {
	teachers []*string
	rooms    []*string
	times    []*models.TimeSlot
}

// Solve mutates p toward a better score. On cancellation the best assignment
// found so far is kept on p and returned together with ctx.Err().
func (s *Solver) Solve(ctx context.Context, p *Problem, progress ProgressFunc) (Solution, error) {
	if progress == nil {
		progress = func(int, string) {}
	}
	started := s.opts.Clock()
	rng := rand.New(rand.NewSource(s.opts.Seed))

	movable := p.Movable()
	if len(movable) == 0 {
		progress(100, "No unpinned slots to schedule")
		return s.finish(p, s.engine.Score(p), 0, started, StopNothingToDo), nil
	}

	domains := make(map[int]domain, len(movable))
	for _, i := range movable {
		domains[i] = buildDomain(p, i)
	}

	progress(0, "Constructing initial assignment")
	if err := s.construct(ctx, p, movable, domains, rng, progress); err != nil {
		return s.finish(p, s.engine.Score(p), 0, started, StopCancelled), err
	}

	current := s.engine.Score(p)
	best := current
	bestState := snapshot(p, movable)
	lastImprovement := s.opts.Clock()
	reason := StopIterations
	iter := 0
	reportEvery := s.opts.MaxIterations / 20
	if reportEvery == 0 {
		reportEvery = 1
	}

	var ctxErr error
	for ; iter < s.opts.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			ctxErr, reason = err, StopCancelled
			break
		}
		now := s.opts.Clock()
		if s.opts.TimeLimit > 0 && now.Sub(started) >= s.opts.TimeLimit {
			reason = StopTimeLimit
			break
		}
		if s.opts.UnimprovedLimit > 0 && now.Sub(lastImprovement) >= s.opts.UnimprovedLimit {
			reason = StopUnimproved
			break
		}
		if best.Hard == 0 && best.Soft == 0 {
			reason = StopOptimal
			break
		}

		undo := s.randomMove(p, movable, domains, rng)
		if undo == nil {
			continue
		}
		score := s.engine.Score(p)
		if score.Compare(current) < 0 {
			undo()
			continue
		}
		current = score
		if current.Better(best) {
			best = current
			bestState = snapshot(p, movable)
			lastImprovement = s.opts.Clock()
		}
		if iter%reportEvery == 0 {
			progress(10+85*iter/s.opts.MaxIterations, fmt.Sprintf("Optimizing: best score %s", best))
		}
	}

	restore(p, bestState)
	progress(95, fmt.Sprintf("Search finished (%s): score %s", reason, best))
	return s.finish(p, best, iter, started, reason), ctxErr
}

func (s *Solver) finish(p *Problem, score Score, iterations int, started time.Time, reason string) Solution {
	out := Solution{
		Slots:      make([]models.ScheduleSlot, len(p.Slots)),
		Score:      score,
		Iterations: iterations,
		Duration:   s.opts.Clock().Sub(started),
		StopReason: reason,
	}
	for i := range p.Slots {
		out.Slots[i] = p.Slots[i].Clone()
	}
	return out
}

// construct fills missing variables, most constrained slot first.
func (s *Solver) construct(ctx context.Context, p *Problem, movable []int, domains map[int]domain, rng *rand.Rand, progress ProgressFunc) error {
	order := append([]int(nil), movable...)
	sort.SliceStable(order, func(a, b int) bool {
		da, db := domains[order[a]], domains[order[b]]
		sa := len(da.teachers) * len(da.rooms) * len(da.times)
		sb := len(db.teachers) * len(db.rooms) * len(db.times)
		if sa != sb {
			return sa < sb
		}
		return p.Slots[order[a]].ID < p.Slots[order[b]].ID
	})

	for n, i := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		slot := &p.Slots[i]
		if slot.TeacherID != nil && slot.RoomID != nil && slot.HasTime() {
			continue
		}
		d := domains[i]
		base := p.Current(i)
		bestCandidate := base
		var bestScore Score
		for k := 0; k < s.opts.SampleSize; k++ {
			c := base
			if c.TeacherID == nil {
				c.TeacherID = pick(rng, d.teachers)
			}
			if c.RoomID == nil {
				c.RoomID = pick(rng, d.rooms)
			}
			if c.TimeSlot == nil {
				c.TimeSlot = pick(rng, d.times)
			}
			p.Apply(i, c)
			if score := s.engine.Score(p); k == 0 || score.Better(bestScore) {
				bestScore, bestCandidate = score, c
			}
		}
		p.Apply(i, bestCandidate)
		progress(10*(n+1)/len(order), "Constructing initial assignment")
	}
	return nil
}

// randomMove changes one variable of a random slot, or swaps two slots' times.
// It returns an undo function, or nil when no move was possible.
func (s *Solver) randomMove(p *Problem, movable []int, domains map[int]domain, rng *rand.Rand) func() {
	i := movable[rng.Intn(len(movable))]
	d := domains[i]
	prev := p.Current(i)
	next := prev

	switch rng.Intn(4) {
	case 0:
		if len(d.teachers) < 2 {
			return nil
		}
		next.TeacherID = pick(rng, d.teachers)
	case 1:
		if len(d.rooms) < 2 {
			return nil
		}
		next.RoomID = pick(rng, d.rooms)
	case 2:
		if len(d.times) < 2 {
			return nil
		}
		next.TimeSlot = pick(rng, d.times)
	default:
		if len(movable) < 2 {
			return nil
		}
		j := movable[rng.Intn(len(movable))]
		if j == i {
			return nil
		}
		other := p.Current(j)
		swappedI, swappedJ := prev, other
		swappedI.TimeSlot, swappedJ.TimeSlot = other.TimeSlot, prev.TimeSlot
		p.Apply(i, swappedI)
		p.Apply(j, swappedJ)
		return func() {
			p.Apply(i, prev)
			p.Apply(j, other)
		}
	}
	p.Apply(i, next)
	return func() { p.Apply(i, prev) }
}

func buildDomain(p *Problem, i int) domain {
	slot := p.Slots[i]
	course := p.Courses[slot.CourseID]
	d := domain{}

	var qualified, active []string
	for _, id := range sortedKeys(p.Teachers) {
		t := p.Teachers[id]
		if !t.Active {
			continue
		}
		active = append(active, id)
		if course.RequiredQualification == nil || t.HasQualification(*course.RequiredQualification) {
			qualified = append(qualified, id)
		}
	}
	if len(qualified) == 0 {
		qualified = active
	}
	d.teachers = withCurrent(qualified, slot.TeacherID)

	var rooms []string
	if course.UsesMultipleRooms {
		assigned := append([]models.CourseRoomAssignment(nil), p.RoomAssignments[course.ID]...)
		sort.SliceStable(assigned, func(a, b int) bool { return assigned[a].Priority < assigned[b].Priority })
		for _, a := range assigned {
			if a.Active && a.RoomID != nil {
				rooms = append(rooms, *a.RoomID)
			}
		}
	}
	if len(rooms) == 0 {
		var fallback []string
		for _, id := range sortedKeys(p.Rooms) {
			r := p.Rooms[id]
			if !r.Active {
				continue
			}
			fallback = append(fallback, id)
			if course.RequiredRoomType != nil && *course.RequiredRoomType != r.Type {
				continue
			}
			if r.Capacity != nil && *r.Capacity < len(slot.StudentIDs) {
				continue
			}
			rooms = append(rooms, id)
		}
		if len(rooms) == 0 {
			rooms = fallback
		}
	}
	d.rooms = withCurrent(rooms, slot.RoomID)

	for k := range p.TimeGrid {
		ts := p.TimeGrid[k]
		d.times = append(d.times, &ts)
	}
	if ts, ok := slot.TimeSlot(); ok {
		d.times = append(d.times, &ts)
	}
	return d
}

func withCurrent(ids []string, current *string) []*string {
	out := make([]*string, 0, len(ids)+1)
	found := false
	for k := range ids {
		id := ids[k]
		if current != nil && *current == id {
			found = true
		}
		out = append(out, &id)
	}
	if current != nil && !found {
		id := *current
		out = append(out, &id)
	}
	return out
}

func pick[T any](rng *rand.Rand, items []*T) *T {
	if len(items) == 0 {
		return nil
	}
	return items[rng.Intn(len(items))]
}

type assignmentState map[int]Candidate

func snapshot(p *Problem, movable []int) assignmentState {
	out := make(assignmentState, len(movable))
	for _, i := range movable {
		out[i] = p.Current(i)
	}
	return out
}

func restore(p *Problem, state assignmentState) {
	for i, c := range state {
		p.Apply(i, c)
	}
}
