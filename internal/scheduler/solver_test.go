package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-scheduler-api/internal/models"
)

func solverInput() Input {
	pinned := slotAt("s1", "c1", "t1", "r1", at(models.Monday, "09:00", "10:00"))
	pinned.Pin("admin", pinned.CreatedAt)
	cancelled := slotAt("s4", "c3", "", "", nil)
	cancelled.Status = models.SlotStatusCancelled

	in := baseInput(pinned, slotAt("s2", "c2", "", "", nil), slotAt("s3", "c3", "", "", nil), cancelled)
	in.Config.EarliestStartTime = models.MustClockTime("08:00")
	in.Config.LatestEndTime = models.MustClockTime("11:00")
	in.Config.MinPassingTimeMinutes = 10
	in.TimeGrid = BuildTimeGrid(in.Config, GridOptions{Days: []models.DayOfWeek{models.Monday}, PeriodMinutes: 50})
	return in
}

func findSlot(t *testing.T, slots []models.ScheduleSlot, id string) models.ScheduleSlot {
	t.Helper()
	for _, slot := range slots {
		if slot.ID == id {
			return slot
		}
	}
	t.Fatalf("slot %s not found", id)
	return models.ScheduleSlot{}
}

func TestSolverKeepsPinnedSlotAndReachesFeasibility(t *testing.T) {
	p := NewProblem(solverInput())
	solver := NewSolver(NewEngine(), SolverOptions{Seed: 7, MaxIterations: 500})

	var progress []int
	solution, err := solver.Solve(context.Background(), p, func(percent int, _ string) {
		progress = append(progress, percent)
	})
	require.NoError(t, err)

	pinned := findSlot(t, solution.Slots, "s1")
	require.NotNil(t, pinned.TeacherID)
	require.NotNil(t, pinned.RoomID)
	assert.Equal(t, "t1", *pinned.TeacherID)
	assert.Equal(t, "r1", *pinned.RoomID)
	ts, ok := pinned.TimeSlot()
	require.True(t, ok)
	assert.Equal(t, "MONDAY 09:00-10:00", ts.String())
	assert.True(t, pinned.Pinned)

	cancelled := findSlot(t, solution.Slots, "s4")
	assert.Nil(t, cancelled.TeacherID)
	assert.False(t, cancelled.HasTime())

	for _, id := range []string{"s2", "s3"} {
		slot := findSlot(t, solution.Slots, id)
		assert.True(t, slot.IsComplete(), id)
	}
	assert.True(t, solution.Score.Feasible(), solution.Score.String())
	assert.Equal(t, solution.Score, NewEngine().Score(p))

	require.NotEmpty(t, progress)
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1])
	}
}

func TestSolverIsDeterministicForSeed(t *testing.T) {
	run := func() Solution {
		solution, err := NewSolver(nil, SolverOptions{Seed: 42, MaxIterations: 300}).Solve(context.Background(), NewProblem(solverInput()), nil)
		require.NoError(t, err)
		return solution
	}
	first, second := run(), run()
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Slots, second.Slots)
}

func TestSolverStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	solution, err := NewSolver(nil, SolverOptions{Seed: 1}).Solve(ctx, NewProblem(solverInput()), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StopCancelled, solution.StopReason)

	pinned := findSlot(t, solution.Slots, "s1")
	assert.Equal(t, "t1", *pinned.TeacherID)
}

func TestSolverWithNothingToMove(t *testing.T) {
	pinned := slotAt("s1", "c1", "t1", "r1", at(models.Monday, "09:00", "10:00"))
	pinned.Pinned = true
	in := baseInput(pinned)

	var last int
	solution, err := NewSolver(nil, SolverOptions{}).Solve(context.Background(), NewProblem(in), func(percent int, _ string) { last = percent })
	require.NoError(t, err)
	assert.Equal(t, StopNothingToDo, solution.StopReason)
	assert.Equal(t, 100, last)
	assert.Equal(t, 0, solution.Iterations)
}

func TestProblemMovableSkipsPinnedSlots(t *testing.T) {
	in := solverInput()
	p := NewProblem(in)
	p.Apply(1, Candidate{TeacherID: sp("t2"), RoomID: sp("r2"), TimeSlot: at(models.Monday, "08:00", "08:50")})

	assert.Nil(t, in.Slots[1].TeacherID)
	assert.Equal(t, []int{1, 2}, p.Movable())
	assert.Equal(t, map[string]struct{}{"s1": {}}, p.PinnedIDs())
}
