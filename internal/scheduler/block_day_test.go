package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-scheduler-api/internal/models"
)

func assertSingleBucket(t *testing.T, plan *BlockDayPlan, courses ...string) {
	t.Helper()
	for _, id := range courses {
		count := 0
		for _, bucket := range [][]string{plan.Odd(), plan.Even(), plan.Available()} {
			for _, member := range bucket {
				if member == id {
					count++
				}
			}
		}
		assert.Equal(t, 1, count, "course %s must be in exactly one bucket", id)
	}
}

func TestBlockDayMovesNeverDuplicate(t *testing.T) {
	plan := NewBlockDayPlan("stu-1", []string{"band", "chem", "art"}, []models.StudentDayAssignment{
		{StudentID: "stu-1", CourseID: "chem", DayType: models.DayTypeEven},
		{StudentID: "stu-1", CourseID: "gone", DayType: models.DayTypeOdd},
	})
	assert.Equal(t, []string{"chem"}, plan.Even())
	assert.Equal(t, []string{"art", "band"}, plan.Available())

	require.NoError(t, plan.MoveToOdd("chem", "band"))
	assert.Equal(t, []string{"band", "chem"}, plan.Odd())
	assert.Empty(t, plan.Even())
	assert.Equal(t, []string{"art"}, plan.Available())
	assertSingleBucket(t, plan, "band", "chem", "art")

	require.NoError(t, plan.MoveToEven("band"))
	assert.Equal(t, []string{"chem"}, plan.Odd())
	assert.Equal(t, []string{"band"}, plan.Even())
	assertSingleBucket(t, plan, "band", "chem", "art")
}

func TestBlockDayRemoveOnlyAffectsSourceBucket(t *testing.T) {
	plan := NewBlockDayPlan("stu-1", []string{"band", "chem"}, nil)
	require.NoError(t, plan.MoveToOdd("band"))
	require.NoError(t, plan.MoveToEven("chem"))

	require.NoError(t, plan.RemoveFromOdd("chem"))
	assert.Equal(t, []string{"chem"}, plan.Even(), "chem is not in ODD so it stays put")

	require.NoError(t, plan.RemoveFromOdd("band"))
	require.NoError(t, plan.RemoveFromEven("chem"))
	assert.Equal(t, []string{"band", "chem"}, plan.Available())
	assertSingleBucket(t, plan, "band", "chem")
}

func TestBlockDayUnknownCourseIsRejectedAtomically(t *testing.T) {
	plan := NewBlockDayPlan("stu-1", []string{"band"}, nil)
	assert.Error(t, plan.MoveToOdd("band", "nope"))
	bucket, ok := plan.Bucket("band")
	require.True(t, ok)
	assert.Equal(t, BucketAvailable, bucket)
}

func TestBlockDayWarningsAndAssignments(t *testing.T) {
	plan := NewBlockDayPlan("stu-1", []string{"band", "chem", "art"}, nil)
	assert.Len(t, plan.Warnings(), 2)

	require.NoError(t, plan.MoveToOdd("band"))
	assert.Equal(t, []string{"no courses assigned to EVEN days"}, plan.Warnings())

	require.NoError(t, plan.MoveToEven("chem"))
	assert.Empty(t, plan.Warnings())

	now := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	rows := plan.Assignments(now)
	assert.Equal(t, []models.StudentDayAssignment{
		{StudentID: "stu-1", CourseID: "band", DayType: models.DayTypeOdd, UpdatedAt: now},
		{StudentID: "stu-1", CourseID: "chem", DayType: models.DayTypeEven, UpdatedAt: now},
	}, rows)
}
