package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-scheduler-api/internal/models"
)

func TestBuildTimeGrid(t *testing.T) {
	cfg := models.SchedulerConfiguration{
		EarliestStartTime:     models.MustClockTime("08:00"),
		LatestEndTime:         models.MustClockTime("11:00"),
		MinPassingTimeMinutes: 10,
	}

	grid := BuildTimeGrid(cfg, GridOptions{Days: []models.DayOfWeek{models.Monday}, PeriodMinutes: 50})
	require.Len(t, grid, 3)
	assert.Equal(t, "MONDAY 08:00-08:50", grid[0].String())
	assert.Equal(t, "MONDAY 09:00-09:50", grid[1].String())
	assert.Equal(t, "MONDAY 10:00-10:50", grid[2].String())
	assert.Equal(t, 3, *grid[2].Period)
}

func TestBuildTimeGridSkipsLunch(t *testing.T) {
	cfg := models.SchedulerConfiguration{
		EarliestStartTime: models.MustClockTime("11:00"),
		LatestEndTime:     models.MustClockTime("14:00"),
	}
	lunch := models.MustClockTime("12:00")

	grid := BuildTimeGrid(cfg, GridOptions{Days: []models.DayOfWeek{models.Friday}, PeriodMinutes: 60, LunchStart: &lunch, LunchMinutes: 60})
	require.Len(t, grid, 2)
	assert.Equal(t, "FRIDAY 11:00-12:00", grid[0].String())
	assert.Equal(t, "FRIDAY 13:00-14:00", grid[1].String())
	assert.Equal(t, 2, *grid[1].Period)
}

func TestBuildTimeGridDefaultsToSchoolWeek(t *testing.T) {
	grid := BuildTimeGrid(models.DefaultSchedulerConfiguration(), GridOptions{})
	assert.NotEmpty(t, grid)
	days := map[models.DayOfWeek]bool{}
	for _, ts := range grid {
		days[ts.Day] = true
		assert.True(t, ts.Valid())
	}
	assert.Len(t, days, 5)
	assert.Empty(t, BuildTimeGrid(models.SchedulerConfiguration{}, GridOptions{}))
}
