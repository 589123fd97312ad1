package scheduler

import (
	"github.com/noah-isme/sma-scheduler-api/internal/models"
)

// DefaultPeriodMinutes is used when a grid is built without an explicit period length.
const DefaultPeriodMinutes = 50

// GridOptions shapes the candidate time grid.
type GridOptions struct {
	Days          []models.DayOfWeek
	PeriodMinutes int
	LunchStart    *models.ClockTime
	LunchMinutes  int
}

// BuildTimeGrid lays out numbered periods between the configured earliest start and latest end.
// Periods are separated by the minimum passing time; a lunch window, when given, is skipped.
func BuildTimeGrid(cfg models.SchedulerConfiguration, opts GridOptions) []models.TimeSlot {
	days := opts.Days
	if len(days) == 0 {
		days = models.SchoolDays
	}
	length := opts.PeriodMinutes
	if length <= 0 {
		length = DefaultPeriodMinutes
	}
	passing := cfg.MinPassingTimeMinutes
	if passing < 0 {
		passing = 0
	}
	start, end := cfg.EarliestStartTime, cfg.LatestEndTime
	if end <= start {
		return nil
	}

	var lunch *models.TimeSlot
	if opts.LunchStart != nil && opts.LunchMinutes > 0 {
		lunch = &models.TimeSlot{Start: *opts.LunchStart, End: *opts.LunchStart + models.ClockTime(opts.LunchMinutes)}
	}

	var grid []models.TimeSlot
	for _, day := range days {
		period := 1
		cursor := start
		for cursor+models.ClockTime(length) <= end {
			slotEnd := cursor + models.ClockTime(length)
			if lunch != nil && cursor < lunch.End && lunch.Start < slotEnd {
				cursor = lunch.End + models.ClockTime(passing)
				continue
			}
			p := period
			grid = append(grid, models.TimeSlot{Day: day, Start: cursor, End: slotEnd, Period: &p})
			period++
			cursor = slotEnd + models.ClockTime(passing)
		}
	}
	return grid
}
