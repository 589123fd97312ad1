package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-scheduler-api/internal/models"
	"github.com/noah-isme/sma-scheduler-api/internal/scheduler"
)

type teacherSource interface {
	ListActive(ctx context.Context) ([]models.Teacher, error)
}

type roomSource interface {
	ListActive(ctx context.Context) ([]models.Room, error)
}

type courseSource interface {
	ListActive(ctx context.Context) ([]models.Course, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Course, error)
}

type studentSource interface {
	ListActive(ctx context.Context) ([]models.Student, error)
}

type specialConditionSource interface {
	ListActive(ctx context.Context) ([]models.SpecialCondition, error)
}

type roomAssignmentSource interface {
	ListActive(ctx context.Context) ([]models.CourseRoomAssignment, error)
}

type configurationResolver interface {
	Resolve(ctx context.Context, id *string) (models.SchedulerConfiguration, error)
}

// SchedulingSources groups the entity readers a scheduling pass needs.
type SchedulingSources struct {
	Teachers        teacherSource
	Rooms           roomSource
	Courses         courseSource
	Students        studentSource
	Conditions      specialConditionSource
	RoomAssignments roomAssignmentSource
	Configurations  configurationResolver
}

// loadSchedulingInput reads every entity set in parallel. Each goroutine owns one field of the result.
// A nil configurationID selects the active configuration; empty courseIDs selects every active course.
func loadSchedulingInput(ctx context.Context, src SchedulingSources, configurationID *string, courseIDs []string) (scheduler.Input, error) {
	var in scheduler.Input
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cfg, err := src.Configurations.Resolve(gctx, configurationID)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		in.Config = cfg
		return nil
	})
	g.Go(func() error {
		rows, err := src.Teachers.ListActive(gctx)
		if err != nil {
			return fmt.Errorf("load teachers: %w", err)
		}
		in.Teachers = rows
		return nil
	})
	g.Go(func() error {
		rows, err := src.Rooms.ListActive(gctx)
		if err != nil {
			return fmt.Errorf("load rooms: %w", err)
		}
		in.Rooms = rows
		return nil
	})
	g.Go(func() error {
		var (
			rows []models.Course
			err  error
		)
		if len(courseIDs) > 0 {
			rows, err = src.Courses.ListByIDs(gctx, courseIDs)
		} else {
			rows, err = src.Courses.ListActive(gctx)
		}
		if err != nil {
			return fmt.Errorf("load courses: %w", err)
		}
		in.Courses = rows
		return nil
	})
	g.Go(func() error {
		rows, err := src.Students.ListActive(gctx)
		if err != nil {
			return fmt.Errorf("load students: %w", err)
		}
		in.Students = rows
		return nil
	})
	g.Go(func() error {
		rows, err := src.Conditions.ListActive(gctx)
		if err != nil {
			return fmt.Errorf("load special conditions: %w", err)
		}
		in.Conditions = rows
		return nil
	})
	g.Go(func() error {
		rows, err := src.RoomAssignments.ListActive(gctx)
		if err != nil {
			return fmt.Errorf("load room assignments: %w", err)
		}
		in.RoomAssignments = rows
		return nil
	})

	if err := g.Wait(); err != nil {
		return scheduler.Input{}, err
	}
	return in, nil
}
