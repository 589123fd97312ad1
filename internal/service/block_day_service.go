package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduler-api/internal/dto"
	"github.com/noah-isme/sma-scheduler-api/internal/models"
	"github.com/noah-isme/sma-scheduler-api/internal/scheduler"
	appErrors "github.com/noah-isme/sma-scheduler-api/pkg/errors"
)

const (
	blockDayMoveToOdd      = "MOVE_TO_ODD"
	blockDayMoveToEven     = "MOVE_TO_EVEN"
	blockDayRemoveFromOdd  = "REMOVE_FROM_ODD"
	blockDayRemoveFromEven = "REMOVE_FROM_EVEN"
)

type studentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type courseBatchReader interface {
	ListByIDs(ctx context.Context, ids []string) ([]models.Course, error)
}

type blockDayRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.StudentDayAssignment, error)
	ReplaceForStudent(ctx context.Context, studentID string, rows []models.StudentDayAssignment) error
}

// BlockDayService splits a student's alternating-day courses across odd and even days.
type BlockDayService struct {
	students  studentLookup
	courses   courseBatchReader
	repo      blockDayRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewBlockDayService builds the service.
func NewBlockDayService(students studentLookup, courses courseBatchReader, repo blockDayRepository, validate *validator.Validate, logger *zap.Logger) *BlockDayService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlockDayService{
		students:  students,
		courses:   courses,
		repo:      repo,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// GetPlan returns the student's stored plan.
func (s *BlockDayService) GetPlan(ctx context.Context, studentID string) (*dto.BlockDayPlanResponse, error) {
	plan, err := s.load(ctx, studentID)
	if err != nil {
		return nil, err
	}
	resp := dto.NewBlockDayPlanResponse(plan)
	return &resp, nil
}

// ApplyMove moves courses between buckets and stores the result.
func (s *BlockDayService) ApplyMove(ctx context.Context, studentID string, req dto.BlockDayMoveRequest) (*dto.BlockDayPlanResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid block day move")
	}
	plan, err := s.load(ctx, studentID)
	if err != nil {
		return nil, err
	}
	switch req.Action {
	case blockDayMoveToOdd:
		err = plan.MoveToOdd(req.CourseIDs...)
	case blockDayMoveToEven:
		err = plan.MoveToEven(req.CourseIDs...)
	case blockDayRemoveFromOdd:
		err = plan.RemoveFromOdd(req.CourseIDs...)
	case blockDayRemoveFromEven:
		err = plan.RemoveFromEven(req.CourseIDs...)
	default:
		err = appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown block day action %q", req.Action))
	}
	if err != nil {
		return nil, err
	}
	return s.save(ctx, plan)
}

// SavePlan replaces the student's plan. Courses in neither list return to the available pool.
func (s *BlockDayService) SavePlan(ctx context.Context, studentID string, req dto.BlockDayPlanRequest) (*dto.BlockDayPlanResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid block day plan")
	}
	odd := make(map[string]bool, len(req.Odd))
	for _, id := range req.Odd {
		odd[id] = true
	}
	for _, id := range req.Even {
		if odd[id] {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("course %s cannot meet on both ODD and EVEN days", id))
		}
	}

	courseIDs, err := s.alternatingCourses(ctx, studentID)
	if err != nil {
		return nil, err
	}
	plan := scheduler.NewBlockDayPlan(studentID, courseIDs, nil)
	if err := plan.MoveToOdd(req.Odd...); err != nil {
		return nil, err
	}
	if err := plan.MoveToEven(req.Even...); err != nil {
		return nil, err
	}
	return s.save(ctx, plan)
}

func (s *BlockDayService) load(ctx context.Context, studentID string) (*scheduler.BlockDayPlan, error) {
	courseIDs, err := s.alternatingCourses(ctx, studentID)
	if err != nil {
		return nil, err
	}
	stored, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load block day plan")
	}
	return scheduler.NewBlockDayPlan(studentID, courseIDs, stored), nil
}

func (s *BlockDayService) save(ctx context.Context, plan *scheduler.BlockDayPlan) (*dto.BlockDayPlanResponse, error) {
	if err := s.repo.ReplaceForStudent(ctx, plan.StudentID, plan.Assignments(s.now())); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store block day plan")
	}
	resp := dto.NewBlockDayPlanResponse(plan)
	if len(resp.Warnings) > 0 {
		s.logger.Info("block day plan saved with warnings", zap.String("student_id", plan.StudentID), zap.Strings("warnings", resp.Warnings))
	}
	return &resp, nil
}

// alternatingCourses lists the student's requested courses that meet on alternating days.
func (s *BlockDayService) alternatingCourses(ctx context.Context, studentID string) ([]string, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	requested := make([]string, 0, len(student.CourseRequests))
	seen := make(map[string]bool, len(student.CourseRequests))
	for _, r := range student.CourseRequests {
		if seen[r.CourseID] {
			continue
		}
		seen[r.CourseID] = true
		requested = append(requested, r.CourseID)
	}
	if len(requested) == 0 {
		return nil, nil
	}
	courses, err := s.courses.ListByIDs(ctx, requested)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load requested courses")
	}
	var out []string
	for _, c := range courses {
		if c.MeetingPattern == models.MeetingAlternating {
			out = append(out, c.ID)
		}
	}
	return out, nil
}
