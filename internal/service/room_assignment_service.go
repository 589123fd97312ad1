package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduler-api/internal/dto"
	"github.com/noah-isme/sma-scheduler-api/internal/models"
	"github.com/noah-isme/sma-scheduler-api/internal/scheduler"
	appErrors "github.com/noah-isme/sma-scheduler-api/pkg/errors"
)

type courseLookup interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type courseRoomAssignmentRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.CourseRoomAssignment, error)
	ReplaceForCourse(ctx context.Context, courseID string, rows []models.CourseRoomAssignment) error
}

type teacherPreferenceWriter interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	UpdateRoomPreferences(ctx context.Context, id string, prefs models.TeacherRoomPreferences) error
}

// RoomAssignmentService manages multi-room course assignments and teacher room preferences.
type RoomAssignmentService struct {
	courses     courseLookup
	rooms       roomLookup
	assignments courseRoomAssignmentRepository
	teachers    teacherPreferenceWriter
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewRoomAssignmentService builds the service.
func NewRoomAssignmentService(courses courseLookup, rooms roomLookup, assignments courseRoomAssignmentRepository, teachers teacherPreferenceWriter, validate *validator.Validate, logger *zap.Logger) *RoomAssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomAssignmentService{courses: courses, rooms: rooms, assignments: assignments, teachers: teachers, validator: validate, logger: logger}
}

// ListCourseRooms returns a course's room assignments.
func (s *RoomAssignmentService) ListCourseRooms(ctx context.Context, courseID string) ([]models.CourseRoomAssignment, error) {
	if _, err := s.course(ctx, courseID); err != nil {
		return nil, err
	}
	rows, err := s.assignments.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course rooms")
	}
	return rows, nil
}

// ReplaceCourseRooms validates and stores a course's full assignment set.
// A course that does not use multiple rooms has its assignments cleared instead.
func (s *RoomAssignmentService) ReplaceCourseRooms(ctx context.Context, courseID string, req dto.ReplaceRoomAssignmentsRequest) ([]models.CourseRoomAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room assignment payload")
	}
	course, err := s.course(ctx, courseID)
	if err != nil {
		return nil, err
	}

	rows := []models.CourseRoomAssignment{}
	if course.UsesMultipleRooms {
		for _, item := range req.Assignments {
			active := true
			if item.Active != nil {
				active = *item.Active
			}
			pattern := item.UsagePattern
			if pattern == "" {
				pattern = models.UsageAlways
			}
			rows = append(rows, models.CourseRoomAssignment{
				CourseID:     course.ID,
				RoomID:       item.RoomID,
				Type:         item.Type,
				UsagePattern: pattern,
				Priority:     item.Priority,
				Active:       active,
				Notes:        item.Notes,
			})
		}
		if err := scheduler.ValidateRoomAssignments(*course, rows); err != nil {
			return nil, err
		}
		if err := s.ensureRooms(ctx, rows); err != nil {
			return nil, err
		}
	} else if len(req.Assignments) > 0 {
		s.logger.Info("course does not use multiple rooms, clearing assignments", zap.String("course_id", course.ID))
	}

	if err := s.assignments.ReplaceForCourse(ctx, course.ID, rows); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store course rooms")
	}
	return rows, nil
}

// UpdateTeacherRoomPreferences replaces a teacher's room list and mode.
func (s *RoomAssignmentService) UpdateTeacherRoomPreferences(ctx context.Context, teacherID string, req dto.TeacherRoomPreferencesRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room preference payload")
	}
	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	prefs := models.TeacherRoomPreferences{Mode: req.Mode, RoomIDs: append([]string{}, req.RoomIDs...), Strength: req.Strength}
	if prefs.Mode == models.RoomModeNone {
		prefs = models.TeacherRoomPreferences{RoomIDs: []string{}}
	}
	if err := scheduler.ValidateTeacherRoomPreferences(prefs); err != nil {
		return nil, err
	}
	for _, id := range prefs.RoomIDs {
		if err := s.ensureRoom(ctx, id); err != nil {
			return nil, err
		}
	}
	if err := s.teachers.UpdateRoomPreferences(ctx, teacher.ID, prefs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store room preferences")
	}
	teacher.RoomPreferences = prefs
	return teacher, nil
}

func (s *RoomAssignmentService) course(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

func (s *RoomAssignmentService) ensureRooms(ctx context.Context, rows []models.CourseRoomAssignment) error {
	for _, row := range rows {
		if row.RoomID == nil || *row.RoomID == "" {
			continue
		}
		if err := s.ensureRoom(ctx, *row.RoomID); err != nil {
			return err
		}
	}
	return nil
}

func (s *RoomAssignmentService) ensureRoom(ctx context.Context, id string) error {
	if _, err := s.rooms.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("room %s does not exist", id))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	return nil
}
