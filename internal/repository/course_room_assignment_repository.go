package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-scheduler-api/internal/models"
)

const roomAssignmentColumns = `id, course_id, room_id, assignment_type, usage_pattern, priority, active, notes, created_at, updated_at`

// CourseRoomAssignmentRepository persists the rooms a multi-room course uses.
type CourseRoomAssignmentRepository struct {
	db *sqlx.DB
}

// NewCourseRoomAssignmentRepository constructs the repository.
func NewCourseRoomAssignmentRepository(db *sqlx.DB) *CourseRoomAssignmentRepository {
	return &CourseRoomAssignmentRepository{db: db}
}

// ListByCourse returns a course's assignments by priority.
func (r *CourseRoomAssignmentRepository) ListByCourse(ctx context.Context, courseID string) ([]models.CourseRoomAssignment, error) {
	query := fmt.Sprintf("SELECT %s FROM course_room_assignments WHERE course_id = $1 ORDER BY priority ASC, id ASC", roomAssignmentColumns)
	var rows []models.CourseRoomAssignment
	if err := r.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, fmt.Errorf("list course room assignments: %w", err)
	}
	return rows, nil
}

// ListActive returns every active assignment across courses.
func (r *CourseRoomAssignmentRepository) ListActive(ctx context.Context) ([]models.CourseRoomAssignment, error) {
	query := fmt.Sprintf("SELECT %s FROM course_room_assignments WHERE active = TRUE ORDER BY course_id ASC, priority ASC, id ASC", roomAssignmentColumns)
	var rows []models.CourseRoomAssignment
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list active room assignments: %w", err)
	}
	return rows, nil
}

// ReplaceForCourse deletes a course's assignments and inserts rows in their place.
// An empty rows slice clears the course.
func (r *CourseRoomAssignmentRepository) ReplaceForCourse(ctx context.Context, courseID string, rows []models.CourseRoomAssignment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin room assignment tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM course_room_assignments WHERE course_id = $1", courseID); err != nil {
		return fmt.Errorf("clear course room assignments: %w", err)
	}

	const query = `INSERT INTO course_room_assignments (id, course_id, room_id, assignment_type, usage_pattern, priority, active, notes, created_at, updated_at)
VALUES (:id, :course_id, :room_id, :assignment_type, :usage_pattern, :priority, :active, :notes, :created_at, :updated_at)`
	now := time.Now().UTC()
	for i := range rows {
		row := &rows[i]
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		row.CourseID = courseID
		if row.UsagePattern == "" {
			row.UsagePattern = models.UsageAlways
		}
		row.CreatedAt, row.UpdatedAt = now, now
		if _, err = tx.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("insert course room assignment: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit room assignment tx: %w", err)
	}
	return nil
}
