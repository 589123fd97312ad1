package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-scheduler-api/internal/models"
)

// BlockDayRepository stores per-student odd/even course assignments.
type BlockDayRepository struct {
	db *sqlx.DB
}

// NewBlockDayRepository constructs the repository.
func NewBlockDayRepository(db *sqlx.DB) *BlockDayRepository {
	return &BlockDayRepository{db: db}
}

// ListByStudent returns the stored day-type mapping for one student.
func (r *BlockDayRepository) ListByStudent(ctx context.Context, studentID string) ([]models.StudentDayAssignment, error) {
	const query = `SELECT student_id, course_id, day_type, updated_at FROM student_day_assignments WHERE student_id = $1 ORDER BY course_id ASC`
	var rows []models.StudentDayAssignment
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list student day assignments: %w", err)
	}
	return rows, nil
}

// ReplaceForStudent swaps the student's entire mapping in one transaction.
func (r *BlockDayRepository) ReplaceForStudent(ctx context.Context, studentID string, rows []models.StudentDayAssignment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin block day tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM student_day_assignments WHERE student_id = $1", studentID); err != nil {
		return fmt.Errorf("clear student day assignments: %w", err)
	}
	const query = `INSERT INTO student_day_assignments (student_id, course_id, day_type, updated_at) VALUES ($1, $2, $3, $4)`
	for _, row := range rows {
		if _, err = tx.ExecContext(ctx, query, studentID, row.CourseID, row.DayType, row.UpdatedAt); err != nil {
			return fmt.Errorf("insert student day assignment: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit block day tx: %w", err)
	}
	return nil
}
