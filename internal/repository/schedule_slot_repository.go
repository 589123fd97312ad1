package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-scheduler-api/internal/models"
)

const slotColumns = `id, schedule_id, course_id, teacher_id, room_id, day_of_week, start_time, end_time, period_number, student_ids, co_teacher_ids, is_pinned, pinned_by, pinned_at, has_conflict, conflict_reason, status, day_type, is_special_event, special_event_type, special_event_description, is_lunch_period, lunch_wave, notes, created_at, updated_at`

// ScheduleSlotRepository persists the slots owned by a schedule.
type ScheduleSlotRepository struct {
	db *sqlx.DB
}

// NewScheduleSlotRepository builds repository.
func NewScheduleSlotRepository(db *sqlx.DB) *ScheduleSlotRepository {
	return &ScheduleSlotRepository{db: db}
}

func (r *ScheduleSlotRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns the slots matching filter ordered by id.
func (r *ScheduleSlotRepository) List(ctx context.Context, filter models.ScheduleSlotFilter) ([]models.ScheduleSlot, error) {
	conditions := []string{"schedule_id = $1"}
	args := []interface{}{filter.ScheduleID}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf("room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}
	if filter.Day != "" {
		conditions = append(conditions, fmt.Sprintf("day_of_week = $%d", len(args)+1))
		args = append(args, filter.Day)
	}
	if filter.OnlyPinned {
		conditions = append(conditions, "is_pinned = TRUE")
	}
	if filter.Conflicted != nil {
		conditions = append(conditions, fmt.Sprintf("has_conflict = $%d", len(args)+1))
		args = append(args, *filter.Conflicted)
	}
	query := fmt.Sprintf("SELECT %s FROM schedule_slots WHERE %s ORDER BY id ASC", slotColumns, strings.Join(conditions, " AND "))
	var slots []models.ScheduleSlot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("list schedule slots: %w", err)
	}
	return slots, nil
}

// ListBySchedule returns every slot of a schedule ordered by id.
func (r *ScheduleSlotRepository) ListBySchedule(ctx context.Context, scheduleID string) ([]models.ScheduleSlot, error) {
	return r.List(ctx, models.ScheduleSlotFilter{ScheduleID: scheduleID})
}

// FindByID fetches one slot.
func (r *ScheduleSlotRepository) FindByID(ctx context.Context, id string) (*models.ScheduleSlot, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_slots WHERE id = $1", slotColumns)
	var slot models.ScheduleSlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// InsertBatch inserts new slots, assigning ids and timestamps where missing.
func (r *ScheduleSlotRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.ScheduleSlot) error {
	if len(slots) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `INSERT INTO schedule_slots (id, schedule_id, course_id, teacher_id, room_id, day_of_week, start_time, end_time, period_number, student_ids, co_teacher_ids, is_pinned, pinned_by, pinned_at, has_conflict, conflict_reason, status, day_type, is_special_event, special_event_type, special_event_description, is_lunch_period, lunch_wave, notes, created_at, updated_at)
VALUES (:id, :schedule_id, :course_id, :teacher_id, :room_id, :day_of_week, :start_time, :end_time, :period_number, :student_ids, :co_teacher_ids, :is_pinned, :pinned_by, :pinned_at, :has_conflict, :conflict_reason, :status, :day_type, :is_special_event, :special_event_type, :special_event_description, :is_lunch_period, :lunch_wave, :notes, :created_at, :updated_at)`

	for i := range slots {
		slot := &slots[i]
		if slot.ID == "" {
			slot.ID = uuid.NewString()
		}
		if slot.CreatedAt.IsZero() {
			slot.CreatedAt = now
		}
		slot.UpdatedAt = now
		if slot.StudentIDs == nil {
			slot.StudentIDs = []string{}
		}
		if slot.CoTeacherIDs == nil {
			slot.CoTeacherIDs = []string{}
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, slot); err != nil {
			return fmt.Errorf("insert schedule slot: %w", err)
		}
	}
	return nil
}

// Update writes every mutable slot field.
func (r *ScheduleSlotRepository) Update(ctx context.Context, exec sqlx.ExtContext, slot *models.ScheduleSlot) error {
	slot.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schedule_slots SET teacher_id = :teacher_id, room_id = :room_id, day_of_week = :day_of_week,
    start_time = :start_time, end_time = :end_time, period_number = :period_number, student_ids = :student_ids,
    co_teacher_ids = :co_teacher_ids, is_pinned = :is_pinned, pinned_by = :pinned_by, pinned_at = :pinned_at,
    has_conflict = :has_conflict, conflict_reason = :conflict_reason, status = :status, day_type = :day_type,
    notes = :notes, updated_at = :updated_at
WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, slot)
	if err != nil {
		return fmt.Errorf("update schedule slot: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateAssignments writes the solver-owned variables and conflict annotations of each slot.
func (r *ScheduleSlotRepository) UpdateAssignments(ctx context.Context, exec sqlx.ExtContext, slots []models.ScheduleSlot) error {
	target := r.exec(exec)
	now := time.Now().UTC()
	const query = `UPDATE schedule_slots SET teacher_id = :teacher_id, room_id = :room_id, day_of_week = :day_of_week,
    start_time = :start_time, end_time = :end_time, period_number = :period_number,
    has_conflict = :has_conflict, conflict_reason = :conflict_reason, updated_at = :updated_at
WHERE id = :id`
	for i := range slots {
		slots[i].UpdatedAt = now
		if _, err := sqlx.NamedExecContext(ctx, target, query, &slots[i]); err != nil {
			return fmt.Errorf("update slot assignment: %w", err)
		}
	}
	return nil
}

// UpdateConflicts writes only the conflict annotations of each slot.
func (r *ScheduleSlotRepository) UpdateConflicts(ctx context.Context, exec sqlx.ExtContext, slots []models.ScheduleSlot) error {
	target := r.exec(exec)
	const query = `UPDATE schedule_slots SET has_conflict = $2, conflict_reason = $3 WHERE id = $1`
	for _, slot := range slots {
		if _, err := target.ExecContext(ctx, query, slot.ID, slot.HasConflict, slot.ConflictReason); err != nil {
			return fmt.Errorf("update slot conflicts: %w", err)
		}
	}
	return nil
}
