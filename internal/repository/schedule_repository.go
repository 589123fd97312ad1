package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/sma-scheduler-api/internal/models"
)

const scheduleColumns = `id, name, start_date, end_date, status, meta, created_at, updated_at`

// ScheduleRepository provides persistence for schedules.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns schedules, newest first, optionally narrowed by status.
func (r *ScheduleRepository) List(ctx context.Context, status models.ScheduleStatus, page, size int) ([]models.Schedule, int, error) {
	base := "FROM schedules WHERE 1=1"
	var args []interface{}
	if status != "" {
		base += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, status)
	}
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", scheduleColumns, base, size, (page-1)*size)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}
	return schedules, total, nil
}

// FindByID retrieves a schedule by its identifier.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE id = $1", scheduleColumns)
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// Create inserts a new schedule shell.
func (r *ScheduleRepository) Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	if schedule.Status == "" {
		schedule.Status = models.ScheduleStatusDraft
	}
	if len(schedule.Meta) == 0 {
		schedule.Meta = types.JSONText("{}")
	}
	now := time.Now().UTC()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now

	const query = `INSERT INTO schedules (id, name, start_date, end_date, status, meta, created_at, updated_at)
VALUES (:id, :name, :start_date, :end_date, :status, :meta, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, schedule); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// UpdateStatus moves a schedule to a new status and optionally replaces its metadata.
func (r *ScheduleRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.ScheduleStatus, meta types.JSONText) error {
	sets := []string{"status = $2", "updated_at = $3"}
	args := []interface{}{id, status, time.Now().UTC()}
	if len(meta) > 0 {
		sets = append(sets, "meta = $4")
		args = append(args, meta)
	}
	query := fmt.Sprintf("UPDATE schedules SET %s WHERE id = $1", strings.Join(sets, ", "))
	res, err := r.exec(exec).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update schedule status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a schedule; its slots cascade.
func (r *ScheduleRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if _, err := r.exec(exec).ExecContext(ctx, "DELETE FROM schedules WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return nil
}
