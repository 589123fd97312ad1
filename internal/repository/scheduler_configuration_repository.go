package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-scheduler-api/internal/models"
)

const schedulerConfigurationColumns = `id, name, description, version, active, max_solver_minutes, unimproved_seconds_termination, min_periods_per_teacher, max_periods_per_teacher, max_consecutive_periods, min_planning_periods, max_preps_per_teacher, allow_back_to_back_classes, minimize_teacher_moves, respect_teacher_availability, respect_teacher_preferences, max_students_per_class, min_students_per_class, max_building_transitions, balance_class_sizes, honor_student_requests, enforce_prerequisite_order, minimize_student_moves, honor_iep_accommodations, honor_504_accommodations, small_class_for_special_needs, resource_room_proximity, prefer_morning_core_subjects, prefer_afternoon_electives, earliest_start_time, latest_end_time, min_passing_time_minutes, weight_teacher_conflict, weight_room_conflict, weight_capacity, weight_workload_balance, weight_teacher_qualification, weight_student_preference, created_at, updated_at`

// SchedulerConfigurationRepository persists solver parameter sets.
type SchedulerConfigurationRepository struct {
	db *sqlx.DB
}

// NewSchedulerConfigurationRepository constructs the repository.
func NewSchedulerConfigurationRepository(db *sqlx.DB) *SchedulerConfigurationRepository {
	return &SchedulerConfigurationRepository{db: db}
}

// List returns every configuration, active first then newest.
func (r *SchedulerConfigurationRepository) List(ctx context.Context) ([]models.SchedulerConfiguration, error) {
	query := fmt.Sprintf("SELECT %s FROM scheduler_configurations ORDER BY active DESC, updated_at DESC", schedulerConfigurationColumns)
	var configs []models.SchedulerConfiguration
	if err := r.db.SelectContext(ctx, &configs, query); err != nil {
		return nil, fmt.Errorf("list scheduler configurations: %w", err)
	}
	return configs, nil
}

// FindByID fetches one configuration.
func (r *SchedulerConfigurationRepository) FindByID(ctx context.Context, id string) (*models.SchedulerConfiguration, error) {
	query := fmt.Sprintf("SELECT %s FROM scheduler_configurations WHERE id = $1", schedulerConfigurationColumns)
	var cfg models.SchedulerConfiguration
	if err := r.db.GetContext(ctx, &cfg, query, id); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FindActive returns the single active configuration or sql.ErrNoRows.
func (r *SchedulerConfigurationRepository) FindActive(ctx context.Context) (*models.SchedulerConfiguration, error) {
	query := fmt.Sprintf("SELECT %s FROM scheduler_configurations WHERE active = TRUE LIMIT 1", schedulerConfigurationColumns)
	var cfg models.SchedulerConfiguration
	if err := r.db.GetContext(ctx, &cfg, query); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Create inserts an inactive configuration whose version follows the latest one sharing its name.
func (r *SchedulerConfigurationRepository) Create(ctx context.Context, cfg *models.SchedulerConfiguration) error {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	var latest int
	if err := r.db.GetContext(ctx, &latest, "SELECT COALESCE(MAX(version), 0) FROM scheduler_configurations WHERE name = $1", cfg.Name); err != nil {
		return fmt.Errorf("next configuration version: %w", err)
	}
	cfg.Version = latest + 1
	cfg.Active = false
	now := time.Now().UTC()
	cfg.CreatedAt, cfg.UpdatedAt = now, now

	const query = `INSERT INTO scheduler_configurations (id, name, description, version, active, max_solver_minutes, unimproved_seconds_termination, min_periods_per_teacher, max_periods_per_teacher, max_consecutive_periods, min_planning_periods, max_preps_per_teacher, allow_back_to_back_classes, minimize_teacher_moves, respect_teacher_availability, respect_teacher_preferences, max_students_per_class, min_students_per_class, max_building_transitions, balance_class_sizes, honor_student_requests, enforce_prerequisite_order, minimize_student_moves, honor_iep_accommodations, honor_504_accommodations, small_class_for_special_needs, resource_room_proximity, prefer_morning_core_subjects, prefer_afternoon_electives, earliest_start_time, latest_end_time, min_passing_time_minutes, weight_teacher_conflict, weight_room_conflict, weight_capacity, weight_workload_balance, weight_teacher_qualification, weight_student_preference, created_at, updated_at)
VALUES (:id, :name, :description, :version, :active, :max_solver_minutes, :unimproved_seconds_termination, :min_periods_per_teacher, :max_periods_per_teacher, :max_consecutive_periods, :min_planning_periods, :max_preps_per_teacher, :allow_back_to_back_classes, :minimize_teacher_moves, :respect_teacher_availability, :respect_teacher_preferences, :max_students_per_class, :min_students_per_class, :max_building_transitions, :balance_class_sizes, :honor_student_requests, :enforce_prerequisite_order, :minimize_student_moves, :honor_iep_accommodations, :honor_504_accommodations, :small_class_for_special_needs, :resource_room_proximity, :prefer_morning_core_subjects, :prefer_afternoon_electives, :earliest_start_time, :latest_end_time, :min_passing_time_minutes, :weight_teacher_conflict, :weight_room_conflict, :weight_capacity, :weight_workload_balance, :weight_teacher_qualification, :weight_student_preference, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cfg); err != nil {
		return fmt.Errorf("create scheduler configuration: %w", err)
	}
	return nil
}

// Update overwrites a configuration's parameters. Version and active flag are left alone.
func (r *SchedulerConfigurationRepository) Update(ctx context.Context, cfg *models.SchedulerConfiguration) error {
	cfg.UpdatedAt = time.Now().UTC()
	const query = `UPDATE scheduler_configurations SET
    name = :name,
    description = :description,
    max_solver_minutes = :max_solver_minutes,
    unimproved_seconds_termination = :unimproved_seconds_termination,
    min_periods_per_teacher = :min_periods_per_teacher,
    max_periods_per_teacher = :max_periods_per_teacher,
    max_consecutive_periods = :max_consecutive_periods,
    min_planning_periods = :min_planning_periods,
    max_preps_per_teacher = :max_preps_per_teacher,
    allow_back_to_back_classes = :allow_back_to_back_classes,
    minimize_teacher_moves = :minimize_teacher_moves,
    respect_teacher_availability = :respect_teacher_availability,
    respect_teacher_preferences = :respect_teacher_preferences,
    max_students_per_class = :max_students_per_class,
    min_students_per_class = :min_students_per_class,
    max_building_transitions = :max_building_transitions,
    balance_class_sizes = :balance_class_sizes,
    honor_student_requests = :honor_student_requests,
    enforce_prerequisite_order = :enforce_prerequisite_order,
    minimize_student_moves = :minimize_student_moves,
    honor_iep_accommodations = :honor_iep_accommodations,
    honor_504_accommodations = :honor_504_accommodations,
    small_class_for_special_needs = :small_class_for_special_needs,
    resource_room_proximity = :resource_room_proximity,
    prefer_morning_core_subjects = :prefer_morning_core_subjects,
    prefer_afternoon_electives = :prefer_afternoon_electives,
    earliest_start_time = :earliest_start_time,
    latest_end_time = :latest_end_time,
    min_passing_time_minutes = :min_passing_time_minutes,
    weight_teacher_conflict = :weight_teacher_conflict,
    weight_room_conflict = :weight_room_conflict,
    weight_capacity = :weight_capacity,
    weight_workload_balance = :weight_workload_balance,
    weight_teacher_qualification = :weight_teacher_qualification,
    weight_student_preference = :weight_student_preference,
    updated_at = :updated_at
WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, cfg)
	if err != nil {
		return fmt.Errorf("update scheduler configuration: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Activate makes id the only active configuration.
func (r *SchedulerConfigurationRepository) Activate(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin activate configuration tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists int
	if err = tx.GetContext(ctx, &exists, "SELECT 1 FROM scheduler_configurations WHERE id = $1 FOR UPDATE", id); err != nil {
		return err
	}
	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, "UPDATE scheduler_configurations SET active = FALSE, updated_at = $2 WHERE active = TRUE AND id <> $1", id, now); err != nil {
		return fmt.Errorf("deactivate configurations: %w", err)
	}
	if _, err = tx.ExecContext(ctx, "UPDATE scheduler_configurations SET active = TRUE, updated_at = $2 WHERE id = $1", id, now); err != nil {
		return fmt.Errorf("activate configuration: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit activate configuration tx: %w", err)
	}
	return nil
}
