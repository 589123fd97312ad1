package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-scheduler-api/internal/models"
)

// SpecialConditionRepository reads ad-hoc scheduling conditions.
type SpecialConditionRepository struct {
	db *sqlx.DB
}

// NewSpecialConditionRepository constructs the repository.
func NewSpecialConditionRepository(db *sqlx.DB) *SpecialConditionRepository {
	return &SpecialConditionRepository{db: db}
}

// ListActive returns active conditions ordered by id.
func (r *SpecialConditionRepository) ListActive(ctx context.Context) ([]models.SpecialCondition, error) {
	const query = `SELECT id, name, condition_type, target_type, target_id, day_of_week, start_time, end_time, room_id, severity, penalty_weight, description, active, created_at, updated_at
FROM special_conditions WHERE active = TRUE ORDER BY id ASC`
	var conditions []models.SpecialCondition
	if err := r.db.SelectContext(ctx, &conditions, query); err != nil {
		return nil, fmt.Errorf("list special conditions: %w", err)
	}
	return conditions, nil
}
