package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sis-rollover-api/internal/models"
)

// GradeLevelRepository reads grade master data. Grade levels are owned by the
// configuration subsystem; this service only consumes them.
type GradeLevelRepository struct {
	db *sqlx.DB
}

// NewGradeLevelRepository constructs the repository.
func NewGradeLevelRepository(db *sqlx.DB) *GradeLevelRepository {
	return &GradeLevelRepository{db: db}
}

// ListActiveBySchool returns the school's active grade levels in progression order.
func (r *GradeLevelRepository) ListActiveBySchool(ctx context.Context, schoolID string) ([]models.GradeLevel, error) {
	const query = `SELECT id, school_id, name, order_index, next_grade_id, is_terminal, active
		FROM grade_levels WHERE school_id = $1 AND active = TRUE ORDER BY order_index ASC`
	var grades []models.GradeLevel
	if err := r.db.SelectContext(ctx, &grades, query, schoolID); err != nil {
		return nil, fmt.Errorf("list grade levels: %w", err)
	}
	return grades, nil
}
