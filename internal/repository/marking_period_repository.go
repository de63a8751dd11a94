package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sis-rollover-api/internal/models"
)

// MarkingPeriodRepository reads the grading calendar. Copy-forward during
// rollover execution happens inside the rollover transaction, not here.
type MarkingPeriodRepository struct {
	db *sqlx.DB
}

// NewMarkingPeriodRepository constructs the repository.
func NewMarkingPeriodRepository(db *sqlx.DB) *MarkingPeriodRepository {
	return &MarkingPeriodRepository{db: db}
}

// CountByYear counts marking periods configured for the year.
func (r *MarkingPeriodRepository) CountByYear(ctx context.Context, schoolID, yearID string) (int, error) {
	const query = `SELECT COUNT(*) FROM marking_periods WHERE school_id = $1 AND academic_year_id = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, schoolID, yearID); err != nil {
		return 0, fmt.Errorf("count marking periods: %w", err)
	}
	return count, nil
}

// ListByYear returns the year's marking periods in calendar order.
func (r *MarkingPeriodRepository) ListByYear(ctx context.Context, schoolID, yearID string) ([]models.MarkingPeriod, error) {
	const query = `SELECT id, school_id, academic_year_id, name, type, sort_order, start_date, end_date
		FROM marking_periods WHERE school_id = $1 AND academic_year_id = $2 ORDER BY sort_order ASC`
	var periods []models.MarkingPeriod
	if err := r.db.SelectContext(ctx, &periods, query, schoolID, yearID); err != nil {
		return nil, fmt.Errorf("list marking periods: %w", err)
	}
	return periods, nil
}
