package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// TeacherAssignmentRepository reads teacher-section assignments for preview
// and for planning the optional copy-forward step.
type TeacherAssignmentRepository struct {
	db *sqlx.DB
}

// NewTeacherAssignmentRepository constructs the repository.
func NewTeacherAssignmentRepository(db *sqlx.DB) *TeacherAssignmentRepository {
	return &TeacherAssignmentRepository{db: db}
}

// CountActiveByYear counts active assignments for the school and year.
func (r *TeacherAssignmentRepository) CountActiveByYear(ctx context.Context, schoolID, yearID string) (int, error) {
	const query = `SELECT COUNT(*) FROM teacher_assignments WHERE school_id = $1 AND academic_year_id = $2 AND active = TRUE`
	var count int
	if err := r.db.GetContext(ctx, &count, query, schoolID, yearID); err != nil {
		return 0, fmt.Errorf("count teacher assignments: %w", err)
	}
	return count, nil
}
