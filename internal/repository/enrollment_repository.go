package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sis-rollover-api/internal/models"
)

// EnrollmentRepository handles persistence of student enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = `e.id, e.student_id, e.academic_year_id, e.school_id, e.grade_level_id, e.section_id,
       e.enrollment_code, e.start_date, e.end_date, e.next_grade_id, e.rollover_status, e.rollover_notes,
       e.created_at, e.updated_at`

const enrollmentDetailColumns = enrollmentColumns + `,
       COALESCE(s.student_number, '') AS student_number, COALESCE(s.full_name, '') AS student_name,
       COALESCE(g.name, '') AS grade_name, COALESCE(sec.name, '') AS section_name, COALESCE(y.name, '') AS year_name`

const enrollmentDetailJoins = `
FROM student_enrollments e
LEFT JOIN students s ON s.id = e.student_id
LEFT JOIN grade_levels g ON g.id = e.grade_level_id
LEFT JOIN sections sec ON sec.id = e.section_id
LEFT JOIN academic_years y ON y.id = e.academic_year_id`

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.StudentEnrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_enrollments e WHERE e.id = $1`, enrollmentColumns)
	var enrollment models.StudentEnrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with roster context.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE e.id = $1`, enrollmentDetailColumns, enrollmentDetailJoins)
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindOpenByStudent returns the student's currently open enrollment.
func (r *EnrollmentRepository) FindOpenByStudent(ctx context.Context, studentID string) (*models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE e.student_id = $1 AND e.end_date IS NULL`, enrollmentDetailColumns, enrollmentDetailJoins)
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, studentID); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListHistoryByStudent returns the student's enrollment history, most recent
// first. The open row is included only when includeCurrent is set.
func (r *EnrollmentRepository) ListHistoryByStudent(ctx context.Context, studentID string, includeCurrent bool) ([]models.EnrollmentDetail, error) {
	clause := ""
	if !includeCurrent {
		clause = " AND e.end_date IS NOT NULL"
	}
	query := fmt.Sprintf(`SELECT %s %s WHERE e.student_id = $1%s ORDER BY e.start_date DESC`, enrollmentDetailColumns, enrollmentDetailJoins, clause)
	var history []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &history, query, studentID); err != nil {
		return nil, fmt.Errorf("list enrollment history: %w", err)
	}
	return history, nil
}

// ListActiveByYear returns every open enrollment for the school and year.
func (r *EnrollmentRepository) ListActiveByYear(ctx context.Context, schoolID, yearID string) ([]models.StudentEnrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_enrollments e
		WHERE e.school_id = $1 AND e.academic_year_id = $2 AND e.end_date IS NULL`, enrollmentColumns)
	var enrollments []models.StudentEnrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, schoolID, yearID); err != nil {
		return nil, fmt.Errorf("list active enrollments: %w", err)
	}
	return enrollments, nil
}

// CountAlreadyRolled counts students active in the current year that already
// hold a row in the next year. Used by the double-execution guard.
func (r *EnrollmentRepository) CountAlreadyRolled(ctx context.Context, schoolID, currentYearID, nextYearID string) (int, error) {
	const query = `SELECT COUNT(*) FROM student_enrollments cur
		WHERE cur.school_id = $1 AND cur.academic_year_id = $2 AND cur.end_date IS NULL
		AND EXISTS (SELECT 1 FROM student_enrollments nxt WHERE nxt.student_id = cur.student_id AND nxt.academic_year_id = $3)`
	var count int
	if err := r.db.GetContext(ctx, &count, query, schoolID, currentYearID, nextYearID); err != nil {
		return 0, fmt.Errorf("count rolled enrollments: %w", err)
	}
	return count, nil
}

// StatusBreakdown groups open enrollments by rollover status.
func (r *EnrollmentRepository) StatusBreakdown(ctx context.Context, schoolID, yearID string) (map[models.RolloverStatus]int, error) {
	const query = `SELECT rollover_status, COUNT(*) AS count FROM student_enrollments
		WHERE school_id = $1 AND academic_year_id = $2 AND end_date IS NULL GROUP BY rollover_status`
	rows, err := r.db.QueryxContext(ctx, query, schoolID, yearID)
	if err != nil {
		return nil, fmt.Errorf("status breakdown: %w", err)
	}
	defer rows.Close()

	breakdown := make(map[models.RolloverStatus]int, len(models.AllRolloverStatuses))
	for _, status := range models.AllRolloverStatuses {
		breakdown[status] = 0
	}
	for rows.Next() {
		var status models.RolloverStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status breakdown: %w", err)
		}
		breakdown[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status breakdown: %w", err)
	}
	return breakdown, nil
}

// HasRowForYear checks the one-row-per-(student, year) invariant.
func (r *EnrollmentRepository) HasRowForYear(ctx context.Context, studentID, yearID string) (bool, error) {
	const query = `SELECT 1 FROM student_enrollments WHERE student_id = $1 AND academic_year_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, yearID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check year enrollment: %w", err)
	}
	return true, nil
}

// HasOpenEnrollment checks whether the student already has an open row.
func (r *EnrollmentRepository) HasOpenEnrollment(ctx context.Context, studentID string) (bool, error) {
	const query = `SELECT 1 FROM student_enrollments WHERE student_id = $1 AND end_date IS NULL LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check open enrollment: %w", err)
	}
	return true, nil
}

// Create persists a new enrollment row.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.StudentEnrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now
	if enrollment.RolloverStatus == "" {
		enrollment.RolloverStatus = models.RolloverPending
	}
	if enrollment.StartDate.IsZero() {
		enrollment.StartDate = now
	}
	const query = `INSERT INTO student_enrollments
		(id, student_id, academic_year_id, school_id, grade_level_id, section_id, enrollment_code,
		 start_date, end_date, next_grade_id, rollover_status, rollover_notes, created_at, updated_at)
		VALUES (:id, :student_id, :academic_year_id, :school_id, :grade_level_id, :section_id, :enrollment_code,
		 :start_date, :end_date, :next_grade_id, :rollover_status, :rollover_notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateOpenRow patches mutable fields on an open enrollment. Closed rows are
// immutable; attempting to patch one yields sql.ErrNoRows.
func (r *EnrollmentRepository) UpdateOpenRow(ctx context.Context, id string, gradeLevelID, sectionID, notes *string) error {
	setParts := []string{"updated_at = :updated_at"}
	params := map[string]interface{}{
		"id":         id,
		"updated_at": time.Now().UTC(),
	}
	if gradeLevelID != nil {
		setParts = append(setParts, "grade_level_id = :grade_level_id")
		params["grade_level_id"] = *gradeLevelID
	}
	if sectionID != nil {
		setParts = append(setParts, "section_id = :section_id")
		params["section_id"] = *sectionID
	}
	if notes != nil {
		setParts = append(setParts, "rollover_notes = :rollover_notes")
		params["rollover_notes"] = *notes
	}
	query := fmt.Sprintf(`UPDATE student_enrollments SET %s WHERE id = :id AND end_date IS NULL`, strings.Join(setParts, ", "))
	result, err := r.db.NamedExecContext(ctx, query, params)
	if err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated enrollment rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetRolloverStatus applies a manual status override to an open enrollment.
func (r *EnrollmentRepository) SetRolloverStatus(ctx context.Context, id string, status models.RolloverStatus, nextGradeID, notes *string) error {
	const query = `UPDATE student_enrollments
		SET rollover_status = $2, next_grade_id = $3, rollover_notes = COALESCE($4, rollover_notes), updated_at = $5
		WHERE id = $1 AND end_date IS NULL`
	result, err := r.db.ExecContext(ctx, query, id, status, nextGradeID, notes, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set rollover status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check status update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// BulkSetRolloverStatus overrides the status on every open enrollment matching
// the filter. Filters compose with AND; an empty filter matches the whole
// active cohort.
func (r *EnrollmentRepository) BulkSetRolloverStatus(ctx context.Context, schoolID, yearID string, filter models.BulkRolloverFilter, status models.RolloverStatus, nextGradeID *string) (int64, error) {
	args := []interface{}{schoolID, yearID, status, nextGradeID, time.Now().UTC()}
	conditions := []string{"school_id = $1", "academic_year_id = $2", "end_date IS NULL"}

	if filter.GradeLevelID != "" {
		args = append(args, filter.GradeLevelID)
		conditions = append(conditions, fmt.Sprintf("grade_level_id = $%d", len(args)))
	}
	if filter.SectionID != "" {
		args = append(args, filter.SectionID)
		conditions = append(conditions, fmt.Sprintf("section_id = $%d", len(args)))
	}
	if len(filter.StudentIDs) > 0 {
		placeholders := make([]string, len(filter.StudentIDs))
		for i, id := range filter.StudentIDs {
			args = append(args, id)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("student_id IN (%s)", strings.Join(placeholders, ",")))
	}

	query := fmt.Sprintf(`UPDATE student_enrollments
		SET rollover_status = $3, next_grade_id = COALESCE($4, next_grade_id), updated_at = $5
		WHERE %s`, strings.Join(conditions, " AND "))
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("bulk set rollover status: %w", err)
	}
	updated, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check bulk update rows: %w", err)
	}
	return updated, nil
}

// Statistics performs the grouped count over open enrollments for one year.
// One query, aggregated in a single pass; unknown groups stay zero-filled.
func (r *EnrollmentRepository) Statistics(ctx context.Context, schoolID, yearID string) (*models.EnrollmentStatistics, error) {
	const query = `SELECT COALESCE(e.grade_level_id, '') AS grade_level_id, COALESCE(g.name, '') AS grade_name,
		e.enrollment_code, e.rollover_status, COUNT(*) AS count
		FROM student_enrollments e
		LEFT JOIN grade_levels g ON g.id = e.grade_level_id
		WHERE e.school_id = $1 AND e.academic_year_id = $2 AND e.end_date IS NULL
		GROUP BY 1, 2, 3, 4
		ORDER BY 2`
	rows, err := r.db.QueryxContext(ctx, query, schoolID, yearID)
	if err != nil {
		return nil, fmt.Errorf("enrollment statistics: %w", err)
	}
	defer rows.Close()

	stats := models.NewEnrollmentStatistics(schoolID, yearID)
	gradeIndex := make(map[string]int)
	for rows.Next() {
		var gradeID, gradeName string
		var code models.EnrollmentCode
		var status models.RolloverStatus
		var count int
		if err := rows.Scan(&gradeID, &gradeName, &code, &status, &count); err != nil {
			return nil, fmt.Errorf("scan statistics row: %w", err)
		}
		stats.TotalActive += count
		stats.ByCode[code] += count
		stats.ByRolloverStatus[status] += count
		if idx, ok := gradeIndex[gradeID]; ok {
			stats.ByGrade[idx].Count += count
		} else {
			gradeIndex[gradeID] = len(stats.ByGrade)
			stats.ByGrade = append(stats.ByGrade, models.GradeCount{GradeLevelID: gradeID, GradeName: gradeName, Count: count})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate statistics rows: %w", err)
	}
	return stats, nil
}

// ListByStatus returns open enrollments for the year, optionally filtered to
// one rollover status.
func (r *EnrollmentRepository) ListByStatus(ctx context.Context, schoolID, yearID string, status *models.RolloverStatus) ([]models.RolloverStatusRow, error) {
	query := `SELECT e.student_id, COALESCE(s.student_number, '') AS student_number,
		COALESCE(g.name, '') AS grade_name, COALESCE(sec.name, '') AS section_name, e.rollover_status
		FROM student_enrollments e
		LEFT JOIN students s ON s.id = e.student_id
		LEFT JOIN grade_levels g ON g.id = e.grade_level_id
		LEFT JOIN sections sec ON sec.id = e.section_id
		WHERE e.school_id = $1 AND e.academic_year_id = $2 AND e.end_date IS NULL`
	args := []interface{}{schoolID, yearID}
	if status != nil {
		args = append(args, *status)
		query += fmt.Sprintf(" AND e.rollover_status = $%d", len(args))
	}
	query += " ORDER BY grade_name, student_number"

	var rows []models.RolloverStatusRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list enrollments by status: %w", err)
	}
	return rows, nil
}
