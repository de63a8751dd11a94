package repository

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sis-rollover-api/internal/models"
	appErrors "github.com/noah-isme/sis-rollover-api/pkg/errors"
)

// RolloverRepository materializes a resolved rollover plan. The whole batch is
// one transaction: either every student's mutation lands or none does.
type RolloverRepository struct {
	db        *sqlx.DB
	chunkSize int
}

// NewRolloverRepository constructs the repository. chunkSize bounds the rows
// per insert statement inside the batch transaction.
func NewRolloverRepository(db *sqlx.DB, chunkSize int) *RolloverRepository {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	return &RolloverRepository{db: db, chunkSize: chunkSize}
}

// lockKey derives the advisory lock key serializing executions per
// (school, currentYear, nextYear) triple.
func lockKey(schoolID, currentYearID, nextYearID string) int64 {
	h := fnv.New64a()
	h.Write([]byte(schoolID))
	h.Write([]byte{0})
	h.Write([]byte(currentYearID))
	h.Write([]byte{0})
	h.Write([]byte(nextYearID))
	return int64(h.Sum64())
}

// ApplyPlan executes the plan atomically: closes current-year rows, creates
// next-year rows for non-terminal outcomes, runs the optional copy-forward
// steps and flips the year pointers. The advisory lock is transaction-scoped,
// so every failure path releases it implicitly.
func (r *RolloverRepository) ApplyPlan(ctx context.Context, plan *models.RolloverPlan) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rollover tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, lockKey(plan.SchoolID, plan.CurrentYearID, plan.NextYearID)); err != nil {
		return fmt.Errorf("acquire rollover lock: %w", err)
	}

	// Re-checked under the lock. Full coverage means a concurrent execute
	// already won the race for this cohort; partial coverage (early
	// admissions placed into the next year by hand) only narrows the set of
	// next-year rows to insert.
	var active int
	err = tx.GetContext(ctx, &active, `SELECT COUNT(*) FROM student_enrollments
		WHERE school_id = $1 AND academic_year_id = $2 AND end_date IS NULL`,
		plan.SchoolID, plan.CurrentYearID)
	if err != nil {
		return fmt.Errorf("recheck active enrollments: %w", err)
	}
	var rolledIDs []string
	err = tx.SelectContext(ctx, &rolledIDs, `SELECT cur.student_id FROM student_enrollments cur
		WHERE cur.school_id = $1 AND cur.academic_year_id = $2 AND cur.end_date IS NULL
		AND EXISTS (SELECT 1 FROM student_enrollments nxt WHERE nxt.student_id = cur.student_id AND nxt.academic_year_id = $3)`,
		plan.SchoolID, plan.CurrentYearID, plan.NextYearID)
	if err != nil {
		return fmt.Errorf("recheck rollover coverage: %w", err)
	}
	if active > 0 && len(rolledIDs) == active {
		err = appErrors.Clone(appErrors.ErrRolloverInProgress, "")
		return err
	}
	alreadyRolled := make(map[string]struct{}, len(rolledIDs))
	for _, id := range rolledIDs {
		alreadyRolled[id] = struct{}{}
	}

	now := time.Now().UTC()
	if err = r.closeCurrentRows(ctx, tx, plan, now); err != nil {
		return err
	}
	if err = r.insertNextRows(ctx, tx, plan, now, alreadyRolled); err != nil {
		return err
	}
	if plan.Options.MarkingPeriods {
		if err = r.copyMarkingPeriods(ctx, tx, plan, now); err != nil {
			return err
		}
	}
	if plan.Options.Teachers {
		if err = r.copyTeacherAssignments(ctx, tx, plan, now); err != nil {
			return err
		}
	}
	if err = r.advanceYearPointers(ctx, tx, plan, now); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit rollover tx: %w", err)
	}
	return nil
}

func (r *RolloverRepository) closeCurrentRows(ctx context.Context, tx *sqlx.Tx, plan *models.RolloverPlan, now time.Time) error {
	const query = `UPDATE student_enrollments
		SET end_date = $2, rollover_status = $3, next_grade_id = $4, rollover_notes = COALESCE($5, rollover_notes), updated_at = $6
		WHERE id = $1 AND end_date IS NULL`
	for _, outcome := range plan.Outcomes {
		result, err := tx.ExecContext(ctx, query, outcome.EnrollmentID, plan.CloseDate, outcome.Status, outcome.NextGradeID, outcome.Notes, now)
		if err != nil {
			return fmt.Errorf("close enrollment %s: %w", outcome.EnrollmentID, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("check closed enrollment rows: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("enrollment %s no longer open", outcome.EnrollmentID)
		}
	}
	return nil
}

// insertNextRows creates the next-year rows. Students already holding a
// next-year row keep it untouched; skipping them preserves the
// one-row-per-(student, year) invariant.
func (r *RolloverRepository) insertNextRows(ctx context.Context, tx *sqlx.Tx, plan *models.RolloverPlan, now time.Time, alreadyRolled map[string]struct{}) error {
	var rows []models.StudentEnrollment
	for _, outcome := range plan.Outcomes {
		if outcome.Status.Terminal() {
			continue
		}
		if _, ok := alreadyRolled[outcome.StudentID]; ok {
			continue
		}
		rows = append(rows, models.StudentEnrollment{
			ID:             uuid.NewString(),
			StudentID:      outcome.StudentID,
			AcademicYearID: plan.NextYearID,
			SchoolID:       plan.SchoolID,
			GradeLevelID:   outcome.NextGradeID,
			SectionID:      outcome.SectionID,
			EnrollmentCode: outcome.Code,
			StartDate:      plan.NextStartDate,
			RolloverStatus: models.RolloverPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}

	const query = `INSERT INTO student_enrollments
		(id, student_id, academic_year_id, school_id, grade_level_id, section_id, enrollment_code,
		 start_date, end_date, next_grade_id, rollover_status, rollover_notes, created_at, updated_at)
		VALUES (:id, :student_id, :academic_year_id, :school_id, :grade_level_id, :section_id, :enrollment_code,
		 :start_date, :end_date, :next_grade_id, :rollover_status, :rollover_notes, :created_at, :updated_at)`
	for start := 0; start < len(rows); start += r.chunkSize {
		end := start + r.chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		if _, err := tx.NamedExecContext(ctx, query, rows[start:end]); err != nil {
			return fmt.Errorf("insert next-year enrollments: %w", err)
		}
	}
	return nil
}

// copyMarkingPeriods carries the grading calendar structure into the next
// year, shifting dates by the offset between the two year starts. Periods the
// next year already has (by name) are skipped, keeping the step idempotent.
func (r *RolloverRepository) copyMarkingPeriods(ctx context.Context, tx *sqlx.Tx, plan *models.RolloverPlan, now time.Time) error {
	var current []models.MarkingPeriod
	if err := tx.SelectContext(ctx, &current, `SELECT id, school_id, academic_year_id, name, type, sort_order, start_date, end_date
		FROM marking_periods WHERE school_id = $1 AND academic_year_id = $2 ORDER BY sort_order ASC`,
		plan.SchoolID, plan.CurrentYearID); err != nil {
		return fmt.Errorf("load current marking periods: %w", err)
	}
	if len(current) == 0 {
		return nil
	}

	var existingNames []string
	if err := tx.SelectContext(ctx, &existingNames, `SELECT name FROM marking_periods WHERE school_id = $1 AND academic_year_id = $2`,
		plan.SchoolID, plan.NextYearID); err != nil {
		return fmt.Errorf("load next-year marking periods: %w", err)
	}
	existing := make(map[string]struct{}, len(existingNames))
	for _, name := range existingNames {
		existing[name] = struct{}{}
	}

	shift := plan.NextStartDate.Sub(current[0].StartDate)
	const insert = `INSERT INTO marking_periods (id, school_id, academic_year_id, name, type, sort_order, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, period := range current {
		if _, ok := existing[period.Name]; ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, insert,
			uuid.NewString(), plan.SchoolID, plan.NextYearID, period.Name, period.Type, period.SortOrder,
			period.StartDate.Add(shift), period.EndDate.Add(shift)); err != nil {
			return fmt.Errorf("copy marking period %s: %w", period.Name, err)
		}
	}
	return nil
}

// copyTeacherAssignments carries active teacher-section assignments forward,
// skipping pairs the next year already holds.
func (r *RolloverRepository) copyTeacherAssignments(ctx context.Context, tx *sqlx.Tx, plan *models.RolloverPlan, now time.Time) error {
	var current []models.TeacherAssignment
	if err := tx.SelectContext(ctx, &current, `SELECT id, school_id, academic_year_id, teacher_id, section_id, active, created_at
		FROM teacher_assignments WHERE school_id = $1 AND academic_year_id = $2 AND active = TRUE`,
		plan.SchoolID, plan.CurrentYearID); err != nil {
		return fmt.Errorf("load current teacher assignments: %w", err)
	}

	const insert = `INSERT INTO teacher_assignments (id, school_id, academic_year_id, teacher_id, section_id, active, created_at)
		SELECT $1, $2, $3, $4, $5, TRUE, $6
		WHERE NOT EXISTS (SELECT 1 FROM teacher_assignments nxt
			WHERE nxt.school_id = $2 AND nxt.academic_year_id = $3
			AND nxt.teacher_id = $4 AND nxt.section_id = $5)`
	for _, assignment := range current {
		if _, err := tx.ExecContext(ctx, insert,
			uuid.NewString(), plan.SchoolID, plan.NextYearID,
			assignment.TeacherID, assignment.SectionID, now); err != nil {
			return fmt.Errorf("copy teacher assignment %s: %w", assignment.ID, err)
		}
	}
	return nil
}

// advanceYearPointers flips is_current/is_next under the same lock as the
// batch so a year is never current in two rows.
func (r *RolloverRepository) advanceYearPointers(ctx context.Context, tx *sqlx.Tx, plan *models.RolloverPlan, now time.Time) error {
	if _, err := tx.ExecContext(ctx, `UPDATE academic_years SET is_current = FALSE, updated_at = $1 WHERE school_id = $2 AND is_current = TRUE`, now, plan.SchoolID); err != nil {
		return fmt.Errorf("clear current year pointer: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE academic_years SET is_current = TRUE, is_next = FALSE, updated_at = $1 WHERE id = $2 AND school_id = $3`, now, plan.NextYearID, plan.SchoolID); err != nil {
		return fmt.Errorf("advance current year pointer: %w", err)
	}
	return nil
}
