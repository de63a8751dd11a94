package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sis-rollover-api/internal/models"
)

// AcademicYearRepository handles persistence for academic years.
type AcademicYearRepository struct {
	db *sqlx.DB
}

// NewAcademicYearRepository constructs the repository.
func NewAcademicYearRepository(db *sqlx.DB) *AcademicYearRepository {
	return &AcademicYearRepository{db: db}
}

const academicYearColumns = `id, school_id, name, start_date, end_date, is_current, is_next, created_at, updated_at`

// FindByID loads a year by identifier.
func (r *AcademicYearRepository) FindByID(ctx context.Context, id string) (*models.AcademicYear, error) {
	query := fmt.Sprintf(`SELECT %s FROM academic_years WHERE id = $1`, academicYearColumns)
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query, id); err != nil {
		return nil, err
	}
	return &year, nil
}

// List returns years matching the filter, newest first.
func (r *AcademicYearRepository) List(ctx context.Context, filter models.AcademicYearFilter) ([]models.AcademicYear, error) {
	var conditions []string
	var args []interface{}

	if filter.SchoolID != "" {
		conditions = append(conditions, fmt.Sprintf("school_id = $%d", len(args)+1))
		args = append(args, filter.SchoolID)
	}
	if filter.IsCurrent != nil {
		conditions = append(conditions, fmt.Sprintf("is_current = $%d", len(args)+1))
		args = append(args, *filter.IsCurrent)
	}
	if filter.IsNext != nil {
		conditions = append(conditions, fmt.Sprintf("is_next = $%d", len(args)+1))
		args = append(args, *filter.IsNext)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s FROM academic_years%s ORDER BY start_date DESC`, academicYearColumns, clause)
	var years []models.AcademicYear
	if err := r.db.SelectContext(ctx, &years, query, args...); err != nil {
		return nil, fmt.Errorf("list academic years: %w", err)
	}
	return years, nil
}

// Create inserts a new year record.
func (r *AcademicYearRepository) Create(ctx context.Context, year *models.AcademicYear) error {
	if year.ID == "" {
		year.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if year.CreatedAt.IsZero() {
		year.CreatedAt = now
	}
	year.UpdatedAt = now

	const query = `INSERT INTO academic_years (id, school_id, name, start_date, end_date, is_current, is_next, created_at, updated_at)
		VALUES (:id, :school_id, :name, :start_date, :end_date, :is_current, :is_next, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, year); err != nil {
		return fmt.Errorf("create academic year: %w", err)
	}
	return nil
}

// SetCurrent marks the given year as the school's current year and clears the
// flag everywhere else, in one transaction so the singleton invariant holds.
func (r *AcademicYearRepository) SetCurrent(ctx context.Context, schoolID, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set current tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE academic_years SET is_current = FALSE, updated_at = $1 WHERE school_id = $2 AND is_current = TRUE AND id <> $3`, now, schoolID, id); err != nil {
		return fmt.Errorf("clear current year flag: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE academic_years SET is_current = TRUE, is_next = FALSE, updated_at = $1 WHERE id = $2 AND school_id = $3`, now, id, schoolID); err != nil {
		return fmt.Errorf("set current year flag: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit set current tx: %w", err)
	}
	return nil
}

// SetNext marks the given year as the school's designated next year.
func (r *AcademicYearRepository) SetNext(ctx context.Context, schoolID, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set next tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE academic_years SET is_next = FALSE, updated_at = $1 WHERE school_id = $2 AND is_next = TRUE AND id <> $3`, now, schoolID, id); err != nil {
		return fmt.Errorf("clear next year flag: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE academic_years SET is_next = TRUE, updated_at = $1 WHERE id = $2 AND school_id = $3`, now, id, schoolID); err != nil {
		return fmt.Errorf("set next year flag: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit set next tx: %w", err)
	}
	return nil
}
