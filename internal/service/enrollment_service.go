package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sis-rollover-api/internal/dto"
	"github.com/noah-isme/sis-rollover-api/internal/models"
	appErrors "github.com/noah-isme/sis-rollover-api/pkg/errors"
)

type studentEnrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentEnrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	FindOpenByStudent(ctx context.Context, studentID string) (*models.EnrollmentDetail, error)
	ListHistoryByStudent(ctx context.Context, studentID string, includeCurrent bool) ([]models.EnrollmentDetail, error)
	HasRowForYear(ctx context.Context, studentID, yearID string) (bool, error)
	HasOpenEnrollment(ctx context.Context, studentID string) (bool, error)
	Create(ctx context.Context, enrollment *models.StudentEnrollment) error
	UpdateOpenRow(ctx context.Context, id string, gradeLevelID, sectionID, notes *string) error
	SetRolloverStatus(ctx context.Context, id string, status models.RolloverStatus, nextGradeID, notes *string) error
	BulkSetRolloverStatus(ctx context.Context, schoolID, yearID string, filter models.BulkRolloverFilter, status models.RolloverStatus, nextGradeID *string) (int64, error)
	Statistics(ctx context.Context, schoolID, yearID string) (*models.EnrollmentStatistics, error)
	ListByStatus(ctx context.Context, schoolID, yearID string, status *models.RolloverStatus) ([]models.RolloverStatusRow, error)
}

// EnrollmentService owns the student enrollment lifecycle outside of rollover
// execution: creation, open-row patches, manual status overrides and reporting.
type EnrollmentService struct {
	repo      studentEnrollmentRepository
	years     academicYearReader
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo studentEnrollmentRepository, years academicYearReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, years: years, cache: cache, validator: validate, logger: logger, cacheTTL: cacheTTL}
}

// Current returns the student's open enrollment.
func (s *EnrollmentService) Current(ctx context.Context, studentID string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindOpenByStudent(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student has no open enrollment")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current enrollment")
	}
	return detail, nil
}

// History returns the student's enrollment history, most recent first.
func (s *EnrollmentService) History(ctx context.Context, studentID string, includeCurrent bool) ([]models.EnrollmentDetail, error) {
	history, err := s.repo.ListHistoryByStudent(ctx, studentID, includeCurrent)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment history")
	}
	return history, nil
}

// Create opens a new enrollment row. Unknown enrollment codes are rejected,
// and both uniqueness invariants are enforced before the insert: one row per
// (student, year), and one open row per student across all years.
func (s *EnrollmentService) Create(ctx context.Context, req dto.CreateEnrollmentRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	code, err := models.ParseEnrollmentCode(req.EnrollmentCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unknown enrollment code")
	}

	year, err := s.years.FindByID(ctx, req.AcademicYearID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}
	if year.SchoolID != req.SchoolID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
	}

	exists, err := s.repo.HasRowForYear(ctx, req.StudentID, req.AcademicYearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already has an enrollment for this academic year")
	}
	open, err := s.repo.HasOpenEnrollment(ctx, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate enrollment")
	}
	if open {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already has an open enrollment; close it first")
	}

	enrollment := &models.StudentEnrollment{
		StudentID:      req.StudentID,
		AcademicYearID: req.AcademicYearID,
		SchoolID:       req.SchoolID,
		GradeLevelID:   req.GradeLevelID,
		SectionID:      req.SectionID,
		EnrollmentCode: code,
		RolloverStatus: models.RolloverPending,
	}
	if req.StartDate != nil {
		enrollment.StartDate = *req.StartDate
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	_ = s.cache.Invalidate(ctx, SchoolCachePattern(req.SchoolID))

	detail, err := s.repo.FindDetailByID(ctx, enrollment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// Update patches the still-open enrollment row. Closed rows are immutable;
// history corrections happen through new rows, never edits.
func (s *EnrollmentService) Update(ctx context.Context, id string, req dto.UpdateEnrollmentRequest) (*models.EnrollmentDetail, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if !enrollment.Open() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "closed enrollment rows are immutable")
	}

	if err := s.repo.UpdateOpenRow(ctx, id, req.GradeLevelID, req.SectionID, req.RolloverNotes); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "closed enrollment rows are immutable")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment")
	}

	_ = s.cache.Invalidate(ctx, SchoolCachePattern(enrollment.SchoolID))

	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// SetRolloverStatus applies a manual override on the student's open row. The
// override wins unconditionally over the computed outcome at execution time.
func (s *EnrollmentService) SetRolloverStatus(ctx context.Context, studentID string, req dto.SetStudentRolloverStatusRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	status, err := models.ParseRolloverStatus(req.Status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unknown rollover status")
	}

	open, err := s.repo.FindOpenByStudent(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student has no open enrollment")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current enrollment")
	}

	if err := s.repo.SetRolloverStatus(ctx, open.ID, status, req.NextGradeID, req.Notes); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment is no longer open")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set rollover status")
	}

	_ = s.cache.Invalidate(ctx, SchoolCachePattern(open.SchoolID))

	detail, err := s.repo.FindDetailByID(ctx, open.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// BulkSetRolloverStatus overrides the status on every open enrollment matching
// the filter. An empty filter targets the whole active cohort.
func (s *EnrollmentService) BulkSetRolloverStatus(ctx context.Context, req dto.BulkRolloverStatusRequest) (int64, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk status payload")
	}
	status, err := models.ParseRolloverStatus(req.Status)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unknown rollover status")
	}

	updated, err := s.repo.BulkSetRolloverStatus(ctx, req.SchoolID, req.AcademicYearID, req.Filters, status, req.NextGradeID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply bulk status")
	}

	_ = s.cache.Invalidate(ctx, SchoolCachePattern(req.SchoolID))

	s.logger.Info("bulk rollover status applied",
		zap.String("school_id", req.SchoolID),
		zap.String("academic_year_id", req.AcademicYearID),
		zap.String("status", string(status)),
		zap.Int64("updated", updated))
	return updated, nil
}

// Statistics returns the grouped enrollment report for one (school, year).
func (s *EnrollmentService) Statistics(ctx context.Context, schoolID, yearID string) (*models.EnrollmentStatistics, error) {
	cacheKey := StatisticsCacheKey(schoolID, yearID)
	var cached models.EnrollmentStatistics
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	stats, err := s.repo.Statistics(ctx, schoolID, yearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute statistics")
	}
	_ = s.cache.Set(ctx, cacheKey, stats, s.cacheTTL)
	return stats, nil
}

// ListByStatus lists open enrollments for the year, optionally filtered to one
// rollover status. An empty status returns the whole cohort.
func (s *EnrollmentService) ListByStatus(ctx context.Context, schoolID, yearID, statusRaw string) ([]models.RolloverStatusRow, error) {
	var status *models.RolloverStatus
	if statusRaw != "" {
		parsed, err := models.ParseRolloverStatus(statusRaw)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unknown rollover status")
		}
		status = &parsed
	}
	rows, err := s.repo.ListByStatus(ctx, schoolID, yearID, status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return rows, nil
}
