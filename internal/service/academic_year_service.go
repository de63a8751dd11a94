package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sis-rollover-api/internal/dto"
	"github.com/noah-isme/sis-rollover-api/internal/models"
	appErrors "github.com/noah-isme/sis-rollover-api/pkg/errors"
)

type academicYearRepository interface {
	FindByID(ctx context.Context, id string) (*models.AcademicYear, error)
	List(ctx context.Context, filter models.AcademicYearFilter) ([]models.AcademicYear, error)
	Create(ctx context.Context, year *models.AcademicYear) error
	SetCurrent(ctx context.Context, schoolID, id string) error
	SetNext(ctx context.Context, schoolID, id string) error
}

// AcademicYearService manages year records and the per-school current/next
// pointers. The pointers also move during rollover execution; this service
// covers the explicit admin path.
type AcademicYearService struct {
	repo      academicYearRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAcademicYearService constructs AcademicYearService.
func NewAcademicYearService(repo academicYearRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AcademicYearService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AcademicYearService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns the school's years, newest first.
func (s *AcademicYearService) List(ctx context.Context, filter models.AcademicYearFilter) ([]models.AcademicYear, error) {
	years, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list academic years")
	}
	return years, nil
}

// Get loads one year.
func (s *AcademicYearService) Get(ctx context.Context, id string) (*models.AcademicYear, error) {
	year, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}
	return year, nil
}

// Create registers a new year. The end date, when present, must close after
// the start. A year flagged is_next takes over the school's next pointer.
func (s *AcademicYearService) Create(ctx context.Context, req dto.CreateAcademicYearRequest) (*models.AcademicYear, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid academic year payload")
	}
	if req.EndDate != nil && !req.EndDate.After(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must be after start date")
	}

	year := &models.AcademicYear{
		SchoolID:  req.SchoolID,
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
	if err := s.repo.Create(ctx, year); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create academic year")
	}

	if req.IsNext {
		if err := s.repo.SetNext(ctx, req.SchoolID, year.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set next year pointer")
		}
		year.IsNext = true
	}

	return year, nil
}

// SetCurrent points the school's current-year flag at the given year,
// clearing it everywhere else in one transaction.
func (s *AcademicYearService) SetCurrent(ctx context.Context, schoolID, id string) (*models.AcademicYear, error) {
	year, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}
	if year.SchoolID != schoolID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
	}

	if err := s.repo.SetCurrent(ctx, schoolID, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set current year pointer")
	}

	_ = s.cache.Invalidate(ctx, SchoolCachePattern(schoolID))

	s.logger.Info("current year pointer moved", zap.String("school_id", schoolID), zap.String("academic_year_id", id))

	year.IsCurrent = true
	year.IsNext = false
	return year, nil
}

// SetNext points the school's next-year flag at the given year.
func (s *AcademicYearService) SetNext(ctx context.Context, schoolID, id string) (*models.AcademicYear, error) {
	year, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}
	if year.SchoolID != schoolID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
	}

	if err := s.repo.SetNext(ctx, schoolID, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set next year pointer")
	}

	year.IsNext = true
	return year, nil
}
